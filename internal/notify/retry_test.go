package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/diskmon/internal/config"
)

// flakySink fails the first n deliveries
type flakySink struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []Message
}

func (f *flakySink) Deliver(ctx context.Context, m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("connection refused")
	}
	f.got = append(f.got, m)
	return nil
}

var fastRetry = Retry{
	InitialInterval: time.Millisecond,
	MaxInterval:     5 * time.Millisecond,
	MaxElapsedTime:  time.Second,
	MaxAttempts:     3,
}

func testMessage() Message {
	return Message{Subject: "System Disk Report - nas01", HTMLBody: "<pre>ok</pre>", Recipients: []string{"ops@example.com"}}
}

func TestDeliverWithRetrySucceedsFirstTime(t *testing.T) {
	sink := &flakySink{}
	require.NoError(t, DeliverWithRetry(context.Background(), sink, testMessage(), fastRetry, logr.Discard()))
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, []Message{testMessage()}, sink.got)
}

func TestDeliverWithRetryRecovers(t *testing.T) {
	sink := &flakySink{failures: 2}
	require.NoError(t, DeliverWithRetry(context.Background(), sink, testMessage(), fastRetry, logr.Discard()))
	assert.Equal(t, 3, sink.calls)
}

func TestDeliverWithRetryExhausts(t *testing.T) {
	sink := &flakySink{failures: 10}
	err := DeliverWithRetry(context.Background(), sink, testMessage(), fastRetry, logr.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempt(s)")
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 3, sink.calls)
}

func TestDeliverWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &flakySink{failures: 10}
	err := DeliverWithRetry(ctx, sink, testMessage(), fastRetry, logr.Discard())
	require.Error(t, err)
	assert.LessOrEqual(t, sink.calls, 1)
}

func TestSMTPSinkMessage(t *testing.T) {
	s := NewSMTPSink(&config.Config{SMTPServer: "smtp.example.com", SMTPPort: 587, EmailFrom: "diskmon@example.com"})

	msg, err := s.message(testMessage())
	require.NoError(t, err)
	assert.Equal(t, []string{"System Disk Report - nas01"}, msg.GetGenHeader("Subject"))

	_, err = s.message(Message{Recipients: []string{"not an address"}})
	assert.Error(t, err)

	s.From = ""
	_, err = s.message(testMessage())
	assert.Error(t, err)
}

func TestSMTPSinkOptions(t *testing.T) {
	base := SMTPSink{Server: "smtp.example.com", Port: 465}
	assert.Len(t, base.options(), 2)

	withAuth := base
	withAuth.Security = config.SecuritySSL
	withAuth.Username = "monitor"
	assert.Len(t, withAuth.options(), 5)
}
