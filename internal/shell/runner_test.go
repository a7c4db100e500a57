package shell

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecCapturesOutput(t *testing.T) {
	requireShell(t)

	out, err := Exec{}.Run(context.Background(), "sh", "-c", "echo hello; echo oops 1>&2")
	require.NoError(t, err)
	assert.True(t, out.Success())
	assert.Equal(t, "hello\n", string(out.Stdout))
	assert.Equal(t, "oops\n", string(out.Stderr))
}

func TestExecNonZeroExitIsNotAnError(t *testing.T) {
	requireShell(t)

	out, err := Exec{}.Run(context.Background(), "sh", "-c", "echo partial; exit 4")
	require.NoError(t, err)
	assert.False(t, out.Success())
	assert.Equal(t, 4, out.ExitCode)
	assert.Equal(t, "partial\n", string(out.Stdout))
}

func TestExecMissingBinary(t *testing.T) {
	_, err := Exec{}.Run(context.Background(), "diskmon-definitely-missing-binary")
	assert.Error(t, err)
}

func TestExecKilledOnContextDeadline(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := Exec{}.Run(ctx, "sh", "-c", "sleep 10")
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
