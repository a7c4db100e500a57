package shell

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// Response is a canned reply for one command line
type Response struct {
	Output Output
	Err    error
	// Delay blocks the call for this long, or until ctx is done
	Delay time.Duration
}

// Fake is a scripted Runner for tests. Commands are keyed by their full
// command line joined with single spaces. Unknown commands fail as if the
// binary were missing.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	binaries  map[string]string
	calls     []string
}

// NewFake returns an empty scripted runner
func NewFake() *Fake {
	return &Fake{
		responses: make(map[string]Response),
		binaries:  make(map[string]string),
	}
}

// On registers the reply for a command line
func (f *Fake) On(resp Response, name string, args ...string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[commandLine(name, args)] = resp
	return f
}

// Stdout registers a successful command that prints out
func (f *Fake) Stdout(out string, name string, args ...string) *Fake {
	return f.On(Response{Output: Output{Stdout: []byte(out)}}, name, args...)
}

// Install makes LookPath succeed for name
func (f *Fake) Install(name, path string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binaries[name] = path
	return f
}

// Calls returns every command line run so far, in order
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *Fake) Run(ctx context.Context, name string, args ...string) (Output, error) {
	key := commandLine(name, args)

	f.mu.Lock()
	f.calls = append(f.calls, key)
	resp, ok := f.responses[key]
	f.mu.Unlock()

	if !ok {
		return Output{}, &exec.Error{Name: name, Err: exec.ErrNotFound}
	}

	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-ctx.Done():
			return Output{}, ctx.Err()
		}
	}
	return resp.Output, resp.Err
}

func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path, ok := f.binaries[name]; ok {
		return path, nil
	}
	return "", &exec.Error{Name: name, Err: errors.New("executable file not found in $PATH")}
}

func commandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
