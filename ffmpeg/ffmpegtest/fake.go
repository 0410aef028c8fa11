// Package ffmpegtest provides a scripted ffmpeg.Runner for tests.
package ffmpegtest

import (
	"context"
	"sync"

	"vidchunk/ffmpeg"
)

// Call records a single invocation.
type Call struct {
	Name string
	Args []string
}

// HandlerFunc produces the outcome of an invocation.
type HandlerFunc func(name string, args []string) (*ffmpeg.Result, error)

// FakeRunner records invocations and answers them with Handler.
// A nil Handler succeeds with empty output.
type FakeRunner struct {
	Handler HandlerFunc

	mu    sync.Mutex
	calls []Call
}

// Run implements ffmpeg.Runner.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (*ffmpeg.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Handler == nil {
		return &ffmpeg.Result{}, nil
	}
	return f.Handler(name, args)
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the invocations of the named binary.
func (f *FakeRunner) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// ArgValue returns the argument following flag, or "" when flag is absent.
func ArgValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
