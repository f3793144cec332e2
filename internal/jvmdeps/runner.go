package jvmdeps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dshills/srcgroup/pkg/types"
)

// Runner executes one build tool invocation and returns its combined
// output. Implementations must stop the process when ctx is done.
type Runner interface {
	Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error)
}

// ExecRunner runs tools as child processes.
type ExecRunner struct {
	// WaitDelay bounds how long output pipes are drained after the process
	// is killed.
	WaitDelay time.Duration
}

// Run implements Runner.
func (r ExecRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}
	return cmd.CombinedOutput()
}

// Options configure a build tool.
type Options struct {
	Runner   Runner
	Timeout  time.Duration
	JavaHome string
}

func (o Options) runner() Runner {
	if o.Runner == nil {
		return ExecRunner{}
	}
	return o.Runner
}

// env returns JAVA_HOME when it is configured and not already set.
func (o Options) env() []string {
	if o.JavaHome == "" || os.Getenv("JAVA_HOME") != "" {
		return nil
	}
	return []string{"JAVA_HOME=" + o.JavaHome}
}

// run executes one tool invocation under the hard timeout and maps the
// failure modes onto the shared error sentinels.
func (o Options) run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	out, err := o.runner().Run(ctx, dir, o.env(), name, args...)
	if err == nil {
		return out, nil
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return out, fmt.Errorf("%s %s after %s: %w", name, strings.Join(args, " "), o.Timeout, types.ErrDependencyTimeout)
	case ctx.Err() != nil:
		return out, ctx.Err()
	case errors.Is(err, exec.ErrNotFound):
		return out, fmt.Errorf("%s: %w", name, types.ErrToolUnavailable)
	}
	return out, fmt.Errorf("%s %s failed: %w: %s", name, strings.Join(args, " "), err, tail(out, 20))
}

// tail returns the last n lines of out.
func tail(out []byte, n int) string {
	lines := strings.Split(strings.TrimRight(string(out), "\r\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
