package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/storage"
	"github.com/dshills/srcgroup/pkg/types"
)

// ErrNoIndexer is returned for cxx, java and python commands when no
// indexer executable is configured.
var ErrNoIndexer = errors.New("no indexer executable configured")

// Outcome is what running one command produced.
type Outcome struct {
	References []string
	Complete   bool
	Errors     []storage.IndexError
}

// Dispatcher runs a single indexer command. Implementations must be safe
// for concurrent use and must stop work when ctx is done.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command) (*Outcome, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, cmd command.Command) (*Outcome, error)

// Dispatch calls f(ctx, cmd).
func (f DispatcherFunc) Dispatch(ctx context.Context, cmd command.Command) (*Outcome, error) {
	return f(ctx, cmd)
}

// ExecDispatcher runs custom commands through a shell and hands every other
// command to an external indexer process. The indexer reads the JSON
// encoded command on stdin and writes an indexerResponse to stdout.
type ExecDispatcher struct {
	IndexerPath string
	// Shell runs custom commands with "-c". Defaults to "sh".
	Shell string
	// WaitDelay bounds how long output pipes are drained after a killed
	// process.
	WaitDelay time.Duration
}

type indexerResponse struct {
	References []string `json:"references"`
	Complete   bool     `json:"complete"`
	Errors     []struct {
		Message string `json:"message"`
		Fatal   bool   `json:"fatal"`
	} `json:"errors"`
}

// outputLines is how much process output is kept as an error message.
const outputLines = 20

// Dispatch implements Dispatcher.
func (d *ExecDispatcher) Dispatch(ctx context.Context, cmd command.Command) (*Outcome, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if cmd.Type == command.TypeCustom {
		return d.runCustom(ctx, cmd)
	}
	return d.runIndexer(ctx, cmd)
}

func (d *ExecDispatcher) command(ctx context.Context, name string, args ...string) *exec.Cmd {
	c := exec.CommandContext(ctx, name, args...)
	c.Env = os.Environ()
	c.WaitDelay = d.WaitDelay
	if c.WaitDelay == 0 {
		c.WaitDelay = 5 * time.Second
	}
	return c
}

// runCustom runs the substituted shell command. A non-zero exit marks the
// file incomplete with the tail of the output as a fatal error.
func (d *ExecDispatcher) runCustom(ctx context.Context, cmd command.Command) (*Outcome, error) {
	shell := d.Shell
	if shell == "" {
		shell = "sh"
	}
	c := d.command(ctx, shell, "-c", cmd.Custom.Command)
	out, err := c.CombinedOutput()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", shell, types.ErrToolUnavailable)
		}
		msg := tail(out, outputLines)
		if msg == "" {
			msg = err.Error()
		}
		return &Outcome{
			Complete: false,
			Errors:   []storage.IndexError{{Path: cmd.SourceFilePath, Message: msg, Fatal: true}},
		}, nil
	}
	return &Outcome{Complete: true}, nil
}

func (d *ExecDispatcher) runIndexer(ctx context.Context, cmd command.Command) (*Outcome, error) {
	if d.IndexerPath == "" {
		return nil, ErrNoIndexer
	}
	data, err := cmd.Marshal()
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	c := d.command(ctx, d.IndexerPath)
	c.Stdin = bytes.NewReader(data)
	c.Stdout = &stdout
	c.Stderr = &stderr
	err = c.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", d.IndexerPath, types.ErrToolUnavailable)
		}
		return nil, fmt.Errorf("%s failed on %s: %w: %s", d.IndexerPath, cmd.SourceFilePath, err, tail(stderr.Bytes(), outputLines))
	}

	var resp indexerResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode indexer output for %s: %w", cmd.SourceFilePath, err)
	}
	outcome := &Outcome{References: resp.References, Complete: resp.Complete}
	for _, e := range resp.Errors {
		outcome.Errors = append(outcome.Errors, storage.IndexError{Path: cmd.SourceFilePath, Message: e.Message, Fatal: e.Fatal})
	}
	return outcome, nil
}

// tail returns the last n lines of out.
func tail(out []byte, n int) string {
	text := strings.TrimRight(string(out), "\r\n")
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
