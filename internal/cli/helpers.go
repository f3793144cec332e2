package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dshills/srcgroup/internal/config"
	"github.com/dshills/srcgroup/internal/project"
	"github.com/dshills/srcgroup/internal/settings"
	"github.com/dshills/srcgroup/pkg/types"
)

// ErrNoProjectFile is returned when no project argument is given and the
// working directory holds no single project file.
var ErrNoProjectFile = errors.New("no project file given")

// resolveProjectPath returns the absolute project file named by args or the
// only project file in the working directory.
func resolveProjectPath(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return filepath.Abs(args[0])
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	matches, err := filepath.Glob(filepath.Join(wd, "*"+settings.ProjectFileExtension))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no %s file in %s", ErrNoProjectFile, settings.ProjectFileExtension, wd)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%w: %s holds several project files (%s)", ErrNoProjectFile, wd, SummarizePaths(matches, 4))
	}
}

// loadApp resolves the application settings from the persistent flags.
func loadApp(cmd *cobra.Command) (*config.AppSettings, error) {
	return config.Load("", cmd)
}

// newLogger logs to stderr when --verbose is set and discards otherwise.
func newLogger(cmd *cobra.Command, app *config.AppSettings) *log.Logger {
	if app != nil && app.Verbose {
		return log.New(cmd.ErrOrStderr(), "srcgroup: ", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// statusPrinter prints group status messages to stderr.
func statusPrinter(cmd *cobra.Command) types.StatusSink {
	w := cmd.ErrOrStderr()
	return types.StatusFunc(func(msg types.StatusMessage) {
		text := msg.Text
		if msg.GroupID != "" {
			text = fmt.Sprintf("[%s] %s", msg.GroupID, text)
		}
		if msg.IsError {
			pterm.Error.WithWriter(w).Println(text)
			return
		}
		pterm.Info.WithWriter(w).Println(text)
	})
}

// openProject resolves the project of args and loads it. The caller closes
// the returned project.
func openProject(cmd *cobra.Command, args []string, opts project.Options) (*project.Project, error) {
	path, err := resolveProjectPath(args)
	if err != nil {
		return nil, err
	}
	app, err := loadApp(cmd)
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = newLogger(cmd, app)
	}
	p := project.New(path, app, opts)
	if err := p.Load(commandContext(cmd)); err != nil {
		_ = p.Close()
		return nil, err
	}
	return p, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// isTerminal reports whether stderr is an interactive terminal.
func isTerminal() bool {
	stat, err := os.Stderr.Stat()
	return err == nil && (stat.Mode()&os.ModeCharDevice) != 0
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// SummarizePaths joins up to limit paths and notes how many were left out.
func SummarizePaths(paths []string, limit int) string {
	if len(paths) <= limit {
		return strings.Join(paths, ", ")
	}
	return fmt.Sprintf("%s, ... (+%d more)", strings.Join(paths[:limit], ", "), len(paths)-limit)
}
