package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dshills/srcgroup/internal/project"
)

// RefreshSummary is the outcome of a refresh as printed by the refresh
// command.
type RefreshSummary struct {
	Project                string   `json:"project"`
	State                  string   `json:"state"`
	Mode                   string   `json:"mode"`
	DryRun                 bool     `json:"dry_run"`
	ToIndex                int      `json:"to_index"`
	ToClear                int      `json:"to_clear"`
	NonIndexedToClear      int      `json:"non_indexed_to_clear"`
	Indexed                int      `json:"indexed"`
	Incomplete             int      `json:"incomplete"`
	Failed                 int      `json:"failed"`
	Cleared                int      `json:"cleared"`
	DurationMS             int64    `json:"duration_ms"`
	FilesToIndex           []string `json:"files_to_index,omitempty"`
	FilesToClear           []string `json:"files_to_clear,omitempty"`
	NonIndexedFilesToClear []string `json:"non_indexed_files_to_clear,omitempty"`
	GroupFailures          []string `json:"group_failures,omitempty"`
	Errors                 []string `json:"errors,omitempty"`
}

func refreshMode(cmd *cobra.Command) (project.RefreshMode, error) {
	full, err := cmd.Flags().GetBool("full")
	if err != nil {
		return 0, fmt.Errorf("failed to read --full flag: %w", err)
	}
	incomplete, err := cmd.Flags().GetBool("incomplete")
	if err != nil {
		return 0, fmt.Errorf("failed to read --incomplete flag: %w", err)
	}
	name, err := cmd.Flags().GetString("mode")
	if err != nil {
		return 0, fmt.Errorf("failed to read --mode flag: %w", err)
	}
	switch {
	case full && incomplete:
		return 0, fmt.Errorf("--full and --incomplete are mutually exclusive")
	case full:
		return project.RefreshAllFiles, nil
	case incomplete:
		return project.RefreshUpdatedAndIncompleteFiles, nil
	}
	mode, ok := project.ParseRefreshMode(name)
	if !ok {
		return 0, fmt.Errorf("unknown refresh mode %q, expected updated, incomplete or all", name)
	}
	return mode, nil
}

func RunRefresh(cmd *cobra.Command, args []string) error {
	start := time.Now()
	mode, err := refreshMode(cmd)
	if err != nil {
		return err
	}
	force, _ := cmd.Flags().GetBool("force")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}

	progress := newRefreshProgress(!asJSON && isTerminal())
	opts := project.Options{OnFile: progress.Update}
	if !asJSON {
		opts.Status = statusPrinter(cmd)
	}
	p, err := openProject(cmd, args, opts)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	if p.State() == project.StateSettingsUpdated && !asJSON {
		if diff := p.SettingsDiff(); diff != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "settings changed since the last refresh:\n%s", diff)
		}
	}

	progress.Start(fmt.Sprintf("Refreshing %s...", p.Path()))
	res, err := p.Refresh(commandContext(cmd), project.RefreshOptions{Mode: mode, Force: force, DryRun: dryRun})
	progress.Stop()
	if err != nil && res == nil {
		return err
	}

	summary := RefreshSummary{
		Project:           p.Path(),
		State:             res.State.String(),
		Mode:              res.Info.Mode.String(),
		DryRun:            dryRun,
		ToIndex:           len(res.Info.FilesToIndex),
		ToClear:           len(res.Info.FilesToClear),
		NonIndexedToClear: len(res.Info.NonIndexedFilesToClear),
		DurationMS:        time.Since(start).Milliseconds(),
	}
	if dryRun {
		summary.FilesToIndex = res.Info.FilesToIndex
		summary.FilesToClear = res.Info.FilesToClear
		summary.NonIndexedFilesToClear = res.Info.NonIndexedFilesToClear
	}
	for _, f := range res.Info.Failures {
		summary.GroupFailures = append(summary.GroupFailures, f.Error())
	}
	if s := res.Stats; s != nil {
		summary.Indexed = s.FilesIndexed
		summary.Incomplete = s.FilesIncomplete
		summary.Failed = s.FilesFailed
		summary.Cleared = s.FilesCleared
		summary.Errors = s.ErrorMessages
	}

	if printErr := PrintRefreshSummary(cmd, summary, asJSON); printErr != nil {
		return printErr
	}
	return err
}

func PrintRefreshSummary(cmd *cobra.Command, summary RefreshSummary, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, summary)
	}

	if summary.DryRun {
		fmt.Fprintf(out, "dry run (%s): index=%d clear=%d clear_non_indexed=%d\n",
			summary.Mode, summary.ToIndex, summary.ToClear, summary.NonIndexedToClear)
		if len(summary.FilesToIndex) > 0 {
			fmt.Fprintf(out, "to index (%d): %s\n", len(summary.FilesToIndex), SummarizePaths(summary.FilesToIndex, 8))
		}
		if len(summary.FilesToClear) > 0 {
			fmt.Fprintf(out, "to clear (%d): %s\n", len(summary.FilesToClear), SummarizePaths(summary.FilesToClear, 8))
		}
		if len(summary.NonIndexedFilesToClear) > 0 {
			fmt.Fprintf(out, "referenced files to clear (%d): %s\n", len(summary.NonIndexedFilesToClear), SummarizePaths(summary.NonIndexedFilesToClear, 8))
		}
	} else {
		fmt.Fprintf(out, "refresh (%s) complete in %dms, state %s\n", summary.Mode, summary.DurationMS, summary.State)
		fmt.Fprintf(out, "files: indexed=%d incomplete=%d failed=%d cleared=%d\n",
			summary.Indexed, summary.Incomplete, summary.Failed, summary.Cleared)
	}
	w := cmd.ErrOrStderr()
	for _, f := range summary.GroupFailures {
		pterm.Warning.WithWriter(w).Println(f)
	}
	for i, e := range summary.Errors {
		if i == 5 {
			pterm.Warning.WithWriter(w).Printfln("... %d more errors", len(summary.Errors)-i)
			break
		}
		pterm.Error.WithWriter(w).Println(e)
	}
	return nil
}

// refreshProgress shows a spinner with the file count while indexing.
type refreshProgress struct {
	enabled bool
	mu      sync.Mutex
	spinner *pterm.SpinnerPrinter
}

func newRefreshProgress(enabled bool) *refreshProgress {
	return &refreshProgress{enabled: enabled}
}

func (r *refreshProgress) Start(text string) {
	if !r.enabled {
		return
	}
	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100 * time.Millisecond).WithRemoveWhenDone(true)
	s, err := spinner.Start(text)
	if err != nil {
		return
	}
	r.mu.Lock()
	r.spinner = s
	r.mu.Unlock()
}

// Update is called by indexer workers after each file.
func (r *refreshProgress) Update(done, total int, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner == nil {
		return
	}
	if len(path) > 72 {
		path = "..." + path[len(path)-69:]
	}
	r.spinner.UpdateText(fmt.Sprintf("%d/%d %s", done, total, path))
}

func (r *refreshProgress) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.spinner == nil {
		return
	}
	_ = r.spinner.Stop()
	r.spinner = nil
}
