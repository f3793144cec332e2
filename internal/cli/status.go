package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dshills/srcgroup/internal/project"
	"github.com/dshills/srcgroup/pkg/types"
)

type StatusSummary struct {
	Project         string        `json:"project"`
	State           string        `json:"state"`
	Indexed         bool          `json:"indexed"`
	Files           int           `json:"files"`
	IndexedFiles    int           `json:"indexed_files"`
	IncompleteFiles int           `json:"incomplete_files"`
	References      int           `json:"references"`
	ErrorCount      int           `json:"error_count"`
	SchemaVersion   string        `json:"schema_version,omitempty"`
	LastIndexedAt   *time.Time    `json:"last_indexed_at,omitempty"`
	SettingsDiff    string        `json:"settings_diff,omitempty"`
	Errors          []StatusError `json:"errors,omitempty"`
}

type StatusError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

func RunStatus(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}
	listErrors, _ := cmd.Flags().GetBool("errors")

	p, err := openProject(cmd, args, project.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx := commandContext(cmd)
	summary := StatusSummary{
		Project:      p.Path(),
		State:        p.State().String(),
		SettingsDiff: p.SettingsDiff(),
	}

	status, err := p.IndexStatus(ctx)
	switch {
	case errors.Is(err, types.ErrProjectNotLoaded):
	case err != nil:
		return err
	default:
		summary.Indexed = status.IndexedCount > 0
		summary.Files = status.FilesCount
		summary.IndexedFiles = status.IndexedCount
		summary.IncompleteFiles = status.IncompleteCount
		summary.References = status.ReferencesCount
		summary.ErrorCount = status.ErrorsCount
		summary.SchemaVersion = status.SchemaVersion
		if !status.LastIndexedAt.IsZero() {
			t := status.LastIndexedAt
			summary.LastIndexedAt = &t
		}
		if listErrors && status.ErrorsCount > 0 {
			indexErrors, err := p.IndexErrors(ctx)
			if err != nil {
				return err
			}
			for _, e := range indexErrors {
				summary.Errors = append(summary.Errors, StatusError{Path: e.Path, Message: e.Message, Fatal: e.Fatal})
			}
		}
	}

	return PrintStatusSummary(cmd, summary, asJSON)
}

func PrintStatusSummary(cmd *cobra.Command, summary StatusSummary, asJSON bool) error {
	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, summary)
	}

	lastIndexed := "never"
	if summary.LastIndexedAt != nil {
		lastIndexed = summary.LastIndexedAt.Local().Format(time.DateTime)
	}
	data := pterm.TableData{
		{"Project", summary.Project},
		{"State", summary.State},
		{"Files", strconv.Itoa(summary.Files)},
		{"Indexed", strconv.Itoa(summary.IndexedFiles)},
		{"Incomplete", strconv.Itoa(summary.IncompleteFiles)},
		{"References", strconv.Itoa(summary.References)},
		{"Errors", strconv.Itoa(summary.ErrorCount)},
		{"Last indexed", lastIndexed},
	}
	if err := pterm.DefaultTable.WithWriter(out).WithData(data).Render(); err != nil {
		return err
	}

	if summary.SettingsDiff != "" {
		fmt.Fprintf(out, "\nsettings changed since the last refresh:\n%s", summary.SettingsDiff)
	}
	if len(summary.Errors) > 0 {
		rows := pterm.TableData{{"File", "Fatal", "Message"}}
		for _, e := range summary.Errors {
			rows = append(rows, []string{e.Path, strconv.FormatBool(e.Fatal), e.Message})
		}
		fmt.Fprintln(out)
		return pterm.DefaultTable.WithWriter(out).WithHasHeader().WithData(rows).Render()
	}
	return nil
}
