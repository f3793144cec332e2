package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dshills/srcgroup/internal/command"
	"github.com/dshills/srcgroup/internal/project"
)

func RunGroups(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}

	p, err := openProject(cmd, args, project.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	groups, err := p.Groups()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, groups)
	}
	rows := pterm.TableData{{"ID", "Name", "Type", "Status", "Files"}}
	for _, g := range groups {
		rows = append(rows, []string{g.ID, g.Name, g.Type, g.Status, strconv.Itoa(g.SourceFiles)})
	}
	return pterm.DefaultTable.WithWriter(out).WithHasHeader().WithData(rows).Render()
}

func RunCommands(cmd *cobra.Command, args []string) error {
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("failed to read --json flag: %w", err)
	}
	file, _ := cmd.Flags().GetString("file")
	if file != "" {
		if file, err = filepath.Abs(file); err != nil {
			return err
		}
	}

	p, err := openProject(cmd, args, project.Options{Status: statusPrinter(cmd)})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	cmds, failures, err := p.Commands(commandContext(cmd))
	if err != nil {
		return err
	}

	var selected []command.Command
	for _, c := range cmds {
		if file == "" || c.SourceFilePath == file {
			selected = append(selected, c)
		}
	}
	if file != "" && len(selected) == 0 {
		return fmt.Errorf("no source group indexes %s", file)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		encoder := json.NewEncoder(out)
		for _, c := range selected {
			if err := encoder.Encode(c); err != nil {
				return err
			}
		}
	} else {
		fmt.Fprint(out, command.Render(selected))
	}
	for _, f := range failures {
		pterm.Warning.WithWriter(cmd.ErrOrStderr()).Println(f.Error())
	}
	return nil
}

func RunMigrate(cmd *cobra.Command, args []string) error {
	p, err := openProject(cmd, args, project.Options{})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	migrated, err := p.Migrate(commandContext(cmd))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if !migrated {
		fmt.Fprintf(out, "%s is up to date\n", p.Path())
		return nil
	}
	fmt.Fprintf(out, "migrated %s, state %s\n", p.Path(), p.State())
	return nil
}
