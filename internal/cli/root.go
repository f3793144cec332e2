package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/srcgroup/internal/config"
	"github.com/dshills/srcgroup/internal/storage"
)

func NewRootCommand(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "srcgroup",
		Short: "Resolve source groups and keep a project index up to date",
		Long: `srcgroup reads a project settings file, resolves every source group
(compilation databases, Code::Blocks projects, Sonargraph models, Maven and
Gradle builds, file lists and custom commands) into the files to index, and
runs one indexer command per file. Refreshes are incremental: only files
whose content, settings or references changed are indexed again.

Commands take the project file as argument. Without one, the single
*.srctrlprj file in the working directory is used.`,
		SilenceUsage: true,
	}
	config.AddFlags(rootCmd)

	// Index Commands
	refreshCmd := &cobra.Command{
		Use:   "refresh [project]",
		Short: "Index new and changed files",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunRefresh,
	}
	refreshCmd.Flags().String("mode", "updated", "Refresh mode: updated|incomplete|all")
	refreshCmd.Flags().Bool("full", false, "Shorthand for --mode all")
	refreshCmd.Flags().Bool("incomplete", false, "Shorthand for --mode incomplete")
	refreshCmd.Flags().Bool("force", false, "Refresh even when the project is up to date")
	refreshCmd.Flags().Bool("dry-run", false, "Only show which files would be indexed and cleared")
	refreshCmd.Flags().Bool("json", false, "Print machine-readable refresh summary")

	watchCmd := &cobra.Command{
		Use:   "watch [project]",
		Short: "Refresh the index whenever owned files change",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunWatch,
	}
	watchCmd.Flags().Duration("debounce", 0, "Quiet period before a batch of changes is processed (default 500ms)")
	watchCmd.Flags().Bool("incomplete", false, "Also retry incompletely indexed files on every refresh")

	migrateCmd := &cobra.Command{
		Use:   "migrate [project]",
		Short: "Upgrade project settings written by an older version",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunMigrate,
	}

	// Inspect Commands
	statusCmd := &cobra.Command{
		Use:   "status [project]",
		Short: "Show the project state and index statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunStatus,
	}
	statusCmd.Flags().Bool("json", false, "Print machine-readable status output")
	statusCmd.Flags().Bool("errors", false, "List the errors indexers reported")

	groupsCmd := &cobra.Command{
		Use:   "groups [project]",
		Short: "List the source groups of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunGroups,
	}
	groupsCmd.Flags().Bool("json", false, "Print machine-readable group list")

	commandsCmd := &cobra.Command{
		Use:   "commands [project]",
		Short: "Print the indexer command of every source file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  RunCommands,
	}
	commandsCmd.Flags().Bool("json", false, "Print commands as JSON lines")
	commandsCmd.Flags().String("file", "", "Only print the command for this source file")

	// Server Commands
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE:  RunServe,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "srcgroup %s\n", version)
			fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Storage Version: %d\n", storage.StorageVersion())
		},
	}

	rootCmd.AddCommand(
		refreshCmd,
		watchCmd,
		migrateCmd,
		statusCmd,
		groupsCmd,
		commandsCmd,
		serveCmd,
		versionCmd,
	)

	return rootCmd
}
