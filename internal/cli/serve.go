package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/dshills/srcgroup/internal/mcp"
	"github.com/dshills/srcgroup/internal/project"
	"github.com/dshills/srcgroup/internal/storage"
	"github.com/dshills/srcgroup/internal/watch"
)

func RunWatch(cmd *cobra.Command, args []string) error {
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return fmt.Errorf("failed to read --debounce flag: %w", err)
	}
	incomplete, _ := cmd.Flags().GetBool("incomplete")

	p, err := openProject(cmd, args, project.Options{Status: statusPrinter(cmd)})
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := loadApp(cmd)
	if err != nil {
		return err
	}
	mode := project.RefreshUpdatedFiles
	if incomplete {
		mode = project.RefreshUpdatedAndIncompleteFiles
	}

	// Catch up before watching.
	if _, err := p.Refresh(ctx, project.RefreshOptions{Mode: mode}); err != nil {
		return err
	}

	errOut := cmd.ErrOrStderr()
	w := watch.New(p, &watch.Config{
		Debounce: debounce,
		Logger:   newLogger(cmd, app),
		Refresh:  project.RefreshOptions{Mode: mode},
		OnRefresh: func(b *watch.Batch, res *project.RefreshResult, err error) {
			if err != nil {
				pterm.Error.WithWriter(errOut).Printfln("refresh failed: %v", err)
				return
			}
			indexed := 0
			if res.Stats != nil {
				indexed = res.Stats.FilesIndexed
			}
			pterm.Success.WithWriter(errOut).Printfln("%d changed files, %d indexed, state %s",
				len(b.Events), indexed, res.State)
		},
	})
	pterm.Info.WithWriter(errOut).Printfln("watching %s, press Ctrl+C to stop", p.Path())
	return w.Run(ctx)
}

func RunServe(cmd *cobra.Command, args []string) error {
	app, err := loadApp(cmd)
	if err != nil {
		return err
	}

	// Log startup info to stderr (stdout reserved for MCP protocol)
	logger := log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	logger.Printf("srcgroup MCP server %s starting...", mcp.ServerVersion)
	logger.Printf("Build Mode: %s, Driver: %s", storage.BuildMode, storage.DriverName)

	server, err := mcp.NewServer(app, mcp.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		logger.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
		_ = server.Close()
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Println("Server stopped")
	return nil
}
