package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	mcpserver "datadesk/internal/mcp"
	"datadesk/internal/service"
)

// ServeMCP runs a standalone MCP server on stdin/stdout with no GUI.
// Destructive tools wait for approval in the desktop app unless
// autoApprove is set.
func ServeMCP(cfg Config, version string, autoApprove bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	core, err := OpenCore(cfg, service.NoopEmitter{})
	if err != nil {
		return err
	}
	defer core.Close()

	var approver mcpserver.Approver = mcpserver.NewStoreApprover(core.Approvals)
	if autoApprove {
		approver = mcpserver.AutoApprove{}
	}

	srv := mcpserver.New(mcpserver.Deps{
		Records:  core.Records,
		Settings: core.Settings,
		Approver: approver,
		Version:  version,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Println("[MCP] Shutting down")
		waitCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		core.Records.Wait(waitCtx)
		return nil
	}
}
