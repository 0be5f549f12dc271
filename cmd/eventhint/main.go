// Package main provides the eventhint CLI entry point: operator commands
// for schema migration, running the pipeline/sync worker pools, local
// ingestion testing, and driving event approval/rejection directly,
// grounded on the teacher's cobra-based root main.go (minus its gRPC
// client, since this CLI talks to Postgres/Redis directly).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Csabesz1130/eventhint/pkg/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventhint",
		Short: "eventhint ingests messages, extracts calendar events, and syncs them to a provider calendar",
	}

	root.AddCommand(newMigrateCmd())
	root.AddCommand(newWorkerCmd())
	root.AddCommand(newIngestCmd())
	root.AddCommand(newApproveCmd())
	root.AddCommand(newRejectCmd())
	root.AddCommand(newVersionCmd())

	return root
}

// signalContext returns a context canceled on SIGINT/SIGTERM, used by the
// migrate, ingest, approve/reject and worker commands.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadConfigOrExit() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
