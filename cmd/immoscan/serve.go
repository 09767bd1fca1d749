package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/immoscan/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the crawl history over HTTP",
		Long: `Serve exposes the local crawl history as a read-only JSON API.

Endpoints:
  GET /healthz
  GET /api/crawls
  GET /api/crawls/{id}
  GET /api/crawls/{id}/summary
  GET /api/listings/history?url=<listing-url>
  GET /api/compare?base_url=<search-url>

Examples:
  # Listen on the default address
  immoscan serve

  # Listen on all interfaces
  immoscan serve --addr :8080`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().String("addr", server.DefaultAddr,
		"Listen address")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	addr, err := cmd.Flags().GetString("addr")
	if err != nil {
		return err
	}
	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}

	logger := newLogger(cmd, os.Stderr, getVerboseFlag(cmd))

	db, err := openStore(resolveDBDir(dbDir))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(db, server.WithLogger(logger))

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving %s on http://%s\n", db.Path(), addr)
	return srv.ListenAndServe(ctx, addr)
}
