package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/immoscan/internal/config"
	"github.com/nao1215/immoscan/internal/database"
	immolog "github.com/nao1215/immoscan/internal/log"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getBoolFlag(cmd, "verbose")
}

// getBoolFlag reads a boolean flag from the command or the root's persistent
// flags, returning false when it is not defined.
func getBoolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

// newLogger builds the redacting logger selected by --log-json.
func newLogger(cmd *cobra.Command, w io.Writer, verbose bool) *slog.Logger {
	if getBoolFlag(cmd, "log-json") {
		return immolog.NewJSONLogger(w, verbose)
	}
	return immolog.NewLogger(w, verbose)
}

// resolveDBDir picks the history directory: flag, then IMMOSCAN_DB_DIR, then
// the XDG data directory.
func resolveDBDir(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(config.EnvDBDir); v != "" {
		return v
	}
	return config.XDGDataDir()
}

// openStore opens the history database in dbDir.
func openStore(dbDir string) (*database.CrawlDB, error) {
	db, err := database.Open(dbDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// openOutput returns stdout, or the file at path created with owner-only
// permissions. The returned close function is always safe to call.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}
