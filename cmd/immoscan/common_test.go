package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/immoscan/internal/config"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	t.Run("text by default", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		var buf bytes.Buffer
		newLogger(cmd, &buf, false).Warn("hello", "cookie", "a=b")
		if !strings.Contains(buf.String(), "msg=hello") {
			t.Errorf("expected text output, got %q", buf.String())
		}
		if strings.Contains(buf.String(), "a=b") {
			t.Errorf("expected cookie to be masked, got %q", buf.String())
		}
	})

	t.Run("JSON with --log-json", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		if err := cmd.PersistentFlags().Parse([]string{"--log-json"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var buf bytes.Buffer
		newLogger(cmd, &buf, false).Warn("hello")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
		}
		if entry["msg"] != "hello" {
			t.Errorf("unexpected entry %v", entry)
		}
	})
}

func TestResolveDBDir(t *testing.T) {
	t.Setenv(config.EnvDBDir, "")

	if got := resolveDBDir("/tmp/flag"); got != "/tmp/flag" {
		t.Errorf("expected flag value, got %q", got)
	}
	if got := resolveDBDir(""); got != config.XDGDataDir() {
		t.Errorf("expected XDG data dir, got %q", got)
	}

	t.Setenv(config.EnvDBDir, "/tmp/env")
	if got := resolveDBDir(""); got != "/tmp/env" {
		t.Errorf("expected environment value, got %q", got)
	}
}

func TestOpenOutput(t *testing.T) {
	t.Parallel()

	t.Run("stdout when no path", func(t *testing.T) {
		t.Parallel()

		var stdout bytes.Buffer
		w, closeFn, err := openOutput("", &stdout)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w != &stdout {
			t.Error("expected stdout writer")
		}
		if err := closeFn(); err != nil {
			t.Errorf("unexpected close error: %v", err)
		}
	})

	t.Run("creates file and directories", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "a", "b", "report.txt")
		w, closeFn, err := openOutput(path, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := w.Write([]byte("ok")); err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}
		if err := closeFn(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected file: %v", err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected permissions 0600, got %o", info.Mode().Perm())
		}
	})
}
