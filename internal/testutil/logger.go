// Package testutil provides shared helpers for package tests.
package testutil

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// NewTestLogger returns a debug-level logger routed through t.Log, so log
// lines show up only on failure or under -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(logWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type logWriter struct {
	t testing.TB
}

func (w logWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

// WriteSchemaDir creates a temp directory holding one catalog file per
// database, in the JSON layout the schema store reads.
func WriteSchemaDir(t testing.TB, catalogs map[string]map[string]map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for db, catalog := range catalogs {
		data, err := json.MarshalIndent(catalog, "", "  ")
		if err != nil {
			t.Fatalf("marshaling catalog %s: %v", db, err)
		}
		if err := os.WriteFile(filepath.Join(dir, db+".json"), data, 0o644); err != nil {
			t.Fatalf("writing catalog %s: %v", db, err)
		}
	}
	return dir
}
