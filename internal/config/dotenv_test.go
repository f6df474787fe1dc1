package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDotEnv_MissingFilesAreIgnored(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, ".env"), filepath.Join(dir, ".env.local")); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
}

func TestLoadDotEnv_LoadsValuesAndRespectsExistingEnv(t *testing.T) {
	t.Setenv("ELEARN_KEEP", "from-process")

	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")
	writeEnvFile(t, local, "ELEARN_BUCKET=local-media", "")
	writeEnvFile(t, shared,
		"# comment",
		"ELEARN_BUCKET=shared-media",
		"ELEARN_KEEP=from-file",
		`ELEARN_QUOTED="a b c"`,
		"export ELEARN_EXPORTED=yes",
		"",
	)

	if err := LoadDotEnv(local, shared); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}

	if got := os.Getenv("ELEARN_BUCKET"); got != "local-media" {
		t.Fatalf("ELEARN_BUCKET = %q, want %q", got, "local-media")
	}
	if got := os.Getenv("ELEARN_QUOTED"); got != "a b c" {
		t.Fatalf("ELEARN_QUOTED = %q, want %q", got, "a b c")
	}
	if got := os.Getenv("ELEARN_EXPORTED"); got != "yes" {
		t.Fatalf("ELEARN_EXPORTED = %q, want %q", got, "yes")
	}
	if got := os.Getenv("ELEARN_KEEP"); got != "from-process" {
		t.Fatalf("ELEARN_KEEP = %q, want %q", got, "from-process")
	}
}

func TestLoadDotEnv_InvalidLineReturnsError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeEnvFile(t, path, `ELEARN_BAD="unterminated`)

	if err := LoadDotEnv(path); err == nil {
		t.Fatalf("LoadDotEnv() error = nil, want non-nil")
	}
}

func writeEnvFile(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
