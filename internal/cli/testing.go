package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI provides a clean interface for running CLI commands in tests.
// It manages a temp working directory, a temp config directory and
// environment variables.
type CLI struct {
	t         *testing.T
	Dir       string
	ConfigDir string
	Env       map[string]string
}

// NewCLI creates a new test CLI with temp directories.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	return &CLI{
		t:         t,
		Dir:       t.TempDir(),
		ConfigDir: t.TempDir(),
		Env:       map[string]string{},
	}
}

// Run executes the CLI with the given args and returns stdout, stderr, and exit code.
// Args should not include "bead", "--cwd" or "--config-dir" - those are added automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"bead", "--cwd", r.Dir, "--config-dir", r.ConfigDir}, args...)
	code := Run(nil, &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test if the command returns non-zero.
// Returns trimmed stdout on success.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustFail executes the CLI and fails the test if the command succeeds.
// Also fails if stdout is not empty. Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	if stdout != "" {
		r.t.Fatalf("command %v failed but stdout should be empty\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// Cd moves the working directory to rel, relative to the current one.
func (r *CLI) Cd(rel string) {
	r.Dir = filepath.Join(r.Dir, rel)
}

// Path returns rel joined to the working directory.
func (r *CLI) Path(rel string) string {
	return filepath.Join(r.Dir, rel)
}

// WriteFile writes content to rel below the working directory.
func (r *CLI) WriteFile(rel, content string) {
	r.t.Helper()

	path := r.Path(rel)

	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		r.t.Fatalf("failed to create directory for %s: %v", rel, err)
	}

	err = os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		r.t.Fatalf("failed to write %s: %v", rel, err)
	}
}

// ReadFile reads rel below the working directory.
func (r *CLI) ReadFile(rel string) string {
	r.t.Helper()

	content, err := os.ReadFile(r.Path(rel))
	if err != nil {
		r.t.Fatalf("failed to read %s: %v", rel, err)
	}

	return string(content)
}

// Exists reports whether rel exists below the working directory.
func (r *CLI) Exists(rel string) bool {
	_, err := os.Stat(r.Path(rel))

	return err == nil
}

// AddBox creates a fresh box directory and registers it as name.
// Returns the box directory.
func (r *CLI) AddBox(name string) string {
	r.t.Helper()

	dir := r.t.TempDir()
	r.MustRun("box", "add", name, dir)

	return dir
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
