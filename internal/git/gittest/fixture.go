// Package gittest provides helpers for exercising internal/git and its
// consumers against a real, disposable Git repository.
package gittest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"go.gitbutler.dev/core/internal/git"
)

// NewRepo initializes a fresh repository in a temporary directory and
// configures a deterministic author/committer identity so that tests
// produce stable output modulo timestamps.
func NewRepo(t *testing.T) *git.Repository {
	t.Helper()

	dir := t.TempDir()
	run(t, dir, "init", "--initial-branch=main", "-q")
	run(t, dir, "config", "user.name", "Test User")
	run(t, dir, "config", "user.email", "test@example.com")
	run(t, dir, "config", "commit.gpgsign", "false")

	repo, err := git.Open(context.Background(), dir, git.OpenOptions{})
	if err != nil {
		t.Fatalf("open fixture repo: %v", err)
	}
	return repo
}

// Commit creates an empty-tree-relative commit with the given file
// contents, using plain `git` plumbing so tests don't depend on
// internal/git being correct to set up their fixtures.
func Commit(t *testing.T, repo *git.Repository, files map[string]string, message string) string {
	t.Helper()
	dir := repo.RootDir()

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}

	run(t, dir, "add", "-A")
	run(t, dir, "commit", "-q", "-m", message)
	return strings.TrimSpace(run(t, dir, "rev-parse", "HEAD"))
}

// Branch creates (or moves) a branch ref to point at the given commit.
func Branch(t *testing.T, repo *git.Repository, name, at string) {
	t.Helper()
	run(t, repo.RootDir(), "update-ref", "refs/heads/"+name, at)
}

func run(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return string(out)
}
