package git

import (
	"context"
	"fmt"
	"strings"

	"go.gitbutler.dev/core/internal/logx"
)

// OpenOptions configures the behavior of Open.
type OpenOptions struct {
	// Log specifies the logger to use for messages. Defaults to a no-op
	// logger.
	Log *logx.Logger

	exec execer
}

// Open opens the repository at the given directory. If dir is empty, the
// current working directory is used.
func Open(ctx context.Context, dir string, opts OpenOptions) (*Repository, error) {
	if opts.exec == nil {
		opts.exec = _realExec
	}
	if opts.Log == nil {
		opts.Log = logx.Nop()
	}

	out, err := newGitCmd(ctx, opts.Log,
		"rev-parse", "--show-toplevel", "--absolute-git-dir",
	).Dir(dir).OutputString(opts.exec)
	if err != nil {
		return nil, fmt.Errorf("open repository at %q: %w", dir, err)
	}

	root, gitDir, ok := strings.Cut(out, "\n")
	if !ok {
		return nil, fmt.Errorf("unexpected output from git rev-parse: %q", out)
	}

	return newRepository(root, gitDir, opts.Log, opts.exec), nil
}

// Repository is a handle to a Git repository. It provides read/write
// access to its objects, refs, and trees. It never caches ref targets:
// every query re-reads from the object database, per the core's
// ownership rule that the Git object database exclusively owns commits,
// trees, and refs.
type Repository struct {
	root   string
	gitDir string

	log  *logx.Logger
	exec execer
}

func newRepository(root, gitDir string, log *logx.Logger, exec execer) *Repository {
	return &Repository{root: root, gitDir: gitDir, log: log, exec: exec}
}

// RootDir returns the absolute path to the working tree root.
func (r *Repository) RootDir() string { return r.root }

// GitDir returns the absolute path to the repository's administrative
// directory (".git" or the equivalent for a worktree).
func (r *Repository) GitDir() string { return r.gitDir }

func (r *Repository) gitCmd(ctx context.Context, args ...string) *gitCmd {
	return newGitCmd(ctx, r.log, args...).Dir(r.root)
}
