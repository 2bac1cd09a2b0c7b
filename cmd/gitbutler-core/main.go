// gitbutler-core is a thin command-line harness over the core engine:
// enough to open a repository, project its workspace, and drive every
// mutation in internal/engine from a shell, the way a GUI or another
// process embedding this module would.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"go.gitbutler.dev/core/internal/assign"
	"go.gitbutler.dev/core/internal/engine"
	"go.gitbutler.dev/core/internal/forge"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/logx"
	"go.gitbutler.dev/core/internal/meta"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	go func() {
		<-sigc
		cancel()
	}()

	var cmd rootCmd
	kctx := kong.Parse(&cmd,
		kong.Name("gitbutler-core"),
		kong.Description("Drive the GitButler core engine from a shell."),
		kong.Bind(&cmd.globalOptions),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.UsageOnError(),
	)
	kctx.FatalIfErrorf(kctx.Run())
}

type globalOptions struct {
	RepoDir string `name:"repo" default:"." help:"Path to the repository's working directory."`
	Verbose bool   `short:"v" help:"Enable debug logging."`
}

type rootCmd struct {
	globalOptions

	Workspace workspaceCmd `cmd:"" aliases:"ws" help:"Inspect and configure workspaces."`
	Commit    commitCmd    `cmd:"" aliases:"c" help:"Mutate commits within an applied stack."`
	Stack     stackCmd     `cmd:"" aliases:"s" help:"Apply, unapply, and integrate stacks."`
	Branch    branchCmd    `cmd:"" aliases:"b" help:"Create and manage branch references."`
	Assign    assignCmd    `cmd:"" aliases:"a" help:"Inspect and reassign worktree hunk assignments."`
}

func (cmd *rootCmd) AfterApply(kctx *kong.Context) error {
	level := logx.LevelInfo
	if cmd.Verbose {
		level = logx.LevelDebug
	}
	l := logx.New(os.Stderr, level)
	kctx.BindTo(l, (*logx.Logger)(nil))
	return nil
}

// env bundles the handles every leaf command needs, opened once per
// invocation against the repository the user pointed us at.
type env struct {
	repo    *git.Repository
	store   *meta.Store
	assigns *assign.Store
	eng     *engine.Engine
}

func openEnv(ctx context.Context, opts globalOptions, l *logx.Logger) (*env, error) {
	repo, err := git.Open(ctx, opts.RepoDir, git.OpenOptions{Log: l})
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	store, err := meta.Open(repo.GitDir())
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	assigns := assign.Open(repo.GitDir())

	eng := engine.New(repo, store, assigns, forge.NewMemStore(), engine.Options{Log: l})

	return &env{repo: repo, store: store, assigns: assigns, eng: eng}, nil
}

func (e *env) Close() error {
	return e.store.Close()
}
