package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/engine"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/logx"
)

type commitCmd struct {
	Create  commitCreateCmd  `cmd:"" help:"Commit worktree changes into a branch."`
	Amend   commitAmendCmd   `cmd:"" help:"Fold worktree changes into an existing commit."`
	Reword  commitRewordCmd  `cmd:"" help:"Change a commit's message."`
	Squash  commitSquashCmd  `cmd:"" help:"Fold one or more commits into another."`
	Reorder commitReorderCmd `cmd:"" help:"Reorder a branch's commits."`
	Move    commitMoveCmd    `cmd:"" help:"Move a commit to a different branch."`
	Undo    commitUndoCmd    `cmd:"" help:"Undo a branch's topmost commit."`
}

type commitCreateCmd struct {
	Workspace uuid.UUID `arg:"" help:"Workspace id."`
	Branch    string    `arg:"" help:"Branch to commit onto."`
	Paths     []string  `arg:"" optional:"" help:"Paths to include; with none, no worktree change is included."`
	Message   string    `short:"m" required:"" help:"Commit message."`
}

func (cmd *commitCreateCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	specs := make([]engine.DiffSpec, len(cmd.Paths))
	for i, p := range cmd.Paths {
		specs[i] = engine.DiffSpec{Path: p}
	}

	out, err := e.eng.CreateCommit(ctx, engine.CreateCommitRequest{
		WorkspaceID: cmd.Workspace,
		Branch:      cmd.Branch,
		Specs:       specs,
		Message:     cmd.Message,
	})
	if err != nil {
		return err
	}
	if len(out.Rejections) > 0 {
		fmt.Printf("%d hunk(s) rejected\n", len(out.Rejections))
	}
	fmt.Println(out.NewCommit)
	return nil
}

type commitAmendCmd struct {
	Workspace uuid.UUID `arg:"" help:"Workspace id."`
	Commit    git.Hash  `arg:"" help:"Commit to amend."`
	Paths     []string  `arg:"" optional:"" help:"Paths to include; with none, no worktree change is included."`
}

func (cmd *commitAmendCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	specs := make([]engine.DiffSpec, len(cmd.Paths))
	for i, p := range cmd.Paths {
		specs[i] = engine.DiffSpec{Path: p}
	}

	out, err := e.eng.Amend(ctx, engine.AmendRequest{
		WorkspaceID: cmd.Workspace,
		Commit:      cmd.Commit,
		Specs:       specs,
	})
	if err != nil {
		return err
	}
	if len(out.Rejections) > 0 {
		fmt.Printf("%d hunk(s) rejected\n", len(out.Rejections))
	}
	fmt.Println(out.NewCommit)
	return nil
}

type commitRewordCmd struct {
	Workspace uuid.UUID `arg:"" help:"Workspace id."`
	Commit    git.Hash  `arg:"" help:"Commit to reword."`
	Message   string    `arg:"" help:"New commit message."`
}

func (cmd *commitRewordCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.eng.Reword(ctx, engine.RewordRequest{
		WorkspaceID: cmd.Workspace,
		Commit:      cmd.Commit,
		Message:     cmd.Message,
	})
	if err != nil {
		return err
	}
	fmt.Println(out.NewCommit)
	return nil
}

type commitSquashCmd struct {
	Workspace   uuid.UUID  `arg:"" help:"Workspace id."`
	Destination git.Hash   `arg:"" help:"Commit the sources are folded into."`
	Sources     []git.Hash `arg:"" help:"Commits to fold into the destination."`
	Message     string     `short:"m" help:"Message for the combined commit; defaults to the destination's."`
}

func (cmd *commitSquashCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.eng.Squash(ctx, engine.SquashRequest{
		WorkspaceID: cmd.Workspace,
		Sources:     cmd.Sources,
		Destination: cmd.Destination,
		Message:     cmd.Message,
	})
	if err != nil {
		return err
	}
	fmt.Println(out.NewCommit)
	return nil
}

type commitReorderCmd struct {
	Workspace uuid.UUID  `arg:"" help:"Workspace id."`
	Branch    string     `arg:"" help:"Branch to reorder."`
	NewOrder  []git.Hash `arg:"" help:"Desired order, tip-first."`
}

func (cmd *commitReorderCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.eng.Reorder(ctx, engine.ReorderRequest{
		WorkspaceID: cmd.Workspace,
		Branch:      cmd.Branch,
		NewOrder:    cmd.NewOrder,
	})
	if err != nil {
		return err
	}
	fmt.Println(out.NewTip)
	return nil
}

type commitMoveCmd struct {
	Workspace    uuid.UUID `arg:"" help:"Workspace id."`
	Commit       git.Hash  `arg:"" help:"Commit to move."`
	TargetBranch string    `arg:"" help:"Branch to move the commit onto."`
}

func (cmd *commitMoveCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.eng.MoveCommit(ctx, engine.MoveCommitRequest{
		WorkspaceID:  cmd.Workspace,
		Commit:       cmd.Commit,
		TargetBranch: cmd.TargetBranch,
	})
	if err != nil {
		return err
	}
	fmt.Println(out.NewCommit)
	return nil
}

type commitUndoCmd struct {
	Workspace uuid.UUID `arg:"" help:"Workspace id."`
	Branch    string    `arg:"" help:"Branch to undo the topmost commit of."`
}

func (cmd *commitUndoCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.eng.UndoCommit(ctx, engine.UndoCommitRequest{
		WorkspaceID: cmd.Workspace,
		Branch:      cmd.Branch,
	})
	if err != nil {
		return err
	}
	for _, p := range out.RestoredPaths {
		fmt.Println(p)
	}
	return nil
}
