package main

import (
	"context"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/engine"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/logx"
)

type branchCmd struct {
	Create branchCreateCmd `cmd:"" help:"Create a branch reference anchored to a commit."`
}

type branchCreateCmd struct {
	Workspace uuid.UUID `arg:"" help:"Workspace id."`
	Name      string    `arg:"" help:"New branch name."`
	Anchor    git.Hash  `arg:"" help:"Commit to anchor the new reference to."`
	Below     bool      `help:"Anchor below the given commit instead of above it."`
}

func (cmd *branchCreateCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	_, err = e.eng.CreateReference(ctx, engine.CreateReferenceRequest{
		WorkspaceID: cmd.Workspace,
		Name:        cmd.Name,
		Anchor: engine.Anchor{
			Commit: cmd.Anchor,
			Above:  !cmd.Below,
		},
	})
	return err
}
