package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/engine"
	"go.gitbutler.dev/core/internal/logx"
)

type stackCmd struct {
	Apply     stackApplyCmd     `cmd:"" help:"Apply a stack to a workspace."`
	Unapply   stackUnapplyCmd   `cmd:"" help:"Remove a stack from a workspace."`
	Integrate stackIntegrateCmd `cmd:"" help:"Rebase applied stacks onto the workspace's integration target."`
}

type stackApplyCmd struct {
	Workspace uuid.UUID `arg:"" help:"Workspace id."`
	Stack     uuid.UUID `arg:"" help:"Stack id to apply."`
}

func (cmd *stackApplyCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.eng.ApplyStack(ctx, engine.ApplyStackRequest{
		WorkspaceID: cmd.Workspace,
		StackID:     cmd.Stack,
	})
	if err != nil {
		return err
	}
	if out.Relation == engine.RelationUnmergedTree {
		fmt.Println("applied with unresolved tree conflicts against:")
		for _, id := range out.ConflictingWith {
			fmt.Println(" ", id)
		}
		return nil
	}
	fmt.Println("applied cleanly")
	return nil
}

type stackUnapplyCmd struct {
	Workspace uuid.UUID `arg:"" help:"Workspace id."`
	Stack     uuid.UUID `arg:"" help:"Stack id to unapply."`
}

func (cmd *stackUnapplyCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	_, err = e.eng.UnapplyStack(ctx, engine.UnapplyStackRequest{
		WorkspaceID: cmd.Workspace,
		StackID:     cmd.Stack,
	})
	return err
}

type stackIntegrateCmd struct {
	Workspace uuid.UUID `arg:"" help:"Workspace id."`
}

func (cmd *stackIntegrateCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	out, err := e.eng.IntegrateUpstream(ctx, engine.IntegrateUpstreamRequest{
		WorkspaceID: cmd.Workspace,
	})
	if err != nil {
		return err
	}
	for _, s := range out.Stacks {
		fmt.Printf("%s: %s\n", s.StackID, s.Status)
	}
	return nil
}
