package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/logx"
	"go.gitbutler.dev/core/internal/meta"
	"go.gitbutler.dev/core/internal/workspace"
)

type workspaceCmd struct {
	Init   workspaceInitCmd   `cmd:"" help:"Register a new managed workspace."`
	Status workspaceStatusCmd `cmd:"" help:"Show a workspace's stacks and push status."`
}

type workspaceInitCmd struct {
	TargetRef string `name:"target" default:"refs/heads/main" help:"Integration target ref."`
}

func (cmd *workspaceInitCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	rec := meta.WorkspaceRecord{ID: uuid.New(), TargetRef: cmd.TargetRef}
	if err := e.store.SetWorkspace(ctx, rec); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	fmt.Println(rec.ID)
	return nil
}

type workspaceStatusCmd struct {
	ID uuid.UUID `arg:"" help:"Workspace id."`
}

func (cmd *workspaceStatusCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	ws, err := workspace.LoadManaged(ctx, e.repo, e.store, cmd.ID, workspace.Options{})
	if err != nil {
		return fmt.Errorf("load workspace: %w", err)
	}

	fmt.Printf("target: %s\n", ws.TargetRef)
	for _, stack := range ws.Stacks {
		fmt.Printf("stack %s:\n", stack.ID)
		for _, b := range stack.Branches {
			fmt.Printf("  %-20s %s\n", b.Name, b.PushStatus)
		}
	}
	return nil
}
