package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/logx"
)

type assignCmd struct {
	List   assignListCmd   `cmd:"" help:"List worktree hunk assignments, reconciled against the live diff."`
	Select assignSelectCmd `cmd:"" help:"Mark a stack as the fallback destination for unassigned worktree changes."`
}

type assignListCmd struct {
	Workspace uuid.UUID `arg:"" help:"Workspace id."`
}

func (cmd *assignListCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	assignments, err := e.eng.ListAssignments(ctx, cmd.Workspace)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		stack := "unassigned"
		if a.StackID != uuid.Nil {
			stack = a.StackID.String()
		}
		fmt.Printf("%s %s: %s\n", a.Locator.Path, a.Locator.Header, stack)
	}
	return nil
}

type assignSelectCmd struct {
	Workspace uuid.UUID `arg:"" help:"Workspace id."`
	Stack     uuid.UUID `arg:"" optional:"" help:"Stack id to select; omit to clear."`
}

func (cmd *assignSelectCmd) Run(ctx context.Context, opts *globalOptions, log *logx.Logger) error {
	e, err := openEnv(ctx, *opts, log)
	if err != nil {
		return err
	}
	defer e.Close()

	return e.eng.SelectForChanges(ctx, cmd.Workspace, cmd.Stack)
}
