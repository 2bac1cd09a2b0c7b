package engine

import (
	"context"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/workspace"
)

// txn is one in-flight transaction-template instance (spec §4.4): it
// holds the worktree lock and the workspace projection read at step 2
// until the calling operation either commits (step 6, by writing refs
// and metadata and then calling reproject) or aborts (step 7).
type txn struct {
	eng     *Engine
	wsID    uuid.UUID
	ws      *workspace.Workspace
	release func()
}

// begin acquires the exclusive worktree lock and projects the named
// workspace (spec §4.4 steps 1-2). Callers must defer t.end().
func (e *Engine) begin(ctx context.Context, wsID uuid.UUID) (*txn, error) {
	release, err := e.lock.Acquire(ctx)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindExternalFailure, "acquire worktree lock", err)
	}

	ws, err := workspace.LoadManaged(ctx, e.repo, e.store, wsID, workspace.Options{RemotePrefix: e.remotePrefix})
	if err != nil {
		release()
		return nil, coreerr.Wrap(coreerr.KindIntegrityFault, "load workspace", err)
	}

	return &txn{eng: e, wsID: wsID, ws: ws, release: release}, nil
}

// reproject re-derives the workspace after refs/metadata were written,
// so the Workspace an operation hands back to its caller reflects what
// actually landed. It projects the written state as is; no overlay is
// applied.
func (t *txn) reproject(ctx context.Context) (*workspace.Workspace, error) {
	ws, err := workspace.LoadManaged(ctx, t.eng.repo, t.eng.store, t.wsID, workspace.Options{RemotePrefix: t.eng.remotePrefix})
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindIntegrityFault, "reproject workspace", err)
	}
	t.ws = ws
	return ws, nil
}

// end releases the worktree lock. Safe to call exactly once per txn,
// on every exit path (success or error) via a deferred call right after
// begin returns.
func (t *txn) end() {
	t.release()
}
