// Package engine implements the mutation engine (spec §4.4, C4): every
// mutating exported method is one operation from spec.md §4.4, each
// following the same transaction template (acquire lock -> project ->
// validate -> mutate -> write refs and metadata -> reproject; no overlay
// projection is checked before the write). ListAssignments and
// SelectForChanges take no lock. The template is grounded on the teacher's
// restack/onto/stack-edit shape of "verify invariant, rebase, write
// state transactionally, report rejections as structured errors, not
// panics".
package engine

import (
	"go.gitbutler.dev/core/internal/assign"
	"go.gitbutler.dev/core/internal/forge"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/logx"
	"go.gitbutler.dev/core/internal/meta"
	"go.gitbutler.dev/core/internal/refs"
	"go.gitbutler.dev/core/internal/wtlock"
)

// Options configures an Engine.
type Options struct {
	// RemotePrefix is the remote consulted for LocalAndRemote
	// classification and push-status derivation (spec §3).
	RemotePrefix string

	Log *logx.Logger
}

// Engine is the mutation engine for a single repository: the entry
// point for every write operation in spec §4.4.
type Engine struct {
	repo    *git.Repository
	store   *meta.Store
	assigns *assign.Store
	forge   forge.Store
	lock    *wtlock.Lock
	refs    *refs.Checker
	log     *logx.Logger

	remotePrefix string
}

// New builds an Engine bound to repo, its metadata store, its worktree
// assignment store, and a forge record store.
func New(repo *git.Repository, store *meta.Store, assigns *assign.Store, forgeStore forge.Store, opts Options) *Engine {
	log := opts.Log
	if log == nil {
		log = logx.Nop()
	}
	return &Engine{
		repo:         repo,
		store:        store,
		assigns:      assigns,
		forge:        forgeStore,
		lock:         wtlock.Open(repo.GitDir()),
		refs:         refs.NewChecker(repo, store),
		log:          log,
		remotePrefix: opts.RemotePrefix,
	}
}
