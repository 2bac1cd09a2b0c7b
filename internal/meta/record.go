// Package meta implements the reference & metadata store (spec §4.1): a
// dual-backed record store holding the data that rides alongside the
// object database (stack membership, ordering, review-target
// associations) but isn't itself representable as a Git object.
//
// Every record is kept in two places: a TOML file under the
// repository's Git directory (the durable, diffable, human-editable
// source of truth) and a SQLite mirror (consulted on point lookups;
// listing re-derives from the TOML tree and any ordering is done in Go).
// The two are kept in sync
// by comparing modification time and content hash; see sync.go.
package meta

import "github.com/google/uuid"

// BranchRecord is the metadata the store keeps about a single branch
// that participates in a stack.
type BranchRecord struct {
	// Name is the branch's short ref name; also the record's key.
	Name string `toml:"name"`

	// StackID groups branches that form one logical stack.
	StackID uuid.UUID `toml:"stack_id"`

	// Base is the name of the branch this one is stacked on, or "" if
	// it sits directly on the stack's target.
	Base string `toml:"base"`

	// Order is the branch's position within its stack, lowest first.
	Order int `toml:"order"`

	// ReviewURL is an opaque forge reference (spec C8), e.g. a PR URL.
	ReviewURL string `toml:"review_url,omitempty"`
}

// WorkspaceRecord is the metadata the store keeps about one managed
// workspace.
type WorkspaceRecord struct {
	// ID uniquely identifies the workspace.
	ID uuid.UUID `toml:"id"`

	// TargetRef is the ref the workspace's stacks are projected
	// against (spec §3 "integration target"), or "" for a targetless
	// workspace.
	TargetRef string `toml:"target_ref,omitempty"`

	// StackIDs lists, in application order, the stacks currently
	// applied to this workspace.
	StackIDs []uuid.UUID `toml:"stack_ids"`

	// SelectedForChanges is the stack new worktree changes are assigned
	// to by default when no recorded assignment or positional match
	// exists (spec §4.5 "Fallback assignment"). Zero means none chosen.
	SelectedForChanges uuid.UUID `toml:"selected_for_changes,omitempty"`
}
