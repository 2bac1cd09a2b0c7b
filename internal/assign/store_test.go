package assign_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/assign"
	"go.gitbutler.dev/core/internal/git"
)

func TestStoreReassignAndList(t *testing.T) {
	ctx := context.Background()
	store := assign.Open(t.TempDir())

	loc := assign.Locator{Path: "a.txt", Fingerprint: 42}
	stackID := uuid.New()

	require.NoError(t, store.Reassign(ctx, loc, stackID))

	got, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, stackID, got[0].StackID)

	// Reassigning the same locator replaces, not appends.
	other := uuid.New()
	require.NoError(t, store.Reassign(ctx, loc, other))
	got, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, other, got[0].StackID)
}

func TestStoreRemoveAndForget(t *testing.T) {
	ctx := context.Background()
	store := assign.Open(t.TempDir())

	locA := assign.Locator{Path: "a.txt", Fingerprint: 1}
	locB := assign.Locator{Path: "a.txt", Fingerprint: 2}
	locC := assign.Locator{Path: "b.txt", Fingerprint: 3}

	require.NoError(t, store.Reassign(ctx, locA, uuid.New()))
	require.NoError(t, store.Reassign(ctx, locB, uuid.New()))
	require.NoError(t, store.Reassign(ctx, locC, uuid.New()))

	require.NoError(t, store.Remove(ctx, locA))
	got, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	require.NoError(t, store.Forget(ctx, "a.txt"))
	got, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b.txt", got[0].Locator.Path)
}

func TestFingerprintStableAcrossLineShift(t *testing.T) {
	lines := []string{" context", "-removed", "+added", " context"}
	before := assign.NewLocator("a.txt", git.Hunk{Header: git.HunkHeader{OldStart: 1, OldLines: 3, NewStart: 1, NewLines: 3}, Lines: lines})
	after := assign.NewLocator("a.txt", git.Hunk{Header: git.HunkHeader{OldStart: 11, OldLines: 3, NewStart: 11, NewLines: 3}, Lines: lines})
	assert.Equal(t, before.Fingerprint, after.Fingerprint)
}

// TestResolveFallsBackToSelectedForChanges covers spec §4.5's first
// fallback tier: a hunk with no recorded or positional assignment goes
// to the fallback stack passed to Resolve.
func TestResolveFallsBackToSelectedForChanges(t *testing.T) {
	selected := uuid.New()
	diffs := []git.FileDiff{{
		Path: "new.txt",
		Hunks: []git.Hunk{{
			Header: git.HunkHeader{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 1},
			Lines:  []string{"+hello"},
		}},
	}}

	out := assign.Resolve(nil, diffs, selected)
	require.Len(t, out, 1)
	assert.Equal(t, selected, out[0].StackID)
}

// TestResolveLeavesUnassignedWithoutFallback covers the terminal case:
// no recorded assignment, no positional match, and no fallback
// (e.g. zero or more than one applied stack with nothing selected).
func TestResolveLeavesUnassignedWithoutFallback(t *testing.T) {
	diffs := []git.FileDiff{{
		Path: "new.txt",
		Hunks: []git.Hunk{{
			Header: git.HunkHeader{OldStart: 0, OldLines: 0, NewStart: 1, NewLines: 1},
			Lines:  []string{"+hello"},
		}},
	}}

	out := assign.Resolve(nil, diffs, uuid.Nil)
	require.Len(t, out, 1)
	assert.Equal(t, uuid.Nil, out[0].StackID)
}

// TestResolvePrefersExactMatchOverFallback checks that a recorded,
// exactly-matching assignment wins even when a fallback stack is set.
func TestResolvePrefersExactMatchOverFallback(t *testing.T) {
	header := git.HunkHeader{OldStart: 1, OldLines: 1, NewStart: 1, NewLines: 1}
	lines := []string{"-old", "+new"}
	loc := assign.NewLocator("a.txt", git.Hunk{Header: header, Lines: lines})
	recordedStack := uuid.New()
	selected := uuid.New()

	diffs := []git.FileDiff{{
		Path:  "a.txt",
		Hunks: []git.Hunk{{Header: header, Lines: lines}},
	}}

	out := assign.Resolve([]assign.Assignment{{Locator: loc, StackID: recordedStack}}, diffs, selected)
	require.Len(t, out, 1)
	assert.Equal(t, recordedStack, out[0].StackID)
}
