package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/graph"
	"go.gitbutler.dev/core/internal/meta"
)

// Options configures a workspace load.
type Options struct {
	RemotePrefix string
	HardLimit    int
}

// LoadManaged builds a Workspace from a recorded WorkspaceRecord: it
// synthesizes a workspace commit merging every applied stack's tip
// (spec §4.3 "the workspace commit is the merge of all applied stack
// tips, recomputed from scratch on every load"), then projects the
// commit graph rooted at that synthetic commit.
func LoadManaged(ctx context.Context, repo *git.Repository, store *meta.Store, id uuid.UUID, opts Options) (*Workspace, error) {
	record, err := store.GetWorkspace(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load workspace record: %w", err)
	}

	stacks := make([]Stack, 0, len(record.StackIDs))
	tips := make([]git.Hash, 0, len(record.StackIDs))
	for _, stackID := range record.StackIDs {
		branches, err := store.IterBranchesInStack(ctx, stackID)
		if err != nil {
			return nil, fmt.Errorf("load stack %s: %w", stackID, err)
		}
		if len(branches) == 0 {
			continue
		}

		stackBranches := make([]StackBranch, 0, len(branches))
		for _, b := range branches {
			stackBranches = append(stackBranches, StackBranch{Name: b.Name, ReviewURL: b.ReviewURL, SegmentID: graph.NoID})
		}
		stacks = append(stacks, Stack{ID: stackID, Branches: stackBranches})

		tip, err := repo.PeelToCommit(ctx, "refs/heads/"+branches[len(branches)-1].Name)
		if err != nil {
			return nil, fmt.Errorf("resolve tip of stack %s: %w", stackID, err)
		}
		tips = append(tips, tip)
	}

	entrypoint, err := synthesizeWorkspaceCommit(ctx, repo, tips)
	if err != nil {
		return nil, fmt.Errorf("synthesize workspace commit: %w", err)
	}

	g, err := graph.Project(ctx, repo, graph.ProjectOptions{
		Entrypoint:   string(entrypoint),
		Target:       record.TargetRef,
		RemotePrefix: opts.RemotePrefix,
		HardLimit:    opts.HardLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("project graph: %w", err)
	}
	g.Segment(g.Entrypoint()).IsWorkspaceSegment = true

	resolveSegments(g, stacks)
	derivePushStatuses(g, record.TargetRef, stacks)

	return &Workspace{
		ID:                record.ID,
		Managed:           true,
		TargetRef:         record.TargetRef,
		Stacks:            stacks,
		Graph:             g,
		EntrypointSegment: g.Entrypoint(),
	}, nil
}

// LoadAdHoc builds a Workspace for a single checked-out branch with no
// workspace record (spec §4.3 "ad-hoc workspace"): there is exactly one
// stack, and no synthetic merge commit — the branch's own tip is the
// entrypoint.
func LoadAdHoc(ctx context.Context, repo *git.Repository, branch, targetRef string, opts Options) (*Workspace, error) {
	g, err := graph.Project(ctx, repo, graph.ProjectOptions{
		Entrypoint:   "refs/heads/" + branch,
		Target:       targetRef,
		RemotePrefix: opts.RemotePrefix,
		HardLimit:    opts.HardLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("project graph: %w", err)
	}

	stacks := []Stack{{
		ID:       uuid.Nil,
		Branches: []StackBranch{{Name: branch, SegmentID: g.Entrypoint()}},
	}}
	derivePushStatuses(g, targetRef, stacks)

	return &Workspace{
		Managed:           false,
		TargetRef:         targetRef,
		Stacks:            stacks,
		Graph:             g,
		EntrypointSegment: g.Entrypoint(),
	}, nil
}

// synthesizeWorkspaceCommit merges every stack tip into one tree and
// commits it with all tips as parents. With zero tips it returns an
// error; with one tip it returns that tip unchanged (a one-stack
// workspace needs no synthetic merge).
func synthesizeWorkspaceCommit(ctx context.Context, repo *git.Repository, tips []git.Hash) (git.Hash, error) {
	if len(tips) == 0 {
		return git.ZeroHash, fmt.Errorf("workspace has no applied stacks with branches")
	}
	if len(tips) == 1 {
		return tips[0], nil
	}

	// ours starts as a commit-ish (the first tip) and becomes a bare
	// tree hash after the first merge; MergeTree accepts either.
	ours := string(tips[0])
	for _, next := range tips[1:] {
		merged, err := repo.MergeTree(ctx, git.MergeTreeRequest{
			Ours:   ours,
			Theirs: string(next),
		})
		var conflictErr *git.MergeTreeConflictError
		if merged == git.ZeroHash && err != nil && !errors.As(err, &conflictErr) {
			return git.ZeroHash, fmt.Errorf("merge-tree: %w", err)
		}
		ours = string(merged)
	}

	commit, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:    git.Hash(ours),
		Message: "gitbutler workspace commit",
		Parents: tips,
	})
	if err != nil {
		return git.ZeroHash, fmt.Errorf("commit workspace merge: %w", err)
	}
	return commit, nil
}

func resolveSegments(g *graph.Graph, stacks []Stack) {
	for si := range stacks {
		for bi := range stacks[si].Branches {
			if id, ok := g.Lookup("refs/heads/" + stacks[si].Branches[bi].Name); ok {
				stacks[si].Branches[bi].SegmentID = id
			}
		}
	}
}
