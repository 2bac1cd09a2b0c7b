package graph

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/git"
)

// ProjectOptions configures a single projection run.
type ProjectOptions struct {
	// Entrypoint names the commit-ish the projection is rooted at
	// (typically the workspace commit, or a single branch tip when
	// operating outside a managed workspace). Required.
	Entrypoint string

	// Target, if set, is the ref name treated as the integration
	// target: commits reachable from it classify as Integrated, and a
	// segment's first-parent walk stops upon reaching it (spec §3, §4.2
	// walk rule 4).
	Target string

	// RemotePrefix is the remote whose tracking branches are consulted
	// for LocalAndRemote classification (e.g. "origin"). Optional.
	RemotePrefix string

	// HardLimit bounds how many commits any single segment walk will
	// traverse. Zero selects DefaultHardLimit.
	HardLimit int
}

// Project walks the repository from opts.Entrypoint and builds a
// classified, segmented view of its commit graph (spec §4.2).
func Project(ctx context.Context, repo *git.Repository, opts ProjectOptions) (*Graph, error) {
	if opts.HardLimit <= 0 {
		opts.HardLimit = DefaultHardLimit
	}

	entrypointHash, err := repo.PeelToCommit(ctx, opts.Entrypoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNoEntrypoint, opts.Entrypoint, err)
	}

	localBranches, err := repo.LocalBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("list local branches: %w", err)
	}
	refByHash := make(map[git.Hash][]string, len(localBranches))
	for _, b := range localBranches {
		ref := "refs/heads/" + b.Name
		refByHash[b.Head] = append(refByHash[b.Head], ref)
	}

	var targetHash git.Hash
	if opts.Target != "" {
		targetHash, err = repo.PeelToCommit(ctx, opts.Target)
		if err != nil {
			return nil, fmt.Errorf("resolve target %s: %w", opts.Target, err)
		}
	}

	g := newGraph()
	g.target = opts.Target

	b := &builder{
		ctx:          ctx,
		repo:         repo,
		g:            g,
		refByHash:    refByHash,
		target:       targetHash,
		remotePrefix: opts.RemotePrefix,
		limit:        opts.HardLimit,
		visited:      make(map[git.Hash]ID),
	}

	entrypointRef := ""
	if refs := refByHash[entrypointHash]; len(refs) > 0 {
		entrypointRef = refs[0]
	}

	id, err := b.walk(entrypointHash, entrypointRef)
	if err != nil {
		return nil, err
	}
	g.entrypoint = id
	g.segments[id].IsEntrypoint = true

	if err := b.classify(); err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	return g, nil
}

type builder struct {
	ctx       context.Context
	repo      *git.Repository
	g         *Graph
	refByHash    map[git.Hash][]string
	target       git.Hash
	remotePrefix string
	limit        int
	visited      map[git.Hash]ID
}

// remoteRefFor derives the remote-tracking ref associated with a local
// branch ref, e.g. "refs/heads/feature" -> "refs/remotes/origin/feature"
// when the builder's remote prefix is "origin". Returns "" if no remote
// prefix is configured or refName does not name a local branch.
func (b *builder) remoteRefFor(refName string) string {
	const heads = "refs/heads/"
	if b.remotePrefix == "" || len(refName) <= len(heads) || refName[:len(heads)] != heads {
		return ""
	}
	return "refs/remotes/" + b.remotePrefix + "/" + refName[len(heads):]
}

// walk builds (or, for a commit already visited, links to) the segment
// beginning at start. refName is the ref naming the segment's tip, or
// "" for an anonymous segment (e.g. one side of a merge with no branch
// pointing at it).
func (b *builder) walk(start git.Hash, refName string) (ID, error) {
	if existing, ok := b.visited[start]; ok {
		return b.joinExisting(existing, refName), nil
	}
	if err := b.ctx.Err(); err != nil {
		return NoID, err
	}

	id := b.g.reserve()
	b.visited[start] = id
	if refName != "" {
		b.g.byRef[refName] = id
	}

	seg := Segment{RefName: refName, RemoteRefName: b.remoteRefFor(refName), BaseSegment: NoID, Sibling: NoID}
	cur := start
	depth := 0

	for {
		if depth >= b.limit {
			seg.Partial = true
			break
		}

		if id2, ok := b.visited[cur]; ok && cur != start {
			seg.Base = cur
			seg.BaseSegment = id2
			break
		}

		info, err := b.repo.ReadCommit(b.ctx, string(cur))
		if err != nil {
			return NoID, fmt.Errorf("read commit %s: %w", cur.Short(), err)
		}

		seg.Commits = append(seg.Commits, Commit{
			Hash:      info.Hash,
			Parents:   info.Parents,
			ChangeID:  info.ChangeID,
			Message:   info.Message,
			Author:    info.Author,
			Committer: info.Committer,
		})
		b.visited[cur] = id
		b.g.byCommit[cur] = id

		if b.target != "" && cur == b.target {
			break
		}
		if len(info.Parents) == 0 {
			break
		}

		first := info.Parents[0]
		if extraRefs, ok := b.refByHash[first]; ok && len(extraRefs) > 0 && first != start {
			childID, err := b.walk(first, extraRefs[0])
			if err != nil {
				return NoID, err
			}
			seg.Base = first
			seg.BaseSegment = childID
			for _, extra := range info.Parents[1:] {
				mid, err := b.walk(extra, b.refNameFor(extra))
				if err != nil {
					return NoID, err
				}
				seg.MergeParents = append(seg.MergeParents, mid)
			}
			break
		}

		for _, extra := range info.Parents[1:] {
			mid, err := b.walk(extra, b.refNameFor(extra))
			if err != nil {
				return NoID, err
			}
			seg.MergeParents = append(seg.MergeParents, mid)
		}

		cur = first
		depth++
	}

	b.g.set(id, seg)
	return id, nil
}

func (b *builder) refNameFor(hash git.Hash) string {
	if refs := b.refByHash[hash]; len(refs) > 0 {
		return refs[0]
	}
	return ""
}

// joinExisting is called when a walk reaches a commit already owned by
// another segment. If the caller supplies a distinct ref name for the
// exact same tip commit, a sibling segment is recorded rather than
// duplicating the commit chain (spec §3 invariant: never duplicate
// commits across segments of the same stack).
func (b *builder) joinExisting(existing ID, refName string) ID {
	seg := b.g.Segment(existing)
	if refName == "" || refName == seg.RefName {
		return existing
	}
	if seg.RefName == "" {
		seg.RefName = refName
		seg.RemoteRefName = b.remoteRefFor(refName)
		b.g.byRef[refName] = existing
		return existing
	}
	if seg.TipHash() != b.firstCommitOf(existing) {
		return existing
	}

	sibID := b.g.reserve()
	b.g.set(sibID, Segment{
		RefName:     refName,
		Commits:     seg.Commits,
		Base:        seg.Base,
		BaseSegment: seg.BaseSegment,
		Sibling:     existing,
	})
	seg.Sibling = sibID
	b.g.byRef[refName] = sibID
	return sibID
}

func (b *builder) firstCommitOf(id ID) git.Hash {
	return b.g.Segment(id).TipHash()
}
