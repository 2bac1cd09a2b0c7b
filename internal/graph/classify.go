package graph

import "go.gitbutler.dev/core/internal/git"

// classify assigns a CommitState to every commit in every segment,
// per spec §3. A commit is Integrated if it (or, via change-id, its
// rebased descendant) is reachable from the target ref; otherwise it is
// LocalAndRemote if it is reachable from the segment's remote-tracking
// branch; otherwise LocalOnly. Identity between a local commit and a
// target/remote commit is decided in three falling-back tiers: commit
// hash, then change-id trailer, then patch-id (spec §3/§4.2 "commit-id,
// change-id, patch-id" precedence) — patch-id catches a commit that was
// rebased onto a different base (changing its hash) by a tool that
// doesn't carry the change-id trailer, as long as its diff content is
// unchanged.
func (b *builder) classify() error {
	var targetHashes map[git.Hash]bool
	var targetChangeIDs map[string]git.Hash
	var targetPatchIDs map[string]git.Hash
	if b.target != "" {
		commits, err := b.repo.WalkCommits(b.ctx, string(b.target))
		if err != nil {
			return err
		}
		targetHashes = make(map[git.Hash]bool, len(commits))
		targetChangeIDs = make(map[string]git.Hash, len(commits))
		targetPatchIDs, err = b.patchIDIndex(commits)
		if err != nil {
			return err
		}
		for _, c := range commits {
			targetHashes[c.Hash] = true
			if c.ChangeID != "" {
				targetChangeIDs[c.ChangeID] = c.Hash
			}
		}
	}

	for i := range b.g.segments {
		seg := &b.g.segments[i]

		var remoteHashes map[git.Hash]bool
		var remoteChangeIDs map[string]git.Hash
		var remotePatchIDs map[string]git.Hash
		if seg.RemoteRefName != "" {
			stop := ""
			if seg.Base != "" {
				stop = string(seg.Base)
			}
			var commits []*git.CommitInfo
			var err error
			if stop != "" {
				commits, err = b.repo.WalkCommits(b.ctx, seg.RemoteRefName, stop)
			} else {
				commits, err = b.repo.WalkCommits(b.ctx, seg.RemoteRefName)
			}
			if err != nil {
				return err
			}
			remoteHashes = make(map[git.Hash]bool, len(commits))
			remoteChangeIDs = make(map[string]git.Hash, len(commits))
			remotePatchIDs, err = b.patchIDIndex(commits)
			if err != nil {
				return err
			}
			for _, c := range commits {
				remoteHashes[c.Hash] = true
				if c.ChangeID != "" {
					remoteChangeIDs[c.ChangeID] = c.Hash
				}
			}
		}

		for j := range seg.Commits {
			c := &seg.Commits[j]
			c.State = CommitState{Kind: LocalOnly}
			var patchID string

			if remoteHashes != nil {
				switch {
				case remoteHashes[c.Hash]:
					c.State = CommitState{Kind: LocalAndRemote, RemoteCommit: c.Hash}
				case c.ChangeID != "":
					if rc, ok := remoteChangeIDs[c.ChangeID]; ok {
						c.State = CommitState{Kind: LocalAndRemote, RemoteCommit: rc}
					}
				}
				if c.State.Kind != LocalAndRemote && len(remotePatchIDs) > 0 {
					if patchID == "" {
						patchID, _ = b.repo.PatchID(b.ctx, string(c.Hash))
					}
					if patchID != "" {
						if rc, ok := remotePatchIDs[patchID]; ok {
							c.State = CommitState{Kind: LocalAndRemote, RemoteCommit: rc}
						}
					}
				}
			}

			if targetHashes != nil {
				switch {
				case targetHashes[c.Hash]:
					c.State = CommitState{Kind: Integrated, ContainerCommit: c.Hash}
				case c.ChangeID != "":
					if tc, ok := targetChangeIDs[c.ChangeID]; ok {
						c.State = CommitState{Kind: Integrated, ContainerCommit: tc}
					}
				}
				if c.State.Kind != Integrated && len(targetPatchIDs) > 0 {
					if patchID == "" {
						patchID, _ = b.repo.PatchID(b.ctx, string(c.Hash))
					}
					if patchID != "" {
						if tc, ok := targetPatchIDs[patchID]; ok {
							c.State = CommitState{Kind: Integrated, ContainerCommit: tc}
						}
					}
				}
			}
		}
	}

	return nil
}

// patchIDIndex maps each commit's patch-id to its hash, for the
// patch-id fallback tier of classify. A commit whose patch-id can't be
// computed (e.g. a merge commit, which diff-tree --root won't reduce to
// a clean single-parent diff) is simply omitted from the index rather
// than failing the whole projection.
func (b *builder) patchIDIndex(commits []*git.CommitInfo) (map[string]git.Hash, error) {
	index := make(map[string]git.Hash, len(commits))
	for _, c := range commits {
		if len(c.Parents) > 1 {
			continue
		}
		id, err := b.repo.PatchID(b.ctx, string(c.Hash))
		if err != nil || id == "" {
			continue
		}
		index[id] = c.Hash
	}
	return index, nil
}
