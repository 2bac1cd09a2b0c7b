package graph

import (
	"iter"

	"go.abhg.dev/container/ring"
	"go.gitbutler.dev/core/internal/git"
)

// Graph is an arena-indexed view of a repository's commit graph, cut
// into segments by Project (spec §4.2). Segments reference each other
// by ID rather than by pointer so the whole graph can be rebuilt
// cheaply whenever the underlying repository changes (spec §4.4
// "recompute on demand, never patch in place").
type Graph struct {
	segments   []Segment
	byRef      map[string]ID
	byCommit   map[git.Hash]ID
	entrypoint ID
	target     string
}

func newGraph() *Graph {
	return &Graph{
		byRef:      make(map[string]ID),
		byCommit:   make(map[git.Hash]ID),
		entrypoint: NoID,
	}
}

// reserve appends a zero-value segment and returns its ID, so that
// recursive construction can refer to an ID before the segment's
// contents are known.
func (g *Graph) reserve() ID {
	id := ID(len(g.segments))
	g.segments = append(g.segments, Segment{id: id, BaseSegment: NoID, Sibling: NoID})
	return id
}

func (g *Graph) set(id ID, seg Segment) {
	seg.id = id
	g.segments[id] = seg
}

// Segment returns the segment with the given ID. It panics if id is out
// of range; callers that received id from this Graph never need to
// guard against that.
func (g *Graph) Segment(id ID) *Segment {
	return &g.segments[id]
}

// Entrypoint returns the ID of the segment the projection was rooted
// at.
func (g *Graph) Entrypoint() ID {
	return g.entrypoint
}

// Target reports the ref name used as the integration target for
// classification, or "" if none was configured.
func (g *Graph) Target() string {
	return g.target
}

// Len reports the number of segments in the graph.
func (g *Graph) Len() int {
	return len(g.segments)
}

// Segments iterates over every segment in the graph, in construction
// order (entrypoint first, then its bases and merge parents,
// depth-first).
func (g *Graph) Segments() iter.Seq[*Segment] {
	return func(yield func(*Segment) bool) {
		for i := range g.segments {
			if !yield(&g.segments[i]) {
				return
			}
		}
	}
}

// Lookup returns the segment whose tip is named by the given
// fully-qualified ref, if any.
func (g *Graph) Lookup(refName string) (ID, bool) {
	id, ok := g.byRef[refName]
	return id, ok
}

// SegmentContaining returns the segment that owns the given commit, if
// the commit was visited during projection.
func (g *Graph) SegmentContaining(hash git.Hash) (ID, bool) {
	id, ok := g.byCommit[hash]
	return id, ok
}

// Bases returns the segment's direct predecessors in the walk: its
// first-parent base segment (if any) followed by any merge-parent
// segments.
func (g *Graph) Bases(id ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		seg := &g.segments[id]
		if seg.BaseSegment != NoID {
			if !yield(seg.BaseSegment) {
				return
			}
		}
		for _, m := range seg.MergeParents {
			if !yield(m) {
				return
			}
		}
	}
}

// Ancestors returns every segment reachable downstack from id,
// including id itself, via breadth-first traversal over Bases. Each
// segment is yielded at most once even if reachable through multiple
// paths (e.g. two branches sharing a common base).
func (g *Graph) Ancestors(id ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		seen := make(map[ID]bool)
		var q ring.Q[ID]
		q.Push(id)
		seen[id] = true
		for !q.Empty() {
			cur := q.Pop()
			if !yield(cur) {
				return
			}
			for base := range g.Bases(cur) {
				if !seen[base] {
					seen[base] = true
					q.Push(base)
				}
			}
		}
	}
}

// Tips returns every segment that no other segment points to via
// BaseSegment or MergeParents: the "topmost" segments of the projected
// graph.
func (g *Graph) Tips() iter.Seq[ID] {
	return func(yield func(ID) bool) {
		referenced := make(map[ID]bool, len(g.segments))
		for i := range g.segments {
			for base := range g.Bases(ID(i)) {
				referenced[base] = true
			}
		}
		for i := range g.segments {
			if !referenced[ID(i)] {
				if !yield(ID(i)) {
					return
				}
			}
		}
	}
}
