package graph

import "errors"

// ErrNoEntrypoint is returned by Project when the requested entrypoint
// does not resolve to a commit.
var ErrNoEntrypoint = errors.New("graph: entrypoint does not resolve to a commit")

// DefaultHardLimit bounds how many commits a single segment walk will
// traverse before giving up and marking the segment Partial (spec §4.2
// walk rule 5: "a commit-graph that never terminates is a defect of the
// host repository, not of the projection").
const DefaultHardLimit = 20000
