package assign

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/meta"
)

// Assignment is one hunk's current commit-target assignment.
type Assignment struct {
	Locator Locator
	StackID uuid.UUID // zero value means "unassigned"
}

type assignmentRecord struct {
	Path        string    `toml:"path"`
	Fingerprint uint64    `toml:"fingerprint"`
	OldStart    int       `toml:"old_start"`
	OldLines    int       `toml:"old_lines"`
	NewStart    int       `toml:"new_start"`
	NewLines    int       `toml:"new_lines"`
	StackID     uuid.UUID `toml:"stack_id"`
}

type assignmentFile struct {
	Assignments []assignmentRecord `toml:"assignment"`
}

// Store persists worktree hunk assignments in a single TOML file
// (reusing meta.TOMLBackend's single-file semantics rather than its
// directory-per-key layout, since assignments are read and rewritten as
// one atomic set on every worktree scan).
type Store struct {
	path string
}

// Open opens (creating if necessary) the assignment store rooted at
// gitDir, typically "<repo>/.git/gitbutler/assignments.toml".
func Open(gitDir string) *Store {
	return &Store{path: filepath.Join(gitDir, "gitbutler", "assignments.toml")}
}

// List returns every currently recorded assignment.
func (s *Store) List(ctx context.Context) ([]Assignment, error) {
	backend, err := meta.NewTOMLBackend(filepath.Dir(s.path))
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	e, err := backend.Get(ctx, "assignments")
	if err == meta.ErrNotExist {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var f assignmentFile
	if _, err := toml.Decode(string(e.Data), &f); err != nil {
		return nil, fmt.Errorf("decode assignments: %w", err)
	}

	out := make([]Assignment, 0, len(f.Assignments))
	for _, r := range f.Assignments {
		out = append(out, Assignment{
			Locator: Locator{
				Path:        r.Path,
				Fingerprint: r.Fingerprint,
				Header: git.HunkHeader{
					OldStart: r.OldStart, OldLines: r.OldLines,
					NewStart: r.NewStart, NewLines: r.NewLines,
				},
			},
			StackID: r.StackID,
		})
	}
	return out, nil
}

func (s *Store) save(ctx context.Context, assignments []Assignment) error {
	backend, err := meta.NewTOMLBackend(filepath.Dir(s.path))
	if err != nil {
		return err
	}
	defer backend.Close()

	f := assignmentFile{Assignments: make([]assignmentRecord, 0, len(assignments))}
	for _, a := range assignments {
		f.Assignments = append(f.Assignments, assignmentRecord{
			Path:        a.Locator.Path,
			Fingerprint: a.Locator.Fingerprint,
			OldStart:    a.Locator.Header.OldStart,
			OldLines:    a.Locator.Header.OldLines,
			NewStart:    a.Locator.Header.NewStart,
			NewLines:    a.Locator.Header.NewLines,
			StackID:     a.StackID,
		})
	}
	sort.Slice(f.Assignments, func(i, j int) bool {
		if f.Assignments[i].Path != f.Assignments[j].Path {
			return f.Assignments[i].Path < f.Assignments[j].Path
		}
		return f.Assignments[i].NewStart < f.Assignments[j].NewStart
	})

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("encode assignments: %w", err)
	}
	return backend.Put(ctx, "assignments", buf.Bytes())
}

// Reassign sets (or clears, with a zero uuid.UUID) the stack a hunk is
// assigned to, replacing any existing assignment for the same locator.
func (s *Store) Reassign(ctx context.Context, loc Locator, stackID uuid.UUID) error {
	existing, err := s.List(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range existing {
		if existing[i].Locator.Matches(loc) {
			existing[i].StackID = stackID
			replaced = true
			break
		}
	}
	if !replaced {
		existing = append(existing, Assignment{Locator: loc, StackID: stackID})
	}
	return s.save(ctx, existing)
}

// Remove deletes a hunk's assignment entirely (distinct from Reassign
// to the zero stack: Remove forgets the locator, Reassign to zero keeps
// it recorded as explicitly unassigned).
func (s *Store) Remove(ctx context.Context, loc Locator) error {
	existing, err := s.List(ctx)
	if err != nil {
		return err
	}

	out := existing[:0]
	for _, a := range existing {
		if !a.Locator.Matches(loc) {
			out = append(out, a)
		}
	}
	return s.save(ctx, out)
}

// Forget removes every assignment for a path, used when a file is
// deleted from the working tree.
func (s *Store) Forget(ctx context.Context, path string) error {
	existing, err := s.List(ctx)
	if err != nil {
		return err
	}

	out := existing[:0]
	for _, a := range existing {
		if a.Locator.Path != path {
			out = append(out, a)
		}
	}
	return s.save(ctx, out)
}

// Resolve maps the hunks of a fresh worktree diff onto recorded
// assignments, falling back first to positional proximity and then to
// fallback when no exact content fingerprint survives (spec §4.5
// "fallback assignment"): unmatched hunks in a previously-assigned file
// are assigned to whichever recorded locator in that file has the
// closest overlapping range; hunks with no recorded assignment at all
// (or no positional match either) are assigned to fallback — the stack
// marked selected-for-changes, or the single applied stack if there is
// exactly one — or left unassigned if fallback is the zero UUID.
func Resolve(recorded []Assignment, diffs []git.FileDiff, fallback uuid.UUID) []Assignment {
	byPath := make(map[string][]Assignment)
	for _, a := range recorded {
		byPath[a.Locator.Path] = append(byPath[a.Locator.Path], a)
	}

	var out []Assignment
	for _, fd := range diffs {
		candidates := byPath[fd.Path]
		for _, h := range fd.Hunks {
			loc := NewLocator(fd.Path, h)
			stackID := resolveOne(loc, candidates)
			if stackID == uuid.Nil {
				stackID = fallback
			}
			out = append(out, Assignment{Locator: loc, StackID: stackID})
		}
	}
	return out
}

func resolveOne(loc Locator, candidates []Assignment) uuid.UUID {
	for _, c := range candidates {
		if c.Locator.Matches(loc) {
			return c.StackID
		}
	}

	best := -1
	bestDist := 0
	for i, c := range candidates {
		if !overlaps(loc.Header, c.Locator.Header) {
			continue
		}
		d := distance(loc.Header, c.Locator.Header)
		if best == -1 || d < bestDist {
			best, bestDist = i, d
		}
	}
	if best == -1 {
		return uuid.UUID{}
	}
	return candidates[best].StackID
}
