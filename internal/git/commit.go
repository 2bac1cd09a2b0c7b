package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Signature holds authorship information for a commit.
type Signature struct {
	Name  string
	Email string
	// Time, if zero, lets Git use the current time.
	Time time.Time
}

func (s *Signature) appendEnv(typ string, env []string) []string {
	if s == nil {
		return env
	}
	env = append(env, "GIT_"+typ+"_NAME="+s.Name)
	env = append(env, "GIT_"+typ+"_EMAIL="+s.Email)
	if !s.Time.IsZero() {
		env = append(env, "GIT_"+typ+"_DATE="+s.Time.Format(time.RFC3339))
	}
	return env
}

// CommitTreeRequest is a request to create a new commit object directly
// from a tree, bypassing the index and working tree.
type CommitTreeRequest struct {
	Tree    Hash   // required
	Message string // required
	Parents []Hash

	Author, Committer *Signature
}

// CommitTree creates a new commit with the given tree as its snapshot,
// returning the new commit's hash.
func (r *Repository) CommitTree(ctx context.Context, req CommitTreeRequest) (Hash, error) {
	if req.Message == "" {
		return ZeroHash, errors.New("empty commit message")
	}
	if req.Committer == nil {
		req.Committer = req.Author
	}

	args := make([]string, 0, 2+2*len(req.Parents))
	args = append(args, "commit-tree")
	for _, parent := range req.Parents {
		args = append(args, "-p", parent.String())
	}
	args = append(args, req.Tree.String())

	var env []string
	env = req.Author.appendEnv("AUTHOR", env)
	env = req.Committer.appendEnv("COMMITTER", env)

	out, err := r.gitCmd(ctx, args...).
		AppendEnv(env...).
		StdinString(req.Message).
		OutputString(r.exec)
	if err != nil {
		return ZeroHash, fmt.Errorf("commit-tree: %w", err)
	}

	return Hash(out), nil
}

// CommitMessage is the subject and body of a commit.
type CommitMessage struct {
	Subject string
	Body    string
}

func (m CommitMessage) String() string {
	if m.Body != "" {
		return m.Subject + "\n\n" + m.Body
	}
	return m.Subject
}

// ParseCommitMessage splits a raw commit message into subject and body.
func ParseCommitMessage(raw string) CommitMessage {
	raw = strings.TrimSpace(raw)
	subject, body, _ := strings.Cut(raw, "\n")
	return CommitMessage{
		Subject: strings.TrimSpace(subject),
		Body:    strings.TrimSpace(body),
	}
}

// ReadCommitMessage returns the full message of a commit.
func (r *Repository) ReadCommitMessage(ctx context.Context, commitish string) (CommitMessage, error) {
	out, err := r.gitCmd(ctx, "show", "--no-patch", "--format=%B", commitish).OutputString(r.exec)
	if err != nil {
		return CommitMessage{}, fmt.Errorf("git show: %w", err)
	}
	return ParseCommitMessage(out), nil
}

// CommitInfo is the parsed information about a single commit, as needed
// by the commit-graph projection.
type CommitInfo struct {
	Hash      Hash
	Parents   []Hash
	Author    Signature
	Committer Signature
	Message   CommitMessage
	ChangeID  string // from the "change-id" trailer, if present
}

const commitLogFormat = "%H%x00%P%x00%an%x00%ae%x00%aI%x00%cn%x00%ce%x00%cI%x00%B%x00"

// ReadCommit reads detailed information about a single commit.
func (r *Repository) ReadCommit(ctx context.Context, commitish string) (*CommitInfo, error) {
	out, err := r.gitCmd(ctx, "show", "--no-patch", "--format="+commitLogFormat, commitish).
		OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("git show: %w", err)
	}
	return parseCommitLogEntry(out)
}

// WalkCommits streams CommitInfo for every commit reachable from start
// and not from any of the stop refs (rev-list range syntax).
func (r *Repository) WalkCommits(ctx context.Context, start string, stop ...string) ([]*CommitInfo, error) {
	args := []string{"rev-list", "--format=" + commitLogFormat, "-z", start}
	if len(stop) > 0 {
		args = append(args, "--not")
		args = append(args, stop...)
	}
	args = append(args, "--")

	cmd := r.gitCmd(ctx, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("pipe: %w", err)
	}
	if err := cmd.Start(r.exec); err != nil {
		return nil, fmt.Errorf("start rev-list: %w", err)
	}

	scanner := newScanner(stdout, splitNullByte)
	var commits []*CommitInfo
	for scanner.Scan() {
		raw := scanner.Text()
		// rev-list --format prefixes each entry with "commit <hash>\n".
		if _, rest, ok := strings.Cut(raw, "\n"); ok {
			raw = rest
		}
		raw = strings.TrimSuffix(raw, "\n")
		if strings.TrimSpace(raw) == "" {
			continue
		}

		info, err := parseCommitLogEntry(raw)
		if err != nil {
			continue
		}
		commits = append(commits, info)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	if err := cmd.Wait(r.exec); err != nil {
		return nil, fmt.Errorf("rev-list: %w", err)
	}

	return commits, nil
}

func parseCommitLogEntry(raw string) (*CommitInfo, error) {
	fields := strings.Split(raw, "\x00")
	if len(fields) < 8 {
		return nil, fmt.Errorf("malformed commit log entry: %d fields", len(fields))
	}

	hash := Hash(fields[0])
	var parents []Hash
	for _, p := range strings.Fields(fields[1]) {
		parents = append(parents, Hash(p))
	}

	authorTime, _ := time.Parse(time.RFC3339, fields[4])
	committerTime, _ := time.Parse(time.RFC3339, fields[7])

	body := strings.Join(fields[8:], "\x00")
	msg := ParseCommitMessage(body)

	return &CommitInfo{
		Hash:      hash,
		Parents:   parents,
		Author:    Signature{Name: fields[2], Email: fields[3], Time: authorTime},
		Committer: Signature{Name: fields[5], Email: fields[6], Time: committerTime},
		Message:   msg,
		ChangeID:  extractTrailer(body, "change-id"),
	}, nil
}

// extractTrailer returns the value of a "key: value" style trailer from
// a raw commit message body, matching the last occurrence (Git trailers
// may be repeated; the last wins).
func extractTrailer(body, key string) string {
	prefix := key + ": "
	var value string
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.ToLower(line), strings.ToLower(prefix)) {
			value = strings.TrimSpace(line[len(prefix):])
		}
	}
	return value
}
