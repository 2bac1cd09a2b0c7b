package git_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/git/gittest"
)

func TestMergeBaseAndAncestor(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)

	c1 := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "first")
	c2 := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n2\n"}, "second")

	base, err := repo.MergeBase(ctx, c1, c2)
	require.NoError(t, err)
	assert.Equal(t, git.Hash(c1), base)

	assert.True(t, repo.IsAncestor(ctx, git.Hash(c1), git.Hash(c2)))
	assert.False(t, repo.IsAncestor(ctx, git.Hash(c2), git.Hash(c1)))
}

func TestHashIsZero(t *testing.T) {
	assert.True(t, git.ZeroHash.IsZero())
	assert.True(t, git.Hash("").IsZero())
	assert.True(t, git.Hash("0000000000000000000000000000000000000000").IsZero())
	assert.False(t, git.Hash("abc123").IsZero())
}
