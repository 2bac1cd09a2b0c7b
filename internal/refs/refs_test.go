package refs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/coreerr"
	"go.gitbutler.dev/core/internal/git/gittest"
	"go.gitbutler.dev/core/internal/meta"
	"go.gitbutler.dev/core/internal/refs"
)

func TestValidateNameRejectsTargetRef(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	base := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "base")
	gittest.Branch(t, repo, "main", base)

	store, err := meta.Open(repo.GitDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	checker := refs.NewChecker(repo, store)

	err = checker.ValidateName(ctx, "main", "main")
	require.Error(t, err)
	kind, ok := coreerr.Of(err)
	require.True(t, ok)
	assert.Equal(t, coreerr.KindValidationFailed, kind)
}

func TestValidateNameAllowsOtherNamesAgainstTargetRef(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	base := gittest.Commit(t, repo, map[string]string{"a.txt": "1\n"}, "base")
	gittest.Branch(t, repo, "main", base)

	store, err := meta.Open(repo.GitDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	checker := refs.NewChecker(repo, store)

	require.NoError(t, checker.ValidateName(ctx, "feature", "main"))
}
