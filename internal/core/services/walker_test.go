package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-code/internal/core/domain"
	"github.com/custodia-labs/sercha-code/internal/logger"
	"github.com/custodia-labs/sercha-code/internal/pathmatch"
)

func TestWalkWorkspace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.go", "")
	writeFile(t, root, "a/z.go", "")
	writeFile(t, root, "a/readme.txt", "")
	writeFile(t, root, "vendor/dep.go", "")
	writeFile(t, root, "logo.png", "")
	require.NoError(t, os.Symlink(filepath.Join(root, "b.go"), filepath.Join(root, "link.go")))

	matcher, err := pathmatch.New([]string{"**/*.go"}, []string{"vendor/**"})
	require.NoError(t, err)

	files, err := walkWorkspace(context.Background(), root, "", matcher, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"a/z.go", "b.go"}, files)

	files, err = walkWorkspace(context.Background(), root, "a", matcher, logger.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"a/z.go"}, files)

	_, err = walkWorkspace(context.Background(), root, "b.go", matcher, logger.Nop())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestWalkWorkspace_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "")

	matcher, err := pathmatch.New([]string{"**/*.go"}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = walkWorkspace(ctx, root, "", matcher, logger.Nop())
	assert.True(t, isCancellation(err))
}

func TestRelativeTo(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "repo")

	abs, rel, err := relativeTo(root, "pkg/a.go")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "pkg", "a.go"), abs)
	assert.Equal(t, "pkg/a.go", rel)

	_, rel, err = relativeTo(root, filepath.Join(root, "b.go"))
	require.NoError(t, err)
	assert.Equal(t, "b.go", rel)

	for _, p := range []string{"../other/a.go", filepath.Join(string(filepath.Separator), "etc", "hosts"), root} {
		_, _, err := relativeTo(root, p)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, p)
	}
}

func TestNormaliseFolder(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{".", ""},
		{"/", ""},
		{"pkg", "pkg"},
		{"pkg/sub/", "pkg/sub"},
		{"pkg/../cmd", "cmd"},
		{" ./pkg ", "pkg"},
	}
	for _, tt := range tests {
		got, err := normaliseFolder(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := normaliseFolder("../up")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResolveWorkspaceRoot(t *testing.T) {
	_, err := resolveWorkspaceRoot("  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	root := t.TempDir()
	got, err := resolveWorkspaceRoot(root + string(filepath.Separator))
	require.NoError(t, err)
	assert.Equal(t, root, got)
}
