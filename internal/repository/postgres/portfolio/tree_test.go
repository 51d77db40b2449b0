package portfolio

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"portfolio/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func TestBuildFolderTree(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rows := []folderRow{
		{ID: "root", Name: "Portfolio", DocumentCount: 1},
		{ID: "teaching", ParentID: ptr("root"), Name: "Teaching"},
		{ID: "syllabi", ParentID: ptr("teaching"), Name: "Syllabi", DocumentCount: 3},
		{ID: "research", ParentID: ptr("root"), Name: "Research"},
		{ID: "orphan", ParentID: ptr("gone"), Name: "Orphan"},
	}

	root, err := buildFolderTree("p1", rows, logger)
	require.NoError(t, err)
	assert.Equal(t, "root", root.ID)
	require.Len(t, root.Children, 2)
	assert.Equal(t, "teaching", root.Children[0].ID)
	assert.Equal(t, "research", root.Children[1].ID)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, 3, root.Children[0].Children[0].DocumentCount)
	assert.Empty(t, root.Children[1].Children)
}

func TestBuildFolderTree_Errors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := buildFolderTree("p1", nil, logger)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = buildFolderTree("p1", []folderRow{{ID: "a"}, {ID: "b"}}, logger)
	assert.ErrorContains(t, err, "two root folders")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = buildFolderTree("p1", []folderRow{{ID: "a", ParentID: ptr("b")}}, logger)
	assert.ErrorContains(t, err, "no root folder")
	assert.ErrorIs(t, err, domain.ErrValidation)

	// A corrupt tree is not a transient failure
	var netErr *domain.NetworkError
	assert.False(t, errors.As(domain.AsNetworkError("get_structure", err), &netErr))
}
