package portfolio

import (
	"fmt"
	"log/slog"

	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"
)

// folderRow is one folder as stored, with its live document count.
type folderRow struct {
	ID            string
	ParentID      *string
	Name          string
	DocumentCount int
}

// buildFolderTree nests a flat folder list into the structure snapshot. Rows must
// already be in display order; children keep that order.
func buildFolderTree(portfolioID string, rows []folderRow, logger *slog.Logger) (*models.FolderNode, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, domain.ErrNotFound)
	}

	// First pass: create all folder nodes
	nodes := make(map[string]*models.FolderNode, len(rows))
	for _, row := range rows {
		nodes[row.ID] = &models.FolderNode{
			ID:            row.ID,
			Name:          row.Name,
			ParentID:      row.ParentID,
			Children:      []*models.FolderNode{},
			DocumentCount: row.DocumentCount,
		}
	}

	// Second pass: nest folders and find the root
	var root *models.FolderNode
	for _, row := range rows {
		node := nodes[row.ID]
		if row.ParentID == nil {
			if root != nil {
				return nil, fmt.Errorf("%w: portfolio %s has two root folders (%s, %s)", domain.ErrValidation, portfolioID, root.ID, row.ID)
			}
			root = node
			continue
		}
		parent, ok := nodes[*row.ParentID]
		if !ok {
			logger.Warn("skipping orphan folder",
				"portfolio_id", portfolioID,
				"folder_id", row.ID,
				"parent_id", *row.ParentID,
			)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	if root == nil {
		return nil, fmt.Errorf("%w: portfolio %s has no root folder", domain.ErrValidation, portfolioID)
	}
	return root, nil
}
