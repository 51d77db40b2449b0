package postgres

import (
	"context"
	"fmt"

	"portfolio/internal/domain/repositories"
)

// RunSchema creates the portfolio tables and indexes if they don't exist.
func RunSchema(ctx context.Context, db repositories.DBTX, tables *TableNames, tablePrefix string) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS "pgcrypto"`,

		`CREATE TABLE IF NOT EXISTS ` + tables.Portfolios + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			title TEXT NOT NULL,
			owner_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.Folders + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			portfolio_id UUID NOT NULL REFERENCES ` + tables.Portfolios + `(id) ON DELETE CASCADE,
			parent_id UUID REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			position INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(portfolio_id, parent_id, name)
		)`,

		`CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			folder_id UUID NOT NULL REFERENCES ` + tables.Folders + `(id) ON DELETE CASCADE,
			original_name VARCHAR(255) NOT NULL,
			format VARCHAR(16) NOT NULL,
			size_bytes BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending'
				CHECK (status IN ('pending', 'in_review', 'approved', 'rejected', 'needs_correction')),
			version INTEGER NOT NULL DEFAULT 1 CHECK (version > 0),
			content BYTEA,
			uploaded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ,
			UNIQUE(folder_id, original_name, version)
		)`,

		// One root folder per portfolio
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_root_unique ON ` + tables.Folders + `(portfolio_id) WHERE parent_id IS NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `folders_portfolio_parent ON ` + tables.Folders + `(portfolio_id, parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_folder ON ` + tables.Documents + `(folder_id) WHERE deleted_at IS NULL`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("run schema: %w", err)
		}
	}
	return nil
}

// DropAllTables drops the portfolio tables, children first.
func DropAllTables(ctx context.Context, db repositories.DBTX, tables *TableNames) error {
	for _, table := range []string{tables.Documents, tables.Folders, tables.Portfolios} {
		if _, err := db.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	return nil
}
