package portfolio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"
	"portfolio/internal/domain/repositories"
	portfolioSvc "portfolio/internal/domain/services/portfolio"
	"portfolio/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory implements the DirectoryService over the portfolio tables
type PostgresDirectory struct {
	pool      *pgxpool.Pool
	tables    *postgres.TableNames
	txManager repositories.TransactionManager
	logger    *slog.Logger
	now       func() time.Time
}

// NewDirectory creates a Postgres-backed directory service
func NewDirectory(config *postgres.RepositoryConfig, txManager repositories.TransactionManager) portfolioSvc.DirectoryService {
	return &PostgresDirectory{
		pool:      config.Pool,
		tables:    config.Tables,
		txManager: txManager,
		logger:    config.Logger,
		now:       time.Now,
	}
}

// GetStructure loads every folder of the portfolio with its document count and nests them
func (r *PostgresDirectory) GetStructure(ctx context.Context, portfolioID string) (*models.FolderNode, error) {
	query := fmt.Sprintf(`
		SELECT f.id, f.parent_id, f.name, COUNT(d.id)
		FROM %s f
		LEFT JOIN %s d ON d.folder_id = f.id AND d.deleted_at IS NULL
		WHERE f.portfolio_id = $1
		GROUP BY f.id, f.parent_id, f.name, f.position
		ORDER BY f.position ASC, f.name ASC
	`, r.tables.Folders, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, r.translate(err, "portfolio", portfolioID, "get structure")
	}
	defer rows.Close()

	var folders []folderRow
	for rows.Next() {
		var row folderRow
		if err := rows.Scan(&row.ID, &row.ParentID, &row.Name, &row.DocumentCount); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, row)
	}
	if err := rows.Err(); err != nil {
		return nil, r.translate(err, "portfolio", portfolioID, "get structure")
	}

	return buildFolderTree(portfolioID, folders, r.logger)
}

// GetDocumentsByFolder lists the live documents directly inside a folder
func (r *PostgresDirectory) GetDocumentsByFolder(ctx context.Context, folderID string) ([]models.Document, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := r.ensureFolder(ctx, executor, folderID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, original_name, format, size_bytes, status, version, uploaded_at, folder_id
		FROM %s
		WHERE folder_id = $1 AND deleted_at IS NULL
		ORDER BY uploaded_at DESC
	`, r.tables.Documents)

	rows, err := executor.Query(ctx, query, folderID)
	if err != nil {
		return nil, r.translate(err, "folder", folderID, "get documents")
	}
	defer rows.Close()

	documents := []models.Document{}
	for rows.Next() {
		var doc models.Document
		err := rows.Scan(
			&doc.ID,
			&doc.OriginalName,
			&doc.Format,
			&doc.SizeBytes,
			&doc.Status,
			&doc.Version,
			&doc.UploadedAt,
			&doc.FolderID,
		)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, r.translate(err, "folder", folderID, "get documents")
	}

	return documents, nil
}

// UploadDocument stores the file as a new document. Re-uploading a name that already
// exists in the folder creates the next version.
func (r *PostgresDirectory) UploadDocument(ctx context.Context, folderID string, file models.UploadFile) (*models.Document, error) {
	var content []byte
	if file.Content != nil {
		data, err := io.ReadAll(file.Content)
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", file.Name, err)
		}
		content = data
	}

	doc := &models.Document{
		OriginalName: file.Name,
		Format:       file.Format(),
		SizeBytes:    int64(len(content)),
		Status:       models.StatusPending,
		UploadedAt:   r.now().UTC(),
		FolderID:     folderID,
	}
	if file.Content == nil {
		doc.SizeBytes = file.Size
	}

	err := r.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		executor := postgres.GetExecutor(txCtx, r.pool)
		if err := r.ensureFolder(txCtx, executor, folderID); err != nil {
			return err
		}

		versionQuery := fmt.Sprintf(`
			SELECT COALESCE(MAX(version), 0) + 1
			FROM %s
			WHERE folder_id = $1 AND original_name = $2
		`, r.tables.Documents)
		if err := executor.QueryRow(txCtx, versionQuery, folderID, file.Name).Scan(&doc.Version); err != nil {
			return fmt.Errorf("next version: %w", err)
		}

		insert := fmt.Sprintf(`
			INSERT INTO %s (folder_id, original_name, format, size_bytes, status, version, content, uploaded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, r.tables.Documents)
		err := executor.QueryRow(txCtx, insert,
			doc.FolderID,
			doc.OriginalName,
			doc.Format,
			doc.SizeBytes,
			doc.Status,
			doc.Version,
			content,
			doc.UploadedAt,
		).Scan(&doc.ID)
		if err != nil {
			if postgres.IsPgDuplicateError(err) {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("document '%s' was uploaded concurrently", file.Name),
					ResourceType: "document",
				}
			}
			return fmt.Errorf("insert document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("document uploaded",
		"document_id", doc.ID,
		"folder_id", folderID,
		"name", doc.OriginalName,
		"version", doc.Version,
		"size_bytes", doc.SizeBytes,
	)
	return doc, nil
}

func (r *PostgresDirectory) ensureFolder(ctx context.Context, executor repositories.DBTX, folderID string) error {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, r.tables.Folders)
	var exists bool
	if err := executor.QueryRow(ctx, query, folderID).Scan(&exists); err != nil {
		return r.translate(err, "folder", folderID, "check folder")
	}
	if !exists {
		return fmt.Errorf("folder %s: %w", folderID, domain.ErrNotFound)
	}
	return nil
}

// translate maps driver errors to domain errors. A malformed uuid can never match a row.
func (r *PostgresDirectory) translate(err error, kind, id, op string) error {
	if postgres.IsPgNoRowsError(err) || postgres.IsPgInvalidIDError(err) {
		return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
