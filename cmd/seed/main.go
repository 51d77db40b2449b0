package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"portfolio/internal/config"
	"portfolio/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed a portfolio")
	title := flag.String("title", "Demo Academic Portfolio", "Title of the seeded portfolio")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("🚫 BLOCKED: Cannot run --drop-tables in production environment")
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if *schemaOnly {
		log.Printf("🏗️  Setting up schema only (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	} else {
		log.Printf("🌱 Seeding database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)
	}

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("🗑️  Dropping all tables...")
		if err := postgres.DropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("✅ Tables dropped")
	}

	log.Println("📋 Ensuring database schema is up to date...")
	if err := postgres.RunSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("✅ Schema ready")

	if *schemaOnly {
		log.Println("✅ Schema setup complete (schema-only mode)")
		return
	}

	portfolioID, rootID, err := seedPortfolio(ctx, pool, tables, *title)
	if err != nil {
		log.Fatalf("Failed to seed portfolio: %v", err)
	}

	log.Printf("🎉 Seeding complete! portfolio=%s root_folder=%s", portfolioID, rootID)
}

// seedFolder describes a folder and the documents placed directly in it.
type seedFolder struct {
	name      string
	documents []seedDocument
	children  []seedFolder
}

type seedDocument struct {
	name   string
	format string
	size   int64
	status string
	age    time.Duration
}

func seedTree() []seedFolder {
	return []seedFolder{
		{
			name: "Teaching",
			documents: []seedDocument{
				{name: "Teaching Philosophy.pdf", format: "pdf", size: 184_320, status: "approved", age: 90 * 24 * time.Hour},
				{name: "Course Evaluations 2024.xlsx", format: "xlsx", size: 52_110, status: "in_review", age: 20 * 24 * time.Hour},
			},
			children: []seedFolder{
				{
					name: "Syllabi",
					documents: []seedDocument{
						{name: "CS101 Syllabus.docx", format: "docx", size: 40_960, status: "pending", age: 3 * 24 * time.Hour},
						{name: "CS305 Syllabus.pdf", format: "pdf", size: 97_280, status: "needs_correction", age: 12 * 24 * time.Hour},
					},
				},
			},
		},
		{
			name: "Research",
			documents: []seedDocument{
				{name: "Research Statement.pdf", format: "pdf", size: 256_000, status: "approved", age: 120 * 24 * time.Hour},
				{name: "Lab Photo.jpg", format: "jpg", size: 1_572_864, status: "rejected", age: 45 * 24 * time.Hour},
			},
			children: []seedFolder{
				{name: "Publications"},
			},
		},
		{
			name: "Service",
			documents: []seedDocument{
				{name: "Committee Letters.pdf", format: "pdf", size: 73_728, status: "pending", age: 7 * 24 * time.Hour},
			},
		},
	}
}

// seedPortfolio inserts one portfolio with its folder tree in a single transaction.
func seedPortfolio(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, title string) (string, string, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return "", "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }() // no-op after commit

	portfolioID := uuid.NewString()
	if _, err := tx.Exec(ctx,
		`INSERT INTO `+tables.Portfolios+` (id, title, owner_name) VALUES ($1, $2, $3)`,
		portfolioID, title, "Demo Faculty",
	); err != nil {
		return "", "", fmt.Errorf("insert portfolio: %w", err)
	}

	rootID, err := insertFolder(ctx, tx, tables, portfolioID, nil, title, 0)
	if err != nil {
		return "", "", err
	}
	log.Printf("📁 Created root folder %s", rootID)

	for i, folder := range seedTree() {
		if err := insertTree(ctx, tx, tables, portfolioID, rootID, folder, i); err != nil {
			return "", "", err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", "", fmt.Errorf("commit: %w", err)
	}
	return portfolioID, rootID, nil
}

func insertTree(ctx context.Context, tx pgx.Tx, tables *postgres.TableNames, portfolioID, parentID string, folder seedFolder, position int) error {
	folderID, err := insertFolder(ctx, tx, tables, portfolioID, &parentID, folder.name, position)
	if err != nil {
		return err
	}
	log.Printf("📁 Created folder %s (ID: %s)", folder.name, folderID)

	now := time.Now().UTC()
	for _, doc := range folder.documents {
		if _, err := tx.Exec(ctx,
			`INSERT INTO `+tables.Documents+` (id, folder_id, original_name, format, size_bytes, status, uploaded_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			uuid.NewString(), folderID, doc.name, doc.format, doc.size, doc.status, now.Add(-doc.age),
		); err != nil {
			return fmt.Errorf("insert document %s: %w", doc.name, err)
		}
		log.Printf("✅ Created document %s", doc.name)
	}

	for i, child := range folder.children {
		if err := insertTree(ctx, tx, tables, portfolioID, folderID, child, i); err != nil {
			return err
		}
	}
	return nil
}

func insertFolder(ctx context.Context, tx pgx.Tx, tables *postgres.TableNames, portfolioID string, parentID *string, name string, position int) (string, error) {
	id := uuid.NewString()
	if _, err := tx.Exec(ctx,
		`INSERT INTO `+tables.Folders+` (id, portfolio_id, parent_id, name, position) VALUES ($1, $2, $3, $4, $5)`,
		id, portfolioID, parentID, name, position,
	); err != nil {
		return "", fmt.Errorf("insert folder %s: %w", name, err)
	}
	return id, nil
}
