package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"
	portfolioSvc "portfolio/internal/domain/services/portfolio"

	"github.com/charlievieth/fastwalk"
	"github.com/google/uuid"
)

// tempPrefix marks in-flight uploads. Hidden entries are never listed.
const tempPrefix = ".upload-"

// Directory serves portfolios stored as plain directories under a root:
// <root>/<portfolio>/<folder>/.../<file>. Folder and document ids are slash
// separated paths relative to the root, so a portfolio's root folder id is the
// portfolio id itself.
type Directory struct {
	root   string
	logger *slog.Logger

	// Serializes the exists-check and rename of uploads
	uploadMu sync.Mutex
}

var _ portfolioSvc.DirectoryService = (*Directory)(nil)

// NewDirectory creates a filesystem directory rooted at root.
func NewDirectory(root string, logger *slog.Logger) *Directory {
	return &Directory{
		root:   filepath.Clean(root),
		logger: logger,
	}
}

// GetStructure walks the portfolio directory and returns its folder tree.
// Children are ordered by name; hidden entries are skipped.
func (d *Directory) GetStructure(ctx context.Context, portfolioID string) (*models.FolderNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, err := d.resolveDir(portfolioID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	nodes := map[string]*models.FolderNode{
		portfolioID: {ID: portfolioID, Name: path.Base(portfolioID), Children: []*models.FolderNode{}},
	}
	counts := map[string]int{}

	conf := &fastwalk.Config{Follow: false}
	err = fastwalk.Walk(conf, base, func(fullPath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			d.logger.Debug("walk error", "path", fullPath, "error", walkErr)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if fullPath == base {
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			if entry.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		id, err := d.idOf(fullPath)
		if err != nil {
			return nil
		}
		parent := path.Dir(id)

		mu.Lock()
		defer mu.Unlock()
		if entry.IsDir() {
			node, ok := nodes[id]
			if !ok {
				node = &models.FolderNode{ID: id, Children: []*models.FolderNode{}}
				nodes[id] = node
			}
			node.Name = entry.Name()
			node.ParentID = &parent
			return nil
		}
		if entry.Type().IsRegular() {
			counts[parent]++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk portfolio %s: %w", portfolioID, err)
	}

	// Nest after the walk; callbacks run on several goroutines in no particular order
	for id, node := range nodes {
		node.DocumentCount = counts[id]
		if node.ParentID == nil {
			continue
		}
		if parent, ok := nodes[*node.ParentID]; ok {
			parent.Children = append(parent.Children, node)
		}
	}
	for _, node := range nodes {
		sort.Slice(node.Children, func(i, j int) bool {
			return node.Children[i].Name < node.Children[j].Name
		})
	}

	return nodes[portfolioID], nil
}

// GetDocumentsByFolder lists the regular files directly inside a folder, newest first.
func (d *Directory) GetDocumentsByFolder(ctx context.Context, folderID string) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := d.resolveDir(folderID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	documents := []models.Document{}

	conf := &fastwalk.Config{Follow: false}
	err = fastwalk.Walk(conf, dir, func(fullPath string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if fullPath == dir {
			return nil
		}
		// Single level only
		if entry.IsDir() {
			return fastwalk.SkipDir
		}
		// Links are neither documents nor folders of this portfolio
		if entry.Type()&fs.ModeSymlink != 0 || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}

		info, err := fastwalk.StatDirEntry(fullPath, entry)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}

		doc := models.Document{
			ID:           folderID + "/" + entry.Name(),
			OriginalName: entry.Name(),
			Format:       models.FormatOf(entry.Name()),
			SizeBytes:    info.Size(),
			Status:       models.StatusPending,
			Version:      1,
			UploadedAt:   info.ModTime().UTC(),
			FolderID:     folderID,
		}
		mu.Lock()
		documents = append(documents, doc)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list folder %s: %w", folderID, err)
	}

	sort.Slice(documents, func(i, j int) bool {
		if !documents[i].UploadedAt.Equal(documents[j].UploadedAt) {
			return documents[i].UploadedAt.After(documents[j].UploadedAt)
		}
		return documents[i].OriginalName < documents[j].OriginalName
	})
	return documents, nil
}

// UploadDocument writes the file into the folder through a temporary file and a
// rename, so readers never observe a partial document. An existing name conflicts.
func (d *Directory) UploadDocument(ctx context.Context, folderID string, file models.UploadFile) (*models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := d.resolveDir(folderID)
	if err != nil {
		return nil, err
	}

	name := filepath.Base(file.Name)
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid file name %q", file.Name)}
	}
	target := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, tempPrefix+uuid.NewString()+"-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName) // Error ignored: best-effort cleanup
		}
	}()

	var size int64
	if file.Content != nil {
		size, err = io.Copy(tmp, file.Content)
		if err != nil {
			_ = tmp.Close()
			return nil, fmt.Errorf("write upload %s: %w", name, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	d.uploadMu.Lock()
	defer d.uploadMu.Unlock()

	if _, err := os.Lstat(target); err == nil {
		return nil, &domain.ConflictError{
			Message:      fmt.Sprintf("document '%s' already exists", name),
			ResourceType: "document",
			ResourceID:   folderID + "/" + name,
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("check %s: %w", name, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return nil, fmt.Errorf("store upload %s: %w", name, err)
	}
	committed = true

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("stat upload %s: %w", name, err)
	}

	doc := &models.Document{
		ID:           folderID + "/" + name,
		OriginalName: name,
		Format:       models.FormatOf(name),
		SizeBytes:    size,
		Status:       models.StatusPending,
		Version:      1,
		UploadedAt:   info.ModTime().UTC(),
		FolderID:     folderID,
	}
	d.logger.Info("document uploaded",
		"document_id", doc.ID,
		"folder_id", folderID,
		"size_bytes", size,
	)
	return doc, nil
}

// resolveDir maps a folder id onto an existing directory below the root.
// Ids that are not clean relative paths can never name a folder, and neither can
// a path that passes through a symlink.
func (d *Directory) resolveDir(id string) (string, error) {
	notFound := &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", id)}
	if id == "" || strings.Contains(id, `\`) || path.IsAbs(id) || path.Clean(id) != id ||
		id == ".." || strings.HasPrefix(id, "../") {
		return "", notFound
	}
	for _, part := range strings.Split(id, "/") {
		if strings.HasPrefix(part, ".") {
			return "", notFound
		}
	}

	dir := filepath.Join(d.root, filepath.FromSlash(id))
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", notFound
		}
		return "", fmt.Errorf("stat folder %s: %w", id, err)
	}
	if !info.IsDir() {
		return "", notFound
	}

	realRoot, err := filepath.EvalSymlinks(d.root)
	if err != nil {
		return "", fmt.Errorf("resolve root: %w", err)
	}
	realDir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", fmt.Errorf("resolve folder %s: %w", id, err)
	}
	if realDir != filepath.Join(realRoot, filepath.FromSlash(id)) {
		d.logger.Warn("folder id passes through a symlink", "folder_id", id, "resolved", realDir)
		return "", notFound
	}
	return dir, nil
}

func (d *Directory) idOf(fullPath string) (string, error) {
	rel, err := filepath.Rel(d.root, fullPath)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
