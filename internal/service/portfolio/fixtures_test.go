package portfolio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	models "portfolio/internal/domain/models/portfolio"
)

func strPtr(s string) *string { return &s }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sampleTree:
//
//	p1 (Portfolio)
//	├── teaching (Teaching)
//	│   └── syllabi (Syllabi)
//	└── research (Research)
func sampleTree() *models.FolderNode {
	return &models.FolderNode{
		ID:   "p1",
		Name: "Portfolio",
		Children: []*models.FolderNode{
			{
				ID:       "teaching",
				Name:     "Teaching",
				ParentID: strPtr("p1"),
				Children: []*models.FolderNode{
					{ID: "syllabi", Name: "Syllabi", ParentID: strPtr("teaching"), DocumentCount: 2},
				},
				DocumentCount: 1,
			},
			{ID: "research", Name: "Research", ParentID: strPtr("p1"), DocumentCount: 1},
		},
	}
}

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func doc(id, name string, size int64, status models.DocumentStatus, folderID string, ageHours int) models.Document {
	return models.Document{
		ID:           id,
		OriginalName: name,
		Format:       models.FormatOf(name),
		SizeBytes:    size,
		Status:       status,
		Version:      1,
		UploadedAt:   baseTime.Add(time.Duration(ageHours) * time.Hour),
		FolderID:     folderID,
	}
}

func sampleDocuments() map[string][]models.Document {
	return map[string][]models.Document{
		"p1": {
			doc("d-cv", "cv.pdf", 120_000, models.StatusApproved, "p1", 0),
		},
		"teaching": {
			doc("d-eval", "Evaluation.xlsx", 40_000, models.StatusInReview, "teaching", 1),
		},
		"syllabi": {
			doc("d-syl2", "syllabus-2023.docx", 30_000, models.StatusPending, "syllabi", 2),
			doc("d-syl1", "Syllabus-2022.pdf", 90_000, models.StatusApproved, "syllabi", 3),
		},
		"research": {
			doc("d-paper", "paper.pdf", 500_000, models.StatusApproved, "research", 4),
		},
	}
}

// fakeDirectory is an in-memory DirectoryService. A folder with a gate blocks its
// document fetch until the gate is closed, which lets tests order responses.
type fakeDirectory struct {
	mu        sync.Mutex
	root      *models.FolderNode
	docs      map[string][]models.Document
	docErr    map[string]error
	structErr error
	gates     map[string]chan struct{}
	started   chan string

	uploadErr map[string]error
	uploaded  []string
	inFlight  int
	maxFlight int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		root:      sampleTree(),
		docs:      sampleDocuments(),
		docErr:    map[string]error{},
		gates:     map[string]chan struct{}{},
		started:   make(chan string, 32),
		uploadErr: map[string]error{},
	}
}

func (f *fakeDirectory) GetStructure(ctx context.Context, portfolioID string) (*models.FolderNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.structErr != nil {
		return nil, f.structErr
	}
	if portfolioID != f.root.ID {
		return nil, fmt.Errorf("portfolio %s: %w", portfolioID, io.ErrUnexpectedEOF)
	}
	return f.root, nil
}

func (f *fakeDirectory) GetDocumentsByFolder(ctx context.Context, folderID string) ([]models.Document, error) {
	f.mu.Lock()
	gate := f.gates[folderID]
	f.mu.Unlock()

	select {
	case f.started <- folderID:
	default:
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.docErr[folderID]; err != nil {
		return nil, err
	}
	return append([]models.Document(nil), f.docs[folderID]...), nil
}

func (f *fakeDirectory) UploadDocument(ctx context.Context, folderID string, file models.UploadFile) (*models.Document, error) {
	f.mu.Lock()
	f.inFlight++
	f.maxFlight = max(f.maxFlight, f.inFlight)
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	f.uploaded = append(f.uploaded, file.Name)
	if err := f.uploadErr[file.Name]; err != nil {
		return nil, err
	}
	d := models.Document{
		ID:           fmt.Sprintf("up-%d", len(f.uploaded)),
		OriginalName: file.Name,
		Format:       file.Format(),
		SizeBytes:    file.Size,
		Status:       models.StatusPending,
		Version:      1,
		UploadedAt:   baseTime,
		FolderID:     folderID,
	}
	f.docs[folderID] = append(f.docs[folderID], d)
	return &d, nil
}

func (f *fakeDirectory) gate(folderID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[folderID] = ch
	return ch
}

func (f *fakeDirectory) setDocErr(folderID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.docErr, folderID)
		return
	}
	f.docErr[folderID] = err
}

func (f *fakeDirectory) setRoot(root *models.FolderNode) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.root = root
}

func ids(docs []models.Document) []string {
	return documentIDs(docs)
}
