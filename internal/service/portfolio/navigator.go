package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"portfolio/internal/config"
	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"
	portfolioSvc "portfolio/internal/domain/services/portfolio"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ErrNotOpen is returned by operations that need a loaded portfolio structure.
var ErrNotOpen = fmt.Errorf("%w: no portfolio is open", domain.ErrValidation)

// ViewObserver receives a fresh view-model after every navigation, filter change or
// selection change. It runs on the caller's goroutine after the state lock is released.
type ViewObserver func(view models.ViewModel)

// NavigatorOption configures a Navigator.
type NavigatorOption func(*Navigator)

// WithHistoryLimit bounds the back and forward stacks. A limit <= 0 keeps the default.
func WithHistoryLimit(limit int) NavigatorOption {
	return func(n *Navigator) {
		if limit <= 0 {
			return
		}
		n.history = newFolderStack(limit)
		n.forward = newFolderStack(limit)
	}
}

// WithDefaultCriteria sets the criteria active before the user changes them.
// Invalid criteria are ignored and the built-in defaults stay in effect.
func WithDefaultCriteria(criteria models.FilterCriteria) NavigatorOption {
	return func(n *Navigator) {
		if err := validateCriteria(&criteria); err != nil {
			if n.logger != nil {
				n.logger.Warn("ignoring invalid default criteria", "error", err)
			}
			return
		}
		criteria.ApplyDefaults()
		n.criteria = criteria
	}
}

// Navigator is the explorer of one open portfolio. It owns the navigation state
// (current folder, back and forward stacks), drives the tree index, the filter engine
// and the selection manager, and publishes a view-model.
//
// Every request that fetches from the directory service takes a new generation token.
// When the response arrives only the request holding the latest token may mutate
// state; older responses are discarded. In-flight requests are never cancelled, only
// their results are suppressed.
type Navigator struct {
	mu sync.Mutex

	directory portfolioSvc.DirectoryService
	filter    *FilterEngine
	selection *SelectionManager
	logger    *slog.Logger

	portfolioID string
	tree        *TreeIndex
	history     *folderStack
	forward     *folderStack
	currentID   string

	criteria  models.FilterCriteria
	viewMode  models.ViewMode
	loadState models.LoadState
	loadErr   error
	raw       []models.Document
	visible   []models.Document

	token        uint64
	observers    []viewSubscription
	nextObserver uint64
}

type viewSubscription struct {
	id uint64
	fn ViewObserver
}

var _ portfolioSvc.Explorer = (*Navigator)(nil)

// NewNavigator creates an idle navigator. Call Open to load a portfolio.
func NewNavigator(
	directory portfolioSvc.DirectoryService,
	filter *FilterEngine,
	logger *slog.Logger,
	opts ...NavigatorOption,
) *Navigator {
	if filter == nil {
		filter = NewFilterEngine(nil)
	}
	n := &Navigator{
		directory: directory,
		filter:    filter,
		selection: NewSelectionManager(),
		logger:    logger,
		history:   newFolderStack(config.DefaultHistoryLimit),
		forward:   newFolderStack(config.DefaultHistoryLimit),
		viewMode:  models.ViewList,
		loadState: models.LoadIdle,
	}
	n.criteria.ApplyDefaults()
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// OnViewChange registers a view observer and returns a function that removes it.
// Observers run outside the navigator's lock, in registration order.
func (n *Navigator) OnViewChange(fn ViewObserver) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextObserver++
	id := n.nextObserver
	n.observers = append(n.observers, viewSubscription{id: id, fn: fn})

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, sub := range n.observers {
			if sub.id == id {
				n.observers = append(n.observers[:i:i], n.observers[i+1:]...)
				return
			}
		}
	}
}

// OnSelectionChange registers a selection observer. It runs while the navigator's
// lock is held and must not call back into the navigator.
func (n *Navigator) OnSelectionChange(fn SelectionObserver) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.selection.Subscribe(fn)
}

// Open fetches the portfolio structure, resets the navigation trail and loads the root folder.
func (n *Navigator) Open(ctx context.Context, portfolioID string) (*models.ViewModel, error) {
	n.mu.Lock()
	token := n.beginLoadLocked()
	n.mu.Unlock()

	root, err := n.directory.GetStructure(ctx, portfolioID)
	if err == nil {
		var tree *TreeIndex
		if tree, err = NewTreeIndex(root); err == nil {
			n.mu.Lock()
			if token != n.token {
				return n.discardLocked("open", portfolioID, token)
			}
			n.portfolioID = portfolioID
			n.tree = tree
			n.history.Clear()
			n.forward.Clear()
			n.currentID = tree.RootID()
			n.resetListingLocked()
			token = n.beginLoadLocked()
			folderID := n.currentID
			n.mu.Unlock()

			n.logger.Info("portfolio opened",
				"portfolio_id", portfolioID,
				"folder_count", tree.Len(),
			)
			return n.load(ctx, folderID, token)
		}
	}

	n.mu.Lock()
	if token != n.token {
		return n.discardLocked("open", portfolioID, token)
	}
	return n.failLocked("get_structure", portfolioID, err)
}

// NavigateTo moves to folderID. An id absent from the tree fails with
// FolderNotFoundError and leaves the state untouched. Navigating to the current folder
// reloads it without touching the history.
func (n *Navigator) NavigateTo(ctx context.Context, folderID string) (*models.ViewModel, error) {
	n.mu.Lock()
	if n.tree == nil || !n.tree.Contains(folderID) {
		n.mu.Unlock()
		return nil, &domain.FolderNotFoundError{FolderID: folderID}
	}
	if folderID != n.currentID {
		n.history.Push(n.currentID)
		n.forward.Clear()
		n.moveLocked(folderID)
	}
	token := n.beginLoadLocked()
	n.mu.Unlock()

	return n.load(ctx, folderID, token)
}

// Back returns to the previous folder. No-op when the history is empty.
func (n *Navigator) Back(ctx context.Context) (*models.ViewModel, error) {
	n.mu.Lock()
	prev, ok := n.history.Pop()
	if !ok {
		view := n.viewLocked()
		n.mu.Unlock()
		return view, nil
	}
	n.forward.Push(n.currentID)
	n.moveLocked(prev)
	token := n.beginLoadLocked()
	n.mu.Unlock()

	return n.load(ctx, prev, token)
}

// Forward re-visits the folder left by the last Back. No-op when nothing is ahead.
func (n *Navigator) Forward(ctx context.Context) (*models.ViewModel, error) {
	n.mu.Lock()
	next, ok := n.forward.Pop()
	if !ok {
		view := n.viewLocked()
		n.mu.Unlock()
		return view, nil
	}
	n.history.Push(n.currentID)
	n.moveLocked(next)
	token := n.beginLoadLocked()
	n.mu.Unlock()

	return n.load(ctx, next, token)
}

// Up navigates to the parent of the current folder. No-op at the root.
func (n *Navigator) Up(ctx context.Context) (*models.ViewModel, error) {
	n.mu.Lock()
	if n.tree == nil || n.currentID == "" {
		view := n.viewLocked()
		n.mu.Unlock()
		return view, nil
	}
	parent, ok, err := n.tree.Parent(n.currentID)
	if err != nil || !ok {
		view := n.viewLocked()
		n.mu.Unlock()
		return view, nil
	}
	n.mu.Unlock()

	return n.NavigateTo(ctx, parent.ID)
}

// Refresh re-fetches the current folder. This is the retry path after a network error.
func (n *Navigator) Refresh(ctx context.Context) (*models.ViewModel, error) {
	n.mu.Lock()
	if n.tree == nil {
		n.mu.Unlock()
		return nil, ErrNotOpen
	}
	folderID := n.currentID
	token := n.beginLoadLocked()
	n.mu.Unlock()

	return n.load(ctx, folderID, token)
}

// RefreshIfCurrent refreshes only when folderID is still the current folder.
func (n *Navigator) RefreshIfCurrent(ctx context.Context, folderID string) (*models.ViewModel, error) {
	n.mu.Lock()
	if n.tree == nil || n.currentID != folderID {
		view := n.viewLocked()
		n.mu.Unlock()
		return view, nil
	}
	token := n.beginLoadLocked()
	n.mu.Unlock()

	return n.load(ctx, folderID, token)
}

// RefreshStructure refetches the whole folder tree. Trail entries that no longer exist
// are dropped; if the current folder vanished the explorer moves to the root.
func (n *Navigator) RefreshStructure(ctx context.Context) (*models.ViewModel, error) {
	n.mu.Lock()
	if n.tree == nil {
		n.mu.Unlock()
		return nil, ErrNotOpen
	}
	portfolioID := n.portfolioID
	token := n.beginLoadLocked()
	n.mu.Unlock()

	root, err := n.directory.GetStructure(ctx, portfolioID)
	var tree *TreeIndex
	if err == nil {
		tree, err = NewTreeIndex(root)
	}

	n.mu.Lock()
	if token != n.token {
		return n.discardLocked("refresh_structure", portfolioID, token)
	}
	if err != nil {
		return n.failLocked("get_structure", portfolioID, err)
	}

	n.tree = tree
	n.history.Retain(tree.Contains)
	n.forward.Retain(tree.Contains)
	if !tree.Contains(n.currentID) {
		n.logger.Info("current folder removed, moving to root",
			"portfolio_id", portfolioID,
			"folder_id", n.currentID,
		)
		n.moveLocked(tree.RootID())
	}
	// Pruning can leave the current folder on top of a trail
	if top, ok := n.history.Peek(); ok && top == n.currentID {
		n.history.Pop()
	}
	if top, ok := n.forward.Peek(); ok && top == n.currentID {
		n.forward.Pop()
	}
	token = n.beginLoadLocked()
	folderID := n.currentID
	n.mu.Unlock()

	return n.load(ctx, folderID, token)
}

// SetCriteria validates and applies new filter criteria to the loaded listing without
// refetching. The selection is always cleared.
func (n *Navigator) SetCriteria(criteria models.FilterCriteria) (*models.ViewModel, error) {
	if err := validateCriteria(&criteria); err != nil {
		return nil, err
	}
	criteria.ApplyDefaults()

	n.mu.Lock()
	n.criteria = criteria
	n.applyLocked()
	return n.commitLocked(), nil
}

// PatchCriteria derives new criteria from the current ones and applies them under
// a single lock, so concurrent partial updates never overwrite each other's fields.
// An invalid result leaves the criteria unchanged.
func (n *Navigator) PatchCriteria(patch func(models.FilterCriteria) models.FilterCriteria) (*models.ViewModel, error) {
	n.mu.Lock()
	criteria := patch(n.criteria)
	if err := validateCriteria(&criteria); err != nil {
		n.mu.Unlock()
		return nil, err
	}
	criteria.ApplyDefaults()
	n.criteria = criteria
	n.applyLocked()
	return n.commitLocked(), nil
}

// SetViewMode switches between list and grid layout. The selection is cleared.
func (n *Navigator) SetViewMode(mode models.ViewMode) (*models.ViewModel, error) {
	if err := validation.Validate(mode, validation.Required, validation.In(models.ViewList, models.ViewGrid)); err != nil {
		return nil, fmt.Errorf("%w: view mode: %v", domain.ErrValidation, err)
	}

	n.mu.Lock()
	n.viewMode = mode
	n.selection.Clear()
	return n.commitLocked(), nil
}

// ToggleSelection flips one visible document in or out of the selection.
// Ids outside the current view are ignored.
func (n *Navigator) ToggleSelection(documentID string) *models.ViewModel {
	n.mu.Lock()
	n.selection.Toggle(documentID)
	return n.commitLocked()
}

// SelectAll selects every visible document.
func (n *Navigator) SelectAll() *models.ViewModel {
	n.mu.Lock()
	n.selection.SelectAll(documentIDs(n.visible))
	return n.commitLocked()
}

// ClearSelection deselects everything.
func (n *Navigator) ClearSelection() *models.ViewModel {
	n.mu.Lock()
	n.selection.Clear()
	return n.commitLocked()
}

// SelectedDocuments returns the selected documents in view order, for bulk actions.
func (n *Navigator) SelectedDocuments() []models.Document {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]models.Document, 0, n.selection.Count())
	for _, doc := range n.visible {
		if n.selection.IsSelected(doc.ID) {
			out = append(out, doc)
		}
	}
	return out
}

// CurrentFolderID returns the folder the explorer is showing.
func (n *Navigator) CurrentFolderID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.currentID
}

// PortfolioID returns the open portfolio, or "" before Open.
func (n *Navigator) PortfolioID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.portfolioID
}

// View returns the current view-model.
func (n *Navigator) View() *models.ViewModel {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.viewLocked()
}

// load fetches a folder's documents and applies them if token is still the latest.
func (n *Navigator) load(ctx context.Context, folderID string, token uint64) (*models.ViewModel, error) {
	docs, err := n.directory.GetDocumentsByFolder(ctx, folderID)

	n.mu.Lock()
	if token != n.token {
		return n.discardLocked("get_documents", folderID, token)
	}
	if err != nil {
		n.resetListingLocked()
		return n.failLocked("get_documents", folderID, err)
	}

	n.raw = docs
	n.applyLocked()
	n.loadState = models.LoadLoaded
	n.loadErr = nil

	n.logger.Debug("folder loaded",
		"portfolio_id", n.portfolioID,
		"folder_id", folderID,
		"document_count", len(docs),
		"visible_count", len(n.visible),
		"token", token,
	)
	return n.commitLocked(), nil
}

// beginLoadLocked issues a new generation token and marks the view as loading.
func (n *Navigator) beginLoadLocked() uint64 {
	n.token++
	n.loadState = models.LoadLoading
	n.loadErr = nil
	return n.token
}

// moveLocked changes the current folder. The old listing and selection no longer apply.
func (n *Navigator) moveLocked(folderID string) {
	n.currentID = folderID
	n.resetListingLocked()
}

func (n *Navigator) resetListingLocked() {
	n.raw = nil
	n.visible = nil
	n.selection.Reset(nil)
}

// applyLocked re-runs the filter engine and rescopes the selection to the new view.
func (n *Navigator) applyLocked() {
	n.visible = n.filter.Apply(n.raw, n.criteria)
	n.selection.Reset(documentIDs(n.visible))
}

// discardLocked drops a superseded response. Unlocks n.mu.
func (n *Navigator) discardLocked(op, id string, token uint64) (*models.ViewModel, error) {
	n.logger.Debug("discarding stale response",
		"op", op,
		"id", id,
		"token", token,
		"latest_token", n.token,
	)
	view := n.viewLocked()
	n.mu.Unlock()
	return view, nil
}

// failLocked records a failed directory call without moving the current folder. Unlocks n.mu.
func (n *Navigator) failLocked(op, id string, err error) (*models.ViewModel, error) {
	err = domain.AsNetworkError(op, err)
	n.loadState = models.LoadError
	n.loadErr = err

	n.logger.Warn("directory request failed",
		"op", op,
		"id", id,
		"portfolio_id", n.portfolioID,
		"error", err,
	)
	view := n.commitLocked()
	return view, err
}

// commitLocked snapshots the view, unlocks n.mu and notifies view observers.
func (n *Navigator) commitLocked() *models.ViewModel {
	view := n.viewLocked()
	observers := make([]ViewObserver, len(n.observers))
	for i, sub := range n.observers {
		observers[i] = sub.fn
	}
	n.mu.Unlock()

	for _, fn := range observers {
		fn(*view)
	}
	return view
}

func (n *Navigator) viewLocked() *models.ViewModel {
	view := &models.ViewModel{
		PortfolioID:     n.portfolioID,
		CurrentFolderID: n.currentID,
		Breadcrumb:      []models.Folder{},
		Documents:       append(make([]models.Document, 0, len(n.visible)), n.visible...),
		Selection:       n.selection.Selected(),
		NavState: models.NavState{
			CanGoBack:    n.history.Len() > 0,
			CanGoForward: n.forward.Len() > 0,
		},
		LoadState: n.loadState,
		Criteria:  n.criteria,
		ViewMode:  n.viewMode,
	}

	if n.tree != nil && n.currentID != "" {
		if path, err := n.tree.AncestryPath(n.currentID); err == nil {
			view.Breadcrumb = path
		}
		view.NavState.CanGoUp = n.currentID != n.tree.RootID()
	}

	if n.loadErr != nil {
		view.Error = n.loadErr.Error()
		var netErr *domain.NetworkError
		view.Retryable = errors.As(n.loadErr, &netErr)
	}
	return view
}

func documentIDs(docs []models.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
