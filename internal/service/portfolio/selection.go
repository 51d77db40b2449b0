package portfolio

// SelectionObserver is called synchronously after every selection mutation with the
// selected ids in view order.
type SelectionObserver func(selected []string)

// SelectionManager tracks which documents of the current view are chosen for bulk
// actions. The selection is always a subset of the visible ids it was last scoped to.
//
// Not safe for concurrent use; the Navigator that owns it serializes access.
type SelectionManager struct {
	visible   []string // view order
	inView    map[string]struct{}
	selected  map[string]struct{}
	observers []SelectionObserver
}

// NewSelectionManager creates an empty selection with no visible documents.
func NewSelectionManager() *SelectionManager {
	return &SelectionManager{
		inView:   make(map[string]struct{}),
		selected: make(map[string]struct{}),
	}
}

// Subscribe registers an observer. Observers must not call back into the manager.
func (m *SelectionManager) Subscribe(fn SelectionObserver) {
	m.observers = append(m.observers, fn)
}

// Reset scopes the selection to a new visible list and clears it.
func (m *SelectionManager) Reset(visibleIDs []string) {
	m.setVisible(visibleIDs)
	clear(m.selected)
	m.notify()
}

// Toggle flips the membership of id and reports whether it is now selected.
// Ids outside the visible set are ignored.
func (m *SelectionManager) Toggle(id string) bool {
	if _, ok := m.inView[id]; !ok {
		return false
	}
	_, was := m.selected[id]
	if was {
		delete(m.selected, id)
	} else {
		m.selected[id] = struct{}{}
	}
	m.notify()
	return !was
}

// SelectAll scopes the selection to visibleIDs and selects every one of them.
func (m *SelectionManager) SelectAll(visibleIDs []string) {
	m.setVisible(visibleIDs)
	clear(m.selected)
	for _, id := range m.visible {
		m.selected[id] = struct{}{}
	}
	m.notify()
}

// Clear deselects everything, keeping the visible scope.
func (m *SelectionManager) Clear() {
	clear(m.selected)
	m.notify()
}

// IsValid reports whether the selection is a subset of visibleIDs.
func (m *SelectionManager) IsValid(visibleIDs []string) bool {
	if len(m.selected) == 0 {
		return true
	}
	allowed := make(map[string]struct{}, len(visibleIDs))
	for _, id := range visibleIDs {
		allowed[id] = struct{}{}
	}
	for id := range m.selected {
		if _, ok := allowed[id]; !ok {
			return false
		}
	}
	return true
}

// IsSelected reports whether id is selected.
func (m *SelectionManager) IsSelected(id string) bool {
	_, ok := m.selected[id]
	return ok
}

// Count returns the number of selected documents.
func (m *SelectionManager) Count() int {
	return len(m.selected)
}

// Selected returns the selected ids in view order.
func (m *SelectionManager) Selected() []string {
	out := make([]string, 0, len(m.selected))
	for _, id := range m.visible {
		if _, ok := m.selected[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (m *SelectionManager) setVisible(visibleIDs []string) {
	m.visible = make([]string, 0, len(visibleIDs))
	clear(m.inView)
	for _, id := range visibleIDs {
		if _, dup := m.inView[id]; dup {
			continue
		}
		m.inView[id] = struct{}{}
		m.visible = append(m.visible, id)
	}
}

func (m *SelectionManager) notify() {
	if len(m.observers) == 0 {
		return
	}
	selected := m.Selected()
	for _, fn := range m.observers {
		fn(selected)
	}
}
