package portfolio

// folderStack is a bounded LIFO of folder ids used for the back and forward trails.
// When the limit is exceeded the oldest entry (bottom) is dropped.
type folderStack struct {
	items []string
	limit int
}

func newFolderStack(limit int) *folderStack {
	if limit <= 0 {
		limit = 1
	}
	return &folderStack{
		items: make([]string, 0, min(limit, 16)),
		limit: limit,
	}
}

// Push adds id on top.
func (s *folderStack) Push(id string) {
	s.items = append(s.items, id)
	if excess := len(s.items) - s.limit; excess > 0 {
		s.items = append(s.items[:0], s.items[excess:]...)
	}
}

// Pop removes and returns the top entry.
func (s *folderStack) Pop() (string, bool) {
	if len(s.items) == 0 {
		return "", false
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, true
}

// Peek returns the top entry without removing it.
func (s *folderStack) Peek() (string, bool) {
	if len(s.items) == 0 {
		return "", false
	}
	return s.items[len(s.items)-1], true
}

func (s *folderStack) Clear() {
	s.items = s.items[:0]
}

func (s *folderStack) Len() int {
	return len(s.items)
}

// Items returns a copy of the entries, bottom first.
func (s *folderStack) Items() []string {
	return append([]string(nil), s.items...)
}

// Retain keeps entries for which keep returns true, then collapses adjacent duplicates
// left behind by the removal.
func (s *folderStack) Retain(keep func(id string) bool) {
	out := s.items[:0]
	for _, id := range s.items {
		if !keep(id) {
			continue
		}
		if len(out) > 0 && out[len(out)-1] == id {
			continue
		}
		out = append(out, id)
	}
	s.items = out
}
