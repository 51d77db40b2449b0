package portfolio

import (
	"fmt"
	"strings"

	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"
)

// labelSeparator joins folder names in SearchLabel.
const labelSeparator = " / "

// indexedFolder is one arena slot. Parent and children are ids, never pointers.
type indexedFolder struct {
	id            string
	name          string
	parentID      string // "" for the root
	childIDs      []string
	documentCount int
	depth         int
}

// TreeIndex is an in-memory arena over a portfolio's folder hierarchy, keyed by id.
// It is immutable after construction and safe for concurrent reads.
type TreeIndex struct {
	rootID string
	nodes  map[string]*indexedFolder
}

// NewTreeIndex flattens a nested structure snapshot into an arena and checks the
// rooted-tree invariants: exactly one root with no parent, every child pointing at its
// parent, unique ids. Shared subtrees or cycles show up as duplicate ids.
func NewTreeIndex(root *models.FolderNode) (*TreeIndex, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: portfolio structure has no root folder", domain.ErrValidation)
	}
	if root.ID == "" {
		return nil, fmt.Errorf("%w: root folder has an empty id", domain.ErrValidation)
	}
	if root.ParentID != nil {
		return nil, fmt.Errorf("%w: root folder %q has parent %q", domain.ErrValidation, root.ID, *root.ParentID)
	}

	idx := &TreeIndex{
		rootID: root.ID,
		nodes:  make(map[string]*indexedFolder),
	}

	// Iterative pre-order walk so very deep trees cannot blow the stack
	type frame struct {
		node     *models.FolderNode
		parentID string
		depth    int
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := f.node
		if n.ID == "" {
			return nil, fmt.Errorf("%w: folder under %q has an empty id", domain.ErrValidation, f.parentID)
		}
		if _, dup := idx.nodes[n.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate folder id %q", domain.ErrValidation, n.ID)
		}
		if f.depth > 0 {
			if n.ParentID == nil {
				return nil, fmt.Errorf("%w: folder %q has no parent but is not the root", domain.ErrValidation, n.ID)
			}
			if *n.ParentID != f.parentID {
				return nil, fmt.Errorf("%w: folder %q claims parent %q but is nested under %q",
					domain.ErrValidation, n.ID, *n.ParentID, f.parentID)
			}
		}

		slot := &indexedFolder{
			id:            n.ID,
			name:          n.Name,
			parentID:      f.parentID,
			childIDs:      make([]string, 0, len(n.Children)),
			documentCount: n.DocumentCount,
			depth:         f.depth,
		}
		idx.nodes[n.ID] = slot

		for _, child := range n.Children {
			if child == nil {
				return nil, fmt.Errorf("%w: folder %q has a nil child", domain.ErrValidation, n.ID)
			}
			slot.childIDs = append(slot.childIDs, child.ID)
		}
		// Push in reverse so children are visited in display order
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: n.Children[i], parentID: n.ID, depth: f.depth + 1})
		}
	}

	return idx, nil
}

// RootID returns the id of the portfolio root folder.
func (t *TreeIndex) RootID() string {
	return t.rootID
}

// Len returns the number of folders in the tree.
func (t *TreeIndex) Len() int {
	return len(t.nodes)
}

// Contains reports whether id is a folder of this tree.
func (t *TreeIndex) Contains(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// FindNode returns the folder with the given id.
func (t *TreeIndex) FindNode(id string) (models.Folder, error) {
	n, ok := t.nodes[id]
	if !ok {
		return models.Folder{}, fmt.Errorf("%w: %q", domain.ErrNodeNotFound, id)
	}
	return n.folder(), nil
}

// AncestryPath returns the folders from the root to id inclusive. Its length is the
// depth of id plus one.
func (t *TreeIndex) AncestryPath(id string) ([]models.Folder, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrNodeNotFound, id)
	}

	path := make([]models.Folder, n.depth+1)
	for i := n.depth; i >= 0; i-- {
		path[i] = n.folder()
		if n.parentID != "" {
			n = t.nodes[n.parentID]
		}
	}
	return path, nil
}

// SearchLabel renders the ancestry of id as "Root / Child / Grandchild".
func (t *TreeIndex) SearchLabel(id string) (string, error) {
	path, err := t.AncestryPath(id)
	if err != nil {
		return "", err
	}
	names := make([]string, len(path))
	for i, f := range path {
		names[i] = f.Name
	}
	return strings.Join(names, labelSeparator), nil
}

// Parent returns the parent of id. ok is false for the root.
func (t *TreeIndex) Parent(id string) (parent models.Folder, ok bool, err error) {
	n, found := t.nodes[id]
	if !found {
		return models.Folder{}, false, fmt.Errorf("%w: %q", domain.ErrNodeNotFound, id)
	}
	if n.parentID == "" {
		return models.Folder{}, false, nil
	}
	return t.nodes[n.parentID].folder(), true, nil
}

// Children returns the direct children of id in display order.
func (t *TreeIndex) Children(id string) ([]models.Folder, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrNodeNotFound, id)
	}
	children := make([]models.Folder, 0, len(n.childIDs))
	for _, childID := range n.childIDs {
		children = append(children, t.nodes[childID].folder())
	}
	return children, nil
}

// Walk visits every folder in pre-order (display order), stopping early if fn returns false.
func (t *TreeIndex) Walk(fn func(f models.Folder) bool) {
	stack := []string{t.rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := t.nodes[id]
		if !fn(n.folder()) {
			return
		}
		for i := len(n.childIDs) - 1; i >= 0; i-- {
			stack = append(stack, n.childIDs[i])
		}
	}
}

func (n *indexedFolder) folder() models.Folder {
	f := models.Folder{
		ID:            n.id,
		Name:          n.name,
		ChildIDs:      append([]string(nil), n.childIDs...),
		DocumentCount: n.documentCount,
		Depth:         n.depth,
	}
	if n.parentID != "" {
		parentID := n.parentID
		f.ParentID = &parentID
	}
	return f
}
