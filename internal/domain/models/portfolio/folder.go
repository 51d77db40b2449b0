package portfolio

// FolderNode is the nested snapshot of a portfolio's folder hierarchy as returned by
// the directory service. Children are kept in display order.
type FolderNode struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	ParentID      *string       `json:"parent_id"` // NULL = portfolio root
	Children      []*FolderNode `json:"children"`
	DocumentCount int           `json:"document_count"` // Advisory only
}

// Folder is the flat form of a folder node used by the tree index and the breadcrumb.
type Folder struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ParentID      *string  `json:"parent_id"`
	ChildIDs      []string `json:"child_ids"`
	DocumentCount int      `json:"document_count"`
	Depth         int      `json:"depth"`
}

// IsRoot reports whether the folder is the portfolio root.
func (f Folder) IsRoot() bool {
	return f.ParentID == nil
}
