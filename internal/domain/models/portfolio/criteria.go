package portfolio

// SortField names the document attribute used to order a folder listing.
type SortField string

const (
	SortByName       SortField = "name"
	SortByUploadedAt SortField = "uploaded_at"
	SortBySize       SortField = "size_bytes"
	SortByFormat     SortField = "format"
)

// SortDirection is ascending or descending.
type SortDirection string

const (
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

const (
	DefaultSortField     = SortByName
	DefaultSortDirection = SortAscending
)

// FilterCriteria narrows and orders the documents of the active folder.
// All predicates are optional and combined with logical AND.
type FilterCriteria struct {
	FormatFamily  string         `json:"format_family,omitempty" yaml:"format_family,omitempty"`
	Status        DocumentStatus `json:"status,omitempty" yaml:"status,omitempty"`
	SearchTerm    string         `json:"search_term,omitempty" yaml:"search_term,omitempty"`
	SortField     SortField      `json:"sort_field,omitempty" yaml:"field,omitempty"`
	SortDirection SortDirection  `json:"sort_direction,omitempty" yaml:"direction,omitempty"`
}

// ApplyDefaults fills in the default sort field and direction.
func (c *FilterCriteria) ApplyDefaults() {
	if c.SortField == "" {
		c.SortField = DefaultSortField
	}
	if c.SortDirection == "" {
		c.SortDirection = DefaultSortDirection
	}
}

// IsEmpty reports whether no predicate is set.
func (c FilterCriteria) IsEmpty() bool {
	return c.FormatFamily == "" && c.Status == "" && c.SearchTerm == ""
}
