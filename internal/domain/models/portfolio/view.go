package portfolio

// LoadState is the state of the most recent navigation request.
type LoadState string

const (
	LoadIdle    LoadState = "idle"
	LoadLoading LoadState = "loading"
	LoadLoaded  LoadState = "loaded"
	LoadError   LoadState = "error"
)

// ViewMode is how the renderer lays out documents. Changing it clears the selection.
type ViewMode string

const (
	ViewList ViewMode = "list"
	ViewGrid ViewMode = "grid"
)

// NavState tells the renderer which navigation buttons are enabled.
type NavState struct {
	CanGoBack    bool `json:"can_go_back"`
	CanGoForward bool `json:"can_go_forward"`
	CanGoUp      bool `json:"can_go_up"`
}

// ViewModel is the read-only snapshot handed to the renderer after every
// navigation, filter change or selection change.
type ViewModel struct {
	PortfolioID     string         `json:"portfolio_id"`
	CurrentFolderID string         `json:"current_folder_id"`
	Breadcrumb      []Folder       `json:"breadcrumb"`
	Documents       []Document     `json:"documents"`
	Selection       []string       `json:"selection"`
	NavState        NavState       `json:"nav_state"`
	LoadState       LoadState      `json:"load_state"`
	Criteria        FilterCriteria `json:"criteria"`
	ViewMode        ViewMode       `json:"view_mode"`
	Error           string         `json:"error,omitempty"`
	Retryable       bool           `json:"retryable,omitempty"`
}
