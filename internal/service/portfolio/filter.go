package portfolio

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"portfolio/internal/config"
	"portfolio/internal/domain"
	models "portfolio/internal/domain/models/portfolio"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// FilterEngine turns a raw folder listing plus criteria into the ordered view list.
// It holds no mutable state; Apply is a pure function of its inputs.
type FilterEngine struct {
	families FormatFamilies
}

// NewFilterEngine creates a filter engine. A nil families map uses the defaults.
func NewFilterEngine(families FormatFamilies) *FilterEngine {
	if families == nil {
		families = DefaultFormatFamilies()
	}
	return &FilterEngine{families: families.Normalize()}
}

// Families returns the format families the engine filters by.
func (e *FilterEngine) Families() FormatFamilies {
	return e.families
}

// Apply filters documents by format family, status and search term (all optional,
// ANDed) and returns a new slice stably sorted by the criteria's sort field. Ties are
// broken by id ascending so the output is deterministic. The input is not modified.
func (e *FilterEngine) Apply(documents []models.Document, criteria models.FilterCriteria) []models.Document {
	criteria.ApplyDefaults()

	// Caser keeps internal state, so one per call
	fold := newFolder()
	term := fold(criteria.SearchTerm)

	out := make([]models.Document, 0, len(documents))
	for _, doc := range documents {
		if criteria.FormatFamily != "" && !e.families.Matches(criteria.FormatFamily, doc.Format) {
			continue
		}
		if criteria.Status != "" && doc.Status != criteria.Status {
			continue
		}
		if term != "" && !strings.Contains(fold(doc.OriginalName), term) {
			continue
		}
		out = append(out, doc)
	}

	compare := comparatorFor(criteria.SortField, fold)
	desc := criteria.SortDirection == models.SortDescending
	slices.SortStableFunc(out, func(a, b models.Document) int {
		c := compare(a, b)
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return out
}

// comparatorFor returns the primary ordering for a sort field.
func comparatorFor(field models.SortField, fold func(string) string) func(a, b models.Document) int {
	switch field {
	case models.SortByUploadedAt:
		return func(a, b models.Document) int { return a.UploadedAt.Compare(b.UploadedAt) }
	case models.SortBySize:
		return func(a, b models.Document) int { return cmp.Compare(a.SizeBytes, b.SizeBytes) }
	case models.SortByFormat:
		return func(a, b models.Document) int { return cmp.Compare(a.Format, b.Format) }
	default: // SortByName
		return func(a, b models.Document) int { return cmp.Compare(fold(a.OriginalName), fold(b.OriginalName)) }
	}
}

// newFolder returns a case-folding function for search and name ordering.
// Input is NFC-normalized first so composed and decomposed accents compare equal.
func newFolder() func(string) string {
	caser := cases.Fold()
	return func(s string) string {
		if s == "" {
			return ""
		}
		return caser.String(norm.NFC.String(s))
	}
}

// validateCriteria checks enum fields and limits of filter criteria.
func validateCriteria(c *models.FilterCriteria) error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.FormatFamily, validation.Length(0, config.MaxFormatFamilyLength)),
		validation.Field(&c.Status, validation.In(statusValues()...)),
		validation.Field(&c.SearchTerm, validation.Length(0, config.MaxSearchTermLength)),
		validation.Field(&c.SortField, validation.In(
			models.SortByName, models.SortByUploadedAt, models.SortBySize, models.SortByFormat,
		)),
		validation.Field(&c.SortDirection, validation.In(models.SortAscending, models.SortDescending)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func statusValues() []interface{} {
	values := make([]interface{}, len(models.DocumentStatuses))
	for i, s := range models.DocumentStatuses {
		values[i] = s
	}
	return values
}
