package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"portfolio/internal/domain/models/portfolio"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// ExplorerConfig is the optional YAML file pointed to by EXPLORER_CONFIG.
//
//	format_families:
//	  image: [jpg, jpeg, png]
//	allowed_formats: [pdf, docx, png]
//	max_upload_bytes: 52428800
//	default_criteria:
//	  field: uploaded_at
//	  direction: desc
type ExplorerConfig struct {
	FormatFamilies  map[string][]string      `yaml:"format_families,omitempty"`
	AllowedFormats  []string                 `yaml:"allowed_formats,omitempty"`
	MaxUploadBytes  int64                    `yaml:"max_upload_bytes,omitempty"`
	DefaultCriteria portfolio.FilterCriteria `yaml:"default_criteria,omitempty"`
}

// DefaultAllowedFormats are the extensions accepted for upload when the explorer
// config does not list any.
func DefaultAllowedFormats() []string {
	return []string{
		"pdf", "doc", "docx", "odt", "txt",
		"xls", "xlsx", "ods", "csv",
		"ppt", "pptx",
		"jpg", "jpeg", "png",
	}
}

// DefaultExplorerConfig returns the built-in explorer settings.
// A nil FormatFamilies map means the filter engine's built-in families.
func DefaultExplorerConfig() *ExplorerConfig {
	cfg := &ExplorerConfig{
		AllowedFormats: DefaultAllowedFormats(),
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
	cfg.DefaultCriteria.ApplyDefaults()
	return cfg
}

// LoadExplorerConfig reads the explorer YAML file. An empty path or a missing file
// yields the defaults. Unknown keys are rejected so typos surface at startup.
func LoadExplorerConfig(path string) (*ExplorerConfig, error) {
	cfg := DefaultExplorerConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read explorer config: %w", err)
	}

	var file ExplorerConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse explorer config %s: %w", path, err)
	}

	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("invalid explorer config %s: %w", path, err)
	}

	if len(file.FormatFamilies) > 0 {
		cfg.FormatFamilies = file.FormatFamilies
	}
	if len(file.AllowedFormats) > 0 {
		cfg.AllowedFormats = file.AllowedFormats
	}
	if file.MaxUploadBytes > 0 {
		cfg.MaxUploadBytes = file.MaxUploadBytes
	}
	cfg.DefaultCriteria = file.DefaultCriteria
	cfg.DefaultCriteria.ApplyDefaults()

	return cfg, nil
}

// Validate checks the fields a YAML file may set.
func (c *ExplorerConfig) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.AllowedFormats, validation.Each(validation.Required, validation.Length(1, 16))),
		validation.Field(&c.MaxUploadBytes, validation.Min(int64(0))),
	)
	if err != nil {
		return err
	}
	statuses := make([]interface{}, len(portfolio.DocumentStatuses))
	for i, st := range portfolio.DocumentStatuses {
		statuses[i] = st
	}
	return validation.Errors{
		"default_criteria.format_family": validation.Validate(c.DefaultCriteria.FormatFamily,
			validation.Length(0, MaxFormatFamilyLength)),
		"default_criteria.status": validation.Validate(c.DefaultCriteria.Status, validation.In(statuses...)),
		"default_criteria.search_term": validation.Validate(c.DefaultCriteria.SearchTerm,
			validation.Length(0, MaxSearchTermLength)),
		"default_criteria.field": validation.Validate(c.DefaultCriteria.SortField, validation.In(
			portfolio.SortByName, portfolio.SortByUploadedAt, portfolio.SortBySize, portfolio.SortByFormat,
		)),
		"default_criteria.direction": validation.Validate(c.DefaultCriteria.SortDirection, validation.In(
			portfolio.SortAscending, portfolio.SortDescending,
		)),
	}.Filter()
}

// ResolveMaxUploadBytes applies the precedence UPLOAD_MAX_BYTES > explorer config > default.
func (c *ExplorerConfig) ResolveMaxUploadBytes(env *Config) int64 {
	if env != nil && env.UploadMaxBytes > 0 {
		return env.UploadMaxBytes
	}
	if c.MaxUploadBytes > 0 {
		return c.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}
