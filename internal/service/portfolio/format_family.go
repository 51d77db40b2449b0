package portfolio

import (
	"maps"
	"slices"
	"strings"
)

// FormatFamilies maps a family name ("image") to its member extensions.
type FormatFamilies map[string][]string

// DefaultFormatFamilies returns the built-in families used when no explorer config
// file overrides them.
func DefaultFormatFamilies() FormatFamilies {
	return FormatFamilies{
		"image":        {"jpg", "jpeg", "png", "gif", "bmp"},
		"document":     {"pdf", "doc", "docx", "odt", "rtf", "txt"},
		"spreadsheet":  {"xls", "xlsx", "ods", "csv"},
		"presentation": {"ppt", "pptx", "odp"},
		"video":        {"mp4", "avi", "mov", "mkv"},
		"audio":        {"mp3", "wav", "ogg"},
		"archive":      {"zip", "rar", "7z"},
	}
}

// Normalize lowercases family names and extensions and strips leading dots.
func (f FormatFamilies) Normalize() FormatFamilies {
	out := make(FormatFamilies, len(f))
	for family, exts := range f {
		key := strings.ToLower(strings.TrimSpace(family))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
			if ext != "" && !slices.Contains(out[key], ext) {
				out[key] = append(out[key], ext)
			}
		}
	}
	return out
}

// Matches reports whether format belongs to family. Unknown family names compare by
// direct equality against the format.
func (f FormatFamilies) Matches(family, format string) bool {
	family = strings.ToLower(family)
	members, ok := f[family]
	if !ok {
		return family == format
	}
	return slices.Contains(members, format)
}

// Names returns the family names in sorted order.
func (f FormatFamilies) Names() []string {
	return slices.Sorted(maps.Keys(f))
}
