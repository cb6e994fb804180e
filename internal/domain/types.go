package domain

import "time"

// Well-known section names of a metadata record
const (
	SectionFile   = "File"
	SectionEXIF   = "EXIF"
	SectionIPTC   = "IPTC"
	SectionXMP    = "XMP"
	SectionCustom = "Custom"
)

// Section maps field names to scalar values
type Section map[string]Value

// Record maps section names to their fields
type Record map[string]Section

// Field returns the value stored under section/field
func (r Record) Field(section, field string) (Value, bool) {
	s, ok := r[section]
	if !ok {
		return Value{}, false
	}
	v, ok := s[field]
	return v, ok
}

// Suggestion is a previously used value for a field
type Suggestion struct {
	Value      string    `json:"value" yaml:"value"`
	UsageCount int       `json:"usage_count" yaml:"usage_count"`
	LastUsed   time.Time `json:"last_used" yaml:"last_used"`
}

// ValueUsage is a suggestion flattened together with its field name
type ValueUsage struct {
	Field      string    `json:"field" yaml:"field"`
	Value      string    `json:"value" yaml:"value"`
	UsageCount int       `json:"usage_count" yaml:"usage_count"`
	LastUsed   time.Time `json:"last_used" yaml:"last_used"`
}

// FolderAccess tracks how often a folder was opened
type FolderAccess struct {
	Path         string    `json:"path" yaml:"path"`
	AccessCount  int       `json:"access_count" yaml:"access_count"`
	LastAccessed time.Time `json:"last_accessed" yaml:"last_accessed"`
}

// Priority of a field recommendation
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// Recommendation points at a field worth filling in
type Recommendation struct {
	Section  string   `json:"section" yaml:"section"`
	Field    string   `json:"field" yaml:"field"`
	Priority Priority `json:"priority" yaml:"priority"`
	Reason   string   `json:"reason" yaml:"reason"`
}

// PatternTag is a heuristic label derived from a single observed value
type PatternTag string

const (
	TagEmail    PatternTag = "email"
	TagDate     PatternTag = "date"
	TagLocation PatternTag = "location"
	TagName     PatternTag = "name"
)
