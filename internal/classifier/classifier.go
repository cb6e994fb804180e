// Package classifier derives light pattern tags from observed field values.
//
// The date rule tags any value of eight or more characters containing a
// digit, and keyword rules match raw substrings ("mrsfoo" is a name). Tags
// are only reported (GET /api/patterns); suggestions do not use them.
package classifier

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

var (
	locationKeywords = []string{"street", "avenue", "road", "lane", "city", "country", "state"}
	nameKeywords     = []string{"mr", "mrs", "ms", "dr", "prof"}
)

// minDateLength is the shortest value considered a potential date
const minDateLength = 8

// Classify returns every tag whose rule matches value. Rules are evaluated
// independently on a trimmed, lower-cased copy.
func Classify(value string) []domain.PatternTag {
	v := strings.ToLower(strings.TrimSpace(value))

	var tags []domain.PatternTag
	if strings.Contains(v, "@") && strings.Contains(v, ".") {
		tags = append(tags, domain.TagEmail)
	}
	if strings.IndexFunc(v, unicode.IsDigit) >= 0 && utf8.RuneCountInString(v) >= minDateLength {
		tags = append(tags, domain.TagDate)
	}
	if containsAny(v, locationKeywords) {
		tags = append(tags, domain.TagLocation)
	}
	if containsAny(v, nameKeywords) {
		tags = append(tags, domain.TagName)
	}
	return tags
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// History accumulates tags per field name for the life of the process.
// Tags are appended as observed and never deduplicated.
type History struct {
	mu   sync.Mutex
	tags map[string][]domain.PatternTag
}

// NewHistory creates an empty History
func NewHistory() *History {
	return &History{tags: make(map[string][]domain.PatternTag)}
}

// Observe classifies value and appends the resulting tags to field
func (h *History) Observe(field, value string) []domain.PatternTag {
	tags := Classify(value)
	if len(tags) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.tags[field] = append(h.tags[field], tags...)
	return tags
}

// Snapshot returns a copy of the whole history
func (h *History) Snapshot() map[string][]domain.PatternTag {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string][]domain.PatternTag, len(h.tags))
	for field, tags := range h.tags {
		out[field] = append([]domain.PatternTag(nil), tags...)
	}
	return out
}
