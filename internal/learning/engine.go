package learning

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

// Default limits
const (
	RecordSuggestionLimit     = 5
	ContextualSuggestionLimit = 3
	DefaultPopularLimit       = 20
	DefaultRecentLimit        = 20
	DefaultRecentDays         = 7
)

// UsageStore is the part of the store the Engine reads from
type UsageStore interface {
	SuggestionsForField(ctx context.Context, field string, limit int) ([]domain.Suggestion, error)
	AllSuggestions(ctx context.Context) (map[string][]domain.Suggestion, error)
	SetPreference(ctx context.Context, key string, value any) error
	GetPreference(ctx context.Context, key string, def any) (any, error)
}

// Engine ranks learned values. Store failures degrade to empty results.
type Engine struct {
	store UsageStore
	now   func() time.Time

	mu    sync.RWMutex
	prefs map[string]any
}

// NewEngine creates an Engine. A nil now uses time.Now.
func NewEngine(store UsageStore, now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{store: store, now: now, prefs: make(map[string]any)}
}

// contextRule proposes Target when the record matches
type contextRule struct {
	target  string
	matches func(rec domain.Record) bool
}

var contextRules = []contextRule{
	{
		// camera make known, model missing
		target: "Model",
		matches: func(rec domain.Record) bool {
			return anyTruthy(rec, "Make") && blankIn(rec, domain.SectionEXIF, "Model")
		},
	},
	{
		target: "Location",
		matches: func(rec domain.Record) bool {
			return anyTruthy(rec, "GPSLatitude") && anyTruthy(rec, "GPSLongitude")
		},
	},
	{
		// author known, copyright missing
		target: "Copyright",
		matches: func(rec domain.Record) bool {
			return anyTruthy(rec, "Artist") && blankIn(rec, domain.SectionEXIF, "Copyright")
		},
	},
}

// SuggestionsFor returns suggestions for every filled field of rec, plus
// contextual suggestions for related fields. A contextual entry replaces a
// per-field entry of the same name. Fields without history are omitted.
func (e *Engine) SuggestionsFor(ctx context.Context, rec domain.Record) map[string][]domain.Suggestion {
	out := make(map[string][]domain.Suggestion)

	for _, section := range sortedSections(rec) {
		for _, field := range sortedFields(rec[section]) {
			if rec[section][field].IsBlank() {
				continue
			}
			if _, done := out[field]; done {
				continue
			}
			if s := e.FieldSuggestions(ctx, field, RecordSuggestionLimit); len(s) > 0 {
				out[field] = s
			}
		}
	}

	for _, rule := range contextRules {
		if !rule.matches(rec) {
			continue
		}
		if s := e.FieldSuggestions(ctx, rule.target, ContextualSuggestionLimit); len(s) > 0 {
			out[rule.target] = s
		}
	}

	return out
}

// FieldSuggestions returns up to limit learned values for field
func (e *Engine) FieldSuggestions(ctx context.Context, field string, limit int) []domain.Suggestion {
	s, err := e.store.SuggestionsForField(ctx, field, limit)
	if err != nil {
		slog.Error("Failed to get field suggestions", "field", field, "err", err)
		return nil
	}
	return s
}

// PopularValues returns the most used values across all fields, ties broken
// by recency
func (e *Engine) PopularValues(ctx context.Context, limit int) []domain.ValueUsage {
	if limit <= 0 {
		limit = DefaultPopularLimit
	}
	values, ok := e.flatten(ctx)
	if !ok {
		return nil
	}

	sort.SliceStable(values, func(i, j int) bool {
		if values[i].UsageCount != values[j].UsageCount {
			return values[i].UsageCount > values[j].UsageCount
		}
		return values[i].LastUsed.After(values[j].LastUsed)
	})
	return truncate(values, limit)
}

// RecentValues returns values used within the last withinDays days, most
// recent first. Values with an unknown last use are left out.
func (e *Engine) RecentValues(ctx context.Context, withinDays, limit int) []domain.ValueUsage {
	if withinDays <= 0 {
		withinDays = DefaultRecentDays
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	values, ok := e.flatten(ctx)
	if !ok {
		return nil
	}

	cutoff := e.now().Add(-time.Duration(withinDays) * 24 * time.Hour)
	recent := values[:0]
	for _, v := range values {
		if v.LastUsed.IsZero() || v.LastUsed.Before(cutoff) {
			continue
		}
		recent = append(recent, v)
	}

	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].LastUsed.After(recent[j].LastUsed)
	})
	return truncate(recent, limit)
}

func (e *Engine) flatten(ctx context.Context) ([]domain.ValueUsage, bool) {
	all, err := e.store.AllSuggestions(ctx)
	if err != nil {
		slog.Error("Failed to load suggestions", "err", err)
		return nil, false
	}

	fields := make([]string, 0, len(all))
	for f := range all {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var values []domain.ValueUsage
	for _, f := range fields {
		for _, s := range all[f] {
			values = append(values, domain.ValueUsage{
				Field:      f,
				Value:      s.Value,
				UsageCount: s.UsageCount,
				LastUsed:   s.LastUsed,
			})
		}
	}
	return values, true
}

func truncate(values []domain.ValueUsage, limit int) []domain.ValueUsage {
	if len(values) > limit {
		return values[:limit]
	}
	return values
}

var recommendedFields = []struct {
	section string
	fields  []string
}{
	{domain.SectionEXIF, []string{"Artist", "Copyright", "ImageDescription"}},
	{domain.SectionCustom, []string{"Title", "Description", "Keywords", "Author"}},
}

// FieldRecommendations lists commonly expected fields that rec leaves empty
func (e *Engine) FieldRecommendations(rec domain.Record) []domain.Recommendation {
	var recs []domain.Recommendation
	for _, group := range recommendedFields {
		for _, field := range group.fields {
			if v, ok := rec.Field(group.section, field); ok && v.Truthy() {
				continue
			}
			priority := domain.PriorityMedium
			if field == "Artist" || field == "Copyright" {
				priority = domain.PriorityHigh
			}
			recs = append(recs, domain.Recommendation{
				Section:  group.section,
				Field:    field,
				Priority: priority,
				Reason:   "Missing " + field + " information",
			})
		}
	}

	if camera, ok := rec.Field(domain.SectionEXIF, "Make"); ok && !camera.Truthy() {
		recs = append(recs, domain.Recommendation{
			Section:  domain.SectionEXIF,
			Field:    "Model",
			Priority: domain.PriorityMedium,
			Reason:   "Camera model information is incomplete",
		})
	}
	return recs
}

// SavePreference caches value and persists it. The cache is updated even
// when the store write fails.
func (e *Engine) SavePreference(ctx context.Context, key string, value any) bool {
	e.mu.Lock()
	e.prefs[key] = value
	e.mu.Unlock()

	if err := e.store.SetPreference(ctx, key, value); err != nil {
		slog.Error("Failed to save preference", "key", key, "err", err)
		return false
	}
	return true
}

// Preference returns the cached value for key, falling back to the store and
// then to def
func (e *Engine) Preference(ctx context.Context, key string, def any) any {
	e.mu.RLock()
	v, ok := e.prefs[key]
	e.mu.RUnlock()
	if ok {
		return v
	}

	v, err := e.store.GetPreference(ctx, key, nil)
	if err != nil {
		slog.Error("Failed to get preference", "key", key, "err", err)
		return def
	}
	if v == nil {
		return def
	}

	e.mu.Lock()
	e.prefs[key] = v
	e.mu.Unlock()
	return v
}

func anyTruthy(rec domain.Record, field string) bool {
	for _, section := range rec {
		if v, ok := section[field]; ok && v.Truthy() {
			return true
		}
	}
	return false
}

func blankIn(rec domain.Record, section, field string) bool {
	v, ok := rec.Field(section, field)
	return !ok || v.IsBlank()
}
