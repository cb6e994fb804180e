// Package learning records accepted metadata values and turns the recorded
// usage into suggestions and field recommendations.
package learning

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/anne-tanne/metadata-change-app/internal/classifier"
	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

// DefaultBatchWorkers bounds LearnBatch concurrency when none is configured
const DefaultBatchWorkers = 4

// ValueRecorder counts uses of (field, value) pairs
type ValueRecorder interface {
	RecordValue(ctx context.Context, field, value string) error
}

// Recorder feeds accepted records into the usage store and the pattern
// history. The history lives as long as the Recorder and is not shared
// between processes.
type Recorder struct {
	store   ValueRecorder
	history *classifier.History
	workers int
}

// NewRecorder creates a Recorder. A nil history starts a fresh one.
func NewRecorder(store ValueRecorder, history *classifier.History, workers int) *Recorder {
	if history == nil {
		history = classifier.NewHistory()
	}
	if workers <= 0 {
		workers = DefaultBatchWorkers
	}
	return &Recorder{store: store, history: history, workers: workers}
}

// History exposes the pattern tags observed so far
func (r *Recorder) History() *classifier.History {
	return r.history
}

// Learn records every non-blank field of rec. Store failures are logged and
// skipped so that one bad write never stops the rest. It returns false only
// when ctx ends before every field was visited.
func (r *Recorder) Learn(ctx context.Context, rec domain.Record) bool {
	learned, failed := 0, 0
	for _, section := range sortedSections(rec) {
		for _, field := range sortedFields(rec[section]) {
			if ctx.Err() != nil {
				slog.Warn("Learning interrupted", "learned", learned, "err", ctx.Err())
				return false
			}

			value := rec[section][field]
			if value.IsBlank() {
				continue
			}

			if err := r.store.RecordValue(ctx, field, value.String()); err != nil {
				slog.Warn("Failed to record value", "section", section, "field", field, "err", err)
				failed++
			} else {
				learned++
			}
			r.history.Observe(field, value.String())
		}
	}

	slog.Debug("Learned from metadata", "learned", learned, "failed", failed)
	return true
}

// BatchItem is one record of a batch, identified by the caller
type BatchItem struct {
	ID     string
	Record domain.Record
}

// BatchResult is the outcome for one BatchItem
type BatchResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// LearnBatch learns each item independently and returns results in input
// order. Each worker writes only its own result slot.
func (r *Recorder) LearnBatch(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, len(items))

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, item := range items {
		g.Go(func() error {
			results[i] = BatchResult{ID: item.ID, Success: true}
			if !r.Learn(ctx, item.Record) {
				results[i].Success = false
				results[i].Error = fmt.Sprintf("learning cancelled: %v", ctx.Err())
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func sortedSections(rec domain.Record) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedFields(s domain.Section) []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
