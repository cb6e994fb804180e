// Package editor is the application core: it reads images into records,
// validates and writes edits, learns from accepted values and serves
// suggestions. The HTTP API and the CLI are thin layers over Service.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/anne-tanne/metadata-change-app/internal/classifier"
	"github.com/anne-tanne/metadata-change-app/internal/domain"
	"github.com/anne-tanne/metadata-change-app/internal/learning"
	"github.com/anne-tanne/metadata-change-app/internal/metadata"
	"github.com/anne-tanne/metadata-change-app/internal/scanner"
)

// FieldSuggestionLimit is how many values SuggestionsForField returns
const FieldSuggestionLimit = 10

// ExportJSON is the only export format
const ExportJSON = "json"

// Store is everything the service persists
type Store interface {
	learning.UsageStore
	learning.ValueRecorder
	RecordFolderAccess(ctx context.Context, path string) error
	RecentFolders(ctx context.Context, limit int) ([]domain.FolderAccess, error)
	PurgeStaleUsage(ctx context.Context, maxAgeDays int) (int64, error)
	Ping(ctx context.Context) error
}

// Options configure a Service
type Options struct {
	// Formats lists writable extensions; empty means metadata.DefaultFormats
	Formats []string
	// RejectInvalid blocks writes when validation reports any problem
	RejectInvalid bool
	BatchWorkers  int
	RetentionDays int
	// Now is the clock; nil means time.Now
	Now func() time.Time
}

// Service implements the editor operations
type Service struct {
	store      Store
	normalizer *metadata.Normalizer
	recorder   *learning.Recorder
	engine     *learning.Engine
	opts       Options
	now        func() time.Time
}

// New wires a Service over store and codec
func New(store Store, codec metadata.Codec, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.BatchWorkers <= 0 {
		opts.BatchWorkers = learning.DefaultBatchWorkers
	}
	return &Service{
		store:      store,
		normalizer: metadata.NewNormalizer(codec, opts.Formats),
		recorder:   learning.NewRecorder(store, classifier.NewHistory(), opts.BatchWorkers),
		engine:     learning.NewEngine(store, opts.Now),
		opts:       opts,
		now:        opts.Now,
	}
}

// Ping checks the store
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Patterns returns the pattern tags observed by this process
func (s *Service) Patterns() map[string][]domain.PatternTag {
	return s.recorder.History().Snapshot()
}

// MetadataView is an image's record with everything the editor shows next to it
type MetadataView struct {
	Path            string                         `json:"path" yaml:"path"`
	Metadata        domain.Record                  `json:"metadata" yaml:"metadata"`
	Suggestions     map[string][]domain.Suggestion `json:"suggestions" yaml:"suggestions"`
	Recommendations []domain.Recommendation        `json:"recommendations" yaml:"recommendations"`
}

// GetMetadataAndSuggestions reads path and attaches suggestions. A missing
// file is ErrNotFound; an unreadable one still yields the minimal record.
func (s *Service) GetMetadataAndSuggestions(ctx context.Context, path string) (*MetadataView, error) {
	if err := checkFile(path); err != nil {
		return nil, err
	}

	rec := s.normalizer.Read(ctx, path)
	recs := s.engine.FieldRecommendations(rec)
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	return &MetadataView{
		Path:            path,
		Metadata:        rec,
		Suggestions:     s.engine.SuggestionsFor(ctx, rec),
		Recommendations: recs,
	}, nil
}

// UpdateResult is the outcome of UpdateMetadata
type UpdateResult struct {
	Success  bool     `json:"success" yaml:"success"`
	Message  string   `json:"message,omitempty" yaml:"message,omitempty"`
	Error    string   `json:"error,omitempty" yaml:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	// Err carries the cause for callers that map failures to status codes
	Err error `json:"-" yaml:"-"`
}

// UpdateMetadata validates raw, writes it into path and learns from it once
// the write succeeded
func (s *Service) UpdateMetadata(ctx context.Context, path string, raw map[string]any) UpdateResult {
	res, rec := s.apply(ctx, path, raw)
	if res.Success {
		s.recorder.Learn(ctx, rec)
	}
	return res
}

// apply validates and writes raw without learning. The record is returned
// only on success.
func (s *Service) apply(ctx context.Context, path string, raw map[string]any) (UpdateResult, domain.Record) {
	if err := checkFile(path); err != nil {
		return UpdateResult{Error: "Image not found", Err: err}, nil
	}

	rec, problems := metadata.Decode(raw)
	if len(problems) > 0 && s.opts.RejectInvalid {
		slog.Warn("Rejected invalid metadata", "path", path, "problems", len(problems))
		return UpdateResult{
			Error:    "Invalid metadata",
			Warnings: problems,
			Err:      fmt.Errorf("%w: %s", domain.ErrInvalidRecord, strings.Join(problems, "; ")),
		}, nil
	}

	res := s.normalizer.Merge(ctx, path, rec)
	if !res.Success {
		msg := "Failed to update metadata"
		if errors.Is(res.Err, domain.ErrUnsupportedFormat) {
			msg = "Unsupported format"
		}
		return UpdateResult{Error: msg, Warnings: problems, Err: res.Err}, nil
	}

	slog.Info("Metadata updated", "path", path, "sections", len(rec))
	return UpdateResult{Success: true, Message: "Metadata updated successfully", Warnings: problems}, rec
}

// BatchUpdate is one entry of a batch
type BatchUpdate struct {
	Path     string         `json:"path"`
	Metadata map[string]any `json:"metadata"`
}

// BatchItemResult reports one batch entry
type BatchItemResult struct {
	Path    string `json:"path" yaml:"path"`
	Success bool   `json:"success" yaml:"success"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchReport summarizes a batch
type BatchReport struct {
	Results    []BatchItemResult `json:"results" yaml:"results"`
	Total      int               `json:"total" yaml:"total"`
	Successful int               `json:"successful" yaml:"successful"`
}

// BatchUpdate applies every update independently, then learns from the
// ones that were written. Updates of the same file run in input order so
// the last one wins; different files run concurrently. Results keep input
// order.
func (s *Service) BatchUpdate(ctx context.Context, updates []BatchUpdate) BatchReport {
	results := make([]BatchItemResult, len(updates))
	written := make([]domain.Record, len(updates))

	var files []string
	byFile := make(map[string][]int)
	for i, u := range updates {
		key := filepath.Clean(u.Path)
		if _, ok := byFile[key]; !ok {
			files = append(files, key)
		}
		byFile[key] = append(byFile[key], i)
	}

	var g errgroup.Group
	g.SetLimit(s.opts.BatchWorkers)
	for _, file := range files {
		g.Go(func() error {
			for _, i := range byFile[file] {
				u := updates[i]
				res, rec := s.apply(ctx, u.Path, u.Metadata)
				results[i] = BatchItemResult{Path: u.Path, Success: res.Success}
				if res.Success {
					written[i] = rec
					continue
				}
				results[i].Error = res.Error
				if res.Err != nil {
					results[i].Error = res.Err.Error()
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	var items []learning.BatchItem
	for i, rec := range written {
		if rec != nil {
			items = append(items, learning.BatchItem{ID: updates[i].Path, Record: rec})
		}
	}
	for _, lr := range s.recorder.LearnBatch(ctx, items) {
		if !lr.Success {
			slog.Warn("Batch learning incomplete", "path", lr.ID, "err", lr.Error)
		}
	}

	report := BatchReport{Results: results, Total: len(results)}
	for _, r := range results {
		if r.Success {
			report.Successful++
		}
	}
	return report
}

// FieldSuggestions is the answer to a single-field lookup
type FieldSuggestions struct {
	Field       string              `json:"field" yaml:"field"`
	Suggestions []domain.Suggestion `json:"suggestions" yaml:"suggestions"`
}

// SuggestionsForField returns learned values for one field
func (s *Service) SuggestionsForField(ctx context.Context, field string) FieldSuggestions {
	sg := s.engine.FieldSuggestions(ctx, field, FieldSuggestionLimit)
	if sg == nil {
		sg = []domain.Suggestion{}
	}
	return FieldSuggestions{Field: field, Suggestions: sg}
}

// ExportItem is one exported image
type ExportItem struct {
	Path     string        `json:"path" yaml:"path"`
	Filename string        `json:"filename" yaml:"filename"`
	Metadata domain.Record `json:"metadata" yaml:"metadata"`
}

// Export is a metadata export of several images
type Export struct {
	ID        string       `json:"id" yaml:"id"`
	Format    string       `json:"format" yaml:"format"`
	Data      []ExportItem `json:"data" yaml:"data"`
	Timestamp time.Time    `json:"timestamp" yaml:"timestamp"`
}

// ExportMetadata reads every existing path. Missing paths are skipped. An
// empty format means json; anything else is ErrUnsupportedFormat.
func (s *Service) ExportMetadata(ctx context.Context, paths []string, format string) (*Export, error) {
	if format == "" {
		format = ExportJSON
	}
	if format != ExportJSON {
		return nil, fmt.Errorf("export %q: %w", format, domain.ErrUnsupportedFormat)
	}

	data := make([]ExportItem, 0, len(paths))
	for _, p := range paths {
		if err := checkFile(p); err != nil {
			slog.Warn("Skipping export of missing image", "path", p)
			continue
		}
		data = append(data, ExportItem{
			Path:     p,
			Filename: filepath.Base(p),
			Metadata: s.normalizer.Read(ctx, p),
		})
	}

	return &Export{ID: uuid.NewString(), Format: format, Data: data, Timestamp: s.now()}, nil
}

// ImageEntry is one image of a folder scan
type ImageEntry struct {
	Path     string        `json:"path" yaml:"path"`
	Filename string        `json:"filename" yaml:"filename"`
	Metadata domain.Record `json:"metadata" yaml:"metadata"`
	Size     int64         `json:"size" yaml:"size"`
	Modified time.Time     `json:"modified" yaml:"modified"`
}

// FolderScan is the result of ScanFolder
type FolderScan struct {
	Folder     string        `json:"folder" yaml:"folder"`
	Images     []ImageEntry  `json:"images" yaml:"images"`
	TotalCount int           `json:"total_count" yaml:"total_count"`
	Stats      scanner.Stats `json:"stats" yaml:"stats"`
}

// ScanFolder lists the images below folder with their metadata and records
// the visit. An image that disappears mid-scan is skipped.
func (s *Service) ScanFolder(ctx context.Context, folder string) (*FolderScan, error) {
	if abs, err := filepath.Abs(folder); err == nil {
		folder = abs
	}

	paths, err := scanner.Scan(ctx, folder)
	if err != nil {
		return nil, err
	}
	if err := s.store.RecordFolderAccess(ctx, folder); err != nil {
		slog.Warn("Failed to record folder access", "folder", folder, "err", err)
	}

	images := make([]ImageEntry, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := os.Stat(p)
		if err != nil {
			slog.Error("Error processing image", "path", p, "err", err)
			continue
		}
		images = append(images, ImageEntry{
			Path:     p,
			Filename: filepath.Base(p),
			Metadata: s.normalizer.Read(ctx, p),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	slog.Info("Processed folder", "folder", folder, "images", len(images))
	return &FolderScan{
		Folder:     folder,
		Images:     images,
		TotalCount: len(images),
		Stats:      scanner.FolderStats(paths),
	}, nil
}

// RecentFolders lists recently opened folders; store errors yield none
func (s *Service) RecentFolders(ctx context.Context, limit int) []domain.FolderAccess {
	if limit <= 0 {
		limit = 10
	}
	folders, err := s.store.RecentFolders(ctx, limit)
	if err != nil {
		slog.Error("Failed to load recent folders", "err", err)
		return []domain.FolderAccess{}
	}
	if folders == nil {
		folders = []domain.FolderAccess{}
	}
	return folders
}

// PopularValues lists the most used values across fields
func (s *Service) PopularValues(ctx context.Context, limit int) []domain.ValueUsage {
	return nonNil(s.engine.PopularValues(ctx, limit))
}

// RecentValues lists values used within the last days
func (s *Service) RecentValues(ctx context.Context, days, limit int) []domain.ValueUsage {
	return nonNil(s.engine.RecentValues(ctx, days, limit))
}

// Recommendations decodes raw and lists the fields worth filling in. The
// second result holds validation problems of raw.
func (s *Service) Recommendations(raw map[string]any) ([]domain.Recommendation, []string) {
	rec, problems := metadata.Decode(raw)
	recs := s.engine.FieldRecommendations(rec)
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	return recs, problems
}

// SetPreference stores a user preference
func (s *Service) SetPreference(ctx context.Context, key string, value any) bool {
	return s.engine.SavePreference(ctx, key, value)
}

// Preference reads a user preference
func (s *Service) Preference(ctx context.Context, key string, def any) any {
	return s.engine.Preference(ctx, key, def)
}

// PurgeStale removes values unused for the configured retention period
func (s *Service) PurgeStale(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeStaleUsage(ctx, s.opts.RetentionDays)
	if err != nil {
		return 0, fmt.Errorf("purge stale values: %w", err)
	}
	slog.Info("Purged stale values", "removed", n)
	return n, nil
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("image %s: %w", path, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("image %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("image %s: %w", path, domain.ErrNotFound)
	}
	return nil
}

func nonNil(v []domain.ValueUsage) []domain.ValueUsage {
	if v == nil {
		return []domain.ValueUsage{}
	}
	return v
}
