package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

//go:embed schema.sql
var schema string

// DefaultRetentionDays is the age after which unused values are purged
const DefaultRetentionDays = 30

// DefaultTimeout bounds every store operation
const DefaultTimeout = 5 * time.Second

// Timestamps are stored as fixed-width UTC text so that lexical order in
// SQL matches chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

// Options tune a Store
type Options struct {
	// Timeout bounds each operation; zero means DefaultTimeout.
	Timeout time.Duration
	// Now is the clock used for timestamps; nil means time.Now.
	Now func() time.Time
}

// Store persists usage counters, preferences and folder history
type Store struct {
	db      *sql.DB
	timeout time.Duration
	now     func() time.Time
}

// New opens (or creates) the database at dbPath
func New(dbPath string, opts Options) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one writer at a time; waits are bounded by the per-call timeout
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &Store{db: db, timeout: opts.Timeout, now: opts.Now}
	if s.timeout <= 0 {
		s.timeout = DefaultTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Store) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

// RecordValue counts one use of value for field. The increment is a single
// upsert statement so concurrent writers never lose updates.
func (s *Store) RecordValue(ctx context.Context, field, value string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := s.stamp()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_entries (id, field_name, field_value, usage_count, last_used, created_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT (field_name, field_value) DO UPDATE SET
			usage_count = usage_count + 1,
			last_used = excluded.last_used
	`, uuid.New().String(), field, value, now, now)
	if err != nil {
		return fmt.Errorf("record value: %w", err)
	}
	return nil
}

// SuggestionsForField returns the most used values for field, most recent
// first among equal counts
func (s *Store) SuggestionsForField(ctx context.Context, field string, limit int) ([]domain.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT field_value, usage_count, last_used
		FROM usage_entries
		WHERE field_name = ?
		ORDER BY usage_count DESC, last_used DESC
		LIMIT ?
	`, field, limit)
	if err != nil {
		return nil, fmt.Errorf("field suggestions: %w", err)
	}
	defer rows.Close()

	var suggestions []domain.Suggestion
	for rows.Next() {
		var sg domain.Suggestion
		var lastUsed string
		if err := rows.Scan(&sg.Value, &sg.UsageCount, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		sg.LastUsed = parseTime(lastUsed)
		suggestions = append(suggestions, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("field suggestions: %w", err)
	}

	return suggestions, nil
}

// AllSuggestions returns every learned value grouped by field
func (s *Store) AllSuggestions(ctx context.Context) (map[string][]domain.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT field_name, field_value, usage_count, last_used
		FROM usage_entries
		ORDER BY field_name, usage_count DESC, last_used DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("all suggestions: %w", err)
	}
	defer rows.Close()

	all := make(map[string][]domain.Suggestion)
	for rows.Next() {
		var field, lastUsed string
		var sg domain.Suggestion
		if err := rows.Scan(&field, &sg.Value, &sg.UsageCount, &lastUsed); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		sg.LastUsed = parseTime(lastUsed)
		all[field] = append(all[field], sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("all suggestions: %w", err)
	}

	return all, nil
}

// PurgeStaleUsage deletes values not used within maxAgeDays
func (s *Store) PurgeStaleUsage(ctx context.Context, maxAgeDays int) (int64, error) {
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultRetentionDays
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := s.now().Add(-time.Duration(maxAgeDays) * 24 * time.Hour).UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, "DELETE FROM usage_entries WHERE last_used < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge usage: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge usage: %w", err)
	}
	return n, nil
}

// SetPreference stores value as JSON under key, replacing any previous value
func (s *Store) SetPreference(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode preference: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), s.stamp())
	if err != nil {
		return fmt.Errorf("save preference: %w", err)
	}
	return nil
}

// GetPreference returns the decoded value stored under key, or def when the
// key is absent. Text that is not valid JSON is returned verbatim.
func (s *Store) GetPreference(ctx context.Context, key string, def any) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT value FROM preferences WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("get preference: %w", err)
	}
	if !raw.Valid {
		return nil, nil
	}

	var value any
	if err := json.Unmarshal([]byte(raw.String), &value); err != nil {
		return raw.String, nil
	}
	return value, nil
}

// RecordFolderAccess counts one visit of a folder
func (s *Store) RecordFolderAccess(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO folder_access (path, access_count, last_accessed) VALUES (?, 1, ?)
		ON CONFLICT (path) DO UPDATE SET
			access_count = access_count + 1,
			last_accessed = excluded.last_accessed
	`, path, s.stamp())
	if err != nil {
		return fmt.Errorf("record folder access: %w", err)
	}
	return nil
}

// RecentFolders returns the most recently opened folders
func (s *Store) RecentFolders(ctx context.Context, limit int) ([]domain.FolderAccess, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, access_count, last_accessed
		FROM folder_access
		ORDER BY last_accessed DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent folders: %w", err)
	}
	defer rows.Close()

	var folders []domain.FolderAccess
	for rows.Next() {
		var f domain.FolderAccess
		var lastAccessed string
		if err := rows.Scan(&f.Path, &f.AccessCount, &lastAccessed); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		f.LastAccessed = parseTime(lastAccessed)
		folders = append(folders, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent folders: %w", err)
	}

	return folders, nil
}

// parseTime accepts the store layout plus the formats older databases used.
// Unparseable text yields the zero time.
func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
