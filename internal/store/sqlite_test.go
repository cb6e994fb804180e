package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	s, err := New(filepath.Join(t.TempDir(), "usage.db"), Options{Now: clock.Now})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestRecordValue_IncrementsAndRefreshesLastUsed(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	var last time.Time
	for i := 0; i < 4; i++ {
		clock.Advance(time.Minute)
		last = clock.Now()
		require.NoError(t, s.RecordValue(ctx, "Artist", "Jane Doe"))
	}

	got, err := s.SuggestionsForField(ctx, "Artist", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Jane Doe", got[0].Value)
	assert.Equal(t, 4, got[0].UsageCount)
	assert.True(t, last.Equal(got[0].LastUsed), "last used %v, want %v", got[0].LastUsed, last)
}

func TestRecordValue_KeysAreCaseSensitive(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordValue(ctx, "Artist", "jane"))
	require.NoError(t, s.RecordValue(ctx, "Artist", "Jane"))
	require.NoError(t, s.RecordValue(ctx, "artist", "Jane"))

	got, err := s.SuggestionsForField(ctx, "Artist", 10)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSuggestionsForField_Ranking(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	record := func(value string, n int) {
		for i := 0; i < n; i++ {
			require.NoError(t, s.RecordValue(ctx, "Keywords", value))
		}
		clock.Advance(time.Hour)
	}
	record("A", 5)
	record("B", 5)
	record("C", 7)
	record("D", 1)

	got, err := s.SuggestionsForField(ctx, "Keywords", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "C", got[0].Value)
	assert.Equal(t, "B", got[1].Value, "equal counts are broken by recency")
	assert.Equal(t, "A", got[2].Value)
}

func TestSuggestionsForField_UnknownField(t *testing.T) {
	s, _ := newTestStore(t)

	got, err := s.SuggestionsForField(context.Background(), "Nope", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAllSuggestions_GroupsByField(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordValue(ctx, "Make", "Canon"))
	clock.Advance(time.Second)
	require.NoError(t, s.RecordValue(ctx, "Make", "Nikon"))
	require.NoError(t, s.RecordValue(ctx, "Make", "Nikon"))
	require.NoError(t, s.RecordValue(ctx, "Model", "EOS R5"))

	all, err := s.AllSuggestions(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Len(t, all["Make"], 2)
	assert.Equal(t, "Nikon", all["Make"][0].Value)
	assert.Equal(t, 2, all["Make"][0].UsageCount)
	assert.Equal(t, "EOS R5", all["Model"][0].Value)
}

func TestSuggestions_UnparseableTimestampIsZero(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.Exec(`INSERT INTO usage_entries (id, field_name, field_value, usage_count, last_used, created_at)
		VALUES ('x', 'Title', 'Legacy', 2, 'not a time', 'not a time')`)
	require.NoError(t, err)

	got, err := s.SuggestionsForField(ctx, "Title", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].LastUsed.IsZero())
}

func TestPurgeStaleUsage(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordValue(ctx, "Artist", "old"))
	clock.Advance(40 * 24 * time.Hour)
	require.NoError(t, s.RecordValue(ctx, "Artist", "fresh"))

	removed, err := s.PurgeStaleUsage(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	got, err := s.SuggestionsForField(ctx, "Artist", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].Value)
}

func TestPurgeStaleUsage_DefaultsToThirtyDays(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordValue(ctx, "Artist", "recent"))
	clock.Advance(29 * 24 * time.Hour)

	removed, err := s.PurgeStaleUsage(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestPreferences(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		value any
		want  any
	}{
		{name: "object", value: map[string]any{"theme": "dark"}, want: map[string]any{"theme": "dark"}},
		{name: "array", value: []string{"EXIF", "IPTC"}, want: []any{"EXIF", "IPTC"}},
		{name: "string", value: "grid", want: "grid"},
		{name: "number", value: 12, want: float64(12)},
		{name: "bool", value: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, s.SetPreference(ctx, tt.name, tt.value))
			got, err := s.GetPreference(ctx, tt.name, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreferences_OverwriteDefaultAndRawText(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetPreference(ctx, "view", "list"))
	require.NoError(t, s.SetPreference(ctx, "view", "grid"))
	got, err := s.GetPreference(ctx, "view", nil)
	require.NoError(t, err)
	assert.Equal(t, "grid", got)

	got, err = s.GetPreference(ctx, "missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)

	_, err = s.db.Exec(`INSERT INTO preferences (key, value, updated_at) VALUES ('legacy', 'plain words', '')`)
	require.NoError(t, err)
	got, err = s.GetPreference(ctx, "legacy", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain words", got)
}

func TestFolderAccess(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordFolderAccess(ctx, "/photos/a"))
	clock.Advance(time.Minute)
	require.NoError(t, s.RecordFolderAccess(ctx, "/photos/b"))
	clock.Advance(time.Minute)
	require.NoError(t, s.RecordFolderAccess(ctx, "/photos/a"))

	got, err := s.RecentFolders(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "/photos/a", got[0].Path)
	assert.Equal(t, 2, got[0].AccessCount)
	assert.Equal(t, "/photos/b", got[1].Path)

	got, err = s.RecentFolders(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRecordValue_ConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	const writers = 25
	var wg sync.WaitGroup
	errs := make(chan error, 2*writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- s.RecordValue(ctx, "Copyright", "© Studio")
			errs <- s.RecordValue(ctx, "Other", fmt.Sprintf("v%d", i%5))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.SuggestionsForField(ctx, "Copyright", 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, writers, got[0].UsageCount)
}

func TestOperations_FailAfterClose(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Close())

	ctx := context.Background()
	assert.Error(t, s.RecordValue(ctx, "Artist", "x"))
	_, err := s.SuggestionsForField(ctx, "Artist", 5)
	assert.Error(t, err)
	got, err := s.GetPreference(ctx, "k", "def")
	assert.Error(t, err)
	assert.Equal(t, "def", got)
}
