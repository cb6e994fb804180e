package classifier

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		value string
		want  []domain.PatternTag
	}{
		{"john@example.com", []domain.PatternTag{domain.TagEmail}},
		{"123 Main Street", []domain.PatternTag{domain.TagDate, domain.TagLocation}},
		{"42", nil},
		{"1234567", nil},
		{"2024:05:01 10:00:00", []domain.PatternTag{domain.TagDate}},
		{"  Dr. Smith  ", []domain.PatternTag{domain.TagName}},
		{"mrsfoo", []domain.PatternTag{domain.TagName}},
		{"NEW YORK CITY", []domain.PatternTag{domain.TagLocation}},
		{"Camera", nil},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.value))
		})
	}
}

func TestHistory_AppendsWithoutDeduplicating(t *testing.T) {
	h := NewHistory()

	assert.Equal(t, []domain.PatternTag{domain.TagEmail}, h.Observe("Contact", "a@b.co"))
	h.Observe("Contact", "c@d.io")
	assert.Nil(t, h.Observe("Contact", "none"))

	snap := h.Snapshot()
	assert.Equal(t, map[string][]domain.PatternTag{
		"Contact": {domain.TagEmail, domain.TagEmail},
	}, snap)

	snap["Contact"][0] = domain.TagName
	assert.Equal(t, domain.TagEmail, h.Snapshot()["Contact"][0], "snapshot must be a copy")
}

func TestHistory_ConcurrentObserve(t *testing.T) {
	h := NewHistory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Observe("Location", "Main Street")
		}()
	}
	wg.Wait()

	assert.Len(t, h.Snapshot()["Location"], 50)
}
