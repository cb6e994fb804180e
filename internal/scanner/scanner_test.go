package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

func touch(t *testing.T, path string, size int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
}

func TestScan(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.JPG"), 10)
	touch(t, filepath.Join(root, "a.png"), 20)
	touch(t, filepath.Join(root, "notes.txt"), 5)
	touch(t, filepath.Join(root, "raw", "IMG_0001.CR2"), 30)
	touch(t, filepath.Join(root, "raw", "deep", "c.webp"), 1)
	touch(t, filepath.Join(root, "noext"), 1)

	got, err := Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.png"),
		filepath.Join(root, "b.JPG"),
		filepath.Join(root, "raw", "IMG_0001.CR2"),
		filepath.Join(root, "raw", "deep", "c.webp"),
	}, got)
}

func TestScan_Empty(t *testing.T) {
	got, err := Scan(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScan_Errors(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.jpg")
	touch(t, file, 1)

	_, err := Scan(context.Background(), filepath.Join(root, "missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = Scan(context.Background(), file)
	assert.ErrorIs(t, err, domain.ErrNotDirectory)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("x/photo.jpeg"))
	assert.True(t, IsImage("x/photo.HEIC"))
	assert.True(t, IsImage("x/icon.svg"), "falls back to the MIME type")
	assert.False(t, IsImage("x/readme.md"))
	assert.False(t, IsImage("x/Makefile"))
}

func TestFolderStats(t *testing.T) {
	root := t.TempDir()
	small := filepath.Join(root, "small.jpg")
	big := filepath.Join(root, "big.png")
	mid := filepath.Join(root, "mid.jpg")
	touch(t, small, 100)
	touch(t, big, 3000)
	touch(t, mid, 1000)

	st := FolderStats([]string{small, big, mid})
	assert.Equal(t, 3, st.TotalFiles)
	assert.Equal(t, int64(4100), st.TotalSize)
	assert.Equal(t, map[string]int{".jpg": 2, ".png": 1}, st.Extensions)
	assert.Equal(t, small, st.SmallestFile)
	assert.Equal(t, big, st.LargestFile)
	assert.InDelta(t, 1366.67, st.AverageSize, 0.01)
	assert.Equal(t, "4 KB", st.TotalSizeFormatted)
}

func TestFolderStats_Empty(t *testing.T) {
	st := FolderStats(nil)
	assert.Zero(t, st.TotalFiles)
	assert.Equal(t, "0 B", st.TotalSizeFormatted)
	assert.Empty(t, st.LargestFile)
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes float64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5 MB"},
		{1234567890, "1.15 GB"},
		{1 << 50, "1024 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatSize(tt.bytes))
	}
}
