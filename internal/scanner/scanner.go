// Package scanner finds image files in a folder tree.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".tiff": true, ".tif": true,
	".bmp": true, ".webp": true, ".gif": true, ".heic": true, ".heif": true,
	".raw": true, ".cr2": true, ".nef": true, ".arw": true,
}

// IsImage reports whether path looks like an image, by extension first and
// then by registered MIME type
func IsImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if imageExtensions[ext] {
		return true
	}
	if ext == "" {
		return false
	}
	return strings.HasPrefix(mime.TypeByExtension(ext), "image/")
}

// Scan walks root and returns every image file below it, sorted. Subtrees
// that cannot be read are skipped.
func Scan(ctx context.Context, root string) ([]string, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("scan %s: %w", root, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: %w", root, domain.ErrNotDirectory)
	}

	var images []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("Skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() && IsImage(path) {
			images = append(images, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	sort.Strings(images)
	slog.Info("Scanned folder", "folder", root, "images", len(images))
	return images, nil
}

// Stats summarizes a list of image files
type Stats struct {
	TotalFiles           int            `json:"total_files" yaml:"total_files"`
	TotalSize            int64          `json:"total_size" yaml:"total_size"`
	TotalSizeFormatted   string         `json:"total_size_formatted" yaml:"total_size_formatted"`
	Extensions           map[string]int `json:"extensions" yaml:"extensions"`
	LargestFile          string         `json:"largest_file,omitempty" yaml:"largest_file,omitempty"`
	SmallestFile         string         `json:"smallest_file,omitempty" yaml:"smallest_file,omitempty"`
	AverageSize          float64        `json:"average_size" yaml:"average_size"`
	AverageSizeFormatted string         `json:"average_size_formatted" yaml:"average_size_formatted"`
}

// FolderStats computes Stats over paths. Files that cannot be stat'ed count
// with size zero.
func FolderStats(paths []string) Stats {
	st := Stats{Extensions: make(map[string]int), TotalSizeFormatted: "0 B", AverageSizeFormatted: "0 B"}
	if len(paths) == 0 {
		return st
	}

	type sized struct {
		path string
		size int64
	}
	files := make([]sized, 0, len(paths))
	for _, p := range paths {
		var size int64
		if info, err := os.Stat(p); err == nil {
			size = info.Size()
		} else {
			slog.Warn("Cannot stat image", "path", p, "err", err)
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext == "" {
			ext = "unknown"
		}
		st.Extensions[ext]++
		st.TotalSize += size
		files = append(files, sized{path: p, size: size})
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].size < files[j].size })
	st.TotalFiles = len(files)
	st.SmallestFile = files[0].path
	st.LargestFile = files[len(files)-1].path
	st.TotalSizeFormatted = FormatSize(float64(st.TotalSize))
	st.AverageSize = float64(st.TotalSize) / float64(len(files))
	st.AverageSizeFormatted = FormatSize(st.AverageSize)
	return st
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatSize renders a byte count with a binary unit, rounded to two decimals
func FormatSize(bytes float64) string {
	if bytes <= 0 {
		return "0 B"
	}
	i := int(math.Floor(math.Log(bytes) / math.Log(1024)))
	i = max(0, min(i, len(sizeUnits)-1))
	v := math.Round(bytes/math.Pow(1024, float64(i))*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}
