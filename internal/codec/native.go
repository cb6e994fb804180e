package codec

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
	"github.com/anne-tanne/metadata-change-app/internal/metadata"
)

// Native reads EXIF in-process. It has no write path.
type Native struct{}

// NewNative returns the in-process reader
func NewNative() *Native {
	return &Native{}
}

// Extract returns the File section plus every EXIF tag goexif knows.
// Files without EXIF (PNG, BMP, ...) yield only the File section.
func (n *Native) Extract(ctx context.Context, path string) (*metadata.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := FileSection(path)
	if err != nil {
		return nil, err
	}
	sections := map[string]map[string]any{domain.SectionFile: file}

	fields, err := readExif(path)
	if err != nil {
		slog.Debug("No EXIF data", "path", path, "err", err)
	} else if len(fields) > 0 {
		sections[domain.SectionEXIF] = fields
	}

	return &metadata.Extraction{Path: path, Sections: sections}, nil
}

// Write always fails: goexif cannot encode
func (n *Native) Write(ctx context.Context, path, section string, fields domain.Section) error {
	return fmt.Errorf("write %s with native codec: %w", section, domain.ErrUnsupportedFormat)
}

// Close releases nothing
func (n *Native) Close() error { return nil }

// readExif never panics: a malformed tag becomes an error for this file only
func readExif(path string) (fields map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			fields, err = nil, fmt.Errorf("read exif: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode exif: %w", err)
	}

	w := tagWalker{fields: make(map[string]any)}
	if err := x.Walk(&w); err != nil {
		return nil, fmt.Errorf("walk exif: %w", err)
	}

	if lat, long, err := x.LatLong(); err == nil && finite(lat) && finite(long) {
		w.fields["GPSLatitude"] = round6(lat)
		w.fields["GPSLongitude"] = round6(long)
	}
	return w.fields, nil
}

type tagWalker struct {
	fields map[string]any
}

func (w *tagWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if v, ok := tagValue(tag); ok {
		w.fields[string(name)] = v
	}
	return nil
}

// tagValue converts single-valued tags to Go scalars and everything else
// to goexif's text rendering
func tagValue(tag *tiff.Tag) (any, bool) {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err != nil {
			return nil, false
		}
		return s, true
	case tiff.IntVal:
		if tag.Count == 1 {
			if n, err := tag.Int64(0); err == nil {
				return n, true
			}
		}
	case tiff.RatVal:
		if tag.Count == 1 {
			num, den, err := tag.Rat2(0)
			if err != nil {
				break
			}
			// 0/0 means unknown
			if den == 0 {
				return fmt.Sprintf("%d/%d", num, den), true
			}
			return float64(num) / float64(den), true
		}
	case tiff.FloatVal:
		if tag.Count == 1 {
			if f, err := tag.Float(0); err == nil {
				return f, true
			}
		}
	case tiff.UndefVal:
		return tag.Val, true
	}
	return tag.String(), true
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
