package codec

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/barasher/go-exiftool"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
	"github.com/anne-tanne/metadata-change-app/internal/metadata"
)

// ExifToolOptions configure the exiftool process
type ExifToolOptions struct {
	// BinaryPath overrides the exiftool executable looked up on PATH
	BinaryPath string
	// BackupOriginals keeps a <name>_original copy on every write
	BackupOriginals bool
}

// ExifTool talks to a single stay-open exiftool process. Calls are
// serialized because the process has one stdin/stdout pipe.
type ExifTool struct {
	mu sync.Mutex
	et *exiftool.Exiftool
}

// NewExifTool starts exiftool
func NewExifTool(opts ExifToolOptions) (*ExifTool, error) {
	options := []func(*exiftool.Exiftool) error{exiftool.PrintGroupNames("0")}
	if opts.BinaryPath != "" {
		options = append(options, exiftool.SetExiftoolBinaryPath(opts.BinaryPath))
	}
	if opts.BackupOriginals {
		options = append(options, exiftool.BackupOriginal())
	}

	et, err := exiftool.NewExiftool(options...)
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return &ExifTool{et: et}, nil
}

// Extract reads every EXIF, IPTC and XMP tag of path
func (e *ExifTool) Extract(ctx context.Context, path string) (*metadata.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := FileSection(path)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	results := e.et.ExtractMetadata(path)
	e.mu.Unlock()

	if len(results) == 0 {
		return nil, fmt.Errorf("extract %s: no result", path)
	}
	if results[0].Err != nil {
		return nil, fmt.Errorf("extract %s: %w", path, results[0].Err)
	}

	sections := map[string]map[string]any{domain.SectionFile: file}
	for key, v := range results[0].Fields {
		group, field, ok := strings.Cut(key, ":")
		if !ok || !isWritable(group) {
			continue
		}
		if sections[group] == nil {
			sections[group] = make(map[string]any)
		}
		sections[group][field] = v
	}

	return &metadata.Extraction{Path: path, Sections: sections}, nil
}

// Write sets the given fields of one section. A blank value removes the tag.
func (e *ExifTool) Write(ctx context.Context, path, section string, fields domain.Section) error {
	if !isWritable(section) {
		return fmt.Errorf("write section %s: %w", section, domain.ErrUnsupportedFormat)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	fm := exiftool.FileMetadata{File: path, Fields: make(map[string]interface{}, len(fields))}
	for field, v := range fields {
		fm.SetString(section+":"+field, v.String())
	}

	batch := []exiftool.FileMetadata{fm}
	e.mu.Lock()
	e.et.WriteMetadata(batch)
	e.mu.Unlock()

	if err := batch[0].Err; err != nil {
		return fmt.Errorf("write %s %s: %w", section, path, err)
	}
	return nil
}

// Close stops the exiftool process
func (e *ExifTool) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.et.Close()
}

func isWritable(section string) bool {
	for _, s := range metadata.WritableSections {
		if s == section {
			return true
		}
	}
	return false
}
