// Package metadata turns codec output into uniform sectioned records,
// validates incoming edits and writes them back through a Codec.
package metadata

import (
	"context"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

// Extraction is the raw result of reading an image: section name to
// field name to whatever the codec decoded.
type Extraction struct {
	Path     string
	Sections map[string]map[string]any
}

// Codec reads and writes embedded image metadata
type Codec interface {
	Extract(ctx context.Context, path string) (*Extraction, error)
	Write(ctx context.Context, path, section string, fields domain.Section) error
}

// WritableSections lists the sections a merge sends to the codec, in order
var WritableSections = []string{domain.SectionEXIF, domain.SectionIPTC, domain.SectionXMP}

// DefaultFormats are the file extensions metadata can be written to
var DefaultFormats = []string{".jpg", ".jpeg", ".png", ".tiff", ".tif", ".bmp", ".webp"}
