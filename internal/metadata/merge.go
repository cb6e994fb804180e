package metadata

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

// SectionWrite is the outcome of writing one section
type SectionWrite struct {
	Section string `json:"section"`
	Error   string `json:"error,omitempty"`
}

// MergeResult reports a merge. Success is true only when every attempted
// section write succeeded. Sections written before a failure stay written:
// there is no rollback across sections.
type MergeResult struct {
	Success bool           `json:"success"`
	Writes  []SectionWrite `json:"writes,omitempty"`
	Err     error          `json:"-"`
}

// Merge writes the EXIF, IPTC and XMP sections of updated into path.
// Other sections are left to the caller (they are learned, not written).
func (n *Normalizer) Merge(ctx context.Context, path string, updated domain.Record) MergeResult {
	if !n.Supported(path) {
		slog.Warn("Cannot update metadata for unsupported format", "path", path, "ext", filepath.Ext(path))
		return MergeResult{Err: fmt.Errorf("write %s: %w", filepath.Ext(path), domain.ErrUnsupportedFormat)}
	}

	result := MergeResult{Success: true}
	for _, name := range WritableSections {
		fields, ok := updated[name]
		if !ok {
			continue
		}

		write := SectionWrite{Section: name}
		if err := n.codec.Write(ctx, path, name, fields); err != nil {
			slog.Error("Section write failed", "path", path, "section", name, "err", err)
			write.Error = err.Error()
			result.Success = false
			if result.Err == nil {
				result.Err = fmt.Errorf("write %s: %w", name, err)
			}
		}
		result.Writes = append(result.Writes, write)
	}

	return result
}
