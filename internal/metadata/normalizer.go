package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
)

// sections kept from an extraction
var knownSections = map[string]bool{
	domain.SectionFile: true,
	domain.SectionEXIF: true,
	domain.SectionIPTC: true,
	domain.SectionXMP:  true,
}

// Normalizer converts codec output into records and merges edits back
type Normalizer struct {
	codec   Codec
	formats map[string]bool
}

// NewNormalizer creates a Normalizer writing through codec. formats lists
// writable extensions; empty means DefaultFormats.
func NewNormalizer(codec Codec, formats []string) *Normalizer {
	if len(formats) == 0 {
		formats = DefaultFormats
	}
	n := &Normalizer{codec: codec, formats: make(map[string]bool, len(formats))}
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" && !strings.HasPrefix(f, ".") {
			f = "." + f
		}
		n.formats[f] = true
	}
	return n
}

// Supported reports whether metadata can be written to path
func (n *Normalizer) Supported(path string) bool {
	return n.formats[strings.ToLower(filepath.Ext(path))]
}

// Read extracts and normalizes path. Extraction failures are logged and
// produce the minimal record.
func (n *Normalizer) Read(ctx context.Context, path string) domain.Record {
	ext, err := n.codec.Extract(ctx, path)
	if err != nil {
		slog.Warn("Metadata extraction failed", "path", path, "err", err)
		return Minimal(path)
	}
	return n.Normalize(path, ext)
}

// Normalize flattens raw into a record. Unknown and empty sections are
// dropped. Without any usable data the minimal record is returned.
func (n *Normalizer) Normalize(path string, raw *Extraction) domain.Record {
	if raw == nil || len(raw.Sections) == 0 {
		return Minimal(path)
	}

	rec := make(domain.Record)
	for name, fields := range raw.Sections {
		if !knownSections[name] {
			continue
		}
		section := make(domain.Section, len(fields))
		for field, v := range fields {
			if strings.TrimSpace(field) == "" {
				continue
			}
			if value, ok := flatten(v); ok {
				section[field] = value
			}
		}
		if len(section) > 0 {
			rec[name] = section
		}
	}

	if _, ok := rec[domain.SectionFile]; !ok {
		rec[domain.SectionFile] = Minimal(path)[domain.SectionFile]
	}
	return rec
}

// Minimal is the record returned when nothing could be read
func Minimal(path string) domain.Record {
	return domain.Record{
		domain.SectionFile: {"FileName": domain.String(filepath.Base(path))},
	}
}

// flatten reduces a codec value to a scalar
func flatten(v any) (domain.Value, bool) {
	if s, ok := domain.ScalarOf(v); ok {
		return s, true
	}

	switch x := v.(type) {
	case nil:
		return domain.Value{}, false
	case []byte:
		if utf8.Valid(x) {
			return domain.String(strings.TrimRight(string(x), "\x00")), true
		}
		return domain.String(strings.ToValidUTF8(string(x), "")), true
	case []string:
		return domain.String(strings.Join(x, ", ")), true
	case []any:
		parts := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := flatten(item); ok {
				parts = append(parts, s.String())
			}
		}
		return domain.String(strings.Join(parts, ", ")), true
	case map[string]any:
		data, err := json.Marshal(x)
		if err != nil {
			return domain.String(fmt.Sprint(x)), true
		}
		return domain.String(string(data)), true
	case fmt.Stringer:
		return domain.String(x.String()), true
	default:
		return domain.String(fmt.Sprint(x)), true
	}
}
