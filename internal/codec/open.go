package codec

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/anne-tanne/metadata-change-app/internal/metadata"
)

// Codec kinds accepted by Open
const (
	KindAuto     = "auto"
	KindExifTool = "exiftool"
	KindNative   = "native"
)

// Codec is a metadata codec owning resources that must be released
type Codec interface {
	metadata.Codec
	io.Closer
}

// Options select and configure a codec
type Options struct {
	Kind     string
	ExifTool ExifToolOptions
}

// Open returns the codec named by opts.Kind. Auto prefers exiftool and falls
// back to the native reader when the binary cannot be started.
func Open(opts Options) (Codec, error) {
	switch opts.Kind {
	case KindExifTool:
		et, err := NewExifTool(opts.ExifTool)
		if err != nil {
			return nil, err
		}
		return et, nil
	case KindNative:
		return NewNative(), nil
	case KindAuto, "":
		et, err := NewExifTool(opts.ExifTool)
		if err != nil {
			slog.Warn("exiftool unavailable, metadata will be read-only", "err", err)
			return NewNative(), nil
		}
		return et, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", opts.Kind)
	}
}
