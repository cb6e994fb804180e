// Package codec reads and writes embedded image metadata.
//
// Two implementations are provided: ExifTool, backed by a stay-open exiftool
// process that can read and write EXIF, IPTC and XMP, and Native, an
// in-process EXIF reader that cannot write. Open picks one from config.
package codec

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// FileSection describes the file itself: name, size, modification time and,
// when the image header decodes, its dimensions, format and colour mode.
func FileSection(path string) (map[string]any, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat image: %w", err)
	}

	section := map[string]any{
		"FileName":       filepath.Base(path),
		"FileSize":       info.Size(),
		"FileModifyDate": info.ModTime().Format(time.RFC3339),
	}

	f, err := os.Open(path)
	if err != nil {
		return section, nil
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return section, nil
	}
	section["ImageWidth"] = cfg.Width
	section["ImageHeight"] = cfg.Height
	section["Format"] = strings.ToUpper(format)
	if mode := colorModeName(cfg.ColorModel); mode != "" {
		section["Mode"] = mode
	}
	return section, nil
}

// colorModeName maps a colour model onto the usual short mode names
// (RGB, RGBA, L, P, CMYK).
func colorModeName(m color.Model) string {
	if _, ok := m.(color.Palette); ok {
		return "P"
	}
	switch m {
	case color.YCbCrModel, color.NYCbCrAModel:
		return "RGB"
	case color.RGBAModel, color.NRGBAModel, color.RGBA64Model, color.NRGBA64Model:
		return "RGBA"
	case color.GrayModel, color.AlphaModel:
		return "L"
	case color.Gray16Model, color.Alpha16Model:
		return "I;16"
	case color.CMYKModel:
		return "CMYK"
	default:
		return ""
	}
}
