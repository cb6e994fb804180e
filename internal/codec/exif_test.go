package codec

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/barasher/go-exiftool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anne-tanne/metadata-change-app/internal/domain"
	"github.com/anne-tanne/metadata-change-app/internal/metadata"
)

// TIFF field types
const (
	tiffASCII    = 2
	tiffLong     = 4
	tiffRational = 5
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func asciiEntry(tag uint16, s string) ifdEntry {
	b := append([]byte(s), 0)
	return ifdEntry{tag: tag, typ: tiffASCII, count: uint32(len(b)), data: b}
}

// rationalEntry takes num/den pairs
func rationalEntry(tag uint16, pairs ...uint32) ifdEntry {
	b := make([]byte, 4*len(pairs))
	for i, v := range pairs {
		binary.LittleEndian.PutUint32(b[4*i:], v)
	}
	return ifdEntry{tag: tag, typ: tiffRational, count: uint32(len(pairs) / 2), data: b}
}

// buildTIFF lays out a little-endian TIFF with ifd0 and, when gps is not
// empty, a GPS sub-IFD linked from ifd0
func buildTIFF(ifd0, gps []ifdEntry) []byte {
	le := binary.LittleEndian
	ifdSize := func(n int) int { return 2 + 12*n + 4 }

	if len(gps) > 0 {
		gpsOffset := make([]byte, 4)
		le.PutUint32(gpsOffset, uint32(8+ifdSize(len(ifd0)+1)))
		ifd0 = append(ifd0, ifdEntry{tag: 0x8825, typ: tiffLong, count: 1, data: gpsOffset})
	}
	ifds := [][]ifdEntry{ifd0}
	if len(gps) > 0 {
		ifds = append(ifds, gps)
	}

	dataStart := 8
	for _, ifd := range ifds {
		dataStart += ifdSize(len(ifd))
	}

	var head, data bytes.Buffer
	head.WriteString("II")
	binary.Write(&head, le, uint16(42))
	binary.Write(&head, le, uint32(8))
	for _, ifd := range ifds {
		binary.Write(&head, le, uint16(len(ifd)))
		for _, e := range ifd {
			binary.Write(&head, le, e.tag)
			binary.Write(&head, le, e.typ)
			binary.Write(&head, le, e.count)
			if len(e.data) <= 4 {
				v := make([]byte, 4)
				copy(v, e.data)
				head.Write(v)
				continue
			}
			binary.Write(&head, le, uint32(dataStart+data.Len()))
			data.Write(e.data)
		}
		binary.Write(&head, le, uint32(0))
	}
	return append(head.Bytes(), data.Bytes()...)
}

// writeExifJPEG writes a small JPEG whose APP1 segment carries tiffData
func writeExifJPEG(t *testing.T, dir, name string, tiffData []byte) string {
	t.Helper()

	var img bytes.Buffer
	require.NoError(t, jpeg.Encode(&img, image.NewRGBA(image.Rect(0, 0, 8, 6)), nil))
	raw := img.Bytes()

	payload := append([]byte("Exif\x00\x00"), tiffData...)
	app1 := []byte{0xFF, 0xE1, 0, 0}
	binary.BigEndian.PutUint16(app1[2:], uint16(len(payload)+2))

	var out bytes.Buffer
	out.Write(raw[:2]) // SOI
	out.Write(app1)
	out.Write(payload)
	out.Write(raw[2:])

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
	return path
}

func cameraTIFF(yResolution ...uint32) []byte {
	return buildTIFF(
		[]ifdEntry{
			asciiEntry(0x010F, "Canon"),
			rationalEntry(0x011A, 72, 1),
			rationalEntry(0x011B, yResolution...),
		},
		[]ifdEntry{
			asciiEntry(0x0001, "N"),
			rationalEntry(0x0002, 48, 1, 51, 1, 3176, 100),
			asciiEntry(0x0003, "E"),
			rationalEntry(0x0004, 2, 1, 17, 1, 0, 1),
		},
	)
}

func TestNative_ExtractExif(t *testing.T) {
	path := writeExifJPEG(t, t.TempDir(), "camera.jpg", cameraTIFF(300, 1))

	ext, err := NewNative().Extract(context.Background(), path)
	require.NoError(t, err)

	exif := ext.Sections[domain.SectionEXIF]
	require.NotNil(t, exif)
	assert.Equal(t, "Canon", exif["Make"])
	assert.Equal(t, 72.0, exif["XResolution"])
	assert.Equal(t, 300.0, exif["YResolution"])
	assert.Equal(t, "N", exif["GPSLatitudeRef"])
	assert.InDelta(t, 48.858822, exif["GPSLatitude"], 1e-9)
	assert.InDelta(t, 2.283333, exif["GPSLongitude"], 1e-9)
	assert.Equal(t, "JPEG", ext.Sections[domain.SectionFile]["Format"])
}

func TestNative_ZeroDenominatorRational(t *testing.T) {
	dir := t.TempDir()
	unknown := writeExifJPEG(t, dir, "unknown.jpg", cameraTIFF(0, 0))
	infinite := writeExifJPEG(t, dir, "infinite.jpg", cameraTIFF(72, 0))

	for _, path := range []string{unknown, infinite} {
		ext, err := NewNative().Extract(context.Background(), path)
		require.NoError(t, err, path)

		exif := ext.Sections[domain.SectionEXIF]
		require.NotNil(t, exif, path)
		assert.Equal(t, "Canon", exif["Make"], "other tags survive")
		assert.Equal(t, 72.0, exif["XResolution"])
	}

	ext, err := NewNative().Extract(context.Background(), unknown)
	require.NoError(t, err)
	assert.Equal(t, "0/0", ext.Sections[domain.SectionEXIF]["YResolution"])

	rec := metadata.NewNormalizer(NewNative(), nil).Read(context.Background(), infinite)
	assert.Equal(t, domain.String("72/0"), rec[domain.SectionEXIF]["YResolution"])
}

func TestNative_UnknownGPSCoordinate(t *testing.T) {
	tiffData := buildTIFF(
		[]ifdEntry{asciiEntry(0x010F, "Nikon")},
		[]ifdEntry{
			asciiEntry(0x0001, "S"),
			rationalEntry(0x0002, 0, 0, 0, 0, 0, 0),
			asciiEntry(0x0003, "W"),
			rationalEntry(0x0004, 0, 0, 0, 0, 0, 0),
		},
	)
	path := writeExifJPEG(t, t.TempDir(), "nogps.jpg", tiffData)

	ext, err := NewNative().Extract(context.Background(), path)
	require.NoError(t, err)

	exif := ext.Sections[domain.SectionEXIF]
	assert.Equal(t, "Nikon", exif["Make"])
	assert.IsType(t, "", exif["GPSLatitude"], "unknown coordinates stay as tag text")
}

func TestExifTool_RejectsReadOnlySections(t *testing.T) {
	et := &ExifTool{}

	err := et.Write(context.Background(), "a.jpg", domain.SectionFile, domain.Section{"FileName": domain.String("b.jpg")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	err = et.Write(context.Background(), "a.jpg", domain.SectionCustom, domain.Section{"Title": domain.String("x")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	assert.True(t, isWritable(domain.SectionIPTC))
	assert.False(t, isWritable(domain.SectionFile))
}

func newExifTool(t *testing.T) *ExifTool {
	t.Helper()
	if _, err := exec.LookPath("exiftool"); err != nil {
		t.Skip("exiftool not installed")
	}
	et, err := NewExifTool(ExifToolOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { et.Close() })
	return et
}

func TestExifTool_WriteThenExtract(t *testing.T) {
	et := newExifTool(t)
	ctx := context.Background()
	path := writeExifJPEG(t, t.TempDir(), "camera.jpg", cameraTIFF(300, 1))

	ext, err := et.Extract(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Canon", ext.Sections[domain.SectionEXIF]["Make"])
	assert.Equal(t, "camera.jpg", ext.Sections[domain.SectionFile]["FileName"])
	assert.NotContains(t, ext.Sections, "ExifTool", "only File, EXIF, IPTC and XMP groups are kept")

	require.NoError(t, et.Write(ctx, path, domain.SectionEXIF, domain.Section{"Artist": domain.String("Jane Doe")}))
	require.NoError(t, et.Write(ctx, path, domain.SectionIPTC, domain.Section{"City": domain.String("Paris")}))
	require.NoError(t, et.Write(ctx, path, domain.SectionXMP, domain.Section{"Title": domain.String("Harbour")}))

	ext, err = et.Extract(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", ext.Sections[domain.SectionEXIF]["Artist"])
	assert.Equal(t, "Canon", ext.Sections[domain.SectionEXIF]["Make"])
	assert.Equal(t, "Paris", ext.Sections[domain.SectionIPTC]["City"])
	assert.Equal(t, "Harbour", ext.Sections[domain.SectionXMP]["Title"])
}

func TestExifTool_WriteFailures(t *testing.T) {
	et := newExifTool(t)
	ctx := context.Background()
	dir := t.TempDir()

	err := et.Write(ctx, filepath.Join(dir, "missing.jpg"), domain.SectionEXIF, domain.Section{"Artist": domain.String("x")})
	assert.ErrorIs(t, err, exiftool.ErrNotExist)

	notImage := filepath.Join(dir, "notes.jpg")
	require.NoError(t, os.WriteFile(notImage, []byte("plain text"), 0o644))
	err = et.Write(ctx, notImage, domain.SectionEXIF, domain.Section{"Artist": domain.String("x")})
	assert.Error(t, err)
}
