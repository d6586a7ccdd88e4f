package sink

import (
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openskies/allskyd/internal/camera"
)

func testImage() *camera.RawImage {
	img := &camera.RawImage{
		Pixels:    make([]uint16, 8*4),
		Width:     8,
		Height:    4,
		BitDepth:  16,
		Timestamp: time.Date(2026, 2, 10, 4, 30, 0, 0, time.UTC),
	}
	for i := range img.Pixels {
		img.Pixels[i] = uint16(i * 1000)
	}
	return img
}

func TestFileSink_Store(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	img := testImage()
	meta := Metadata{
		CaptureID:       "0b7e3f2a",
		Timestamp:       img.Timestamp,
		Sensor:          "NIGHT",
		ExposureSeconds: 60,
		FullExposure:    true,
		DarkSubtracted:  true,
		SolarAltDeg:     -32.5,
		Site:            "ridge observatory",
		Latitude:        35.4,
		Longitude:       -116.9,
	}

	require.NoError(t, s.Store(context.Background(), img, meta))

	imgPath := filepath.Join(dir, "20260210T043000Z.png")
	metaPath := filepath.Join(dir, "20260210T043000Z.json")

	// PNG round-trip preserves geometry and pixel values.
	f, err := os.Open(imgPath)
	require.NoError(t, err)
	defer f.Close()

	decoded, err := png.Decode(f)
	require.NoError(t, err)

	gray, ok := decoded.(*image.Gray16)
	require.True(t, ok, "expected 16-bit grayscale PNG, got %T", decoded)
	assert.Equal(t, img.Width, gray.Bounds().Dx())
	assert.Equal(t, img.Height, gray.Bounds().Dy())
	assert.Equal(t, uint16(1000), gray.Gray16At(1, 0).Y)

	// Metadata sidecar round-trips.
	raw, err := os.ReadFile(metaPath)
	require.NoError(t, err)

	var got Metadata
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, meta, got)
}

func TestFileSink_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "images")

	_, err := NewFileSink(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileSink_ErrorIsSinkError(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	s, err := NewFileSink(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	// Remove the directory out from under the sink so Store fails.
	require.NoError(t, os.RemoveAll(dir))

	storeErr := s.Store(context.Background(), testImage(), Metadata{Timestamp: time.Now()})
	require.Error(t, storeErr)

	var se *SinkError
	assert.ErrorAs(t, storeErr, &se)
}
