package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/openskies/allskyd/internal/camera"
)

// filenameLayout names files by capture time, sortable and safe on any
// filesystem.
const filenameLayout = "20060102T150405Z"

// FileSink writes each image as a 16-bit grayscale PNG with a JSON
// metadata sidecar next to it.
type FileSink struct {
	dir    string
	logger *slog.Logger
}

// NewFileSink creates the output directory if needed and returns a sink
// writing into it.
func NewFileSink(dir string, logger *slog.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &FileSink{dir: dir, logger: logger}, nil
}

// Store implements Sink.
func (s *FileSink) Store(_ context.Context, img *camera.RawImage, meta Metadata) error {
	base := meta.Timestamp.UTC().Format(filenameLayout)
	imgPath := filepath.Join(s.dir, base+".png")
	metaPath := filepath.Join(s.dir, base+".json")

	if err := writePNG(imgPath, img); err != nil {
		return &SinkError{Path: imgPath, Err: err}
	}
	if err := writeMetadata(metaPath, meta); err != nil {
		return &SinkError{Path: metaPath, Err: err}
	}

	s.logger.Debug("image stored", "path", imgPath, "capture_id", meta.CaptureID)
	return nil
}

func writePNG(path string, img *camera.RawImage) error {
	gray := image.NewGray16(image.Rect(0, 0, img.Width, img.Height))

	// Scale up shallower bit depths so the full PNG range is used.
	shift := uint(16 - img.BitDepth)
	for y := 0; y < img.Height; y++ {
		row := y * img.Width
		for x := 0; x < img.Width; x++ {
			v := img.Pixels[row+x] << shift
			// Gray16 stores big-endian
			i := gray.PixOffset(x, y)
			gray.Pix[i] = uint8(v >> 8)
			gray.Pix[i+1] = uint8(v)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, gray); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func writeMetadata(path string, meta Metadata) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metadata file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return nil
}
