// Package sink persists corrected sky images.
package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/openskies/allskyd/internal/camera"
)

// Metadata accompanies every stored image.
type Metadata struct {
	CaptureID       string    `json:"capture_id"`
	Timestamp       time.Time `json:"timestamp"`
	Sensor          string    `json:"sensor"`
	ExposureSeconds float64   `json:"exposure_seconds"`
	FullExposure    bool      `json:"full_exposure"`
	DarkSubtracted  bool      `json:"dark_subtracted"`
	SolarAltDeg     float64   `json:"solar_altitude_degrees"`
	Site            string    `json:"site,omitempty"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
}

// Sink receives corrected images from the capture cycle.
type Sink interface {
	Store(ctx context.Context, img *camera.RawImage, meta Metadata) error
}

// SinkError wraps a persistence failure. The captured image is lost but
// the cycle itself is considered successful; the scheduler reports the
// error and moves on rather than re-triggering a real exposure just to
// satisfy storage.
type SinkError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *SinkError) Error() string {
	return fmt.Sprintf("image sink: %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *SinkError) Unwrap() error {
	return e.Err
}
