// Package camera defines the driver boundary to the sky camera hardware.
//
// The serial transport itself (command/response exchange, image readout)
// lives outside this module; implementations of Driver wrap whatever
// transport the site uses. The package ships a deterministic Simulator
// for development and tests.
package camera

import (
	"context"
	"fmt"
	"time"
)

// Sensor selects which imaging sensor a capture uses.
type Sensor int

const (
	// SensorDay is the color sensor used in daylight.
	SensorDay Sensor = iota

	// SensorNight is the monochrome sensor used at night.
	SensorNight

	// SensorTransition is used by single-sensor installations where one
	// sensor covers the whole day/night cycle.
	SensorTransition
)

// String returns the sensor name.
func (s Sensor) String() string {
	switch s {
	case SensorDay:
		return "DAY"
	case SensorNight:
		return "NIGHT"
	case SensorTransition:
		return "TRANSITION"
	default:
		return "UNKNOWN"
	}
}

// ParseSensor parses a sensor name. Unknown names default to SensorNight,
// the safe choice for an all-sky camera.
func ParseSensor(s string) Sensor {
	switch s {
	case "day", "DAY":
		return SensorDay
	case "night", "NIGHT":
		return SensorNight
	case "transition", "TRANSITION":
		return SensorTransition
	default:
		return SensorNight
	}
}

// ShutterMode distinguishes a normal exposure from a dark (shielded) one.
type ShutterMode int

const (
	// ShutterOpen is a normal sky exposure.
	ShutterOpen ShutterMode = iota

	// ShutterDark keeps the shutter closed for a dark-current frame.
	ShutterDark
)

// String returns the shutter mode name.
func (m ShutterMode) String() string {
	if m == ShutterDark {
		return "dark"
	}
	return "open"
}

// Request describes a single capture command.
type Request struct {
	Duration time.Duration
	Sensor   Sensor
	Shutter  ShutterMode
}

// RawImage is an uncorrected frame as read from the camera.
type RawImage struct {
	Pixels   []uint16
	Width    int
	Height   int
	BitDepth int
	// Timestamp is when the exposure started.
	Timestamp time.Time
}

// Clone returns a deep copy of the image.
func (img *RawImage) Clone() *RawImage {
	pixels := make([]uint16, len(img.Pixels))
	copy(pixels, img.Pixels)
	return &RawImage{
		Pixels:    pixels,
		Width:     img.Width,
		Height:    img.Height,
		BitDepth:  img.BitDepth,
		Timestamp: img.Timestamp,
	}
}

// Health reports driver status for the health endpoint.
type Health struct {
	Connected       bool
	FirmwareVersion string
	LastError       string
}

// Driver is the hardware boundary. Capture blocks for the duration of a
// physical exposure, so callers must pass a context and must not issue
// concurrent captures against the same device.
type Driver interface {
	Capture(ctx context.Context, req Request) (*RawImage, error)
	Status(ctx context.Context) (Health, error)
}

// DriverError wraps a hardware or transport failure during a capture.
// It is fatal to the current cycle only; the scheduler keeps running.
type DriverError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *DriverError) Error() string {
	return fmt.Sprintf("camera driver: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *DriverError) Unwrap() error {
	return e.Err
}
