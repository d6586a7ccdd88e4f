// Package exposure maps solar altitude to an exposure plan for the
// active sky camera sensor.
//
// The response curve is piecewise over three altitude bands: deep night
// (maximum night exposure), day (maximum day exposure), and a twilight
// band between them where the duration ramps linearly with altitude.
// Linear interpolation keeps the ramp continuous at both band edges and
// monotone in altitude, so a sunset produces non-decreasing durations
// and a sunrise non-increasing ones.
package exposure

import (
	"fmt"
	"time"

	"github.com/openskies/allskyd/internal/camera"
)

// ExposureUnit is the camera's exposure quantum. The SBIG AllSky
// protocol expresses exposure time in 100 µs units.
const ExposureUnit = 100 * time.Microsecond

// MaxHardwareExposure is the longest exposure the camera accepts
// (0x63FFFF units, about 653.36 s).
const MaxHardwareExposure = 0x63FFFF * ExposureUnit

// Plan is the deterministic output of one curve evaluation.
type Plan struct {
	Sensor   camera.Sensor
	Duration time.Duration

	// FullExposure is true iff Duration exactly equals the active
	// sensor's configured maximum. It is the sole input to the
	// dark-frame gate.
	FullExposure bool
}

// Config holds the tuned curve parameters.
type Config struct {
	// DayMaxExposure is the duration used in full daylight.
	DayMaxExposure time.Duration

	// NightMaxExposure is the duration used in deep night.
	NightMaxExposure time.Duration

	// TwilightLowDeg and TwilightHighDeg bound the twilight ramp.
	// At or below the low threshold the night maximum applies; at or
	// above the high threshold the day maximum applies.
	TwilightLowDeg  float64
	TwilightHighDeg float64

	// CrossoverDeg is the fixed altitude at which sensor selection
	// switches between the night and day sensors. Independent of the
	// exposure ramp, so a hand-off can happen mid-ramp.
	CrossoverDeg float64

	// DualSensor selects between a day/night sensor pair and a single
	// transition sensor covering the whole cycle.
	DualSensor bool
}

// Curve evaluates the tuned exposure response curve.
type Curve struct {
	dayMax   time.Duration
	nightMax time.Duration
	low      float64
	high     float64
	cross    float64
	dual     bool
}

// NewCurve validates the configuration and returns a Curve. The two
// maxima are quantized to the hardware exposure unit up front so that
// full-exposure detection can use exact equality.
func NewCurve(cfg Config) (*Curve, error) {
	if cfg.DayMaxExposure <= 0 {
		return nil, fmt.Errorf("day max exposure must be positive, got %v", cfg.DayMaxExposure)
	}
	if cfg.NightMaxExposure <= cfg.DayMaxExposure {
		return nil, fmt.Errorf("night max exposure %v must exceed day max %v",
			cfg.NightMaxExposure, cfg.DayMaxExposure)
	}
	if cfg.NightMaxExposure > MaxHardwareExposure {
		return nil, fmt.Errorf("night max exposure %v exceeds hardware limit %v",
			cfg.NightMaxExposure, MaxHardwareExposure)
	}
	if cfg.TwilightLowDeg >= cfg.TwilightHighDeg {
		return nil, fmt.Errorf("twilight band inverted: low %.2f° >= high %.2f°",
			cfg.TwilightLowDeg, cfg.TwilightHighDeg)
	}

	return &Curve{
		dayMax:   Quantize(cfg.DayMaxExposure),
		nightMax: Quantize(cfg.NightMaxExposure),
		low:      cfg.TwilightLowDeg,
		high:     cfg.TwilightHighDeg,
		cross:    cfg.CrossoverDeg,
		dual:     cfg.DualSensor,
	}, nil
}

// Evaluate maps a solar altitude to an exposure plan. Altitude outside
// [-90, 90] is clamped before evaluation. prev is the previous cycle's
// duration (0 on the first cycle); mid-ramp it damps single-quantum
// flicker when the altitude jitters between ticks.
func (c *Curve) Evaluate(altitudeDeg float64, prev time.Duration) Plan {
	alt := clampAltitude(altitudeDeg)
	sensor := c.selectSensor(alt)

	var dur time.Duration
	switch {
	case alt <= c.low:
		dur = c.nightMax
	case alt >= c.high:
		dur = c.dayMax
	default:
		frac := (alt - c.low) / (c.high - c.low)
		sec := c.nightMax.Seconds() + frac*(c.dayMax.Seconds()-c.nightMax.Seconds())
		dur = Quantize(time.Duration(sec * float64(time.Second)))

		// Hold the previous duration when the new value is within one
		// quantum: rounding jitter, not a real altitude change. Never
		// hold a band maximum, that would trip the dark-frame gate
		// mid-ramp.
		if prev > 0 && prev != c.dayMax && prev != c.nightMax {
			delta := dur - prev
			if delta >= -ExposureUnit && delta <= ExposureUnit {
				dur = prev
			}
		}
	}

	return Plan{
		Sensor:       sensor,
		Duration:     dur,
		FullExposure: c.isFull(sensor, dur),
	}
}

// DayMax returns the quantized day maximum.
func (c *Curve) DayMax() time.Duration { return c.dayMax }

// NightMax returns the quantized night maximum.
func (c *Curve) NightMax() time.Duration { return c.nightMax }

func (c *Curve) selectSensor(alt float64) camera.Sensor {
	if !c.dual {
		return camera.SensorTransition
	}
	if alt >= c.cross {
		return camera.SensorDay
	}
	return camera.SensorNight
}

// isFull reports whether dur is the active sensor's configured maximum.
// Exact equality, not "close to". The transition sensor owns both band
// maxima.
func (c *Curve) isFull(sensor camera.Sensor, dur time.Duration) bool {
	switch sensor {
	case camera.SensorDay:
		return dur == c.dayMax
	case camera.SensorNight:
		return dur == c.nightMax
	default:
		return dur == c.dayMax || dur == c.nightMax
	}
}

// Quantize rounds a duration to the hardware exposure unit, clamped to
// [ExposureUnit, MaxHardwareExposure].
func Quantize(d time.Duration) time.Duration {
	q := d.Round(ExposureUnit)
	if q < ExposureUnit {
		q = ExposureUnit
	}
	if q > MaxHardwareExposure {
		q = MaxHardwareExposure
	}
	return q
}

func clampAltitude(alt float64) float64 {
	if alt < -90 {
		return -90
	}
	if alt > 90 {
		return 90
	}
	return alt
}
