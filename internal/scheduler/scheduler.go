// Package scheduler drives the unattended capture cycle.
//
// Each cycle walks a fixed sequence: plan an exposure from the current
// solar altitude, capture it, run it through the dark-frame gate, and
// deliver it to the sink. A driver failure faults the cycle; every
// other failure mode still delivers what was captured.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openskies/allskyd/internal/astro"
	"github.com/openskies/allskyd/internal/camera"
	"github.com/openskies/allskyd/internal/darkframe"
	"github.com/openskies/allskyd/internal/exposure"
	"github.com/openskies/allskyd/internal/metrics"
	"github.com/openskies/allskyd/internal/sink"
	"github.com/openskies/allskyd/internal/state"
)

// Phase identifies where in the cycle the controller is. Phases advance
// strictly forward within a cycle; Faulted and Delivered are terminal
// and the next tick starts over from Planning.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePlanning
	PhaseCapturing
	PhaseCorrecting
	PhaseDelivered
	PhaseFaulted
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhasePlanning:
		return "PLANNING"
	case PhaseCapturing:
		return "CAPTURING"
	case PhaseCorrecting:
		return "CORRECTING"
	case PhaseDelivered:
		return "DELIVERED"
	case PhaseFaulted:
		return "FAULTED"
	default:
		return fmt.Sprintf("PHASE(%d)", int(p))
	}
}

// CycleResult summarizes one completed capture cycle.
type CycleResult struct {
	CaptureID string
	Phase     Phase
	Plan      exposure.Plan
	SolarAlt  float64
	Degraded  bool
	Err       error
}

// AltitudeFunc supplies the solar altitude for a given instant. The
// indirection exists so tests can march the sun without waiting for it.
type AltitudeFunc func(t time.Time) float64

// Controller owns the capture cycle state machine and the tick loop.
// It is not safe for concurrent use; one controller runs one loop.
type Controller struct {
	driver   camera.Driver
	gate     *darkframe.Gate
	sink     sink.Sink
	curve    *exposure.Curve
	altitude AltitudeFunc
	site     astro.Observer
	states   *state.Manager
	logger   *slog.Logger

	interval time.Duration
	now      func() time.Time

	phase    Phase
	prevPlan exposure.Plan
	havePrev bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// WithAltitudeFunc overrides the solar altitude source. The default
// computes it from the configured site.
func WithAltitudeFunc(fn AltitudeFunc) Option {
	return func(c *Controller) {
		c.altitude = fn
	}
}

// New creates a capture cycle controller.
func New(
	driver camera.Driver,
	gate *darkframe.Gate,
	imageSink sink.Sink,
	curve *exposure.Curve,
	site astro.Observer,
	states *state.Manager,
	interval time.Duration,
	logger *slog.Logger,
	opts ...Option,
) *Controller {
	c := &Controller{
		driver:   driver,
		gate:     gate,
		sink:     imageSink,
		curve:    curve,
		site:     site,
		states:   states,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		phase:    PhaseIdle,
	}
	c.altitude = func(t time.Time) float64 {
		return astro.SolarAltitude(t, c.site)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Phase returns the controller's current phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Run executes capture cycles until ctx is cancelled. The first cycle
// starts immediately; subsequent cycles start on the ticker. A cycle
// that overruns its interval simply absorbs the missed ticks, so a
// long night exposure never queues up a backlog.
func (c *Controller) Run(ctx context.Context) {
	c.logger.Info("capture loop starting",
		"interval", c.interval,
		"site", c.site.Name,
		"lat", c.site.LatDeg,
		"lon", c.site.LonDeg)

	c.RunCycle(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("capture loop shutting down")
			return
		case <-ticker.C:
			c.RunCycle(ctx)
		}
	}
}

// RunCycle executes one full capture cycle and returns its result. A
// faulted cycle leaves no partial output; the next call starts cleanly
// from planning.
func (c *Controller) RunCycle(ctx context.Context) CycleResult {
	started := c.now()
	captureID := uuid.NewString()
	log := c.logger.With("capture_id", captureID)

	// PLANNING: read the sun, evaluate the curve.
	c.phase = PhasePlanning

	alt := c.altitude(started)

	var prev time.Duration
	if c.havePrev {
		prev = c.prevPlan.Duration
	}
	plan := c.curve.Evaluate(alt, prev)

	metrics.SetPlan(plan.Sensor.String(), plan.Duration.Seconds(), alt)
	log.Debug("cycle planned",
		"solar_alt_deg", alt,
		"sensor", plan.Sensor,
		"exposure", plan.Duration,
		"full_exposure", plan.FullExposure)

	if c.havePrev && plan.Sensor != c.prevPlan.Sensor {
		c.states.RecordHandoff(started, c.prevPlan.Sensor.String(), plan.Sensor.String())
		log.Info("sensor handoff",
			"from", c.prevPlan.Sensor,
			"to", plan.Sensor,
			"solar_alt_deg", alt)
	}

	// CAPTURING: the only phase that can fault the cycle.
	c.phase = PhaseCapturing

	captureStart := c.now()
	raw, err := c.driver.Capture(ctx, camera.Request{
		Duration: plan.Duration,
		Sensor:   plan.Sensor,
		Shutter:  camera.ShutterOpen,
	})
	metrics.ObserveCapture(c.now().Sub(captureStart).Seconds())

	if err != nil {
		c.phase = PhaseFaulted
		c.states.RecordFault(c.now(), err.Error())
		metrics.ObserveCycle(metrics.ResultFaulted)
		log.Error("capture failed",
			"sensor", plan.Sensor,
			"exposure", plan.Duration,
			"error", err)
		return CycleResult{
			CaptureID: captureID,
			Phase:     PhaseFaulted,
			Plan:      plan,
			SolarAlt:  alt,
			Err:       err,
		}
	}

	// The plan carries forward even if correction or delivery stumbles;
	// ramp continuity depends on the planned duration, not the outcome.
	c.prevPlan = plan
	c.havePrev = true

	// CORRECTING: the gate decides whether subtraction applies at all.
	c.phase = PhaseCorrecting

	degraded := false
	corrected, gateErr := c.gate.Apply(ctx, raw, plan)
	if gateErr != nil {
		if !errors.Is(gateErr, darkframe.ErrDegraded) {
			// Apply only ever reports degradation, but guard the
			// assumption.
			log.Error("dark-frame gate returned unexpected error", "error", gateErr)
		}
		degraded = true
		log.Warn("delivering uncorrected image", "error", gateErr)
	}

	// DELIVERED: persist, then record the cycle. A sink failure loses
	// the image but not the cycle; the exposure already happened and
	// re-capturing would skew the cadence.
	c.phase = PhaseDelivered

	meta := sink.Metadata{
		CaptureID:       captureID,
		Timestamp:       corrected.Timestamp,
		Sensor:          plan.Sensor.String(),
		ExposureSeconds: plan.Duration.Seconds(),
		FullExposure:    plan.FullExposure,
		DarkSubtracted:  !degraded && c.gate.ShouldSubtract(plan),
		SolarAltDeg:     alt,
		Site:            c.site.Name,
		Latitude:        c.site.LatDeg,
		Longitude:       c.site.LonDeg,
	}

	var cycleErr error
	if storeErr := c.sink.Store(ctx, corrected, meta); storeErr != nil {
		metrics.SinkError()
		c.states.RecordSinkError(c.now(), storeErr.Error())
		log.Error("image sink failed", "error", storeErr)
		cycleErr = storeErr
	}

	c.states.RecordDelivered(c.now(), plan.Sensor.String(), plan.Duration.Seconds(), alt, degraded)
	metrics.ObserveCycle(metrics.ResultDelivered)

	log.Info("cycle delivered",
		"sensor", plan.Sensor,
		"exposure", plan.Duration,
		"solar_alt_deg", alt,
		"degraded", degraded,
		"elapsed", c.now().Sub(started))

	return CycleResult{
		CaptureID: captureID,
		Phase:     PhaseDelivered,
		Plan:      plan,
		SolarAlt:  alt,
		Degraded:  degraded,
		Err:       cycleErr,
	}
}
