// Package darkframe decides when dark-current correction is safe and
// applies it.
//
// The critical policy: dark subtraction only runs on full exposures.
// During the sunrise/sunset ramp the duration changes every tick, which
// both invalidates any cached dark frame and would double capture
// latency exactly when timely imagery matters most.
package darkframe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openskies/allskyd/internal/camera"
	"github.com/openskies/allskyd/internal/exposure"
	"github.com/openskies/allskyd/internal/metrics"
)

// ErrDegraded marks a capture delivered without dark correction. The
// image alongside it is still valid.
var ErrDegraded = errors.New("dark frame unavailable, image delivered uncorrected")

// DefaultCacheTTL is how long a cached dark frame stays usable. Dark
// current drifts with sensor temperature, so frames are re-acquired
// periodically even at a stable exposure duration.
const DefaultCacheTTL = time.Hour

// Config holds the gate's configuration surface.
type Config struct {
	Enabled  bool
	CacheTTL time.Duration
}

type cacheKey struct {
	sensor   camera.Sensor
	duration time.Duration
}

type cacheEntry struct {
	frame    *camera.RawImage
	storedAt time.Time
}

// Gate owns the dark-frame cache and the subtraction policy. The cache
// is mutated only by the gate on the capture cycle's goroutine; the
// mutex just guards status reads from the HTTP surface.
type Gate struct {
	driver  camera.Driver
	enabled bool
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	cache map[cacheKey]*cacheEntry
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source, for TTL tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// New creates a dark-frame gate backed by the given driver.
func New(driver camera.Driver, cfg Config, logger *slog.Logger, opts ...Option) *Gate {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	g := &Gate{
		driver:  driver,
		enabled: cfg.Enabled,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
		cache:   make(map[cacheKey]*cacheEntry),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldSubtract reports whether the completed capture qualifies for
// dark correction: subtraction is enabled and the plan was a full
// exposure. Never true mid-ramp.
func (g *Gate) ShouldSubtract(plan exposure.Plan) bool {
	return g.enabled && plan.FullExposure
}

// Apply subtracts a dark frame from raw, acquiring one through the
// driver if the cache has no fresh entry for (sensor, duration).
//
// On any failure to produce a dark frame the raw image is returned
// unchanged together with an error wrapping ErrDegraded; Apply never
// blocks beyond the single dark capture and never retries.
func (g *Gate) Apply(ctx context.Context, raw *camera.RawImage, plan exposure.Plan) (*camera.RawImage, error) {
	if !g.ShouldSubtract(plan) {
		return raw, nil
	}

	dark, err := g.darkFor(ctx, plan)
	if err != nil {
		metrics.DegradedCapture()
		return raw, fmt.Errorf("%w: sensor=%s exposure=%v: %v", ErrDegraded, plan.Sensor, plan.Duration, err)
	}

	corrected, err := Subtract(raw, dark)
	if err != nil {
		// Geometry mismatch means the cached frame is unusable; drop it
		// so the next cycle re-acquires.
		g.evict(cacheKey{sensor: plan.Sensor, duration: plan.Duration})
		metrics.DegradedCapture()
		return raw, fmt.Errorf("%w: sensor=%s exposure=%v: %v", ErrDegraded, plan.Sensor, plan.Duration, err)
	}

	return corrected, nil
}

// darkFor returns a usable dark frame for the plan, from cache or by
// instructing the driver to expose with the shutter closed.
func (g *Gate) darkFor(ctx context.Context, plan exposure.Plan) (*camera.RawImage, error) {
	key := cacheKey{sensor: plan.Sensor, duration: plan.Duration}
	now := g.now()

	g.mu.Lock()
	entry, ok := g.cache[key]
	g.mu.Unlock()

	if ok && now.Sub(entry.storedAt) <= g.ttl {
		metrics.DarkCacheHit()
		return entry.frame, nil
	}

	metrics.DarkCacheMiss()
	g.logger.Debug("acquiring dark frame",
		"sensor", plan.Sensor.String(),
		"exposure", plan.Duration,
		"expired", ok)

	frame, err := g.driver.Capture(ctx, camera.Request{
		Duration: plan.Duration,
		Sensor:   plan.Sensor,
		Shutter:  camera.ShutterDark,
	})
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	// A duration change means any entry for this sensor at another
	// duration came from a ramp; drop those alongside the store.
	for k := range g.cache {
		if k.sensor == key.sensor && k.duration != key.duration {
			delete(g.cache, k)
		}
	}
	g.cache[key] = &cacheEntry{frame: frame, storedAt: now}
	g.mu.Unlock()

	return frame, nil
}

func (g *Gate) evict(key cacheKey) {
	g.mu.Lock()
	delete(g.cache, key)
	g.mu.Unlock()
}

// CacheSize returns the number of cached dark frames.
func (g *Gate) CacheSize() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cache)
}

// Invalidate drops all cached dark frames.
func (g *Gate) Invalidate() {
	g.mu.Lock()
	g.cache = make(map[cacheKey]*cacheEntry)
	g.mu.Unlock()
}

// Subtract returns raw minus dark, pixel-wise, clamping negative
// results to zero. Both frames must share geometry and bit depth. The
// inputs are not modified.
func Subtract(raw, dark *camera.RawImage) (*camera.RawImage, error) {
	if raw.Width != dark.Width || raw.Height != dark.Height {
		return nil, fmt.Errorf("geometry mismatch: %dx%d vs %dx%d",
			raw.Width, raw.Height, dark.Width, dark.Height)
	}
	if raw.BitDepth != dark.BitDepth {
		return nil, fmt.Errorf("bit depth mismatch: %d vs %d", raw.BitDepth, dark.BitDepth)
	}
	if len(raw.Pixels) != len(dark.Pixels) {
		return nil, fmt.Errorf("pixel count mismatch: %d vs %d", len(raw.Pixels), len(dark.Pixels))
	}

	out := &camera.RawImage{
		Pixels:    make([]uint16, len(raw.Pixels)),
		Width:     raw.Width,
		Height:    raw.Height,
		BitDepth:  raw.BitDepth,
		Timestamp: raw.Timestamp,
	}

	for i, v := range raw.Pixels {
		d := dark.Pixels[i]
		if v > d {
			out.Pixels[i] = v - d
		}
		// else: clamp to zero, no wraparound
	}

	return out, nil
}
