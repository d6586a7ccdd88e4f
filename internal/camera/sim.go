package camera

import (
	"context"
	"sync"
	"time"
)

// Frame geometry of the SBIG AllSky 340/340C.
const (
	simWidth    = 640
	simHeight   = 480
	simBitDepth = 16
)

// Simulator is a deterministic in-memory Driver used for development and
// tests. Sky frames scale linearly with exposure duration on top of a
// fixed dark-current pattern; dark frames contain only the pattern, so
// subtraction leaves the pure signal behind.
type Simulator struct {
	mu sync.Mutex

	// failNext, when non-nil, is returned by the next Capture call and
	// then cleared. Used to exercise fault paths.
	failNext error

	// delay, when non-zero, makes Capture sleep to emulate a physical
	// exposure. Tests leave it at zero.
	delay time.Duration

	captures int
	lastErr  error
	now      func() time.Time
}

// SimOption configures a Simulator.
type SimOption func(*Simulator)

// WithExposureDelay makes Capture block for the given duration per call.
func WithExposureDelay(d time.Duration) SimOption {
	return func(s *Simulator) {
		s.delay = d
	}
}

// WithClock overrides the time source, for deterministic timestamps.
func WithClock(now func() time.Time) SimOption {
	return func(s *Simulator) {
		s.now = now
	}
}

// NewSimulator creates a simulated camera driver.
func NewSimulator(opts ...SimOption) *Simulator {
	s := &Simulator{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailNext makes the next Capture call return the given error.
func (s *Simulator) FailNext(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// Captures returns the number of successful captures so far.
func (s *Simulator) Captures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}

// Capture implements Driver.
func (s *Simulator) Capture(ctx context.Context, req Request) (*RawImage, error) {
	s.mu.Lock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		s.lastErr = err
		s.mu.Unlock()
		return nil, &DriverError{Op: "capture", Err: err}
	}
	delay := s.delay
	start := s.now()
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, &DriverError{Op: "capture", Err: ctx.Err()}
		case <-time.After(delay):
		}
	} else if err := ctx.Err(); err != nil {
		return nil, &DriverError{Op: "capture", Err: err}
	}

	img := &RawImage{
		Pixels:    make([]uint16, simWidth*simHeight),
		Width:     simWidth,
		Height:    simHeight,
		BitDepth:  simBitDepth,
		Timestamp: start,
	}

	// Signal level scales with exposure; the dark-current pattern is
	// present in every frame, shutter open or not.
	signal := signalLevel(req.Duration)
	for i := range img.Pixels {
		v := uint32(darkCurrent(i, req.Sensor))
		if req.Shutter == ShutterOpen {
			v += uint32(signal)
		}
		if v > 0xFFFF {
			v = 0xFFFF
		}
		img.Pixels[i] = uint16(v)
	}

	s.mu.Lock()
	s.captures++
	s.mu.Unlock()

	return img, nil
}

// Status implements Driver.
func (s *Simulator) Status(_ context.Context) (Health, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := Health{
		Connected:       true,
		FirmwareVersion: "sim-1.0",
	}
	if s.lastErr != nil {
		h.LastError = s.lastErr.Error()
	}
	return h, nil
}

// signalLevel maps exposure duration to a flat sky signal, saturating
// around a minute-long exposure.
func signalLevel(d time.Duration) uint16 {
	level := d.Seconds() * 800
	if level > 48000 {
		level = 48000
	}
	return uint16(level)
}

// darkCurrent is a fixed per-pixel pattern, slightly different per
// sensor so cross-sensor cache bugs show up in tests.
func darkCurrent(i int, sensor Sensor) uint16 {
	base := uint16(64 + (i*7)%128)
	if sensor == SensorDay {
		base += 16
	}
	return base
}
