package camera

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSimulator_Capture(t *testing.T) {
	sim := NewSimulator()

	img, err := sim.Capture(context.Background(), Request{
		Duration: 30 * time.Second,
		Sensor:   SensorNight,
		Shutter:  ShutterOpen,
	})
	if err != nil {
		t.Fatalf("Capture() error = %v", err)
	}

	if img.Width != 640 || img.Height != 480 {
		t.Errorf("frame geometry = %dx%d, want 640x480", img.Width, img.Height)
	}
	if img.BitDepth != 16 {
		t.Errorf("bit depth = %d, want 16", img.BitDepth)
	}
	if len(img.Pixels) != 640*480 {
		t.Errorf("pixel count = %d, want %d", len(img.Pixels), 640*480)
	}
}

func TestSimulator_Deterministic(t *testing.T) {
	sim := NewSimulator()
	req := Request{Duration: 10 * time.Second, Sensor: SensorNight, Shutter: ShutterOpen}

	a, err := sim.Capture(context.Background(), req)
	if err != nil {
		t.Fatalf("first capture: %v", err)
	}
	b, err := sim.Capture(context.Background(), req)
	if err != nil {
		t.Fatalf("second capture: %v", err)
	}

	for i := range a.Pixels {
		if a.Pixels[i] != b.Pixels[i] {
			t.Fatalf("pixel %d differs between identical captures: %d vs %d", i, a.Pixels[i], b.Pixels[i])
		}
	}
}

func TestSimulator_DarkFrameOmitsSignal(t *testing.T) {
	sim := NewSimulator()
	d := 30 * time.Second

	sky, err := sim.Capture(context.Background(), Request{Duration: d, Sensor: SensorNight, Shutter: ShutterOpen})
	if err != nil {
		t.Fatalf("sky capture: %v", err)
	}
	dark, err := sim.Capture(context.Background(), Request{Duration: d, Sensor: SensorNight, Shutter: ShutterDark})
	if err != nil {
		t.Fatalf("dark capture: %v", err)
	}

	for i := range sky.Pixels {
		if dark.Pixels[i] >= sky.Pixels[i] {
			t.Fatalf("pixel %d: dark %d not below sky %d", i, dark.Pixels[i], sky.Pixels[i])
		}
	}
}

func TestSimulator_FailNext(t *testing.T) {
	sim := NewSimulator()
	boom := errors.New("serial timeout")
	sim.FailNext(boom)

	_, err := sim.Capture(context.Background(), Request{Duration: time.Second})
	if err == nil {
		t.Fatal("expected error from injected failure")
	}

	var de *DriverError
	if !errors.As(err, &de) {
		t.Fatalf("error type = %T, want *DriverError", err)
	}
	if !errors.Is(err, boom) {
		t.Error("DriverError does not unwrap to the injected error")
	}

	// Failure is one-shot.
	if _, err := sim.Capture(context.Background(), Request{Duration: time.Second}); err != nil {
		t.Errorf("capture after injected failure: %v", err)
	}
}

func TestSimulator_ContextCancelled(t *testing.T) {
	sim := NewSimulator(WithExposureDelay(time.Minute))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Capture(ctx, Request{Duration: time.Minute})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRawImage_Clone(t *testing.T) {
	sim := NewSimulator()
	img, err := sim.Capture(context.Background(), Request{Duration: time.Second, Sensor: SensorDay})
	if err != nil {
		t.Fatalf("capture: %v", err)
	}

	clone := img.Clone()
	clone.Pixels[0]++

	if img.Pixels[0] == clone.Pixels[0] {
		t.Error("Clone shares pixel storage with the original")
	}
}

func TestParseSensor(t *testing.T) {
	tests := []struct {
		in   string
		want Sensor
	}{
		{"day", SensorDay},
		{"DAY", SensorDay},
		{"night", SensorNight},
		{"transition", SensorTransition},
		{"bogus", SensorNight},
	}

	for _, tt := range tests {
		if got := ParseSensor(tt.in); got != tt.want {
			t.Errorf("ParseSensor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
