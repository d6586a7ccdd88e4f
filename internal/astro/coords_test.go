package astro

import (
	"math"
	"testing"
	"time"
)

func TestJulianDate(t *testing.T) {
	tests := []struct {
		name string
		time time.Time
		want float64
	}{
		{
			name: "J2000 epoch",
			time: time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
			want: 2451545.0,
		},
		{
			name: "2024 mid-year",
			time: time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC),
			want: 2460482.5,
		},
		{
			name: "February edge case",
			time: time.Date(2023, 2, 15, 6, 0, 0, 0, time.UTC),
			want: 2459990.75,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := julianDate(tt.time)
			if math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("julianDate() = %.6f, want %.6f", got, tt.want)
			}
		})
	}
}

func TestEquatorialToHorizontal_Zenith(t *testing.T) {
	// An object whose declination equals the observer's latitude passes
	// through the zenith at transit. Put the object on the local meridian.
	obs := Observer{LatDeg: 40.0, LonDeg: 0.0}
	at := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	lst := localSiderealTime(at, obs.LonDeg)

	_, el := EquatorialToHorizontal(lst, obs.LatDeg, obs, at)
	if el < 89.9 {
		t.Errorf("transit elevation = %.3f°, want ~90°", el)
	}
}

func TestEquatorialToHorizontal_Pole(t *testing.T) {
	// The north celestial pole sits at elevation == latitude for any time.
	obs := Observer{LatDeg: 52.5, LonDeg: 13.4}

	for hour := 0; hour < 24; hour += 6 {
		at := time.Date(2024, 9, 1, hour, 0, 0, 0, time.UTC)
		_, el := EquatorialToHorizontal(0, 90, obs, at)
		if math.Abs(el-obs.LatDeg) > 0.01 {
			t.Errorf("hour %d: pole elevation = %.3f°, want %.3f°", hour, el, obs.LatDeg)
		}
	}
}

func TestNormalizeAngle360(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{360, 0},
		{-90, 270},
		{450, 90},
		{-720, 0},
	}

	for _, tt := range tests {
		if got := normalizeAngle360(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("normalizeAngle360(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
