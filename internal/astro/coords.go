// Package astro provides the solar geometry used to schedule sky camera exposures.
package astro

import (
	"math"
	"time"
)

// Observer represents a ground-based observing site.
type Observer struct {
	LatDeg float64 // Latitude in degrees (north positive)
	LonDeg float64 // Longitude in degrees (east positive)
	Name   string  // Optional name for the site
}

// EquatorialToHorizontal converts equatorial coordinates (RA/Dec, degrees)
// to horizontal coordinates (Az/El, degrees) for a given observer and time.
//
// Uses standard astronomical conventions:
//   - Azimuth: 0° = North, 90° = East, 180° = South, 270° = West
//   - Elevation: 0° = horizon, 90° = zenith
func EquatorialToHorizontal(raDeg, decDeg float64, obs Observer, t time.Time) (azDeg, elDeg float64) {
	lat := degToRad(obs.LatDeg)
	ra := degToRad(raDeg)
	dec := degToRad(decDeg)

	// Hour Angle = LST - RA
	lst := localSiderealTime(t, obs.LonDeg)
	ha := degToRad(lst) - ra

	// Altitude (elevation)
	sinAlt := math.Sin(dec)*math.Sin(lat) + math.Cos(dec)*math.Cos(lat)*math.Cos(ha)
	alt := math.Asin(sinAlt)

	// Azimuth
	cosAz := (math.Sin(dec) - math.Sin(alt)*math.Sin(lat)) / (math.Cos(alt) * math.Cos(lat))
	// Clamp cosAz to [-1, 1] to handle floating point errors
	if cosAz > 1 {
		cosAz = 1
	} else if cosAz < -1 {
		cosAz = -1
	}

	az := math.Acos(cosAz)

	// Adjust azimuth quadrant: if hour angle is positive, azimuth is west of south
	if math.Sin(ha) > 0 {
		az = 2*math.Pi - az
	}

	return radToDeg(az), radToDeg(alt)
}

// localSiderealTime calculates the Local Sidereal Time in degrees
// for a given UTC time and observer longitude.
func localSiderealTime(t time.Time, lonDeg float64) float64 {
	gmst := greenwichMeanSiderealTime(t)
	lst := gmst + lonDeg

	// Normalize to 0-360
	for lst < 0 {
		lst += 360
	}
	for lst >= 360 {
		lst -= 360
	}

	return lst
}

// greenwichMeanSiderealTime calculates GMST in degrees for a given UTC time.
// Uses the IAU 1982 formula based on Julian Date.
func greenwichMeanSiderealTime(t time.Time) float64 {
	jd := julianDate(t)

	// Julian centuries since J2000.0
	T := (jd - 2451545.0) / 36525.0

	gmst := 280.46061837 +
		360.98564736629*(jd-2451545.0) +
		0.000387933*T*T -
		T*T*T/38710000.0

	gmst = math.Mod(gmst, 360)
	if gmst < 0 {
		gmst += 360
	}

	return gmst
}

// julianDate calculates the Julian Date for a given time.
func julianDate(t time.Time) float64 {
	t = t.UTC()

	y := float64(t.Year())
	m := float64(t.Month())
	d := float64(t.Day())

	h := float64(t.Hour())
	min := float64(t.Minute())
	sec := float64(t.Second())
	ns := float64(t.Nanosecond())

	dayFrac := (h + min/60 + sec/3600 + ns/3600e9) / 24.0

	// Adjust for January/February (treat as months 13/14 of previous year)
	if m <= 2 {
		y--
		m += 12
	}

	// Gregorian calendar correction
	A := math.Floor(y / 100)
	B := 2 - A + math.Floor(A/4)

	jd := math.Floor(365.25*(y+4716)) +
		math.Floor(30.6001*(m+1)) +
		d + dayFrac + B - 1524.5

	return jd
}

// degToRad converts degrees to radians.
func degToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// radToDeg converts radians to degrees.
func radToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// normalizeAngle360 normalizes an angle to 0-360 degrees.
func normalizeAngle360(a float64) float64 {
	a = math.Mod(a, 360)
	if a < 0 {
		a += 360
	}
	return a
}
