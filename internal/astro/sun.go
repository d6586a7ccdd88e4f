package astro

import (
	"math"
	"time"
)

// SolarState is an immutable snapshot of the sun's position for a site,
// produced fresh each scheduling cycle.
type SolarState struct {
	Time        time.Time
	AltitudeDeg float64
	AzimuthDeg  float64
	Site        Observer
}

// SunPosition calculates the apparent equatorial coordinates of the Sun.
// Uses a simplified solar ephemeris based on the Astronomical Almanac.
// Accuracy: ~0.01 degrees, far better than the scheduler needs.
func SunPosition(t time.Time) (raDeg, decDeg float64) {
	// Julian centuries from J2000.0
	jd := julianDate(t)
	T := (jd - 2451545.0) / 36525.0

	// Mean longitude of the Sun (degrees)
	L0 := 280.46646 + 36000.76983*T + 0.0003032*T*T
	L0 = normalizeAngle360(L0)

	// Mean anomaly of the Sun (degrees)
	M := 357.52911 + 35999.05029*T - 0.0001537*T*T
	M = normalizeAngle360(M)
	Mrad := degToRad(M)

	// Sun's equation of center (degrees)
	C := (1.914602 - 0.004817*T - 0.000014*T*T) * math.Sin(Mrad)
	C += (0.019993 - 0.000101*T) * math.Sin(2*Mrad)
	C += 0.000289 * math.Sin(3*Mrad)

	// Sun's true longitude (degrees)
	sunLon := L0 + C

	// Apparent longitude (correcting for aberration and nutation)
	omega := 125.04 - 1934.136*T
	sunLonApp := sunLon - 0.00569 - 0.00478*math.Sin(degToRad(omega))

	// Mean obliquity of the ecliptic (degrees)
	eps0 := 23.439291 - 0.0130042*T - 0.00000016*T*T + 0.000000504*T*T*T

	// Corrected obliquity
	eps := eps0 + 0.00256*math.Cos(degToRad(omega))

	sunLonRad := degToRad(sunLonApp)
	epsRad := degToRad(eps)

	// Right Ascension
	ra := math.Atan2(math.Cos(epsRad)*math.Sin(sunLonRad), math.Cos(sunLonRad))
	raDeg = radToDeg(ra)
	if raDeg < 0 {
		raDeg += 360
	}

	// Declination
	dec := math.Asin(math.Sin(epsRad) * math.Sin(sunLonRad))
	decDeg = radToDeg(dec)

	return raDeg, decDeg
}

// SolarAltitude returns the sun's altitude above the horizon in degrees
// for the given site and time. Negative values mean the sun is below
// the horizon.
func SolarAltitude(t time.Time, obs Observer) float64 {
	ra, dec := SunPosition(t)
	_, el := EquatorialToHorizontal(ra, dec, obs, t)
	return el
}

// Snapshot computes the full solar state for a site at the given time.
func Snapshot(t time.Time, obs Observer) SolarState {
	ra, dec := SunPosition(t)
	az, el := EquatorialToHorizontal(ra, dec, obs, t)
	return SolarState{
		Time:        t,
		AltitudeDeg: el,
		AzimuthDeg:  az,
		Site:        obs,
	}
}
