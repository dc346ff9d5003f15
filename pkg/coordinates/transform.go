package coordinates

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"
)

// HorizontalToEquatorial converts horizontal coordinates (alt/az) to
// equatorial coordinates (RA/Dec) for a given observer and time.
//
// The conversion is purely geometric: no refraction, and the result is the
// apparent place of date because apparent sidereal time is used.
//
// Parameters:
//   - horizontal: The horizontal coordinates to convert
//   - observer: The observer's geographic location
//   - timestamp: The time of observation
//
// Returns: EquatorialCoordinates (RA in hours, Dec in degrees)
func HorizontalToEquatorial(horizontal HorizontalCoordinates, observer Observer, timestamp time.Time) EquatorialCoordinates {
	gst := sidereal.Apparent(julian.TimeToJD(timestamp.UTC()))
	ra, dec := hzToEq(
		unit.AngleFromDeg(horizontal.Azimuth),
		unit.AngleFromDeg(horizontal.Altitude),
		observer.Location,
		gst,
	)
	return EquatorialCoordinates{
		RightAscension: ra.Hour(),
		Declination:    dec.Deg(),
	}
}

// EquatorialToHorizontal converts equatorial coordinates (RA/Dec) to
// horizontal coordinates (alt/az) for a given observer and time.
//
// This is the inverse of HorizontalToEquatorial.
func EquatorialToHorizontal(equatorial EquatorialCoordinates, observer Observer, timestamp time.Time) HorizontalCoordinates {
	gst := sidereal.Apparent(julian.TimeToJD(timestamp.UTC()))
	az, alt := eqToHz(
		unit.RAFromHour(equatorial.RightAscension),
		unit.AngleFromDeg(equatorial.Declination),
		observer.Location,
		gst,
	)
	return HorizontalCoordinates{
		Altitude: alt.Deg(),
		Azimuth:  NormalizeAzimuth(az.Deg()),
	}
}

// CalculateLocalSiderealTime calculates the local mean sidereal time for
// a given longitude and time.
//
// Parameters:
//   - longitudeDeg: Observer's longitude in decimal degrees (east positive)
//   - utcTime: The time of observation
//
// Returns: LST in decimal hours (0-24)
func CalculateLocalSiderealTime(longitudeDeg float64, utcTime time.Time) float64 {
	gmst := sidereal.Mean(julian.TimeToJD(utcTime.UTC()))
	return NormalizeRA(gmst.Hour() + longitudeDeg/15.0)
}

// CalculateApparentSiderealTime is like CalculateLocalSiderealTime but
// includes the equation of the equinoxes (nutation in right ascension).
func CalculateApparentSiderealTime(longitudeDeg float64, utcTime time.Time) float64 {
	gast := sidereal.Apparent(julian.TimeToJD(utcTime.UTC()))
	return NormalizeRA(gast.Hour() + longitudeDeg/15.0)
}

// hzToEq transforms azimuth (from north through east) and altitude to
// right ascension and declination. gst is Greenwich sidereal time.
func hzToEq(az, alt unit.Angle, g Geographic, gst unit.Time) (unit.RA, unit.Angle) {
	sφ, cφ := math.Sincos(g.Latitude * DegreesToRadians)
	sA, cA := az.Sincos()
	sh, ch := alt.Sincos()

	dec := math.Asin(clamp(sφ*sh + cφ*ch*cA))
	// hour angle, positive west of the meridian
	H := math.Atan2(-ch*sA, cφ*sh-sφ*ch*cA)

	lst := gst.Rad() + g.Longitude*DegreesToRadians
	return unit.RAFromRad(lst - H), unit.Angle(dec)
}

// eqToHz is the inverse of hzToEq. The returned azimuth is in (-π, π].
func eqToHz(ra unit.RA, dec unit.Angle, g Geographic, gst unit.Time) (unit.Angle, unit.Angle) {
	sφ, cφ := math.Sincos(g.Latitude * DegreesToRadians)
	sδ, cδ := dec.Sincos()

	H := gst.Rad() + g.Longitude*DegreesToRadians - ra.Rad()
	sH, cH := math.Sincos(H)

	alt := math.Asin(clamp(sφ*sδ + cφ*cδ*cH))
	az := math.Atan2(-cδ*sH, cφ*sδ-sφ*cδ*cH)
	return unit.Angle(az), unit.Angle(alt)
}

func clamp(x float64) float64 {
	if x > 1 {
		return 1
	}
	if x < -1 {
		return -1
	}
	return x
}
