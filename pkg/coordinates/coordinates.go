// Package coordinates converts between the horizontal (azimuth/elevation)
// and equatorial (right ascension/declination) coordinate systems for an
// observer on the Earth.
package coordinates

import (
	"math"
	"time"

	"github.com/soniakeys/unit"

	"github.com/unklstewy/skyconv/pkg/angle"
)

// Constants for coordinate calculations
const (
	// DegreesToRadians converts degrees to radians
	DegreesToRadians = math.Pi / 180.0

	// DefaultPressure is the standard atmospheric pressure in millibars
	// used for refraction when none is configured
	DefaultPressure = 1010.0

	// DefaultTemperature is the air temperature in Celsius used for
	// refraction when none is configured
	DefaultTemperature = 15.0

	// J2000 is the Julian year of the standard J2000.0 equinox
	J2000 = 2000.0
)

// Geographic represents a position on Earth's surface.
// Uses the WGS84 coordinate system (same as GPS).
type Geographic struct {
	// Latitude in decimal degrees (-90 to +90)
	// Positive = North, Negative = South
	Latitude float64

	// Longitude in decimal degrees (-180 to +180)
	// Positive = East, Negative = West
	Longitude float64

	// Altitude in meters above mean sea level (MSL)
	Altitude float64
}

// HorizontalCoordinates represents a position in the local horizontal coordinate system.
// Also known as Alt/Az (Altitude-Azimuth) coordinates.
type HorizontalCoordinates struct {
	// Altitude (elevation) in degrees above the horizon (0-90)
	// 0 = horizon, 90 = zenith (straight up)
	// Negative values are below the horizon
	Altitude float64

	// Azimuth in degrees from north (0-360)
	// 0/360 = North, 90 = East, 180 = South, 270 = West
	Azimuth float64
}

// EquatorialCoordinates represents a position in the equatorial coordinate system.
type EquatorialCoordinates struct {
	// RightAscension (RA) in decimal hours (0-24)
	// The celestial equivalent of longitude
	// Increases eastward along the celestial equator
	RightAscension float64

	// Declination (Dec) in decimal degrees (-90 to +90)
	// The celestial equivalent of latitude
	// 0 = celestial equator, +90 = north celestial pole, -90 = south celestial pole
	Declination float64
}

// Observer represents the geographic location of the observer together
// with the atmospheric conditions used for refraction.
type Observer struct {
	// Location is the observer's position on Earth
	Location Geographic

	// Pressure is the atmospheric pressure in millibars.
	// Zero disables the refraction correction.
	Pressure float64

	// Temperature is the air temperature in degrees Celsius
	Temperature float64

	// Timezone is the IANA timezone name (e.g., "America/New_York")
	// Used for display only, all internal calculations use UTC
	Timezone string
}

// LocalTime returns t in the observer's timezone, or in UTC when the
// timezone is empty or unknown.
func (o Observer) LocalTime(t time.Time) time.Time {
	if o.Timezone == "" {
		return t.UTC()
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return t.UTC()
	}
	return t.In(loc)
}

// NewObserver returns an observer at the given location with the standard
// atmosphere.
func NewObserver(latitude, longitude float64) Observer {
	return Observer{
		Location:    Geographic{Latitude: latitude, Longitude: longitude},
		Pressure:    DefaultPressure,
		Temperature: DefaultTemperature,
	}
}

// Equatorial is a right ascension and declination pair tagged with the
// equinox of its reference frame.
type Equatorial struct {
	RA  unit.RA
	Dec unit.Angle

	// Equinox is the Julian year of the mean equinox the position refers
	// to, or zero for the apparent place of date.
	Equinox float64

	// Time is the instant the position was computed for.
	Time time.Time
}

// String renders the position as "H:MM:SS.ss D:MM:SS.s".
func (e Equatorial) String() string {
	return angle.FormatHours(e.RA) + " " + angle.Format(e.Dec)
}

// Coordinates returns the position as RA hours and Dec degrees.
func (e Equatorial) Coordinates() EquatorialCoordinates {
	return EquatorialCoordinates{
		RightAscension: e.RA.Hour(),
		Declination:    e.Dec.Deg(),
	}
}

// NormalizeAzimuth ensures azimuth is in the range [0, 360).
func NormalizeAzimuth(azimuth float64) float64 {
	az := math.Mod(azimuth, 360.0)
	if az < 0 {
		az += 360.0
	}
	return az
}

// NormalizeRA ensures right ascension is in the range [0, 24).
func NormalizeRA(ra float64) float64 {
	raHours := math.Mod(ra, 24.0)
	if raHours < 0 {
		raHours += 24.0
	}
	return raHours
}
