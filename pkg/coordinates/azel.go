package coordinates

import (
	"time"

	"github.com/soniakeys/meeus/v3/apparent"
	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/meeus/v3/refraction"
	"github.com/soniakeys/meeus/v3/sidereal"
	"github.com/soniakeys/unit"

	"github.com/unklstewy/skyconv/pkg/angle"
)

// Option configures a horizontal to equatorial conversion.
type Option func(*conversion)

type conversion struct {
	date        time.Time
	hasDate     bool
	clock       func() time.Time
	pressure    float64
	temperature float64
	equinox     float64
}

// WithDate fixes the observation time. Without it the clock is read.
func WithDate(t time.Time) Option {
	return func(c *conversion) {
		c.date = t
		c.hasDate = true
	}
}

// WithClock sets the time source used when no date is given.
// The default is time.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *conversion) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithAtmosphere overrides the observer's pressure (millibars) and
// temperature (Celsius) used for refraction.
func WithAtmosphere(pressure, temperature float64) Option {
	return func(c *conversion) {
		c.pressure = pressure
		c.temperature = temperature
	}
}

// WithoutRefraction treats the elevation as a true (geometric) altitude.
func WithoutRefraction() Option {
	return func(c *conversion) {
		c.pressure = 0
	}
}

// WithEquinox sets the Julian year of the mean equinox of the result.
// The default is J2000.0. A year that is zero, negative or NaN selects the
// apparent place of date, the same as WithEquinoxOfDate.
func WithEquinox(year float64) Option {
	return func(c *conversion) {
		if !(year > 0) {
			year = 0
		}
		c.equinox = year
	}
}

// WithEquinoxOfDate returns the apparent place of date, skipping the
// reduction to a mean equinox.
func WithEquinoxOfDate() Option {
	return func(c *conversion) {
		c.equinox = 0
	}
}

// AzElToRADec converts the azimuth and elevation of a direction seen by an
// observer at latitude/longitude into right ascension and declination.
//
// Numeric angles are radians, strings are degrees ("135:23", "75.0").
// Azimuth is measured from north through east; longitudes west of
// Greenwich are negative. Unless WithDate is given, the current time is
// used, which makes the result depend on when the call is made.
//
// Example:
//
//	eq, err := AzElToRADec(angle.Sexagesimal("135:23"), angle.Sexagesimal("75.0"),
//	    angle.Sexagesimal("42.38028"), angle.Sexagesimal("-72.52361"), WithDate(t))
func AzElToRADec(az, el, latitude, longitude angle.Input, opts ...Option) (Equatorial, error) {
	lat, err := angle.Normalize("latitude", latitude)
	if err != nil {
		return Equatorial{}, err
	}
	lon, err := angle.Normalize("longitude", longitude)
	if err != nil {
		return Equatorial{}, err
	}
	observer := NewObserver(lat.Deg(), lon.Deg())

	azimuth, err := angle.Normalize("az", az)
	if err != nil {
		return Equatorial{}, err
	}
	elevation, err := angle.Normalize("el", el)
	if err != nil {
		return Equatorial{}, err
	}

	return observer.RADecOf(azimuth, elevation, opts...), nil
}

// RADecOf returns the equatorial position of the direction at azimuth az
// and observed elevation el.
//
// The elevation is corrected for refraction using the observer's
// atmosphere, converted with apparent sidereal time, and then reduced
// from the apparent place of date to the mean equinox (J2000.0 by
// default) by removing nutation and aberration and precessing.
func (o Observer) RADecOf(az, el unit.Angle, opts ...Option) Equatorial {
	c := conversion{
		clock:       time.Now,
		pressure:    o.Pressure,
		temperature: o.Temperature,
		equinox:     J2000,
	}
	for _, opt := range opts {
		opt(&c)
	}

	t := c.date
	if !c.hasDate {
		t = c.clock()
	}
	t = t.UTC()
	jd := julian.TimeToJD(t)

	alt := el - refract(el, c.pressure, c.temperature)
	ra, dec := hzToEq(az, alt, o.Location, sidereal.Apparent(jd))

	eq := Equatorial{RA: ra, Dec: dec, Time: t}
	if c.equinox == 0 {
		return eq
	}

	Δα1, Δδ1 := apparent.Nutation(ra, dec, jd)
	Δα2, Δδ2 := apparent.Aberration(ra, dec, jd)
	mean := &coord.Equatorial{
		RA:  unit.RAFromRad(ra.Rad() - Δα1.Rad() - Δα2.Rad()),
		Dec: dec - Δδ1 - Δδ2,
	}

	out := &coord.Equatorial{}
	precess.NewPrecessor(base.JDEToJulianYear(jd), c.equinox).Precess(mean, out)

	eq.RA = out.RA
	eq.Dec = out.Dec
	eq.Equinox = c.equinox
	return eq
}

// refract returns the refraction for an observed altitude h0 under the
// given pressure (mbar) and temperature (Celsius). Zero pressure, and
// altitudes more than a degree below the horizon, get no correction.
func refract(h0 unit.Angle, pressure, temperature float64) unit.Angle {
	if pressure <= 0 || h0.Deg() < -1 {
		return 0
	}
	r := refraction.Bennett(h0)
	return r.Mul(pressure / 1010 * 283 / (273 + temperature))
}
