package coordinates

import (
	"time"

	"github.com/soniakeys/unit"
)

// DriftSample is the sky position of a fixed az/el pointing at one instant.
type DriftSample struct {
	Equatorial

	// LST is the local apparent sidereal time in hours.
	LST float64
}

// Drift returns the position an observer's fixed az/el pointing sees at t.
// Repeated over time it traces the drift of the sky through the beam.
// Options given after t can not change the date.
func (o Observer) Drift(az, el unit.Angle, t time.Time, opts ...Option) DriftSample {
	opts = append(opts[:len(opts):len(opts)], WithDate(t))
	return DriftSample{
		Equatorial: o.RADecOf(az, el, opts...),
		LST:        CalculateApparentSiderealTime(o.Location.Longitude, t),
	}
}
