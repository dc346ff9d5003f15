// Package angle normalizes the angle representations accepted by the
// conversion functions into a single canonical type, unit.Angle.
//
// Three input forms are accepted and modelled as a closed union:
//   - Sexagesimal: a string such as "135:23", "-72:31:25.0" or "75.0",
//     interpreted as degrees
//   - Radians: a float64 in radians
//   - Typed: an already-typed unit.Angle
package angle

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/soniakeys/unit"

	"github.com/unklstewy/skyconv/pkg/astroerr"
)

// acceptedTypes is the message used when an input is not an angle.
const acceptedTypes = "angle should be of type unit.Angle or string or float"

// Input is one of Sexagesimal, Radians or Typed.
type Input interface {
	toAngle() (unit.Angle, error)
}

// Sexagesimal is an angle written in degrees, either "D:M:S", "D:M" or
// a plain decimal number.
type Sexagesimal string

// Radians is an angle given as a float in radians.
type Radians float64

// Typed wraps an angle that is already a unit.Angle.
type Typed unit.Angle

// Of returns a as an Input.
func Of(a unit.Angle) Typed { return Typed(a) }

// Degrees returns an Input for a value given in decimal degrees.
func Degrees(d float64) Typed { return Typed(unit.AngleFromDeg(d)) }

func (s Sexagesimal) toAngle() (unit.Angle, error) {
	return Parse(string(s))
}

func (r Radians) toAngle() (unit.Angle, error) {
	f := float64(r)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &ParseError{Input: strconv.FormatFloat(f, 'g', -1, 64), Reason: "angle is not finite"}
	}
	return unit.Angle(f), nil
}

func (t Typed) toAngle() (unit.Angle, error) {
	return unit.Angle(t), nil
}

// Normalize converts in to a unit.Angle. A nil input is rejected with an
// ArgumentError naming param; a malformed string yields a *ParseError.
func Normalize(param string, in Input) (unit.Angle, error) {
	if in == nil {
		return 0, astroerr.New(param, acceptedTypes)
	}
	return in.toAngle()
}

// MustNormalize is like Normalize but panics on error.
// It is meant for constants in tests and examples.
func MustNormalize(param string, in Input) unit.Angle {
	a, err := Normalize(param, in)
	if err != nil {
		panic(err)
	}
	return a
}

// FromAny adapts a dynamically typed value (decoded JSON, CLI values)
// into an Input. Strings become Sexagesimal, numbers become Radians and
// unit.Angle values become Typed. Anything else is rejected with an
// ArgumentError naming param.
func FromAny(param string, v any) (Input, error) {
	switch x := v.(type) {
	case Input:
		return x, nil
	case unit.Angle:
		return Typed(x), nil
	case string:
		return Sexagesimal(x), nil
	case float64:
		return Radians(x), nil
	case float32:
		return Radians(float64(x)), nil
	case int:
		return Radians(float64(x)), nil
	case int64:
		return Radians(float64(x)), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, astroerr.New(param, acceptedTypes)
		}
		return Radians(f), nil
	default:
		return nil, astroerr.New(param, acceptedTypes)
	}
}
