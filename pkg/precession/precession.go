// Package precession converts equatorial positions between the B1950 (FK4)
// and J2000 (FK5) reference frames.
//
// Positions are in decimal degrees. Both entry points accept either a single
// RA/Dec pair or two equal-length sequences, and an epoch naming the equinox
// of the input frame.
package precession

import (
	"github.com/soniakeys/unit"

	"github.com/unklstewy/skyconv/pkg/angle"
	"github.com/unklstewy/skyconv/pkg/astroerr"
)

// Coords is either a Scalar or a Sequence of angles in degrees.
type Coords interface {
	coords()
}

// Scalar is a single angle in degrees.
type Scalar float64

// Sequence is an ordered list of angles in degrees.
type Sequence []float64

func (Scalar) coords()   {}
func (Sequence) coords() {}

// Position is a right ascension and declination in degrees.
type Position struct {
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

// String renders the position as "H:MM:SS.ss D:MM:SS.s".
func (p Position) String() string {
	return angle.FormatHours(unit.RAFromDeg(p.RA)) + " " + angle.Format(unit.AngleFromDeg(p.Dec))
}

// Result holds the output of a precession call in input order.
type Result struct {
	Positions []Position
	vector    bool
}

// IsVector reports whether the call was made with sequences.
func (r Result) IsVector() bool {
	return r.vector
}

// Position returns the first (for scalar calls, the only) position.
func (r Result) Position() Position {
	if len(r.Positions) == 0 {
		return Position{}
	}
	return r.Positions[0]
}

// RA returns the right ascensions in order.
func (r Result) RA() []float64 {
	out := make([]float64, len(r.Positions))
	for i, p := range r.Positions {
		out[i] = p.RA
	}
	return out
}

// Dec returns the declinations in order.
func (r Result) Dec() []float64 {
	out := make([]float64, len(r.Positions))
	for i, p := range r.Positions {
		out[i] = p.Dec
	}
	return out
}

// JPrecess converts FK4 positions referred to the Besselian equinox epoch
// (default B1950.0) to FK5 J2000.0.
//
// A nil epoch, "1950", "1950.", "1950.0" and "B1950" all mean 1950.0.
// Positions at other equinoxes are first precessed to B1950.0 with
// Newcomb's constants. Proper motion is taken to be zero in FK5.
func JPrecess(ra, dec Coords, epoch Epoch) (Result, error) {
	return run(ra, dec, epoch, fk4, FK4ToFK5)
}

// BPrecess converts FK5 positions referred to the Julian equinox epoch
// (default J2000.0) to FK4 B1950.0.
//
// A nil epoch, "2000", "2000.", "2000.0" and "J2000" all mean 2000.0.
// Positions at other equinoxes are first precessed to J2000.0 with the
// IAU 1976 precession. Proper motion is taken to be zero in FK5.
func BPrecess(ra, dec Coords, epoch Epoch) (Result, error) {
	return run(ra, dec, epoch, fk5, FK5ToFK4)
}

func run(ra, dec Coords, epoch Epoch, f frame, convert func(Position, float64) Position) (Result, error) {
	pairs, vector, err := pair(ra, dec)
	if err != nil {
		return Result{}, err
	}
	equinox, err := f.resolve(epoch)
	if err != nil {
		return Result{}, err
	}

	out := make([]Position, len(pairs))
	for i, p := range pairs {
		out[i] = convert(p, equinox)
	}
	return Result{Positions: out, vector: vector}, nil
}

// pair checks that ra and dec have matching shapes and zips them.
func pair(ra, dec Coords) ([]Position, bool, error) {
	if ra == nil {
		return nil, false, astroerr.New("ra", "coordinate should be a scalar or a sequence")
	}
	if dec == nil {
		return nil, false, astroerr.New("dec", "coordinate should be a scalar or a sequence")
	}

	switch r := ra.(type) {
	case Scalar:
		d, ok := dec.(Scalar)
		if !ok {
			return nil, false, astroerr.New("dec", "ra is a scalar but dec is a sequence")
		}
		return []Position{{RA: float64(r), Dec: float64(d)}}, false, nil

	case Sequence:
		d, ok := dec.(Sequence)
		if !ok {
			return nil, true, astroerr.New("dec", "ra is a sequence but dec is a scalar")
		}
		if len(d) != len(r) {
			return nil, true, astroerr.Newf("dec", "length %d does not match ra length %d", len(d), len(r))
		}
		out := make([]Position, len(r))
		for i := range r {
			out[i] = Position{RA: r[i], Dec: d[i]}
		}
		return out, true, nil
	}

	return nil, false, astroerr.Newf("ra", "unsupported coordinate type %T", ra)
}
