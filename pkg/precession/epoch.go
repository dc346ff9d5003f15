package precession

import (
	"math"
	"strconv"
	"strings"

	"github.com/unklstewy/skyconv/pkg/astroerr"
)

// Epoch names the equinox of the input frame: either a Year or a Token.
// A nil Epoch selects the frame's standard equinox.
type Epoch interface {
	epoch()
}

// Year is an equinox given as a (Besselian or Julian) year.
type Year float64

// Token is an equinox given as text, such as "1950", "B1950" or "J2000".
type Token string

func (Year) epoch()  {}
func (Token) epoch() {}

// frame describes the input side of a conversion.
type frame struct {
	name     string
	prefix   string
	standard float64
	aliases  map[string]float64
}

var (
	fk4 = frame{
		name:     "FK4",
		prefix:   "B",
		standard: 1950.0,
		aliases: map[string]float64{
			"1950.0": 1950.0,
			"1950.":  1950.0,
			"1950":   1950.0,
			"B1950":  1950.0,
		},
	}

	fk5 = frame{
		name:     "FK5",
		prefix:   "J",
		standard: 2000.0,
		aliases: map[string]float64{
			"2000.0": 2000.0,
			"2000.":  2000.0,
			"2000":   2000.0,
			"J2000":  2000.0,
		},
	}
)

// resolve turns an Epoch into a year. Tokens are looked up in the alias
// table first, then read as a plain year, then as a year carrying the
// frame's prefix ("B1975" for FK4, "J2010" for FK5).
func (f frame) resolve(e Epoch) (float64, error) {
	switch v := e.(type) {
	case nil:
		return f.standard, nil
	case Year:
		y := float64(v)
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return 0, astroerr.Newf("epoch", "%v is not a valid %s equinox", y, f.name)
		}
		return y, nil
	case Token:
		s := strings.TrimSpace(string(v))
		if y, ok := f.aliases[s]; ok {
			return y, nil
		}
		if y, ok := parseYear(s); ok {
			return y, nil
		}
		if rest, ok := strings.CutPrefix(s, f.prefix); ok {
			if y, ok := parseYear(rest); ok {
				return y, nil
			}
		}
		return 0, astroerr.Newf("epoch", "unrecognized %s equinox %q", f.name, string(v))
	}
	return 0, astroerr.Newf("epoch", "unsupported epoch type %T", e)
}

func parseYear(s string) (float64, bool) {
	y, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, false
	}
	return y, true
}
