package precession

import (
	"encoding/json"

	"github.com/unklstewy/skyconv/pkg/astroerr"
)

// CoordsFromAny adapts a decoded value into Coords. Numbers become a
// Scalar; slices of numbers become a Sequence.
func CoordsFromAny(param string, v any) (Coords, error) {
	switch x := v.(type) {
	case Coords:
		return x, nil
	case float64:
		return Scalar(x), nil
	case float32:
		return Scalar(x), nil
	case int:
		return Scalar(x), nil
	case int64:
		return Scalar(x), nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, astroerr.Newf(param, "%q is not a number", x.String())
		}
		return Scalar(f), nil
	case []float64:
		return Sequence(x), nil
	case []any:
		seq := make(Sequence, len(x))
		for i, item := range x {
			c, err := CoordsFromAny(param, item)
			if err != nil {
				return nil, err
			}
			s, ok := c.(Scalar)
			if !ok {
				return nil, astroerr.Newf(param, "element %d is not a number", i)
			}
			seq[i] = float64(s)
		}
		return seq, nil
	}
	return nil, astroerr.Newf(param, "coordinate should be a number or a list of numbers, got %T", v)
}

// EpochFromAny adapts a decoded value into an Epoch. nil selects the
// default equinox.
func EpochFromAny(v any) (Epoch, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case Epoch:
		return x, nil
	case string:
		return Token(x), nil
	case float64:
		return Year(x), nil
	case int:
		return Year(x), nil
	case json.Number:
		return Token(x.String()), nil
	}
	return nil, astroerr.Newf("epoch", "epoch should be a year or a string, got %T", v)
}
