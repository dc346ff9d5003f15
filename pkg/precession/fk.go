package precession

import (
	"math"

	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/unit"
)

const arcsecToRad = math.Pi / (180 * 3600)

// E-terms of aberration in the FK4 system (radians) and their rate of
// change (arcsec per tropical century).
var (
	eTerms    = vec3{-1.62557e-6, -0.31919e-6, -0.13843e-6}
	eTermsDot = vec3{1.244e-3, -1.579e-3, -0.660e-3}
)

// fk4ToFK5Matrix maps an FK4 position and velocity at B1950.0, E-terms
// removed, to FK5 at J2000.0 (Standish 1982, Aoki et al. 1983).
var fk4ToFK5Matrix = mat6{
	{0.9999256782, -0.0111820611, -0.0048579477, 0.00000242395018, -0.00000002710663, -0.00000001177656},
	{0.0111820610, 0.9999374784, -0.0000271765, 0.00000002710663, 0.00000242397878, -0.00000000006587},
	{0.0048579479, -0.0000271474, 0.9999881997, 0.00000001177656, -0.00000000006582, 0.00000242410173},
	{-0.000551, -0.238565, 0.435739, 0.99994704, -0.01118251, -0.00485767},
	{0.238514, -0.002667, -0.008541, 0.01118251, 0.99995883, -0.00002718},
	{-0.435623, 0.012254, 0.002117, 0.00485767, -0.00002714, 1.00000956},
}

// fk5ToFK4Matrix is the inverse mapping, J2000.0 FK5 to B1950.0 FK4.
var fk5ToFK4Matrix = mat6{
	{0.9999256795, 0.0111814828, 0.0048590039, -0.00000242389840, -0.00000002710544, -0.00000001177742},
	{-0.0111814828, 0.9999374849, -0.0000271771, 0.00000002710544, -0.00000242392702, 0.00000000006585},
	{-0.0048590040, -0.0000271557, 0.9999881946, 0.00000001177742, 0.00000000006585, -0.00000242404995},
	{-0.000551, 0.238509, -0.435614, 0.99990432, 0.01118145, 0.00485852},
	{-0.238560, -0.002667, 0.012254, -0.01118145, 0.99991613, -0.00002717},
	{0.435730, -0.008541, 0.002117, -0.00485852, -0.00002716, 0.99996684},
}

// FK4ToFK5 converts an FK4 position referred to the Besselian equinox
// to FK5 J2000.0, assuming zero proper motion in FK5.
func FK4ToFK5(p Position, equinox float64) Position {
	if equinox != fk4.standard {
		p = precessFK4(p, equinox, fk4.standard)
	}

	r0 := unitVector(p)

	// remove the E-terms
	r1 := r0.sub(eTerms).add(r0.scale(r0.dot(eTerms)))
	r1dot := r0.scale(r0.dot(eTermsDot)).sub(eTermsDot)

	r, v := fk4ToFK5Matrix.apply(r1, r1dot)

	// epoch of observation is 1950.0
	t := (0 - 50.00021) / 100
	r = r.add(v.scale(arcsecToRad * t))

	return r.position()
}

// FK5ToFK4 converts an FK5 position referred to the Julian equinox to
// FK4 B1950.0, assuming zero proper motion in FK5.
func FK5ToFK4(p Position, equinox float64) Position {
	if equinox != fk5.standard {
		p = precessFK5(p, equinox, fk5.standard)
	}

	r0 := unitVector(p)
	r1, r1dot := fk5ToFK4Matrix.apply(r0, vec3{})

	// epoch of observation is 2000.0
	t := (2000.0 - 1950.0) / 100
	r1 = r1.add(r1dot.scale(arcsecToRad * t))
	a := eTerms.add(eTermsDot.scale(arcsecToRad * t))

	// restore the E-terms
	rmag := r1.norm()
	s1 := r1.scale(1 / rmag)
	s := s1
	var r vec3
	for i := 0; i < 3; i++ {
		r = s1.add(a).sub(s.scale(s.dot(a)))
		s = r.scale(1 / rmag)
	}

	return r.position()
}

// precessFK4 precesses between Besselian equinoxes with Newcomb's
// constants, the precession model of the FK4 system.
func precessFK4(p Position, from, to float64) Position {
	st := 0.001 * (from - 1900)
	t := 0.001 * (to - from)

	ζ := arcsecToRad * t * (23042.53 + st*(139.75+0.06*st) + t*(30.23-0.27*st+18.0*t))
	z := arcsecToRad*t*t*(79.27+0.66*st+0.32*t) + ζ
	θ := arcsecToRad * t * (20046.85 - st*(85.33+0.37*st) + t*(-42.67-0.37*st-41.8*t))

	sζ, cζ := math.Sincos(ζ)
	sz, cz := math.Sincos(z)
	sθ, cθ := math.Sincos(θ)

	m := mat3{
		{cζ*cθ*cz - sζ*sz, -sζ*cθ*cz - cζ*sz, -sθ * cz},
		{cζ*cθ*sz + sζ*cz, -sζ*cθ*sz + cζ*cz, -sθ * sz},
		{cζ * sθ, -sζ * sθ, cθ},
	}
	return m.apply(unitVector(p)).position()
}

// precessFK5 precesses between Julian equinoxes with the IAU 1976 model.
func precessFK5(p Position, from, to float64) Position {
	in := &coord.Equatorial{
		RA:  unit.RAFromDeg(p.RA),
		Dec: unit.AngleFromDeg(p.Dec),
	}
	out := precess.NewPrecessor(from, to).Precess(in, &coord.Equatorial{})
	return Position{RA: out.RA.Deg(), Dec: out.Dec.Deg()}
}

type vec3 [3]float64

func unitVector(p Position) vec3 {
	sα, cα := math.Sincos(p.RA * math.Pi / 180)
	sδ, cδ := math.Sincos(p.Dec * math.Pi / 180)
	return vec3{cα * cδ, sα * cδ, sδ}
}

func (a vec3) add(b vec3) vec3 { return vec3{a[0] + b[0], a[1] + b[1], a[2] + b[2]} }
func (a vec3) sub(b vec3) vec3 { return vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func (a vec3) scale(f float64) vec3 {
	return vec3{a[0] * f, a[1] * f, a[2] * f}
}
func (a vec3) dot(b vec3) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }
func (a vec3) norm() float64      { return math.Sqrt(a.dot(a)) }

// position returns the direction of a (not necessarily unit) vector with
// RA in [0, 360).
func (a vec3) position() Position {
	ra := math.Atan2(a[1], a[0]) * 180 / math.Pi
	if ra < 0 {
		ra += 360
	}
	dec := math.Asin(a[2]/a.norm()) * 180 / math.Pi
	return Position{RA: ra, Dec: dec}
}

type mat3 [3][3]float64

func (m *mat3) apply(v vec3) vec3 {
	var out vec3
	for i := range m {
		out[i] = m[i][0]*v[0] + m[i][1]*v[1] + m[i][2]*v[2]
	}
	return out
}

type mat6 [6][6]float64

// apply multiplies m by the stacked vector (r, v).
func (m *mat6) apply(r, v vec3) (vec3, vec3) {
	in := [6]float64{r[0], r[1], r[2], v[0], v[1], v[2]}
	var out [6]float64
	for i := range m {
		for j := range in {
			out[i] += m[i][j] * in[j]
		}
	}
	return vec3{out[0], out[1], out[2]}, vec3{out[3], out[4], out[5]}
}
