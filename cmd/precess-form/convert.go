package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/unklstewy/skyconv/pkg/astroerr"
	"github.com/unklstewy/skyconv/pkg/precession"
)

// Direction selects which precession routine the form runs.
type Direction int

const (
	ToJ2000 Direction = iota // FK4 B1950 -> FK5 J2000
	ToB1950                  // FK5 J2000 -> FK4 B1950
)

func (d Direction) String() string {
	if d == ToB1950 {
		return "J2000 → B1950 (bprecess)"
	}
	return "B1950 → J2000 (jprecess)"
}

// parseCoords reads a comma separated list of degrees. A single value is a
// scalar; more than one is a sequence.
func parseCoords(param, text string) (precession.Coords, error) {
	fields := strings.Split(text, ",")
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, astroerr.Newf(param, "%q is not a number", f)
		}
		values = append(values, v)
	}

	switch len(values) {
	case 0:
		return nil, astroerr.New(param, "at least one value is required")
	case 1:
		if !strings.Contains(text, ",") {
			return precession.Scalar(values[0]), nil
		}
	}
	return precession.Sequence(values), nil
}

// precess runs the selected conversion on the form's text fields.
// An empty epoch selects the default for the direction.
func precess(dir Direction, raText, decText, epochText string) (precession.Result, error) {
	ra, err := parseCoords("ra", raText)
	if err != nil {
		return precession.Result{}, err
	}
	dec, err := parseCoords("dec", decText)
	if err != nil {
		return precession.Result{}, err
	}

	var epoch precession.Epoch
	if e := strings.TrimSpace(epochText); e != "" {
		epoch = precession.Token(e)
	}

	if dir == ToB1950 {
		return precession.BPrecess(ra, dec, epoch)
	}
	return precession.JPrecess(ra, dec, epoch)
}

// formatResult renders a result for a tview text view.
func formatResult(dir Direction, r precession.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[yellow]%s[-]\n\n", dir)
	for i, p := range r.Positions {
		if r.IsVector() {
			fmt.Fprintf(&b, "[gray]%d.[-] ", i+1)
		}
		fmt.Fprintf(&b, "[white]RA %11.6f°  Dec %+11.6f°[-]\n", p.RA, p.Dec)
		fmt.Fprintf(&b, "   [gray]%s[-]\n", p)
	}
	return b.String()
}
