package main

import (
	"math"
	"strings"
	"testing"

	"github.com/unklstewy/skyconv/pkg/astroerr"
	"github.com/unklstewy/skyconv/pkg/precession"
)

func TestParseCoords(t *testing.T) {
	tests := []struct {
		text      string
		want      precession.Coords
		wantParam string
	}{
		{"12.5", precession.Scalar(12.5), ""},
		{" 1, 2 ,3 ", precession.Sequence{1, 2, 3}, ""},
		{"7,", precession.Sequence{7}, ""},
		{"", nil, "ra"},
		{"1, x", nil, "ra"},
	}
	for _, tt := range tests {
		got, err := parseCoords("ra", tt.text)
		if tt.wantParam != "" {
			ae, ok := astroerr.IsArgumentError(err)
			if !ok || ae.Param != tt.wantParam {
				t.Errorf("parseCoords(%q) error = %v, want ArgumentError %q", tt.text, err, tt.wantParam)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseCoords(%q) unexpected error: %v", tt.text, err)
			continue
		}
		if s, ok := tt.want.(precession.Sequence); ok {
			g, ok := got.(precession.Sequence)
			if !ok || len(g) != len(s) {
				t.Errorf("parseCoords(%q) = %v, want %v", tt.text, got, tt.want)
				continue
			}
			for i := range s {
				if g[i] != s[i] {
					t.Errorf("parseCoords(%q)[%d] = %v, want %v", tt.text, i, g[i], s[i])
				}
			}
		} else if got != tt.want {
			t.Errorf("parseCoords(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestPrecessForm(t *testing.T) {
	r, err := precess(ToJ2000, "0", "0", "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	p := r.Position()
	if math.Abs(p.RA-0.6406909770) > 1e-5 || math.Abs(p.Dec-0.2784094417) > 1e-5 {
		t.Errorf("Unexpected J2000 position %+v", p)
	}

	back, err := precess(ToB1950, "0.6406909770", "0.2784094417", "J2000")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if math.Abs(back.Position().Dec) > 1e-3 {
		t.Errorf("Expected round trip to dec 0, got %v", back.Position().Dec)
	}

	if _, err := precess(ToJ2000, "1,2", "1", ""); err == nil {
		t.Error("Expected length mismatch error")
	}
	if _, err := precess(ToJ2000, "1", "1", "J2000"); err == nil {
		t.Error("Expected J2000 epoch to be rejected for jprecess")
	}
}

func TestFormatResult(t *testing.T) {
	r, err := precess(ToJ2000, "10, 20", "30, 40", "B1950")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	out := formatResult(ToJ2000, r)
	if !strings.Contains(out, "jprecess") || !strings.Contains(out, "2.") {
		t.Errorf("Unexpected output:\n%s", out)
	}
	if strings.Count(out, "RA ") != 2 {
		t.Errorf("Expected two positions in output:\n%s", out)
	}
}
