package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/unklstewy/skyconv/internal/db"
	"github.com/unklstewy/skyconv/pkg/angle"
	"github.com/unklstewy/skyconv/pkg/astroerr"
	"github.com/unklstewy/skyconv/pkg/coordinates"
	"github.com/unklstewy/skyconv/pkg/precession"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// azelRequest is the body of POST /api/v1/azel2radec.
//
// Az and El are strings in sexagesimal degrees or numbers in radians.
// Latitude and Longitude are strings or numbers, both in degrees.
type azelRequest struct {
	Az            any        `json:"az"`
	El            any        `json:"el"`
	Latitude      any        `json:"latitude"`
	Longitude     any        `json:"longitude"`
	Site          string     `json:"site"`
	Date          *time.Time `json:"date"`
	Pressure      *float64   `json:"pressure"`
	Temperature   *float64   `json:"temperature"`
	Refraction    *bool      `json:"refraction"`
	EquinoxOfDate bool       `json:"equinoxOfDate"`
}

// PositionResponse is an equatorial position as returned by the API.
type PositionResponse struct {
	RA        string    `json:"ra"`
	Dec       string    `json:"dec"`
	RAHours   float64   `json:"raHours"`
	RADeg     float64   `json:"raDeg"`
	DecDeg    float64   `json:"decDeg"`
	Equinox   float64   `json:"equinox"`
	OfDate    bool      `json:"ofDate"`
	Time      time.Time `json:"time"`
	Site      string    `json:"site,omitempty"`
	Formatted string    `json:"formatted"`
}

func newPositionResponse(eq coordinates.Equatorial, site string) PositionResponse {
	return PositionResponse{
		RA:        angle.FormatHours(eq.RA),
		Dec:       angle.Format(eq.Dec),
		RAHours:   eq.RA.Hour(),
		RADeg:     eq.RA.Deg(),
		DecDeg:    eq.Dec.Deg(),
		Equinox:   eq.Equinox,
		OfDate:    eq.Equinox == 0,
		Time:      eq.Time,
		Site:      site,
		Formatted: eq.String(),
	}
}

func (s *Server) handleAzElToRADec(w http.ResponseWriter, r *http.Request) {
	var req azelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	// Inline coordinates go straight through the library conversion, which
	// checks latitude and longitude before az and el.
	if req.Site == "" && (req.Latitude != nil || req.Longitude != nil) {
		lat, err := degreesFromAny("latitude", req.Latitude)
		if err != nil {
			respondError(w, err)
			return
		}
		lon, err := degreesFromAny("longitude", req.Longitude)
		if err != nil {
			respondError(w, err)
			return
		}
		az, el, err := azElFromRequest(req)
		if err != nil {
			respondError(w, err)
			return
		}
		base := coordinates.NewObserver(0, 0)
		eq, err := coordinates.AzElToRADec(az, el, lat, lon, s.requestOptions(req, base)...)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, newPositionResponse(eq, ""))
		return
	}

	az, el, err := azElFromRequest(req)
	if err != nil {
		respondError(w, err)
		return
	}
	observer, siteName, err := s.resolveObserver(r, req.Site)
	if err != nil {
		respondError(w, err)
		return
	}
	azimuth, err := angle.Normalize("az", az)
	if err != nil {
		respondError(w, err)
		return
	}
	elevation, err := angle.Normalize("el", el)
	if err != nil {
		respondError(w, err)
		return
	}

	eq := observer.RADecOf(azimuth, elevation, s.requestOptions(req, observer)...)
	respondJSON(w, http.StatusOK, newPositionResponse(eq, siteName))
}

// requestOptions layers the request's overrides on top of the configured
// conversion options. base supplies the atmosphere for a partial override.
func (s *Server) requestOptions(req azelRequest, base coordinates.Observer) []coordinates.Option {
	opts := append([]coordinates.Option{coordinates.WithClock(s.clock)}, s.cfg.Conversion.Options()...)
	if req.Date != nil {
		opts = append(opts, coordinates.WithDate(*req.Date))
	}

	pressure, temperature := base.Pressure, base.Temperature
	if req.Pressure != nil {
		pressure = *req.Pressure
	}
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	switch {
	case req.Refraction != nil && !*req.Refraction:
		opts = append(opts, coordinates.WithoutRefraction())
	case req.Refraction != nil, req.Pressure != nil, req.Temperature != nil:
		opts = append(opts, coordinates.WithAtmosphere(pressure, temperature))
	}

	if req.EquinoxOfDate {
		opts = append(opts, coordinates.WithEquinoxOfDate())
	}
	return opts
}

func azElFromRequest(req azelRequest) (angle.Input, angle.Input, error) {
	az, err := angle.FromAny("az", req.Az)
	if err != nil {
		return nil, nil, err
	}
	el, err := angle.FromAny("el", req.El)
	if err != nil {
		return nil, nil, err
	}
	return az, el, nil
}

// resolveObserver picks the observer for a request: the named site, else
// the default site of the registry, else the configured observer.
func (s *Server) resolveObserver(r *http.Request, name string) (coordinates.Observer, string, error) {
	if name != "" {
		if s.sites == nil {
			return coordinates.Observer{}, "", errSitesUnavailable
		}
		site, err := s.sites.GetByName(r.Context(), name)
		if err != nil {
			return coordinates.Observer{}, "", err
		}
		return site.Observer(), site.Name, nil
	}

	if s.sites != nil {
		site, err := s.sites.GetDefault(r.Context())
		switch {
		case errors.Is(err, db.ErrUnavailable):
			log.Printf("⚠️  Site registry unavailable, using the configured observer: %v", err)
		case err != nil:
			return coordinates.Observer{}, "", fmt.Errorf("failed to get default site: %w", err)
		case site != nil:
			return site.Observer(), site.Name, nil
		}
	}
	return s.cfg.Observer.Observer(), "", nil
}

// degreesFromAny reads a latitude or longitude. Unlike az/el, numbers are
// taken as degrees.
func degreesFromAny(param string, v any) (angle.Input, error) {
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil, astroerr.Newf(param, "%q is not a number", x.String())
		}
		return angle.Degrees(f), nil
	case float64:
		return angle.Degrees(x), nil
	case string:
		return angle.Sexagesimal(x), nil
	case nil:
		return nil, nil
	}
	return nil, astroerr.Newf(param, "expected degrees as a string or number, got %T", v)
}

// precessRequest is the body of the precession endpoints. RA and Dec are
// degrees, either numbers or arrays of numbers.
type precessRequest struct {
	RA    any `json:"ra"`
	Dec   any `json:"dec"`
	Epoch any `json:"epoch"`
}

type precessResponse struct {
	RA        any      `json:"ra"`
	Dec       any      `json:"dec"`
	Formatted []string `json:"formatted"`
}

func (s *Server) handleJPrecess(w http.ResponseWriter, r *http.Request) {
	s.handlePrecess(w, r, precession.JPrecess)
}

func (s *Server) handleBPrecess(w http.ResponseWriter, r *http.Request) {
	s.handlePrecess(w, r, precession.BPrecess)
}

type precessFunc func(ra, dec precession.Coords, epoch precession.Epoch) (precession.Result, error)

func (s *Server) handlePrecess(w http.ResponseWriter, r *http.Request, precess precessFunc) {
	var req precessRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	ra, err := precession.CoordsFromAny("ra", req.RA)
	if err != nil {
		respondError(w, err)
		return
	}
	dec, err := precession.CoordsFromAny("dec", req.Dec)
	if err != nil {
		respondError(w, err)
		return
	}
	epoch, err := precession.EpochFromAny(req.Epoch)
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := precess(ra, dec, epoch)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := precessResponse{Formatted: make([]string, len(result.Positions))}
	for i, p := range result.Positions {
		resp.Formatted[i] = p.String()
	}
	if result.IsVector() {
		resp.RA, resp.Dec = result.RA(), result.Dec()
	} else {
		p := result.Position()
		resp.RA, resp.Dec = p.RA, p.Dec
	}
	respondJSON(w, http.StatusOK, resp)
}

// decodeJSON reads a JSON body into v, keeping numbers as json.Number so
// the angle adapters see them unrounded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return astroerr.New("body", "request body is empty")
		}
		return astroerr.Newf("body", "invalid JSON: %v", err)
	}
	return nil
}
