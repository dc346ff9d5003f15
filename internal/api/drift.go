package api

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soniakeys/unit"

	"github.com/unklstewy/skyconv/pkg/angle"
	"github.com/unklstewy/skyconv/pkg/astroerr"
	"github.com/unklstewy/skyconv/pkg/config"
	"github.com/unklstewy/skyconv/pkg/coordinates"
)

const (
	// writeWait is the time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// DriftFrame is one update of the drift stream.
type DriftFrame struct {
	Time     time.Time `json:"time"`
	RA       string    `json:"ra"`
	Dec      string    `json:"dec"`
	RAHours  float64   `json:"raHours"`
	RADeg    float64   `json:"raDeg"`
	DecDeg   float64   `json:"decDeg"`
	LSTHours float64   `json:"lstHours"`
	Site     string    `json:"site,omitempty"`
}

func newDriftFrame(s coordinates.DriftSample, site string) DriftFrame {
	return DriftFrame{
		Time:     s.Time,
		RA:       angle.FormatHours(s.RA),
		Dec:      angle.Format(s.Dec),
		RAHours:  s.RA.Hour(),
		RADeg:    s.RA.Deg(),
		DecDeg:   s.Dec.Deg(),
		LSTHours: s.LST,
		Site:     site,
	}
}

// driftStream is a validated drift request.
type driftStream struct {
	observer coordinates.Observer
	site     string
	az, el   unit.Angle
	interval time.Duration
	opts     []coordinates.Option
}

// handleDrift streams the equatorial position of a fixed az/el pointing.
//
// Query: az, el (degrees), site or latitude and longitude (degrees),
// interval (Go duration or milliseconds). Parameters are validated before
// the connection is upgraded so errors come back as plain JSON.
func (s *Server) handleDrift(w http.ResponseWriter, r *http.Request) {
	stream, err := s.parseDrift(r)
	if err != nil {
		respondError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("Drift stream opened for %s (az %.4f°, el %.4f°, every %v)",
		r.RemoteAddr, stream.az.Deg(), stream.el.Deg(), stream.interval)

	// The reader only watches for the peer going away.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(stream.interval)
	defer ticker.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	send := func() error {
		sample := stream.observer.Drift(stream.az, stream.el, s.clock(), stream.opts...)
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(newDriftFrame(sample, stream.site))
	}

	if err := send(); err != nil {
		log.Printf("Drift stream write failed: %v", err)
		return
	}
	for {
		select {
		case <-done:
			log.Printf("Drift stream closed for %s", r.RemoteAddr)
			return
		case <-r.Context().Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-ticker.C:
			if err := send(); err != nil {
				log.Printf("Drift stream write failed: %v", err)
				return
			}
		}
	}
}

func (s *Server) parseDrift(r *http.Request) (*driftStream, error) {
	q := r.URL.Query()

	az, err := angle.Normalize("az", queryAngle(q.Get("az")))
	if err != nil {
		return nil, err
	}
	el, err := angle.Normalize("el", queryAngle(q.Get("el")))
	if err != nil {
		return nil, err
	}

	interval, err := parseInterval(q.Get("interval"), s.cfg.Conversion.DriftInterval())
	if err != nil {
		return nil, err
	}

	stream := &driftStream{
		az:       az,
		el:       el,
		interval: interval,
		opts:     s.cfg.Conversion.Options(),
	}

	lat, lon := q.Get("latitude"), q.Get("longitude")
	if q.Get("site") == "" && (lat != "" || lon != "") {
		latitude, err := angle.Normalize("latitude", queryAngle(lat))
		if err != nil {
			return nil, err
		}
		longitude, err := angle.Normalize("longitude", queryAngle(lon))
		if err != nil {
			return nil, err
		}
		if math.Abs(latitude.Deg()) > 90 {
			return nil, astroerr.Newf("latitude", "%v out of range [-90, 90]", latitude.Deg())
		}
		stream.observer = coordinates.NewObserver(latitude.Deg(), longitude.Deg())
		return stream, nil
	}

	stream.observer, stream.site, err = s.resolveObserver(r, q.Get("site"))
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// queryAngle reads an angle from a query value, in degrees.
func queryAngle(v string) angle.Input {
	if v == "" {
		return nil
	}
	return angle.Sexagesimal(v)
}

// parseInterval accepts a Go duration ("500ms", "2s") or plain
// milliseconds, falling back to def when empty.
func parseInterval(v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		ms, convErr := strconv.Atoi(v)
		if convErr != nil {
			return 0, astroerr.Newf("interval", "%q is not a duration", v)
		}
		d = time.Duration(ms) * time.Millisecond
	}
	if d < config.MinDriftInterval {
		return 0, astroerr.Newf("interval", "must be at least %v, got %v", config.MinDriftInterval, d)
	}
	return d, nil
}
