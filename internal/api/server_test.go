package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/unklstewy/skyconv/internal/db"
	"github.com/unklstewy/skyconv/pkg/config"
)

var referenceTime = time.Date(2009, 4, 15, 8, 15, 4, 640922000, time.UTC)

// memorySites is an in-memory SiteStore.
type memorySites struct {
	mu    sync.Mutex
	sites map[string]db.Site
	next  int
}

func newMemorySites(sites ...db.Site) *memorySites {
	m := &memorySites{sites: make(map[string]db.Site)}
	for _, s := range sites {
		if err := m.Create(context.Background(), &s); err != nil {
			panic(err)
		}
	}
	return m
}

func (m *memorySites) List(ctx context.Context) ([]db.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Site
	for _, s := range m.sites {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memorySites) GetByName(ctx context.Context, name string) (*db.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sites[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", db.ErrSiteNotFound, name)
	}
	return &s, nil
}

func (m *memorySites) GetDefault(ctx context.Context) (*db.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sites {
		if s.IsDefault {
			return &s, nil
		}
	}
	return nil, nil
}

func (m *memorySites) Create(ctx context.Context, site *db.Site) error {
	if err := site.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[site.Name]; ok {
		return fmt.Errorf("%w: %s", db.ErrSiteExists, site.Name)
	}
	if site.IsDefault {
		m.clearDefault()
	}
	m.next++
	site.ID = m.next
	m.sites[site.Name] = *site
	return nil
}

func (m *memorySites) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[name]; !ok {
		return fmt.Errorf("%w: %s", db.ErrSiteNotFound, name)
	}
	delete(m.sites, name)
	return nil
}

func (m *memorySites) SetDefault(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sites[name]
	if !ok {
		return fmt.Errorf("%w: %s", db.ErrSiteNotFound, name)
	}
	m.clearDefault()
	s.IsDefault = true
	m.sites[name] = s
	return nil
}

func (m *memorySites) clearDefault() {
	for name, s := range m.sites {
		s.IsDefault = false
		m.sites[name] = s
	}
}

// downSites fails every call the way the repository does when Postgres
// refuses connections.
type downSites struct{}

var errRefused = fmt.Errorf("failed to query sites: %w: %w", db.ErrUnavailable,
	errors.New("dial tcp 127.0.0.1:5432: connect: connection refused"))

func (downSites) List(context.Context) ([]db.Site, error)             { return nil, errRefused }
func (downSites) GetByName(context.Context, string) (*db.Site, error) { return nil, errRefused }
func (downSites) GetDefault(context.Context) (*db.Site, error)        { return nil, errRefused }
func (downSites) Create(context.Context, *db.Site) error              { return errRefused }
func (downSites) Delete(context.Context, string) error                { return errRefused }
func (downSites) SetDefault(context.Context, string) error            { return errRefused }

var amherst = db.Site{
	Name:         "Amherst",
	Latitude:     42.38028,
	Longitude:    -72.52361,
	PressureMbar: 1010,
	TemperatureC: 15,
}

func newTestServer(sites SiteStore) *Server {
	cfg := config.DefaultConfig()
	cfg.Server.RateLimit = 0
	return NewServer(cfg, sites, WithClock(func() time.Time { return referenceTime }))
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(nil), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["status"] != "ok" || body["sites"] != false {
		t.Errorf("Unexpected health body %v", body)
	}
}

func TestAzElToRADec(t *testing.T) {
	const example = `{"az": "135:23", "el": "75.0", "latitude": "42.38028", "longitude": "-72.52361", "date": "2009-04-15T08:15:04.640922Z"}`

	checkExample := func(t *testing.T, got PositionResponse) {
		t.Helper()
		if math.Abs(got.RAHours-17.80165) > 2e-4 {
			t.Errorf("Expected RA ~17.80165h, got %v", got.RAHours)
		}
		if math.Abs(got.DecDeg-31.00173) > 2e-3 {
			t.Errorf("Expected Dec ~31.0017°, got %v", got.DecDeg)
		}
		if got.Equinox != 2000 || got.OfDate {
			t.Errorf("Expected J2000 result, got equinox %v ofDate %v", got.Equinox, got.OfDate)
		}
		if !strings.HasPrefix(got.RA, "17:48:") || !strings.HasPrefix(got.Dec, "31:00:") {
			t.Errorf("Unexpected sexagesimal output %s %s", got.RA, got.Dec)
		}
	}

	t.Run("inline observer", func(t *testing.T) {
		rec := do(t, newTestServer(nil), http.MethodPost, "/api/v1/azel2radec", example)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		got := decode[PositionResponse](t, rec)
		checkExample(t, got)
		if !got.Time.Equal(referenceTime) {
			t.Errorf("Expected time %v, got %v", referenceTime, got.Time)
		}
	})

	t.Run("numeric latitude is degrees", func(t *testing.T) {
		body := `{"az": "135:23", "el": "75.0", "latitude": 42.38028, "longitude": -72.52361}`
		rec := do(t, newTestServer(nil), http.MethodPost, "/api/v1/azel2radec", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		checkExample(t, decode[PositionResponse](t, rec))
	})

	t.Run("numeric az is radians", func(t *testing.T) {
		az := (135 + 23.0/60) * math.Pi / 180
		el := 75 * math.Pi / 180
		body := fmt.Sprintf(`{"az": %v, "el": %v, "latitude": "42.38028", "longitude": "-72.52361"}`, az, el)
		rec := do(t, newTestServer(nil), http.MethodPost, "/api/v1/azel2radec", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		checkExample(t, decode[PositionResponse](t, rec))
	})

	t.Run("named site", func(t *testing.T) {
		srv := newTestServer(newMemorySites(amherst))
		rec := do(t, srv, http.MethodPost, "/api/v1/azel2radec", `{"az": "135:23", "el": "75.0", "site": "Amherst"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		got := decode[PositionResponse](t, rec)
		checkExample(t, got)
		if got.Site != "Amherst" {
			t.Errorf("Expected site Amherst, got %q", got.Site)
		}
	})

	t.Run("default site", func(t *testing.T) {
		site := amherst
		site.IsDefault = true
		srv := newTestServer(newMemorySites(site))
		rec := do(t, srv, http.MethodPost, "/api/v1/azel2radec", `{"az": "135:23", "el": "75.0"}`)
		got := decode[PositionResponse](t, rec)
		checkExample(t, got)
		if got.Site != "Amherst" {
			t.Errorf("Expected default site Amherst, got %q", got.Site)
		}
	})

	t.Run("registry down falls back to configured observer", func(t *testing.T) {
		srv := newTestServer(downSites{})
		srv.cfg.Observer.Latitude = 42.38028
		srv.cfg.Observer.Longitude = -72.52361
		rec := do(t, srv, http.MethodPost, "/api/v1/azel2radec", `{"az": "135:23", "el": "75.0"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		checkExample(t, decode[PositionResponse](t, rec))
	})

	t.Run("configured observer", func(t *testing.T) {
		srv := newTestServer(nil)
		srv.cfg.Observer.Latitude = 42.38028
		srv.cfg.Observer.Longitude = -72.52361
		rec := do(t, srv, http.MethodPost, "/api/v1/azel2radec", `{"az": "135:23", "el": "75.0"}`)
		checkExample(t, decode[PositionResponse](t, rec))
	})

	t.Run("equinox of date", func(t *testing.T) {
		body := `{"az": "135:23", "el": "75.0", "latitude": "42.38028", "longitude": "-72.52361", "refraction": false, "equinoxOfDate": true}`
		rec := do(t, newTestServer(nil), http.MethodPost, "/api/v1/azel2radec", body)
		got := decode[PositionResponse](t, rec)
		if !got.OfDate || got.Equinox != 0 {
			t.Errorf("Expected result of date, got equinox %v", got.Equinox)
		}
		// Geometric place of date from the local apparent sidereal time
		if math.Abs(got.RAHours-17.8076775) > 1e-5 {
			t.Errorf("Expected geometric RA of date ~17.8075h, got %v", got.RAHours)
		}
		if math.Abs(got.DecDeg-30.996782425) > 1e-4 {
			t.Errorf("Expected geometric Dec of date ~30.9968°, got %v", got.DecDeg)
		}
	})
}

func TestAzElToRADecErrors(t *testing.T) {
	tests := []struct {
		name      string
		sites     SiteStore
		body      string
		wantCode  int
		wantParam string
	}{
		{"missing az", nil, `{"el": "75"}`, http.StatusBadRequest, "az"},
		{"map el", nil, `{"az": "135", "el": {"deg": 75}}`, http.StatusBadRequest, "el"},
		{"missing longitude", nil, `{"az": "135", "el": "75", "latitude": "42"}`, http.StatusBadRequest, "longitude"},
		{"bool latitude", nil, `{"az": "135", "el": "75", "latitude": true, "longitude": "0"}`, http.StatusBadRequest, "latitude"},
		{"unparseable az", nil, `{"az": "east", "el": "75", "latitude": "42", "longitude": "0"}`, http.StatusBadRequest, ""},
		{"invalid json", nil, `{"az":`, http.StatusBadRequest, "body"},
		{"empty body", nil, ``, http.StatusBadRequest, "body"},
		{"unknown site", newMemorySites(amherst), `{"az": "135", "el": "75", "site": "Nowhere"}`, http.StatusNotFound, ""},
		{"no registry", nil, `{"az": "135", "el": "75", "site": "Amherst"}`, http.StatusServiceUnavailable, ""},
		{"registry down", downSites{}, `{"az": "135", "el": "75", "site": "Amherst"}`, http.StatusServiceUnavailable, ""},
		{"latitude before az", nil, `{"az": {}, "el": "75", "latitude": true, "longitude": "0"}`, http.StatusBadRequest, "latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(tt.sites), http.MethodPost, "/api/v1/azel2radec", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body.String())
			}
			body := decode[errorResponse](t, rec)
			if body.Param != tt.wantParam {
				t.Errorf("Expected param %q, got %q (%s)", tt.wantParam, body.Param, body.Error)
			}
			if body.Error == "" {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestPrecess(t *testing.T) {
	srv := newTestServer(nil)

	t.Run("jprecess scalar", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/jprecess", `{"ra": 0, "dec": 0}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		got := decode[struct {
			RA        float64  `json:"ra"`
			Dec       float64  `json:"dec"`
			Formatted []string `json:"formatted"`
		}](t, rec)
		if math.Abs(got.RA-0.6406909770) > 1e-5 || math.Abs(got.Dec-0.2784094417) > 1e-5 {
			t.Errorf("Unexpected J2000 position %v, %v", got.RA, got.Dec)
		}
		if len(got.Formatted) != 1 {
			t.Errorf("Expected one formatted position, got %v", got.Formatted)
		}
	})

	t.Run("bprecess vector keeps order", func(t *testing.T) {
		rec := do(t, srv, http.MethodPost, "/api/v1/bprecess", `{"ra": [0.6406909770, 180, 300], "dec": [0.2784094417, 45, -60], "epoch": "J2000"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		got := decode[struct {
			RA  []float64 `json:"ra"`
			Dec []float64 `json:"dec"`
		}](t, rec)
		if len(got.RA) != 3 || len(got.Dec) != 3 {
			t.Fatalf("Expected 3 positions, got %v %v", got.RA, got.Dec)
		}
		if math.Abs(got.RA[0]) > 1e-3 && math.Abs(got.RA[0]-360) > 1e-3 {
			t.Errorf("Expected first RA back at 0, got %v", got.RA[0])
		}
		if math.Abs(got.Dec[0]) > 1e-3 {
			t.Errorf("Expected first Dec back at 0, got %v", got.Dec[0])
		}
		if got.Dec[1] < 40 || got.Dec[2] > -55 {
			t.Errorf("Output order not preserved: %v", got.Dec)
		}
	})

	t.Run("numeric epoch", func(t *testing.T) {
		a := do(t, srv, http.MethodPost, "/api/v1/jprecess", `{"ra": 10, "dec": 20, "epoch": 1950}`)
		b := do(t, srv, http.MethodPost, "/api/v1/jprecess", `{"ra": 10, "dec": 20, "epoch": "B1950"}`)
		if a.Body.String() != b.Body.String() {
			t.Errorf("Epoch 1950 and B1950 differ: %s vs %s", a.Body.String(), b.Body.String())
		}
	})

	errs := []struct {
		name, path, body, param string
	}{
		{"missing ra", "/api/v1/jprecess", `{"dec": 0}`, "ra"},
		{"length mismatch", "/api/v1/jprecess", `{"ra": [1, 2], "dec": [1]}`, "dec"},
		{"kind mismatch", "/api/v1/bprecess", `{"ra": 1, "dec": [1]}`, "dec"},
		{"string ra", "/api/v1/bprecess", `{"ra": "12:00", "dec": 1}`, "ra"},
		{"wrong frame epoch", "/api/v1/jprecess", `{"ra": 1, "dec": 1, "epoch": "J2000"}`, "epoch"},
		{"object epoch", "/api/v1/bprecess", `{"ra": 1, "dec": 1, "epoch": {}}`, "epoch"},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tt.path, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("Expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decode[errorResponse](t, rec).Param; got != tt.param {
				t.Errorf("Expected param %q, got %q", tt.param, got)
			}
		})
	}
}

func TestSites(t *testing.T) {
	srv := newTestServer(newMemorySites())

	rec := do(t, srv, http.MethodPost, "/api/v1/sites", `{"name": "Amherst", "latitude": 42.38028, "longitude": -72.52361}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	created := decode[db.Site](t, rec)
	if created.ID == 0 || created.PressureMbar != 1010 || created.TemperatureC != 15 {
		t.Errorf("Expected stored site with default atmosphere, got %+v", created)
	}

	if rec := do(t, srv, http.MethodPost, "/api/v1/sites", `{"name": "Amherst", "latitude": 1, "longitude": 1}`); rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodPost, "/api/v1/sites", `{"name": "Bad", "latitude": 91, "longitude": 0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid site, got %d", rec.Code)
	}
	do(t, srv, http.MethodPost, "/api/v1/sites", `{"name": "Kitt Peak", "latitude": 31.9583, "longitude": -111.5967, "elevationMeters": 2096}`)

	rec = do(t, srv, http.MethodGet, "/api/v1/sites", "")
	list := decode[struct {
		Sites []db.Site `json:"sites"`
		Count int       `json:"count"`
	}](t, rec)
	if list.Count != 2 || len(list.Sites) != 2 {
		t.Errorf("Expected 2 sites, got %+v", list)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/sites/Kitt%20Peak", "")
	if rec.Code != http.StatusOK || decode[db.Site](t, rec).ElevationMeters != 2096 {
		t.Errorf("Unexpected get response %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/sites/Amherst/default", "")
	if rec.Code != http.StatusOK || !decode[db.Site](t, rec).IsDefault {
		t.Errorf("Expected Amherst to become default: %d %s", rec.Code, rec.Body.String())
	}
	if rec := do(t, srv, http.MethodPost, "/api/v1/sites/Nowhere/default", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown default, got %d", rec.Code)
	}

	if rec := do(t, srv, http.MethodDelete, "/api/v1/sites/Amherst", ""); rec.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodDelete, "/api/v1/sites/Amherst", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/sites/Amherst", ""); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestSitesWithoutRegistry(t *testing.T) {
	for name, sites := range map[string]SiteStore{"disabled": nil, "unreachable": downSites{}} {
		srv := newTestServer(sites)
		for _, path := range []string{"/api/v1/sites", "/api/v1/sites/Amherst"} {
			if rec := do(t, srv, http.MethodGet, path, ""); rec.Code != http.StatusServiceUnavailable {
				t.Errorf("%s: GET %s: expected 503, got %d", name, path, rec.Code)
			}
		}
	}
}

func TestRateLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.RateLimit = 0.001
	cfg.Server.RateBurst = 1
	srv := NewServer(cfg, nil)

	body := `{"ra": 0, "dec": 0}`
	if rec := do(t, srv, http.MethodPost, "/api/v1/jprecess", body); rec.Code != http.StatusOK {
		t.Fatalf("Expected first request to pass, got %d", rec.Code)
	}
	rec := do(t, srv, http.MethodPost, "/api/v1/jprecess", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Expected Retry-After header")
	}

	// Health checks are not limited
	if rec := do(t, srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("Expected health check to bypass the limiter, got %d", rec.Code)
	}
}

func TestParseInterval(t *testing.T) {
	def := time.Second
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", def, false},
		{"250ms", 250 * time.Millisecond, false},
		{"2s", 2 * time.Second, false},
		{"500", 500 * time.Millisecond, false},
		{"50ms", 0, true},
		{"99", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := parseInterval(tt.in, def)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseInterval(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseInterval(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDriftRejectsBadQueryBeforeUpgrade(t *testing.T) {
	srv := newTestServer(nil)
	tests := []struct {
		query, param string
	}{
		{"el=50&latitude=42&longitude=-72", "az"},
		{"az=180&el=50&latitude=42&longitude=-72&interval=10ms", "interval"},
		{"az=180&el=50&latitude=95&longitude=-72", "latitude"},
		{"az=180&el=50&latitude=42", "longitude"},
	}
	for _, tt := range tests {
		rec := do(t, srv, http.MethodGet, "/api/v1/ws/drift?"+tt.query, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tt.query, rec.Code)
			continue
		}
		if got := decode[errorResponse](t, rec).Param; got != tt.param {
			t.Errorf("%s: expected param %q, got %q", tt.query, tt.param, got)
		}
	}
}

func TestDriftStream(t *testing.T) {
	ts := httptest.NewServer(newTestServer(nil))
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") +
		"/api/v1/ws/drift?az=180&el=50&latitude=42.38028&longitude=-72.52361&interval=100ms"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial drift stream: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 2; i++ {
		var frame DriftFrame
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("Failed to read frame %d: %v", i, err)
		}
		if !frame.Time.Equal(referenceTime) {
			t.Errorf("Frame %d: expected time %v, got %v", i, referenceTime, frame.Time)
		}
		if frame.LSTHours < 0 || frame.LSTHours >= 24 {
			t.Errorf("Frame %d: LST out of range: %v", i, frame.LSTHours)
		}
		// Meridian pointing at el 50 from lat 42.38 looks at dec ~2.4°
		if math.Abs(frame.DecDeg-2.38) > 0.5 {
			t.Errorf("Frame %d: unexpected declination %v", i, frame.DecDeg)
		}
		if math.Abs(frame.RADeg-frame.RAHours*15) > 1e-9 {
			t.Errorf("Frame %d: raDeg and raHours disagree", i)
		}
	}
}

func TestDriftStreamStopsWithServerContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := httptest.NewUnstartedServer(newTestServer(nil))
	ts.Config.BaseContext = func(net.Listener) context.Context { return ctx }
	ts.Start()
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") +
		"/api/v1/ws/drift?az=180&el=50&latitude=42.38028&longitude=-72.52361&interval=1s"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial drift stream: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var frame DriftFrame
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("Failed to read first frame: %v", err)
	}

	cancel()
	for {
		if err = conn.ReadJSON(&frame); err != nil {
			break
		}
	}
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("Expected a going-away close, got %v", err)
	}
}
