// Package alpaca reads the pointing of an ASCOM Alpaca telescope mount.
// Reference: https://ascom-standards.org/Developer/Alpaca.htm
package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/unklstewy/skyconv/pkg/config"
)

// Client is a read-only Alpaca telescope client. It never slews the mount.
type Client struct {
	baseURL      string
	deviceNumber int

	// clientID is a unique identifier for this client instance
	// Generated at client creation to comply with Alpaca specification
	clientID int

	// transaction is the last ClientTransactionID sent
	transaction atomic.Uint32

	httpClient *http.Client

	// limiter keeps polling within the configured request rate
	limiter *rate.Limiter
}

// NewClient creates a client for the mount described by cfg.
func NewClient(cfg config.MountConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pollRate := cfg.PollRate
	if pollRate <= 0 {
		pollRate = 5
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		deviceNumber: cfg.DeviceNumber,
		clientID:     generateClientID(),
		httpClient:   &http.Client{Timeout: timeout},
		limiter:      rate.NewLimiter(rate.Limit(pollRate), 1),
	}
}

// generateClientID creates a client ID that fits the 32-bit range Alpaca allows.
func generateClientID() int {
	return int(time.Now().Unix() % 2147483647)
}

// Pointing is a snapshot of where the mount reports it is pointed.
type Pointing struct {
	// Altitude and Azimuth in degrees, azimuth from north through east
	Altitude float64 `json:"altitude"`
	Azimuth  float64 `json:"azimuth"`

	// RightAscension in hours and Declination in degrees, in the mount's
	// own equatorial system
	RightAscension float64 `json:"rightAscension"`
	Declination    float64 `json:"declination"`

	// ReadAt is when the last value was read
	ReadAt time.Time `json:"readAt"`
}

// Connected reports whether the mount driver is connected.
// Implements: GET /api/v1/telescope/{device_number}/connected
func (c *Client) Connected(ctx context.Context) (bool, error) {
	resp, err := c.get(ctx, "connected")
	if err != nil {
		return false, fmt.Errorf("failed to get connection status: %w", err)
	}
	if err := resp.Error(); err != nil {
		return false, err
	}

	connected, ok := resp.Value.(bool)
	if !ok {
		return false, fmt.Errorf("unexpected response type for connected status")
	}
	return connected, nil
}

// Altitude returns the mount altitude in degrees.
// Implements: GET /api/v1/telescope/{device_number}/altitude
func (c *Client) Altitude(ctx context.Context) (float64, error) {
	return c.getFloat(ctx, "altitude")
}

// Azimuth returns the mount azimuth in degrees.
// Implements: GET /api/v1/telescope/{device_number}/azimuth
func (c *Client) Azimuth(ctx context.Context) (float64, error) {
	return c.getFloat(ctx, "azimuth")
}

// RightAscension returns the mount right ascension in hours.
// Implements: GET /api/v1/telescope/{device_number}/rightascension
func (c *Client) RightAscension(ctx context.Context) (float64, error) {
	return c.getFloat(ctx, "rightascension")
}

// Declination returns the mount declination in degrees.
// Implements: GET /api/v1/telescope/{device_number}/declination
func (c *Client) Declination(ctx context.Context) (float64, error) {
	return c.getFloat(ctx, "declination")
}

// Pointing reads all four axes. The reads are sequential, so a slewing
// mount can move between them.
func (c *Client) Pointing(ctx context.Context) (Pointing, error) {
	var p Pointing
	var err error

	if p.Altitude, err = c.Altitude(ctx); err != nil {
		return p, err
	}
	if p.Azimuth, err = c.Azimuth(ctx); err != nil {
		return p, err
	}
	if p.RightAscension, err = c.RightAscension(ctx); err != nil {
		return p, err
	}
	if p.Declination, err = c.Declination(ctx); err != nil {
		return p, err
	}
	p.ReadAt = time.Now().UTC()
	return p, nil
}

func (c *Client) getFloat(ctx context.Context, endpoint string) (float64, error) {
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return 0, fmt.Errorf("failed to get %s: %w", endpoint, err)
	}
	if err := resp.Error(); err != nil {
		return 0, err
	}

	v, ok := resp.Value.(float64)
	if !ok {
		return 0, fmt.Errorf("unexpected response type for %s: %T", endpoint, resp.Value)
	}
	return v, nil
}

func (c *Client) nextTransactionID() int {
	return int(c.transaction.Add(1) & 0x7fffffff)
}

// get performs an HTTP GET request to an Alpaca endpoint.
func (c *Client) get(ctx context.Context, endpoint string) (*alpacaResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	params := url.Values{}
	params.Add("ClientID", strconv.Itoa(c.clientID))
	params.Add("ClientTransactionID", strconv.Itoa(c.nextTransactionID()))

	fullURL := fmt.Sprintf("%s/api/v1/telescope/%d/%s?%s",
		c.baseURL, c.deviceNumber, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("alpaca returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var alpacaResp alpacaResponse
	if err := parseAlpacaResponse(resp.Body, &alpacaResp); err != nil {
		return nil, err
	}
	return &alpacaResp, nil
}

// alpacaResponse represents the standard Alpaca API response format.
type alpacaResponse struct {
	// Value contains the response value (type varies by endpoint)
	Value interface{} `json:"Value"`

	// ClientTransactionID echoes back the client's transaction ID
	ClientTransactionID int `json:"ClientTransactionID"`

	// ServerTransactionID is the server's transaction ID
	ServerTransactionID int `json:"ServerTransactionID"`

	// ErrorNumber is 0 for success, non-zero for errors
	ErrorNumber int `json:"ErrorNumber"`

	// ErrorMessage contains error description if ErrorNumber != 0
	ErrorMessage string `json:"ErrorMessage"`
}

// Error returns an error if the Alpaca response indicates an error.
func (r *alpacaResponse) Error() error {
	if r.ErrorNumber != 0 {
		return fmt.Errorf("alpaca error %d: %s", r.ErrorNumber, r.ErrorMessage)
	}
	return nil
}

func parseAlpacaResponse(body io.Reader, resp *alpacaResponse) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := json.Unmarshal(data, resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
