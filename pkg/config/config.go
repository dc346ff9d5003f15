package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/unklstewy/skyconv/pkg/coordinates"
)

// Config represents the complete application configuration.
// It is read from a JSON or TOML file and then overridden from the
// environment.
type Config struct {
	Server     ServerConfig     `json:"server" toml:"server"`
	Database   DatabaseConfig   `json:"database" toml:"database"`
	Observer   ObserverConfig   `json:"observer" toml:"observer"`
	Conversion ConversionConfig `json:"conversion" toml:"conversion"`
	Mount      MountConfig      `json:"mount" toml:"mount"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port is the HTTP server port (default: 8080)
	Port string `json:"port" toml:"port"`

	// Host is the server bind address (default: "0.0.0.0")
	Host string `json:"host" toml:"host"`

	// TLSEnabled determines if HTTPS should be used
	TLSEnabled bool `json:"tls_enabled" toml:"tls_enabled"`

	// TLSCertFile is the path to the TLS certificate
	TLSCertFile string `json:"tls_cert_file" toml:"tls_cert_file"`

	// TLSKeyFile is the path to the TLS private key
	TLSKeyFile string `json:"tls_key_file" toml:"tls_key_file"`

	// RateLimit is the sustained number of API requests per second
	// accepted across all clients. 0 disables limiting.
	RateLimit float64 `json:"rate_limit" toml:"rate_limit"`

	// RateBurst is the number of requests allowed above RateLimit in a burst
	RateBurst int `json:"rate_burst" toml:"rate_burst"`

	// AllowedOrigins lists the CORS origins allowed to call the API
	AllowedOrigins []string `json:"allowed_origins" toml:"allowed_origins"`
}

// DatabaseConfig contains database connection settings for the site registry.
type DatabaseConfig struct {
	// Enabled turns the site registry on. Without it only inline
	// latitude/longitude can be used.
	Enabled bool `json:"enabled" toml:"enabled"`

	// Driver is the database driver (postgres)
	Driver string `json:"driver" toml:"driver"`

	// Host is the database server hostname
	Host string `json:"host" toml:"host"`

	// Port is the database server port
	Port int `json:"port" toml:"port"`

	// Database is the database name
	Database string `json:"database" toml:"database"`

	// Username for database authentication
	Username string `json:"username" toml:"username"`

	// Password for database authentication (should be loaded from environment)
	Password string `json:"password" toml:"password"`

	// SSLMode for PostgreSQL connections (disable, require, verify-ca, verify-full)
	SSLMode string `json:"ssl_mode" toml:"ssl_mode"`

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int `json:"max_open_conns" toml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int `json:"max_idle_conns" toml:"max_idle_conns"`
}

// ObserverConfig contains the default observer's location and local
// atmosphere. It is used whenever a request names neither a site nor a
// latitude/longitude.
type ObserverConfig struct {
	// Name is a friendly identifier for this observer location
	Name string `json:"name" toml:"name"`

	// Latitude in decimal degrees (-90 to +90)
	Latitude float64 `json:"latitude" toml:"latitude"`

	// Longitude in decimal degrees (-180 to +180), east positive
	Longitude float64 `json:"longitude" toml:"longitude"`

	// Elevation in meters above sea level
	Elevation float64 `json:"elevation" toml:"elevation"`

	// TimeZone is the IANA timezone name (e.g., "America/New_York")
	TimeZone string `json:"timezone" toml:"timezone"`

	// Pressure is the atmospheric pressure in millibars. 0 disables refraction.
	Pressure float64 `json:"pressure" toml:"pressure"`

	// Temperature is the air temperature in degrees Celsius
	Temperature float64 `json:"temperature" toml:"temperature"`
}

// ConversionConfig holds defaults for horizontal to equatorial conversion.
type ConversionConfig struct {
	// Equinox is the Julian year of the output mean equinox (default 2000).
	// 0 returns the apparent place of date.
	Equinox float64 `json:"equinox" toml:"equinox"`

	// Refraction enables the atmospheric refraction correction
	Refraction bool `json:"refraction" toml:"refraction"`

	// DriftIntervalMillis is the default update interval of drift streams
	DriftIntervalMillis int `json:"drift_interval_ms" toml:"drift_interval_ms"`
}

// MountConfig points at an ASCOM Alpaca telescope mount whose reported
// az/el can be converted.
type MountConfig struct {
	// BaseURL is the Alpaca server URL (e.g., "http://localhost:11111")
	BaseURL string `json:"base_url" toml:"base_url"`

	// DeviceNumber is the Alpaca telescope device number
	DeviceNumber int `json:"device_number" toml:"device_number"`

	// PollRate is the maximum number of requests per second sent to the mount
	PollRate float64 `json:"poll_rate" toml:"poll_rate"`

	// TimeoutSeconds bounds each request to the mount
	TimeoutSeconds int `json:"timeout_seconds" toml:"timeout_seconds"`
}

// Timeout returns the per request timeout.
func (m MountConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// MinDriftInterval is the shortest allowed drift stream update interval.
const MinDriftInterval = 100 * time.Millisecond

// Load reads configuration from a JSON or TOML file (chosen by the
// ".toml" extension). Values missing from the file keep their defaults.
// If the file doesn't exist, the default configuration is used.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if isTOML(path) {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		} else {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to a file, as TOML when the path ends in
// ".toml" and as indented JSON otherwise.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		data, err = json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8080",
			Host:           "0.0.0.0",
			TLSEnabled:     false,
			RateLimit:      20,
			RateBurst:      40,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Enabled:      true,
			Driver:       "postgres",
			Host:         "localhost",
			Port:         5432,
			Database:     "skyconv",
			Username:     "skyconv",
			SSLMode:      "disable",
			MaxOpenConns: 10,
			MaxIdleConns: 2,
		},
		Observer: ObserverConfig{
			Name:        "Primary Observer",
			Latitude:    0.0,
			Longitude:   0.0,
			Elevation:   0.0,
			TimeZone:    "UTC",
			Pressure:    coordinates.DefaultPressure,
			Temperature: coordinates.DefaultTemperature,
		},
		Conversion: ConversionConfig{
			Equinox:             coordinates.J2000,
			Refraction:          true,
			DriftIntervalMillis: 1000,
		},
		Mount: MountConfig{
			BaseURL:        "http://localhost:11111",
			DeviceNumber:   0,
			PollRate:       5,
			TimeoutSeconds: 10,
		},
	}
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server port %q", c.Server.Port)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", c.Server.RateLimit)
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1 when rate limiting, got %d", c.Server.RateBurst)
	}
	if c.Server.TLSEnabled && (c.Server.TLSCertFile == "" || c.Server.TLSKeyFile == "") {
		return fmt.Errorf("tls enabled but certificate or key file not set")
	}
	if err := c.Observer.Validate(); err != nil {
		return err
	}
	if c.Conversion.Equinox < 0 {
		return fmt.Errorf("equinox must not be negative, got %v", c.Conversion.Equinox)
	}
	if c.Conversion.DriftInterval() < MinDriftInterval {
		return fmt.Errorf("drift interval must be at least %v, got %v", MinDriftInterval, c.Conversion.DriftInterval())
	}
	if c.Mount.PollRate <= 0 {
		return fmt.Errorf("mount poll rate must be positive, got %v", c.Mount.PollRate)
	}
	return nil
}

// Validate checks the observer's location and atmosphere.
func (o ObserverConfig) Validate() error {
	if math.IsNaN(o.Latitude) || o.Latitude < -90 || o.Latitude > 90 {
		return fmt.Errorf("observer latitude %v out of range [-90, 90]", o.Latitude)
	}
	if math.IsNaN(o.Longitude) || o.Longitude < -180 || o.Longitude > 180 {
		return fmt.Errorf("observer longitude %v out of range [-180, 180]", o.Longitude)
	}
	if math.IsNaN(o.Pressure) || o.Pressure < 0 {
		return fmt.Errorf("observer pressure must not be negative, got %v", o.Pressure)
	}
	return nil
}

// Observer returns the configured observer for coordinate conversion.
func (o ObserverConfig) Observer() coordinates.Observer {
	return coordinates.Observer{
		Location: coordinates.Geographic{
			Latitude:  o.Latitude,
			Longitude: o.Longitude,
			Altitude:  o.Elevation,
		},
		Pressure:    o.Pressure,
		Temperature: o.Temperature,
		Timezone:    o.TimeZone,
	}
}

// Options returns the conversion options implied by the configuration.
func (c ConversionConfig) Options() []coordinates.Option {
	var opts []coordinates.Option
	if !c.Refraction {
		opts = append(opts, coordinates.WithoutRefraction())
	}
	if c.Equinox == 0 {
		opts = append(opts, coordinates.WithEquinoxOfDate())
	} else {
		opts = append(opts, coordinates.WithEquinox(c.Equinox))
	}
	return opts
}

// DriftInterval returns the drift stream update interval.
func (c ConversionConfig) DriftInterval() time.Duration {
	return time.Duration(c.DriftIntervalMillis) * time.Millisecond
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
// This allows sensitive data like passwords to be kept out of config files.
func (c *Config) applyEnvironmentOverrides() error {
	if port := os.Getenv("SKYCONV_PORT"); port != "" {
		c.Server.Port = port
	}
	if dbHost := os.Getenv("SKYCONV_DB_HOST"); dbHost != "" {
		c.Database.Host = dbHost
	}
	if dbPassword := os.Getenv("SKYCONV_DB_PASSWORD"); dbPassword != "" {
		c.Database.Password = dbPassword
	}
	if lat := os.Getenv("SKYCONV_OBSERVER_LAT"); lat != "" {
		v, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			return fmt.Errorf("failed to parse SKYCONV_OBSERVER_LAT: %w", err)
		}
		c.Observer.Latitude = v
	}
	if lon := os.Getenv("SKYCONV_OBSERVER_LON"); lon != "" {
		v, err := strconv.ParseFloat(lon, 64)
		if err != nil {
			return fmt.Errorf("failed to parse SKYCONV_OBSERVER_LON: %w", err)
		}
		c.Observer.Longitude = v
	}
	if mountURL := os.Getenv("SKYCONV_MOUNT_URL"); mountURL != "" {
		c.Mount.BaseURL = mountURL
	}
	return nil
}
