package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/unklstewy/skyconv/pkg/coordinates"
)

var (
	// ErrSiteNotFound is returned when no site has the requested name.
	ErrSiteNotFound = errors.New("observer site not found")

	// ErrSiteExists is returned when creating a site whose name is taken.
	ErrSiteExists = errors.New("observer site already exists")

	// ErrInvalidSite wraps validation failures of a site.
	ErrInvalidSite = errors.New("invalid observer site")

	// ErrUnavailable wraps failures caused by a lost or refused connection.
	ErrUnavailable = errors.New("site registry unavailable")
)

const (
	// uniqueViolation is the PostgreSQL error code for unique_violation.
	uniqueViolation = "23505"

	// readRetries is how often read queries are retried on connection errors.
	readRetries = 2
)

// Site is a named observer location with its local atmosphere.
type Site struct {
	ID              int       `json:"id"`
	Name            string    `json:"name"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	ElevationMeters float64   `json:"elevationMeters"`
	PressureMbar    float64   `json:"pressureMbar"`
	TemperatureC    float64   `json:"temperatureC"`
	IsDefault       bool      `json:"isDefault"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Observer returns the site as a coordinates.Observer.
func (s Site) Observer() coordinates.Observer {
	return coordinates.Observer{
		Location: coordinates.Geographic{
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			Altitude:  s.ElevationMeters,
		},
		Pressure:    s.PressureMbar,
		Temperature: s.TemperatureC,
	}
}

// Validate checks the fields a site must have before it is stored.
func (s Site) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSite)
	}
	if len(s.Name) > 100 {
		return fmt.Errorf("%w: name longer than 100 characters", ErrInvalidSite)
	}
	if math.IsNaN(s.Latitude) || s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidSite, s.Latitude)
	}
	if math.IsNaN(s.Longitude) || s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidSite, s.Longitude)
	}
	if s.PressureMbar < 0 {
		return fmt.Errorf("%w: pressure must not be negative, got %v", ErrInvalidSite, s.PressureMbar)
	}
	return nil
}

// SiteRepository provides methods for managing observer sites
type SiteRepository struct {
	db *DB
}

// NewSiteRepository creates a new site repository
func NewSiteRepository(db *DB) *SiteRepository {
	return &SiteRepository{db: db}
}

const siteColumns = `id, name, latitude, longitude, elevation_meters, pressure_mbar, temperature_c, is_default, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(row scanner) (Site, error) {
	var s Site
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Latitude,
		&s.Longitude,
		&s.ElevationMeters,
		&s.PressureMbar,
		&s.TemperatureC,
		&s.IsDefault,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

// List returns all sites, the default first, then by name.
// Connection failures are retried.
func (r *SiteRepository) List(ctx context.Context) ([]Site, error) {
	var sites []Site
	err := WithRetry(ctx, func() error {
		var err error
		sites, err = r.list(ctx)
		return err
	}, readRetries)
	return sites, err
}

func (r *SiteRepository) list(ctx context.Context) ([]Site, error) {
	query := `SELECT ` + siteColumns + ` FROM observer_sites ORDER BY is_default DESC, name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeError("failed to query sites", err)
	}
	defer rows.Close()

	var sites []Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, storeError("failed to scan site", err)
		}
		sites = append(sites, s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("failed to iterate sites", err)
	}

	return sites, nil
}

// GetByName returns the site with the given name.
// Connection failures are retried.
func (r *SiteRepository) GetByName(ctx context.Context, name string) (*Site, error) {
	query := `SELECT ` + siteColumns + ` FROM observer_sites WHERE name = $1`

	var s Site
	err := WithRetry(ctx, func() error {
		var err error
		s, err = scanSite(r.db.QueryRowContext(ctx, query, name))
		return err
	}, readRetries)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrSiteNotFound, name)
	}
	if err != nil {
		return nil, storeError("failed to get site", err)
	}

	return &s, nil
}

// GetDefault returns the default site, or nil if none is set
func (r *SiteRepository) GetDefault(ctx context.Context) (*Site, error) {
	query := `SELECT ` + siteColumns + ` FROM observer_sites WHERE is_default = TRUE LIMIT 1`

	s, err := scanSite(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("failed to get default site", err)
	}

	return &s, nil
}

// Create stores a new site. If it is marked default, the previous default
// is cleared in the same transaction.
func (r *SiteRepository) Create(ctx context.Context, site *Site) error {
	if err := site.Validate(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if site.IsDefault {
		if _, err := tx.ExecContext(ctx, `UPDATE observer_sites SET is_default = FALSE, updated_at = NOW() WHERE is_default`); err != nil {
			return storeError("failed to clear default site", err)
		}
	}

	query := `
		INSERT INTO observer_sites (name, latitude, longitude, elevation_meters, pressure_mbar, temperature_c, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err = tx.QueryRowContext(
		ctx,
		query,
		site.Name,
		site.Latitude,
		site.Longitude,
		site.ElevationMeters,
		site.PressureMbar,
		site.TemperatureC,
		site.IsDefault,
	).Scan(&site.ID, &site.CreatedAt, &site.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrSiteExists, site.Name)
		}
		return storeError("failed to create site", err)
	}

	if err := tx.Commit(); err != nil {
		return storeError("failed to commit site", err)
	}
	return nil
}

// Delete removes the site with the given name
func (r *SiteRepository) Delete(ctx context.Context, name string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM observer_sites WHERE name = $1`, name)
	if err != nil {
		return storeError("failed to delete site", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeError("failed to get rows affected", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrSiteNotFound, name)
	}

	return nil
}

// SetDefault makes the named site the default one
func (r *SiteRepository) SetDefault(ctx context.Context, name string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE observer_sites SET is_default = FALSE, updated_at = NOW() WHERE is_default AND name <> $1`, name); err != nil {
		return storeError("failed to clear default site", err)
	}

	result, err := tx.ExecContext(ctx, `UPDATE observer_sites SET is_default = TRUE, updated_at = NOW() WHERE name = $1`, name)
	if err != nil {
		return storeError("failed to set default site", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeError("failed to get rows affected", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrSiteNotFound, name)
	}

	if err := tx.Commit(); err != nil {
		return storeError("failed to commit default site", err)
	}
	return nil
}

// storeError wraps err with msg. Connection failures also wrap
// ErrUnavailable so callers can tell an outage from a bad query.
func storeError(msg string, err error) error {
	if isConnectionError(err) {
		return fmt.Errorf("%s: %w: %w", msg, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
