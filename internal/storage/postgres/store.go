package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campground_ingest/internal/domain"
)

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = "23505"

const campgroundColumns = `id, type, name, lat, lon, region_name, administrative_area, nearest_city_name,
  accommodation_type_names, camper_types, bookable, operator, photo_url, photo_urls, photos_count,
  rating, reviews_count, slug, price_low, price_high, availability_updated_at, self_link`

const insertCampgroundSQL = `INSERT INTO campgrounds (` + campgroundColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`

const findCampgroundSQL = `SELECT ` + campgroundColumns + ` FROM campgrounds WHERE id = $1`

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the PostgreSQL campground store.
type Store struct{ pool Pool }

func New(pool Pool) *Store { return &Store{pool: pool} }

// Open connects a pool and verifies it with a ping.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *Store) Begin(ctx context.Context) (domain.CampgroundTx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (s *Store) GetCampground(ctx context.Context, id string) (domain.Campground, error) {
	c, err := scanCampground(s.pool.QueryRow(ctx, findCampgroundSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Campground{}, domain.ErrNotFound
	}
	return c, err
}

type Tx struct{ tx pgx.Tx }

func (t *Tx) FindByID(ctx context.Context, id string) (*domain.Campground, error) {
	c, err := scanCampground(t.tx.QueryRow(ctx, findCampgroundSQL, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *Tx) Insert(ctx context.Context, c domain.Campground) error {
	var avail *time.Time
	if c.AvailabilityUpdatedAt != nil {
		u := c.AvailabilityUpdatedAt.UTC()
		avail = &u
	}
	_, err := t.tx.Exec(ctx, insertCampgroundSQL,
		c.ID, c.Type, c.Name, c.Coords.Lat, c.Coords.Lon, c.RegionName,
		c.AdministrativeArea, c.NearestCityName,
		list(c.AccommodationTypes), list(c.CamperTypes),
		c.Bookable, c.Operator, c.PhotoURL, list(c.PhotoURLs), c.PhotoCount,
		c.Rating, c.ReviewCount, c.Slug, c.PriceLow, c.PriceHigh,
		avail, c.SelfLink,
	)
	if isDuplicate(err) {
		return fmt.Errorf("insert campground %s: %w", c.ID, domain.ErrDuplicate)
	}
	return err
}

func (t *Tx) Commit(ctx context.Context) error {
	err := t.tx.Commit(ctx)
	if isDuplicate(err) {
		return fmt.Errorf("commit: %w", domain.ErrDuplicate)
	}
	return err
}

func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}

// list keeps NOT NULL array columns non-null.
func list(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func scanCampground(row pgx.Row) (domain.Campground, error) {
	var c domain.Campground
	var avail *time.Time
	if err := row.Scan(
		&c.ID, &c.Type, &c.Name, &c.Coords.Lat, &c.Coords.Lon, &c.RegionName,
		&c.AdministrativeArea, &c.NearestCityName,
		&c.AccommodationTypes, &c.CamperTypes,
		&c.Bookable, &c.Operator, &c.PhotoURL, &c.PhotoURLs, &c.PhotoCount,
		&c.Rating, &c.ReviewCount, &c.Slug, &c.PriceLow, &c.PriceHigh,
		&avail, &c.SelfLink,
	); err != nil {
		return domain.Campground{}, err
	}
	if avail != nil {
		u := avail.UTC()
		c.AvailabilityUpdatedAt = &u
	}
	c.AccommodationTypes = list(c.AccommodationTypes)
	c.CamperTypes = list(c.CamperTypes)
	c.PhotoURLs = list(c.PhotoURLs)
	return c, nil
}
