package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	mysqldrv "github.com/go-sql-driver/mysql"

	"campground_ingest/internal/domain"
)

// errDupEntry is MySQL's ER_DUP_ENTRY.
const errDupEntry = 1062

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valJSON(ss []string) (string, error) {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	return string(b), err
}

func isDuplicate(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == errDupEntry
}

// Store is the MySQL campground store.
type Store struct{ db *sql.DB }

func New(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Begin(ctx context.Context) (domain.CampgroundTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx}, nil
}

func (s *Store) GetCampground(ctx context.Context, id string) (domain.Campground, error) {
	c, err := scanCampground(s.db.QueryRowContext(ctx, findCampgroundSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Campground{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Campground{}, err
	}
	return c, nil
}

// Tx wraps one per-record *sql.Tx.
type Tx struct{ tx *sql.Tx }

// FindByID is a plain consistent read. A concurrent writer that commits the
// same id first makes the following Insert fail with ER_DUP_ENTRY.
func (t *Tx) FindByID(ctx context.Context, id string) (*domain.Campground, error) {
	c, err := scanCampground(t.tx.QueryRowContext(ctx, findCampgroundSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *Tx) Insert(ctx context.Context, c domain.Campground) error {
	args, err := insertArgs(c)
	if err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx, insertCampgroundSQL, args...); err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("insert campground %s: %w", c.ID, domain.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (t *Tx) Commit(ctx context.Context) error {
	err := t.tx.Commit()
	if isDuplicate(err) {
		return fmt.Errorf("commit: %w", domain.ErrDuplicate)
	}
	return err
}

func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

func insertArgs(c domain.Campground) ([]any, error) {
	acc, err := valJSON(c.AccommodationTypes)
	if err != nil {
		return nil, err
	}
	camper, err := valJSON(c.CamperTypes)
	if err != nil {
		return nil, err
	}
	photos, err := valJSON(c.PhotoURLs)
	if err != nil {
		return nil, err
	}
	var avail any
	if c.AvailabilityUpdatedAt != nil {
		avail = c.AvailabilityUpdatedAt.UTC()
	}
	return []any{
		c.ID,
		c.Type,
		c.Name,
		c.Coords.Lat,
		c.Coords.Lon,
		c.RegionName,
		valStr(c.AdministrativeArea),
		valStr(c.NearestCityName),
		acc,
		camper,
		c.Bookable,
		valStr(c.Operator),
		valStr(c.PhotoURL),
		photos,
		c.PhotoCount,
		valF64(c.Rating),
		c.ReviewCount,
		valStr(c.Slug),
		valF64(c.PriceLow),
		valF64(c.PriceHigh),
		avail,
		c.SelfLink,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampground(row rowScanner) (domain.Campground, error) {
	var c domain.Campground
	var (
		adminArea, nearestCity, operator, photoURL, slug sql.NullString
		rating, priceLow, priceHigh                     sql.NullFloat64
		avail                                            sql.NullTime
		accJSON, camperJSON, photosJSON                  []byte
	)
	if err := row.Scan(
		&c.ID,
		&c.Type,
		&c.Name,
		&c.Coords.Lat, &c.Coords.Lon,
		&c.RegionName,
		&adminArea, &nearestCity,
		&accJSON, &camperJSON,
		&c.Bookable,
		&operator,
		&photoURL, &photosJSON, &c.PhotoCount,
		&rating, &c.ReviewCount,
		&slug,
		&priceLow, &priceHigh,
		&avail,
		&c.SelfLink,
	); err != nil {
		return domain.Campground{}, err
	}

	c.AdministrativeArea = nullStr(adminArea)
	c.NearestCityName = nullStr(nearestCity)
	c.Operator = nullStr(operator)
	c.PhotoURL = nullStr(photoURL)
	c.Slug = nullStr(slug)
	c.Rating = nullF64(rating)
	c.PriceLow = nullF64(priceLow)
	c.PriceHigh = nullF64(priceHigh)
	if avail.Valid {
		t := avail.Time.UTC()
		c.AvailabilityUpdatedAt = &t
	}

	var err error
	if c.AccommodationTypes, err = decodeList(accJSON); err != nil {
		return domain.Campground{}, fmt.Errorf("decode accommodation_type_names: %w", err)
	}
	if c.CamperTypes, err = decodeList(camperJSON); err != nil {
		return domain.Campground{}, fmt.Errorf("decode camper_types: %w", err)
	}
	if c.PhotoURLs, err = decodeList(photosJSON); err != nil {
		return domain.Campground{}, fmt.Errorf("decode photo_urls: %w", err)
	}
	return c, nil
}

func nullStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullF64(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func decodeList(b []byte) ([]string, error) {
	out := []string{}
	if len(b) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
