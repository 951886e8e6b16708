package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"campground_ingest/internal/domain"
)

type UpsertOutcome int

const (
	Inserted UpsertOutcome = iota + 1
	AlreadyExists
)

func (o UpsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// Upserter inserts a campground unless its id is already stored.
// Existing rows are never overwritten.
type Upserter struct {
	store  domain.CampgroundStore
	events domain.EventPublisher
}

func NewUpserter(s domain.CampgroundStore, events domain.EventPublisher) *Upserter {
	return &Upserter{store: s, events: events}
}

func (u *Upserter) Upsert(ctx context.Context, c domain.Campground) (UpsertOutcome, error) {
	tx, err := u.store.Begin(ctx)
	if err != nil {
		return 0, &domain.PersistenceError{ID: c.ID, Op: "begin", Err: err}
	}
	done := false
	defer func() {
		if !done {
			// existing row, failure or cancellation: nothing from this tx is kept
			if rerr := tx.Rollback(context.WithoutCancel(ctx)); rerr != nil {
				log.Warn().Err(rerr).Str("id", c.ID).Msg("rollback failed")
			}
		}
	}()

	existing, err := tx.FindByID(ctx, c.ID)
	if err != nil {
		return 0, &domain.PersistenceError{ID: c.ID, Op: "find", Err: err}
	}
	if existing != nil {
		return AlreadyExists, nil
	}

	if err := tx.Insert(ctx, c); err != nil {
		// another run committed the same id between our find and insert
		if errors.Is(err, domain.ErrDuplicate) {
			return AlreadyExists, nil
		}
		return 0, &domain.PersistenceError{ID: c.ID, Op: "insert", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return AlreadyExists, nil
		}
		return 0, &domain.PersistenceError{ID: c.ID, Op: "commit", Err: err}
	}
	done = true

	if u.events != nil {
		if err := u.events.PublishInserted(ctx, c); err != nil {
			log.Warn().Err(err).Str("id", c.ID).Msg("publish inserted event failed")
		}
	}
	return Inserted, nil
}
