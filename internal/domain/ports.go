package domain

import "context"

// LocationFetcher returns one page of upstream search results.
type LocationFetcher interface {
	SearchLocations(ctx context.Context, req FetchRequest) (RawPage, error)
}

type CampgroundStore interface {
	// Write path: one transaction per record.
	Begin(ctx context.Context) (CampgroundTx, error)

	// Read path
	GetCampground(ctx context.Context, id string) (Campground, error)
}

// CampgroundTx is a single-record transaction scope.
type CampgroundTx interface {
	// FindByID returns nil, nil when no row exists.
	FindByID(ctx context.Context, id string) (*Campground, error)
	// Insert returns ErrDuplicate (wrapped) on a primary key conflict.
	Insert(ctx context.Context, c Campground) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type EventPublisher interface {
	PublishInserted(ctx context.Context, c Campground) error
}

type PageArchiver interface {
	ArchivePage(ctx context.Context, key string, body []byte) error
}
