package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"campground_ingest/internal/domain"
)

// ---- in-memory store ----

type memStore struct {
	mu   sync.Mutex
	rows map[string]domain.Campground

	// dupOnInsert simulates a concurrent writer committing the id first.
	dupOnInsert map[string]bool
	// failInsert simulates a broken connection for the id.
	failInsert map[string]bool

	begins, commits, rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		rows:        map[string]domain.Campground{},
		dupOnInsert: map[string]bool{},
		failInsert:  map[string]bool{},
	}
}

func (s *memStore) Begin(ctx context.Context) (domain.CampgroundTx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.begins++
	return &memTx{s: s}, nil
}

func (s *memStore) GetCampground(ctx context.Context, id string) (domain.Campground, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.rows[id]
	if !ok {
		return domain.Campground{}, domain.ErrNotFound
	}
	return c, nil
}

func (s *memStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rows))
	for id := range s.rows {
		out = append(out, id)
	}
	return out
}

type memTx struct {
	s       *memStore
	pending []domain.Campground
	closed  bool
}

func (t *memTx) FindByID(ctx context.Context, id string) (*domain.Campground, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if c, ok := t.s.rows[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (t *memTx) Insert(ctx context.Context, c domain.Campground) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.s.failInsert[c.ID] {
		return errors.New("connection reset by peer")
	}
	if t.s.dupOnInsert[c.ID] {
		return fmt.Errorf("insert %s: %w", c.ID, domain.ErrDuplicate)
	}
	if _, ok := t.s.rows[c.ID]; ok {
		return fmt.Errorf("insert %s: %w", c.ID, domain.ErrDuplicate)
	}
	t.pending = append(t.pending, c)
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.closed {
		return errors.New("tx closed")
	}
	t.closed = true
	for _, c := range t.pending {
		if _, ok := t.s.rows[c.ID]; ok {
			return fmt.Errorf("commit %s: %w", c.ID, domain.ErrDuplicate)
		}
		t.s.rows[c.ID] = c
	}
	t.s.commits++
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.pending = nil
	t.s.rollbacks++
	return nil
}

// ---- event publisher mock ----

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishInserted(ctx context.Context, c domain.Campground) error {
	return m.Called(c.ID).Error(0)
}

// ---- fetcher stubs ----

type stubFetcher struct {
	mu    sync.Mutex
	page  domain.RawPage
	err   error
	calls int
	block chan struct{} // when set, SearchLocations waits on it or ctx
}

func (f *stubFetcher) SearchLocations(ctx context.Context, req domain.FetchRequest) (domain.RawPage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return domain.RawPage{}, ctx.Err()
		}
	}
	return f.page, f.err
}

func pageOf(records ...map[string]any) domain.RawPage {
	return domain.RawPage{Data: records, Body: []byte(`{"data":[]}`)}
}
