package app_test

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campground_ingest/internal/app"
	"campground_ingest/internal/domain"
)

type memArchive struct {
	mu   sync.Mutex
	keys []string
}

func (a *memArchive) ArchivePage(ctx context.Context, key string, body []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	return nil
}

func TestRunOnce_ScenarioTwoRecordsThenRerun(t *testing.T) {
	// stub upstream returning two well-formed records with distinct ids
	cl, _ := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[
			{"id":"101","type":"campground","attributes":{"name":"A","latitude":1,"longitude":2,"region-name":"R"},"links":{"self":"https://x/101"}},
			{"id":"102","type":"campground","attributes":{"name":"B","latitude":3,"longitude":4,"region-name":"R"},"links":{"self":"https://x/102"}}
		],"meta":{},"links":{}}`))
	})
	store := newMemStore()
	archive := &memArchive{}
	svc := app.NewIngestionService(
		app.NewRetryingFetcher(cl, app.RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}),
		app.NewUpserter(store, nil),
		archive,
	)
	req := domain.FetchRequest{Sort: domain.SortRecommended, PageNumber: 1, PageSize: 2, Persist: true}

	first, err := svc.RunOnce(context.Background(), domain.TriggerOnDemand, req)
	require.NoError(t, err)
	assert.Equal(t, domain.RunSucceeded, first.Status)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, 0, first.Failed)
	assert.Equal(t, domain.BBoxUS, first.Request.BBox)

	second, err := svc.RunOnce(context.Background(), domain.TriggerOnDemand, req)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 0, second.Failed)

	ids := store.ids()
	sort.Strings(ids)
	assert.Equal(t, []string{"101", "102"}, ids)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Len(t, archive.keys, 2)
}

func TestRunOnce_PartialFailureIsolation(t *testing.T) {
	malformed := rawRecord("m")
	delete(malformed["attributes"].(map[string]any), "name")

	f := &stubFetcher{page: pageOf(
		rawRecord("1"),
		malformed,
		rawRecord("2"),
		rawRecord("conflict"),
		rawRecord("3"),
	)}
	store := newMemStore()
	store.dupOnInsert["conflict"] = true
	svc := app.NewIngestionService(f, app.NewUpserter(store, nil), nil)

	sum, err := svc.RunOnce(context.Background(), domain.TriggerOnDemand,
		domain.FetchRequest{PageNumber: 1, PageSize: 5, Persist: true})
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Fetched)
	assert.Equal(t, 3, sum.Inserted)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, []string{"m"}, sum.FailedIDs)

	ids := store.ids()
	sort.Strings(ids)
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestRunOnce_PersistenceFailureContinues(t *testing.T) {
	f := &stubFetcher{page: pageOf(rawRecord("1"), rawRecord("2"), rawRecord("3"))}
	store := newMemStore()
	store.failInsert["2"] = true
	svc := app.NewIngestionService(f, app.NewUpserter(store, nil), nil)

	sum, err := svc.RunOnce(context.Background(), domain.TriggerScheduled,
		domain.FetchRequest{PageNumber: 1, PageSize: 3, Persist: true})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Inserted)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, []string{"2"}, sum.FailedIDs)
}

func TestRunOnce_NoPersistOnlyCounts(t *testing.T) {
	bad := map[string]any{"attributes": map[string]any{}}
	f := &stubFetcher{page: pageOf(rawRecord("1"), bad, rawRecord("2"))}
	store := newMemStore()
	svc := app.NewIngestionService(f, app.NewUpserter(store, nil), nil)

	sum, err := svc.RunOnce(context.Background(), domain.TriggerScheduled,
		domain.FetchRequest{PageNumber: 1, PageSize: 3, Persist: false})
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Fetched)
	assert.Equal(t, 2, sum.Valid)
	assert.Equal(t, 0, sum.Inserted)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, []string{"#1"}, sum.FailedIDs)
	assert.Equal(t, 0, store.begins)
}

func TestRunOnce_FetchFailureIsRunLevel(t *testing.T) {
	f := &stubFetcher{err: &domain.FetchError{Kind: domain.FetchMaxRetriesExceeded, StatusCode: 503, Attempts: 3}}
	svc := app.NewIngestionService(f, app.NewUpserter(newMemStore(), nil), nil)

	sum, err := svc.RunOnce(context.Background(), domain.TriggerScheduled,
		domain.FetchRequest{PageNumber: 1, PageSize: 1, Persist: true})

	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, domain.RunFailed, sum.Status)
	assert.NotEmpty(t, sum.Error)
	assert.False(t, sum.FinishedAt.IsZero())
}

func TestRunOnce_InvalidRequest(t *testing.T) {
	f := &stubFetcher{}
	svc := app.NewIngestionService(f, app.NewUpserter(newMemStore(), nil), nil)

	sum, err := svc.RunOnce(context.Background(), domain.TriggerOnDemand,
		domain.FetchRequest{PageNumber: 9, PageSize: 1})
	require.Error(t, err)
	assert.Equal(t, domain.RunFailed, sum.Status)
	assert.Equal(t, 0, f.calls)
}

func TestRunOnce_CanceledBeforeRecords(t *testing.T) {
	f := &stubFetcher{page: pageOf(rawRecord("1"))}
	store := newMemStore()
	svc := app.NewIngestionService(f, app.NewUpserter(store, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sum, err := svc.RunOnce(ctx, domain.TriggerScheduled,
		domain.FetchRequest{PageNumber: 1, PageSize: 1, Persist: true})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.RunCanceled, sum.Status)
	assert.Empty(t, store.ids())
}

func TestRunOnce_ConcurrentRunsNeverDuplicate(t *testing.T) {
	f := &stubFetcher{page: pageOf(rawRecord("1"), rawRecord("2"), rawRecord("3"), rawRecord("4"))}
	store := newMemStore()
	svc := app.NewIngestionService(f, app.NewUpserter(store, nil), nil)
	req := domain.FetchRequest{PageNumber: 1, PageSize: 4, Persist: true}

	var wg sync.WaitGroup
	sums := make([]domain.RunSummary, 8)
	for i := range sums {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sums[i], _ = svc.RunOnce(context.Background(), domain.TriggerOnDemand, req)
		}(i)
	}
	wg.Wait()

	inserted, skipped := 0, 0
	for _, s := range sums {
		inserted += s.Inserted
		skipped += s.Skipped
		assert.Equal(t, 0, s.Failed)
	}
	assert.Equal(t, 4, inserted)
	assert.Equal(t, 4*7, skipped)
	assert.Len(t, store.ids(), 4)
}

func TestRunPages_FansOutInPageOrder(t *testing.T) {
	f := &stubFetcher{page: pageOf(rawRecord("1"))}
	svc := app.NewIngestionService(f, app.NewUpserter(newMemStore(), nil), nil)

	sums, err := svc.RunPages(context.Background(), domain.TriggerCLI,
		domain.FetchRequest{PageNumber: 3, PageSize: 1, Persist: true}, 10, 2)
	require.NoError(t, err)
	require.Len(t, sums, 3) // pages 3..5
	for i, s := range sums {
		assert.Equal(t, 3+i, s.Request.PageNumber)
		assert.Equal(t, domain.RunSucceeded, s.Status)
	}
	assert.Equal(t, 3, f.calls)
}

func TestRunPages_CanceledPagesStillCarryRunMetadata(t *testing.T) {
	f := &stubFetcher{page: pageOf(rawRecord("1"))}
	svc := app.NewIngestionService(f, app.NewUpserter(newMemStore(), nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sums, err := svc.RunPages(ctx, domain.TriggerCLI,
		domain.FetchRequest{PageNumber: 1, PageSize: 1, Persist: true}, 3, 1)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, sums, 3)

	seen := map[string]bool{}
	for i, s := range sums {
		assert.Equal(t, domain.RunCanceled, s.Status)
		assert.Equal(t, 1+i, s.Request.PageNumber)
		assert.NotEmpty(t, s.RunID)
		assert.False(t, seen[s.RunID], "run ids must be unique")
		seen[s.RunID] = true
		assert.False(t, s.StartedAt.IsZero())
		assert.False(t, s.FinishedAt.Before(s.StartedAt))
		assert.NotNil(t, s.FailedIDs)
	}
}
