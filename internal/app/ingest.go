package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"campground_ingest/internal/adapters/observability"
	"campground_ingest/internal/domain"
)

// IngestionService runs fetch -> normalize -> upsert passes. Runs share no
// mutable state, so scheduled and on-demand runs may overlap freely.
type IngestionService struct {
	fetcher  domain.LocationFetcher
	upserter *Upserter
	archive  domain.PageArchiver
	now      func() time.Time
}

func NewIngestionService(f domain.LocationFetcher, u *Upserter, archive domain.PageArchiver) *IngestionService {
	return &IngestionService{fetcher: f, upserter: u, archive: archive, now: time.Now}
}

// RunOnce performs one complete ingestion pass. Per-record failures are
// counted in the summary; only a failed fetch (or an invalid request,
// or cancellation) is returned as an error.
func (s *IngestionService) RunOnce(ctx context.Context, trigger string, req domain.FetchRequest) (domain.RunSummary, error) {
	sum := domain.RunSummary{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		Request:   req,
		FailedIDs: []string{},
		StartedAt: s.now().UTC(),
	}
	l := log.With().Str("run_id", sum.RunID).Str("trigger", trigger).Logger()

	err := s.run(ctx, &sum, &req)
	sum.Request = req
	sum.FinishedAt = s.now().UTC()
	switch {
	case err == nil:
		sum.Status = domain.RunSucceeded
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		sum.Status = domain.RunCanceled
		sum.Error = err.Error()
	default:
		sum.Status = domain.RunFailed
		sum.Error = err.Error()
	}

	observability.ObserveRun(trigger, string(sum.Status), sum.FinishedAt.Sub(sum.StartedAt),
		sum.Inserted, sum.Skipped, sum.Failed, sum.Valid)

	ev := l.Info()
	if err != nil {
		ev = l.Error().Err(err)
	}
	ev.Str("status", string(sum.Status)).
		Int("page", req.PageNumber).
		Int("fetched", sum.Fetched).
		Int("inserted", sum.Inserted).
		Int("skipped", sum.Skipped).
		Int("failed", sum.Failed).
		Bool("persist", req.Persist).
		Dur("duration", sum.FinishedAt.Sub(sum.StartedAt)).
		Msg("ingestion run finished")

	return sum, err
}

func (s *IngestionService) run(ctx context.Context, sum *domain.RunSummary, req *domain.FetchRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}

	page, err := s.fetcher.SearchLocations(ctx, *req)
	if err != nil {
		return err
	}
	sum.Fetched = len(page.Data)

	if s.archive != nil && len(page.Body) > 0 {
		key := fmt.Sprintf("search-results/%s/%s-p%d.json", sum.StartedAt.Format("2006/01/02"), sum.RunID, req.PageNumber)
		if err := s.archive.ArchivePage(ctx, key, page.Body); err != nil {
			log.Warn().Err(err).Str("run_id", sum.RunID).Str("key", key).Msg("archive page failed")
		}
	}

	for i, raw := range page.Data {
		// stop between records; committed rows stay committed
		if err := ctx.Err(); err != nil {
			return err
		}

		c, err := Normalize(raw)
		if err != nil {
			ref := fmt.Sprintf("#%d", i)
			if id, ok := recordID(raw["id"]); ok {
				ref = id
			}
			log.Warn().Err(err).Str("run_id", sum.RunID).Str("id", ref).Msg("record rejected")
			sum.Failed++
			sum.FailedIDs = append(sum.FailedIDs, ref)
			continue
		}
		sum.Valid++

		if !req.Persist {
			continue
		}

		out, err := s.upserter.Upsert(ctx, c)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Str("run_id", sum.RunID).Str("id", c.ID).Msg("upsert failed")
			sum.Failed++
			sum.FailedIDs = append(sum.FailedIDs, c.ID)
			continue
		}
		switch out {
		case Inserted:
			sum.Inserted++
			log.Debug().Str("run_id", sum.RunID).Str("id", c.ID).Msg("campground created")
		case AlreadyExists:
			sum.Skipped++
			log.Debug().Str("run_id", sum.RunID).Str("id", c.ID).Msg("campground already exists")
		}
	}
	return nil
}

// RunPages ingests pages base.PageNumber .. base.PageNumber+pages-1 (capped at
// the last allowed page) with at most workers runs in flight. Summaries are
// returned in page order; the error joins every failed run's error.
func (s *IngestionService) RunPages(ctx context.Context, trigger string, base domain.FetchRequest, pages, workers int) ([]domain.RunSummary, error) {
	if pages <= 0 {
		pages = 1
	}
	if base.PageNumber < 1 {
		base.PageNumber = 1
	}
	if last := base.PageNumber + pages - 1; last > domain.MaxPageNumber {
		pages = domain.MaxPageNumber - base.PageNumber + 1
		if pages < 1 {
			pages = 1 // let validation report the bad page number
		}
	}
	if workers <= 0 {
		workers = 1
	}

	out := make([]domain.RunSummary, pages)
	errs := make([]error, pages)
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i := 0; i < pages; i++ {
		req := base
		req.PageNumber = base.PageNumber + i

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			now := s.now().UTC()
			out[i] = domain.RunSummary{
				RunID:      uuid.NewString(),
				Trigger:    trigger,
				Request:    req,
				Status:     domain.RunCanceled,
				FailedIDs:  []string{},
				Error:      err.Error(),
				StartedAt:  now,
				FinishedAt: now,
			}
			errs[i] = err
			continue
		}

		wg.Add(1)
		go func(i int, req domain.FetchRequest) {
			defer wg.Done()
			defer sem.Release(1)
			out[i], errs[i] = s.RunOnce(ctx, trigger, req)
		}(i, req)
	}

	wg.Wait()
	return out, errors.Join(errs...)
}
