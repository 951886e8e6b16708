// Package bootstrap builds the object graph shared by the API and the ingestor.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"campground_ingest/internal/adapters/archive"
	"campground_ingest/internal/adapters/dyrt"
	kafkaad "campground_ingest/internal/adapters/kafka"
	redisad "campground_ingest/internal/adapters/redis"
	"campground_ingest/internal/app"
	"campground_ingest/internal/domain"
	"campground_ingest/internal/shared"
	mysqlstore "campground_ingest/internal/storage/mysql"
	"campground_ingest/internal/storage/postgres"
)

type Deps struct {
	Store  domain.CampgroundStore
	Ingest *app.IngestionService
	Query  *app.QueryService

	closers []func() error
}

// Close releases every connection opened by Build, last opened first.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		errs = append(errs, d.closers[i]())
	}
	return errors.Join(errs...)
}

// Build connects the configured store and optional cache, event publisher
// and page archive, then assembles the services. Optional collaborators that
// are unset in cfg are skipped.
func Build(ctx context.Context, cfg shared.Config) (*Deps, error) {
	d := &Deps{}
	fail := func(err error) (*Deps, error) {
		_ = d.Close()
		return nil, err
	}

	store, err := openStore(ctx, cfg, d)
	if err != nil {
		return fail(err)
	}
	d.Store = store

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		d.closers = append(d.closers, rc.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := rc.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, reads go to the store until it recovers")
		}
		cache = rc
	}

	var events domain.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		pub := kafkaad.New(cfg.KafkaBrokers, cfg.KafkaTopic)
		d.closers = append(d.closers, pub.Close)
		events = pub
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("inserted events enabled")
	}

	var pages domain.PageArchiver
	if cfg.ArchiveEndpoint != "" {
		a, err := archive.NewMinio(ctx, cfg.ArchiveEndpoint, cfg.ArchiveAccessKey, cfg.ArchiveSecretKey, cfg.ArchiveBucket, cfg.ArchiveUseSSL)
		if err != nil {
			return fail(err)
		}
		pages = a
	}

	client, err := dyrt.New(cfg.DyrtBase, cfg.DyrtRPS, cfg.DyrtTimeout)
	if err != nil {
		return fail(fmt.Errorf("dyrt client: %w", err))
	}
	fetcher := app.NewRetryingFetcher(client, app.RetryPolicy{MaxAttempts: cfg.FetchRetries, BaseDelay: cfg.FetchBackoff})

	d.Ingest = app.NewIngestionService(fetcher, app.NewUpserter(store, events), pages)
	d.Query = app.NewQueryService(store, cache, cfg.CacheTTL)
	return d, nil
}

func openStore(ctx context.Context, cfg shared.Config, d *Deps) (domain.CampgroundStore, error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() error { pool.Close(); return nil })
		log.Info().Str("driver", "postgres").Msg("database connection ok")
		return postgres.New(pool), nil
	default:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("sql.Open: %w", err)
		}
		d.closers = append(d.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Str("driver", "mysql").Msg("database connection ok")
		return mysqlstore.New(db), nil
	}
}

// BaseRequest is the configured scheduled/CLI ingestion request.
func BaseRequest(cfg shared.Config) (domain.FetchRequest, error) {
	return domain.TriggerRequest{
		Component:  cfg.Component,
		Sort:       cfg.Sort,
		PageNumber: cfg.PageNumber,
		PageSize:   cfg.PageSize,
		Persist:    cfg.Persist,
	}.FetchRequest()
}
