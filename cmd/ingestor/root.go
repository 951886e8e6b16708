package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"campground_ingest/internal/adapters/observability"
	"campground_ingest/internal/bootstrap"
	"campground_ingest/internal/domain"
	"campground_ingest/internal/shared"
)

var flags struct {
	component  string
	sort       string
	pageNumber int
	pageSize   int
	pages      int
	workers    int
	persist    bool
}

var rootCmd = &cobra.Command{
	Use:   "ingestor",
	Short: "Run one campground ingestion pass",
	Long: "Fetches search-result pages from the upstream locations API, normalizes each record " +
		"and inserts campgrounds that are not stored yet. Prints one JSON run summary per page.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := shared.Load()
		log.Logger = observability.NewLogger(cfg.AppEnv)
		applyFlags(cmd, &cfg)

		ctx, stop := shared.Context()
		defer stop()

		base, err := bootstrap.BaseRequest(cfg)
		if err != nil {
			return fmt.Errorf("invalid request: %w", err)
		}

		deps, err := bootstrap.Build(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = deps.Close() }()

		return runPages(ctx, deps.Ingest, base, flags.pages, cfg.Workers, cmd.OutOrStdout())
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.component, "component", "US", "region component (US or TR)")
	f.StringVar(&flags.sort, "sort", "Recommended", "result order (Recommended or Name)")
	f.IntVar(&flags.pageNumber, "page-number", 1, "first page to fetch (1-5)")
	f.IntVar(&flags.pageSize, "page-size", 500, "records per page (1-500)")
	f.IntVar(&flags.pages, "pages", 1, "number of consecutive pages to fetch")
	f.IntVar(&flags.workers, "workers", 2, "pages fetched concurrently")
	f.BoolVar(&flags.persist, "persist", true, "insert new campgrounds into the store")
}

// applyFlags overrides config values with flags given on the command line.
func applyFlags(cmd *cobra.Command, cfg *shared.Config) {
	f := cmd.Flags()
	if f.Changed("component") {
		cfg.Component = flags.component
	}
	if f.Changed("sort") {
		cfg.Sort = flags.sort
	}
	if f.Changed("page-number") {
		cfg.PageNumber = flags.pageNumber
	}
	if f.Changed("page-size") {
		cfg.PageSize = flags.pageSize
	}
	if f.Changed("workers") {
		cfg.Workers = flags.workers
	}
	if f.Changed("persist") {
		cfg.Persist = flags.persist
	}
}

type pageRunner interface {
	RunPages(ctx context.Context, trigger string, base domain.FetchRequest, pages, workers int) ([]domain.RunSummary, error)
}

func runPages(ctx context.Context, svc pageRunner, base domain.FetchRequest, pages, workers int, out io.Writer) error {
	sums, err := svc.RunPages(ctx, domain.TriggerCLI, base, pages, workers)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	for _, s := range sums {
		if encErr := enc.Encode(s); encErr != nil {
			return encErr
		}
	}
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}
