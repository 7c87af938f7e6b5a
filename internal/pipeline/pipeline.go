// Package pipeline runs one fetch, normalize and write cycle.
package pipeline

import (
	"context"
	"errors"
	"time"

	"azsales/internal/archive"
	"azsales/internal/config"
	"azsales/internal/crawler"
	"azsales/internal/logger"
	"azsales/internal/models"
	"azsales/internal/normalizer"
	"azsales/internal/writer"

	"github.com/google/uuid"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitConfig     = 1
	ExitFetch      = 2
	ExitParse      = 3
	ExitValidation = 4
	ExitIO         = 5
)

// Options are per-run inputs that do not belong in the config file.
type Options struct {
	// LocalFile parses a saved page instead of fetching the source URL.
	LocalFile string
	// DumpPayload writes the parsed payload as JSON before normalizing.
	DumpPayload string
}

// Result summarizes a successful run.
type Result struct {
	ReportDate time.Time
	RunID      string
	Paths      []string
	Records    int
}

// Runner wires the pipeline stages together.
type Runner struct {
	cfg       *config.Config
	log       *logger.Logger
	client    *crawler.Client
	processor *normalizer.Processor
	writer    *writer.Writer
}

// New creates a runner for cfg.
func New(cfg *config.Config, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}

	scraper := crawler.NewScraperWithConfig(&cfg.Source, &cfg.Retry)

	return &Runner{
		cfg:       cfg,
		log:       log,
		client:    crawler.NewClientWithDeps(scraper, crawler.NewParser()),
		processor: normalizer.NewProcessor(),
		writer: writer.New(writer.Options{
			BasePath: cfg.Output.BasePath,
			Charts:   cfg.Output.Charts,
			Workbook: cfg.Output.Workbook,
		}, log),
	}
}

// Run executes one cycle with default options.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, now time.Time) (*Result, error) {
	return New(cfg, log).Run(ctx, Options{}, now)
}

// Run fetches the dashboard, normalizes it and publishes the partition for its report date.
// now is the run timestamp stamped on every record.
func (r *Runner) Run(ctx context.Context, opts Options, now time.Time) (*Result, error) {
	runID := uuid.NewString()
	fetchedAt := now.In(models.Shanghai)

	source := r.cfg.Source.URL
	if opts.LocalFile != "" {
		source = opts.LocalFile
	}

	log := r.log.With("run_id", runID, "source", source)
	log.Info("run started", "fetched_at", models.FormatTimestamp(fetchedAt))

	started := time.Now()

	fetched, err := r.fetch(ctx, opts, fetchedAt)
	if err != nil {
		log.Error("fetch failed", "error", err)

		return nil, err
	}

	payload := fetched.Payload
	log.Stage("fetch", started,
		"status", fetched.StatusCode,
		"bytes", fetched.Bytes,
		"payload_source", payload.Source,
		"report_date", models.FormatDate(payload.ReportDate),
		"figures", payload.Len(),
	)

	if opts.DumpPayload != "" {
		if err := r.client.SavePayloadJSON(payload, opts.DumpPayload); err != nil {
			log.Warn("failed to dump payload", "path", opts.DumpPayload, "error", err)
		}
	}

	started = time.Now()

	set, err := r.processor.Process(payload, fetchedAt)
	if err != nil {
		log.Error("normalize failed", "error", err)

		return nil, err
	}

	log.Stage("normalize", started,
		"rows", len(set.Records),
		"group", len(set.Group),
		"business_types", len(set.BusinessTypes),
		"stores", len(set.Stores),
	)

	started = time.Now()

	paths, err := r.publish(ctx, runID, set)
	if err != nil {
		log.Error("write failed", "error", err)

		return nil, err
	}

	log.Stage("write", started, "paths", len(paths), "dir", writer.PartitionDir(r.cfg.Output.BasePath, set.ReportDate))

	return &Result{
		ReportDate: set.ReportDate,
		RunID:      runID,
		Paths:      paths,
		Records:    len(set.Records),
	}, nil
}

func (r *Runner) fetch(ctx context.Context, opts Options, now time.Time) (*crawler.FetchResult, error) {
	if opts.LocalFile != "" {
		return r.client.FetchFromFile(opts.LocalFile, now)
	}

	return r.client.Fetch(ctx, r.cfg.Source.URL, now)
}

// publish writes the partition, inside an archive transaction when the archive is enabled.
func (r *Runner) publish(ctx context.Context, runID string, set *models.SalesSet) ([]string, error) {
	if !r.cfg.Archive.Enabled {
		return r.writer.Write(ctx, set.ReportDate, set)
	}

	store, err := archive.Open(r.cfg.Archive.DBPath)
	if err != nil {
		return nil, &writer.IOError{Op: "archive", Path: r.cfg.Archive.DBPath, Err: err}
	}

	defer func() {
		if cerr := store.Close(); cerr != nil {
			r.log.Warn("failed to close archive", "path", store.Path(), "error", cerr)
		}
	}()

	var paths []string

	err = store.ReplacePartition(ctx, set.ReportDate, runID, set.Records, func() error {
		var werr error

		paths, werr = r.writer.Write(ctx, set.ReportDate, set)

		return werr
	})
	if err != nil {
		var ioErr *writer.IOError
		if errors.As(err, &ioErr) {
			return nil, err
		}

		return nil, &writer.IOError{Op: "archive", Path: store.Path(), Err: err}
	}

	return paths, nil
}

// ExitCode maps a run error to the process exit status.
func ExitCode(err error) int {
	var (
		fetchErr      *crawler.FetchError
		parseErr      *crawler.ParseError
		validationErr *normalizer.ValidationError
		ioErr         *writer.IOError
	)

	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &fetchErr):
		return ExitFetch
	case errors.As(err, &parseErr):
		return ExitParse
	case errors.As(err, &validationErr):
		return ExitValidation
	case errors.As(err, &ioErr):
		return ExitIO
	default:
		return ExitConfig
	}
}
