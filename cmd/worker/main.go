// Package main provides the sales worker: fetch the dashboard, normalize it and publish the day's partition.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"azsales/internal/config"
	"azsales/internal/logger"
	"azsales/internal/models"
	"azsales/internal/pipeline"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(run())
}

func run() int {
	configFile := flag.String("config", "", "Path to YAML configuration file (default: "+config.DefaultConfigPath+" when present)")
	localFile := flag.String("file", "", "Parse a saved dashboard page instead of fetching the source URL")
	dumpPayload := flag.String("dump-payload", "", "Write the parsed payload as JSON to this path")

	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)

		return pipeline.ExitConfig
	}

	cfg, err := config.Load(*configFile, os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)

		return pipeline.ExitConfig
	}

	log := logger.NewLogger(cfg.Logging.Level)
	log.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := pipeline.New(cfg, log).Run(ctx, pipeline.Options{
		LocalFile:   *localFile,
		DumpPayload: *dumpPayload,
	}, time.Now())
	if err != nil {
		code := pipeline.ExitCode(err)
		log.Error("run failed", "error", err, "exit_code", code)

		return code
	}

	log.Info("run complete",
		"run_id", result.RunID,
		"report_date", models.FormatDate(result.ReportDate),
		"rows", result.Records,
		"paths", len(result.Paths),
	)

	return pipeline.ExitOK
}
