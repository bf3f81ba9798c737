// cloudspend-ingest - billing export ingestion CLI
//
// Usage:
//   cloudspend-ingest file aws_june.csv gcp_june.csv
//   cloudspend-ingest --bucket my-archive replay
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/mzeman/cloudspend/internal/archive"
	"github.com/mzeman/cloudspend/internal/config"
	"github.com/mzeman/cloudspend/internal/infra/postgres"
	"github.com/mzeman/cloudspend/internal/ingest"
	"github.com/mzeman/cloudspend/internal/logger"
)

func main() {
	app := &cli.App{
		Name:  "cloudspend-ingest",
		Usage: "Ingest cloud billing CSV exports from the command line",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to YAML config file",
				EnvVars: []string{"CLOUDSPEND_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "PostgreSQL DSN, overrides the config file",
				EnvVars: []string{"CLOUDSPEND_DB_DSN"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"CLOUDSPEND_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "bucket",
				Usage:   "GCS bucket holding archived uploads, overrides the config file",
				EnvVars: []string{"CLOUDSPEND_ARCHIVE_BUCKET"},
			},
		},

		Commands: []*cli.Command{
			fileCommand(),
			replayCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig merges the optional YAML config with CLI flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if dsn := c.String("dsn"); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if bucket := c.String("bucket"); bucket != "" {
		cfg.Archive.Bucket = bucket
	}
	return cfg, nil
}

// openPipeline connects to the database and builds the ingestion pipeline.
// The caller closes the returned handle.
func openPipeline(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*postgres.DB, *ingest.Pipeline, error) {
	db, err := postgres.Open(ctx, cfg.Database.DSN, postgres.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute,
	}, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	return db, ingest.NewPipeline(postgres.NewSpendRecordRepository(db), log), nil
}

func fileCommand() *cli.Command {
	return &cli.Command{
		Name:      "file",
		Usage:     "Ingest one or more local billing CSV files",
		ArgsUsage: "<path>...",
		Action:    runFile,
	}
}

func runFile(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one CSV path is required")
	}

	log := logger.New(c.String("log-level"))
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, pipeline, err := openPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	failed := 0
	for _, path := range c.Args().Slice() {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to read file")
			failed++
			continue
		}

		result, err := pipeline.Ingest(ctx, data, filepath.Base(path))
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to ingest file")
			failed++
			continue
		}

		log.Info().
			Str("path", path).
			Str("cloud", string(result.Cloud)).
			Int("inserted", result.Inserted).
			Int("skipped", result.Skipped).
			Msg("Ingested file")
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, c.NArg())
	}
	return nil
}

func replayCommand() *cli.Command {
	return &cli.Command{
		Name:  "replay",
		Usage: "Re-ingest every archived upload from the GCS bucket",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 30 * time.Minute,
				Usage: "Overall replay deadline",
			},
		},
		Action: runReplay,
	}
}

// runReplay walks the archive and pushes every object back through the
// pipeline. Dedupe keys make this safe: rows already stored are skipped, so
// a replay only fills in whatever a past outage lost.
func runReplay(c *cli.Context) error {
	log := logger.New(c.String("log-level"))
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if cfg.Archive.Bucket == "" {
		return fmt.Errorf("an archive bucket is required (set -bucket or CLOUDSPEND_ARCHIVE_BUCKET)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	db, pipeline, err := openPipeline(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating GCS client: %w", err)
	}
	arch := archive.New(client, cfg.Archive.Bucket, cfg.Archive.Prefix, log)
	defer arch.Close()

	objects, err := arch.List(ctx)
	if err != nil {
		return fmt.Errorf("listing archived uploads: %w", err)
	}
	log.Info().Int("count", len(objects)).Str("bucket", cfg.Archive.Bucket).Msg("Replaying archived uploads")

	replayed, failed := 0, 0
	for _, object := range objects {
		data, err := arch.Fetch(ctx, object)
		if err != nil {
			log.Error().Err(err).Str("object", object).Msg("Failed to fetch archived upload")
			failed++
			continue
		}

		result, err := pipeline.Ingest(ctx, data, archive.OriginalFilename(object))
		if err != nil {
			// Uploads that were rejected the first time fail again here;
			// that is expected and must not stop the replay.
			log.Warn().Err(err).Str("object", object).Msg("Skipping archived upload")
			failed++
			continue
		}

		log.Info().
			Str("object", object).
			Str("cloud", string(result.Cloud)).
			Int("inserted", result.Inserted).
			Int("skipped", result.Skipped).
			Msg("Replayed archived upload")
		replayed++
	}

	log.Info().Int("replayed", replayed).Int("failed", failed).Msg("Replay finished")
	return nil
}
