// Command voucher-ingest loads voucher definitions in bulk from JSON-lines
// files, optionally gzip-compressed. Lines that are malformed or misconfigured
// are reported and skipped; codes defined more than once are skipped
// everywhere.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/go-faster/errors"

	"github.com/xenking/outlet-rewards/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		workers     int
		dryRun      bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&workers, "workers", runtime.GOMAXPROCS(0), "files parsed and vouchers stored concurrently")
	flag.BoolVar(&dryRun, "dry-run", false, "validate files without writing")
	flag.Parse()

	paths := flag.Args()
	if len(paths) == 0 {
		slog.Error("usage: voucher-ingest [flags] FILE.jsonl[.gz]...")
		os.Exit(2)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, paths, max(workers, 1), dryRun); err != nil {
		slog.Error("ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL string, paths []string, workers int, dryRun bool) error {
	batches, err := readAll(ctx, paths, workers)
	if err != nil {
		return err
	}
	dups := duplicateCodes(batches)
	slog.Info("parsed input", slog.Int("files", len(batches)), slog.Int("duplicate_codes", len(dups)))

	if dryRun {
		return nil
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	st, err := store(ctx, postgres.NewVoucherRepository(pool), batches, dups, workers)
	slog.Info("ingest finished", slog.Int64("stored", st.stored), slog.Int("rejected", st.rejected))
	return err
}
