package main

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/outlet-rewards/internal/domain/voucher"
	"github.com/xenking/outlet-rewards/internal/voucherdoc"
)

const maxLineSize = 1 << 20

// rejection is a line that will not be stored.
type rejection struct {
	File   string
	Line   int
	Code   string
	Reason string
}

// batch is the parsed content of one input file.
type batch struct {
	name     string
	defs     []voucher.Definition
	rejected []rejection
	// codes counts occurrences of each valid code; filter answers membership
	// cheaply before codes is consulted.
	codes  map[string]int
	filter *bloom.BloomFilter
}

// readBatch parses a JSON-lines voucher stream. Lines that fail to decode or
// fail authoring validation are rejected, not fatal.
func readBatch(name string, r io.Reader) (*batch, error) {
	b := &batch{name: name, codes: make(map[string]int)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64<<10), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		def, err := voucherdoc.DecodeBytes([]byte(text))
		if err == nil {
			err = voucher.ValidateForAuthoring(def.Rule)
		}
		if err != nil {
			code := ""
			if def.Rule != nil {
				code = def.Rule.Code
			}
			b.rejected = append(b.rejected, rejection{File: name, Line: line, Code: code, Reason: err.Error()})
			continue
		}
		b.defs = append(b.defs, def)
		b.codes[def.Rule.Code]++
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}

	b.filter = bloom.NewWithEstimates(uint(max(len(b.codes), 1)), 0.001)
	for code := range b.codes {
		b.filter.AddString(code)
	}
	return b, nil
}

// openBatch reads path, decompressing it when it ends in .gz.
func openBatch(path string) (*batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "gzip %s", path)
		}
		defer func() { _ = zr.Close() }()
		r = zr
	}
	return readBatch(path, r)
}

// readAll parses every file concurrently, keeping input order.
func readAll(ctx context.Context, paths []string, workers int) ([]*batch, error) {
	batches := make([]*batch, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			b, err := openBatch(path)
			if err != nil {
				return err
			}
			batches[i] = b
			for _, rej := range b.rejected {
				slog.Warn("rejected voucher",
					slog.String("file", rej.File),
					slog.Int("line", rej.Line),
					slog.String("code", rej.Code),
					slog.String("reason", rej.Reason),
				)
			}
			slog.Info("parsed file",
				slog.String("path", path),
				slog.Int("vouchers", len(b.defs)),
				slog.Int("rejected", len(b.rejected)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

// duplicateCodes returns codes defined more than once, within one file or
// across files, mapped to the files defining them. Such codes are ambiguous
// and are not stored.
func duplicateCodes(batches []*batch) map[string][]string {
	dups := make(map[string][]string)
	for i, b := range batches {
		for code, n := range b.codes {
			if _, seen := dups[code]; seen {
				continue
			}
			files := []string{b.name}
			if n > 1 {
				files = append(files, b.name)
			}
			for j, other := range batches {
				if j == i || !other.filter.TestString(code) {
					continue
				}
				if other.codes[code] > 0 {
					files = append(files, other.name)
				}
			}
			if len(files) > 1 {
				sort.Strings(files)
				dups[code] = files
			}
		}
	}
	return dups
}

type stats struct {
	stored   int64
	rejected int
}

// store upserts every definition whose code is not duplicated.
func store(ctx context.Context, w voucher.Writer, batches []*batch, dups map[string][]string, workers int) (stats, error) {
	var (
		stored   atomic.Int64
		rejected int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, b := range batches {
		rejected += len(b.rejected)
		for _, def := range b.defs {
			if files, dup := dups[def.Rule.Code]; dup {
				rejected++
				slog.Warn("duplicate voucher code",
					slog.String("code", def.Rule.Code),
					slog.Any("files", files),
				)
				continue
			}
			g.Go(func() error {
				if err := w.Upsert(ctx, def); err != nil {
					return errors.Wrapf(err, "upsert %s", def.Rule.Code)
				}
				stored.Add(1)
				return nil
			})
		}
	}
	err := g.Wait()
	return stats{stored: stored.Load(), rejected: rejected}, err
}
