package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gnamed/gnamed/internal/record"
	"github.com/gnamed/gnamed/internal/store"
)

// Emit hands one parsed record, with its primary key, to the loader.
type Emit func(key record.DBRef, rec *record.Record) error

// Source produces records from one provider input stream. Parsers wrap
// emit errors with the offending line number and raw input.
type Source interface {
	Parse(ctx context.Context, r io.Reader, emit Emit) error
}

// Result summarizes one committed load run.
type Result struct {
	RunID   string
	Records int
	Flushes int
	Elapsed time.Duration
}

// Runner drives one engine over one input file inside a single unit of
// work. The whole file commits or nothing does: a failed record rolls
// back the run, preserving prior committed files.
type Runner struct {
	Store store.Store
	Kind  record.EntityKind

	// FlushEvery bounds the engine's cache: after this many records the
	// cache is cleared. Zero disables periodic flushing.
	FlushEvery int

	// LinkSpaces, when non-empty, restricts which namespaces may produce
	// gene-protein links: mappings outside the set are dropped before the
	// merge. Empty keeps every mapping.
	LinkSpaces []string

	Log *slog.Logger
}

// Run parses the stream and merges every record, committing at the end.
func (r *Runner) Run(ctx context.Context, src Source, in io.Reader, name string) (*Result, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	result := &Result{RunID: uuid.New().String()}
	log = log.With("run_id", result.RunID, "file", name)
	start := time.Now()

	tx, err := r.Store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	defer tx.Rollback(ctx)

	engine := NewEngine(r.Kind, tx, log)
	log.Info("load started", "kind", r.Kind.String())

	var linkable map[string]bool
	if len(r.LinkSpaces) > 0 {
		linkable = make(map[string]bool, len(r.LinkSpaces))
		for _, ns := range r.LinkSpaces {
			linkable[ns] = true
		}
	}

	err = src.Parse(ctx, in, func(key record.DBRef, rec *record.Record) error {
		if linkable != nil {
			for ref := range rec.Mappings {
				if !linkable[ref.Namespace] {
					delete(rec.Mappings, ref)
				}
			}
		}
		if err := engine.Merge(ctx, key, rec); err != nil {
			return err
		}
		result.Records++
		if r.FlushEvery > 0 && result.Records%r.FlushEvery == 0 {
			engine.Flush()
			result.Flushes++
		}
		return nil
	})
	if err != nil {
		log.Error("load failed, rolling back",
			"records", result.Records,
			"error", err,
		)
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Error("commit failed", "records", result.Records, "error", err)
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	result.Elapsed = time.Since(start)
	log.Info("load committed",
		"records", result.Records,
		"flushes", result.Flushes,
		"elapsed", result.Elapsed.Round(time.Millisecond),
	)
	return result, nil
}
