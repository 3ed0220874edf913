// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package runner orchestrates user digest cycles: window computation, search,
// composition, delivery, and watermark advancement. Per-user failures are
// isolated; nothing here aborts the batch.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/pdiddy/sonar/internal/digest"
	"github.com/pdiddy/sonar/internal/history"
	"github.com/pdiddy/sonar/internal/mailer"
	"github.com/pdiddy/sonar/internal/users"
	"github.com/pdiddy/sonar/internal/window"
	"github.com/pdiddy/sonar/pkg/types"
)

// Searcher queries the paper API for one user's saved search.
type Searcher interface {
	Search(ctx context.Context, query string, w window.Window) ([]types.Result, error)
}

// Deliverer sends or prints a composed digest.
type Deliverer interface {
	Deliver(ctx context.Context, msg types.Message, mode mailer.Mode) error
}

// Recorder appends one cycle entry to the delivery history.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Options mirror the CLI flags that shape a run.
type Options struct {
	// Test forces print-only delivery and suppresses watermark persistence,
	// regardless of the other flags.
	Test bool

	// PrintOnly prints digests instead of sending them. Printing counts as
	// delivered, so the watermark still advances unless suppressed.
	PrintOnly bool

	// NoUpdate suppresses watermark persistence.
	NoUpdate bool
}

// Source selects the user records to process: a directory of YAML files or a
// single file. Exactly one field is set.
type Source struct {
	Dir  string
	File string
}

// Runner executes digest cycles for a set of users, sequentially.
type Runner struct {
	search  Searcher
	deliver Deliverer
	history Recorder // nil disables history recording
	opts    Options
	log     *slog.Logger

	// clock is called once per cycle start and again at the moment of
	// successful delivery; the second reading becomes the new watermark.
	clock func() time.Time
}

// New returns a Runner. hist may be nil.
func New(search Searcher, deliver Deliverer, hist Recorder, opts Options, log *slog.Logger) *Runner {
	return &Runner{
		search:  search,
		deliver: deliver,
		history: hist,
		opts:    opts,
		log:     log,
		clock:   time.Now,
	}
}

// RunAll discovers user records from source and runs each one in turn. Load
// failures and cycle failures are logged and skipped; a missing users
// directory is logged and yields zero work without failing the process.
func (r *Runner) RunAll(ctx context.Context, source Source) error {
	if source.Dir != "" {
		paths, err := users.LoadDir(source.Dir)
		if err != nil {
			r.log.Error("users directory not usable", "dir", source.Dir, "err", err)
			return nil
		}
		for _, path := range paths {
			u, err := users.Load(path)
			if err != nil {
				r.log.Error("skipping user record", "path", path, "err", err)
				continue
			}
			// Errors are already logged inside the cycle; keep going.
			_ = r.RunUser(ctx, u)
		}
		return nil
	}

	u, err := users.Load(source.File)
	if err != nil {
		r.log.Error("user record not usable", "path", source.File, "err", err)
		return nil
	}
	_ = r.RunUser(ctx, u)
	return nil
}

// RunUser executes one user's cycle. The watermark advances to the time of
// successful delivery if and only if delivery succeeded and persistence is
// not suppressed; a failed search or delivery leaves the stored record
// untouched so the next run re-queries the same window.
func (r *Runner) RunUser(ctx context.Context, u *types.User) error {
	r.log.Info("processing user", "user", u.Name)

	printOnly := r.opts.PrintOnly || r.opts.Test
	suppress := r.opts.NoUpdate || r.opts.Test

	w := window.Compute(u.LastRun, r.clock(), r.log)
	r.log.Info("date range", "from", w.StartCanonical(), "to", w.EndCanonical())

	results, err := r.search.Search(ctx, u.Query, w)
	if err != nil {
		r.log.Error("fetching arXiv results failed", "user", u.Name, "err", err)
		r.record(ctx, u, w, 0, history.OutcomeSearchFailed)
		return err
	}
	r.log.Info("search finished", "user", u.Name, "results", len(results))
	if len(results) == 0 {
		r.log.Warn("no results found", "user", u.Name)
	}

	msg := digest.Compose(*u, w, results)

	mode := mailer.ModeSend
	outcome := history.OutcomeSent
	if printOnly {
		mode = mailer.ModePrint
		outcome = history.OutcomePrinted
	}

	if err := r.deliver.Deliver(ctx, msg, mode); err != nil {
		r.log.Error("delivery failed", "user", u.Name, "to", msg.Recipient, "err", err)
		r.record(ctx, u, w, len(results), history.OutcomeDeliveryFailed)
		return err
	}
	r.record(ctx, u, w, len(results), outcome)

	if suppress {
		return nil
	}

	// The watermark is read at the moment of confirmed delivery, not at
	// cycle start, matching the end of the period the user has now seen.
	u.LastRun = r.clock().Format(window.TimeFormat)
	if err := users.Save(u); err != nil {
		r.log.Error("persisting watermark failed", "user", u.Name, "err", err)
		return err
	}
	r.log.Info("updated last run timestamp", "user", u.Name, "last_run", u.LastRun)
	return nil
}

func (r *Runner) record(ctx context.Context, u *types.User, w window.Window, results int, outcome history.Outcome) {
	if r.history == nil {
		return
	}
	err := r.history.Record(ctx, history.Entry{
		User:        u.Name,
		Email:       u.Email,
		WindowStart: w.Start,
		WindowEnd:   w.End,
		Results:     results,
		Outcome:     outcome,
	})
	if err != nil {
		r.log.Warn("recording history failed", "user", u.Name, "err", err)
	}
}
