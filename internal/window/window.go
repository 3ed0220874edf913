// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package window computes the per-user query window from a stored watermark.
package window

import (
	"log/slog"
	"strings"
	"time"
)

const (
	// TimeFormat is the canonical timestamp form used in user records,
	// subjects, and digest bodies.
	TimeFormat = "2006-01-02 15:04:05"

	// CompactFormat is the separator-free form the arXiv submittedDate
	// filter expects.
	CompactFormat = "20060102150405"

	// defaultLookback applies when a user has no usable watermark.
	defaultLookback = 7 * 24 * time.Hour
)

// Window is the [Start, End] range queried in one cycle. Consecutive
// successful cycles tile without overlap or gap: the next window starts one
// second after the watermark recorded for the previous one.
type Window struct {
	Start time.Time
	End   time.Time
}

// Compute derives the query window for one cycle. A valid watermark yields
// [watermark+1s, now]; an absent watermark yields [now-7d, now]. A watermark
// that fails to parse is logged and treated as absent; Compute never fails a
// cycle.
func Compute(watermark string, now time.Time, log *slog.Logger) Window {
	watermark = strings.TrimSpace(watermark)
	if watermark == "" {
		return Window{Start: now.Add(-defaultLookback), End: now}
	}

	last, err := time.ParseInLocation(TimeFormat, watermark, now.Location())
	if err != nil {
		log.Warn("invalid last run timestamp, falling back to the last 7 days",
			"last_run", watermark, "err", err)
		return Window{Start: now.Add(-defaultLookback), End: now}
	}

	return Window{Start: last.Add(time.Second), End: now}
}

// StartCanonical returns Start in the canonical timestamp form.
func (w Window) StartCanonical() string { return w.Start.Format(TimeFormat) }

// EndCanonical returns End in the canonical timestamp form.
func (w Window) EndCanonical() string { return w.End.Format(TimeFormat) }

// StartCompact returns Start in the separator-free form.
func (w Window) StartCompact() string { return w.Start.Format(CompactFormat) }

// EndCompact returns End in the separator-free form.
func (w Window) EndCompact() string { return w.End.Format(CompactFormat) }
