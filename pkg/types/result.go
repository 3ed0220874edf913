// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the sonar digest pipeline.
package types

import "time"

// Result represents one paper returned by an arXiv query.
// Results are immutable once parsed from the feed.
type Result struct {
	// Title is the paper title as returned by the API.
	Title string `json:"title" yaml:"title"`

	// Link is the canonical abstract URL (the Atom entry id).
	Link string `json:"link" yaml:"link"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Published is the first submission timestamp.
	Published time.Time `json:"published" yaml:"published"`

	// Updated is the latest revision timestamp.
	Updated time.Time `json:"updated" yaml:"updated"`

	// Summary is the paper abstract.
	Summary string `json:"summary" yaml:"summary"`

	// Comment is the author comment (page count, venue); empty when absent.
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`

	// PrimaryCategory is the primary arXiv category (e.g. "cs.LG").
	PrimaryCategory string `json:"primary_category" yaml:"primary_category"`

	// Categories lists all category terms, PrimaryCategory always first.
	Categories []string `json:"categories" yaml:"categories"`
}

// Message is a composed digest ready for delivery to a single recipient.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}
