// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// User is one subscriber's saved search, loaded from a YAML record file.
// LastRun is the watermark: the end of the last window that was queried and
// successfully delivered, in "2006-01-02 15:04:05" form. It advances only
// after a confirmed delivery.
type User struct {
	Name  string `yaml:"user"`
	Email string `yaml:"email_address"`
	Query string `yaml:"search_query"`

	// LastRun is empty for a user that has never received a digest.
	LastRun string `yaml:"last_run,omitempty"`

	// Path is the record's on-disk location. Runtime-only: never serialized
	// back into the file.
	Path string `yaml:"-"`
}
