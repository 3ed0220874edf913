// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SMTPConfig holds the mail relay settings. It is built once at startup from
// the config file (plus optional secrets) and handed to the mailer; nothing
// reads ambient configuration after that.
type SMTPConfig struct {
	// Host is the SMTP relay hostname (default "localhost").
	Host string `json:"smtp_server" yaml:"SMTP_SERVER"`

	// Port is the SMTP relay port (default 25).
	Port int `json:"smtp_port" yaml:"SMTP_PORT"`

	// From is the envelope and header From address (default "example@example.com").
	From string `json:"from_address" yaml:"FROM_ADDRESS"`

	// Username and Password enable SMTP AUTH when both are non-empty.
	// They come from the secrets directory, never from the config file.
	Username string `json:"-" yaml:"-"`
	Password string `json:"-" yaml:"-"`
}

// SearchConfig holds settings for the arXiv search client.
type SearchConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with API requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxResults caps the number of results per query (default 100).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// Config groups all process configuration.
type Config struct {
	SMTP   SMTPConfig   `json:"smtp" yaml:"smtp"`
	Search SearchConfig `json:"search" yaml:"search"`

	// HistoryDB is the path to the delivery history SQLite database.
	// Empty disables history recording.
	HistoryDB string `json:"history_db" yaml:"HISTORY_DB"`
}
