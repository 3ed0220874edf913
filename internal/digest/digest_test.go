// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pdiddy/sonar/internal/window"
	"github.com/pdiddy/sonar/pkg/types"
)

func testUser() types.User {
	return types.User{
		Name:  "Ada",
		Email: "ada@example.com",
		Query: "cat:cs.LG AND all:attention",
	}
}

func testWindow() window.Window {
	return window.Window{
		Start: time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestComposeWithResults(t *testing.T) {
	results := []types.Result{
		{
			Title:     "Newer Paper",
			Link:      "http://arxiv.org/abs/2603.02002v1",
			Authors:   []string{"Carol Nguyen"},
			Published: time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
			Summary:   "A newer result.",
		},
		{
			Title:     "Older Paper",
			Link:      "http://arxiv.org/abs/2603.01001v1",
			Authors:   []string{"Alice Ried", "Bob Tailor"},
			Published: time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC),
			Summary:   "An older result.",
		},
	}

	msg := Compose(testUser(), testWindow(), results)

	assert.Equal(t, "ada@example.com", msg.Recipient)
	assert.Equal(t,
		"Your Weekly SONAR (2026-03-07 12:00:00 to 2026-03-14 12:00:00, Ada)",
		msg.Subject)

	assert.Contains(t, msg.Body, "Hello Ada,")
	assert.Contains(t, msg.Body, "(2026-03-07 12:00:00 to 2026-03-14 12:00:00)")
	assert.Contains(t, msg.Body, `<a href="http://arxiv.org/abs/2603.02002v1">Newer Paper</a>`)
	assert.Contains(t, msg.Body, "Alice Ried, Bob Tailor")
	assert.Contains(t, msg.Body, "2026-03-08 09:00:00")
	assert.Contains(t, msg.Body, "Your search query was: <i>cat:cs.LG AND all:attention</i>")
	assert.Contains(t, msg.Body, "We thank arXiv for use of its open access interoperability.")
	assert.NotContains(t, msg.Body, "No new articles found")

	// Presentation preserves the given order.
	newer := strings.Index(msg.Body, "Newer Paper")
	older := strings.Index(msg.Body, "Older Paper")
	assert.Less(t, newer, older, "results must appear in the order given")
}

func TestComposeNoResults(t *testing.T) {
	msg := Compose(testUser(), testWindow(), nil)

	assert.Contains(t, msg.Body,
		"No new articles found based on your search query since the last run.")
	assert.Contains(t, msg.Body, "Your search query was:")
	assert.NotContains(t, msg.Body, "<strong>Title:</strong>")
}

func TestComposeEscapesFeedText(t *testing.T) {
	results := []types.Result{{
		Title:     "On <scripts> & Other Hazards",
		Link:      "http://arxiv.org/abs/2603.03003v1",
		Authors:   []string{"Mallory"},
		Published: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Summary:   `We consider "a < b".`,
	}}

	msg := Compose(testUser(), testWindow(), results)

	assert.Contains(t, msg.Body, "On &lt;scripts&gt; &amp; Other Hazards")
	assert.NotContains(t, msg.Body, "<scripts>")
}
