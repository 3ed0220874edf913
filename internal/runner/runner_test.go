// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/sonar/internal/history"
	"github.com/pdiddy/sonar/internal/mailer"
	"github.com/pdiddy/sonar/internal/users"
	"github.com/pdiddy/sonar/internal/window"
	"github.com/pdiddy/sonar/pkg/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// --- fakes ---

type fakeSearcher struct {
	results []types.Result
	err     error
	gotWin  window.Window
	calls   int
}

func (f *fakeSearcher) Search(_ context.Context, _ string, w window.Window) ([]types.Result, error) {
	f.calls++
	f.gotWin = w
	return f.results, f.err
}

type fakeDeliverer struct {
	err      error
	calls    int
	lastMsg  types.Message
	lastMode mailer.Mode
}

func (f *fakeDeliverer) Deliver(_ context.Context, msg types.Message, mode mailer.Mode) error {
	f.calls++
	f.lastMsg = msg
	f.lastMode = mode
	return f.err
}

type fakeRecorder struct {
	entries []history.Entry
}

func (f *fakeRecorder) Record(_ context.Context, e history.Entry) error {
	f.entries = append(f.entries, e)
	return nil
}

// --- helpers ---

var (
	cycleStart   = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	deliveryTime = cycleStart.Add(5 * time.Second)
)

// steppingClock returns cycleStart on the first call and deliveryTime after,
// so tests can tell the watermark apart from the window end.
func steppingClock() func() time.Time {
	calls := 0
	return func() time.Time {
		calls++
		if calls == 1 {
			return cycleStart
		}
		return deliveryTime
	}
}

func writeUser(t *testing.T, dir, name string, u types.User) string {
	t.Helper()
	data, err := yaml.Marshal(&u)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func loadUser(t *testing.T, path string) *types.User {
	t.Helper()
	u, err := users.Load(path)
	require.NoError(t, err)
	return u
}

func sampleResults() []types.Result {
	return []types.Result{
		{
			Title: "Newer Paper", Link: "http://arxiv.org/abs/2603.02002v1",
			Authors: []string{"Carol Nguyen"}, Summary: "A newer result.",
			Published:       time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
			PrimaryCategory: "cs.CL", Categories: []string{"cs.CL"},
		},
		{
			Title: "Older Paper", Link: "http://arxiv.org/abs/2603.01001v1",
			Authors: []string{"Alice Ried"}, Summary: "An older result.",
			Published:       time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC),
			PrimaryCategory: "cs.LG", Categories: []string{"cs.LG"},
		},
	}
}

func newTestRunner(s Searcher, d Deliverer, rec Recorder, opts Options) *Runner {
	r := New(s, d, rec, opts, discard)
	r.clock = steppingClock()
	return r
}

// --- scenarios ---

// First run for a user with no watermark: 7-day lookback window, both titles
// in the digest, watermark persisted as the delivery time.
func TestRunUserFirstRun(t *testing.T) {
	path := writeUser(t, t.TempDir(), "ada.yaml", types.User{
		Name: "Ada", Email: "ada@example.com", Query: "cat:cs.LG",
	})
	search := &fakeSearcher{results: sampleResults()}
	deliver := &fakeDeliverer{}
	r := newTestRunner(search, deliver, nil, Options{})

	u := loadUser(t, path)
	require.NoError(t, r.RunUser(context.Background(), u))

	assert.True(t, search.gotWin.Start.Equal(cycleStart.Add(-7*24*time.Hour)),
		"window start should be 7 days back")
	assert.True(t, search.gotWin.End.Equal(cycleStart))

	assert.Equal(t, mailer.ModeSend, deliver.lastMode)
	assert.Contains(t, deliver.lastMsg.Body, "Newer Paper")
	assert.Contains(t, deliver.lastMsg.Body, "Older Paper")

	saved := loadUser(t, path)
	assert.Equal(t, deliveryTime.Format(window.TimeFormat), saved.LastRun,
		"watermark must be the delivery time, not the cycle start")
}

// Search exhausts its attempts: no delivery, no watermark movement.
func TestRunUserSearchFailure(t *testing.T) {
	path := writeUser(t, t.TempDir(), "ada.yaml", types.User{
		Name: "Ada", Email: "ada@example.com", Query: "cat:cs.LG",
		LastRun: "2026-03-07 12:00:00",
	})
	search := &fakeSearcher{err: fmt.Errorf("arXiv API unavailable")}
	deliver := &fakeDeliverer{}
	rec := &fakeRecorder{}
	r := newTestRunner(search, deliver, rec, Options{})

	err := r.RunUser(context.Background(), loadUser(t, path))
	require.Error(t, err)

	assert.Equal(t, 0, deliver.calls, "nothing may be sent after a failed search")
	assert.Equal(t, "2026-03-07 12:00:00", loadUser(t, path).LastRun,
		"watermark must not move")
	require.Len(t, rec.entries, 1)
	assert.Equal(t, history.OutcomeSearchFailed, rec.entries[0].Outcome)
}

// --test forces print-only and suppresses persistence even without --no-update.
func TestRunUserTestMode(t *testing.T) {
	path := writeUser(t, t.TempDir(), "ada.yaml", types.User{
		Name: "Ada", Email: "ada@example.com", Query: "cat:cs.LG",
	})
	deliver := &fakeDeliverer{}
	r := newTestRunner(&fakeSearcher{results: sampleResults()}, deliver, nil,
		Options{Test: true})

	require.NoError(t, r.RunUser(context.Background(), loadUser(t, path)))

	assert.Equal(t, mailer.ModePrint, deliver.lastMode)
	assert.Empty(t, loadUser(t, path).LastRun, "test mode must never persist")
}

// --print-only alone still persists the watermark: printing counts as delivered.
func TestRunUserPrintOnlyPersists(t *testing.T) {
	path := writeUser(t, t.TempDir(), "ada.yaml", types.User{
		Name: "Ada", Email: "ada@example.com", Query: "cat:cs.LG",
	})
	deliver := &fakeDeliverer{}
	r := newTestRunner(&fakeSearcher{results: sampleResults()}, deliver, nil,
		Options{PrintOnly: true})

	require.NoError(t, r.RunUser(context.Background(), loadUser(t, path)))

	assert.Equal(t, mailer.ModePrint, deliver.lastMode)
	assert.Equal(t, deliveryTime.Format(window.TimeFormat), loadUser(t, path).LastRun)
}

// SMTP failure after a successful search: watermark untouched so the same
// window is re-queried next run.
func TestRunUserDeliveryFailure(t *testing.T) {
	path := writeUser(t, t.TempDir(), "ada.yaml", types.User{
		Name: "Ada", Email: "ada@example.com", Query: "cat:cs.LG",
		LastRun: "2026-03-07 12:00:00",
	})
	deliver := &fakeDeliverer{err: fmt.Errorf("connection refused")}
	rec := &fakeRecorder{}
	r := newTestRunner(&fakeSearcher{results: sampleResults()}, deliver, rec, Options{})

	err := r.RunUser(context.Background(), loadUser(t, path))
	require.Error(t, err)

	assert.Equal(t, "2026-03-07 12:00:00", loadUser(t, path).LastRun)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, history.OutcomeDeliveryFailed, rec.entries[0].Outcome)
}

// Zero results: the "no new articles" digest is still delivered and the
// watermark still advances.
func TestRunUserZeroResults(t *testing.T) {
	path := writeUser(t, t.TempDir(), "ada.yaml", types.User{
		Name: "Ada", Email: "ada@example.com", Query: "cat:cs.LG",
		LastRun: "2026-03-07 12:00:00",
	})
	deliver := &fakeDeliverer{}
	r := newTestRunner(&fakeSearcher{}, deliver, nil, Options{})

	require.NoError(t, r.RunUser(context.Background(), loadUser(t, path)))

	assert.Equal(t, 1, deliver.calls)
	assert.Contains(t, deliver.lastMsg.Body,
		"No new articles found based on your search query since the last run.")
	assert.Equal(t, deliveryTime.Format(window.TimeFormat), loadUser(t, path).LastRun)
}

// --no-update delivers for real but leaves the record untouched.
func TestRunUserNoUpdate(t *testing.T) {
	path := writeUser(t, t.TempDir(), "ada.yaml", types.User{
		Name: "Ada", Email: "ada@example.com", Query: "cat:cs.LG",
		LastRun: "2026-03-07 12:00:00",
	})
	deliver := &fakeDeliverer{}
	r := newTestRunner(&fakeSearcher{results: sampleResults()}, deliver, nil,
		Options{NoUpdate: true})

	require.NoError(t, r.RunUser(context.Background(), loadUser(t, path)))

	assert.Equal(t, mailer.ModeSend, deliver.lastMode)
	assert.Equal(t, "2026-03-07 12:00:00", loadUser(t, path).LastRun)
}

// --- orchestration ---

func TestRunAllDirectoryIsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writeUser(t, dir, "ada.yaml", types.User{
		Name: "Ada", Email: "ada@example.com", Query: "cat:cs.LG",
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"),
		[]byte("user: [unclosed"), 0o644))
	writeUser(t, dir, "grace.yaml", types.User{
		Name: "Grace", Email: "grace@example.com", Query: "cat:cs.DC",
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"),
		[]byte("not a record"), 0o644))

	search := &fakeSearcher{results: sampleResults()}
	deliver := &fakeDeliverer{}
	r := New(search, deliver, nil, Options{}, discard)
	r.clock = func() time.Time { return cycleStart }

	require.NoError(t, r.RunAll(context.Background(), Source{Dir: dir}))

	assert.Equal(t, 2, search.calls, "both valid users run; broken record skipped")
	assert.Equal(t, 2, deliver.calls)
}

func TestRunAllDirectoryMissing(t *testing.T) {
	r := New(&fakeSearcher{}, &fakeDeliverer{}, nil, Options{}, discard)

	err := r.RunAll(context.Background(), Source{
		Dir: filepath.Join(t.TempDir(), "does-not-exist"),
	})
	assert.NoError(t, err, "missing directory is logged, not fatal")
}

func TestRunAllSingleFile(t *testing.T) {
	path := writeUser(t, t.TempDir(), "ada.yaml", types.User{
		Name: "Ada", Email: "ada@example.com", Query: "cat:cs.LG",
	})
	search := &fakeSearcher{results: sampleResults()}
	deliver := &fakeDeliverer{}
	r := newTestRunner(search, deliver, nil, Options{})

	require.NoError(t, r.RunAll(context.Background(), Source{File: path}))
	assert.Equal(t, 1, search.calls)
	assert.Equal(t, 1, deliver.calls)
}

func TestRunAllContinuesAfterUserFailure(t *testing.T) {
	dir := t.TempDir()
	writeUser(t, dir, "ada.yaml", types.User{
		Name: "Ada", Email: "ada@example.com", Query: "cat:cs.LG",
	})
	writeUser(t, dir, "grace.yaml", types.User{
		Name: "Grace", Email: "grace@example.com", Query: "cat:cs.DC",
	})

	// Delivery fails for everyone; the batch must still visit both users.
	deliver := &fakeDeliverer{err: fmt.Errorf("relay down")}
	r := New(&fakeSearcher{results: sampleResults()}, deliver, nil, Options{}, discard)
	r.clock = func() time.Time { return cycleStart }

	require.NoError(t, r.RunAll(context.Background(), Source{Dir: dir}))
	assert.Equal(t, 2, deliver.calls)
}
