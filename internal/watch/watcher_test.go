package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdstruct/internal/metrics"
)

func TestWatcher_RequiresHandler(t *testing.T) {
	_, err := NewWatcher(nil, time.Millisecond, metrics.NoopRecorder{})
	assert.Error(t, err)
}

func TestWatcher_TracksAddedDocuments(t *testing.T) {
	w, err := NewWatcher(func(context.Context, string) {}, time.Millisecond, nil)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	dir := t.TempDir()
	a := filepath.Join(dir, "a.md")
	b := filepath.Join(dir, "b.md")
	require.NoError(t, os.WriteFile(a, []byte("# A\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("# B\n"), 0o644))

	require.NoError(t, w.Add(a))
	require.NoError(t, w.Add(b))
	assert.Equal(t, 2, w.Tracked())
}

func TestWatcher_FiresHandlerOnWrite(t *testing.T) {
	changed := make(chan string, 4)
	w, err := NewWatcher(func(_ context.Context, path string) {
		changed <- path
	}, 20*time.Millisecond, nil)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	dir := t.TempDir()
	doc := filepath.Join(dir, "guide.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Guide\n"), 0o644))
	require.NoError(t, w.Add(doc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(doc, []byte("# Guide\n\nMore.\n"), 0o644))

	select {
	case path := <-changed:
		abs, _ := filepath.Abs(doc)
		assert.Equal(t, abs, path)
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not invoked")
	}
}

func TestWatcher_IgnoresUntrackedFiles(t *testing.T) {
	changed := make(chan string, 4)
	w, err := NewWatcher(func(_ context.Context, path string) {
		changed <- path
	}, 10*time.Millisecond, nil)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	dir := t.TempDir()
	doc := filepath.Join(dir, "guide.md")
	other := filepath.Join(dir, "scratch.txt")
	require.NoError(t, os.WriteFile(doc, []byte("# Guide\n"), 0o644))
	require.NoError(t, w.Add(doc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(other, []byte("noise"), 0o644))

	select {
	case path := <-changed:
		t.Fatalf("unexpected handler invocation for %s", path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_DebouncesRapidWrites(t *testing.T) {
	changed := make(chan string, 16)
	w, err := NewWatcher(func(_ context.Context, path string) {
		changed <- path
	}, 150*time.Millisecond, nil)
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	dir := t.TempDir()
	doc := filepath.Join(dir, "guide.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Guide\n"), 0o644))
	require.NoError(t, w.Add(doc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(doc, []byte("# Guide\n\nEdit.\n"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not invoked")
	}

	// The burst should have collapsed into a single invocation.
	select {
	case <-changed:
		t.Fatal("debounce did not collapse rapid writes")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestScheduler_ScheduleRescan(t *testing.T) {
	s, err := NewScheduler()
	require.NoError(t, err)
	defer func() { _ = s.Stop() }()

	id, err := s.ScheduleRescan("0 * * * *", func() {})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = s.ScheduleRescan("not a cron expression", func() {})
	assert.Error(t, err)
}
