package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/webgen/internal/build"
	"git.home.luguber.info/inful/webgen/internal/config"
	"git.home.luguber.info/inful/webgen/internal/metrics"
)

func testPaths(t *testing.T) config.Paths {
	t.Helper()
	dir := t.TempDir()
	paths, err := config.ResolvePaths(filepath.Join(dir, "Webfile"), filepath.Join(dir, "output"))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(paths.TargetBase, 0o750))
	return paths
}

func TestHandler_ServesTargetFiles(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.WriteFile(filepath.Join(paths.TargetBase, "index.html"), []byte("<h1>hi</h1>"), 0o600))

	h := newHandler(Options{Paths: paths}, &status{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/index.html", nil))
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "hi")
}

func TestHandler_Healthz(t *testing.T) {
	paths := testPaths(t)
	st := &status{}
	st.record(&build.Report{BuildID: "b1", Outcome: "success"}, nil)

	h := newHandler(Options{Paths: paths}, st)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok":true`)
	require.Contains(t, rec.Body.String(), "b1")

	st.record(nil, errors.New("boom"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	require.Equal(t, 500, rec.Code)
	require.Contains(t, rec.Body.String(), "boom")
}

func TestHandler_MetricsEndpointOptIn(t *testing.T) {
	paths := testPaths(t)

	h := newHandler(Options{Paths: paths}, &status{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 404, rec.Code)

	pr := metrics.NewPrometheusRecorder(nil)
	h = newHandler(Options{Paths: paths, Metrics: pr}, &status{})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
}

func TestIgnoreEvent(t *testing.T) {
	paths := testPaths(t)

	require.True(t, ignoreEvent(paths, fsnotify.Event{Name: filepath.Join(paths.TargetBase, "index.html")}))
	require.True(t, ignoreEvent(paths, fsnotify.Event{Name: filepath.Join(paths.SourceBase, ".cache")}))
	require.False(t, ignoreEvent(paths, fsnotify.Event{Name: filepath.Join(paths.SourceBase, "posts", "a.md")}))
}

// startWatchLoop runs watchLoop against a real watcher on paths.SourceBase
// and returns the pending channel plus a stop func that waits for exit.
func startWatchLoop(t *testing.T, paths config.Paths, rebuild func(context.Context)) (chan struct{}, func()) {
	t.Helper()
	watcher, err := newSourceWatcher(paths)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	pending := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = watchLoop(ctx, watcher, paths, pending, rebuild, nil)
	}()
	return pending, func() {
		cancel()
		<-done
		_ = watcher.Close()
	}
}

func TestWatchLoop_DebouncesBurstIntoOneRebuild(t *testing.T) {
	paths := testPaths(t)

	var builds atomic.Int32
	_, stop := startWatchLoop(t, paths, func(context.Context) { builds.Add(1) })
	defer stop()

	for i := 0; i < 5; i++ {
		name := filepath.Join(paths.SourceBase, fmt.Sprintf("post%d.md", i))
		require.NoError(t, os.WriteFile(name, []byte("# hi"), 0o600))
	}

	require.Eventually(t, func() bool { return builds.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(2 * debounceDelay)
	require.Equal(t, int32(1), builds.Load())
}

func TestWatchLoop_TargetTreeEventsTriggerNothing(t *testing.T) {
	paths := testPaths(t)

	var builds atomic.Int32
	_, stop := startWatchLoop(t, paths, func(context.Context) { builds.Add(1) })
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(paths.TargetBase, "index.html"), []byte("x"), 0o600))

	time.Sleep(3 * debounceDelay)
	require.Equal(t, int32(0), builds.Load())
}

func TestWatchLoop_SerializesPeriodicAndWatchRebuilds(t *testing.T) {
	paths := testPaths(t)

	var active, overlaps, builds atomic.Int32
	rebuild := func(context.Context) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		builds.Add(1)
	}
	pending, stop := startWatchLoop(t, paths, rebuild)
	defer stop()

	// Periodic triggers and file events race against a slow rebuild; the
	// loop must never run two builds at once.
	for i := 0; i < 10; i++ {
		select {
		case pending <- struct{}{}:
		default:
		}
		name := filepath.Join(paths.SourceBase, fmt.Sprintf("f%d.md", i))
		require.NoError(t, os.WriteFile(name, []byte("x"), 0o600))
		time.Sleep(10 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return builds.Load() >= 1 }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(2*debounceDelay + 100*time.Millisecond)
	require.Equal(t, int32(0), overlaps.Load())
}

func TestAddWatchDirs_SkipsTargetAndDotDirs(t *testing.T) {
	paths := testPaths(t)
	require.NoError(t, os.MkdirAll(filepath.Join(paths.SourceBase, "posts"), 0o750))
	require.NoError(t, os.MkdirAll(filepath.Join(paths.SourceBase, ".git"), 0o750))

	watcher, err := fsnotify.NewWatcher()
	require.NoError(t, err)
	defer func() { _ = watcher.Close() }()

	require.NoError(t, addWatchDirs(watcher, paths))
	watched := watcher.WatchList()
	require.Contains(t, watched, filepath.Join(paths.SourceBase, "posts"))
	require.NotContains(t, watched, paths.TargetBase)
	require.NotContains(t, watched, filepath.Join(paths.SourceBase, ".git"))
}
