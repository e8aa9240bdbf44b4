package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-devicesettings/internal/hal"
	"github.com/nerrad567/gray-logic-devicesettings/internal/hal/sim"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-devicesettings/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-devicesettings/internal/persist"
	"github.com/nerrad567/gray-logic-devicesettings/internal/publish"
	"github.com/nerrad567/gray-logic-devicesettings/internal/workqueue"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test-config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// ============================================================================
// run
// ============================================================================

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configPathEnv, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want loading config error", err)
	}
}

// TestRun_InvalidConfigValues verifies validation errors stop startup.
func TestRun_InvalidConfigValues(t *testing.T) {
	t.Setenv(configPathEnv, writeTestConfig(t, `
service:
  id: test-box
database:
  path: ""
`))

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail with an empty database path")
	}
}

// TestRun_StartStop starts the service with only local components and
// verifies it shuts down cleanly when the context is cancelled.
func TestRun_StartStop(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "settings.db")
	t.Setenv(configPathEnv, writeTestConfig(t, `
service:
  id: test-box
database:
  path: "`+dbPath+`"
  wal_mode: true
  busy_timeout: 5
mqtt:
  enabled: false
influxdb:
  enabled: false
api:
  enabled: false
logging:
  level: error
  format: text
  output: stdout
platform:
  animate_interval: 10ms
`))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run() error = %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not return after cancel")
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

// ============================================================================
// getConfigPath
// ============================================================================

func TestGetConfigPath(t *testing.T) {
	t.Setenv(configPathEnv, "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv(configPathEnv, "/etc/devsettings.yaml")
	if got := getConfigPath(); got != "/etc/devsettings.yaml" {
		t.Errorf("getConfigPath() = %q, want /etc/devsettings.yaml", got)
	}
}

// ============================================================================
// facets
// ============================================================================

type facetEnv struct {
	platform *sim.Platform
	store    *persist.MemoryStore
	queue    *workqueue.Queue
	log      *logging.Logger
}

func newFacetEnv(t *testing.T) *facetEnv {
	t.Helper()
	log := logging.Default()
	queue := workqueue.New(log)
	queue.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = queue.Stop(ctx) //nolint:errcheck // test cleanup
	})
	return &facetEnv{
		platform: sim.New(3, log),
		store:    persist.NewMemoryStore(),
		queue:    queue,
		log:      log,
	}
}

func TestStartFacets_AllEnabled(t *testing.T) {
	env := newFacetEnv(t)
	cfg := config.Default()

	f, err := startFacets(context.Background(), cfg, env.platform, env.store, env.queue, env.log)
	if err != nil {
		t.Fatalf("startFacets() error = %v", err)
	}
	defer f.Close()

	if f.Diagnostics == nil || f.HDMIIn == nil || f.FPD == nil {
		t.Fatalf("facets = %+v, want all enabled", f)
	}
}

func TestStartFacets_Disabled(t *testing.T) {
	env := newFacetEnv(t)
	cfg := config.Default()
	cfg.Facets.Diagnostics.Enabled = false
	cfg.Facets.FPD.Enabled = false

	f, err := startFacets(context.Background(), cfg, env.platform, env.store, env.queue, env.log)
	if err != nil {
		t.Fatalf("startFacets() error = %v", err)
	}
	defer f.Close()

	if f.Diagnostics != nil || f.FPD != nil {
		t.Error("disabled facets should be nil")
	}
	if f.HDMIIn == nil {
		t.Error("hdmiin facet should be enabled")
	}
}

func TestStartFacets_UnknownIndicator(t *testing.T) {
	env := newFacetEnv(t)
	cfg := config.Default()
	cfg.Facets.FPD.Indicators = []string{"power", "wifi"}

	if _, err := startFacets(context.Background(), cfg, env.platform, env.store, env.queue, env.log); err == nil {
		t.Fatal("startFacets() should reject an unknown indicator")
	}
}

func TestFacets_RegisterPublisher(t *testing.T) {
	env := newFacetEnv(t)
	cfg := config.Default()

	f, err := startFacets(context.Background(), cfg, env.platform, env.store, env.queue, env.log)
	if err != nil {
		t.Fatalf("startFacets() error = %v", err)
	}
	defer f.Close()

	p := newPublisher(nil, nil, env.log)
	unregister, err := f.Register(p)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Registering twice is rejected by the facets.
	if _, err := f.Register(p); err == nil {
		t.Error("second Register() should fail")
	}

	unregister()
	if _, err := f.Register(p); err != nil {
		t.Errorf("Register() after unregister error = %v", err)
	}
}

func TestNewPublisher_NoSinks(t *testing.T) {
	p := newPublisher(nil, nil, logging.Default())

	// With no sinks configured events are dropped without counting failures.
	p.OnHotPlug(hal.Port(0), true)
	if _, failed := p.Stats(); failed != 0 {
		t.Errorf("failed = %d, want 0", failed)
	}
	var _ publish.AttributeRecorder = p
}
