package testutil

import (
	"testing"
	"time"

	"github.com/tokscribe/tokscribe/internal/config"
	"github.com/tokscribe/tokscribe/internal/core"
	"github.com/tokscribe/tokscribe/internal/ingest/providers/mocktok"
	"github.com/tokscribe/tokscribe/internal/pipeline/simulated"
)

// TestConfig returns a config suitable for fast tests.
func TestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Ingest.Workers = 2
	cfg.Ingest.RetentionMinutes = 60
	cfg.Ingest.PruneIntervalMinutes = 0
	return cfg
}

// SetupTestApp assembles a full core.App backed by an in-memory database,
// the mock metadata provider and a synchronous simulated pipeline.
func SetupTestApp(t *testing.T) *core.App {
	t.Helper()
	return core.NewApp(TestConfig(), SetupTestDB(t), mocktok.New(), simulated.New(0))
}

// WaitFor polls cond every 10ms until it holds or the timeout expires.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
