package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/alienxp03/arena/provider"
)

const (
	providerHealthCacheFilename = "arena-provider-health.json"
	providerHealthCacheTTL      = 30 * time.Minute

	// Failed probes are retried sooner than successful ones.
	providerHealthFailureTTL = time.Minute
)

// providerHealthCache keeps the last probe per provider in a JSON file so a
// restart does not trigger a new generation round trip for every backend.
type providerHealthCache struct {
	path string
	ttl  time.Duration
	now  func() time.Time

	load   sync.Once
	mu     sync.Mutex
	probes map[string]provider.HealthStatus
}

func newProviderHealthCache(path string, ttl time.Duration) *providerHealthCache {
	if ttl <= 0 {
		ttl = providerHealthCacheTTL
	}
	return &providerHealthCache{path: path, ttl: ttl, now: time.Now}
}

func defaultProviderHealthCachePath() string {
	return filepath.Join(os.TempDir(), providerHealthCacheFilename)
}

// expiry is how long a probe with this outcome stays usable.
func (c *providerHealthCache) expiry(status provider.HealthStatus) time.Duration {
	if status.Available {
		return c.ttl
	}
	return min(c.ttl, providerHealthFailureTTL)
}

// GetFresh returns the last probe for name if it has not expired.
func (c *providerHealthCache) GetFresh(name string) (provider.HealthStatus, bool) {
	c.load.Do(c.readFile)
	c.mu.Lock()
	defer c.mu.Unlock()

	status, ok := c.probes[name]
	if !ok || status.CheckedAt.IsZero() || c.now().Sub(status.CheckedAt) > c.expiry(status) {
		return provider.HealthStatus{}, false
	}
	return status, true
}

// Set records a probe and rewrites the cache file.
func (c *providerHealthCache) Set(name string, status provider.HealthStatus) {
	c.load.Do(c.readFile)
	c.mu.Lock()
	defer c.mu.Unlock()

	if status.CheckedAt.IsZero() {
		status.CheckedAt = c.now()
	}
	c.probes[name] = status
	if err := c.writeFile(); err != nil {
		slog.Warn("Failed to persist provider health", "path", c.path, "error", err)
	}
}

func (c *providerHealthCache) readFile() {
	probes := make(map[string]provider.HealthStatus)
	data, err := os.ReadFile(c.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		slog.Warn("Failed to read provider health", "path", c.path, "error", err)
	default:
		if err := json.Unmarshal(data, &probes); err != nil {
			slog.Warn("Ignoring corrupt provider health file", "path", c.path, "error", err)
			probes = make(map[string]provider.HealthStatus)
		}
	}

	c.mu.Lock()
	c.probes = probes
	c.mu.Unlock()
}

// writeFile replaces the cache file atomically. Callers hold c.mu.
func (c *providerHealthCache) writeFile() error {
	data, err := json.Marshal(c.probes)
	if err != nil {
		return err
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".provider-health-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}
