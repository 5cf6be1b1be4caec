// system.go reports runtime state as miniapp system info and raises
// memory warnings from heap usage.

package native

import (
	"context"
	"errors"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/strongdm/miniapp-observe/pkg/unisen"
)

// ErrNoLaunchOptions is returned by GetLaunchOptionsSync before
// SetLaunchOptions is called.
var ErrNoLaunchOptions = errors.New("launch options not set")

// Memory warning levels, by fraction of the configured limit in use.
var memoryThresholds = []struct {
	fraction float64
	level    int
}{
	{0.95, 15},
	{0.85, 10},
	{0.70, 5},
}

// GetSystemInfoSync implements unisen.SystemInfoSource.
func (p *Platform) GetSystemInfoSync() (unisen.SystemInfo, error) {
	hostname, _ := os.Hostname() // Ignore error, empty hostname is acceptable

	return unisen.SystemInfo{
		Brand:    hostname,
		Language: language(),
		Model:    runtime.GOARCH,
		Platform: runtime.GOOS,
		System:   runtime.GOOS + " " + runtime.Version(),
		Version:  unisen.SDKVersion,
		App:      p.appName,
	}, nil
}

func language() string {
	for _, key := range []string{"LC_ALL", "LANG"} {
		if v := os.Getenv(key); v != "" {
			lang, _, _ := strings.Cut(v, ".")
			return lang
		}
	}
	return ""
}

// CheckMemory emits a memory warning when heap usage exceeds a threshold of
// limitBytes. Returns the emitted level, or 0 when usage is below all
// thresholds.
func (p *Platform) CheckMemory(limitBytes uint64) int {
	if limitBytes == 0 {
		return 0
	}
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	used := float64(memStats.Alloc) / float64(limitBytes)
	for _, th := range memoryThresholds {
		if used >= th.fraction {
			p.EmitMemoryWarning(unisen.MemoryWarning{Level: th.level})
			return th.level
		}
	}
	return 0
}

// WatchMemory calls CheckMemory every interval until ctx is done.
func (p *Platform) WatchMemory(ctx context.Context, limitBytes uint64, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.CheckMemory(limitBytes)
		}
	}
}
