// integrations_globalhandlers.go captures errors reported through the
// platform's global lifecycle hooks.

package unisen

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

// GlobalHandlersIntegrationName is the Name of GlobalHandlersIntegration.
const GlobalHandlersIntegrationName = "GlobalHandlers"

// GlobalHandlersOptions disables individual platform hooks. The zero value
// installs all of them.
type GlobalHandlersOptions struct {
	DisableOnError              bool `yaml:"disable_onerror"`
	DisableOnUnhandledRejection bool `yaml:"disable_onunhandledrejection"`
	DisableOnPageNotFound       bool `yaml:"disable_onpagenotfound"`
	DisableOnMemoryWarning      bool `yaml:"disable_onmemorywarning"`
}

// Memory warning levels reported by hosts.
var memoryWarningLevels = map[int]string{
	5:  "TRIM_MEMORY_RUNNING_MODERATE",
	10: "TRIM_MEMORY_RUNNING_LOW",
	15: "TRIM_MEMORY_RUNNING_CRITICAL",
}

// GlobalHandlersIntegration registers callbacks on the platform's error,
// unhandled rejection, page-not-found and memory-warning hooks. Each hook is
// registered at most once for the lifetime of the integration.
type GlobalHandlersIntegration struct {
	opts GlobalHandlersOptions

	mu                            sync.Mutex
	onErrorInstalled              bool
	onUnhandledRejectionInstalled bool
	onPageNotFoundInstalled       bool
	onMemoryWarningInstalled      bool
}

// NewGlobalHandlersIntegration creates the integration.
func NewGlobalHandlersIntegration(opts GlobalHandlersOptions) *GlobalHandlersIntegration {
	return &GlobalHandlersIntegration{opts: opts}
}

// Name implements Integration.
func (g *GlobalHandlersIntegration) Name() string {
	return GlobalHandlersIntegrationName
}

// SetupOnce installs the enabled hooks the platform supports.
func (g *GlobalHandlersIntegration) SetupOnce(client *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()

	platform := client.Platform()
	if !g.opts.DisableOnError {
		g.installOnError(client, platform)
	}
	if !g.opts.DisableOnUnhandledRejection {
		g.installOnUnhandledRejection(client, platform)
	}
	if !g.opts.DisableOnPageNotFound {
		g.installOnPageNotFound(client, platform)
	}
	if !g.opts.DisableOnMemoryWarning {
		g.installOnMemoryWarning(client, platform)
	}
}

func (g *GlobalHandlersIntegration) installOnError(client *Client, platform Platform) {
	hook, ok := platform.(ErrorHook)
	if g.onErrorInstalled || !ok {
		return
	}

	hook.OnError(func(err any) {
		client.CaptureException(context.Background(), asError(err), &EventHint{
			Mechanism: &Mechanism{Type: "onerror", Handled: boolPtr(false)},
		})
	})

	g.onErrorInstalled = true
	client.Logger().Debug("global handler attached", "hook", "onError")
}

func (g *GlobalHandlersIntegration) installOnUnhandledRejection(client *Client, platform Platform) {
	hook, ok := platform.(UnhandledRejectionHook)
	if g.onUnhandledRejectionInstalled || !ok {
		return
	}

	hook.OnUnhandledRejection(func(res UnhandledRejection) {
		client.CaptureException(context.Background(), asError(res.Reason), &EventHint{
			Mechanism: &Mechanism{Type: "onunhandledrejection", Handled: boolPtr(false)},
			Data:      map[string]any{"promise": res.Promise},
		})
	})

	g.onUnhandledRejectionInstalled = true
	client.Logger().Debug("global handler attached", "hook", "onUnhandledRejection")
}

func (g *GlobalHandlersIntegration) installOnPageNotFound(client *Client, platform Platform) {
	hook, ok := platform.(PageNotFoundHook)
	if g.onPageNotFoundInstalled || !ok {
		return
	}

	hook.OnPageNotFound(func(res PageNotFound) {
		url, _, _ := strings.Cut(res.Path, "?")

		scope := client.Scope()
		scope.SetTag("pagenotfound", url)
		scope.SetContext("pagenotfound", Context{
			"path":        res.Path,
			"query":       res.Query,
			"isEntryPage": res.IsEntryPage,
		})

		client.CaptureMessage(context.Background(), "Page not found: "+url, LevelWarning, nil)
	})

	g.onPageNotFoundInstalled = true
	client.Logger().Debug("global handler attached", "hook", "onPageNotFound")
}

func (g *GlobalHandlersIntegration) installOnMemoryWarning(client *Client, platform Platform) {
	hook, ok := platform.(MemoryWarningHook)
	if g.onMemoryWarningInstalled || !ok {
		return
	}

	hook.OnMemoryWarning(func(res MemoryWarning) {
		levelMessage, known := memoryWarningLevels[res.Level]
		if !known {
			return
		}

		scope := client.Scope()
		scope.SetTag("memory-warning", strconv.Itoa(res.Level))
		scope.SetContext("memory-warning", Context{
			"level":        res.Level,
			"levelMessage": levelMessage,
		})

		client.CaptureMessage(context.Background(), "Memory warning", LevelWarning, nil)
	})

	g.onMemoryWarningInstalled = true
	client.Logger().Debug("global handler attached", "hook", "onMemoryWarning")
}

// asError turns string reports into errors; other values pass through.
func asError(v any) any {
	if s, ok := v.(string); ok {
		return errors.New(s)
	}
	return v
}
