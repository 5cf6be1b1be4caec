// integrations_system.go attaches device, os and app contexts from the
// platform system info.

package unisen

import (
	"context"
	"strings"
)

// SystemIntegrationName is the Name of SystemIntegration.
const SystemIntegrationName = "System"

// SystemIntegration attaches device, os and app contexts read from the
// platform's system info to every event.
type SystemIntegration struct {
	platform Platform
}

// NewSystemIntegration creates the integration.
func NewSystemIntegration() *SystemIntegration {
	return &SystemIntegration{}
}

// Name implements Integration.
func (s *SystemIntegration) Name() string {
	return SystemIntegrationName
}

// SetupOnce implements Integration.
func (s *SystemIntegration) SetupOnce(client *Client) {
	s.platform = client.Platform()
}

// ProcessEvent implements EventProcessor. Events pass unchanged when the
// platform cannot report system info.
func (s *SystemIntegration) ProcessEvent(ctx context.Context, event *Event, hint *EventHint) *Event {
	source, ok := s.platform.(SystemInfoSource)
	if !ok {
		return event
	}
	info, err := source.GetSystemInfoSync()
	if err != nil {
		return event
	}

	osName, osVersion := splitSystem(info.System)

	device := event.context("device")
	device["brand"] = info.Brand
	device["battery_level"] = firstNonZero(info.BatteryLevel, info.CurrentBattery, info.Battery)
	device["model"] = info.Model
	device["screen_dpi"] = info.PixelRatio

	osCtx := event.context("os")
	osCtx["name"] = osName
	osCtx["version"] = osVersion

	app := event.context("app")
	app["app_name"] = firstNonEmpty(info.App, info.AppName, appName(s.platform))

	event.setExtra("systemInfo", map[string]any{
		"batteryLevel":    info.BatteryLevel,
		"currentBattery":  info.CurrentBattery,
		"battery":         info.Battery,
		"brand":           info.Brand,
		"language":        info.Language,
		"model":           info.Model,
		"pixelRatio":      info.PixelRatio,
		"platform":        info.Platform,
		"screenHeight":    info.ScreenHeight,
		"screenWidth":     info.ScreenWidth,
		"statusBarHeight": info.StatusBarHeight,
		"system":          info.System,
		"version":         info.Version,
		"windowHeight":    info.WindowHeight,
		"windowWidth":     info.WindowWidth,
		"app":             info.App,
		"appName":         info.AppName,
		"fontSizeSetting": info.FontSizeSetting,
	})

	return event
}

// splitSystem splits "iOS 10.0.1" into name and version. A value without a
// space is used for both.
func splitSystem(system string) (name, version string) {
	parts := strings.Split(system, " ")
	name, version = system, system
	if len(parts) > 0 && parts[0] != "" {
		name = parts[0]
	}
	if len(parts) > 1 && parts[1] != "" {
		version = parts[1]
	}
	return name, version
}

func firstNonZero(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
