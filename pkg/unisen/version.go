// version.go holds the SDK identity reported with events.

package unisen

const (
	// SDKName is reported in the sdk field of every event.
	SDKName = "sentry.go.unisen"

	// SDKVersion is the version of this module.
	SDKVersion = "0.3.0"

	sdkPackageName = "go:github.com/strongdm/miniapp-observe"
)
