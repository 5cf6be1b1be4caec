// platform.go describes the miniapp host API surface unisen binds to.
//
// A host only needs to implement Platform. Every other interface here is an
// optional capability discovered by type assertion, mirroring host runtimes
// where an API may or may not exist.

package unisen

// Known application identifiers returned by Platform.AppName.
const (
	AppWechat    = "wechat"
	AppAlipay    = "alipay"
	AppBytedance = "bytedance"
	AppDingtalk  = "dingtalk"
	AppQQ        = "qq"
	AppSwan      = "swan"
	AppUnknown   = "unknown"
)

// Platform is the minimal host surface.
type Platform interface {
	// AppName identifies the host application (wechat, alipay, ...).
	AppName() string
}

// RequestOptions is a single platform HTTP request. Exactly one of Success
// or Fail is invoked, possibly on another goroutine.
type RequestOptions struct {
	URL     string
	Method  string
	Data    []byte
	Header  map[string]string
	Success func(RequestSuccess)
	Fail    func(error)
}

// RequestSuccess is the response handed to RequestOptions.Success.
// Header keys keep the casing the host delivered.
type RequestSuccess struct {
	StatusCode int
	Header     map[string]string
}

// Requester is the primary request primitive.
type Requester interface {
	Request(opts RequestOptions)
}

// HTTPRequester is the fallback request primitive some hosts expose instead.
type HTTPRequester interface {
	HTTPRequest(opts RequestOptions)
}

// ErrorHook registers a callback for uncaught script errors. The callback
// receives either a string or an error-like value.
type ErrorHook interface {
	OnError(fn func(err any))
}

// UnhandledRejection is delivered by UnhandledRejectionHook.
type UnhandledRejection struct {
	Reason  any
	Promise any
}

// UnhandledRejectionHook registers a callback for unhandled async failures.
type UnhandledRejectionHook interface {
	OnUnhandledRejection(fn func(UnhandledRejection))
}

// PageNotFound is delivered by PageNotFoundHook.
type PageNotFound struct {
	Path        string         `json:"path"`
	Query       map[string]any `json:"query,omitempty"`
	IsEntryPage bool           `json:"isEntryPage"`
}

// PageNotFoundHook registers a callback for navigations to missing pages.
type PageNotFoundHook interface {
	OnPageNotFound(fn func(PageNotFound))
}

// MemoryWarning is delivered by MemoryWarningHook. Level is -1 when the host
// did not report one.
type MemoryWarning struct {
	Level int
}

// MemoryWarningHook registers a callback for low-memory notifications.
type MemoryWarningHook interface {
	OnMemoryWarning(fn func(MemoryWarning))
}

// SystemInfo is the host's device/system description. Several fields are
// synonyms that drifted across host versions; zero means absent.
type SystemInfo struct {
	BatteryLevel    float64
	CurrentBattery  float64
	Battery         float64
	Brand           string
	Language        string
	Model           string
	PixelRatio      float64
	Platform        string
	ScreenHeight    int
	ScreenWidth     int
	StatusBarHeight int
	System          string
	Version         string
	WindowHeight    int
	WindowWidth     int
	App             string
	AppName         string
	FontSizeSetting int
}

// SystemInfoSource reads SystemInfo synchronously.
type SystemInfoSource interface {
	GetSystemInfoSync() (SystemInfo, error)
}

// Page is one entry of the host's page stack.
type Page struct {
	Route   string            `json:"route"`
	Options map[string]string `json:"options"`
}

// PageStackSource returns the current page stack, bottom first.
type PageStackSource interface {
	GetCurrentPages() ([]Page, error)
}

// LaunchOptions describes how the miniapp was started.
type LaunchOptions struct {
	Scene int
	Path  string
	Query map[string]string
}

// LaunchOptionsSource returns the launch options of the running miniapp.
type LaunchOptionsSource interface {
	GetLaunchOptionsSync() (LaunchOptions, error)
}

// appName returns the platform app identifier, or AppUnknown.
func appName(p Platform) string {
	if p == nil {
		return AppUnknown
	}
	if name := p.AppName(); name != "" {
		return name
	}
	return AppUnknown
}
