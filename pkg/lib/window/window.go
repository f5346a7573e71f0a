// Package window hosts the UI in a single native window.
//
// The Controller owns at most one Window. It loads the resolved UI document
// (or the dev server as a fallback), shows the window once its content is
// ready, and relays backend errors to the content on a notification channel.
// The content only sees a narrow read-only bridge describing the host.
package window

// ErrorChannel is the notification channel backend errors are sent on.
const ErrorChannel = "backend-error"

// BridgeName is the global the bridge is exposed as inside the content.
const BridgeName = "psiHost"

// Versions describes the host runtime.
type Versions struct {
	Go     string `json:"go"`
	Chrome string `json:"chrome"`
	Shell  string `json:"shell"`
}

// Bridge is everything the content may learn about the host.
type Bridge struct {
	Platform string   `json:"platform"`
	Versions Versions `json:"versions"`
}

// Options configure a new window.
type Options struct {
	Title     string
	Width     int
	Height    int
	MinWidth  int
	MinHeight int
	// Hidden windows stay out of sight until Show.
	Hidden bool
	// DevTools opens the inspector with the window.
	DevTools bool
	Bridge   Bridge
}

// Host creates windows.
type Host interface {
	Open(opts Options) (Window, error)
}

// Window is one host window.
type Window interface {
	LoadFile(path string) error
	LoadURL(url string) error
	// Show makes the window visible and gives it input focus.
	Show() error
	// Notify delivers payload to the content on channel.
	Notify(channel string, payload any) error
	// Ready is closed once content has loaded and can be shown.
	Ready() <-chan struct{}
	// Closed is closed when the window goes away.
	Closed() <-chan struct{}
	Close() error
}
