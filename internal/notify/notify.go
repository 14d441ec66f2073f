// Package notify sends desktop notifications about VPN client changes.
package notify

import "fmt"

// Notifier defines the interface for sending desktop notifications.
type Notifier interface {
	// NotifyChanged reports that a VPN client was paused or resumed.
	NotifyChanged(name string, enabled bool) error
	// NotifyFailure reports that an action failed.
	NotifyFailure(action string, err error) error
}

// Option configures a Notifier.
type Option func(*notifier)

// WithBackend sets a custom notification backend (for testing).
func WithBackend(backend Backend) Option {
	return func(n *notifier) {
		n.backend = backend
	}
}

type notifier struct {
	enabled bool
	backend Backend
}

// NotifyChanged sends a notification about a paused or resumed VPN client.
func (n *notifier) NotifyChanged(name string, enabled bool) error {
	if !n.enabled {
		return nil
	}

	title := "UniFi VPN: Paused"
	message := fmt.Sprintf("VPN client '%s' is paused.", name)
	if enabled {
		title = "UniFi VPN: Resumed"
		message = fmt.Sprintf("VPN client '%s' is active again.", name)
	}

	return n.backend.Notify(title, message, "")
}

// NotifyFailure sends an alert about a failed action.
func (n *notifier) NotifyFailure(action string, err error) error {
	if !n.enabled {
		return nil
	}

	title := "UniFi VPN: Action Failed"
	message := fmt.Sprintf("Failed to %s VPN client.\nError: %v", action, err)

	return n.backend.Alert(title, message, "")
}

// New creates a Notifier. A disabled notifier never calls its backend.
func New(enabled bool, opts ...Option) Notifier {
	n := &notifier{
		enabled: enabled,
		backend: newDesktopBackend(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}
