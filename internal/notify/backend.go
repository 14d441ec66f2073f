package notify

import "github.com/gen2brain/beeep"

// Backend delivers notifications to the desktop.
type Backend interface {
	// Notify sends a standard notification.
	Notify(title, message, iconPath string) error
	// Alert sends an alert notification, used for failures.
	Alert(title, message, iconPath string) error
}

// desktopBackend forwards to beeep.
type desktopBackend struct{}

func (desktopBackend) Notify(title, message, iconPath string) error {
	return beeep.Notify(title, message, iconPath)
}

func (desktopBackend) Alert(title, message, iconPath string) error {
	return beeep.Alert(title, message, iconPath)
}

func newDesktopBackend() Backend {
	return desktopBackend{}
}
