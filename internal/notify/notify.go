// Package notify delivers session-completion notifications. Desktop
// notification failure is not an error path: the notifier falls back to a log
// banner and the timer never learns the difference.
package notify

import (
	"log"
	"os/exec"
)

// Notifier is the completion-notification capability consumed by the timer.
type Notifier interface {
	Notify(title, body string) error
}

// DesktopNotifier shells out to notify-send when it is installed and falls
// back to a log banner otherwise. Availability is probed once at
// construction, never re-checked.
type DesktopNotifier struct {
	appName       string
	hasNotifySend bool
}

func NewDesktop(appName string) *DesktopNotifier {
	_, err := exec.LookPath("notify-send")
	return &DesktopNotifier{
		appName:       appName,
		hasNotifySend: err == nil,
	}
}

func (n *DesktopNotifier) Notify(title, body string) error {
	if n.hasNotifySend {
		cmd := exec.Command("notify-send", "-a", n.appName, title, body)
		if err := cmd.Run(); err == nil {
			return nil
		}
		// Fall through to the banner on failure.
	}
	log.Printf("==== %s: %s ====", title, body)
	return nil
}

// Nop discards notifications. Useful in tests and headless runs.
type Nop struct{}

func (Nop) Notify(title, body string) error { return nil }
