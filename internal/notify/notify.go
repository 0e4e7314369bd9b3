// Package notify shows desktop notifications.
package notify

import "github.com/gen2brain/beeep"

// AppName is used as the notification title prefix.
const AppName = "otlog"

// Send shows a desktop notification. Failures are returned, not logged;
// callers usually ignore them since a notification is best effort.
func Send(title, message string) error {
	return beeep.Notify(AppName+": "+title, message, "")
}
