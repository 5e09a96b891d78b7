package workspace

// Notifier is the editor's "show message" surface. Implementations post
// info/warning/error notifications to the host editor UI.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// NoOpNotifier discards all notifications. Useful for tests and headless use.
type NoOpNotifier struct{}

// Info discards an info notification.
func (NoOpNotifier) Info(string) {}

// Warn discards a warning notification.
func (NoOpNotifier) Warn(string) {}

// Error discards an error notification.
func (NoOpNotifier) Error(string) {}
