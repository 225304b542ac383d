package timeclock

import (
	"github.com/cuemby/timeclock/pkg/events"
	"github.com/cuemby/timeclock/pkg/log"
)

// Notifier shows transient, non-blocking notices to the user
type Notifier interface {
	Warn(msg string)
	Error(msg string)
}

// LogNotifier writes notices to the component logger
type LogNotifier struct{}

// Warn logs at warn level
func (LogNotifier) Warn(msg string) {
	logger := log.WithComponent("timeclock")
	logger.Warn().Msg(msg)
}

// Error logs at error level
func (LogNotifier) Error(msg string) {
	logger := log.WithComponent("timeclock")
	logger.Error().Msg(msg)
}

// EventNotifier turns notices into notice.* events
type EventNotifier struct {
	Events events.Publisher
}

// Warn publishes a notice.warning event
func (n EventNotifier) Warn(msg string) {
	n.Events.Publish(&events.Event{Type: events.EventNoticeWarning, Message: msg})
}

// Error publishes a notice.error event
func (n EventNotifier) Error(msg string) {
	n.Events.Publish(&events.Event{Type: events.EventNoticeError, Message: msg})
}

// Notifiers fans a notice out to several notifiers
type Notifiers []Notifier

// Warn forwards to every notifier
func (ns Notifiers) Warn(msg string) {
	for _, n := range ns {
		n.Warn(msg)
	}
}

// Error forwards to every notifier
func (ns Notifiers) Error(msg string) {
	for _, n := range ns {
		n.Error(msg)
	}
}
