// Package notify announces campaign outcomes. Unattended campaigns run with
// nobody at the terminal, so a finished run (or one stuck on a conflict) is
// pushed to Slack and/or the desktop.
package notify

import (
	"fmt"

	"github.com/hochfrequenz/cherry-orch/internal/domain"
)

// EventType classifies a campaign notification
type EventType int

const (
	EventInfo EventType = iota
	EventCompleted
	EventConflict
	EventFailed
)

// Event is one campaign notification
type Event struct {
	Title      string
	Message    string
	Type       EventType
	Campaign   string // campaign name, if any
	LedgerPath string
}

// Notifier is the interface for delivering campaign events
type Notifier interface {
	Send(e Event) error
}

// MultiNotifier fans an event out to several notifiers
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a notifier that sends to all provided notifiers
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Send delivers the event to every notifier, returning the last error
func (m *MultiNotifier) Send(e Event) error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Send(e); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// NoopNotifier does nothing (disabled notifications)
type NoopNotifier struct{}

func (NoopNotifier) Send(e Event) error { return nil }

// RunCompleted builds the event for a finished campaign run
func RunCompleted(run *domain.CampaignRun, campaignName string) Event {
	typ := EventCompleted
	title := "Cherry-pick campaign finished"
	switch run.Status {
	case domain.RunAborted:
		typ = EventInfo
		title = "Cherry-pick campaign stopped by operator"
	case domain.RunFailed:
		typ = EventFailed
		title = "Cherry-pick campaign failed"
	}
	return Event{
		Title: title,
		Message: fmt.Sprintf("%s..%s: %d picked, %d skipped, %d conflicts resolved",
			run.StartRef, run.EndRef, run.Picked, run.Skipped, run.Conflicts),
		Type:       typ,
		Campaign:   campaignName,
		LedgerPath: run.LedgerPath,
	}
}
