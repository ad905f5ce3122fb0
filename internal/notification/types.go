// Package notification delivers detection alerts.
//
// A Service fans a Notification out to every enabled Provider. Pushover receives the
// routed image as an attachment; shoutrrr services receive the text. Delivery is best
// effort: failures are returned for logging but nothing is retried.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/motionsort/internal/errors"
)

var (
	// ErrProviderDisabled is returned when no enabled provider could take a notification.
	ErrProviderDisabled = errors.NewStd("notification provider disabled")

	// ErrSuppressed is returned when a notification fell inside the location cooldown.
	ErrSuppressed = errors.NewStd("notification suppressed by cooldown")
)

// Notification is one alert.
type Notification struct {
	ID         string
	Title      string
	Message    string
	Location   string    // capture location, drives the cooldown
	Attachment string    // path of an image to attach, optional
	Timestamp  time.Time // capture time
}

// NewNotification returns a notification with a fresh ID.
func NewNotification(message string) *Notification {
	return &Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WithTitle sets the title.
func (n *Notification) WithTitle(title string) *Notification {
	n.Title = title
	return n
}

// WithLocation sets the capture location.
func (n *Notification) WithLocation(location string) *Notification {
	n.Location = location
	return n
}

// WithAttachment sets the image attached by providers that support files.
func (n *Notification) WithAttachment(path string) *Notification {
	n.Attachment = path
	return n
}

// WithTimestamp sets the capture time.
func (n *Notification) WithTimestamp(t time.Time) *Notification {
	n.Timestamp = t
	return n
}

// Provider is a push delivery backend. Implementations must be safe for concurrent use.
type Provider interface {
	GetName() string
	ValidateConfig() error
	Send(ctx context.Context, n *Notification) error
	IsEnabled() bool
}

// Observer receives delivery outcomes, status is "success", "failure" or "suppressed".
type Observer interface {
	RecordNotification(provider, status string)
}
