package domain

import "time"

// NotificationKind enumerates battery notifications.
type NotificationKind string

const (
	NotificationLowBattery   NotificationKind = "low_battery"
	NotificationInsufficient NotificationKind = "insufficient_battery"
)

// View names a peripheral view a notification is shown in.
type View string

const (
	ViewRoute    View = "route"
	ViewStations View = "stations"
)

// Notification is one live banner. A zero ExpiresAt means it persists until dismissed.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	Hint      string           `json:"hint,omitempty"`
	Views     []View           `json:"views"`
	RaisedAt  time.Time        `json:"raised_at"`
	ExpiresAt time.Time        `json:"expires_at,omitempty"`
	Visible   bool             `json:"visible"`
}

// Expired reports whether the notification has passed its expiry at now.
func (n Notification) Expired(now time.Time) bool {
	return !n.ExpiresAt.IsZero() && !now.Before(n.ExpiresAt)
}
