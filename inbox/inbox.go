/*
Package inbox is the read side of the notification log.

PURPOSE:
  The engine writes notifications transactionally; this package is what a
  consumer (API, UI poller) reads them through. It never writes new entries,
  only read flags.
*/
package inbox

import (
	"context"

	"github.com/courtside/roster-engine/roster"
)

// Inbox reads a recipient's notification log.
type Inbox struct {
	store roster.Store
}

func New(store roster.Store) *Inbox {
	return &Inbox{store: store}
}

// List returns the recipient's notifications, newest first.
func (i *Inbox) List(ctx context.Context, recipient roster.IdentityID) ([]roster.Notification, error) {
	return i.store.NotificationsByRecipient(ctx, recipient)
}

// UnreadCount returns how many entries the recipient has not read.
func (i *Inbox) UnreadCount(ctx context.Context, recipient roster.IdentityID) (int, error) {
	return i.store.UnreadNotificationCount(ctx, recipient)
}

// MarkRead flags one entry read. Marking an unknown entry is a no-op.
func (i *Inbox) MarkRead(ctx context.Context, id roster.NotificationID) error {
	return i.store.MarkNotificationRead(ctx, id)
}

// MarkAllRead flags the recipient's whole log read.
func (i *Inbox) MarkAllRead(ctx context.Context, recipient roster.IdentityID) error {
	return i.store.MarkAllNotificationsRead(ctx, recipient)
}
