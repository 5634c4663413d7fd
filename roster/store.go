/*
store.go - Persistence interface for the roster engine

PURPOSE:
  Defines the interface between the engine and the database. Every
  capacity-affecting operation runs against a Store view obtained inside a
  transaction, so all decision-relevant reads (counters, existence checks,
  candidate validity) see committed state as of that transaction.

KEY INTERFACES:
  Store:   Reads and writes for activities, registrants, teams, notifications
  TxStore: Store plus WithTx for atomic multi-record operations

OPTIMISTIC CONCURRENCY:
  UpdateActivity is a version-checked write: it succeeds only if the stored
  version still matches the one the activity was read with, and bumps it.
  A failed check returns ErrConcurrentModification, which the coordinator
  retries with fresh reads.

NOTIFICATION DEDUP:
  AppendNotification rejects a dedup key that was already appended with
  ErrDuplicateNotification. Combined with transactional emission this makes
  notifications exactly-once even when an operation is replayed.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - roster/store: in-memory store for tests and dev

SEE ALSO:
  - coordinator.go: runs closures against the transactional view
*/
package roster

import "context"

// Store is the set of reads and writes the engine performs. Lookups that
// can legitimately find nothing return (nil, nil), matching database/sql's
// no-rows convention at the call sites.
type Store interface {
	// --- activities ---

	// GetActivity returns the activity or ErrActivityNotFound.
	GetActivity(ctx context.Context, id ActivityID) (*Activity, error)

	// PutActivity inserts a new activity at version 1.
	PutActivity(ctx context.Context, a *Activity) error

	// UpdateActivity writes counters with a version check and bumps the
	// version. Returns ErrConcurrentModification on a stale version.
	UpdateActivity(ctx context.Context, a *Activity) error

	// ListActivities returns all activities ordered by start time.
	ListActivities(ctx context.Context) ([]*Activity, error)

	// --- registrants ---

	GetRegistrant(ctx context.Context, id RegistrantID) (*Registrant, error)

	// ActiveRegistrant returns the single non-cancelled record for the
	// identity on the activity, or nil.
	ActiveRegistrant(ctx context.Context, activityID ActivityID, identity IdentityID) (*Registrant, error)

	// CancelledRegistrant returns a prior cancelled record eligible for
	// recycling, or nil.
	CancelledRegistrant(ctx context.Context, activityID ActivityID, identity IdentityID) (*Registrant, error)

	// PutRegistrant inserts or replaces the record.
	PutRegistrant(ctx context.Context, r *Registrant) error

	// WaitlistedRegistrants returns waitlisted records for the activity in
	// FIFO order: ascending (RegisteredAt, ID).
	WaitlistedRegistrants(ctx context.Context, activityID ActivityID) ([]*Registrant, error)

	// RegistrantsByIdentity returns all records for the identity across
	// activities, newest first.
	RegistrantsByIdentity(ctx context.Context, identity IdentityID) ([]*Registrant, error)

	// ShiftRegistrantWaitlist decrements the waitlist position of every
	// waitlisted registrant on the activity positioned after the given rank.
	ShiftRegistrantWaitlist(ctx context.Context, activityID ActivityID, afterPosition int) error

	// --- teams ---

	// GetTeam returns the team, or nil if it was dissolved.
	GetTeam(ctx context.Context, id TeamID) (*Team, error)

	// PendingInvite returns the pending team matching the exact
	// (inviter, invitee) pair on the activity, or nil.
	PendingInvite(ctx context.Context, activityID ActivityID, inviter, invitee IdentityID) (*Team, error)

	// PendingInvitesByInviter returns all pending teams the inviter created
	// on the activity.
	PendingInvitesByInviter(ctx context.Context, activityID ActivityID, inviter IdentityID) ([]*Team, error)

	// PutTeam inserts or replaces the team.
	PutTeam(ctx context.Context, t *Team) error

	// DeleteTeam removes the team record. Deleting an absent team is a no-op.
	DeleteTeam(ctx context.Context, id TeamID) error

	// WaitlistedTeams returns waitlisted teams for the activity in FIFO
	// order: ascending (QueuedAt, ID).
	WaitlistedTeams(ctx context.Context, activityID ActivityID) ([]*Team, error)

	// ShiftTeamWaitlist decrements the waitlist position of every waitlisted
	// team on the activity positioned after the given rank.
	ShiftTeamWaitlist(ctx context.Context, activityID ActivityID, afterPosition int) error

	// --- notifications ---

	// AppendNotification appends to the recipient's log. Returns
	// ErrDuplicateNotification when the dedup key already exists.
	AppendNotification(ctx context.Context, n Notification) error

	// NotificationsByRecipient returns the recipient's log, newest first.
	NotificationsByRecipient(ctx context.Context, recipient IdentityID) ([]Notification, error)

	// UnreadNotificationCount returns the number of unread entries.
	UnreadNotificationCount(ctx context.Context, recipient IdentityID) (int, error)

	// MarkNotificationRead flags one entry read.
	MarkNotificationRead(ctx context.Context, id NotificationID) error

	// MarkAllNotificationsRead flags the recipient's whole log read.
	MarkAllNotificationsRead(ctx context.Context, recipient IdentityID) error
}

// TxStore wraps Store with transaction support. WithTx executes fn against
// a transactional view; an error from fn rolls everything back, nil commits.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
