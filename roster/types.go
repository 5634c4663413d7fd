/*
Package roster provides the activity-capacity and team-matching engine.

PURPOSE:
  This package contains the domain types and transition logic for admitting
  or waitlisting registrants into capacity-bounded activities, forming and
  dissolving two-player teams via invite/accept/decline, promoting the
  longest-waiting entry when a confirmed slot vacates, and emitting
  exactly-once notifications for every transition.

KEY CONCEPTS IN THIS FILE (types.go):
  - Activity: a capacity-bounded event with confirmed/waitlist counters
  - Registrant: one identity's registration record for one activity
  - Team: a paired registration formed via invite/accept
  - Notification: an append-only message to a counterpart about a transition

UNIT TYPES:
  An activity admits either individual players or two-player teams. The
  counters always count units of the activity's unit type: persons for
  player activities, pairs for team activities. A team reservation is one
  unit, not two.

DESIGN PRINCIPLES:
  1. Counters never drift: confirmed/waitlist counts are mutated only in the
     same transaction as the membership change they represent.
  2. Records are closed, not erased: a withdrawn registrant becomes
     CANCELLED and may be recycled on re-registration. Teams are the one
     exception: a dissolved team is deleted, with survivors normalized back
     to free agents in the same transaction.
  3. FIFO fairness: waitlists promote strictly in queue-entry order; record
     IDs are ULIDs so creation order breaks ties.

SEE ALSO:
  - ledger.go: capacity counter rules
  - registration.go, team.go: per-entity transition tables
  - coordinator.go: atomic execution with bounded retry
*/
package roster

import (
	"time"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ActivityID string
type IdentityID string
type RegistrantID string
type TeamID string
type NotificationID string

// =============================================================================
// ACTIVITY - Capacity-bounded event with authoritative counters
// =============================================================================

// UnitType says what one capacity unit admits.
type UnitType string

const (
	// UnitPlayer: each confirmed unit is one person.
	UnitPlayer UnitType = "player"
	// UnitTeam: each confirmed unit is one two-player pair.
	UnitTeam UnitType = "team"
)

func (u UnitType) Valid() bool {
	return u == UnitPlayer || u == UnitTeam
}

// Activity is the aggregate that owns admission. ConfirmedCount and
// WaitlistCount are authoritative: they must always equal the number of
// unit entities (registrants or teams) in the matching status.
//
// Version implements optimistic concurrency: every counter mutation is a
// version-checked write, and a failed check surfaces as
// ErrConcurrentModification so the coordinator can retry.
type Activity struct {
	ID       ActivityID
	Name     string
	UnitType UnitType
	Capacity int

	ConfirmedCount int
	WaitlistCount  int
	Version        int64

	StartsAt  time.Time
	CreatedAt time.Time
}

// Snapshot is the read view of an activity's admission state.
type Snapshot struct {
	ActivityID     ActivityID `json:"activity_id"`
	Name           string     `json:"name"`
	UnitType       UnitType   `json:"unit_type"`
	Capacity       int        `json:"capacity"`
	ConfirmedCount int        `json:"confirmed_count"`
	WaitlistCount  int        `json:"waitlist_count"`
	StartsAt       time.Time  `json:"starts_at"`
}

func (a *Activity) Snapshot() Snapshot {
	return Snapshot{
		ActivityID:     a.ID,
		Name:           a.Name,
		UnitType:       a.UnitType,
		Capacity:       a.Capacity,
		ConfirmedCount: a.ConfirmedCount,
		WaitlistCount:  a.WaitlistCount,
		StartsAt:       a.StartsAt,
	}
}

// =============================================================================
// REGISTRANT - One identity's registration for one activity
// =============================================================================

type RegistrantStatus string

const (
	// StatusConfirmed: holds (or, for team members, shares) a confirmed unit.
	StatusConfirmed RegistrantStatus = "confirmed"
	// StatusWaitlist: queued for a unit, FIFO by queue-entry time.
	StatusWaitlist RegistrantStatus = "waitlist"
	// StatusLooking: active free agent on a team activity. Holds no capacity
	// and counts toward neither counter.
	StatusLooking RegistrantStatus = "looking"
	// StatusCancelled: logically closed. Never physically deleted; the
	// record may be recycled on re-registration.
	StatusCancelled RegistrantStatus = "cancelled"
)

// Registrant is an identity's registration record for one activity.
// At most one non-cancelled record exists per (identity, activity).
//
// For player activities the registrant is the unit entity and carries its
// own waitlist position. For team activities the team is the unit entity;
// member registrants mirror the team's slot status and carry no position.
type Registrant struct {
	ID         RegistrantID
	Identity   IdentityID
	ActivityID ActivityID
	Status     RegistrantStatus

	// WaitlistPosition is the 1-based FIFO rank while Status is waitlist on
	// a player activity; zero otherwise.
	WaitlistPosition int

	// TeamID is set while the registrant belongs to a formed (confirmed or
	// waitlisted) team. Pending invites do not set it.
	TeamID *TeamID

	LookingForPartner bool

	RegisteredAt time.Time
	UpdatedAt    time.Time
}

// Active reports whether the record still represents a live registration.
func (r *Registrant) Active() bool {
	return r.Status != StatusCancelled
}

// FreeAgent reports whether the registrant can invite or be invited.
func (r *Registrant) FreeAgent() bool {
	return r.Active() && r.TeamID == nil
}

// =============================================================================
// TEAM - A paired registration on a team activity
// =============================================================================

type TeamStatus string

const (
	// TeamPending: invite sent, not yet answered. Holds no capacity.
	TeamPending TeamStatus = "pending"
	// TeamConfirmed: pair formed and holding one confirmed team unit.
	TeamConfirmed TeamStatus = "confirmed"
	// TeamWaitlist: pair formed, queued for a team unit.
	TeamWaitlist TeamStatus = "waitlist"
)

// Team is a paired-registration entity. The inviter always occupies slot 1.
// While pending, Player2 is empty and Invitee names who was asked; accept
// fills Player2. Dissolution deletes the record outright - there is no
// terminal status row.
type Team struct {
	ID         TeamID
	ActivityID ActivityID

	Player1 IdentityID
	Player2 IdentityID
	Invitee IdentityID

	Status TeamStatus

	// WaitlistPosition is the 1-based FIFO rank while Status is waitlist;
	// zero otherwise.
	WaitlistPosition int

	CreatedAt time.Time
	// QueuedAt is when the team entered the waitlist (its accept time),
	// used for FIFO promotion ordering. Zero unless waitlisted.
	QueuedAt time.Time
}

// Members returns the identities currently bound to the team. A pending
// team has a single member (the inviter).
func (t *Team) Members() []IdentityID {
	if t.Status == TeamPending {
		return []IdentityID{t.Player1}
	}
	return []IdentityID{t.Player1, t.Player2}
}

// HasMember reports whether id is bound to the team (invitees of pending
// teams are not yet members).
func (t *Team) HasMember(id IdentityID) bool {
	for _, m := range t.Members() {
		if m == id {
			return true
		}
	}
	return false
}

// Counterpart returns the other member, or empty if id is the only one.
func (t *Team) Counterpart(id IdentityID) IdentityID {
	if t.Player1 == id {
		return t.Player2
	}
	return t.Player1
}

// =============================================================================
// NOTIFICATION - Append-only message about a transition
// =============================================================================

type NotificationType string

const (
	NoteTeamInvite     NotificationType = "team_invite"
	NoteInviteAccepted NotificationType = "invite_accepted"
	NoteInviteDeclined NotificationType = "invite_declined"
	NoteTeamDissolved  NotificationType = "team_dissolved"
	NotePromoted       NotificationType = "waitlist_promoted"
)

// Notification is written in the same transaction as the state change it
// describes. DedupKey is deterministic per logical transition, so a replayed
// operation cannot append the same message twice.
type Notification struct {
	ID        NotificationID
	Recipient IdentityID
	Type      NotificationType

	ActivityID ActivityID
	// Actor is the counterpart whose action caused the notification, empty
	// for system-driven transitions like promotion.
	Actor  IdentityID
	TeamID *TeamID

	Payload map[string]string

	Read      bool
	DedupKey  string
	CreatedAt time.Time
}
