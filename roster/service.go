/*
service.go - Caller-facing operations

PURPOSE:
  The Service is the single entry point for user actions: register,
  withdraw, invite, respond, leave. Each operation is handed to the
  coordinator as a closure that re-reads all decision-relevant state inside
  its transaction, applies the state-machine rules, optionally invokes the
  promotion engine, and writes every mutation plus its notifications
  atomically.

RESULT CODES:
  State machines return typed errors; CodeForError collapses them into the
  stable result vocabulary callers see. Transient conflicts come back as
  ResultCapacityConflict ("try again"); staleness comes back as an
  informative result ("this invite is gone"), never as a retry.

SEE ALSO:
  - registration.go, team.go: the per-entity operations
  - coordinator.go: atomicity and retry
*/
package roster

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Service orchestrates roster operations over a transactional store.
type Service struct {
	store TxStore
	coord *Coordinator
	log   zerolog.Logger

	now       func() time.Time
	newID     func() string
	newNoteID func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the structured logger (default: disabled).
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxAttempts bounds conflict retries.
func WithMaxAttempts(n int) Option {
	return func(s *Service) { s.coord = NewCoordinator(s.store, n, s.log) }
}

// New builds a Service over the store. Record IDs are ULIDs so creation
// order is recoverable from the IDs themselves.
func New(store TxStore, opts ...Option) *Service {
	s := &Service{
		store:     store,
		log:       zerolog.Nop(),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     func() string { return ulid.Make().String() },
		newNoteID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.coord == nil {
		s.coord = NewCoordinator(s.store, DefaultMaxAttempts, s.log)
	}
	return s
}

// =============================================================================
// WRITE OPERATIONS
// =============================================================================

// CreateActivity registers a new capacity-bounded activity.
func (s *Service) CreateActivity(ctx context.Context, a *Activity) error {
	if !a.UnitType.Valid() {
		return &InvariantError{ActivityID: a.ID, Detail: "unknown unit type " + string(a.UnitType)}
	}
	if a.ID == "" {
		a.ID = ActivityID(s.newID())
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	return s.store.PutActivity(ctx, a)
}

// Register admits or waitlists the identity on the activity.
func (s *Service) Register(ctx context.Context, identity IdentityID, activityID ActivityID) (*Registrant, error) {
	var rec *Registrant
	err := s.coord.Execute(ctx, "register", func(tx Store) error {
		var err error
		rec, err = s.register(ctx, tx, identity, activityID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Str("identity", string(identity)).
		Str("activity", string(activityID)).
		Str("status", string(rec.Status)).
		Msg("registered")
	return rec, nil
}

// Withdraw closes the identity's registration, promoting from the waitlist
// if a confirmed slot vacated.
func (s *Service) Withdraw(ctx context.Context, identity IdentityID, activityID ActivityID) error {
	err := s.coord.Execute(ctx, "withdraw", func(tx Store) error {
		return s.withdraw(ctx, tx, identity, activityID)
	})
	if err != nil {
		return err
	}
	s.log.Info().
		Str("identity", string(identity)).
		Str("activity", string(activityID)).
		Msg("withdrawn")
	return nil
}

// InviteTeammate creates a pending team and notifies the invitee.
func (s *Service) InviteTeammate(ctx context.Context, inviter, invitee IdentityID, activityID ActivityID) (*Team, error) {
	var team *Team
	err := s.coord.Execute(ctx, "invite", func(tx Store) error {
		var err error
		team, err = s.invite(ctx, tx, inviter, invitee, activityID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// RespondToInvite accepts or declines a pending invite. On accept the
// returned team is confirmed or waitlisted per the capacity ledger; on
// decline the team is gone and the returned value is nil.
func (s *Service) RespondToInvite(ctx context.Context, invitee IdentityID, teamID TeamID, accept bool) (*Team, error) {
	var team *Team
	err := s.coord.Execute(ctx, "respond", func(tx Store) error {
		var err error
		team, err = s.respond(ctx, tx, invitee, teamID, accept)
		return err
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// LeaveTeam dissolves the identity's team, reverting the counterpart to a
// free agent and releasing any held slot.
func (s *Service) LeaveTeam(ctx context.Context, identity IdentityID, teamID TeamID) error {
	return s.coord.Execute(ctx, "leave", func(tx Store) error {
		return s.leave(ctx, tx, identity, teamID)
	})
}

// =============================================================================
// READ VIEWS
// =============================================================================

// ActivitySnapshot returns the activity's admission state.
func (s *Service) ActivitySnapshot(ctx context.Context, id ActivityID) (Snapshot, error) {
	act, err := s.store.GetActivity(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return act.Snapshot(), nil
}

// ListActivities returns snapshots for every activity, ordered by start.
func (s *Service) ListActivities(ctx context.Context) ([]Snapshot, error) {
	acts, err := s.store.ListActivities(ctx)
	if err != nil {
		return nil, err
	}
	snaps := make([]Snapshot, 0, len(acts))
	for _, a := range acts {
		snaps = append(snaps, a.Snapshot())
	}
	return snaps, nil
}

// WaitlistEntry is one queued unit in FIFO order.
type WaitlistEntry struct {
	Position int          `json:"position"`
	Identity IdentityID   `json:"identity,omitempty"`
	TeamID   TeamID       `json:"team_id,omitempty"`
	Members  []IdentityID `json:"members,omitempty"`
	QueuedAt time.Time    `json:"queued_at"`
}

// Waitlist returns the activity's queue in promotion order. Positions are
// recomputed from queue order, which also cross-checks the stored ranks.
func (s *Service) Waitlist(ctx context.Context, activityID ActivityID) ([]WaitlistEntry, error) {
	act, err := s.store.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	var entries []WaitlistEntry
	switch act.UnitType {
	case UnitPlayer:
		queue, err := s.store.WaitlistedRegistrants(ctx, activityID)
		if err != nil {
			return nil, err
		}
		for _, r := range queue {
			entries = append(entries, WaitlistEntry{
				Position: effectivePosition(queue, r.ID),
				Identity: r.Identity,
				QueuedAt: r.RegisteredAt,
			})
		}
	case UnitTeam:
		queue, err := s.store.WaitlistedTeams(ctx, activityID)
		if err != nil {
			return nil, err
		}
		for i, t := range queue {
			entries = append(entries, WaitlistEntry{
				Position: i + 1,
				TeamID:   t.ID,
				Members:  t.Members(),
				QueuedAt: t.QueuedAt,
			})
		}
	}
	return entries, nil
}

// RegistrationsFor returns every record the identity holds, newest first.
func (s *Service) RegistrationsFor(ctx context.Context, identity IdentityID) ([]*Registrant, error) {
	return s.store.RegistrantsByIdentity(ctx, identity)
}

// =============================================================================
// RESULT CODES - stable vocabulary for callers
// =============================================================================

type ResultCode string

const (
	ResultSuccess             ResultCode = "success"
	ResultAlreadyRegistered   ResultCode = "already_registered"
	ResultNotRegistered       ResultCode = "not_registered"
	ResultAlreadyInvited      ResultCode = "already_invited"
	ResultSelfInvite          ResultCode = "self_invite"
	ResultUnitMismatch        ResultCode = "unit_mismatch"
	ResultActivityNotFound    ResultCode = "activity_not_found"
	ResultInviteNoLongerValid ResultCode = "invite_no_longer_valid"
	ResultAlreadyResponded    ResultCode = "already_responded"
	ResultCapacityConflict    ResultCode = "capacity_conflict"
	ResultUnknown             ResultCode = "unknown"
)

// CodeForError maps engine errors onto the caller-facing result vocabulary.
func CodeForError(err error) ResultCode {
	switch {
	case err == nil:
		return ResultSuccess
	case errors.Is(err, ErrAlreadyRegistered):
		return ResultAlreadyRegistered
	case errors.Is(err, ErrNotRegistered):
		return ResultNotRegistered
	case errors.Is(err, ErrAlreadyInvited):
		return ResultAlreadyInvited
	case errors.Is(err, ErrSelfInvite):
		return ResultSelfInvite
	case errors.Is(err, ErrUnitMismatch):
		return ResultUnitMismatch
	case errors.Is(err, ErrActivityNotFound):
		return ResultActivityNotFound
	case errors.Is(err, ErrInviteNoLongerValid):
		return ResultInviteNoLongerValid
	case errors.Is(err, ErrAlreadyResponded):
		return ResultAlreadyResponded
	case errors.Is(err, ErrCapacityConflict), errors.Is(err, ErrConcurrentModification):
		return ResultCapacityConflict
	default:
		return ResultUnknown
	}
}
