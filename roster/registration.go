/*
registration.go - Registration state machine

PURPOSE:
  Owns individual registrant records and their status transitions. The
  transition table at the top is the single explicit statement of which
  events are legal from which states; the operations below apply it against
  storage inside the caller's transaction.

STATES:
  none -> confirmed | waitlist | looking  (register)
  waitlist -> confirmed                   (promote)
  looking <-> confirmed | waitlist        (pair / unpair via team machine)
  any active -> cancelled                 (withdraw)

Register on a player activity takes its resulting status from the capacity
ledger. Register on a team activity yields a free agent: capacity for team
units is consumed at accept time, never at solo registration.
*/
package roster

import (
	"context"
	"time"
)

// StatusNone is the pseudo-state of an identity with no active record.
const StatusNone RegistrantStatus = "none"

// RegistrationEvent names a registrant transition trigger.
type RegistrationEvent string

const (
	EventRegister RegistrationEvent = "register"
	EventWithdraw RegistrationEvent = "withdraw"
	EventPromote  RegistrationEvent = "promote"
	EventPair     RegistrationEvent = "pair"
	EventUnpair   RegistrationEvent = "unpair"
)

// registrantTable maps (state, event) to permission. Guard conditions that
// depend on storage (capacity, duplicates) live in the operations; the
// table only encodes shape.
var registrantTable = map[RegistrantStatus]map[RegistrationEvent]bool{
	StatusNone: {
		EventRegister: true,
	},
	StatusCancelled: {
		EventRegister: true, // recycle the closed record
	},
	StatusConfirmed: {
		EventWithdraw: true,
		EventUnpair:   true,
	},
	StatusWaitlist: {
		EventWithdraw: true,
		EventPromote:  true,
		EventUnpair:   true,
	},
	StatusLooking: {
		EventWithdraw: true,
		EventPair:     true,
	},
}

// RegistrantCanFire reports whether the event is legal from the state.
func RegistrantCanFire(from RegistrantStatus, event RegistrationEvent) bool {
	return registrantTable[from][event]
}

func registrantGuard(from RegistrantStatus, event RegistrationEvent) error {
	if !RegistrantCanFire(from, event) {
		return &TransitionError{Entity: "registrant", From: string(from), Event: string(event)}
	}
	return nil
}

// =============================================================================
// REGISTER
// =============================================================================

// register admits or waitlists the identity on the activity. All reads and
// writes happen on tx, so the admission decision is made from state inside
// the current transaction.
func (s *Service) register(ctx context.Context, tx Store, identity IdentityID, activityID ActivityID) (*Registrant, error) {
	act, err := tx.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}

	existing, err := tx.ActiveRegistrant(ctx, activityID, identity)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyRegistered
	}

	now := s.now()
	rec, err := tx.CancelledRegistrant(ctx, activityID, identity)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if err := registrantGuard(rec.Status, EventRegister); err != nil {
			return nil, err
		}
		// Recycle: keep the record, reset everything that matters. A fresh
		// RegisteredAt sends the returning identity to the back of the queue.
		rec.TeamID = nil
		rec.LookingForPartner = false
		rec.WaitlistPosition = 0
		rec.RegisteredAt = now
	} else {
		rec = &Registrant{
			ID:           RegistrantID(s.newID()),
			Identity:     identity,
			ActivityID:   activityID,
			RegisteredAt: now,
		}
	}
	rec.UpdatedAt = now

	switch act.UnitType {
	case UnitPlayer:
		slot, pos := act.TryReserve()
		if slot == SlotConfirmed {
			rec.Status = StatusConfirmed
		} else {
			rec.Status = StatusWaitlist
			rec.WaitlistPosition = pos
		}
		if err := tx.UpdateActivity(ctx, act); err != nil {
			return nil, err
		}
	case UnitTeam:
		// Free agent until paired; no capacity consumed.
		rec.Status = StatusLooking
		rec.LookingForPartner = true
	default:
		return nil, &InvariantError{ActivityID: act.ID, Detail: "unknown unit type " + string(act.UnitType)}
	}

	if err := tx.PutRegistrant(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// =============================================================================
// WITHDRAW
// =============================================================================

// withdraw closes the identity's registration. A vacated confirmed slot is
// handed to the promotion engine; a vacated waitlist entry shifts the queue
// behind it. A team member's withdrawal dissolves the team, normalizing the
// survivor as a free agent in the same transaction.
func (s *Service) withdraw(ctx context.Context, tx Store, identity IdentityID, activityID ActivityID) error {
	act, err := tx.GetActivity(ctx, activityID)
	if err != nil {
		return err
	}

	rec, err := tx.ActiveRegistrant(ctx, activityID, identity)
	if err != nil {
		return err
	}
	if rec == nil {
		return ErrNotRegistered
	}
	if err := registrantGuard(rec.Status, EventWithdraw); err != nil {
		return err
	}

	if rec.TeamID != nil {
		// Withdrawal of a team member: dissolve the pair first. The team
		// machine releases the slot and promotes if one was held.
		if err := s.dissolveTeamFor(ctx, tx, act, *rec.TeamID, identity, true); err != nil {
			return err
		}
	} else {
		switch rec.Status {
		case StatusConfirmed:
			// Vacated confirmed slot: promotion engine fills it or opens it.
			if _, err := s.promoteNext(ctx, tx, act); err != nil {
				return err
			}
			if err := tx.UpdateActivity(ctx, act); err != nil {
				return err
			}
		case StatusWaitlist:
			if err := act.Release(SlotWaitlist); err != nil {
				return err
			}
			if err := tx.ShiftRegistrantWaitlist(ctx, activityID, rec.WaitlistPosition); err != nil {
				return err
			}
			if err := tx.UpdateActivity(ctx, act); err != nil {
				return err
			}
		case StatusLooking:
			// Free agent: no capacity held, but outstanding invites they
			// created die with the registration.
			if err := s.cancelPendingInvites(ctx, tx, act, identity); err != nil {
				return err
			}
		}
	}

	rec.Status = StatusCancelled
	rec.WaitlistPosition = 0
	rec.TeamID = nil
	rec.LookingForPartner = false
	rec.UpdatedAt = s.now()
	return tx.PutRegistrant(ctx, rec)
}

// effectivePosition computes the 1-based FIFO rank of a waitlisted
// registrant from queue order. Used by read paths to double-check the
// stored position.
func effectivePosition(queue []*Registrant, id RegistrantID) int {
	for i, r := range queue {
		if r.ID == id {
			return i + 1
		}
	}
	return 0
}

// touch refreshes the update stamp; small helper shared by the team machine.
func touch(r *Registrant, at time.Time) {
	r.UpdatedAt = at
}
