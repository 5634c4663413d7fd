/*
promotion.go - Waitlist promotion engine

PURPOSE:
  Fills a vacated confirmed slot from the waitlist, strictly FIFO. The
  candidate read and the promoting write happen inside the same transaction
  as the vacancy, so the selection can never race the vacancy it fills.

SELECTION:
  The earliest-queued waitlisted unit entity wins: registrants on player
  activities ordered by (RegisteredAt, ID), teams on team activities by
  (QueuedAt, ID). IDs are ULIDs, so equal timestamps resolve by creation
  order. Candidates are never skipped.

DEGRADATION:
  If a re-check finds the head candidate already claimed or gone, the next
  candidate is considered; with no eligible candidate the confirmed count
  decrements instead and the slot opens publicly. That is a normal outcome,
  not an error.
*/
package roster

import (
	"context"
)

// Promotion describes what filled a vacated confirmed slot.
type Promotion struct {
	// Filled is false when no eligible candidate existed and the slot
	// opened publicly.
	Filled bool

	Registrant *Registrant
	Team       *Team
}

// promoteNext resolves a vacated confirmed unit on act: either swaps in the
// longest-waiting waitlisted entity (confirmed count unchanged, waitlist
// count down one) or opens the slot publicly (confirmed count down one).
// The caller persists act with a version-checked write afterwards.
func (s *Service) promoteNext(ctx context.Context, tx Store, act *Activity) (*Promotion, error) {
	switch act.UnitType {
	case UnitPlayer:
		return s.promoteNextRegistrant(ctx, tx, act)
	case UnitTeam:
		return s.promoteNextTeam(ctx, tx, act)
	}
	return nil, &InvariantError{ActivityID: act.ID, Detail: "unknown unit type " + string(act.UnitType)}
}

func (s *Service) promoteNextRegistrant(ctx context.Context, tx Store, act *Activity) (*Promotion, error) {
	queue, err := tx.WaitlistedRegistrants(ctx, act.ID)
	if err != nil {
		return nil, err
	}

	for _, candidate := range queue {
		// Re-check validity right before the write. A candidate that lost
		// its waitlist status to a concurrent legitimate action is passed
		// over, not an error.
		if candidate.Status != StatusWaitlist || !RegistrantCanFire(candidate.Status, EventPromote) {
			continue
		}

		if err := act.PromoteSwap(); err != nil {
			return nil, err
		}
		pos := candidate.WaitlistPosition
		candidate.Status = StatusConfirmed
		candidate.WaitlistPosition = 0
		touch(candidate, s.now())
		if err := tx.PutRegistrant(ctx, candidate); err != nil {
			return nil, err
		}
		if err := tx.ShiftRegistrantWaitlist(ctx, act.ID, pos); err != nil {
			return nil, err
		}
		if err := s.emit(ctx, tx, act, Notification{
			Recipient: candidate.Identity,
			Type:      NotePromoted,
			Payload:   map[string]string{"activity": act.Name},
		}); err != nil {
			return nil, err
		}
		return &Promotion{Filled: true, Registrant: candidate}, nil
	}

	// No eligible candidate: the slot opens publicly.
	if err := act.Release(SlotConfirmed); err != nil {
		return nil, err
	}
	return &Promotion{}, nil
}

func (s *Service) promoteNextTeam(ctx context.Context, tx Store, act *Activity) (*Promotion, error) {
	queue, err := tx.WaitlistedTeams(ctx, act.ID)
	if err != nil {
		return nil, err
	}

	for _, candidate := range queue {
		if candidate.Status != TeamWaitlist || !TeamCanFire(candidate.Status, TeamEventPromote) {
			continue
		}

		if err := act.PromoteSwap(); err != nil {
			return nil, err
		}
		pos := candidate.WaitlistPosition
		candidate.Status = TeamConfirmed
		candidate.WaitlistPosition = 0
		if err := tx.PutTeam(ctx, candidate); err != nil {
			return nil, err
		}
		if err := tx.ShiftTeamWaitlist(ctx, act.ID, pos); err != nil {
			return nil, err
		}

		// Both members move up together and both hear about it.
		now := s.now()
		for _, member := range candidate.Members() {
			rec, err := tx.ActiveRegistrant(ctx, act.ID, member)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				return nil, &InvariantError{ActivityID: act.ID, Detail: "waitlisted team member " + string(member) + " has no active registration"}
			}
			rec.Status = StatusConfirmed
			touch(rec, now)
			if err := tx.PutRegistrant(ctx, rec); err != nil {
				return nil, err
			}
			if err := s.emit(ctx, tx, act, Notification{
				Recipient: member,
				Type:      NotePromoted,
				TeamID:    &candidate.ID,
				Payload:   map[string]string{"activity": act.Name},
			}); err != nil {
				return nil, err
			}
		}
		return &Promotion{Filled: true, Team: candidate}, nil
	}

	if err := act.Release(SlotConfirmed); err != nil {
		return nil, err
	}
	return &Promotion{}, nil
}
