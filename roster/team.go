/*
team.go - Team state machine

PURPOSE:
  Owns paired-registration records: invite creates a pending team, accept
  confirms (or waitlists) it and consumes one team unit, decline and leave
  dissolve it. Dissolution deletes the team record and always normalizes any
  surviving member back to a free agent - survivors are never dropped.

STATES:
  (absent) -> pending                 (invite; no capacity held)
  pending  -> confirmed | waitlist    (accept; one team unit reserved)
  pending  -> deleted                 (decline / cancel; counters untouched)
  waitlist -> confirmed               (promote)
  confirmed | waitlist -> deleted     (leave / member withdrawal; held unit
                                       released, promotion runs if the unit
                                       was confirmed)

All decisions re-read team existence and status inside the transaction, so
a double-accept or an accept racing a withdrawal resolves to a staleness
result rather than double-consuming capacity.
*/
package roster

import (
	"context"
)

// TeamEvent names a team transition trigger.
type TeamEvent string

const (
	TeamEventInvite   TeamEvent = "invite"
	TeamEventAccept   TeamEvent = "accept"
	TeamEventDecline  TeamEvent = "decline"
	TeamEventLeave    TeamEvent = "leave"
	TeamEventPromote  TeamEvent = "promote"
	TeamEventDissolve TeamEvent = "dissolve"
)

// teamTable is the explicit transition table. TeamEventDissolve covers both
// decline and a member withdrawing; the distinction only changes who gets
// notified.
var teamTable = map[TeamStatus]map[TeamEvent]bool{
	TeamPending: {
		TeamEventAccept:   true,
		TeamEventDecline:  true,
		TeamEventLeave:    true, // inviter cancels their own invite
		TeamEventDissolve: true,
	},
	TeamConfirmed: {
		TeamEventLeave:    true,
		TeamEventDissolve: true,
	},
	TeamWaitlist: {
		TeamEventLeave:    true,
		TeamEventPromote:  true,
		TeamEventDissolve: true,
	},
}

// TeamCanFire reports whether the event is legal from the state.
func TeamCanFire(from TeamStatus, event TeamEvent) bool {
	return teamTable[from][event]
}

func teamGuard(from TeamStatus, event TeamEvent) error {
	if !TeamCanFire(from, event) {
		return &TransitionError{Entity: "team", From: string(from), Event: string(event)}
	}
	return nil
}

// =============================================================================
// INVITE
// =============================================================================

// invite creates a pending team. The inviter gets a free-agent record if
// they have none; the invitee is only named, not registered. No capacity
// moves until accept.
func (s *Service) invite(ctx context.Context, tx Store, inviter, invitee IdentityID, activityID ActivityID) (*Team, error) {
	if inviter == invitee {
		return nil, ErrSelfInvite
	}

	act, err := tx.GetActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if act.UnitType != UnitTeam {
		return nil, ErrUnitMismatch
	}

	dup, err := tx.PendingInvite(ctx, activityID, inviter, invitee)
	if err != nil {
		return nil, err
	}
	if dup != nil {
		return nil, ErrAlreadyInvited
	}

	// The invitee may be a free agent, but a partnered or slot-holding
	// registration conflicts.
	inviteeRec, err := tx.ActiveRegistrant(ctx, activityID, invitee)
	if err != nil {
		return nil, err
	}
	if inviteeRec != nil && !inviteeRec.FreeAgent() {
		return nil, ErrAlreadyRegistered
	}

	now := s.now()

	inviterRec, err := tx.ActiveRegistrant(ctx, activityID, inviter)
	if err != nil {
		return nil, err
	}
	switch {
	case inviterRec == nil:
		// Ensure the inviter exists as a free agent.
		inviterRec, err = s.register(ctx, tx, inviter, activityID)
		if err != nil {
			return nil, err
		}
	case !inviterRec.FreeAgent():
		return nil, ErrAlreadyRegistered
	}

	team := &Team{
		ID:         TeamID(s.newID()),
		ActivityID: activityID,
		Player1:    inviter,
		Invitee:    invitee,
		Status:     TeamPending,
		CreatedAt:  now,
	}
	if err := tx.PutTeam(ctx, team); err != nil {
		return nil, err
	}

	if err := s.emit(ctx, tx, act, Notification{
		Recipient: invitee,
		Type:      NoteTeamInvite,
		Actor:     inviter,
		TeamID:    &team.ID,
		Payload:   map[string]string{"activity": act.Name},
	}); err != nil {
		return nil, err
	}
	return team, nil
}

// =============================================================================
// RESPOND (ACCEPT / DECLINE)
// =============================================================================

// respond answers a pending invite. Accept reserves one team unit from the
// ledger re-read in this transaction; decline deletes the pending team and
// leaves the inviter a free agent. Either way the team's existence and
// status are re-checked here, immediately before the write.
func (s *Service) respond(ctx context.Context, tx Store, invitee IdentityID, teamID TeamID, accept bool) (*Team, error) {
	team, err := tx.GetTeam(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if team == nil || team.Status != TeamPending || team.Invitee != invitee {
		return nil, ErrInviteNoLongerValid
	}

	act, err := tx.GetActivity(ctx, team.ActivityID)
	if err != nil {
		return nil, err
	}

	if !accept {
		if err := teamGuard(team.Status, TeamEventDecline); err != nil {
			return nil, err
		}
		if err := tx.DeleteTeam(ctx, teamID); err != nil {
			return nil, err
		}
		return nil, s.emit(ctx, tx, act, Notification{
			Recipient: team.Player1,
			Type:      NoteInviteDeclined,
			Actor:     invitee,
			TeamID:    &team.ID,
			Payload:   map[string]string{"activity": act.Name},
		})
	}

	if err := teamGuard(team.Status, TeamEventAccept); err != nil {
		return nil, err
	}

	// The invitee may have registered or paired elsewhere since the invite.
	inviteeRec, err := tx.ActiveRegistrant(ctx, team.ActivityID, invitee)
	if err != nil {
		return nil, err
	}
	if inviteeRec != nil && !inviteeRec.FreeAgent() {
		return nil, ErrAlreadyResponded
	}

	// The inviter may have withdrawn or paired since the invite.
	inviterRec, err := tx.ActiveRegistrant(ctx, team.ActivityID, team.Player1)
	if err != nil {
		return nil, err
	}
	if inviterRec == nil || !inviterRec.FreeAgent() {
		return nil, ErrInviteNoLongerValid
	}

	now := s.now()
	if inviteeRec == nil {
		if inviteeRec, err = s.register(ctx, tx, invitee, team.ActivityID); err != nil {
			return nil, err
		}
	}

	slot, pos := act.TryReserve()
	team.Player2 = invitee
	if slot == SlotConfirmed {
		team.Status = TeamConfirmed
	} else {
		team.Status = TeamWaitlist
		team.WaitlistPosition = pos
		team.QueuedAt = now
	}

	for _, rec := range []*Registrant{inviterRec, inviteeRec} {
		if err := registrantGuard(rec.Status, EventPair); err != nil {
			return nil, err
		}
		rec.Status = memberStatus(team.Status)
		rec.TeamID = &team.ID
		rec.LookingForPartner = false
		touch(rec, now)
		if err := tx.PutRegistrant(ctx, rec); err != nil {
			return nil, err
		}
	}

	if err := tx.PutTeam(ctx, team); err != nil {
		return nil, err
	}
	if err := tx.UpdateActivity(ctx, act); err != nil {
		return nil, err
	}

	return team, s.emit(ctx, tx, act, Notification{
		Recipient: team.Player1,
		Type:      NoteInviteAccepted,
		Actor:     invitee,
		TeamID:    &team.ID,
		Payload:   map[string]string{"activity": act.Name, "status": string(team.Status)},
	})
}

// memberStatus mirrors a team's slot status onto its member registrants.
func memberStatus(ts TeamStatus) RegistrantStatus {
	if ts == TeamConfirmed {
		return StatusConfirmed
	}
	return StatusWaitlist
}

// =============================================================================
// LEAVE / DISSOLVE
// =============================================================================

// leave dissolves the team on behalf of one of its parties. Pending teams
// dissolve without touching counters. Formed teams release their unit; a
// confirmed unit goes to the promotion engine.
func (s *Service) leave(ctx context.Context, tx Store, identity IdentityID, teamID TeamID) error {
	team, err := tx.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		return ErrInviteNoLongerValid
	}
	if !team.HasMember(identity) && team.Invitee != identity {
		return ErrNotRegistered
	}
	if err := teamGuard(team.Status, TeamEventLeave); err != nil {
		return err
	}

	act, err := tx.GetActivity(ctx, team.ActivityID)
	if err != nil {
		return err
	}
	return s.dissolveTeam(ctx, tx, act, team, identity, false)
}

// dissolveTeamFor loads and dissolves the team on behalf of a withdrawing
// member. withdrawing controls whether the actor's own record is left for
// the caller to cancel.
func (s *Service) dissolveTeamFor(ctx context.Context, tx Store, act *Activity, teamID TeamID, actor IdentityID, withdrawing bool) error {
	team, err := tx.GetTeam(ctx, teamID)
	if err != nil {
		return err
	}
	if team == nil {
		// The record pointed at a team that is already gone; nothing to
		// release beyond the registrant itself.
		return nil
	}
	if err := teamGuard(team.Status, TeamEventDissolve); err != nil {
		return err
	}
	return s.dissolveTeam(ctx, tx, act, team, actor, withdrawing)
}

// dissolveTeam deletes the team, releases any held unit, normalizes the
// remaining members as free agents, notifies the counterpart, and runs
// promotion when a confirmed unit vacated. Everything happens in the
// caller's transaction.
func (s *Service) dissolveTeam(ctx context.Context, tx Store, act *Activity, team *Team, actor IdentityID, withdrawing bool) error {
	now := s.now()

	if err := tx.DeleteTeam(ctx, team.ID); err != nil {
		return err
	}

	// Normalize members. The actor is skipped when withdrawing: the caller
	// cancels that record itself.
	for _, member := range team.Members() {
		if member == actor && withdrawing {
			continue
		}
		rec, err := tx.ActiveRegistrant(ctx, act.ID, member)
		if err != nil {
			return err
		}
		if rec == nil {
			continue
		}
		if rec.Status != StatusLooking {
			if err := registrantGuard(rec.Status, EventUnpair); err != nil {
				return err
			}
		}
		rec.Status = StatusLooking
		rec.TeamID = nil
		rec.LookingForPartner = true
		rec.WaitlistPosition = 0
		touch(rec, now)
		if err := tx.PutRegistrant(ctx, rec); err != nil {
			return err
		}
	}

	// Release whatever unit the team held.
	switch team.Status {
	case TeamConfirmed:
		if _, err := s.promoteNext(ctx, tx, act); err != nil {
			return err
		}
		if err := tx.UpdateActivity(ctx, act); err != nil {
			return err
		}
	case TeamWaitlist:
		if err := act.Release(SlotWaitlist); err != nil {
			return err
		}
		if err := tx.ShiftTeamWaitlist(ctx, act.ID, team.WaitlistPosition); err != nil {
			return err
		}
		if err := tx.UpdateActivity(ctx, act); err != nil {
			return err
		}
	case TeamPending:
		// Never held a unit; counters untouched.
	}

	// Notify the counterpart. For a pending team the counterpart is the
	// invitee, who only loses the open invite.
	counterpart := team.Counterpart(actor)
	if team.Status == TeamPending {
		if actor == team.Player1 {
			counterpart = team.Invitee
		} else {
			counterpart = team.Player1
		}
	}
	if counterpart == "" || counterpart == actor {
		return nil
	}
	return s.emit(ctx, tx, act, Notification{
		Recipient: counterpart,
		Type:      NoteTeamDissolved,
		Actor:     actor,
		TeamID:    &team.ID,
		Payload:   map[string]string{"activity": act.Name},
	})
}

// cancelPendingInvites dissolves every pending invite the identity created,
// notifying each invitee. Runs when a free agent withdraws.
func (s *Service) cancelPendingInvites(ctx context.Context, tx Store, act *Activity, inviter IdentityID) error {
	pending, err := tx.PendingInvitesByInviter(ctx, act.ID, inviter)
	if err != nil {
		return err
	}
	for _, team := range pending {
		if err := s.dissolveTeam(ctx, tx, act, team, inviter, true); err != nil {
			return err
		}
	}
	return nil
}
