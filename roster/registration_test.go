package roster

import (
	"errors"
	"testing"
)

func TestRegistrantTransitions(t *testing.T) {
	cases := []struct {
		from  RegistrantStatus
		event RegistrationEvent
		legal bool
	}{
		{StatusNone, EventRegister, true},
		{StatusCancelled, EventRegister, true},
		{StatusConfirmed, EventRegister, false},
		{StatusConfirmed, EventWithdraw, true},
		{StatusConfirmed, EventPromote, false},
		{StatusWaitlist, EventPromote, true},
		{StatusWaitlist, EventWithdraw, true},
		{StatusLooking, EventPair, true},
		{StatusLooking, EventPromote, false},
		{StatusCancelled, EventWithdraw, false},
		{StatusConfirmed, EventUnpair, true},
		{StatusLooking, EventUnpair, false},
	}

	for _, tc := range cases {
		if got := RegistrantCanFire(tc.from, tc.event); got != tc.legal {
			t.Errorf("CanFire(%s, %s) = %v, want %v", tc.from, tc.event, got, tc.legal)
		}
	}
}

func TestRegistrantGuard_ReportsTransition(t *testing.T) {
	err := registrantGuard(StatusCancelled, EventWithdraw)

	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if te.From != string(StatusCancelled) || te.Event != string(EventWithdraw) {
		t.Fatalf("error should name the rejected transition, got %+v", te)
	}
}

func TestTeamTransitions(t *testing.T) {
	cases := []struct {
		from  TeamStatus
		event TeamEvent
		legal bool
	}{
		{TeamPending, TeamEventAccept, true},
		{TeamPending, TeamEventDecline, true},
		{TeamPending, TeamEventPromote, false},
		{TeamConfirmed, TeamEventAccept, false},
		{TeamConfirmed, TeamEventLeave, true},
		{TeamWaitlist, TeamEventPromote, true},
		{TeamWaitlist, TeamEventDecline, false},
	}

	for _, tc := range cases {
		if got := TeamCanFire(tc.from, tc.event); got != tc.legal {
			t.Errorf("TeamCanFire(%s, %s) = %v, want %v", tc.from, tc.event, got, tc.legal)
		}
	}
}
