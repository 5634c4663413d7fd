package roster

import (
	"errors"
	"testing"
)

func testActivity(capacity int) *Activity {
	return &Activity{
		ID:       "act-1",
		Name:     "Tuesday Open Play",
		UnitType: UnitPlayer,
		Capacity: capacity,
		Version:  1,
	}
}

func TestTryReserve_UnderCapacity_Confirms(t *testing.T) {
	a := testActivity(2)

	slot, pos := a.TryReserve()

	if slot != SlotConfirmed {
		t.Fatalf("expected confirmed slot, got %s", slot)
	}
	if pos != 0 {
		t.Fatalf("confirmed reservation should carry no queue position, got %d", pos)
	}
	if a.ConfirmedCount != 1 || a.WaitlistCount != 0 {
		t.Fatalf("counters = (%d, %d), want (1, 0)", a.ConfirmedCount, a.WaitlistCount)
	}
}

func TestTryReserve_AtCapacity_Waitlists(t *testing.T) {
	a := testActivity(1)
	a.TryReserve()

	slot, pos := a.TryReserve()

	if slot != SlotWaitlist {
		t.Fatalf("expected waitlist slot, got %s", slot)
	}
	if pos != 1 {
		t.Fatalf("first waitlist entry should be position 1, got %d", pos)
	}

	_, pos = a.TryReserve()
	if pos != 2 {
		t.Fatalf("second waitlist entry should be position 2, got %d", pos)
	}
	if a.ConfirmedCount != 1 || a.WaitlistCount != 2 {
		t.Fatalf("counters = (%d, %d), want (1, 2)", a.ConfirmedCount, a.WaitlistCount)
	}
}

func TestRelease_ReturnsHeldUnit(t *testing.T) {
	a := testActivity(1)
	a.TryReserve()
	a.TryReserve()

	if err := a.Release(SlotWaitlist); err != nil {
		t.Fatalf("release waitlist: %v", err)
	}
	if err := a.Release(SlotConfirmed); err != nil {
		t.Fatalf("release confirmed: %v", err)
	}
	if a.ConfirmedCount != 0 || a.WaitlistCount != 0 {
		t.Fatalf("counters = (%d, %d), want (0, 0)", a.ConfirmedCount, a.WaitlistCount)
	}
}

func TestRelease_Underflow_IsInvariantViolation(t *testing.T) {
	a := testActivity(1)

	err := a.Release(SlotConfirmed)

	if err == nil {
		t.Fatal("expected underflow error")
	}
	if !IsInvariantViolation(err) {
		t.Fatalf("underflow should classify as invariant violation, got %v", err)
	}
	if !errors.Is(err, ErrCounterUnderflow) {
		t.Fatalf("underflow should unwrap to ErrCounterUnderflow, got %v", err)
	}
	if a.ConfirmedCount != 0 {
		t.Fatalf("counter must not be clamped negative or mutated, got %d", a.ConfirmedCount)
	}
}

func TestPromoteSwap_KeepsConfirmedCount(t *testing.T) {
	a := testActivity(1)
	a.TryReserve()
	a.TryReserve()

	if err := a.PromoteSwap(); err != nil {
		t.Fatalf("promote swap: %v", err)
	}
	if a.ConfirmedCount != 1 || a.WaitlistCount != 0 {
		t.Fatalf("counters = (%d, %d), want (1, 0)", a.ConfirmedCount, a.WaitlistCount)
	}
}

func TestPromoteSwap_EmptyWaitlist_IsInvariantViolation(t *testing.T) {
	a := testActivity(1)
	a.TryReserve()

	if err := a.PromoteSwap(); !IsInvariantViolation(err) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}
