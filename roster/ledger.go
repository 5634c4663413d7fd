/*
ledger.go - Capacity counter rules

PURPOSE:
  The pair (ConfirmedCount, WaitlistCount) on an Activity is the capacity
  ledger: it decides admission and tracks slot consumption. This file holds
  the only code allowed to mutate those counters.

RULES:
  - TryReserve admits one unit while ConfirmedCount < Capacity, otherwise
    waitlists it. One reservation is one unit of the activity's unit type;
    a team reservation represents one pair, not one person.
  - Release returns the unit held in the given status.
  - Counters never go negative. An underflow is a programmer error and is
    reported as an InvariantError, never silently clamped.

CO-TRANSACTIONALITY:
  Callers mutate counters on an Activity value read inside the current
  transaction and persist it with a version-checked UpdateActivity in that
  same transaction. The reservation and the membership record it represents
  succeed or fail together.
*/
package roster

// SlotStatus is the admission outcome of a reservation.
type SlotStatus string

const (
	SlotConfirmed SlotStatus = "confirmed"
	SlotWaitlist  SlotStatus = "waitlist"
)

// TryReserve consumes one unit, admitting while capacity remains. When the
// outcome is SlotWaitlist the returned position is the new entry's 1-based
// FIFO rank.
func (a *Activity) TryReserve() (SlotStatus, int) {
	if a.ConfirmedCount < a.Capacity {
		a.ConfirmedCount++
		return SlotConfirmed, 0
	}
	a.WaitlistCount++
	return SlotWaitlist, a.WaitlistCount
}

// Release returns one unit held in the given status.
func (a *Activity) Release(prior SlotStatus) error {
	switch prior {
	case SlotConfirmed:
		if a.ConfirmedCount == 0 {
			return &InvariantError{ActivityID: a.ID, Detail: "release of confirmed unit with zero confirmed count"}
		}
		a.ConfirmedCount--
	case SlotWaitlist:
		if a.WaitlistCount == 0 {
			return &InvariantError{ActivityID: a.ID, Detail: "release of waitlist unit with zero waitlist count"}
		}
		a.WaitlistCount--
	default:
		return &InvariantError{ActivityID: a.ID, Detail: "release with unknown prior status " + string(prior)}
	}
	return nil
}

// PromoteSwap converts one waitlist unit into a confirmed one without
// changing ConfirmedCount: the vacated slot is filled in place.
func (a *Activity) PromoteSwap() error {
	if a.WaitlistCount == 0 {
		return &InvariantError{ActivityID: a.ID, Detail: "promotion swap with empty waitlist"}
	}
	a.WaitlistCount--
	return nil
}
