package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/courtside/roster-engine/roster"
)

func TestUpdateActivity_VersionCheck(t *testing.T) {
	// GIVEN a stored activity at version 1
	m := NewMemory()
	ctx := context.Background()
	act := &roster.Activity{ID: "a1", UnitType: roster.UnitPlayer, Capacity: 2}
	if err := m.PutActivity(ctx, act); err != nil {
		t.Fatal(err)
	}

	// WHEN a reader updates it
	read, err := m.GetActivity(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	read.ConfirmedCount = 1
	if err := m.UpdateActivity(ctx, read); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if read.Version != 2 {
		t.Fatalf("version should bump to 2, got %d", read.Version)
	}

	// THEN a write based on the stale read loses
	stale := &roster.Activity{ID: "a1", Version: 1, ConfirmedCount: 1}
	err = m.UpdateActivity(ctx, stale)
	if !errors.Is(err, roster.ErrConcurrentModification) {
		t.Fatalf("stale write should conflict, got %v", err)
	}
}

func TestWaitlistedRegistrants_FIFOByTimeThenID(t *testing.T) {
	// GIVEN waitlisted records with one timestamp collision
	m := NewMemory()
	ctx := context.Background()
	t0 := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	put := func(id, who string, at time.Time) {
		err := m.PutRegistrant(ctx, &roster.Registrant{
			ID: roster.RegistrantID(id), Identity: roster.IdentityID(who),
			ActivityID: "a1", Status: roster.StatusWaitlist, RegisteredAt: at,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	put("03-later", "carol", t0.Add(time.Minute))
	put("02-tie", "bob", t0)
	put("01-tie", "alice", t0)

	// WHEN the queue is read
	queue, err := m.WaitlistedRegistrants(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}

	// THEN order is (RegisteredAt, ID) ascending
	want := []roster.IdentityID{"alice", "bob", "carol"}
	if len(queue) != len(want) {
		t.Fatalf("queue length %d, want %d", len(queue), len(want))
	}
	for i, who := range want {
		if queue[i].Identity != who {
			t.Errorf("queue[%d] = %s, want %s", i, queue[i].Identity, who)
		}
	}
}

func TestShiftRegistrantWaitlist_ClosesGap(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for i, id := range []string{"r1", "r2", "r3"} {
		err := m.PutRegistrant(ctx, &roster.Registrant{
			ID: roster.RegistrantID(id), Identity: roster.IdentityID(id),
			ActivityID: "a1", Status: roster.StatusWaitlist, WaitlistPosition: i + 1,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	// WHEN position 1 vacates
	if err := m.ShiftRegistrantWaitlist(ctx, "a1", 1); err != nil {
		t.Fatal(err)
	}

	// THEN everyone behind moves up one
	r2, _ := m.GetRegistrant(ctx, "r2")
	r3, _ := m.GetRegistrant(ctx, "r3")
	if r2.WaitlistPosition != 1 || r3.WaitlistPosition != 2 {
		t.Fatalf("positions = (%d, %d), want (1, 2)", r2.WaitlistPosition, r3.WaitlistPosition)
	}
}

func TestAppendNotification_DedupKeyRejectsReplay(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	n := roster.Notification{
		ID: "n1", Recipient: "alice", Type: roster.NotePromoted,
		ActivityID: "a1", DedupKey: "waitlist_promoted:alice:alice:v3",
	}
	if err := m.AppendNotification(ctx, n); err != nil {
		t.Fatal(err)
	}

	// WHEN the same logical transition is appended again
	n.ID = "n2"
	err := m.AppendNotification(ctx, n)

	// THEN it is rejected and the log holds a single entry
	if !errors.Is(err, roster.ErrDuplicateNotification) {
		t.Fatalf("expected ErrDuplicateNotification, got %v", err)
	}
	notes, _ := m.NotificationsByRecipient(ctx, "alice")
	if len(notes) != 1 {
		t.Fatalf("log holds %d entries, want 1", len(notes))
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	// GIVEN committed state
	tm := NewTxMemory()
	ctx := context.Background()
	if err := tm.PutActivity(ctx, &roster.Activity{ID: "a1", UnitType: roster.UnitPlayer, Capacity: 2}); err != nil {
		t.Fatal(err)
	}

	// WHEN a transaction mutates everything and then fails
	boom := errors.New("boom")
	err := tm.WithTx(ctx, func(tx roster.Store) error {
		act, err := tx.GetActivity(ctx, "a1")
		if err != nil {
			return err
		}
		act.ConfirmedCount = 1
		if err := tx.UpdateActivity(ctx, act); err != nil {
			return err
		}
		if err := tx.PutRegistrant(ctx, &roster.Registrant{ID: "r1", Identity: "alice", ActivityID: "a1", Status: roster.StatusConfirmed}); err != nil {
			return err
		}
		if err := tx.AppendNotification(ctx, roster.Notification{ID: "n1", Recipient: "alice", DedupKey: "k1"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the closure error back, got %v", err)
	}

	// THEN none of the mutations are visible, including the dedup key
	act, err := tm.GetActivity(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if act.ConfirmedCount != 0 || act.Version != 1 {
		t.Fatalf("activity = (count %d, version %d), want (0, 1)", act.ConfirmedCount, act.Version)
	}
	rec, _ := tm.GetRegistrant(ctx, "r1")
	if rec != nil {
		t.Fatal("registrant write should have rolled back")
	}
	if err := tm.AppendNotification(ctx, roster.Notification{ID: "n1", Recipient: "alice", DedupKey: "k1"}); err != nil {
		t.Fatalf("dedup key should have rolled back with the log: %v", err)
	}
}

func TestWithTx_CommitsOnNil(t *testing.T) {
	tm := NewTxMemory()
	ctx := context.Background()

	err := tm.WithTx(ctx, func(tx roster.Store) error {
		return tx.PutActivity(ctx, &roster.Activity{ID: "a1", UnitType: roster.UnitPlayer, Capacity: 2})
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tm.GetActivity(ctx, "a1"); err != nil {
		t.Fatalf("committed activity should be readable: %v", err)
	}
}

func TestStoredValuesDoNotAliasCallerState(t *testing.T) {
	// GIVEN a stored registrant
	m := NewMemory()
	ctx := context.Background()
	tid := roster.TeamID("t1")
	if err := m.PutRegistrant(ctx, &roster.Registrant{ID: "r1", Identity: "alice", ActivityID: "a1", Status: roster.StatusConfirmed, TeamID: &tid}); err != nil {
		t.Fatal(err)
	}

	// WHEN a read value is mutated without a write-back
	read, _ := m.GetRegistrant(ctx, "r1")
	read.Status = roster.StatusCancelled
	*read.TeamID = "t2"

	// THEN the stored record is untouched
	again, _ := m.GetRegistrant(ctx, "r1")
	if again.Status != roster.StatusConfirmed || *again.TeamID != "t1" {
		t.Fatalf("stored record mutated through a read: %+v", again)
	}
}
