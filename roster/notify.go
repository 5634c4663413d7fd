/*
notify.go - Transactional notification emission

PURPOSE:
  Persists one notification per affected counterpart per transition, in the
  same transaction as the state change. A notification can never outlive a
  rolled-back transition, and a transition can never commit without its
  notifications.

EXACTLY-ONCE:
  The dedup key is deterministic for a logical transition: type, recipient,
  subject record, and the activity version the transaction read. Replaying a
  committed operation rebuilds the same key and the store rejects it; the
  emitter treats that rejection as success.
*/
package roster

import (
	"context"
	"errors"
	"fmt"
)

// emit fills in bookkeeping fields and appends n on tx. act is the activity
// as read inside the current transaction; its version anchors the dedup key.
func (s *Service) emit(ctx context.Context, tx Store, act *Activity, n Notification) error {
	n.ID = NotificationID(s.newNoteID())
	n.ActivityID = act.ID
	n.CreatedAt = s.now()

	ref := string(n.Recipient)
	if n.TeamID != nil {
		ref = string(*n.TeamID)
	}
	n.DedupKey = dedupKey(n.Type, n.Recipient, act.ID, ref, act.Version)

	err := tx.AppendNotification(ctx, n)
	if errors.Is(err, ErrDuplicateNotification) {
		// Already recorded for this exact transition; replay-safe no-op.
		return nil
	}
	return err
}

// dedupKey scopes a logical transition: the activity ID keeps identical
// transitions on different activities distinct even when their version
// counters happen to collide.
func dedupKey(typ NotificationType, recipient IdentityID, activityID ActivityID, ref string, version int64) string {
	return fmt.Sprintf("%s:%s:%s:%s:v%d", typ, recipient, activityID, ref, version)
}
