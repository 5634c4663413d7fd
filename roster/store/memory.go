// Package store provides roster.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/courtside/roster-engine/roster"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	activities  map[roster.ActivityID]*roster.Activity
	registrants map[roster.RegistrantID]*roster.Registrant
	teams       map[roster.TeamID]*roster.Team
	inbox       []roster.Notification
	dedup       map[string]bool
}

func NewMemory() *Memory {
	return &Memory{
		activities:  make(map[roster.ActivityID]*roster.Activity),
		registrants: make(map[roster.RegistrantID]*roster.Registrant),
		teams:       make(map[roster.TeamID]*roster.Team),
		dedup:       make(map[string]bool),
	}
}

// -----------------------------------------------------------------------------
// Activities
// -----------------------------------------------------------------------------

func (m *Memory) GetActivity(_ context.Context, id roster.ActivityID) (*roster.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getActivityLocked(id)
}

func (m *Memory) getActivityLocked(id roster.ActivityID) (*roster.Activity, error) {
	a, ok := m.activities[id]
	if !ok {
		return nil, roster.ErrActivityNotFound
	}
	return cloneActivity(a), nil
}

func (m *Memory) PutActivity(_ context.Context, a *roster.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putActivityLocked(a)
}

func (m *Memory) putActivityLocked(a *roster.Activity) error {
	if a.Version == 0 {
		a.Version = 1
	}
	m.activities[a.ID] = cloneActivity(a)
	return nil
}

func (m *Memory) UpdateActivity(_ context.Context, a *roster.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateActivityLocked(a)
}

func (m *Memory) updateActivityLocked(a *roster.Activity) error {
	stored, ok := m.activities[a.ID]
	if !ok {
		return roster.ErrActivityNotFound
	}
	if stored.Version != a.Version {
		return roster.ErrConcurrentModification
	}
	a.Version++
	m.activities[a.ID] = cloneActivity(a)
	return nil
}

func (m *Memory) ListActivities(_ context.Context) ([]*roster.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listActivitiesLocked()
}

func (m *Memory) listActivitiesLocked() ([]*roster.Activity, error) {
	out := make([]*roster.Activity, 0, len(m.activities))
	for _, a := range m.activities {
		out = append(out, cloneActivity(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// Registrants
// -----------------------------------------------------------------------------

func (m *Memory) GetRegistrant(_ context.Context, id roster.RegistrantID) (*roster.Registrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRegistrantLocked(id)
}

func (m *Memory) getRegistrantLocked(id roster.RegistrantID) (*roster.Registrant, error) {
	r, ok := m.registrants[id]
	if !ok {
		return nil, nil
	}
	return cloneRegistrant(r), nil
}

func (m *Memory) ActiveRegistrant(_ context.Context, activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeRegistrantLocked(activityID, identity)
}

func (m *Memory) activeRegistrantLocked(activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	for _, r := range m.registrants {
		if r.ActivityID == activityID && r.Identity == identity && r.Active() {
			return cloneRegistrant(r), nil
		}
	}
	return nil, nil
}

func (m *Memory) CancelledRegistrant(_ context.Context, activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cancelledRegistrantLocked(activityID, identity)
}

func (m *Memory) cancelledRegistrantLocked(activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	for _, r := range m.registrants {
		if r.ActivityID == activityID && r.Identity == identity && r.Status == roster.StatusCancelled {
			return cloneRegistrant(r), nil
		}
	}
	return nil, nil
}

func (m *Memory) PutRegistrant(_ context.Context, r *roster.Registrant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putRegistrantLocked(r)
}

func (m *Memory) putRegistrantLocked(r *roster.Registrant) error {
	m.registrants[r.ID] = cloneRegistrant(r)
	return nil
}

func (m *Memory) WaitlistedRegistrants(_ context.Context, activityID roster.ActivityID) ([]*roster.Registrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.waitlistedRegistrantsLocked(activityID)
}

func (m *Memory) waitlistedRegistrantsLocked(activityID roster.ActivityID) ([]*roster.Registrant, error) {
	var out []*roster.Registrant
	for _, r := range m.registrants {
		if r.ActivityID == activityID && r.Status == roster.StatusWaitlist {
			out = append(out, cloneRegistrant(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.Before(out[j].RegisteredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) RegistrantsByIdentity(_ context.Context, identity roster.IdentityID) ([]*roster.Registrant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registrantsByIdentityLocked(identity)
}

func (m *Memory) registrantsByIdentityLocked(identity roster.IdentityID) ([]*roster.Registrant, error) {
	var out []*roster.Registrant
	for _, r := range m.registrants {
		if r.Identity == identity {
			out = append(out, cloneRegistrant(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RegisteredAt.Equal(out[j].RegisteredAt) {
			return out[i].RegisteredAt.After(out[j].RegisteredAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) ShiftRegistrantWaitlist(_ context.Context, activityID roster.ActivityID, afterPosition int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shiftRegistrantWaitlistLocked(activityID, afterPosition)
}

func (m *Memory) shiftRegistrantWaitlistLocked(activityID roster.ActivityID, afterPosition int) error {
	for _, r := range m.registrants {
		if r.ActivityID == activityID && r.Status == roster.StatusWaitlist && r.WaitlistPosition > afterPosition {
			r.WaitlistPosition--
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Teams
// -----------------------------------------------------------------------------

func (m *Memory) GetTeam(_ context.Context, id roster.TeamID) (*roster.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTeamLocked(id)
}

func (m *Memory) getTeamLocked(id roster.TeamID) (*roster.Team, error) {
	t, ok := m.teams[id]
	if !ok {
		return nil, nil
	}
	return cloneTeam(t), nil
}

func (m *Memory) PendingInvite(_ context.Context, activityID roster.ActivityID, inviter, invitee roster.IdentityID) (*roster.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingInviteLocked(activityID, inviter, invitee)
}

func (m *Memory) pendingInviteLocked(activityID roster.ActivityID, inviter, invitee roster.IdentityID) (*roster.Team, error) {
	for _, t := range m.teams {
		if t.ActivityID == activityID && t.Status == roster.TeamPending && t.Player1 == inviter && t.Invitee == invitee {
			return cloneTeam(t), nil
		}
	}
	return nil, nil
}

func (m *Memory) PendingInvitesByInviter(_ context.Context, activityID roster.ActivityID, inviter roster.IdentityID) ([]*roster.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pendingInvitesByInviterLocked(activityID, inviter)
}

func (m *Memory) pendingInvitesByInviterLocked(activityID roster.ActivityID, inviter roster.IdentityID) ([]*roster.Team, error) {
	var out []*roster.Team
	for _, t := range m.teams {
		if t.ActivityID == activityID && t.Status == roster.TeamPending && t.Player1 == inviter {
			out = append(out, cloneTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) PutTeam(_ context.Context, t *roster.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putTeamLocked(t)
}

func (m *Memory) putTeamLocked(t *roster.Team) error {
	m.teams[t.ID] = cloneTeam(t)
	return nil
}

func (m *Memory) DeleteTeam(_ context.Context, id roster.TeamID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteTeamLocked(id)
}

func (m *Memory) deleteTeamLocked(id roster.TeamID) error {
	delete(m.teams, id)
	return nil
}

func (m *Memory) WaitlistedTeams(_ context.Context, activityID roster.ActivityID) ([]*roster.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.waitlistedTeamsLocked(activityID)
}

func (m *Memory) waitlistedTeamsLocked(activityID roster.ActivityID) ([]*roster.Team, error) {
	var out []*roster.Team
	for _, t := range m.teams {
		if t.ActivityID == activityID && t.Status == roster.TeamWaitlist {
			out = append(out, cloneTeam(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].QueuedAt.Equal(out[j].QueuedAt) {
			return out[i].QueuedAt.Before(out[j].QueuedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) ShiftTeamWaitlist(_ context.Context, activityID roster.ActivityID, afterPosition int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shiftTeamWaitlistLocked(activityID, afterPosition)
}

func (m *Memory) shiftTeamWaitlistLocked(activityID roster.ActivityID, afterPosition int) error {
	for _, t := range m.teams {
		if t.ActivityID == activityID && t.Status == roster.TeamWaitlist && t.WaitlistPosition > afterPosition {
			t.WaitlistPosition--
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Notifications
// -----------------------------------------------------------------------------

func (m *Memory) AppendNotification(_ context.Context, n roster.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendNotificationLocked(n)
}

func (m *Memory) appendNotificationLocked(n roster.Notification) error {
	if n.DedupKey != "" && m.dedup[n.DedupKey] {
		return roster.ErrDuplicateNotification
	}
	m.inbox = append(m.inbox, cloneNotification(n))
	if n.DedupKey != "" {
		m.dedup[n.DedupKey] = true
	}
	return nil
}

func (m *Memory) NotificationsByRecipient(_ context.Context, recipient roster.IdentityID) ([]roster.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.notificationsByRecipientLocked(recipient)
}

func (m *Memory) notificationsByRecipientLocked(recipient roster.IdentityID) ([]roster.Notification, error) {
	var out []roster.Notification
	for i := len(m.inbox) - 1; i >= 0; i-- {
		if m.inbox[i].Recipient == recipient {
			out = append(out, cloneNotification(m.inbox[i]))
		}
	}
	return out, nil
}

func (m *Memory) UnreadNotificationCount(_ context.Context, recipient roster.IdentityID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.unreadNotificationCountLocked(recipient)
}

func (m *Memory) unreadNotificationCountLocked(recipient roster.IdentityID) (int, error) {
	count := 0
	for _, n := range m.inbox {
		if n.Recipient == recipient && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, id roster.NotificationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markNotificationReadLocked(id)
}

func (m *Memory) markNotificationReadLocked(id roster.NotificationID) error {
	for i := range m.inbox {
		if m.inbox[i].ID == id {
			m.inbox[i].Read = true
			return nil
		}
	}
	return nil
}

func (m *Memory) MarkAllNotificationsRead(_ context.Context, recipient roster.IdentityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markAllNotificationsReadLocked(recipient)
}

func (m *Memory) markAllNotificationsReadLocked(recipient roster.IdentityID) error {
	for i := range m.inbox {
		if m.inbox[i].Recipient == recipient {
			m.inbox[i].Read = true
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Clones - stored state never aliases caller state
// -----------------------------------------------------------------------------

func cloneActivity(a *roster.Activity) *roster.Activity {
	cp := *a
	return &cp
}

func cloneRegistrant(r *roster.Registrant) *roster.Registrant {
	cp := *r
	if r.TeamID != nil {
		tid := *r.TeamID
		cp.TeamID = &tid
	}
	return &cp
}

func cloneTeam(t *roster.Team) *roster.Team {
	cp := *t
	return &cp
}

func cloneNotification(n roster.Notification) roster.Notification {
	cp := n
	if n.TeamID != nil {
		tid := *n.TeamID
		cp.TeamID = &tid
	}
	if n.Payload != nil {
		cp.Payload = make(map[string]string, len(n.Payload))
		for k, v := range n.Payload {
			cp.Payload[k] = v
		}
	}
	return cp
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction. For the memory store this is
// simulated with a snapshot + rollback on error; the store lock is held for
// the duration, which also gives serializable isolation.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(roster.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}

	if err := fn(view); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	activities  map[roster.ActivityID]*roster.Activity
	registrants map[roster.RegistrantID]*roster.Registrant
	teams       map[roster.TeamID]*roster.Team
	inbox       []roster.Notification
	dedup       map[string]bool
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		activities:  make(map[roster.ActivityID]*roster.Activity, len(tm.activities)),
		registrants: make(map[roster.RegistrantID]*roster.Registrant, len(tm.registrants)),
		teams:       make(map[roster.TeamID]*roster.Team, len(tm.teams)),
		inbox:       make([]roster.Notification, len(tm.inbox)),
		dedup:       make(map[string]bool, len(tm.dedup)),
	}
	for k, v := range tm.activities {
		s.activities[k] = cloneActivity(v)
	}
	for k, v := range tm.registrants {
		s.registrants[k] = cloneRegistrant(v)
	}
	for k, v := range tm.teams {
		s.teams[k] = cloneTeam(v)
	}
	for i, n := range tm.inbox {
		s.inbox[i] = cloneNotification(n)
	}
	for k, v := range tm.dedup {
		s.dedup[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.activities = s.activities
	tm.registrants = s.registrants
	tm.teams = s.teams
	tm.inbox = s.inbox
	tm.dedup = s.dedup
}

// txMemoryView routes Store calls to the locked helpers; the lock is already
// held by WithTx.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) GetActivity(_ context.Context, id roster.ActivityID) (*roster.Activity, error) {
	return tv.parent.getActivityLocked(id)
}

func (tv *txMemoryView) PutActivity(_ context.Context, a *roster.Activity) error {
	return tv.parent.putActivityLocked(a)
}

func (tv *txMemoryView) UpdateActivity(_ context.Context, a *roster.Activity) error {
	return tv.parent.updateActivityLocked(a)
}

func (tv *txMemoryView) ListActivities(_ context.Context) ([]*roster.Activity, error) {
	return tv.parent.listActivitiesLocked()
}

func (tv *txMemoryView) GetRegistrant(_ context.Context, id roster.RegistrantID) (*roster.Registrant, error) {
	return tv.parent.getRegistrantLocked(id)
}

func (tv *txMemoryView) ActiveRegistrant(_ context.Context, activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	return tv.parent.activeRegistrantLocked(activityID, identity)
}

func (tv *txMemoryView) CancelledRegistrant(_ context.Context, activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	return tv.parent.cancelledRegistrantLocked(activityID, identity)
}

func (tv *txMemoryView) PutRegistrant(_ context.Context, r *roster.Registrant) error {
	return tv.parent.putRegistrantLocked(r)
}

func (tv *txMemoryView) WaitlistedRegistrants(_ context.Context, activityID roster.ActivityID) ([]*roster.Registrant, error) {
	return tv.parent.waitlistedRegistrantsLocked(activityID)
}

func (tv *txMemoryView) RegistrantsByIdentity(_ context.Context, identity roster.IdentityID) ([]*roster.Registrant, error) {
	return tv.parent.registrantsByIdentityLocked(identity)
}

func (tv *txMemoryView) ShiftRegistrantWaitlist(_ context.Context, activityID roster.ActivityID, afterPosition int) error {
	return tv.parent.shiftRegistrantWaitlistLocked(activityID, afterPosition)
}

func (tv *txMemoryView) GetTeam(_ context.Context, id roster.TeamID) (*roster.Team, error) {
	return tv.parent.getTeamLocked(id)
}

func (tv *txMemoryView) PendingInvite(_ context.Context, activityID roster.ActivityID, inviter, invitee roster.IdentityID) (*roster.Team, error) {
	return tv.parent.pendingInviteLocked(activityID, inviter, invitee)
}

func (tv *txMemoryView) PendingInvitesByInviter(_ context.Context, activityID roster.ActivityID, inviter roster.IdentityID) ([]*roster.Team, error) {
	return tv.parent.pendingInvitesByInviterLocked(activityID, inviter)
}

func (tv *txMemoryView) PutTeam(_ context.Context, t *roster.Team) error {
	return tv.parent.putTeamLocked(t)
}

func (tv *txMemoryView) DeleteTeam(_ context.Context, id roster.TeamID) error {
	return tv.parent.deleteTeamLocked(id)
}

func (tv *txMemoryView) WaitlistedTeams(_ context.Context, activityID roster.ActivityID) ([]*roster.Team, error) {
	return tv.parent.waitlistedTeamsLocked(activityID)
}

func (tv *txMemoryView) ShiftTeamWaitlist(_ context.Context, activityID roster.ActivityID, afterPosition int) error {
	return tv.parent.shiftTeamWaitlistLocked(activityID, afterPosition)
}

func (tv *txMemoryView) AppendNotification(_ context.Context, n roster.Notification) error {
	return tv.parent.appendNotificationLocked(n)
}

func (tv *txMemoryView) NotificationsByRecipient(_ context.Context, recipient roster.IdentityID) ([]roster.Notification, error) {
	return tv.parent.notificationsByRecipientLocked(recipient)
}

func (tv *txMemoryView) UnreadNotificationCount(_ context.Context, recipient roster.IdentityID) (int, error) {
	return tv.parent.unreadNotificationCountLocked(recipient)
}

func (tv *txMemoryView) MarkNotificationRead(_ context.Context, id roster.NotificationID) error {
	return tv.parent.markNotificationReadLocked(id)
}

func (tv *txMemoryView) MarkAllNotificationsRead(_ context.Context, recipient roster.IdentityID) error {
	return tv.parent.markAllNotificationsReadLocked(recipient)
}
