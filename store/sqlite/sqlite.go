/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements roster.Store and roster.TxStore using SQLite. In production,
  the same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  activities:    Capacity ledger per activity, with an optimistic version
  registrants:   One row per identity per activity (recycled on re-register)
  teams:         Pending/confirmed/waitlisted pairs; dissolved teams are deleted
  notifications: Append-only per-recipient log with a unique dedup key

CONSTRAINTS THAT DO REAL WORK:
  idx_registrants_one_active: one non-cancelled record per (activity, identity)
  notifications.dedup_key UNIQUE: exactly-once notification emission
  UPDATE ... WHERE version = ?: optimistic concurrency on counters

CONCURRENCY:
  Uses sync.RWMutex for thread-safety alongside WAL mode. A version-checked
  update that matches no row reports roster.ErrConcurrentModification, which
  the coordinator retries with fresh reads.

USAGE:
  store, err := sqlite.New("./data/roster.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - roster/store.go: Interface definitions
  - roster/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/courtside/roster-engine/roster"
)

// timeLayout is RFC3339 with fixed nanosecond digits: lexicographic order of
// stored values matches chronological order, so FIFO ORDER BY works on text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements roster.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: SQLite allows a single writer anyway, and ":memory:"
	// databases exist per connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		unit_type TEXT NOT NULL,
		capacity INTEGER NOT NULL,
		confirmed_count INTEGER NOT NULL DEFAULT 0,
		waitlist_count INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		starts_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_activities_starts_at
		ON activities(starts_at);

	CREATE TABLE IF NOT EXISTS registrants (
		id TEXT PRIMARY KEY,
		identity TEXT NOT NULL,
		activity_id TEXT NOT NULL,
		status TEXT NOT NULL,
		waitlist_position INTEGER NOT NULL DEFAULT 0,
		team_id TEXT,
		looking_for_partner BOOLEAN NOT NULL DEFAULT FALSE,
		registered_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one non-cancelled record per identity per activity. A race
	-- that slips past the application check hits this constraint instead of
	-- producing a double registration.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_registrants_one_active
		ON registrants(activity_id, identity)
		WHERE status != 'cancelled';

	CREATE INDEX IF NOT EXISTS idx_registrants_activity_status
		ON registrants(activity_id, status);
	CREATE INDEX IF NOT EXISTS idx_registrants_identity
		ON registrants(identity);

	CREATE TABLE IF NOT EXISTS teams (
		id TEXT PRIMARY KEY,
		activity_id TEXT NOT NULL,
		player1 TEXT NOT NULL,
		player2 TEXT NOT NULL DEFAULT '',
		invitee TEXT NOT NULL,
		status TEXT NOT NULL,
		waitlist_position INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		queued_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_teams_activity_status
		ON teams(activity_id, status);
	CREATE INDEX IF NOT EXISTS idx_teams_inviter
		ON teams(activity_id, player1) WHERE status = 'pending';

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient TEXT NOT NULL,
		type TEXT NOT NULL,
		activity_id TEXT NOT NULL,
		actor TEXT NOT NULL DEFAULT '',
		team_id TEXT,
		payload_json TEXT,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		dedup_key TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_recipient
		ON notifications(recipient, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query helper works
// inside and outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// ACTIVITIES
// =============================================================================

func (s *Store) GetActivity(ctx context.Context, id roster.ActivityID) (*roster.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getActivity(ctx, s.db, id)
}

func getActivity(ctx context.Context, db dbtx, id roster.ActivityID) (*roster.Activity, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, unit_type, capacity, confirmed_count, waitlist_count, version, starts_at, created_at
		FROM activities WHERE id = ?`, id)

	var a roster.Activity
	var startsAt, createdAt string
	err := row.Scan(&a.ID, &a.Name, &a.UnitType, &a.Capacity,
		&a.ConfirmedCount, &a.WaitlistCount, &a.Version, &startsAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, roster.ErrActivityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan activity: %w", err)
	}
	if a.StartsAt, err = parseTime(startsAt); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) PutActivity(ctx context.Context, a *roster.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putActivity(ctx, s.db, a)
}

func putActivity(ctx context.Context, db dbtx, a *roster.Activity) error {
	if a.Version == 0 {
		a.Version = 1
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO activities (id, name, unit_type, capacity, confirmed_count, waitlist_count, version, starts_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.UnitType, a.Capacity, a.ConfirmedCount, a.WaitlistCount,
		a.Version, formatTime(a.StartsAt), formatTime(a.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

func (s *Store) UpdateActivity(ctx context.Context, a *roster.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateActivity(ctx, s.db, a)
}

func updateActivity(ctx context.Context, db dbtx, a *roster.Activity) error {
	res, err := db.ExecContext(ctx, `
		UPDATE activities
		SET name = ?, capacity = ?, confirmed_count = ?, waitlist_count = ?,
		    starts_at = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		a.Name, a.Capacity, a.ConfirmedCount, a.WaitlistCount,
		formatTime(a.StartsAt), a.ID, a.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Row exists at a different version, or was never inserted. Callers
		// always read inside the transaction, so this is a lost race.
		return roster.ErrConcurrentModification
	}
	a.Version++
	return nil
}

func (s *Store) ListActivities(ctx context.Context) ([]*roster.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listActivities(ctx, s.db)
}

func listActivities(ctx context.Context, db dbtx) ([]*roster.Activity, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, unit_type, capacity, confirmed_count, waitlist_count, version, starts_at, created_at
		FROM activities ORDER BY starts_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*roster.Activity
	for rows.Next() {
		var a roster.Activity
		var startsAt, createdAt string
		if err := rows.Scan(&a.ID, &a.Name, &a.UnitType, &a.Capacity,
			&a.ConfirmedCount, &a.WaitlistCount, &a.Version, &startsAt, &createdAt); err != nil {
			return nil, err
		}
		var err error
		if a.StartsAt, err = parseTime(startsAt); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// =============================================================================
// REGISTRANTS
// =============================================================================

const registrantColumns = `id, identity, activity_id, status, waitlist_position, team_id, looking_for_partner, registered_at, updated_at`

func (s *Store) GetRegistrant(ctx context.Context, id roster.RegistrantID) (*roster.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryRegistrant(ctx, s.db, `SELECT `+registrantColumns+` FROM registrants WHERE id = ?`, id)
}

func (s *Store) ActiveRegistrant(ctx context.Context, activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeRegistrant(ctx, s.db, activityID, identity)
}

func activeRegistrant(ctx context.Context, db dbtx, activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	return queryRegistrant(ctx, db, `
		SELECT `+registrantColumns+` FROM registrants
		WHERE activity_id = ? AND identity = ? AND status != 'cancelled'`,
		activityID, identity)
}

func (s *Store) CancelledRegistrant(ctx context.Context, activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cancelledRegistrant(ctx, s.db, activityID, identity)
}

func cancelledRegistrant(ctx context.Context, db dbtx, activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	return queryRegistrant(ctx, db, `
		SELECT `+registrantColumns+` FROM registrants
		WHERE activity_id = ? AND identity = ? AND status = 'cancelled'
		ORDER BY updated_at DESC LIMIT 1`,
		activityID, identity)
}

func queryRegistrant(ctx context.Context, db dbtx, query string, args ...any) (*roster.Registrant, error) {
	row := db.QueryRowContext(ctx, query, args...)
	r, err := scanRegistrantRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistrantRow(row rowScanner) (*roster.Registrant, error) {
	var r roster.Registrant
	var teamID sql.NullString
	var registeredAt, updatedAt string
	err := row.Scan(&r.ID, &r.Identity, &r.ActivityID, &r.Status, &r.WaitlistPosition,
		&teamID, &r.LookingForPartner, &registeredAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if teamID.Valid {
		tid := roster.TeamID(teamID.String)
		r.TeamID = &tid
	}
	if r.RegisteredAt, err = parseTime(registeredAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) PutRegistrant(ctx context.Context, r *roster.Registrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putRegistrant(ctx, s.db, r)
}

func putRegistrant(ctx context.Context, db dbtx, r *roster.Registrant) error {
	var teamID sql.NullString
	if r.TeamID != nil {
		teamID = sql.NullString{String: string(*r.TeamID), Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO registrants (`+registrantColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			waitlist_position = excluded.waitlist_position,
			team_id = excluded.team_id,
			looking_for_partner = excluded.looking_for_partner,
			registered_at = excluded.registered_at,
			updated_at = excluded.updated_at`,
		r.ID, r.Identity, r.ActivityID, r.Status, r.WaitlistPosition,
		teamID, r.LookingForPartner, formatTime(r.RegisteredAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return roster.ErrAlreadyRegistered
		}
		return fmt.Errorf("failed to put registrant: %w", err)
	}
	return nil
}

func (s *Store) WaitlistedRegistrants(ctx context.Context, activityID roster.ActivityID) ([]*roster.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return waitlistedRegistrants(ctx, s.db, activityID)
}

func waitlistedRegistrants(ctx context.Context, db dbtx, activityID roster.ActivityID) ([]*roster.Registrant, error) {
	return queryRegistrants(ctx, db, `
		SELECT `+registrantColumns+` FROM registrants
		WHERE activity_id = ? AND status = 'waitlist'
		ORDER BY registered_at ASC, id ASC`,
		activityID)
}

func (s *Store) RegistrantsByIdentity(ctx context.Context, identity roster.IdentityID) ([]*roster.Registrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return registrantsByIdentity(ctx, s.db, identity)
}

func registrantsByIdentity(ctx context.Context, db dbtx, identity roster.IdentityID) ([]*roster.Registrant, error) {
	return queryRegistrants(ctx, db, `
		SELECT `+registrantColumns+` FROM registrants
		WHERE identity = ?
		ORDER BY registered_at DESC, id DESC`,
		identity)
}

func queryRegistrants(ctx context.Context, db dbtx, query string, args ...any) ([]*roster.Registrant, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*roster.Registrant
	for rows.Next() {
		r, err := scanRegistrantRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ShiftRegistrantWaitlist(ctx context.Context, activityID roster.ActivityID, afterPosition int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return shiftRegistrantWaitlist(ctx, s.db, activityID, afterPosition)
}

func shiftRegistrantWaitlist(ctx context.Context, db dbtx, activityID roster.ActivityID, afterPosition int) error {
	_, err := db.ExecContext(ctx, `
		UPDATE registrants SET waitlist_position = waitlist_position - 1
		WHERE activity_id = ? AND status = 'waitlist' AND waitlist_position > ?`,
		activityID, afterPosition)
	return err
}

// =============================================================================
// TEAMS
// =============================================================================

const teamColumns = `id, activity_id, player1, player2, invitee, status, waitlist_position, created_at, queued_at`

func (s *Store) GetTeam(ctx context.Context, id roster.TeamID) (*roster.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTeam(ctx, s.db, id)
}

func getTeam(ctx context.Context, db dbtx, id roster.TeamID) (*roster.Team, error) {
	return queryTeam(ctx, db, `SELECT `+teamColumns+` FROM teams WHERE id = ?`, id)
}

func (s *Store) PendingInvite(ctx context.Context, activityID roster.ActivityID, inviter, invitee roster.IdentityID) (*roster.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pendingInvite(ctx, s.db, activityID, inviter, invitee)
}

func pendingInvite(ctx context.Context, db dbtx, activityID roster.ActivityID, inviter, invitee roster.IdentityID) (*roster.Team, error) {
	return queryTeam(ctx, db, `
		SELECT `+teamColumns+` FROM teams
		WHERE activity_id = ? AND player1 = ? AND invitee = ? AND status = 'pending'`,
		activityID, inviter, invitee)
}

func (s *Store) PendingInvitesByInviter(ctx context.Context, activityID roster.ActivityID, inviter roster.IdentityID) ([]*roster.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pendingInvitesByInviter(ctx, s.db, activityID, inviter)
}

func pendingInvitesByInviter(ctx context.Context, db dbtx, activityID roster.ActivityID, inviter roster.IdentityID) ([]*roster.Team, error) {
	return queryTeams(ctx, db, `
		SELECT `+teamColumns+` FROM teams
		WHERE activity_id = ? AND player1 = ? AND status = 'pending'
		ORDER BY created_at ASC, id ASC`,
		activityID, inviter)
}

func queryTeam(ctx context.Context, db dbtx, query string, args ...any) (*roster.Team, error) {
	row := db.QueryRowContext(ctx, query, args...)
	t, err := scanTeamRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func scanTeamRow(row rowScanner) (*roster.Team, error) {
	var t roster.Team
	var createdAt string
	var queuedAt sql.NullString
	err := row.Scan(&t.ID, &t.ActivityID, &t.Player1, &t.Player2, &t.Invitee,
		&t.Status, &t.WaitlistPosition, &createdAt, &queuedAt)
	if err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if queuedAt.Valid {
		if t.QueuedAt, err = parseTime(queuedAt.String); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (s *Store) PutTeam(ctx context.Context, t *roster.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return putTeam(ctx, s.db, t)
}

func putTeam(ctx context.Context, db dbtx, t *roster.Team) error {
	var queuedAt sql.NullString
	if !t.QueuedAt.IsZero() {
		queuedAt = sql.NullString{String: formatTime(t.QueuedAt), Valid: true}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO teams (`+teamColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			player2 = excluded.player2,
			status = excluded.status,
			waitlist_position = excluded.waitlist_position,
			queued_at = excluded.queued_at`,
		t.ID, t.ActivityID, t.Player1, t.Player2, t.Invitee,
		t.Status, t.WaitlistPosition, formatTime(t.CreatedAt), queuedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put team: %w", err)
	}
	return nil
}

func (s *Store) DeleteTeam(ctx context.Context, id roster.TeamID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTeam(ctx, s.db, id)
}

func deleteTeam(ctx context.Context, db dbtx, id roster.TeamID) error {
	_, err := db.ExecContext(ctx, `DELETE FROM teams WHERE id = ?`, id)
	return err
}

func (s *Store) WaitlistedTeams(ctx context.Context, activityID roster.ActivityID) ([]*roster.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return waitlistedTeams(ctx, s.db, activityID)
}

func waitlistedTeams(ctx context.Context, db dbtx, activityID roster.ActivityID) ([]*roster.Team, error) {
	return queryTeams(ctx, db, `
		SELECT `+teamColumns+` FROM teams
		WHERE activity_id = ? AND status = 'waitlist'
		ORDER BY queued_at ASC, id ASC`,
		activityID)
}

func queryTeams(ctx context.Context, db dbtx, query string, args ...any) ([]*roster.Team, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*roster.Team
	for rows.Next() {
		t, err := scanTeamRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ShiftTeamWaitlist(ctx context.Context, activityID roster.ActivityID, afterPosition int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return shiftTeamWaitlist(ctx, s.db, activityID, afterPosition)
}

func shiftTeamWaitlist(ctx context.Context, db dbtx, activityID roster.ActivityID, afterPosition int) error {
	_, err := db.ExecContext(ctx, `
		UPDATE teams SET waitlist_position = waitlist_position - 1
		WHERE activity_id = ? AND status = 'waitlist' AND waitlist_position > ?`,
		activityID, afterPosition)
	return err
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

const notificationColumns = `id, recipient, type, activity_id, actor, team_id, payload_json, is_read, dedup_key, created_at`

func (s *Store) AppendNotification(ctx context.Context, n roster.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendNotification(ctx, s.db, n)
}

func appendNotification(ctx context.Context, db dbtx, n roster.Notification) error {
	var teamID sql.NullString
	if n.TeamID != nil {
		teamID = sql.NullString{String: string(*n.TeamID), Valid: true}
	}
	payloadJSON, _ := json.Marshal(n.Payload)

	_, err := db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.Recipient, n.Type, n.ActivityID, n.Actor, teamID,
		string(payloadJSON), n.Read, n.DedupKey, formatTime(n.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return roster.ErrDuplicateNotification
		}
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

func (s *Store) NotificationsByRecipient(ctx context.Context, recipient roster.IdentityID) ([]roster.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return notificationsByRecipient(ctx, s.db, recipient)
}

func notificationsByRecipient(ctx context.Context, db dbtx, recipient roster.IdentityID) ([]roster.Notification, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE recipient = ?
		ORDER BY created_at DESC, id DESC`,
		recipient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []roster.Notification
	for rows.Next() {
		var n roster.Notification
		var teamID, payloadJSON sql.NullString
		var createdAt string
		if err := rows.Scan(&n.ID, &n.Recipient, &n.Type, &n.ActivityID, &n.Actor,
			&teamID, &payloadJSON, &n.Read, &n.DedupKey, &createdAt); err != nil {
			return nil, err
		}
		if teamID.Valid {
			tid := roster.TeamID(teamID.String)
			n.TeamID = &tid
		}
		if payloadJSON.Valid && payloadJSON.String != "" && payloadJSON.String != "null" {
			json.Unmarshal([]byte(payloadJSON.String), &n.Payload)
		}
		var err error
		if n.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) UnreadNotificationCount(ctx context.Context, recipient roster.IdentityID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return unreadNotificationCount(ctx, s.db, recipient)
}

func unreadNotificationCount(ctx context.Context, db dbtx, recipient roster.IdentityID) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient = ? AND is_read = FALSE`,
		recipient).Scan(&count)
	return count, err
}

func (s *Store) MarkNotificationRead(ctx context.Context, id roster.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markNotificationRead(ctx, s.db, id)
}

func markNotificationRead(ctx context.Context, db dbtx, id roster.NotificationID) error {
	_, err := db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = ?`, id)
	return err
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, recipient roster.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markAllNotificationsRead(ctx, s.db, recipient)
}

func markAllNotificationsRead(ctx context.Context, db dbtx, recipient roster.IdentityID) error {
	_, err := db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE recipient = ?`, recipient)
	return err
}

// =============================================================================
// TRANSACTIONAL STORE (roster.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(roster.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetActivity(ctx context.Context, id roster.ActivityID) (*roster.Activity, error) {
	return getActivity(ctx, ts.tx, id)
}

func (ts *txStore) PutActivity(ctx context.Context, a *roster.Activity) error {
	return putActivity(ctx, ts.tx, a)
}

func (ts *txStore) UpdateActivity(ctx context.Context, a *roster.Activity) error {
	return updateActivity(ctx, ts.tx, a)
}

func (ts *txStore) ListActivities(ctx context.Context) ([]*roster.Activity, error) {
	return listActivities(ctx, ts.tx)
}

func (ts *txStore) GetRegistrant(ctx context.Context, id roster.RegistrantID) (*roster.Registrant, error) {
	return queryRegistrant(ctx, ts.tx, `SELECT `+registrantColumns+` FROM registrants WHERE id = ?`, id)
}

func (ts *txStore) ActiveRegistrant(ctx context.Context, activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	return activeRegistrant(ctx, ts.tx, activityID, identity)
}

func (ts *txStore) CancelledRegistrant(ctx context.Context, activityID roster.ActivityID, identity roster.IdentityID) (*roster.Registrant, error) {
	return cancelledRegistrant(ctx, ts.tx, activityID, identity)
}

func (ts *txStore) PutRegistrant(ctx context.Context, r *roster.Registrant) error {
	return putRegistrant(ctx, ts.tx, r)
}

func (ts *txStore) WaitlistedRegistrants(ctx context.Context, activityID roster.ActivityID) ([]*roster.Registrant, error) {
	return waitlistedRegistrants(ctx, ts.tx, activityID)
}

func (ts *txStore) RegistrantsByIdentity(ctx context.Context, identity roster.IdentityID) ([]*roster.Registrant, error) {
	return registrantsByIdentity(ctx, ts.tx, identity)
}

func (ts *txStore) ShiftRegistrantWaitlist(ctx context.Context, activityID roster.ActivityID, afterPosition int) error {
	return shiftRegistrantWaitlist(ctx, ts.tx, activityID, afterPosition)
}

func (ts *txStore) GetTeam(ctx context.Context, id roster.TeamID) (*roster.Team, error) {
	return getTeam(ctx, ts.tx, id)
}

func (ts *txStore) PendingInvite(ctx context.Context, activityID roster.ActivityID, inviter, invitee roster.IdentityID) (*roster.Team, error) {
	return pendingInvite(ctx, ts.tx, activityID, inviter, invitee)
}

func (ts *txStore) PendingInvitesByInviter(ctx context.Context, activityID roster.ActivityID, inviter roster.IdentityID) ([]*roster.Team, error) {
	return pendingInvitesByInviter(ctx, ts.tx, activityID, inviter)
}

func (ts *txStore) PutTeam(ctx context.Context, t *roster.Team) error {
	return putTeam(ctx, ts.tx, t)
}

func (ts *txStore) DeleteTeam(ctx context.Context, id roster.TeamID) error {
	return deleteTeam(ctx, ts.tx, id)
}

func (ts *txStore) WaitlistedTeams(ctx context.Context, activityID roster.ActivityID) ([]*roster.Team, error) {
	return waitlistedTeams(ctx, ts.tx, activityID)
}

func (ts *txStore) ShiftTeamWaitlist(ctx context.Context, activityID roster.ActivityID, afterPosition int) error {
	return shiftTeamWaitlist(ctx, ts.tx, activityID, afterPosition)
}

func (ts *txStore) AppendNotification(ctx context.Context, n roster.Notification) error {
	return appendNotification(ctx, ts.tx, n)
}

func (ts *txStore) NotificationsByRecipient(ctx context.Context, recipient roster.IdentityID) ([]roster.Notification, error) {
	return notificationsByRecipient(ctx, ts.tx, recipient)
}

func (ts *txStore) UnreadNotificationCount(ctx context.Context, recipient roster.IdentityID) (int, error) {
	return unreadNotificationCount(ctx, ts.tx, recipient)
}

func (ts *txStore) MarkNotificationRead(ctx context.Context, id roster.NotificationID) error {
	return markNotificationRead(ctx, ts.tx, id)
}

func (ts *txStore) MarkAllNotificationsRead(ctx context.Context, recipient roster.IdentityID) error {
	return markAllNotificationsRead(ctx, ts.tx, recipient)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"notifications", "teams", "registrants", "activities"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime rejects values it cannot parse: a corrupted timestamp would
// silently distort FIFO ordering if it decayed to the zero time.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupted timestamp %q: %w", s, err)
	}
	return t, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
