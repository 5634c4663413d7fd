package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/roster-engine/identity"
	"github.com/courtside/roster-engine/inbox"
	"github.com/courtside/roster-engine/roster"
	"github.com/courtside/roster-engine/roster/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := store.NewTxMemory()
	svc := roster.New(st)
	provider := identity.NewStaticProvider([]identity.RawProfile{
		{ID: "alice", Nickname: "Ace"},
	})
	h := NewHandler(svc, inbox.New(st), provider, zerolog.Nop())
	server := httptest.NewServer(NewRouter(h, []string{"*"}))
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createTestActivity(t *testing.T, server *httptest.Server, id, unitType string, capacity int) {
	t.Helper()
	resp := do(t, http.MethodPost, server.URL+"/api/activities", map[string]any{
		"id": id, "name": id, "unit_type": unitType, "capacity": capacity,
		"starts_at": "2026-09-01T18:00:00Z",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/healthz")

	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateActivity_Validation(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, http.MethodPost, server.URL+"/api/activities", map[string]any{
		"name": "Open Play", "capacity": 0,
	})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegisterFlow(t *testing.T) {
	// GIVEN a capacity-1 activity
	server := newTestServer(t)
	createTestActivity(t, server, "open-play", "player", 1)

	// WHEN two identities register
	resp := do(t, http.MethodPost, server.URL+"/api/activities/open-play/registrations",
		RegisterRequest{Identity: "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	alice := decode[RegistrationDTO](t, resp)
	assert.Equal(t, "confirmed", alice.Status)

	resp = do(t, http.MethodPost, server.URL+"/api/activities/open-play/registrations",
		RegisterRequest{Identity: "bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bob := decode[RegistrationDTO](t, resp)
	assert.Equal(t, "waitlist", bob.Status)
	assert.Equal(t, 1, bob.WaitlistPosition)

	// THEN the snapshot and waitlist views agree
	resp = do(t, http.MethodGet, server.URL+"/api/activities/open-play", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[roster.Snapshot](t, resp)
	assert.Equal(t, 1, snap.ConfirmedCount)
	assert.Equal(t, 1, snap.WaitlistCount)

	resp = do(t, http.MethodGet, server.URL+"/api/activities/open-play/waitlist", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decode[[]roster.WaitlistEntry](t, resp)
	require.Len(t, entries, 1)
	assert.Equal(t, roster.IdentityID("bob"), entries[0].Identity)

	// AND withdrawing the confirmed identity promotes the waitlisted one,
	// who can see it in their inbox
	resp = do(t, http.MethodDelete, server.URL+"/api/activities/open-play/registrations/alice", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, server.URL+"/api/identities/bob/notifications", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	notes := decode[[]NotificationDTO](t, resp)
	require.Len(t, notes, 1)
	assert.Equal(t, string(roster.NotePromoted), notes[0].Type)
}

func TestRegister_ErrorStatuses(t *testing.T) {
	server := newTestServer(t)
	createTestActivity(t, server, "open-play", "player", 4)

	// Missing identity -> 400.
	resp := do(t, http.MethodPost, server.URL+"/api/activities/open-play/registrations",
		RegisterRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown activity -> 404, with a body that matches the status.
	resp = do(t, http.MethodPost, server.URL+"/api/activities/ghost/registrations",
		RegisterRequest{Identity: "alice"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	notFound := decode[ResultDTO](t, resp)
	assert.Equal(t, string(roster.ResultActivityNotFound), notFound.Result)

	// Duplicate registration -> 409 with the stable result code.
	resp = do(t, http.MethodPost, server.URL+"/api/activities/open-play/registrations",
		RegisterRequest{Identity: "alice"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = do(t, http.MethodPost, server.URL+"/api/activities/open-play/registrations",
		RegisterRequest{Identity: "alice"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	result := decode[ResultDTO](t, resp)
	assert.Equal(t, string(roster.ResultAlreadyRegistered), result.Result)

	// Withdrawing a never-registered identity -> 404.
	resp = do(t, http.MethodDelete, server.URL+"/api/activities/open-play/registrations/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTeamFlowOverHTTP(t *testing.T) {
	// GIVEN a team activity
	server := newTestServer(t)
	createTestActivity(t, server, "doubles", "team", 2)

	// WHEN alice invites bob
	resp := do(t, http.MethodPost, server.URL+"/api/activities/doubles/invites",
		InviteRequest{Inviter: "alice", Invitee: "bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	team := decode[TeamDTO](t, resp)
	assert.Equal(t, "pending", team.Status)

	// AND bob sees the invite with the inviter's display name resolved
	resp = do(t, http.MethodGet, server.URL+"/api/identities/bob/notifications", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	notes := decode[[]NotificationDTO](t, resp)
	require.Len(t, notes, 1)
	assert.Equal(t, string(roster.NoteTeamInvite), notes[0].Type)
	assert.Equal(t, "Ace", notes[0].ActorName)

	// AND bob accepts
	resp = do(t, http.MethodPost, server.URL+"/api/teams/"+team.ID+"/respond",
		RespondRequest{Invitee: "bob", Accept: true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	confirmed := decode[TeamDTO](t, resp)
	assert.Equal(t, "confirmed", confirmed.Status)
	assert.Equal(t, "bob", confirmed.Player2)

	// THEN answering again reports the invite gone
	resp = do(t, http.MethodPost, server.URL+"/api/teams/"+team.ID+"/respond",
		RespondRequest{Invitee: "bob", Accept: true})
	assert.Equal(t, http.StatusGone, resp.StatusCode)

	// AND leaving dissolves the team
	resp = do(t, http.MethodPost, server.URL+"/api/teams/"+team.ID+"/leave",
		LeaveRequest{Identity: "alice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[ResultDTO](t, resp)
	assert.Equal(t, string(roster.ResultSuccess), result.Result)
}

func TestInvite_SelfInvite400(t *testing.T) {
	server := newTestServer(t)
	createTestActivity(t, server, "doubles", "team", 2)

	resp := do(t, http.MethodPost, server.URL+"/api/activities/doubles/invites",
		InviteRequest{Inviter: "alice", Invitee: "alice"})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	result := decode[ResultDTO](t, resp)
	assert.Equal(t, string(roster.ResultSelfInvite), result.Result)
}

func TestInboxReadEndpoints(t *testing.T) {
	// GIVEN bob has one notification
	server := newTestServer(t)
	createTestActivity(t, server, "doubles", "team", 2)
	resp := do(t, http.MethodPost, server.URL+"/api/activities/doubles/invites",
		InviteRequest{Inviter: "alice", Invitee: "bob"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, http.MethodGet, server.URL+"/api/identities/bob/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	count := decode[UnreadCountDTO](t, resp)
	assert.Equal(t, 1, count.Count)

	// WHEN the whole inbox is marked read
	resp = do(t, http.MethodPost, server.URL+"/api/identities/bob/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, server.URL+"/api/identities/bob/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	count = decode[UnreadCountDTO](t, resp)
	assert.Equal(t, 0, count.Count)
}

func TestScenarioLoad(t *testing.T) {
	server := newTestServer(t)

	resp := do(t, http.MethodPost, server.URL+"/api/scenarios/load", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[ScenarioResultDTO](t, resp)
	assert.Equal(t, 2, result.Activities)
	assert.Equal(t, 6, result.Registrations)
	assert.Equal(t, 1, result.Teams)

	// The demo open-play session is full with a two-deep waitlist.
	resp = do(t, http.MethodGet, server.URL+"/api/activities/demo-open-play", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decode[roster.Snapshot](t, resp)
	assert.Equal(t, 4, snap.ConfirmedCount)
	assert.Equal(t, 2, snap.WaitlistCount)
}
