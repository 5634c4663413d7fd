/*
handlers.go - HTTP API handlers for the roster engine

PURPOSE:
  Exposes the roster engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Activities:
    POST   /api/activities                     Create from factory JSON
    GET    /api/activities                     List snapshots
    GET    /api/activities/{id}                Snapshot
    GET    /api/activities/{id}/waitlist       FIFO waitlist view

  Registrations:
    POST   /api/activities/{id}/registrations             Register
    DELETE /api/activities/{id}/registrations/{identity}  Withdraw

  Teams:
    POST   /api/activities/{id}/invites        Invite a teammate
    POST   /api/teams/{id}/respond             Accept/decline an invite
    POST   /api/teams/{id}/leave               Dissolve the team

  Identities:
    GET    /api/identities/{id}/registrations
    GET    /api/identities/{id}/notifications
    GET    /api/identities/{id}/notifications/unread-count
    POST   /api/identities/{id}/notifications/read-all
    POST   /api/notifications/{id}/read

  Scenarios:
    POST   /api/scenarios/load                 Load the demo scenario

ERROR HANDLING:
  Engine errors map through the result-code vocabulary:
  - 400: validation, self-invite, unit mismatch
  - 404: activity or registration not found
  - 409: already registered / already invited / already responded
  - 410: invite no longer valid
  - 503: capacity conflict after retries (client should try again)
  - 500: everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/courtside/roster-engine/factory"
	"github.com/courtside/roster-engine/identity"
	"github.com/courtside/roster-engine/inbox"
	"github.com/courtside/roster-engine/roster"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service    *roster.Service
	Inbox      *inbox.Inbox
	Identities identity.Provider
	Factory    *factory.ActivityFactory
	Log        zerolog.Logger
}

// NewHandler creates a new handler around the service.
func NewHandler(svc *roster.Service, ibx *inbox.Inbox, ids identity.Provider, log zerolog.Logger) *Handler {
	return &Handler{
		Service:    svc,
		Inbox:      ibx,
		Identities: ids,
		Factory:    factory.NewActivityFactory(),
		Log:        log,
	}
}

// =============================================================================
// ACTIVITY HANDLERS
// =============================================================================

// CreateActivity creates an activity from a JSON definition.
func (h *Handler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var def factory.ActivityJSON
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	act, err := h.Factory.FromJSON(def)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid activity definition", err)
		return
	}
	if err := h.Service.CreateActivity(r.Context(), act); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create activity", err)
		return
	}

	writeJSON(w, http.StatusCreated, act.Snapshot())
}

// ListActivities returns snapshots for all activities.
func (h *Handler) ListActivities(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.Service.ListActivities(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list activities", err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// GetActivity returns one activity snapshot.
func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id := roster.ActivityID(chi.URLParam(r, "id"))

	snap, err := h.Service.ActivitySnapshot(r.Context(), id)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetWaitlist returns the activity's queue in promotion order.
func (h *Handler) GetWaitlist(w http.ResponseWriter, r *http.Request) {
	id := roster.ActivityID(chi.URLParam(r, "id"))

	entries, err := h.Service.Waitlist(r.Context(), id)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	if entries == nil {
		entries = []roster.WaitlistEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// =============================================================================
// REGISTRATION HANDLERS
// =============================================================================

// Register admits or waitlists an identity.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	activityID := roster.ActivityID(chi.URLParam(r, "id"))

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required", nil)
		return
	}

	rec, err := h.Service.Register(r.Context(), roster.IdentityID(req.Identity), activityID)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRegistrationDTO(rec))
}

// Withdraw closes an identity's registration.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	activityID := roster.ActivityID(chi.URLParam(r, "id"))
	ident := roster.IdentityID(chi.URLParam(r, "identity"))

	if err := h.Service.Withdraw(r.Context(), ident, activityID); err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultDTO{Result: string(roster.ResultSuccess)})
}

// IdentityRegistrations returns every record an identity holds.
func (h *Handler) IdentityRegistrations(w http.ResponseWriter, r *http.Request) {
	ident := roster.IdentityID(chi.URLParam(r, "id"))

	recs, err := h.Service.RegistrationsFor(r.Context(), ident)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list registrations", err)
		return
	}

	dtos := make([]RegistrationDTO, len(recs))
	for i, rec := range recs {
		dtos[i] = toRegistrationDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TEAM HANDLERS
// =============================================================================

// Invite creates a pending team.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	activityID := roster.ActivityID(chi.URLParam(r, "id"))

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Inviter == "" || req.Invitee == "" {
		writeError(w, http.StatusBadRequest, "inviter and invitee are required", nil)
		return
	}

	team, err := h.Service.InviteTeammate(r.Context(),
		roster.IdentityID(req.Inviter), roster.IdentityID(req.Invitee), activityID)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeamDTO(team))
}

// Respond accepts or declines a pending invite.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	teamID := roster.TeamID(chi.URLParam(r, "id"))

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Invitee == "" {
		writeError(w, http.StatusBadRequest, "invitee is required", nil)
		return
	}

	team, err := h.Service.RespondToInvite(r.Context(), roster.IdentityID(req.Invitee), teamID, req.Accept)
	if err != nil {
		h.writeOpError(w, err)
		return
	}
	if team == nil {
		// Declined: the team is gone.
		writeJSON(w, http.StatusOK, ResultDTO{Result: string(roster.ResultSuccess)})
		return
	}
	writeJSON(w, http.StatusOK, toTeamDTO(team))
}

// Leave dissolves a team on behalf of one of its parties.
func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	teamID := roster.TeamID(chi.URLParam(r, "id"))

	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Identity == "" {
		writeError(w, http.StatusBadRequest, "identity is required", nil)
		return
	}

	if err := h.Service.LeaveTeam(r.Context(), roster.IdentityID(req.Identity), teamID); err != nil {
		h.writeOpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultDTO{Result: string(roster.ResultSuccess)})
}

// =============================================================================
// INBOX HANDLERS
// =============================================================================

// ListNotifications returns an identity's inbox, newest first.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	ident := roster.IdentityID(chi.URLParam(r, "id"))

	notes, err := h.Inbox.List(r.Context(), ident)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}

	dtos := make([]NotificationDTO, len(notes))
	for i, n := range notes {
		dto := NotificationDTO{
			ID:         string(n.ID),
			Type:       string(n.Type),
			ActivityID: string(n.ActivityID),
			Actor:      string(n.Actor),
			Payload:    n.Payload,
			Read:       n.Read,
			CreatedAt:  n.CreatedAt.Format(time.RFC3339),
		}
		if n.TeamID != nil {
			dto.TeamID = string(*n.TeamID)
		}
		if n.Actor != "" {
			if profile, err := h.Identities.Lookup(r.Context(), n.Actor); err == nil {
				dto.ActorName = profile.DisplayName
			}
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UnreadCount returns the identity's unread notification count.
func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	ident := roster.IdentityID(chi.URLParam(r, "id"))

	count, err := h.Inbox.UnreadCount(r.Context(), ident)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadCountDTO{Count: count})
}

// MarkNotificationRead flags one entry read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id := roster.NotificationID(chi.URLParam(r, "id"))

	if err := h.Inbox.MarkRead(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark notification read", err)
		return
	}
	writeJSON(w, http.StatusOK, ResultDTO{Result: string(roster.ResultSuccess)})
}

// MarkAllNotificationsRead flags the identity's whole inbox read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	ident := roster.IdentityID(chi.URLParam(r, "id"))

	if err := h.Inbox.MarkAllRead(r.Context(), ident); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to mark notifications read", err)
		return
	}
	writeJSON(w, http.StatusOK, ResultDTO{Result: string(roster.ResultSuccess)})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

// writeOpError maps engine errors onto HTTP via the result-code vocabulary.
func (h *Handler) writeOpError(w http.ResponseWriter, err error) {
	code := roster.CodeForError(err)

	status := http.StatusInternalServerError
	switch code {
	case roster.ResultAlreadyRegistered, roster.ResultAlreadyInvited, roster.ResultAlreadyResponded:
		status = http.StatusConflict
	case roster.ResultNotRegistered, roster.ResultActivityNotFound:
		status = http.StatusNotFound
	case roster.ResultSelfInvite, roster.ResultUnitMismatch:
		status = http.StatusBadRequest
	case roster.ResultInviteNoLongerValid:
		status = http.StatusGone
	case roster.ResultCapacityConflict:
		status = http.StatusServiceUnavailable
	default:
		if roster.IsClientError(err) {
			status = http.StatusBadRequest
		}
	}

	if status == http.StatusInternalServerError {
		h.Log.Error().Err(err).Msg("operation failed")
	}
	writeJSON(w, status, ResultDTO{Result: string(code), Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	detail := message
	if err != nil {
		detail = message + ": " + err.Error()
	}
	writeJSON(w, status, ResultDTO{Result: "error", Error: detail})
}
