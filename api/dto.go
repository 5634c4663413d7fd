/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - factory/activity.go: ActivityJSON type
*/
package api

import (
	"time"

	"github.com/courtside/roster-engine/roster"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// RegisterRequest registers an identity on an activity.
type RegisterRequest struct {
	Identity string `json:"identity"`
}

// InviteRequest invites a teammate on a team activity.
type InviteRequest struct {
	Inviter string `json:"inviter"`
	Invitee string `json:"invitee"`
}

// RespondRequest answers a pending invite.
type RespondRequest struct {
	Invitee string `json:"invitee"`
	Accept  bool   `json:"accept"`
}

// LeaveRequest dissolves the caller's team.
type LeaveRequest struct {
	Identity string `json:"identity"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ResultDTO is the uniform envelope for operations without a richer body.
type ResultDTO struct {
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
}

// RegistrationDTO represents a registrant record in API responses.
type RegistrationDTO struct {
	ID                string `json:"id"`
	Identity          string `json:"identity"`
	ActivityID        string `json:"activity_id"`
	Status            string `json:"status"`
	WaitlistPosition  int    `json:"waitlist_position,omitempty"`
	TeamID            string `json:"team_id,omitempty"`
	LookingForPartner bool   `json:"looking_for_partner,omitempty"`
	RegisteredAt      string `json:"registered_at"`
}

func toRegistrationDTO(r *roster.Registrant) RegistrationDTO {
	dto := RegistrationDTO{
		ID:                string(r.ID),
		Identity:          string(r.Identity),
		ActivityID:        string(r.ActivityID),
		Status:            string(r.Status),
		WaitlistPosition:  r.WaitlistPosition,
		LookingForPartner: r.LookingForPartner,
		RegisteredAt:      r.RegisteredAt.Format(time.RFC3339),
	}
	if r.TeamID != nil {
		dto.TeamID = string(*r.TeamID)
	}
	return dto
}

// TeamDTO represents a team in API responses.
type TeamDTO struct {
	ID               string `json:"id"`
	ActivityID       string `json:"activity_id"`
	Player1          string `json:"player1"`
	Player2          string `json:"player2,omitempty"`
	Invitee          string `json:"invitee"`
	Status           string `json:"status"`
	WaitlistPosition int    `json:"waitlist_position,omitempty"`
	CreatedAt        string `json:"created_at"`
}

func toTeamDTO(t *roster.Team) TeamDTO {
	return TeamDTO{
		ID:               string(t.ID),
		ActivityID:       string(t.ActivityID),
		Player1:          string(t.Player1),
		Player2:          string(t.Player2),
		Invitee:          string(t.Invitee),
		Status:           string(t.Status),
		WaitlistPosition: t.WaitlistPosition,
		CreatedAt:        t.CreatedAt.Format(time.RFC3339),
	}
}

// NotificationDTO represents an inbox entry. ActorName is resolved through
// the identity adapter so clients never see raw IDs where a name exists.
type NotificationDTO struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	ActivityID string            `json:"activity_id"`
	Actor      string            `json:"actor,omitempty"`
	ActorName  string            `json:"actor_name,omitempty"`
	TeamID     string            `json:"team_id,omitempty"`
	Payload    map[string]string `json:"payload,omitempty"`
	Read       bool              `json:"read"`
	CreatedAt  string            `json:"created_at"`
}

// UnreadCountDTO wraps an unread counter.
type UnreadCountDTO struct {
	Count int `json:"count"`
}

// ScenarioResultDTO summarizes what a demo load created.
type ScenarioResultDTO struct {
	Activities    int `json:"activities"`
	Registrations int `json:"registrations"`
	Teams         int `json:"teams"`
}
