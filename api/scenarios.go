/*
scenarios.go - Demo scenario loader for testing and demonstrations

PURPOSE:
  Populates the store with realistic data for demos: a nearly-full player
  activity with a waitlist, and a team activity with a confirmed pair and an
  open invite. Everything goes through the same service operations a client
  would use, so counters and notifications end up exactly as production
  traffic would leave them.

USAGE VIA API:
  POST /api/scenarios/load

NOTE:
  The loader is additive; it does not reset existing data. Only use in
  development/demo environments.

SEE ALSO:
  - handlers.go: LoadScenario handler
  - factory/activity.go: Activity JSON definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/courtside/roster-engine/roster"
)

const demoCatalogJSON = `[
	{"id": "demo-open-play", "name": "Tuesday Open Play", "unit_type": "player", "capacity": 4, "starts_at": "2026-09-01T18:00:00Z"},
	{"id": "demo-doubles", "name": "Friday Doubles Ladder", "unit_type": "team", "capacity": 2, "starts_at": "2026-09-04T19:00:00Z"}
]`

// LoadScenario seeds the demo catalog and traffic.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	result, err := h.loadDemo(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) loadDemo(ctx context.Context) (*ScenarioResultDTO, error) {
	acts, err := h.Factory.ParseCatalog(demoCatalogJSON)
	if err != nil {
		return nil, err
	}
	for _, act := range acts {
		if err := h.Service.CreateActivity(ctx, act); err != nil {
			return nil, fmt.Errorf("create %s: %w", act.Name, err)
		}
	}

	result := &ScenarioResultDTO{Activities: len(acts)}

	// Fill the player activity past capacity so the waitlist has depth.
	openPlay := roster.ActivityID("demo-open-play")
	for _, who := range []string{"alice", "bob", "carol", "dave", "erin", "frank"} {
		if _, err := h.Service.Register(ctx, roster.IdentityID(who), openPlay); err != nil {
			return nil, fmt.Errorf("register %s: %w", who, err)
		}
		result.Registrations++
	}

	// One confirmed pair and one open invite on the doubles ladder.
	doubles := roster.ActivityID("demo-doubles")
	team, err := h.Service.InviteTeammate(ctx, "alice", "bob", doubles)
	if err != nil {
		return nil, fmt.Errorf("invite bob: %w", err)
	}
	if _, err := h.Service.RespondToInvite(ctx, "bob", team.ID, true); err != nil {
		return nil, fmt.Errorf("accept invite: %w", err)
	}
	result.Teams++

	if _, err := h.Service.InviteTeammate(ctx, "carol", "dave", doubles); err != nil {
		return nil, fmt.Errorf("invite dave: %w", err)
	}

	return result, nil
}
