/*
Package factory provides JSON to Go activity conversion.

PURPOSE:
  Converts JSON activity definitions into roster.Activity values. This
  enables catalog configuration without code changes - organizers can define
  activities in JSON, and the factory creates validated Go structs.

JSON SCHEMA:
  {
    "id": "friday-doubles",
    "name": "Friday Doubles",
    "unit_type": "team",
    "capacity": 8,
    "starts_at": "2026-09-04T18:00:00Z"
  }

KEY FEATURES:
  - Validates structure and field values
  - Sets sensible defaults (unit_type defaults to "player")
  - Parses single definitions and whole catalogs

USAGE:
  factory := NewActivityFactory()
  act, err := factory.Parse(jsonStr)

SEE ALSO:
  - roster/types.go: Activity type definition
  - api/scenarios.go: Demo catalog built on this factory
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/courtside/roster-engine/roster"
)

// ActivityJSON is the JSON representation of an activity definition.
type ActivityJSON struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	UnitType string `json:"unit_type,omitempty"`
	Capacity int    `json:"capacity"`
	StartsAt string `json:"starts_at,omitempty"`
}

// ActivityFactory converts JSON activity definitions to Go structs.
type ActivityFactory struct{}

// NewActivityFactory creates a new activity factory.
func NewActivityFactory() *ActivityFactory {
	return &ActivityFactory{}
}

// Parse parses a single JSON definition.
func (f *ActivityFactory) Parse(jsonStr string) (*roster.Activity, error) {
	var aj ActivityJSON
	if err := json.Unmarshal([]byte(jsonStr), &aj); err != nil {
		return nil, fmt.Errorf("failed to parse activity JSON: %w", err)
	}
	return f.FromJSON(aj)
}

// ParseCatalog parses a JSON array of definitions.
func (f *ActivityFactory) ParseCatalog(jsonStr string) ([]*roster.Activity, error) {
	var defs []ActivityJSON
	if err := json.Unmarshal([]byte(jsonStr), &defs); err != nil {
		return nil, fmt.Errorf("failed to parse activity catalog JSON: %w", err)
	}

	acts := make([]*roster.Activity, 0, len(defs))
	for i, aj := range defs {
		act, err := f.FromJSON(aj)
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		acts = append(acts, act)
	}
	return acts, nil
}

// FromJSON validates and converts a parsed definition.
func (f *ActivityFactory) FromJSON(aj ActivityJSON) (*roster.Activity, error) {
	if aj.Name == "" {
		return nil, fmt.Errorf("activity name is required")
	}
	if aj.Capacity <= 0 {
		return nil, fmt.Errorf("activity %q: capacity must be positive, got %d", aj.Name, aj.Capacity)
	}

	unit := roster.UnitType(aj.UnitType)
	if aj.UnitType == "" {
		unit = roster.UnitPlayer
	}
	if !unit.Valid() {
		return nil, fmt.Errorf("activity %q: unknown unit type %q", aj.Name, aj.UnitType)
	}

	var startsAt time.Time
	if aj.StartsAt != "" {
		t, err := time.Parse(time.RFC3339, aj.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("activity %q: invalid starts_at: %w", aj.Name, err)
		}
		startsAt = t
	}

	return &roster.Activity{
		ID:       roster.ActivityID(aj.ID),
		Name:     aj.Name,
		UnitType: unit,
		Capacity: aj.Capacity,
		StartsAt: startsAt,
	}, nil
}
