package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtside/roster-engine/roster"
)

func TestParse_ValidDefinition(t *testing.T) {
	f := NewActivityFactory()

	act, err := f.Parse(`{
		"id": "friday-doubles",
		"name": "Friday Doubles",
		"unit_type": "team",
		"capacity": 8,
		"starts_at": "2026-09-04T18:00:00Z"
	}`)

	require.NoError(t, err)
	assert.Equal(t, roster.ActivityID("friday-doubles"), act.ID)
	assert.Equal(t, roster.UnitTeam, act.UnitType)
	assert.Equal(t, 8, act.Capacity)
	assert.Equal(t, 2026, act.StartsAt.Year())
}

func TestFromJSON_UnitTypeDefaultsToPlayer(t *testing.T) {
	f := NewActivityFactory()

	act, err := f.FromJSON(ActivityJSON{Name: "Open Play", Capacity: 4})

	require.NoError(t, err)
	assert.Equal(t, roster.UnitPlayer, act.UnitType)
}

func TestFromJSON_Validation(t *testing.T) {
	f := NewActivityFactory()
	cases := []struct {
		name string
		aj   ActivityJSON
	}{
		{"missing name", ActivityJSON{Capacity: 4}},
		{"zero capacity", ActivityJSON{Name: "Open Play"}},
		{"negative capacity", ActivityJSON{Name: "Open Play", Capacity: -1}},
		{"unknown unit type", ActivityJSON{Name: "Open Play", Capacity: 4, UnitType: "trio"}},
		{"bad starts_at", ActivityJSON{Name: "Open Play", Capacity: 4, StartsAt: "next tuesday"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.FromJSON(tc.aj)
			assert.Error(t, err)
		})
	}
}

func TestParseCatalog_ReportsFailingEntry(t *testing.T) {
	f := NewActivityFactory()

	acts, err := f.ParseCatalog(`[
		{"name": "Open Play", "capacity": 4},
		{"name": "Doubles", "unit_type": "team", "capacity": 2}
	]`)
	require.NoError(t, err)
	assert.Len(t, acts, 2)

	_, err = f.ParseCatalog(`[
		{"name": "Open Play", "capacity": 4},
		{"name": "", "capacity": 4}
	]`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog entry 1")
}
