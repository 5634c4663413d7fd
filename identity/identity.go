/*
Package identity adapts external identity-provider profiles.

PURPOSE:
  The engine only keys on opaque identity IDs. Anything that needs a human
  label (inbox rendering, rosters) goes through this adapter, which collapses
  the provider's inconsistent profile fields into one canonical name and
  photo. The fallback chains live here and nowhere else.
*/
package identity

import (
	"context"
	"strings"

	"github.com/courtside/roster-engine/roster"
)

// Profile is the canonical, display-ready view of an identity.
type Profile struct {
	ID          roster.IdentityID `json:"id"`
	DisplayName string            `json:"display_name"`
	PhotoURL    string            `json:"photo_url,omitempty"`
}

// RawProfile mirrors what identity providers actually return: overlapping,
// optionally-populated fields.
type RawProfile struct {
	ID        roster.IdentityID `json:"id"`
	Nickname  string            `json:"nickname,omitempty"`
	FullName  string            `json:"full_name,omitempty"`
	FirstName string            `json:"first_name,omitempty"`
	LastName  string            `json:"last_name,omitempty"`
	Email     string            `json:"email,omitempty"`
	PhotoURL  string            `json:"photo_url,omitempty"`
	AvatarURL string            `json:"avatar_url,omitempty"`
}

// Normalize resolves the display name and photo. Name preference:
// nickname, full name, first+last, email local part, then the raw ID.
func (r RawProfile) Normalize() Profile {
	name := strings.TrimSpace(r.Nickname)
	if name == "" {
		name = strings.TrimSpace(r.FullName)
	}
	if name == "" {
		name = strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
	}
	if name == "" && r.Email != "" {
		name = strings.SplitN(r.Email, "@", 2)[0]
	}
	if name == "" {
		name = string(r.ID)
	}

	photo := r.PhotoURL
	if photo == "" {
		photo = r.AvatarURL
	}

	return Profile{ID: r.ID, DisplayName: name, PhotoURL: photo}
}

// Provider resolves identity IDs to canonical profiles.
type Provider interface {
	Lookup(ctx context.Context, id roster.IdentityID) (Profile, error)
}

// StaticProvider serves profiles from a fixed map; unknown IDs resolve to a
// bare profile named after the ID. Used for dev/demo and tests.
type StaticProvider struct {
	profiles map[roster.IdentityID]RawProfile
}

func NewStaticProvider(raw []RawProfile) *StaticProvider {
	p := &StaticProvider{profiles: make(map[roster.IdentityID]RawProfile, len(raw))}
	for _, r := range raw {
		p.profiles[r.ID] = r
	}
	return p
}

func (p *StaticProvider) Lookup(_ context.Context, id roster.IdentityID) (Profile, error) {
	if raw, ok := p.profiles[id]; ok {
		return raw.Normalize(), nil
	}
	return RawProfile{ID: id}.Normalize(), nil
}
