package identity

import (
	"context"
	"testing"
)

func TestNormalize_NamePreferenceChain(t *testing.T) {
	cases := []struct {
		name string
		raw  RawProfile
		want string
	}{
		{"nickname wins", RawProfile{ID: "u1", Nickname: "Ace", FullName: "Alice Smith"}, "Ace"},
		{"full name next", RawProfile{ID: "u1", FullName: "Alice Smith", FirstName: "Alice"}, "Alice Smith"},
		{"first+last next", RawProfile{ID: "u1", FirstName: "Alice", LastName: "Smith"}, "Alice Smith"},
		{"first name alone", RawProfile{ID: "u1", FirstName: "Alice"}, "Alice"},
		{"email local part", RawProfile{ID: "u1", Email: "alice@example.com"}, "alice"},
		{"falls back to ID", RawProfile{ID: "u1"}, "u1"},
		{"whitespace nickname ignored", RawProfile{ID: "u1", Nickname: "   ", Email: "alice@example.com"}, "alice"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.raw.Normalize()
			if got.DisplayName != tc.want {
				t.Errorf("DisplayName = %q, want %q", got.DisplayName, tc.want)
			}
		})
	}
}

func TestNormalize_PhotoFallback(t *testing.T) {
	p := RawProfile{ID: "u1", AvatarURL: "https://cdn/avatar.png"}.Normalize()
	if p.PhotoURL != "https://cdn/avatar.png" {
		t.Errorf("PhotoURL = %q, want avatar fallback", p.PhotoURL)
	}

	p = RawProfile{ID: "u1", PhotoURL: "https://cdn/photo.png", AvatarURL: "https://cdn/avatar.png"}.Normalize()
	if p.PhotoURL != "https://cdn/photo.png" {
		t.Errorf("PhotoURL = %q, photo_url should win over avatar_url", p.PhotoURL)
	}
}

func TestStaticProvider_UnknownIDResolves(t *testing.T) {
	p := NewStaticProvider([]RawProfile{{ID: "alice", Nickname: "Ace"}})

	known, err := p.Lookup(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if known.DisplayName != "Ace" {
		t.Errorf("DisplayName = %q, want Ace", known.DisplayName)
	}

	// Unknown IDs resolve to a bare profile rather than an error; the inbox
	// must render even when the provider has never seen the counterpart.
	unknown, err := p.Lookup(context.Background(), "stranger")
	if err != nil {
		t.Fatal(err)
	}
	if unknown.DisplayName != "stranger" {
		t.Errorf("DisplayName = %q, want the raw ID", unknown.DisplayName)
	}
}
