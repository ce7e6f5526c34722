// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/models"
)

func idTokenClaims(sub, preferred, email string, extra map[string]any) *oidc.IDTokenClaims {
	c := &oidc.IDTokenClaims{}
	c.Subject = sub
	c.PreferredUsername = preferred
	c.Email = email
	c.Claims = extra
	return c
}

func TestMapIdentity(t *testing.T) {
	cfg := &config.OIDCConfig{AdminGroup: "dash-admins"}

	tests := []struct {
		name     string
		claims   *oidc.IDTokenClaims
		wantUser string
		wantRole string
	}{
		{
			name:     "preferred username and admin group",
			claims:   idTokenClaims("s1", "alice", "a@example.com", map[string]any{"groups": []any{"staff", "dash-admins"}}),
			wantUser: "alice",
			wantRole: models.RoleAdmin,
		},
		{
			name:     "email fallback",
			claims:   idTokenClaims("s2", "", "bob@example.com", map[string]any{"groups": "staff"}),
			wantUser: "bob@example.com",
			wantRole: models.RoleUser,
		},
		{
			name:     "subject fallback without groups",
			claims:   idTokenClaims("s3", "", "", nil),
			wantUser: "s3",
			wantRole: models.RoleUser,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapIdentity(tt.claims, cfg)
			if got.Username != tt.wantUser || got.Role != tt.wantRole {
				t.Errorf("mapIdentity() = %+v, want %s/%s", got, tt.wantUser, tt.wantRole)
			}
		})
	}
}

func TestMapIdentity_CustomGroupsClaim(t *testing.T) {
	cfg := &config.OIDCConfig{AdminGroup: "admins", GroupsClaim: "roles"}
	got := mapIdentity(idTokenClaims("s", "carol", "", map[string]any{
		"groups": []any{"admins"},
		"roles":  []string{"viewer"},
	}), cfg)
	if got.Role != models.RoleUser || len(got.Groups) != 1 || got.Groups[0] != "viewer" {
		t.Errorf("mapIdentity() = %+v", got)
	}
}

func TestSafeRedirect(t *testing.T) {
	tests := map[string]string{
		"":                      "/",
		"/settings":             "/settings",
		"/analytics?days=7":     "/analytics?days=7",
		"//evil.example":        "/",
		"/\\evil.example":       "/",
		"https://evil.example/": "/",
		"relative":              "/",
	}
	for in, want := range tests {
		if got := SafeRedirect(in); got != want {
			t.Errorf("SafeRedirect(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOIDCProvider_StateIsSingleUse(t *testing.T) {
	p := &OIDCProvider{states: map[string]oidcState{
		"live":    {nonce: "n", redirect: "/x", expiresAt: time.Now().Add(time.Minute)},
		"expired": {nonce: "n", expiresAt: time.Now().Add(-time.Minute)},
	}}

	s, err := p.consumeState("live")
	if err != nil || s.redirect != "/x" {
		t.Fatalf("consumeState(live) = %+v, %v", s, err)
	}
	if _, err := p.consumeState("live"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("second consume error = %v, want ErrInvalidState", err)
	}
	if _, err := p.consumeState("expired"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("expired consume error = %v, want ErrInvalidState", err)
	}
	if _, err := p.consumeState("unknown"); !errors.Is(err, ErrInvalidState) {
		t.Errorf("unknown consume error = %v, want ErrInvalidState", err)
	}
}

func TestNewOIDCProvider_Disabled(t *testing.T) {
	if _, err := NewOIDCProvider(context.Background(), &config.OIDCConfig{}, nil); !errors.Is(err, ErrOIDCDisabled) {
		t.Errorf("error = %v, want ErrOIDCDisabled", err)
	}
}

func TestStringSlice(t *testing.T) {
	if got := stringSlice([]any{"a", 1, "b"}); len(got) != 2 || got[1] != "b" {
		t.Errorf("stringSlice([]any) = %v", got)
	}
	if got := stringSlice(""); got != nil {
		t.Errorf("stringSlice(\"\") = %v", got)
	}
	if got := stringSlice(42); got != nil {
		t.Errorf("stringSlice(42) = %v", got)
	}
}
