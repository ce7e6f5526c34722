// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/zitadel/oidc/v3/pkg/client/rp"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/logging"
	"github.com/sdenike/fauxdash/internal/models"
)

// OIDC flow errors
var (
	// ErrOIDCDisabled is returned when single sign-on is not configured.
	ErrOIDCDisabled = errors.New("oidc login is not enabled")

	// ErrInvalidState indicates the state parameter is unknown or expired.
	ErrInvalidState = errors.New("invalid or expired state parameter")

	// ErrTokenExchangeFailed indicates the code exchange failed.
	ErrTokenExchangeFailed = errors.New("token exchange failed")
)

const oidcStateTTL = 10 * time.Minute

// oidcState is the server-side half of a pending authorization request.
type oidcState struct {
	nonce     string
	redirect  string
	expiresAt time.Time
}

// OIDCIdentity is the result of a successful callback.
type OIDCIdentity struct {
	Subject           string
	Username          string
	Email             string
	Groups            []string
	Role              string
	PostLoginRedirect string
}

// OIDCProvider runs the authorization code flow against an OpenID Connect
// issuer using the zitadel relying party client.
type OIDCProvider struct {
	rp  rp.RelyingParty
	cfg *config.OIDCConfig

	mu     sync.Mutex
	states map[string]oidcState
}

// NewOIDCProvider performs discovery against the issuer and returns a
// provider ready to start logins.
func NewOIDCProvider(ctx context.Context, cfg *config.OIDCConfig, client *http.Client) (*OIDCProvider, error) {
	if !cfg.Enabled {
		return nil, ErrOIDCDisabled
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{oidc.ScopeOpenID, oidc.ScopeProfile, oidc.ScopeEmail}
	}

	relyingParty, err := rp.NewRelyingPartyOIDC(ctx,
		cfg.IssuerURL,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.RedirectURL,
		scopes,
		rp.WithHTTPClient(client),
	)
	if err != nil {
		return nil, fmt.Errorf("create relying party: %w", err)
	}

	return &OIDCProvider{
		rp:     relyingParty,
		cfg:    cfg,
		states: make(map[string]oidcState),
	}, nil
}

// AuthorizationURL returns the issuer URL to redirect the browser to.
// redirectAfter is where the user lands after login; only local paths are
// honored.
func (p *OIDCProvider) AuthorizationURL(redirectAfter string) (string, error) {
	state, err := randomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken(32)
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	authURL, err := url.Parse(rp.AuthURL(state, p.rp))
	if err != nil {
		return "", fmt.Errorf("parse auth URL: %w", err)
	}
	query := authURL.Query()
	query.Set("nonce", nonce)
	authURL.RawQuery = query.Encode()

	p.mu.Lock()
	p.pruneLocked(time.Now())
	p.states[state] = oidcState{
		nonce:     nonce,
		redirect:  SafeRedirect(redirectAfter),
		expiresAt: time.Now().Add(oidcStateTTL),
	}
	p.mu.Unlock()

	return authURL.String(), nil
}

// consumeState removes and returns a pending state.
func (p *OIDCProvider) consumeState(state string) (oidcState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.states[state]
	delete(p.states, state)
	if !ok || time.Now().After(s.expiresAt) {
		return oidcState{}, ErrInvalidState
	}
	return s, nil
}

func (p *OIDCProvider) pruneLocked(now time.Time) {
	for k, s := range p.states {
		if now.After(s.expiresAt) {
			delete(p.states, k)
		}
	}
}

// Exchange validates state, exchanges code for tokens, checks the nonce
// and maps the ID token claims to a local identity.
func (p *OIDCProvider) Exchange(ctx context.Context, code, state string) (*OIDCIdentity, error) {
	pending, err := p.consumeState(state)
	if err != nil {
		return nil, err
	}

	tokens, err := rp.CodeExchange[*oidc.IDTokenClaims](ctx, code, p.rp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}
	if tokens.IDTokenClaims == nil {
		return nil, fmt.Errorf("%w: no id token", ErrTokenExchangeFailed)
	}
	if tokens.IDTokenClaims.Nonce != pending.nonce {
		return nil, fmt.Errorf("%w: nonce mismatch", ErrInvalidCredentials)
	}

	identity := mapIdentity(tokens.IDTokenClaims, p.cfg)
	identity.PostLoginRedirect = pending.redirect

	logging.Info().
		Str("username", identity.Username).
		Str("role", identity.Role).
		Msg("OIDC login successful")

	return identity, nil
}

// mapIdentity derives the local username, groups and role from ID token
// claims.
func mapIdentity(claims *oidc.IDTokenClaims, cfg *config.OIDCConfig) *OIDCIdentity {
	identity := &OIDCIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    models.RoleUser,
	}

	switch {
	case claims.PreferredUsername != "":
		identity.Username = claims.PreferredUsername
	case claims.Email != "":
		identity.Username = claims.Email
	default:
		identity.Username = claims.Subject
	}

	groupsClaim := cfg.GroupsClaim
	if groupsClaim == "" {
		groupsClaim = "groups"
	}
	identity.Groups = stringSlice(claims.Claims[groupsClaim])

	if cfg.AdminGroup != "" {
		for _, g := range identity.Groups {
			if g == cfg.AdminGroup {
				identity.Role = models.RoleAdmin
				break
			}
		}
	}
	return identity
}

// stringSlice accepts a claim that is either a string or a list of strings.
func stringSlice(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// SafeRedirect returns target when it is a local absolute path, "/"
// otherwise.
func SafeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
