// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/sdenike/fauxdash/internal/auth"
	"github.com/sdenike/fauxdash/internal/authz"
	"github.com/sdenike/fauxdash/internal/config"
	"github.com/sdenike/fauxdash/internal/database"
)

// testDBSemaphore serializes DuckDB usage across tests in this package.
var testDBSemaphore = make(chan struct{}, 1)

const (
	testAdminUser     = "admin"
	testAdminPassword = "correct-horse-battery"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	db      *database.DB
	auth    *auth.Service
	config  *config.Config
}

func testConfig() *config.Config {
	return &config.Config{
		Security: config.SecurityConfig{
			AuthMode:           config.AuthModeSession,
			JWTSecret:          "test-secret-that-is-at-least-32-characters",
			TokenTTL:           time.Hour,
			SessionTimeout:     time.Hour,
			LockoutMaxAttempts: 5,
			LockoutDuration:    time.Minute,
			RateLimitDisabled:  true,
		},
		Favicon: config.FaviconConfig{
			MaxBytes: 512 << 10,
		},
	}
}

// newTestServer builds the full router over an in-memory database.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() { <-testDBSemaphore })

	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", MaxMemory: "1GB"})
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := testConfig()
	sessions := auth.NewMemorySessionStore()
	svc, err := auth.NewService(&cfg.Security, db, sessions)
	if err != nil {
		t.Fatalf("auth.NewService() error = %v", err)
	}

	mwCfg := auth.DefaultSessionMiddlewareConfig()
	mwCfg.CookieSecure = false
	mwCfg.SessionTTL = cfg.Security.SessionTimeout
	sessionMW := auth.NewSessionMiddleware(sessions, svc, mwCfg)

	enforcer, err := authz.NewEnforcer("")
	if err != nil {
		t.Fatalf("authz.NewEnforcer() error = %v", err)
	}

	h := NewHandler(Dependencies{
		DB:       db,
		Config:   cfg,
		Auth:     svc,
		Sessions: sessionMW,
		Version:  "test",
	})
	router := NewRouter(h, sessionMW, authz.NewMiddleware(enforcer), NewChiMiddleware(ChiMiddlewareConfigFromConfig(cfg)), "")

	return &testServer{t: t, handler: router.Setup(), db: db, auth: svc, config: cfg}
}

// do sends a request with an optional JSON body and session cookie.
func (s *testServer) do(method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			s.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// setupAdmin runs first-time setup and returns the session cookie.
func (s *testServer) setupAdmin() *http.Cookie {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/auth/setup", map[string]string{
		"username": testAdminUser,
		"password": testAdminPassword,
	}, nil)
	if rec.Code != http.StatusCreated {
		s.t.Fatalf("setup status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return sessionCookie(s.t, rec)
}

// login signs in and returns the session cookie.
func (s *testServer) login(username, password string) *http.Cookie {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	if rec.Code != http.StatusOK {
		s.t.Fatalf("login status = %d, body = %s", rec.Code, rec.Body.String())
	}
	return sessionCookie(s.t, rec)
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in response")
	return nil
}

// decodeResponse unmarshals the envelope and, when data is non-nil, its
// data field.
func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
		Meta    *APIMeta        `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v; body = %s", err, rec.Body.String())
	}
	if data != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, data); err != nil {
			t.Fatalf("decode data: %v; body = %s", err, rec.Body.String())
		}
	}
	return APIResponse{Success: raw.Success, Error: raw.Error, Meta: raw.Meta}
}

func boolPtr(b bool) *bool { return &b }
