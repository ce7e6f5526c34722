// FauxDash - Self-hosted Start Page and Dashboard
// Copyright 2026 The FauxDash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sdenike/fauxdash

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// newHubServer upgrades every request and attaches the connection to hub.
func newHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		client := NewClient(hub, conn, 42)
		hub.Register <- client
		client.Start()
	}))
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestNewClient(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil, 5)
	b := NewClient(hub, nil, 6)
	if b.ID() <= a.ID() {
		t.Errorf("client IDs not increasing: %d then %d", a.ID(), b.ID())
	}
	if a.UserID() != 5 || cap(a.send) != sendBufferSize {
		t.Errorf("client = %+v", a)
	}
}

func TestClient_ReceivesBroadcast(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, newHubServer(t, hub))
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	hub.BroadcastSettings("appearance")

	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg struct {
		Type string       `json:"type"`
		Data SettingsData `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != MessageTypeSettings || msg.Data.Scope != "appearance" {
		t.Errorf("message = %+v", msg)
	}
}

func TestClient_PingPong(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, newHubServer(t, hub))

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if msg.Type != MessageTypePong {
		t.Errorf("type = %s, want pong", msg.Type)
	}
}

func TestClient_CloseUnregisters(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, newHubServer(t, hub))
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
}

func TestClient_OversizedMessageDisconnects(t *testing.T) {
	hub := startHub(t)
	conn := dial(t, newHubServer(t, hub))
	waitFor(t, func() bool { return hub.GetClientCount() == 1 })

	big := strings.Repeat("x", maxMessageSize+1)
	_ = conn.WriteJSON(Message{Type: "junk", Data: big})

	waitFor(t, func() bool { return hub.GetClientCount() == 0 })
}
