// Package integration contains security-focused tests covering origin
// validation and message size limits.
package integration

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/roomrelay/internal/server"
	"github.com/example/roomrelay/test/testhelpers"
)

func TestOriginValidation(t *testing.T) {
	server.StartHub()

	mux := server.SetupRoutes()
	testServer := httptest.NewServer(mux)
	defer testServer.Close()

	wsURL := "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws"

	t.Run("Missing Origin header", func(t *testing.T) {
		configureServerForTest(t, testServer.URL, nil)

		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{})
		if err == nil {
			_ = conn.Close()
			_ = resp.Body.Close()
			t.Fatal("Expected connection to fail with missing origin")
		}
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("Expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
			}
		}
	})

	t.Run("Disallowed origin", func(t *testing.T) {
		configureServerForTest(t, testServer.URL, func(cfg *server.Config) {
			cfg.AllowedOrigins = []string{testServer.URL}
		})

		header := http.Header{}
		header.Set("Origin", "http://evil.example.com")
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		if err == nil {
			_ = conn.Close()
			_ = resp.Body.Close()
			t.Fatal("Expected connection to fail with disallowed origin")
		}
		if resp != nil {
			defer func() { _ = resp.Body.Close() }()
			if resp.StatusCode != http.StatusForbidden {
				t.Errorf("Expected status %d, got %d", http.StatusForbidden, resp.StatusCode)
			}
		}
	})

	t.Run("Wildcard allows any origin", func(t *testing.T) {
		configureServerForTest(t, testServer.URL, func(cfg *server.Config) {
			cfg.AllowedOrigins = []string{"*"}
		})

		conn, err := testhelpers.ConnectWebSocket(wsURL, "http://anywhere.example.com")
		if err != nil {
			t.Fatalf("Expected wildcard to allow the connection: %v", err)
		}
		_ = conn.Close()
	})

	t.Run("Origin comparison is case-insensitive", func(t *testing.T) {
		configureServerForTest(t, testServer.URL, func(cfg *server.Config) {
			cfg.AllowedOrigins = []string{testServer.URL}
		})

		conn, err := testhelpers.ConnectWebSocket(wsURL, strings.ToUpper(testServer.URL))
		if err != nil {
			t.Fatalf("Expected case-insensitive origin match: %v", err)
		}
		_ = conn.Close()
	})
}

// TestOversizedFrameClosesConnection verifies the read limit: frames larger
// than the configured maximum terminate the offending connection without
// affecting the server.
func TestOversizedFrameClosesConnection(t *testing.T) {
	server.StartHub()

	mux := server.SetupRoutes()
	testServer := httptest.NewServer(mux)
	defer testServer.Close()
	configureServerForTest(t, testServer.URL, func(cfg *server.Config) {
		cfg.MaxMessageSize = 128
	})

	wsURL := "ws" + strings.TrimPrefix(testServer.URL, "http") + "/ws"

	conn, err := testhelpers.ConnectWebSocket(wsURL, testServer.URL)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer func() { _ = conn.Close() }()

	oversized := server.Frame{
		Type:    server.FrameSendMessage,
		Message: strings.Repeat("x", 1024),
	}
	if err := conn.WriteJSON(oversized); err != nil {
		t.Fatalf("Failed to send oversized frame: %v", err)
	}

	// The server should drop the connection: the next read fails.
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to be closed after an oversized frame")
	}

	// Other connections are unaffected.
	probe, err := testhelpers.ConnectWebSocket(wsURL, testServer.URL)
	if err != nil {
		t.Fatalf("Server should still accept connections: %v", err)
	}
	defer func() { _ = probe.Close() }()
	testhelpers.CreateRoom(t, probe)
}
