package integration

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/roomrelay/internal/server"
)

// TestHealthEndpointIntegration tests the health endpoint with the actual
// server configuration.
func TestHealthEndpointIntegration(t *testing.T) {
	mux := server.SetupRoutes()

	testServer := httptest.NewServer(mux)
	defer testServer.Close()

	resp, err := http.Get(testServer.URL + "/")
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}

	if contentType := resp.Header.Get("Content-Type"); contentType != "text/plain" {
		t.Errorf("Expected content type text/plain, got %s", contentType)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	if string(body) != "Room relay server is running!" {
		t.Errorf("Unexpected body: %q", body)
	}
}
