package proxmox

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testAPIToken = "test@pam!test=12345678-1234-1234-1234-123456789012"

// testLogger discards output so tests stay quiet
func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// createTestClient creates a test client with token authentication
func createTestClient(serverURL string) *Client {
	config := &Config{
		Endpoints: []string{serverURL},
		Auth: AuthConfig{
			Method:   "token",
			APIToken: testAPIToken,
		},
	}
	return NewClient(config, testLogger())
}

// writeJSONResponse writes a JSON response with the given status and body
func writeJSONResponse(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(body))
}

// assertHTTPRequest checks that the HTTP request matches expected method and path
func assertHTTPRequest(t *testing.T, r *http.Request, expectedMethod, expectedPath string) {
	require.Equal(t, expectedMethod, r.Method)
	require.Equal(t, expectedPath, r.URL.Path)
}

// setupSimpleGETTest creates a test server for simple GET operations
func setupSimpleGETTest(t *testing.T, expectedPath, responseBody string) (*httptest.Server, *Client) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assertHTTPRequest(t, r, "GET", expectedPath)
		writeJSONResponse(w, http.StatusOK, responseBody)
	}))

	client := createTestClient(server.URL)
	return server, client
}

// setupStatusTest creates a test server answering every request with status and body
func setupStatusTest(status int, responseBody string) (*httptest.Server, *Client) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONResponse(w, status, responseBody)
	}))

	client := createTestClient(server.URL)
	return server, client
}
