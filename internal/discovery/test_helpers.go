package discovery

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

const testAPIToken = "test@pam!test=12345678-1234-1234-1234-123456789012"

// testLogger discards output so tests stay quiet
func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// testPVE is a fake Proxmox API answering from a path -> body table.
// Paths are relative to /api2/json/. Unknown paths answer 500 like a
// missing guest agent does.
type testPVE struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]int
	requests  []string
}

func newTestPVE() *testPVE {
	return &testPVE{
		responses: make(map[string]string),
		failures:  make(map[string]int),
	}
}

func (p *testPVE) respond(path, body string) *testPVE {
	p.responses[path] = body
	return p
}

func (p *testPVE) fail(path string, status int) *testPVE {
	p.failures[path] = status
	return p
}

func (p *testPVE) requested(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	var count int
	for _, r := range p.requests {
		if r == path {
			count++
		}
	}
	return count
}

func (p *testPVE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api2/json/")

	p.mu.Lock()
	p.requests = append(p.requests, path)
	body, ok := p.responses[path]
	status, failed := p.failures[path]
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	switch {
	case failed:
		w.WriteHeader(status)
		w.Write([]byte(`{"data": null}`))
	case ok:
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"data": null}`))
	}
}

// start serves p and returns a client pointed at it
func (p *testPVE) start() (*httptest.Server, *proxmox.Client) {
	server := httptest.NewServer(p)

	config := proxmox.NewConfig()
	config.Endpoints = []string{server.URL}
	config.Auth.APIToken = testAPIToken

	return server, proxmox.NewClient(config, testLogger())
}

// withSingleNode registers one node "pve1" with the given qemu and lxc lists
func (p *testPVE) withSingleNode(qemu, lxc string) *testPVE {
	return p.
		respond("nodes", `{"data": [{"node": "pve1", "status": "online", "type": "node"}]}`).
		respond("nodes/pve1/qemu", `{"data": `+qemu+`}`).
		respond("nodes/pve1/lxc", `{"data": `+lxc+`}`)
}
