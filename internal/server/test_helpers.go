package server

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitalvas/prometheus-pve-sd/internal/config"
	"github.com/vitalvas/prometheus-pve-sd/internal/inventory"
	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
)

// testLogger discards output so tests stay quiet
func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// stubAuthenticator fails with errs in order, then succeeds
type stubAuthenticator struct {
	mu    sync.Mutex
	errs  []error
	calls int
}

func (a *stubAuthenticator) Authenticate(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.calls++
	if len(a.errs) == 0 {
		return nil
	}

	err := a.errs[0]
	a.errs = a.errs[1:]
	return err
}

type stubResult struct {
	hosts *inventory.HostList
	err   error
}

// stubPropagator returns results in order and repeats the last one
type stubPropagator struct {
	mu      sync.Mutex
	results []stubResult
	calls   int
	onCall  func(call int)
}

func (p *stubPropagator) Propagate(_ context.Context) (*inventory.HostList, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	result := p.results[min(call, len(p.results))-1]
	onCall := p.onCall
	p.mu.Unlock()

	if onCall != nil {
		onCall(call)
	}

	return result.hosts, result.err
}

func (p *stubPropagator) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// testConfig returns a single-shot configuration writing below dir
func testConfig(dir string) *config.Config {
	cfg := config.Defaults()
	cfg.OutputFile = filepath.Join(dir, "out", "pve.json")
	cfg.Service = false
	cfg.Metrics.Enabled = false
	cfg.PVE.Server = "pve.example.com"
	cfg.PVE.User = "prometheus@pve"
	cfg.PVE.TokenName = "sd"
	cfg.PVE.TokenValue = "12345678-1234-1234-1234-123456789012"
	return cfg
}

// createTestServer wires stubs into a server with millisecond delays
func createTestServer(cfg *config.Config, auth Authenticator, propagator Propagator) *Server {
	mode, err := cfg.FileMode()
	if err != nil {
		panic(err)
	}

	return &Server{
		cfg:            cfg,
		client:         auth,
		discovery:      propagator,
		writer:         NewOutputWriter(cfg.OutputFile, mode),
		log:            testLogger(),
		loopDelay:      time.Millisecond,
		authRetryDelay: time.Millisecond,
	}
}

// testHostList builds a list of qemu hosts named after their vmid
func testHostList(vmids ...string) *inventory.HostList {
	hosts := inventory.NewHostList()
	for _, vmid := range vmids {
		hosts.Add(inventory.NewHost(vmid, vmid+".example.com", "192.0.2."+vmid[len(vmid)-1:], "", proxmox.TypeQEMU))
	}
	return hosts
}
