package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitalvas/gokit/xcmd"
	"github.com/vitalvas/prometheus-pve-sd/internal/config"
	"github.com/vitalvas/prometheus-pve-sd/internal/consul"
	"github.com/vitalvas/prometheus-pve-sd/internal/discovery"
	"github.com/vitalvas/prometheus-pve-sd/internal/inventory"
	"github.com/vitalvas/prometheus-pve-sd/internal/proxmox"
	"golang.org/x/sync/errgroup"
)

const (
	authRetryDelay  = 60 * time.Second
	shutdownTimeout = 5 * time.Second
)

var errShutdown = errors.New("shutdown requested")

type Authenticator interface {
	Authenticate(ctx context.Context) error
}

type Propagator interface {
	Propagate(ctx context.Context) (*inventory.HostList, error)
}

type Server struct {
	cfg       *config.Config
	client    Authenticator
	discovery Propagator
	writer    *OutputWriter
	log       logrus.FieldLogger

	loopDelay      time.Duration
	authRetryDelay time.Duration

	mu      sync.RWMutex
	current *inventory.HostList
	written *inventory.HostList
	updated time.Time
}

func New(cfg *config.Config, log logrus.FieldLogger) (*Server, error) {
	pveConfig, err := proxmoxConfig(cfg)
	if err != nil {
		return nil, err
	}

	mode, err := cfg.FileMode()
	if err != nil {
		return nil, &config.ConfigError{Message: "invalid output_file_mode", Err: err}
	}

	client := proxmox.NewClient(pveConfig, log.WithField("component", "proxmox"))

	return &Server{
		cfg:            cfg,
		client:         client,
		discovery:      discovery.New(client, cfg.Policy(), log.WithField("component", "discovery")),
		writer:         NewOutputWriter(cfg.OutputFile, mode),
		log:            log,
		loopDelay:      cfg.LoopInterval(),
		authRetryDelay: authRetryDelay,
	}, nil
}

// proxmoxConfig takes endpoints and token from Consul when enabled, else
// from the pve section.
func proxmoxConfig(cfg *config.Config) (*proxmox.Config, error) {
	pveConfig, err := cfg.ProxmoxConfig()
	if err != nil {
		return nil, err
	}

	if !cfg.Consul.Enabled {
		return pveConfig, nil
	}

	consulClient, err := consul.New(cfg.Consul.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	endpoints, err := consulClient.GetPVENodesURL(cfg.Consul.Service)
	if err != nil {
		return nil, err
	}

	token, err := consulClient.GetPVEAuthToken(cfg.Consul.AuthKey)
	if err != nil {
		return nil, err
	}

	pveConfig.Endpoints = endpoints
	pveConfig.Auth = proxmox.AuthConfig{
		Method:   "token",
		APIToken: token,
	}

	return pveConfig, nil
}

// Run authenticates and then runs one pass, or the service loop until ctx
// is done or the process is interrupted.
func (s *Server) Run(ctx context.Context) error {
	if err := s.authenticate(ctx); err != nil {
		return err
	}

	s.log.Infof("Writes targets to %s", s.cfg.OutputFile)

	if !s.cfg.Service {
		return s.runPeriodic(ctx)
	}

	group, groupCtx := errgroup.WithContext(ctx)

	if s.cfg.Metrics.Enabled {
		httpServer := &http.Server{
			Addr:              s.cfg.MetricsAddress(),
			Handler:           s.newRouter(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		group.Go(func() error {
			s.log.Infof("Starting metrics http endpoint on %s", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics http endpoint: %w", err)
			}
			return nil
		})

		group.Go(func() error {
			<-groupCtx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			return httpServer.Shutdown(shutdownCtx)
		})
	}

	group.Go(func() error {
		return s.loop(groupCtx)
	})

	group.Go(func() error {
		xcmd.WaitInterrupted(groupCtx)
		s.log.Info("shutting down...")

		return errShutdown
	})

	if err := group.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}

	return nil
}

// authenticate retries every authRetryDelay in service mode.
func (s *Server) authenticate(ctx context.Context) error {
	for {
		err := s.client.Authenticate(ctx)
		if err == nil {
			return nil
		}

		if !s.cfg.Service {
			return err
		}

		s.log.Errorf("Proxmox API error: %v", err)
		s.log.Infof("Retrying authentication in %s", s.authRetryDelay)

		if !sleep(ctx, s.authRetryDelay) {
			return ctx.Err()
		}
	}
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Hosts returns a copy of the inventory of the last successful pass, nil
// before one.
func (s *Server) Hosts() (*inventory.HostList, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.current.Clone(), s.updated
}
