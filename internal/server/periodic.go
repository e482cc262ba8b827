package server

import (
	"context"
	"fmt"
	"time"

	"github.com/vitalvas/prometheus-pve-sd/internal/inventory"
)

// loop runs a pass, then waits loopDelay after it finished, until ctx ends.
// A failed pass is logged and retried on the next iteration.
func (s *Server) loop(ctx context.Context) error {
	for {
		if err := s.runPeriodic(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Error(err)
		}

		s.log.Infof("Waiting %s for next discovery loop", s.loopDelay)

		if !sleep(ctx, s.loopDelay) {
			return nil
		}
	}
}

func (s *Server) runPeriodic(ctx context.Context) error {
	s.log.Debug("Propagate from PVE")

	hosts, err := s.discovery.Propagate(ctx)
	if err != nil {
		return fmt.Errorf("propagate: %w", err)
	}

	s.mu.Lock()
	s.current = hosts
	s.updated = time.Now()
	s.mu.Unlock()

	return s.publish(hosts)
}

// publish writes hosts unless the last written inventory is identical.
func (s *Server) publish(hosts *inventory.HostList) error {
	if s.written != nil && s.written.Identical(hosts) {
		s.log.Debugf("Inventory unchanged (%d hosts), skipping write", hosts.Len())
		return nil
	}

	if err := s.writer.Write(hosts); err != nil {
		return err
	}

	s.written = hosts
	s.log.Infof("Wrote %d targets to %s", hosts.Len(), s.writer.Path())

	return nil
}
