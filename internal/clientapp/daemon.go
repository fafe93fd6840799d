package clientapp

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"relique/internal/config"
	"relique/internal/daemon"
	"relique/internal/metrics"
	"relique/internal/rsync"
	"relique/internal/store"
)

// Daemon is the client-role implementation of daemon.App.
type Daemon struct {
	local      config.ClientDaemonConfig
	state      *daemon.State[clientState]
	httpClient *http.Client
	engine     rsync.Engine
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	log        *zap.Logger
}

// New constructs a client Daemon. local is this process's own client.toml
// settings (own listener, server coordinates); the backup spec (modules,
// schedules) arrives later over POST /api/v1/config.
func New(local config.ClientDaemonConfig, engine rsync.Engine, m *metrics.Metrics, reg *prometheus.Registry, log *zap.Logger) *Daemon {
	return &Daemon{
		local:      local,
		state:      daemon.NewState(newClientState()),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		engine:     engine,
		metrics:    m,
		registry:   reg,
		log:        log.Named("clientapp"),
	}
}

// SignalsOfInterest implements daemon.SignalsOfInterest.
func (d *Daemon) SignalsOfInterest() []os.Signal {
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}

// ReceivedSignal implements daemon.App.
func (d *Daemon) ReceivedSignal(sig os.Signal) daemon.Stopping {
	d.log.Info("received signal, will stop at next tick boundary", zap.String("signal", sig.String()))
	return daemon.StopYes
}

// Shutdown implements daemon.App. In-flight job workers are not cancelled;
// they run to completion or error naturally, per spec.md §5 ("no mid-job
// cancellation").
func (d *Daemon) Shutdown() {
	d.log.Info("client daemon shutting down")
}

// LoopFunc implements daemon.App, the client's per-tick responsibilities
// from spec.md §4.3.
func (d *Daemon) LoopFunc(ctx context.Context) (daemon.Stopping, error) {
	start := time.Now()
	defer func() {
		if d.metrics != nil {
			d.metrics.TickDuration.Observe(time.Since(start).Seconds())
		}
	}()

	spec := daemon.Read(d.state, func(s clientState) *config.Client { return s.Spec })
	if spec == nil {
		d.log.Info("waiting for configuration from relique server")
		return daemon.StopNo, nil
	}

	now := time.Now()
	activeSchedules := make(map[string]bool)
	for _, sched := range spec.Schedules {
		if sched.ToEvaluator().IsActive(now, d.log) {
			activeSchedules[sched.Name] = true
		}
	}

	if len(activeSchedules) == 0 {
		evicted := daemon.Write(d.state, func(s *clientState) int {
			n := 0
			for name, h := range s.Jobs {
				if h.Status() == store.JobStatusDone {
					delete(s.Jobs, name)
					n++
				}
			}
			return n
		})
		if evicted > 0 {
			d.log.Info("evicted finished jobs, no active schedule", zap.Int("count", evicted))
		}
		return daemon.StopNo, nil
	}

	for _, module := range spec.Modules {
		if !anyScheduleActive(module.Schedules, activeSchedules) {
			continue
		}

		exists := daemon.Read(d.state, func(s clientState) bool {
			_, ok := s.Jobs[module.Name]
			return ok
		})
		if exists {
			continue
		}

		handle := newJobHandle(newJobUUID(), module.Name)
		daemon.Write(d.state, func(s *clientState) struct{} {
			s.Jobs[module.Name] = handle
			return struct{}{}
		})

		clientSnapshot := *spec
		moduleSnapshot := module
		go d.runJob(context.Background(), clientSnapshot, moduleSnapshot, handle)
	}

	return daemon.StopNo, nil
}

func anyScheduleActive(moduleSchedules []string, active map[string]bool) bool {
	for _, name := range moduleSchedules {
		if active[name] {
			return true
		}
	}
	return false
}

func clientBaseURL(c *config.Client) string {
	return fmt.Sprintf("https://%s:%d", c.ServerAddress, c.ServerPort)
}
