// Package daemon implements the tick-driven run-loop and signal-handling
// lifecycle shared by both the server and client roles (spec.md §4.1),
// carried over from the original ReliqueApp trait as a Go interface.
package daemon

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Stopping is the return value of LoopFunc and ReceivedSignal: whether the
// run loop should stop after this call.
type Stopping bool

const (
	StopNo  Stopping = false
	StopYes Stopping = true
)

// TickPeriod is the run loop's period. It must stay equal to
// schedule.TickPeriod, since the schedule evaluator's edge-detection
// look-back is defined in terms of this same constant (spec.md §4.5).
const TickPeriod = 10 * time.Second

// App is the behavior a role-specific daemon (server or client) must
// implement to be driven by Run.
type App interface {
	// LoopFunc runs once per tick. It must not block on anything that
	// cannot be bounded by ctx.
	LoopFunc(ctx context.Context) (Stopping, error)
	// ReceivedSignal is called once per pending signal, in delivery order,
	// between ticks.
	ReceivedSignal(sig os.Signal) Stopping
	// Shutdown runs exactly once, after the loop has stopped and before
	// the HTTP listener is asked to drain.
	Shutdown()
}

// SignalsOfInterest is implemented by an App that wants a signal set other
// than the default (INT, TERM). The server adds HUP to trigger an
// out-of-band config reload.
type SignalsOfInterest interface {
	SignalsOfInterest() []os.Signal
}

// Run drives app's tick loop and signal mailbox, and serves srv
// concurrently, until a stop condition is reached. It implements the three
// cooperating activities of spec.md §4.1: ticker loop, non-blocking signal
// poll between ticks, and an HTTP server sharing the App's state through
// whatever lock the App itself uses internally (Run does not take any lock
// of its own — it only sequences calls into app).
//
// On stop: the loop exits first, then app.Shutdown() runs, then the HTTP
// listener is asked to drain with a bounded timeout.
func Run(ctx context.Context, app App, srv *http.Server, log *zap.Logger) error {
	sigCh := make(chan os.Signal, 16)
	signal.Notify(sigCh, signalsOfInterest(app)...)
	defer signal.Stop(sigCh)

	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("http listener starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			httpErrCh <- fmt.Errorf("daemon: http listener: %w", err)
			return
		}
		httpErrCh <- nil
	}()

	ticker := time.NewTicker(TickPeriod)
	defer ticker.Stop()

	var loopErr error

loop:
	for {
		select {
		case <-ctx.Done():
			log.Info("context cancelled, stopping run loop")
			break loop

		case sig := <-sigCh:
			log.Info("received signal", zap.String("signal", sig.String()))
			if app.ReceivedSignal(sig) == StopYes {
				break loop
			}

		case <-ticker.C:
		drainSignals:
			for {
				select {
				case sig := <-sigCh:
					log.Info("received signal", zap.String("signal", sig.String()))
					if app.ReceivedSignal(sig) == StopYes {
						break loop
					}
				default:
					break drainSignals
				}
			}

			stop, err := app.LoopFunc(ctx)
			if err != nil {
				log.Error("tick failed", zap.Error(err))
				loopErr = err
			}
			if stop == StopYes {
				break loop
			}
		}
	}

	app.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http listener did not drain cleanly", zap.Error(err))
	}

	select {
	case err := <-httpErrCh:
		if err != nil {
			return err
		}
	case <-time.After(time.Second):
	}

	return loopErr
}

func signalsOfInterest(app App) []os.Signal {
	if s, ok := app.(SignalsOfInterest); ok {
		return s.SignalsOfInterest()
	}
	return []os.Signal{os.Interrupt, syscall.SIGTERM}
}
