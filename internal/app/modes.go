package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"golang.org/x/sync/errgroup"

	"targetsync/internal/connector"
	"targetsync/internal/reconciler"
	"targetsync/internal/registry"
	"targetsync/pkg/logging"
)

// shutdownTimeout bounds Disconnect and the metrics server shutdown.
const shutdownTimeout = 30 * time.Second

// runServe runs the connector until interrupted.
//
// Signal Handling:
//   - SIGINT (Ctrl+C): Triggers graceful shutdown
//   - SIGTERM: Triggers graceful shutdown (common in container environments)
//   - SIGHUP: Requests a reconciliation sweep from the run loop
//
// Under systemd the unit is notified READY once the loops are started and
// STOPPING when shutdown begins.
func runServe(ctx context.Context, services *Services) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := services.Settings.Connector.RefreshIntervalDuration()
	logging.Info("Serve", "Starting connector %s (refresh interval %s)", services.Connector.Name(), interval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return services.Connector.Run(gctx, interval)
	})
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	g.Go(func() error {
		forwardHangups(gctx, services.Connector, hup)
		return nil
	})

	if addr := services.Settings.Metrics.Address; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           serveMux(gctx, services),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			logging.Info("Serve", "Serving metrics on %s/metrics", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	notifySystemd(daemon.SdNotifyReady)

	err := g.Wait()

	notifySystemd(daemon.SdNotifyStopping)
	logging.Info("Serve", "--- Shutting down connector %s ---", services.Connector.Name())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if derr := services.Connector.Disconnect(shutdownCtx); derr != nil {
		logging.Error("Serve", derr, "Failed to disconnect cleanly")
	}
	if cerr := services.Close(); cerr != nil {
		logging.Error("Serve", cerr, "Failed to close target source")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// forwardHangups turns hangup signals into connector triggers until ctx is
// done.
func forwardHangups(ctx context.Context, conn *connector.Connector, hup <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if conn.Trigger() {
				logging.Info("Serve", "SIGHUP received, reconciliation requested")
			} else {
				logging.Debug("Serve", "SIGHUP received, reconciliation already pending")
			}
		}
	}
}

// sweepResponse is the body returned by POST /reconcile.
type sweepResponse struct {
	Processed  int    `json:"processed"`
	Created    int    `json:"created"`
	Updated    int    `json:"updated"`
	Unchanged  int    `json:"unchanged"`
	Removed    int    `json:"removed"`
	Failed     int    `json:"failed"`
	Duplicates int    `json:"duplicates"`
	Duration   string `json:"duration"`
	Error      string `json:"error,omitempty"`
}

// serveMux serves metrics, health and the explicit reconcile trigger.
// Reconcile requests run on ctx, the serve lifetime, so a client hanging up
// does not cancel a sweep other callers may be sharing.
func serveMux(ctx context.Context, services *Services) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", services.Metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("POST /reconcile", func(w http.ResponseWriter, _ *http.Request) {
		res, err := services.Connector.Refresh(ctx)
		body := sweepResponse{
			Processed:  res.Processed,
			Created:    res.Created,
			Updated:    res.Updated,
			Unchanged:  res.Unchanged,
			Removed:    res.Removed,
			Failed:     res.Failed,
			Duplicates: res.Duplicates,
			Duration:   res.Duration.Round(time.Millisecond).String(),
		}
		status := http.StatusOK
		if err != nil {
			body.Error = err.Error()
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	})
	return mux
}

func notifySystemd(state string) {
	sent, err := daemon.SdNotify(false, state)
	switch {
	case err != nil:
		logging.Warn("Serve", "Failed to notify systemd (%s): %v", state, err)
	case sent:
		logging.Debug("Serve", "Notified systemd: %s", state)
	}
}

// SweepReport is the outcome of ReconcileOnce.
type SweepReport struct {
	Result  reconciler.Result
	Refresh reconciler.RefreshResult
	Targets []*registry.RequestedTarget
}

// ReconcileOnce runs a single sweep and worker refresh, captures the
// registry, then disconnects every target again.
func (a *Application) ReconcileOnce(ctx context.Context) (SweepReport, error) {
	engine := a.services.Engine
	defer func() {
		engine.DisconnectAll(context.WithoutCancel(ctx))
		if err := a.services.Close(); err != nil {
			logging.Error("Reconcile", err, "Failed to close target source")
		}
	}()

	res, err := engine.Reconcile(ctx)
	if err != nil {
		return SweepReport{Result: res}, err
	}
	report := SweepReport{
		Result:  res,
		Refresh: engine.RefreshTargets(ctx),
		Targets: engine.Registry().Values(),
	}
	return report, nil
}
