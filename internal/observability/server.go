package observability

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/openskies/allskyd/internal/metrics"
	"github.com/openskies/allskyd/internal/state"
)

// faultThreshold is how many consecutive faulted cycles it takes before
// the daemon reports unhealthy. A single bad cycle self-heals on the
// next tick; a run of them means the camera is gone.
const faultThreshold = 3

const (
	statusOK          = "ok"
	statusUnavailable = "unavailable"
)

// NewMux builds the operational HTTP surface: liveness, status, and
// Prometheus metrics.
func NewMux(states *state.Manager) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthHandler(states))
	mux.Handle("/status", StatusHandler(states))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// HealthHandler reports liveness at /healthz. It returns 503 once the
// capture loop has faulted faultThreshold cycles in a row.
func HealthHandler(states *state.Manager) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")

		if states.ConsecutiveFaults() >= faultThreshold {
			rw.WriteHeader(http.StatusServiceUnavailable)
			writeJSON(rw, map[string]string{"status": statusUnavailable})
			return
		}

		rw.WriteHeader(http.StatusOK)
		writeJSON(rw, map[string]string{"status": statusOK})
	})
}

// StatusHandler serves the capture loop snapshot at /status.
func StatusHandler(states *state.Manager) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(http.StatusOK)
		writeJSON(rw, states.Snapshot())
	})
}

func writeJSON(rw http.ResponseWriter, v any) {
	enc := json.NewEncoder(rw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return
	}
}

// Serve runs the operational HTTP server until ctx is cancelled, then
// shuts it down with a short grace period.
func Serve(ctx context.Context, addr string, states *state.Manager, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(states),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("operational server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
