// Package api exposes the booking service over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/julianstephens/barberbook/internal/booking"
	"github.com/julianstephens/barberbook/internal/cli"
	"github.com/julianstephens/barberbook/internal/config"
	"github.com/julianstephens/barberbook/internal/logger"
	"github.com/julianstephens/barberbook/internal/metrics"
	"github.com/julianstephens/barberbook/internal/storage"
)

// Server serves the JSON API, a health check and the metrics endpoint.
type Server struct {
	cfg      config.Config
	svc      *booking.Service
	store    storage.Provider
	metrics  *metrics.Collector
	dayLabel func(time.Time) string
	today    func() time.Time
}

func New(ctx *cli.Context) *Server {
	return &Server{
		cfg:      ctx.Config,
		svc:      ctx.Service,
		store:    ctx.Store,
		metrics:  ctx.Metrics,
		dayLabel: ctx.DayLabel,
		today:    ctx.Today,
	}
}

// Handler builds the router with its middleware chain.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(withRequestID, withAccessLog, s.withMetrics)

	metricsPath := s.cfg.Server.MetricsPath
	if metricsPath != "" && s.metrics != nil {
		r.Handle(metricsPath, s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/config", s.handleConfig).Methods(http.MethodGet)
	api.HandleFunc("/days", s.handleDays).Methods(http.MethodGet)
	api.HandleFunc("/days/{date}/appointments", s.handleListDay).Methods(http.MethodGet)
	api.HandleFunc("/days/{date}/appointments", s.handleCancel).Methods(http.MethodDelete)
	api.HandleFunc("/days/{date}/grid", s.handleGrid).Methods(http.MethodGet)
	api.HandleFunc("/appointments", s.handleBook).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "no such endpoint")
	})
	return r
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
