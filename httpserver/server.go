package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/ruteri/namespace-registry/metrics"
	"go.uber.org/atomic"
)

type HTTPServerConfig struct {
	ListenAddr  string
	MetricsAddr string
	EnablePprof bool
	Log         *slog.Logger

	// DrainDuration is how long /drain keeps reporting not ready before it
	// logs completion, giving load balancers time to notice.
	DrainDuration            time.Duration
	GracefulShutdownDuration time.Duration
	ReadTimeout              time.Duration
	WriteTimeout             time.Duration
}

type Server struct {
	cfg     *HTTPServerConfig
	isReady atomic.Bool
	log     *slog.Logger

	srv        *http.Server
	metricsSrv *metrics.MetricsServer
	handler    *Handler
}

// New creates the API server. metricsSrv may be nil when metrics are disabled.
func New(cfg *HTTPServerConfig, handler *Handler, metricsSrv *metrics.MetricsServer) *Server {
	srv := &Server{
		cfg:        cfg,
		log:        cfg.Log,
		metricsSrv: metricsSrv,
		handler:    handler,
	}
	srv.isReady.Store(true)

	srv.srv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.getRouter(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return srv
}

// Router exposes the route tree, for tests and embedding.
func (srv *Server) Router() http.Handler {
	return srv.srv.Handler
}

func (srv *Server) getRouter() http.Handler {
	mux := chi.NewRouter()
	h := srv.handler

	mux.Group(func(r chi.Router) {
		r.Use(srv.httpLogger)

		r.Get("/api/v1/nodes/{node}", h.HandleNode)
		r.Get("/api/v1/names/{name}", h.HandleName)
		r.Get("/api/v1/registrar/{label}", h.HandleLabel)
		r.Get("/api/v1/reverse/{address}", h.HandleReverse)
		r.Get("/api/v1/balances/{address}", h.HandleBalance)
		r.Get("/api/v1/contracts", h.HandleContracts)

		r.Post("/api/v1/registry/owner", write(h, "registry.set_owner", h.setOwner))
		r.Post("/api/v1/registry/subnode", write(h, "registry.set_subnode", h.setSubnode))
		r.Post("/api/v1/registry/record", write(h, "registry.set_record", h.setRecord))
		r.Post("/api/v1/registry/resolver", write(h, "registry.set_resolver", h.setResolver))
		r.Post("/api/v1/registry/ttl", write(h, "registry.set_ttl", h.setTTL))

		r.Post("/api/v1/controller/register", write(h, "controller.register", h.register))
		r.Post("/api/v1/controller/renew", write(h, "controller.renew", h.renew))

		r.Post("/api/v1/registrar/reclaim", write(h, "registrar.reclaim", h.reclaim))
		r.Post("/api/v1/registrar/transfer", write(h, "registrar.transfer", h.transferName))

		r.Post("/api/v1/resolver/records", write(h, "resolver.multicall", h.setRecords))
		r.Post("/api/v1/resolver/clear", write(h, "resolver.clear_records", h.clearRecords))

		r.Post("/api/v1/reverse/name", write(h, "reverse.set_name", h.setReverseName))
		r.Post("/api/v1/ledger/transfer", write(h, "ledger.transfer", h.transferTokens))

		r.Mount("/api/v1/admin", h.AdminRouter())

		r.Get("/livez", srv.handleLivenessCheck)
		r.Get("/readyz", srv.handleReadinessCheck)
		r.Get("/drain", srv.handleDrain)
		r.Get("/undrain", srv.handleUndrain)
	})

	if srv.cfg.EnablePprof {
		srv.log.Info("pprof API enabled")
		mux.Mount("/debug", middleware.Profiler())
	}
	return mux
}

func (srv *Server) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(srv.log, next)
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
}

func (srv *Server) handleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	writeStatus(w, http.StatusOK, "alive")
}

func (srv *Server) handleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Load() {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

func (srv *Server) handleDrain(w http.ResponseWriter, r *http.Request) {
	if !srv.isReady.Swap(false) {
		writeStatus(w, http.StatusOK, "already draining")
		return
	}

	srv.log.Info("Server marked as not ready")
	go func() {
		time.Sleep(srv.cfg.DrainDuration)
		srv.log.Info("Drain period completed")
	}()
	writeStatus(w, http.StatusOK, "draining")
}

func (srv *Server) handleUndrain(w http.ResponseWriter, r *http.Request) {
	if srv.isReady.Swap(true) {
		writeStatus(w, http.StatusOK, "already ready")
		return
	}
	srv.log.Info("Server marked as ready")
	writeStatus(w, http.StatusOK, "ready")
}

func (srv *Server) RunInBackground() {
	if srv.metricsSrv != nil && srv.cfg.MetricsAddr != "" {
		go func() {
			srv.log.With("metricsAddress", srv.cfg.MetricsAddr).Info("Starting metrics server")
			err := srv.metricsSrv.ListenAndServe()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				srv.log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	go func() {
		srv.log.Info("Starting HTTP server", "listenAddress", srv.cfg.ListenAddr)
		if err := srv.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srv.log.Error("HTTP server failed", "err", err)
		}
	}()
}

func (srv *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
	defer cancel()
	if err := srv.srv.Shutdown(ctx); err != nil {
		srv.log.Error("Graceful HTTP server shutdown failed", "err", err)
	} else {
		srv.log.Info("HTTP server gracefully stopped")
	}

	if srv.metricsSrv != nil && srv.cfg.MetricsAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), srv.cfg.GracefulShutdownDuration)
		defer cancel()
		if err := srv.metricsSrv.Shutdown(ctx); err != nil {
			srv.log.Error("Graceful metrics server shutdown failed", "err", err)
		} else {
			srv.log.Info("Metrics server gracefully stopped")
		}
	}
}
