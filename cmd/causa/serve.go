package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/causa-registry/pkg/api"
	"github.com/hazyhaar/causa-registry/pkg/lookup"
	"github.com/hazyhaar/causa-registry/pkg/mapping"
)

func newServeCmd(a *app) *cobra.Command {
	var mcpMode bool
	flags := map[string]string{
		"mapping.path":    "mapping",
		"serve.addr":      "addr",
		"serve.cache_ttl": "cache-ttl",
	}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve online label resolution over HTTP (or MCP on stdio)",
		Long: `Load the reviewed mapping and answer resolution requests. Labels present in
the mapping return their record; other labels are resolved live against the
mapping's multi-year vocabulary and cached.

HTTP routes:
  GET  /v1/resolve/{label}
  POST /v1/resolve/batch   {"labels": [...]} (max 100)
  GET  /v1/mapping/stats
  GET  /v1/health
  GET  /metrics

SIGHUP reloads the mapping file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd, flags)
			if err != nil {
				return err
			}
			if mcpMode {
				return a.serveMCP(cfg)
			}
			return a.serveHTTP(cmd.Context(), cfg)
		},
	}
	cmd.Flags().String("mapping", "", "reviewed mapping file")
	cmd.Flags().String("addr", "", "HTTP listen address")
	cmd.Flags().String("cache-ttl", "", "live resolution cache TTL (e.g. 10m)")
	cmd.Flags().BoolVar(&mcpMode, "mcp", false, "serve MCP tools on stdin/stdout instead of HTTP")
	return cmd
}

func (a *app) lookupService(cfg Config) (*lookup.Service, error) {
	ttl, err := cfg.cacheTTL()
	if err != nil {
		return nil, err
	}
	m, err := mapping.Load(cfg.Mapping.Path, a.logger)
	if err != nil {
		if errors.Is(err, mapping.ErrMappingNotFound) {
			return nil, &diagnostic{err: err, hint: "run `causa generate` first"}
		}
		return nil, err
	}
	svc, err := lookup.New(m, cfg.Matching, ttl, a.logger)
	if err != nil {
		return nil, err
	}
	st := svc.Stats()
	a.logger.Info("mapping loaded", "path", cfg.Mapping.Path, "records", st.Records, "references", st.References)
	return svc, nil
}

func (a *app) serveMCP(cfg Config) error {
	svc, err := a.lookupService(cfg)
	if err != nil {
		return err
	}
	srv := server.NewMCPServer("causa", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, svc, api.Middleware(a.logger, nil))
	a.logger.Info("serving MCP on stdio")
	return server.ServeStdio(srv)
}

// swapHandler lets SIGHUP replace the router without restarting the listener.
type swapHandler struct {
	h atomic.Pointer[http.Handler]
}

func (s *swapHandler) set(h http.Handler) { s.h.Store(&h) }

func (s *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.h.Load()).ServeHTTP(w, r)
}

func (a *app) serveHTTP(ctx context.Context, cfg Config) error {
	svc, err := a.lookupService(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := api.NewMetrics(reg)
	if err != nil {
		return err
	}
	opts := api.Options{Logger: a.logger, Registry: reg, Metrics: metrics}
	router, err := api.NewRouter(svc, opts)
	if err != nil {
		return err
	}
	handler := &swapHandler{}
	handler.set(router)

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// SIGHUP: reload the mapping.
	// SIGINT/SIGTERM: graceful shutdown.
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sighup:
			}
			a.logger.Info("SIGHUP received, reloading mapping")
			next, err := a.lookupService(cfg)
			if err == nil {
				var r http.Handler
				if r, err = api.NewRouter(next, opts); err == nil {
					handler.set(r)
					continue
				}
			}
			a.logger.Error("reload failed, keeping previous mapping", "error", err)
		}
	}()

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("causa listening", "addr", cfg.Serve.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Serve.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
