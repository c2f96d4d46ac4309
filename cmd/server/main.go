package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/janisto/index-page/internal/http/routes"
	"github.com/janisto/index-page/internal/platform/config"
	applog "github.com/janisto/index-page/internal/platform/logging"
	appmiddleware "github.com/janisto/index-page/internal/platform/middleware"
	"github.com/janisto/index-page/internal/platform/respond"
)

// Version can be overridden at build time: -ldflags "-X main.Version=1.2.3"
var Version = "dev"

const docsPath = "/api-docs"

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()
	defer func() {
		if err := applog.Sync(); err != nil && !errors.Is(err, syscall.EINVAL) {
			applog.LogError(ctx, "logger sync error", err)
		}
	}()
	if err := applog.Err(); err != nil {
		applog.LogError(ctx, "logger init error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		applog.LogError(ctx, "invalid configuration", err)
		return 1
	}
	applog.SetDebug(cfg.Debug)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newRouter(cfg),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    64 << 10, // 64 KB
	}

	listenErr := make(chan error, 1)
	go func() {
		applog.LogInfo(ctx, "server listening",
			zap.String("addr", srv.Addr),
			zap.Bool("debug", cfg.Debug),
			zap.Bool("diagnostics", cfg.Diagnostics),
			zap.Stringer("level", applog.Level()),
			zap.String("version", Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-listenErr:
		applog.LogError(ctx, "listen failed", err, zap.String("addr", srv.Addr))
		return 1
	case sig := <-stop:
		applog.LogInfo(ctx, "shutdown signal received", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		applog.LogError(shutdownCtx, "server shutdown error", err)
		return 1
	}
	applog.LogInfo(ctx, "server exited")
	return 0
}

// newRouter assembles the middleware stack and routes. Docs, OpenAPI,
// schemas, health and the profiler exist only when diagnostics are enabled;
// otherwise the surface is GET / and nothing else.
func newRouter(cfg config.Config) http.Handler {
	router := chi.NewRouter()
	router.NotFound(respond.NotFoundHandler())
	router.MethodNotAllowed(respond.MethodNotAllowedHandler())

	skipSecurity := []string{}
	if cfg.Diagnostics {
		skipSecurity = append(skipSecurity, docsPath, routes.DebugPath)
	}

	router.Use(
		appmiddleware.Security(skipSecurity...),
		appmiddleware.Vary(),
		appmiddleware.CORS(),
		appmiddleware.RequestID(),
		// RealIP trusts X-Forwarded-For / X-Real-IP; only deploy behind a proxy that sets them.
		chimiddleware.RealIP,
		chimiddleware.RequestSize(1<<20), // 1 MB limit
		applog.RequestLogger(),
		applog.AccessLogger(),
		respond.Recoverer(),
	)

	humaCfg := huma.DefaultConfig("Index Page", Version)
	if cfg.Diagnostics {
		humaCfg.DocsPath = docsPath
	} else {
		humaCfg.OpenAPIPath = ""
		humaCfg.DocsPath = ""
		humaCfg.SchemasPath = ""
	}
	api := humachi.New(router, humaCfg)

	routes.Register(api)
	if cfg.Diagnostics {
		routes.MountDiagnostics(router, Version)
	}
	return router
}
