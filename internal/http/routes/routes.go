package routes

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/janisto/index-page/internal/http/health"
	"github.com/janisto/index-page/internal/http/index"
)

const (
	HealthPath = "/health"
	DebugPath  = "/debug"
)

// Register wires the public routes into the provided API.
func Register(api huma.API) {
	index.Register(api)
}

// MountDiagnostics adds the health probe and chi's pprof/expvar profiler.
// Only call it when diagnostics are enabled: it exposes runtime internals.
func MountDiagnostics(router chi.Router, version string) {
	router.Get(HealthPath, health.Handler(version))
	router.Mount(DebugPath, chimiddleware.Profiler())
}
