package web

import (
	"context"
	"net/http"
	"time"

	"routines/internal/adapters/http/middleware"
	"routines/internal/adapters/http/perf"
	routineStore "routines/internal/adapters/storage/routine"
)

// Stores holds all storage dependencies.
type Stores struct {
	RoutineStore routineStore.Store
}

// Options configures the middleware chain.
type Options struct {
	CSRFKey            []byte // 32 bytes
	CSRFSecure         bool
	TrustedOrigins     []string
	RateLimitPerSecond int
	SlowRequestMs      int
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// NewMux wires HTTP handlers for the app.
// ctx bounds background work started for the mux (the rate limiter sweep).
func NewMux(ctx context.Context, s *Stores, collector *perf.Collector, opts Options) http.Handler {
	stores = s
	perfCollector = collector

	mux := http.NewServeMux()
	registerRoutes(mux)

	rate := opts.RateLimitPerSecond
	if rate <= 0 {
		rate = 10
	}
	limiter := middleware.NewRateLimiter(ctx, rate, time.Second)

	// Apply middleware: Timing -> RateLimit -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, middleware.CSRFOptions{
			Secure:         opts.CSRFSecure,
			TrustedOrigins: opts.TrustedOrigins,
		}),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, opts.SlowRequestMs),
	)
}

func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/routines", handleRoutines)
	mux.HandleFunc("/api/routines/tree", handleRoutineTree)
	mux.HandleFunc("/api/routines/export", handleRoutineExport)
	mux.HandleFunc("/api/routines/exercises", handleRoutineExercises)
	mux.HandleFunc("/api/routines/groups", handleRoutineGroups)
	mux.HandleFunc("/api/routines/items", handleRoutineItems)
	mux.HandleFunc("/api/routines/drop", handleRoutineDrop)
	mux.HandleFunc("/api/routines/move", handleRoutineMove)
	mux.HandleFunc("/api/admin/perf", handleAdminPerf)
}
