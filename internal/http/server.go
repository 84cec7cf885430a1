// Package http exposes the dashboard UI and the JSON API over a single mux.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"gptracker/internal/cache"
	"gptracker/internal/core"
	"gptracker/internal/log"
	"gptracker/internal/metrics"
	"gptracker/internal/middleware/ratelimit"
	"gptracker/internal/middleware/security"
	"gptracker/internal/middleware/trace"
	"gptracker/internal/services"
	appweb "gptracker/web"
)

const overviewCacheKey = "overview"

type Server struct {
	http.Server

	svc       *services.DatasetService
	templates *template.Template
	logger    *log.Logger

	// Derived dashboard numbers are cheap to recompute but hit on every
	// page load, so they sit behind a short TTL.
	overviewCache *cache.LRUCache[core.Overview]

	limiter *ratelimit.Limiter

	stopCacheCleanup chan struct{}
	shutdownOnce     sync.Once
}

// NewServer configures routes, middleware and templates, returning a
// ready-to-run server.
func NewServer(addr string, svc *services.DatasetService, collector *metrics.Collector, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}

	mux := http.NewServeMux()

	s := &Server{
		svc:              svc,
		logger:           logger,
		overviewCache:    cache.NewLRUCache[core.Overview](8, 30*time.Second),
		limiter:          ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		stopCacheCleanup: make(chan struct{}),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		logger.Warn("failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if collector != nil {
		mux.Handle("GET /metrics", collector.Handler())
	}

	mux.HandleFunc("GET /api/overview", s.handleOverview)
	mux.HandleFunc("GET /api/dataset", s.handleDataset)

	mux.HandleFunc("GET /api/characters", s.handleListCharacters)
	mux.HandleFunc("PUT /api/characters", s.handleUpsertCharacter)
	mux.HandleFunc("DELETE /api/characters/{name}", s.handleDeleteCharacter)
	mux.HandleFunc("POST /api/characters/{name}/stats/refresh", s.handleRefreshStats)

	mux.HandleFunc("GET /api/methods", s.handleListMethods)
	mux.HandleFunc("PUT /api/methods", s.handleUpsertMethod)
	mux.HandleFunc("DELETE /api/methods/{name}", s.handleDeleteMethod)
	mux.HandleFunc("POST /api/methods/{name}/activate", s.handleActivateMethod)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("PUT /api/goals", s.handleUpsertGoal)
	mux.HandleFunc("DELETE /api/goals/{name}", s.handleDeleteGoal)

	mux.HandleFunc("GET /api/bank", s.handleListBank)
	mux.HandleFunc("PUT /api/bank", s.handleUpsertBankItem)
	mux.HandleFunc("DELETE /api/bank/{character}/{name}", s.handleDeleteBankItem)
	mux.HandleFunc("POST /api/bank/import", s.handleImportBank)

	mux.HandleFunc("PUT /api/settings/hours", s.handleSetHours)

	mux.HandleFunc("POST /api/sync/save", s.handleSyncSave)
	mux.HandleFunc("POST /api/sync/load", s.handleSyncLoad)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)

	mux.HandleFunc("GET /api/snapshots", s.handleListSnapshots)
	mux.HandleFunc("POST /api/snapshots", s.handleCreateSnapshot)
	mux.HandleFunc("POST /api/snapshots/{id}/restore", s.handleRestoreSnapshot)

	tracer := trace.NewMiddleware(security.ExtractClientIP)
	var handler http.Handler = mux
	handler = security.Headers(security.DefaultHeadersConfig())(handler)
	handler = s.limiter.Middleware(security.ExtractClientIP)(handler)
	handler = log.Middleware(logger)(handler)
	handler = tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.startCacheCleanup()

	return s
}

func (s *Server) startCacheCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.overviewCache.CleanExpired(); removed > 0 {
				s.logger.Debug("cache cleanup completed", "entries_removed", removed)
			}
		case <-s.stopCacheCleanup:
			return
		}
	}
}

// invalidateDerived drops cached dashboard numbers after any mutation.
func (s *Server) invalidateDerived() {
	s.overviewCache.Delete(overviewCacheKey)
}

// Shutdown stops the listener and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		close(s.stopCacheCleanup)
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
