// File path: internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/nicodishanthj/Cobalt_phase1/internal/common"
	"github.com/nicodishanthj/Cobalt_phase1/internal/llm"
	"github.com/nicodishanthj/Cobalt_phase1/internal/sqlite"
	"github.com/nicodishanthj/Cobalt_phase1/internal/workflow"
)

// RunCatalog is the read side of the run history; *sqlite.Store satisfies
// it. A nil catalog disables the history routes.
type RunCatalog interface {
	ListRuns(ctx context.Context, limit int) ([]sqlite.RunSummary, error)
	GetRun(ctx context.Context, id int64) (*sqlite.RunRecord, error)
}

type Server struct {
	router   chi.Router
	workflow *workflow.Manager
	catalog  RunCatalog
	provider llm.Provider
}

func NewServer(manager *workflow.Manager, catalog RunCatalog, provider llm.Provider) (*Server, error) {
	if manager == nil {
		return nil, fmt.Errorf("workflow manager required")
	}
	logger := common.Logger()
	providerName := "unknown"
	if provider != nil {
		providerName = provider.Name()
	}
	logger.Info("api: building server", "provider", providerName, "catalog", catalog != nil)
	srv := &Server{
		router:   chi.NewRouter(),
		workflow: manager,
		catalog:  catalog,
		provider: provider,
	}
	srv.routes()
	return srv, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		providerName := ""
		if s.provider != nil {
			providerName = s.provider.Name()
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":   "ok",
			"provider": providerName,
		})
	})

	s.router.Post("/v1/modernize/start", s.handleModernizeStart)
	s.router.Post("/v1/modernize/stop", s.handleModernizeStop)
	s.router.Delete("/v1/modernize/session", s.handleModernizeDiscard)
	s.router.Get("/v1/modernize/status", s.handleModernizeStatus)
	s.router.Get("/v1/modernize/result", s.handleModernizeResult)

	s.router.Get("/v1/modernize/business-rules", s.viewHandler(viewBusinessRules))
	s.router.Get("/v1/modernize/process-flow", s.viewHandler(viewProcessFlow))
	s.router.Get("/v1/modernize/dependencies", s.viewHandler(viewDependencies))
	s.router.Get("/v1/modernize/bc-mapping", s.viewHandler(viewBCMapping))
	s.router.Get("/v1/modernize/al-code", s.viewHandler(viewALCode))
	s.router.Get("/v1/modernize/etl-script", s.viewHandler(viewETLScript))
	s.router.Get("/v1/modernize/test-cases", s.viewHandler(viewTestCases))
	s.router.Get("/v1/modernize/data-lineage", s.viewHandler(viewDataLineage))

	s.router.Get("/v1/runs", s.handleListRuns)
	s.router.Get("/v1/runs/{id}", s.handleGetRun)

	s.router.Get("/v1/logs", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"entries": common.LogEntries()})
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
