// File path: internal/api/modernize_handler.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nicodishanthj/Cobalt_phase1/internal/kb"
	"github.com/nicodishanthj/Cobalt_phase1/internal/workflow"
)

func (s *Server) handleModernizeStart(w http.ResponseWriter, r *http.Request) {
	var req workflow.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID, err := s.workflow.Start(req)
	if err != nil {
		status := http.StatusInternalServerError
		if strings.Contains(err.Error(), "required") {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started", "session_id": sessionID})
}

func (s *Server) handleModernizeStop(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("session_id is required"))
		return
	}
	if err := s.workflow.Stop(sessionID); err != nil {
		writeError(w, sessionErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "stopping"})
}

func (s *Server) handleModernizeDiscard(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	if err := s.workflow.Discard(sessionID); err != nil {
		writeError(w, sessionErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "discarded"})
}

func (s *Server) handleModernizeStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return
	}
	state, err := s.workflow.Status(sessionID)
	if err != nil {
		writeError(w, sessionErrStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleModernizeResult(w http.ResponseWriter, r *http.Request) {
	analysis, ok := s.sessionAnalysis(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// view identifies one slice of the analysis, mirroring the tabs of the old
// interactive surface including their fallback keys.
type view string

const (
	viewBusinessRules view = "business_rules"
	viewProcessFlow   view = "process_flow"
	viewDependencies  view = "dependencies"
	viewBCMapping     view = "bc_mapping"
	viewALCode        view = "al_code"
	viewETLScript     view = "etl_script"
	viewTestCases     view = "test_cases"
	viewDataLineage   view = "data_lineage"
)

func (s *Server) viewHandler(v view) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		analysis, ok := s.sessionAnalysis(w, r)
		if !ok {
			return
		}
		var payload interface{}
		switch v {
		case viewBusinessRules:
			payload = emptyList(analysis.BusinessRules)
		case viewProcessFlow:
			payload = emptyList(analysis.ProcessFlow())
		case viewDependencies:
			payload = emptyList(analysis.Dependencies())
		case viewBCMapping:
			if analysis.BCMapping == nil {
				payload = map[string]json.RawMessage{}
			} else {
				payload = analysis.BCMapping
			}
		case viewALCode:
			payload = map[string]string{"language": "al", "code": analysis.ALCode}
		case viewETLScript:
			payload = map[string]string{"language": "python", "code": analysis.ETLScript}
		case viewTestCases:
			payload = emptyList(analysis.TestCases)
		case viewDataLineage:
			payload = emptyList(analysis.Lineage())
		default:
			writeError(w, http.StatusNotFound, fmt.Errorf("unknown view %q", v))
			return
		}
		writeJSON(w, http.StatusOK, payload)
	}
}

func (s *Server) sessionAnalysis(w http.ResponseWriter, r *http.Request) (kb.Analysis, bool) {
	sessionID, ok := sessionIDParam(w, r)
	if !ok {
		return kb.Analysis{}, false
	}
	analysis, err := s.workflow.Result(sessionID)
	if err != nil {
		writeError(w, sessionErrStatus(err), err)
		return kb.Analysis{}, false
	}
	return analysis, true
}

func sessionIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("session_id query parameter required"))
		return "", false
	}
	return sessionID, true
}

func sessionErrStatus(err error) int {
	switch {
	case errors.Is(err, workflow.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrSessionNotRunning):
		return http.StatusConflict
	case errors.Is(err, workflow.ErrAnalysisNotReady):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func emptyList(items []json.RawMessage) []json.RawMessage {
	if items == nil {
		return []json.RawMessage{}
	}
	return items
}
