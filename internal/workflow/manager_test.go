// File path: internal/workflow/manager_test.go
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nicodishanthj/Cobalt_phase1/internal/kb"
	"github.com/nicodishanthj/Cobalt_phase1/internal/pipeline"
	"github.com/nicodishanthj/Cobalt_phase1/internal/sqlite"
)

type stubRecorder struct {
	mu   sync.Mutex
	runs []sqlite.RunRecord
}

func (s *stubRecorder) RecordRun(ctx context.Context, run sqlite.RunRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, run)
	return int64(len(s.runs)), nil
}

func (s *stubRecorder) recorded() []sqlite.RunRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sqlite.RunRecord, len(s.runs))
	copy(out, s.runs)
	return out
}

func fixedAnalysis() kb.Analysis {
	return kb.Analysis{
		Synthesis: kb.Synthesis{
			Purpose:     "Account maintenance",
			ProcessMap:  []json.RawMessage{json.RawMessage(`"validate"`)},
			DataLineage: []json.RawMessage{json.RawMessage(`"WS-AMOUNT -> Amount"`)},
		},
		Artifacts: kb.Artifacts{
			ALCode:    "codeunit 50100 AccountUpdate {}",
			TestCases: []json.RawMessage{json.RawMessage(`"rejects closed accounts"`)},
		},
	}
}

func newTestManager(recorder RunRecorder, runFn PipelineFunc) *Manager {
	return NewManagerWithPipeline(runFn, recorder)
}

func waitForTerminal(t *testing.T, m *Manager, sessionID string) State {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state, err := m.Status(sessionID)
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		if !state.Running {
			return state
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session did not reach a terminal state")
	return State{}
}

func TestManagerRunsSessionToCompletion(t *testing.T) {
	recorder := &stubRecorder{}
	m := newTestManager(recorder, func(ctx context.Context, source string, progress pipeline.ProgressFunc) (kb.Analysis, error) {
		progress(pipeline.Progress{Phase: pipeline.PhaseExtraction, ChunksTotal: 2, ChunksDone: 1})
		progress(pipeline.Progress{Phase: pipeline.PhaseExtraction, ChunksTotal: 2, ChunksDone: 2})
		progress(pipeline.Progress{Phase: pipeline.PhaseSynthesis})
		progress(pipeline.Progress{Phase: pipeline.PhaseGeneration})
		return fixedAnalysis(), nil
	})

	sessionID, err := m.Start(Request{Source: "PROGRAM-ID. ACCTUPD.", SourceName: "acctupd.cbl"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	state := waitForTerminal(t, m, sessionID)
	if state.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q (%s)", state.Status, state.Error)
	}
	if state.ChunksTotal != 2 || state.ChunksDone != 2 {
		t.Fatalf("expected chunk progress 2/2, got %d/%d", state.ChunksDone, state.ChunksTotal)
	}
	if len(state.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(state.Steps))
	}
	for _, step := range state.Steps {
		if step.Status != StepCompleted {
			t.Fatalf("expected step %s completed, got %s", step.Name, step.Status)
		}
	}

	analysis, err := m.Result(sessionID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if analysis.Purpose != "Account maintenance" {
		t.Fatalf("unexpected purpose: %q", analysis.Purpose)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && len(recorder.recorded()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	runs := recorder.recorded()
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].SessionID != sessionID || runs[0].SourceName != "acctupd.cbl" {
		t.Fatalf("unexpected run record: %+v", runs[0])
	}
	if runs[0].Purpose != "Account maintenance" || runs[0].ChunkCount != 2 {
		t.Fatalf("unexpected run metadata: %+v", runs[0])
	}
}

func TestManagerRejectsEmptySource(t *testing.T) {
	m := newTestManager(nil, nil)
	if _, err := m.Start(Request{Source: "   "}); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestManagerStopCancelsRun(t *testing.T) {
	started := make(chan struct{})
	m := newTestManager(nil, func(ctx context.Context, source string, progress pipeline.ProgressFunc) (kb.Analysis, error) {
		progress(pipeline.Progress{Phase: pipeline.PhaseExtraction, ChunksTotal: 4})
		close(started)
		<-ctx.Done()
		return kb.Analysis{}, ctx.Err()
	})
	sessionID, err := m.Start(Request{Source: "PROGRAM-ID. ACCTUPD."})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	<-started
	if err := m.Stop(sessionID); err != nil {
		t.Fatalf("stop: %v", err)
	}
	state := waitForTerminal(t, m, sessionID)
	if state.Status != StatusCancelled {
		t.Fatalf("expected cancelled, got %q", state.Status)
	}
	if _, err := m.Result(sessionID); !errors.Is(err, ErrAnalysisNotReady) {
		t.Fatalf("expected ErrAnalysisNotReady, got %v", err)
	}
}

func TestManagerRunFailureMarksActiveStep(t *testing.T) {
	m := newTestManager(nil, func(ctx context.Context, source string, progress pipeline.ProgressFunc) (kb.Analysis, error) {
		progress(pipeline.Progress{Phase: pipeline.PhaseExtraction, ChunksTotal: 1})
		progress(pipeline.Progress{Phase: pipeline.PhaseSynthesis})
		return kb.Analysis{}, errors.New("synthesis exploded")
	})
	sessionID, err := m.Start(Request{Source: "PROGRAM-ID. ACCTUPD."})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	state := waitForTerminal(t, m, sessionID)
	if state.Status != StatusError {
		t.Fatalf("expected error status, got %q", state.Status)
	}
	if state.Error == "" {
		t.Fatal("expected error message in state")
	}
	var synthesis *Step
	for i := range state.Steps {
		if state.Steps[i].Name == pipeline.PhaseSynthesis {
			synthesis = &state.Steps[i]
		}
	}
	if synthesis == nil || synthesis.Status != StepError {
		t.Fatalf("expected synthesis step error, got %+v", state.Steps)
	}
}

func TestManagerUnknownSession(t *testing.T) {
	m := newTestManager(nil, nil)
	if _, err := m.Status("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := m.Stop("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := m.Discard("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestManagerDiscardRemovesSession(t *testing.T) {
	m := newTestManager(nil, func(ctx context.Context, source string, progress pipeline.ProgressFunc) (kb.Analysis, error) {
		return fixedAnalysis(), nil
	})
	sessionID, err := m.Start(Request{Source: "PROGRAM-ID. ACCTUPD."})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForTerminal(t, m, sessionID)
	if err := m.Discard(sessionID); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := m.Status(sessionID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session gone, got %v", err)
	}
}

func TestManagerStopCompletedSession(t *testing.T) {
	m := newTestManager(nil, func(ctx context.Context, source string, progress pipeline.ProgressFunc) (kb.Analysis, error) {
		return fixedAnalysis(), nil
	})
	sessionID, err := m.Start(Request{Source: "PROGRAM-ID. ACCTUPD."})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	waitForTerminal(t, m, sessionID)
	if err := m.Stop(sessionID); !errors.Is(err, ErrSessionNotRunning) {
		t.Fatalf("expected ErrSessionNotRunning, got %v", err)
	}
}
