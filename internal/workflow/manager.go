// File path: internal/workflow/manager.go
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nicodishanthj/Cobalt_phase1/internal/common"
	"github.com/nicodishanthj/Cobalt_phase1/internal/kb"
	"github.com/nicodishanthj/Cobalt_phase1/internal/llm"
	"github.com/nicodishanthj/Cobalt_phase1/internal/pipeline"
	"github.com/nicodishanthj/Cobalt_phase1/internal/sqlite"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionNotRunning = errors.New("session not running")
	ErrAnalysisNotReady  = errors.New("analysis not ready")
)

type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepError     StepStatus = "error"
)

const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusError     = "error"
)

type Step struct {
	Name        string     `json:"name"`
	Status      StepStatus `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Request starts a modernization run over inline source text.
type Request struct {
	Source     string `json:"source"`
	SourceName string `json:"source_name,omitempty"`
}

// State is the externally visible session state.
type State struct {
	SessionID   string     `json:"session_id"`
	SourceName  string     `json:"source_name,omitempty"`
	Status      string     `json:"status"`
	Running     bool       `json:"running"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Steps       []Step     `json:"steps"`
	ChunksTotal int        `json:"chunks_total,omitempty"`
	ChunksDone  int        `json:"chunks_done,omitempty"`
	Error       string     `json:"error,omitempty"`
	Provider    string     `json:"provider,omitempty"`
}

// RunRecorder persists completed runs; *sqlite.Store satisfies it.
type RunRecorder interface {
	RecordRun(ctx context.Context, run sqlite.RunRecord) (int64, error)
}

// PipelineFunc runs the modernization pipeline over one source. The default
// implementation wraps pipeline.Runner; tests substitute fixtures.
type PipelineFunc func(ctx context.Context, source string, progress pipeline.ProgressFunc) (kb.Analysis, error)

type session struct {
	state    State
	cancel   context.CancelFunc
	analysis *kb.Analysis
}

// Manager owns the transient modernization sessions. Each Start spawns one
// background run; the session map is the only shared state and results are
// discarded with the session.
type Manager struct {
	provider llm.Provider
	opts     pipeline.Options
	catalog  RunRecorder

	mu       sync.RWMutex
	sessions map[string]*session

	runFn PipelineFunc
}

func NewManager(provider llm.Provider, opts pipeline.Options, catalog RunRecorder) *Manager {
	m := &Manager{
		provider: provider,
		opts:     opts,
		catalog:  catalog,
		sessions: make(map[string]*session),
	}
	m.runFn = func(ctx context.Context, source string, progress pipeline.ProgressFunc) (kb.Analysis, error) {
		runOpts := m.opts
		runOpts.Progress = progress
		return pipeline.NewRunner(m.provider, runOpts).Run(ctx, source)
	}
	return m
}

// NewManagerWithPipeline constructs a manager around a custom pipeline
// function. Used by tests and embedders that pre-bind the runner.
func NewManagerWithPipeline(run PipelineFunc, catalog RunRecorder) *Manager {
	return &Manager{
		catalog:  catalog,
		sessions: make(map[string]*session),
		runFn:    run,
	}
}

// Start registers a new session and launches the pipeline in the background.
func (m *Manager) Start(req Request) (string, error) {
	if strings.TrimSpace(req.Source) == "" {
		return "", errors.New("source is required")
	}
	sessionID := uuid.NewString()
	now := time.Now().UTC()
	providerName := ""
	if m.provider != nil {
		providerName = m.provider.Name()
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		state: State{
			SessionID:  sessionID,
			SourceName: strings.TrimSpace(req.SourceName),
			Status:     StatusPending,
			Running:    true,
			StartedAt:  &now,
			Provider:   providerName,
			Steps: []Step{
				{Name: pipeline.PhaseExtraction, Status: StepPending},
				{Name: pipeline.PhaseSynthesis, Status: StepPending},
				{Name: pipeline.PhaseGeneration, Status: StepPending},
			},
		},
		cancel: cancel,
	}
	m.mu.Lock()
	m.sessions[sessionID] = sess
	m.mu.Unlock()

	logger := common.Logger()
	logger.Info("workflow: session started", "session", sessionID, "source", sess.state.SourceName)
	go m.run(ctx, sessionID, req)
	return sessionID, nil
}

func (m *Manager) run(ctx context.Context, sessionID string, req Request) {
	logger := common.Logger()
	m.updateState(sessionID, func(state *State) {
		state.Status = StatusRunning
	})

	progress := func(p pipeline.Progress) {
		m.updateState(sessionID, func(state *State) {
			advanceSteps(state, p.Phase)
			if p.Phase == pipeline.PhaseExtraction {
				state.ChunksTotal = p.ChunksTotal
				state.ChunksDone = p.ChunksDone
			}
		})
	}

	analysis, err := m.runFn(ctx, req.Source, progress)
	completed := time.Now().UTC()
	if err != nil {
		status := StatusError
		if errors.Is(err, context.Canceled) {
			status = StatusCancelled
		}
		logger.Warn("workflow: session finished with failure", "session", sessionID, "status", status, "error", err)
		m.updateState(sessionID, func(state *State) {
			state.Status = status
			state.Running = false
			state.CompletedAt = &completed
			state.Error = err.Error()
			failActiveStep(state, completed)
		})
		return
	}

	m.mu.Lock()
	if sess, ok := m.sessions[sessionID]; ok {
		sess.analysis = &analysis
		sess.state.Status = StatusCompleted
		sess.state.Running = false
		sess.state.CompletedAt = &completed
		for i := range sess.state.Steps {
			completeStep(&sess.state.Steps[i], completed)
		}
	}
	m.mu.Unlock()
	logger.Info("workflow: session completed", "session", sessionID)

	m.recordRun(sessionID, analysis)
}

func (m *Manager) recordRun(sessionID string, analysis kb.Analysis) {
	if m.catalog == nil {
		return
	}
	logger := common.Logger()
	state, err := m.Status(sessionID)
	if err != nil {
		return
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		logger.Warn("workflow: encode analysis for catalog", "session", sessionID, "error", err)
		return
	}
	record := sqlite.RunRecord{
		SessionID:  sessionID,
		SourceName: state.SourceName,
		Provider:   state.Provider,
		ChunkCount: state.ChunksTotal,
		Purpose:    analysis.Purpose,
		Analysis:   payload,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := m.catalog.RecordRun(ctx, record); err != nil {
		logger.Warn("workflow: persist run failed", "session", sessionID, "error", err)
	}
}

// Stop cancels a running session. The session and any partial state remain
// queryable until discarded.
func (m *Manager) Stop(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if !sess.state.Running {
		return ErrSessionNotRunning
	}
	sess.cancel()
	return nil
}

// Status returns a copy of the session state.
func (m *Manager) Status(sessionID string) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return State{}, ErrSessionNotFound
	}
	return cloneState(sess.state), nil
}

// Result returns the completed analysis for a session.
func (m *Manager) Result(sessionID string) (kb.Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return kb.Analysis{}, ErrSessionNotFound
	}
	if sess.analysis == nil {
		return kb.Analysis{}, ErrAnalysisNotReady
	}
	return *sess.analysis, nil
}

// Discard drops the transient session state, cancelling it first if needed.
func (m *Manager) Discard(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if sess.state.Running {
		sess.cancel()
	}
	delete(m.sessions, sessionID)
	return nil
}

func (m *Manager) updateState(sessionID string, apply func(*State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[sessionID]; ok {
		apply(&sess.state)
	}
}

// advanceSteps marks the named phase running and completes everything before
// it. Phases only move forward.
func advanceSteps(state *State, phase string) {
	now := time.Now().UTC()
	reached := false
	for i := range state.Steps {
		step := &state.Steps[i]
		if step.Name == phase {
			reached = true
			if step.Status == StepPending {
				step.Status = StepRunning
				step.StartedAt = &now
			}
			continue
		}
		if !reached {
			completeStep(step, now)
		}
	}
}

func completeStep(step *Step, at time.Time) {
	if step.Status == StepCompleted {
		return
	}
	if step.StartedAt == nil {
		step.StartedAt = &at
	}
	step.Status = StepCompleted
	step.CompletedAt = &at
}

func failActiveStep(state *State, at time.Time) {
	for i := range state.Steps {
		step := &state.Steps[i]
		if step.Status == StepRunning {
			step.Status = StepError
			step.CompletedAt = &at
			return
		}
	}
}

func cloneState(state State) State {
	out := state
	out.Steps = make([]Step, len(state.Steps))
	copy(out.Steps, state.Steps)
	return out
}
