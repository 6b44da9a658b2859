// File path: internal/pipeline/pipeline_test.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/nicodishanthj/Cobalt_phase1/internal/kb"
	"github.com/nicodishanthj/Cobalt_phase1/internal/llm"
)

// phaseProvider answers each phase with a fixed payload and records how
// often every phase prompt was seen.
type phaseProvider struct {
	extractCalls    int
	synthesizeCalls int
	generateCalls   int
	failPhase       string
}

func (p *phaseProvider) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	if len(messages) == 0 {
		return "", errors.New("no messages")
	}
	system := messages[0].Content
	switch {
	case strings.Contains(system, "structural extraction"):
		p.extractCalls++
		if p.failPhase == PhaseExtraction {
			return "", errors.New("extraction exploded")
		}
		return fmt.Sprintf(`{
                        "purpose": "purpose from chunk %d",
                        "entities": ["ENTITY-%d"],
                        "business_rules": [{"rule": "rule-%d"}],
                        "external_calls": ["CALL PGM%d"]
                }`, p.extractCalls, p.extractCalls, p.extractCalls, p.extractCalls), nil
	case strings.Contains(system, "modernization architect"):
		p.synthesizeCalls++
		if p.failPhase == PhaseSynthesis {
			return "", errors.New("synthesis exploded")
		}
		// Echo how many extraction entities arrived to prove the
		// aggregate feeds the next phase.
		user := messages[len(messages)-1].Content
		var aggregate kb.Extraction
		if err := json.Unmarshal([]byte(user), &aggregate); err != nil {
			return "", fmt.Errorf("synthesis input not an aggregate: %w", err)
		}
		return fmt.Sprintf(`{
                        "purpose": %q,
                        "process_map": ["validate", "apply", "persist"],
                        "business_rules": ["merged %d rules"],
                        "external_dependencies": ["PGM1"],
                        "data_lineage": ["WS-AMOUNT -> WS-TOTAL"],
                        "risk_areas": ["flag-driven updates"]
                }`, aggregate.Purpose, len(aggregate.BusinessRules)), nil
	case strings.Contains(system, "modernization artifacts"):
		p.generateCalls++
		if p.failPhase == PhaseGeneration {
			return "", errors.New("generation exploded")
		}
		return `{
                        "bc_mapping": {"CUSTOMER-RECORD": "Customer"},
                        "al_code": "codeunit 50100 AccountUpdate {}",
                        "etl_script": "print('etl')",
                        "test_cases": ["validate rejects closed accounts"],
                        "dependency_map": ["AccountUpdate -> Customer"],
                        "data_lineage_map": ["WS-AMOUNT -> Amount"]
                }`, nil
	default:
		return "", fmt.Errorf("unexpected system prompt: %s", system)
	}
}

func (p *phaseProvider) Name() string { return "phase-stub" }

func testOptions(chunkSize int, progress ProgressFunc) Options {
	return Options{
		ChunkSize:  chunkSize,
		Completion: llm.CompletionOptions{MaxAttempts: 1, RetryBackoff: time.Millisecond},
		Progress:   progress,
	}
}

func multiChunkSource() string {
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, "MOVE WS-AMOUNT TO WS-TOTAL-AMOUNT.")
	}
	return strings.Join(lines, "\n")
}

func TestRunProducesMergedAnalysis(t *testing.T) {
	provider := &phaseProvider{}
	var updates []Progress
	runner := NewRunner(provider, testOptions(200, func(p Progress) {
		updates = append(updates, p)
	}))

	analysis, err := runner.Run(context.Background(), multiChunkSource())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if provider.extractCalls < 2 {
		t.Fatalf("expected multiple extraction chunks, got %d", provider.extractCalls)
	}
	if provider.synthesizeCalls != 1 || provider.generateCalls != 1 {
		t.Fatalf("expected single synthesis and generation calls, got %d/%d", provider.synthesizeCalls, provider.generateCalls)
	}
	if analysis.Purpose != "purpose from chunk 1" {
		t.Fatalf("expected first chunk purpose to survive, got %q", analysis.Purpose)
	}
	expectedRules := fmt.Sprintf(`"merged %d rules"`, provider.extractCalls)
	if len(analysis.BusinessRules) != 1 || string(analysis.BusinessRules[0]) != expectedRules {
		t.Fatalf("expected aggregated rules %s, got %v", expectedRules, analysis.BusinessRules)
	}
	if analysis.ALCode != "codeunit 50100 AccountUpdate {}" {
		t.Fatalf("unexpected al_code: %q", analysis.ALCode)
	}
	if string(analysis.BCMapping["CUSTOMER-RECORD"]) != `"Customer"` {
		t.Fatalf("unexpected bc_mapping: %v", analysis.BCMapping)
	}
	if len(analysis.ProcessMap) != 3 {
		t.Fatalf("expected process map from synthesis, got %v", analysis.ProcessMap)
	}
	if got := analysis.Dependencies(); len(got) != 1 || string(got[0]) != `"AccountUpdate -> Customer"` {
		t.Fatalf("expected dependency_map view, got %v", got)
	}

	var sawFinalChunk, sawSynthesis, sawGeneration bool
	for _, p := range updates {
		if p.Phase == PhaseExtraction && p.ChunksTotal > 0 && p.ChunksDone == p.ChunksTotal {
			sawFinalChunk = true
		}
		if p.Phase == PhaseSynthesis {
			sawSynthesis = true
		}
		if p.Phase == PhaseGeneration {
			sawGeneration = true
		}
	}
	if !sawFinalChunk || !sawSynthesis || !sawGeneration {
		t.Fatalf("missing progress updates: %+v", updates)
	}
}

func TestRunRejectsEmptySource(t *testing.T) {
	runner := NewRunner(&phaseProvider{}, testOptions(200, nil))
	if _, err := runner.Run(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty source")
	}
}

func TestRunRequiresProvider(t *testing.T) {
	runner := NewRunner(nil, testOptions(200, nil))
	if _, err := runner.Run(context.Background(), "PROGRAM-ID. X."); err == nil {
		t.Fatal("expected error for missing provider")
	}
}

func TestRunWrapsPhaseErrors(t *testing.T) {
	cases := []struct {
		failPhase string
		want      string
	}{
		{PhaseExtraction, "extraction phase"},
		{PhaseSynthesis, "synthesis phase"},
		{PhaseGeneration, "generation phase"},
	}
	for _, tc := range cases {
		provider := &phaseProvider{failPhase: tc.failPhase}
		runner := NewRunner(provider, testOptions(200, nil))
		_, err := runner.Run(context.Background(), multiChunkSource())
		if err == nil {
			t.Fatalf("expected %s failure", tc.failPhase)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("expected error naming %q, got %v", tc.want, err)
		}
	}
}
