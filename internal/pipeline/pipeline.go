// File path: internal/pipeline/pipeline.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langgraphgo/graph"

	"github.com/nicodishanthj/Cobalt_phase1/internal/common"
	"github.com/nicodishanthj/Cobalt_phase1/internal/kb"
	"github.com/nicodishanthj/Cobalt_phase1/internal/llm"
)

const (
	PhaseExtraction = "extraction"
	PhaseSynthesis  = "synthesis"
	PhaseGeneration = "generation"
)

// Progress reports pipeline advancement: which phase is active and, during
// extraction, how many chunks have completed.
type Progress struct {
	Phase       string
	ChunksTotal int
	ChunksDone  int
}

type ProgressFunc func(Progress)

// Options tunes a runner. Zero values fall back to the completion and
// chunker defaults.
type Options struct {
	ChunkSize  int
	Completion llm.CompletionOptions
	Progress   ProgressFunc
}

// Runner drives the three-phase modernization pipeline over a single legacy
// source. Phases run strictly in order; each one blocks on its completion
// call before the next begins.
type Runner struct {
	provider llm.Provider
	opts     Options
}

func NewRunner(provider llm.Provider, opts Options) *Runner {
	return &Runner{provider: provider, opts: opts}
}

// Run executes extract, synthesize and generate over the source and returns
// the combined analysis. The phases are wired as a message graph whose state
// carries the previous phase's JSON payload.
func (r *Runner) Run(ctx context.Context, source string) (kb.Analysis, error) {
	if r.provider == nil {
		return kb.Analysis{}, errors.New("pipeline provider required")
	}
	if strings.TrimSpace(source) == "" {
		return kb.Analysis{}, errors.New("source code required")
	}

	run := &runState{}
	g := graph.NewMessageGraph()
	g.AddNode("extract", func(ctx context.Context, state []llms.MessageContent) ([]llms.MessageContent, error) {
		return r.extract(ctx, state, run)
	})
	g.AddNode("synthesize", func(ctx context.Context, state []llms.MessageContent) ([]llms.MessageContent, error) {
		return r.synthesize(ctx, state, run)
	})
	g.AddNode("generate", func(ctx context.Context, state []llms.MessageContent) ([]llms.MessageContent, error) {
		return r.generate(ctx, state, run)
	})
	g.AddEdge("extract", "synthesize")
	g.AddEdge("synthesize", "generate")
	g.AddEdge("generate", graph.END)
	g.SetEntryPoint("extract")

	runnable, err := g.Compile()
	if err != nil {
		return kb.Analysis{}, fmt.Errorf("compile pipeline graph: %w", err)
	}
	initial := []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, source)}
	if _, err := runnable.Invoke(ctx, initial); err != nil {
		return kb.Analysis{}, err
	}

	// The stored analysis is the union of the synthesis and artifact keys.
	return kb.Analysis{Synthesis: run.synthesis, Artifacts: run.artifacts}, nil
}

type runState struct {
	extraction kb.Extraction
	synthesis  kb.Synthesis
	artifacts  kb.Artifacts
}

func (r *Runner) extract(ctx context.Context, state []llms.MessageContent, run *runState) ([]llms.MessageContent, error) {
	logger := common.Logger()
	source := lastText(state)
	chunks, err := kb.SplitChunks(source, r.opts.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("extraction phase: split source: %w", err)
	}
	if len(chunks) == 0 {
		return nil, errors.New("extraction phase: source produced no chunks")
	}
	logger.Info("pipeline: structural extraction started", "chunks", len(chunks))
	r.report(Progress{Phase: PhaseExtraction, ChunksTotal: len(chunks)})

	aggregate := kb.NewExtraction()
	for i, chunk := range chunks {
		messages := []llm.Message{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: chunk},
		}
		raw, err := llm.CompleteJSON(ctx, r.provider, messages, r.opts.Completion)
		if err != nil {
			return nil, fmt.Errorf("extraction phase: chunk %d/%d: %w", i+1, len(chunks), err)
		}
		var partial kb.Extraction
		if err := json.Unmarshal(raw, &partial); err != nil {
			return nil, fmt.Errorf("extraction phase: chunk %d/%d: decode: %w", i+1, len(chunks), err)
		}
		aggregate.Merge(partial)
		r.report(Progress{Phase: PhaseExtraction, ChunksTotal: len(chunks), ChunksDone: i + 1})
		logger.Debug("pipeline: chunk extracted", "chunk", i+1, "total", len(chunks))
	}
	run.extraction = aggregate

	encoded, err := json.Marshal(aggregate)
	if err != nil {
		return nil, fmt.Errorf("extraction phase: encode aggregate: %w", err)
	}
	return append(state, llms.TextParts(llms.ChatMessageTypeAI, string(encoded))), nil
}

func (r *Runner) synthesize(ctx context.Context, state []llms.MessageContent, run *runState) ([]llms.MessageContent, error) {
	common.Logger().Info("pipeline: flow-aware synthesis started")
	r.report(Progress{Phase: PhaseSynthesis})
	messages := []llm.Message{
		{Role: "system", Content: synthesisPrompt},
		{Role: "user", Content: lastText(state)},
	}
	raw, err := llm.CompleteJSON(ctx, r.provider, messages, r.opts.Completion)
	if err != nil {
		return nil, fmt.Errorf("synthesis phase: %w", err)
	}
	if err := json.Unmarshal(raw, &run.synthesis); err != nil {
		return nil, fmt.Errorf("synthesis phase: decode: %w", err)
	}
	return append(state, llms.TextParts(llms.ChatMessageTypeAI, string(raw))), nil
}

func (r *Runner) generate(ctx context.Context, state []llms.MessageContent, run *runState) ([]llms.MessageContent, error) {
	common.Logger().Info("pipeline: artifact generation started")
	r.report(Progress{Phase: PhaseGeneration})
	messages := []llm.Message{
		{Role: "system", Content: generationPrompt},
		{Role: "user", Content: lastText(state)},
	}
	raw, err := llm.CompleteJSON(ctx, r.provider, messages, r.opts.Completion)
	if err != nil {
		return nil, fmt.Errorf("generation phase: %w", err)
	}
	if err := json.Unmarshal(raw, &run.artifacts); err != nil {
		return nil, fmt.Errorf("generation phase: decode: %w", err)
	}
	return append(state, llms.TextParts(llms.ChatMessageTypeAI, string(raw))), nil
}

func (r *Runner) report(progress Progress) {
	if r.opts.Progress != nil {
		r.opts.Progress(progress)
	}
}

func lastText(state []llms.MessageContent) string {
	if len(state) == 0 {
		return ""
	}
	var builder strings.Builder
	for _, part := range state[len(state)-1].Parts {
		if text, ok := part.(llms.TextContent); ok {
			builder.WriteString(text.Text)
		}
	}
	return builder.String()
}
