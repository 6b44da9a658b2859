// File path: cmd/cobalt/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/nicodishanthj/Cobalt_phase1/internal/api"
	"github.com/nicodishanthj/Cobalt_phase1/internal/common"
	"github.com/nicodishanthj/Cobalt_phase1/internal/config"
	"github.com/nicodishanthj/Cobalt_phase1/internal/llm"
	"github.com/nicodishanthj/Cobalt_phase1/internal/pipeline"
	"github.com/nicodishanthj/Cobalt_phase1/internal/sqlite"
	"github.com/nicodishanthj/Cobalt_phase1/internal/workflow"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("cobalt: .env file not loaded", "error", err)
	} else {
		logger.Info("cobalt: environment loaded from .env")
	}

	addr := flag.String("addr", ":8081", "listen address")
	catalogPath := flag.String("catalog", defaultCatalogPath(), "path to the SQLite run catalog (empty disables history)")
	inputPath := flag.String("input", "", "legacy source file for a one-shot run (skips the server)")
	outputPath := flag.String("output", "", "analysis output file for one-shot mode (default stdout)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("cobalt: config load failed", "error", err)
		fmt.Println("config error:", err)
		os.Exit(1)
	}

	provider := llm.NewProvider(cfg)
	logger.Info("cobalt: llm provider ready", "provider", provider.Name())

	pipelineOpts := pipeline.Options{
		ChunkSize: cfg.ChunkSize,
		Completion: llm.CompletionOptions{
			MaxAttempts:  cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		},
	}

	if strings.TrimSpace(*inputPath) != "" {
		if err := runOnce(provider, pipelineOpts, *inputPath, *outputPath); err != nil {
			logger.Error("cobalt: one-shot run failed", "error", err)
			fmt.Println("run error:", err)
			os.Exit(1)
		}
		return
	}

	var catalog *sqlite.Store
	if trimmed := strings.TrimSpace(*catalogPath); trimmed != "" {
		catalog, err = sqlite.Open(trimmed)
		if err != nil {
			logger.Error("cobalt: run catalog open failed", "path", trimmed, "error", err)
			fmt.Println("catalog error:", err)
			os.Exit(1)
		}
		defer catalog.Close()
		logger.Info("cobalt: run catalog ready", "path", trimmed)
	} else {
		logger.Info("cobalt: run history disabled")
	}

	var recorder workflow.RunRecorder
	var history api.RunCatalog
	if catalog != nil {
		recorder = catalog
		history = catalog
	}
	manager := workflow.NewManager(provider, pipelineOpts, recorder)

	server, err := api.NewServer(manager, history, provider)
	if err != nil {
		logger.Error("cobalt: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	logger.Info("cobalt: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("cobalt: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("cobalt: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

// runOnce runs the pipeline over a file and writes the analysis JSON,
// reporting chunk progress on stderr.
func runOnce(provider llm.Provider, opts pipeline.Options, inputPath, outputPath string) error {
	source, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	opts.Progress = func(p pipeline.Progress) {
		if p.Phase == pipeline.PhaseExtraction && p.ChunksTotal > 0 {
			fmt.Fprintf(os.Stderr, "extraction: chunk %d/%d\n", p.ChunksDone, p.ChunksTotal)
			return
		}
		fmt.Fprintf(os.Stderr, "%s...\n", p.Phase)
	}
	runner := pipeline.NewRunner(provider, opts)
	analysis, err := runner.Run(context.Background(), string(source))
	if err != nil {
		return err
	}
	encoded, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}
	if strings.TrimSpace(outputPath) == "" {
		fmt.Println(string(encoded))
		return nil
	}
	if err := os.WriteFile(outputPath, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("write analysis: %w", err)
	}
	return nil
}

func defaultCatalogPath() string {
	return filepath.Join("data", "runs.db")
}
