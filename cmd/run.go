package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/prowlqa/prowl/internal/analyzer"
	"github.com/prowlqa/prowl/internal/config"
	"github.com/prowlqa/prowl/internal/executor"
	"github.com/prowlqa/prowl/internal/feedback"
	"github.com/prowlqa/prowl/internal/llm"
	"github.com/prowlqa/prowl/internal/logging"
	"github.com/prowlqa/prowl/internal/model"
	"github.com/prowlqa/prowl/internal/orchestrator"
	"github.com/prowlqa/prowl/internal/planner"
	"github.com/prowlqa/prowl/internal/ranker"
	"github.com/prowlqa/prowl/internal/report"
	"github.com/prowlqa/prowl/internal/vectorstore"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate, rank and execute test cases against a target URL",
	Long: `Run a full testing pass: generate candidate test cases, rank them,
execute the top candidates twice each to verify reproducibility, and
record outcomes in the feedback store for future learning.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("url", "", "target URL (overrides config)")
	runCmd.Flags().String("goal", "", "testing goal (overrides config)")
	runCmd.Flags().Int("count", 20, "candidates to generate")
	runCmd.Flags().Int("top", 0, "ranked candidates to execute (default from config)")
	runCmd.Flags().Int("concurrency", 0, "max in-flight test cases (default from config)")
	runCmd.Flags().Bool("simulate", false, "use the deterministic simulator instead of a browser")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := prowlConfig

	url, _ := cmd.Flags().GetString("url")
	if url == "" {
		url = cfg.Target.URL
	}
	if url == "" {
		return fmt.Errorf("no target URL: pass --url or set target.url in config")
	}
	goal, _ := cmd.Flags().GetString("goal")
	if goal == "" {
		goal = cfg.Target.Goal
	}
	if goal == "" {
		goal = "explore core functionality"
	}
	count, _ := cmd.Flags().GetInt("count")
	topN, _ := cmd.Flags().GetInt("top")
	if topN <= 0 {
		topN = cfg.Execution.TopN
	}
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	if concurrency <= 0 {
		concurrency = cfg.Execution.Concurrency
	}
	simulate, _ := cmd.Flags().GetBool("simulate")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Shared infrastructure failures abort the run up front; losing
	// feedback data silently would corrupt the learning signal.
	store, err := feedback.NewStore(cfg.Learning.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open feedback store: %w", err)
	}
	defer store.Close()

	index := buildIndex(ctx, cfg)
	var client llm.Client
	if cfg.AI.APIKey != "" {
		client = llm.NewOpenAIClient(cfg.AI.APIKey, cfg.AI.Endpoint, cfg.AI.Model)
	}

	var exec orchestrator.Executor
	if simulate {
		exec = executor.NewSimulator()
	} else {
		browser, err := executor.NewBrowserExecutor(executor.BrowserOptions{
			Headless:    cfg.Execution.Headless,
			StepTimeout: cfg.Execution.StepTimeout,
		})
		if err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}
		defer browser.Close()
		exec = browser
	}

	runID := uuid.NewString()
	if err := runRegistry.Begin(runID); err != nil {
		return err
	}

	rep, err := executeRun(ctx, runPlan{
		runID:       runID,
		url:         url,
		goal:        goal,
		count:       count,
		topN:        topN,
		concurrency: concurrency,
		artifacts:   cfg.Execution.ArtifactsDir,
		minScore:    cfg.Learning.MinScore,
	}, client, index, store, exec)
	if err != nil {
		if ferr := runRegistry.Fail(runID, err.Error()); ferr != nil {
			logging.Warn("failed to mark run failed: %v", ferr)
		}
		return err
	}
	if err := runRegistry.Complete(runID, rep); err != nil {
		logging.Warn("failed to mark run complete: %v", err)
	}

	// The registry snapshot is the source of truth for run status.
	run, _ := runRegistry.Get(runID)
	fmt.Printf("Run %s %s: %d total, %d passed, %d failed, %d flaky, %d errors\n",
		runID, run.Status, rep.Summary["total"], rep.Summary["passed"],
		rep.Summary["failed"], rep.Summary["flaky"], rep.Summary["errors"])
	fmt.Printf("Report written to %s\n", filepath.Join(cfg.Execution.ArtifactsDir, runID, "report.json"))
	return nil
}

type runPlan struct {
	runID       string
	url         string
	goal        string
	count       int
	topN        int
	concurrency int
	artifacts   string
	minScore    int
}

// executeRun is the pipeline: generate, rank, execute, triage, report,
// then feed outcomes back into the store and index.
func executeRun(ctx context.Context, plan runPlan, client llm.Client, index vectorstore.Index, store *feedback.Store, exec orchestrator.Executor) (*model.RunReport, error) {
	gen := planner.NewLLMGenerator(client, index, store)
	candidates, err := gen.Generate(ctx, plan.url, plan.goal, plan.count)
	if err != nil {
		return nil, fmt.Errorf("candidate generation failed: %w", err)
	}
	logging.Info("generated %d candidates", len(candidates))

	selected := ranker.Rank(candidates, plan.topN)
	logging.Info("executing top %d candidates", len(selected))

	orch := orchestrator.New(exec, plan.concurrency)
	artifactsRoot := filepath.Join(plan.artifacts, plan.runID)
	results := orch.Run(ctx, selected, artifactsRoot)

	var triageNotes map[string]string
	if client != nil {
		triageNotes = analyzer.NewTriager(client).Notes(ctx, results)
	}

	rep := report.Build(plan.runID, plan.url, results, triageNotes)
	if err := report.WriteJSON(artifactsRoot, rep); err != nil {
		return nil, err
	}
	if err := report.WriteMarkdown(artifactsRoot, rep); err != nil {
		return nil, err
	}

	loop := feedback.NewLoopManager(store, index, plan.minScore)
	stored, indexed, err := loop.ProcessExecutionResults(ctx, plan.runID, selected, results)
	if err != nil {
		return nil, fmt.Errorf("failed to record outcomes: %w", err)
	}
	logging.Info("stored %d outcomes, indexed %d reproducible passes", stored, indexed)

	return rep, nil
}

// buildIndex prefers Weaviate and degrades to the in-memory index when
// the instance is unreachable.
func buildIndex(ctx context.Context, cfg *config.Config) vectorstore.Index {
	embedder := buildEmbedder(cfg)
	scheme := "https"
	if cfg.Learning.WeaviateHTTP {
		scheme = "http"
	}
	if host := cfg.Learning.WeaviateHost; host != "" {
		w, err := vectorstore.NewWeaviate(ctx, host, scheme, embedder)
		if err == nil {
			return w
		}
		logging.Warn("weaviate unavailable at %s, using in-memory index: %v", host, err)
	}
	return vectorstore.NewMemory(embedder)
}

func buildEmbedder(cfg *config.Config) vectorstore.Embedder {
	if cfg.AI.APIKey != "" {
		return vectorstore.NewOpenAIEmbedder(cfg.AI.APIKey, cfg.AI.Endpoint, cfg.AI.EmbeddingModel)
	}
	return vectorstore.LocalEmbedder{}
}
