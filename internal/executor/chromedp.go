// Package executor provides step executors for the orchestrator: a
// chromedp-backed browser executor and a deterministic simulator.
package executor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/prowlqa/prowl/internal/logging"
	"github.com/prowlqa/prowl/internal/model"
)

// BrowserExecutor drives a headless Chrome instance via chromedp. Each
// Execute call runs the test case in a fresh tab so concurrent cases do
// not share page state.
type BrowserExecutor struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	stepTimeout time.Duration
}

// BrowserOptions configures the browser executor.
type BrowserOptions struct {
	Headless    bool
	StepTimeout time.Duration
}

// NewBrowserExecutor starts a shared Chrome allocator. Callers must Close
// the executor when done.
func NewBrowserExecutor(opts BrowserOptions) (*BrowserExecutor, error) {
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = 15 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(1280, 800),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)

	// Start the browser once so launch failures surface here as an
	// environment fault instead of inside the first test case.
	probeCtx, probeCancel := chromedp.NewContext(allocCtx)
	defer probeCancel()
	if err := chromedp.Run(probeCtx); err != nil {
		allocCancel()
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	return &BrowserExecutor{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		stepTimeout: opts.StepTimeout,
	}, nil
}

// Close shuts down the shared browser allocator.
func (e *BrowserExecutor) Close() {
	e.allocCancel()
}

// Execute runs every step of the test case in order, capturing a
// screenshot, DOM snapshot and console logs per step. Artifact emission
// stops after the first step whose result is error or assertion_failed.
// An error return is reserved for environment faults such as the tab
// failing to open.
func (e *BrowserExecutor) Execute(ctx context.Context, tc model.TestCase, outputDir string) (model.ExecutionAttempt, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(e.allocCtx)
	defer tabCancel()

	// Opening the tab is an environment concern; its failure is not a
	// test failure.
	if err := chromedp.Run(tabCtx); err != nil {
		return nil, fmt.Errorf("failed to open browser tab: %w", err)
	}

	var (
		consoleMu   sync.Mutex
		consoleLogs []string
	)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if call, ok := ev.(*runtime.EventConsoleAPICalled); ok {
			var parts []string
			for _, arg := range call.Args {
				parts = append(parts, string(arg.Value))
			}
			consoleMu.Lock()
			consoleLogs = append(consoleLogs, fmt.Sprintf("%s: %s", call.Type, strings.Join(parts, " ")))
			consoleMu.Unlock()
		}
	})

	artifacts := make(model.ExecutionAttempt, len(tc.Steps))
	logStart := 0

	for _, step := range tc.Steps {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		stepCtx, stepCancel := context.WithTimeout(tabCtx, e.stepTimeout)
		stepResult, stepErr := e.runStep(stepCtx, step)
		stepCancel()

		consoleMu.Lock()
		stepLogs := append([]string(nil), consoleLogs[logStart:]...)
		logStart = len(consoleLogs)
		consoleMu.Unlock()

		artifact := model.StepArtifact{
			StepResult:  stepResult,
			ConsoleLogs: stepLogs,
		}
		if stepErr != nil {
			artifact.Error = stepErr.Error()
		}

		// Screenshot and DOM snapshot are best-effort; a capture failure
		// leaves the fields empty rather than failing the step.
		screenshotPath := filepath.Join(outputDir, fmt.Sprintf("step%d.png", step.ID))
		var buf []byte
		capCtx, capCancel := context.WithTimeout(tabCtx, e.stepTimeout)
		if err := chromedp.Run(capCtx, chromedp.CaptureScreenshot(&buf)); err == nil {
			if err := os.WriteFile(screenshotPath, buf, 0644); err == nil {
				artifact.ScreenshotPath = screenshotPath
			}
		}
		var dom string
		if err := chromedp.Run(capCtx, chromedp.OuterHTML("html", &dom, chromedp.ByQuery)); err == nil {
			artifact.DOMSnapshot = dom
		}
		capCancel()

		artifacts[step.ID] = artifact

		if stepResult != model.StepOK {
			logging.Debug("case %s stopped at step %d: %s", tc.ID, step.ID, stepResult)
			break
		}
	}

	return artifacts, nil
}

// runStep executes a single step action and classifies its outcome.
func (e *BrowserExecutor) runStep(ctx context.Context, step model.Step) (string, error) {
	switch step.Action {
	case model.ActionNavigate:
		if err := chromedp.Run(ctx, chromedp.Navigate(step.Value)); err != nil {
			return model.StepError, fmt.Errorf("navigate to %s: %w", step.Value, err)
		}
	case model.ActionClick:
		if err := chromedp.Run(ctx, chromedp.Click(step.Selector, chromedp.ByQuery)); err != nil {
			return model.StepError, fmt.Errorf("click %s: %w", step.Selector, err)
		}
	case model.ActionType:
		if err := chromedp.Run(ctx, chromedp.SendKeys(step.Selector, step.Value, chromedp.ByQuery)); err != nil {
			return model.StepError, fmt.Errorf("type into %s: %w", step.Selector, err)
		}
	case model.ActionWaitFor:
		if err := chromedp.Run(ctx, chromedp.WaitVisible(step.Selector, chromedp.ByQuery)); err != nil {
			return model.StepError, fmt.Errorf("wait for %s: %w", step.Selector, err)
		}
	case model.ActionAssertText:
		var text string
		if err := chromedp.Run(ctx, chromedp.Text(step.Selector, &text, chromedp.ByQuery)); err != nil {
			return model.StepAssertionFailed, fmt.Errorf("read text of %s: %w", step.Selector, err)
		}
		if !strings.Contains(text, step.Value) {
			return model.StepAssertionFailed, fmt.Errorf("text of %s is %q, expected to contain %q", step.Selector, text, step.Value)
		}
	case model.ActionAssertElement:
		var ok bool
		script := fmt.Sprintf("document.querySelector(%q) !== null", step.Selector)
		if err := chromedp.Run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
			return model.StepAssertionFailed, fmt.Errorf("query %s: %w", step.Selector, err)
		}
		if !ok {
			return model.StepAssertionFailed, fmt.Errorf("element %s not found", step.Selector)
		}
	case model.ActionEvaluateJS:
		if err := chromedp.Run(ctx, chromedp.Evaluate(step.Value, nil)); err != nil {
			return model.StepError, fmt.Errorf("evaluate script: %w", err)
		}
	default:
		return model.StepError, fmt.Errorf("unknown action %q", step.Action)
	}
	return model.StepOK, nil
}
