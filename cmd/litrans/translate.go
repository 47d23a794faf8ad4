package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/batch"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/cleanup"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/files"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/logger"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/pipeline"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/prompt"
)

type translateOptions struct {
	backendName   string
	modelName     string
	temperature   float64
	tokenBudget   int
	maxBatch      int
	concurrency   int
	retries       int
	glossaryPath  string
	glossaryQuery string
	retrievalURL  string
	contextBudget int
	noRetrieval   bool
	yes           bool
	logFilePath   string
	sourceLang    string
	targetLang    string
	allowEnv      bool
	envOnly       bool
	debug         bool
}

func newTranslateCmd() *cobra.Command {
	opts := translateOptions{}
	cmd := &cobra.Command{
		Use:   "translate <input.(epub|srt)> <output>",
		Short: "Translate an ebook or subtitle file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				_ = cmd.Usage()
				return fmt.Errorf("input and output files are required")
			}
			return runTranslate(cmd, args, &opts)
		},
		SilenceUsage: true,
	}

	cmd.SetUsageTemplate(subcommandUsageTemplate)
	addTranslateFlags(cmd, &opts)
	return cmd
}

func addTranslateFlags(cmd *cobra.Command, opts *translateOptions) {
	cmd.Flags().StringVar(&opts.backendName, "backend", "lmstudio", "Backend: lmstudio, ollama, or openrouter")
	cmd.Flags().StringVar(&opts.modelName, "model", "", "Model name (required for ollama and openrouter)")
	cmd.Flags().Float64Var(&opts.temperature, "temperature", 0.3, "Sampling temperature")
	cmd.Flags().IntVar(&opts.tokenBudget, "token-budget", pipeline.DefaultTokenBudget, "Estimated token budget per batch")
	cmd.Flags().IntVar(&opts.maxBatch, "max-batch", pipeline.DefaultBatchUnits, "Maximum units per batch")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 4, "Number of concurrent backend requests (1-20)")
	cmd.Flags().IntVar(&opts.retries, "retries", 3, "Attempts per batch before passthrough")
	cmd.Flags().StringVar(&opts.glossaryPath, "glossary", "", "Path to a glossary JSON file")
	cmd.Flags().StringVar(&opts.glossaryQuery, "glossary-query", "", "Retrieval query overriding the document-derived default")
	cmd.Flags().StringVar(&opts.retrievalURL, "retrieval-url", "", "Base URL of the snippet retrieval service")
	cmd.Flags().IntVar(&opts.contextBudget, "context-budget", pipeline.DefaultContextCap, "Token budget for the consistency context")
	cmd.Flags().BoolVar(&opts.noRetrieval, "no-retrieval", false, "Skip the retrieval step entirely")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Overwrite output file without asking")
	cmd.Flags().StringVar(&opts.logFilePath, "log-file", "", "Path to save machine-readable JSONL logs")
	cmd.Flags().StringVar(&opts.sourceLang, "source", "en", "Source language code")
	cmd.Flags().StringVar(&opts.targetLang, "target", "fr", "Target language code")
	cmd.Flags().BoolVar(&opts.allowEnv, "allow-env", false, "Allow reading the API key from environment variables")
	cmd.Flags().BoolVar(&opts.envOnly, "env-only", false, "Use only environment variables for the API key")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
}

func runTranslate(cmd *cobra.Command, args []string, opts *translateOptions) error {
	if len(args) < 2 {
		return fmt.Errorf("input and output files are required")
	}
	if len(args) > 2 {
		fmt.Fprintf(os.Stderr, "Warning: expected 2 arguments but got %d. Did you forget quotes around file paths?\n", len(args))
		fmt.Fprintf(os.Stderr, "  Using input: %s\n", args[0])
		fmt.Fprintf(os.Stderr, "  Using output: %s\n", args[1])
	}
	if err := validatePathExtensions(args[0], args[1]); err != nil {
		return err
	}

	logLevel := logger.LevelInfo
	if opts.debug {
		logLevel = logger.LevelDebug
	}
	var logFileW io.Writer
	if opts.logFilePath != "" {
		if err := files.RejectSymlinkPath(opts.logFilePath); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		cleanup.Register("log file", f.Close)
		logFileW = f
	}
	logger.Init(logLevel, logFileW)

	startTime := time.Now()

	sourceCode, err := resolveLanguageCode(opts.sourceLang)
	if err != nil {
		return err
	}
	targetCode, err := resolveLanguageCode(opts.targetLang)
	if err != nil {
		return err
	}

	apiKey, source, err := resolveAPIKey(opts.backendName, opts.allowEnv, opts.envOnly)
	if err != nil {
		return err
	}
	if source != "" {
		logger.Info("Using API Key", "backend", opts.backendName, "source", source)
	}

	cfg := pipeline.Config{
		InputPath:     args[0],
		OutputPath:    args[1],
		LogPath:       opts.logFilePath,
		Backend:       opts.backendName,
		Model:         opts.modelName,
		APIKey:        apiKey,
		Temperature:   opts.temperature,
		TokenBudget:   opts.tokenBudget,
		MaxBatchUnits: opts.maxBatch,
		Concurrency:   opts.concurrency,
		MaxAttempts:   opts.retries,
		GlossaryPath:  opts.glossaryPath,
		GlossaryQuery: opts.glossaryQuery,
		RetrievalURL:  opts.retrievalURL,
		ContextBudget: opts.contextBudget,
		NoRetrieval:   opts.noRetrieval,
		SourceLang:    sourceCode,
		TargetLang:    targetCode,
		Overwrite:     opts.yes,
		OnProgress: func(p batch.Progress) {
			switch p.State {
			case batch.StateCompleted:
				logger.Info("Batch completed", "index", p.BatchIndex, "total", p.TotalBatches)
			case batch.StateRetrying:
				logger.Warn("Batch retry", "index", p.BatchIndex, "attempt", p.Attempt, "error", p.Error)
			}
		},
		OnConfirmOverwrite: func(path string) bool {
			confirmed, err := prompt.Terminal().AllowOverwrite(path, opts.yes)
			if err != nil {
				logger.Error("Overwrite confirmation failed", "error", err)
				return false
			}
			return confirmed
		},
	}

	ctx, stop := signalContext()
	defer stop()
	result, err := pipeline.RunTranslation(ctx, cfg)

	printRunReport(result, time.Since(startTime))

	if err != nil {
		if ctx.Err() != nil {
			logger.Warn("Translation canceled", "error", err)
			return nil
		}
		return err
	}
	return statusError(result)
}

func printRunReport(result pipeline.Result, duration time.Duration) {
	fmt.Println("\n--- Run Report ---")
	fmt.Printf("Status: %s\n", result.Status)
	fmt.Printf("Time: %s\n", duration)
	if result.TotalUnits > 0 {
		fmt.Printf("Units: %d total, %d untranslated\n", result.TotalUnits, result.FailedUnits)
	}
	if result.MismatchedUnits > 0 {
		fmt.Printf("Review: %d unit(s) with numbers, URLs or brackets that changed in translation\n", result.MismatchedUnits)
	}
	if result.OutputPath != "" {
		fmt.Printf("Output: %s\n", result.OutputPath)
	}
}

func statusError(result pipeline.Result) error {
	switch result.Status {
	case pipeline.StatusSuccess, pipeline.StatusSkipped:
		return nil
	case pipeline.StatusPartialSuccess, pipeline.StatusFailure:
		return fmt.Errorf("translation finished with status: %s (%d of %d units untranslated)",
			result.Status, result.FailedUnits, result.TotalUnits)
	default:
		return fmt.Errorf("translation finished with unknown status: %q", result.Status)
	}
}
