package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/backend"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/batch"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/document"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/epub"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/files"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/glossary"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/language"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/logger"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/retrieval"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/srt"
)

// detectFormat maps the input extension to a document format.
func detectFormat(path string) (document.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return document.FormatEPUB, nil
	case ".srt":
		return document.FormatSRT, nil
	}
	return "", fmt.Errorf("unsupported input format %q (expected .epub or .srt)", filepath.Ext(path))
}

// RunTranslation executes the full pipeline: extract, build consistency
// context, schedule, dispatch, reassemble, write. The output file is only
// written after the full reassembly pass, so cancellation or partial failure
// never leaves a half-written document.
func RunTranslation(ctx context.Context, cfg Config) (Result, error) {
	var notes []string
	cfg, notes = cfg.Normalize()
	for _, note := range notes {
		logger.Warn("Config normalized", "detail", note)
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid configuration: %w", err)
	}

	runID := uuid.NewString()
	result := Result{RunID: runID}

	absIn, err := filepath.Abs(cfg.InputPath)
	if err != nil {
		return result, fmt.Errorf("failed to resolve input path: %w", err)
	}
	absOut, err := filepath.Abs(cfg.OutputPath)
	if err != nil {
		return result, fmt.Errorf("failed to resolve output path: %w", err)
	}
	if absIn == absOut {
		return result, fmt.Errorf("input and output files are the same (%s)", absIn)
	}
	if inInfo, err := os.Stat(absIn); err == nil {
		if outInfo, err := os.Stat(absOut); err == nil && os.SameFile(inInfo, outInfo) {
			return result, fmt.Errorf("input and output files are the same (%s)", absIn)
		}
	} else {
		return result, fmt.Errorf("failed to stat input path: %w", err)
	}
	if err := files.RejectSymlinkPath(cfg.OutputPath); err != nil {
		return result, err
	}

	shouldOverwrite := cfg.Overwrite
	outputExists := false
	if _, err := os.Stat(cfg.OutputPath); err == nil {
		outputExists = true
		if cfg.OnConfirmOverwrite != nil {
			shouldOverwrite = cfg.OnConfirmOverwrite(cfg.OutputPath)
		}
		if !shouldOverwrite {
			logger.Info("Output file exists. Aborted by user.", "path", cfg.OutputPath)
			result.Status = StatusSkipped
			return result, nil
		}
		logger.Info("Overwriting output file", "path", cfg.OutputPath)
	}

	srcLang, ok := language.GetLanguage(cfg.SourceLang)
	if !ok {
		return result, fmt.Errorf("unsupported source language: %s", cfg.SourceLang)
	}
	tgtLang, ok := language.GetLanguage(cfg.TargetLang)
	if !ok {
		return result, fmt.Errorf("unsupported target language: %s", cfg.TargetLang)
	}
	if srcLang.Code == tgtLang.Code {
		return result, fmt.Errorf("source and target languages must be different (%s)", srcLang.Code)
	}

	format, err := detectFormat(cfg.InputPath)
	if err != nil {
		return result, err
	}

	// Extract.
	var doc *document.Document
	var srtFile *srt.File
	var book *epub.Book
	switch format {
	case document.FormatSRT:
		srtFile, err = srt.Load(cfg.InputPath)
		if err != nil {
			return result, err
		}
		doc = srt.Extract(srtFile, cfg.InputPath, tgtLang)
	case document.FormatEPUB:
		book, err = epub.Open(cfg.InputPath)
		if err != nil {
			return result, err
		}
		doc = book.Extract()
	}
	units := doc.Units()
	result.TotalUnits = len(units)
	logger.Info("Extracted document", "run_id", runID, "format", format,
		"segments", len(doc.Segments), "units", len(units))

	// Consistency context, once per run.
	var seed []glossary.Entry
	seed = append(seed, cfg.Seed...)
	if cfg.GlossaryPath != "" {
		loaded, err := glossary.Load(cfg.GlossaryPath, srcLang.Code, tgtLang.Code)
		if err != nil {
			return result, err
		}
		seed = append(seed, loaded...)
		logger.Info("Loaded glossary", "count", len(loaded), "path", cfg.GlossaryPath)
	}
	ret := cfg.Retriever
	if ret == nil && !cfg.NoRetrieval && cfg.RetrievalURL != "" {
		ret = retrieval.NewHTTPRetriever(cfg.RetrievalURL)
	}
	if cfg.NoRetrieval {
		ret = nil
	}
	cc := retrieval.BuildContext(ctx, ret, doc, retrieval.BuildOptions{
		Query:  cfg.GlossaryQuery,
		Budget: cfg.ContextBudget,
		Seed:   seed,
	})
	if !cc.Empty() {
		logger.Info("Consistency context ready", "terms", len(cc.Entries))
	}

	client := cfg.Client
	if client == nil {
		client, err = backend.New(cfg.Backend, backend.Options{
			Model:       cfg.Model,
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
		})
		if err != nil {
			return result, err
		}
	}

	// Schedule and dispatch.
	batches := batch.Schedule(units, cfg.TokenBudget, cfg.MaxBatchUnits)
	result.TotalBatches = len(batches)
	logger.Info("Scheduled batches", "batches", len(batches), "backend", client.Name())

	dispatcher := &batch.Dispatcher{
		Client:      client,
		Concurrency: cfg.Concurrency,
		MaxAttempts: cfg.MaxAttempts,
		QPS:         batch.DefaultQPS,
		RampUp:      batch.DefaultRampUp,
		Source:      srcLang,
		Target:      tgtLang,
		Note:        cc.RenderNote(),
		Temperature: cfg.Temperature,
		OnProgress:  cfg.OnProgress,
	}
	merged, failedBatches := dispatcher.Run(ctx, batches)

	result.FailedBatches = len(failedBatches)
	for _, b := range failedBatches {
		result.FailedUnits += len(b.Units)
	}
	result.Status = statusOf(len(failedBatches), len(batches))

	mismatches := findMismatches(units, merged)
	for _, m := range mismatches {
		logger.Warn("Translation drifted from source", "unit", m.ID, "reason", m.Reason)
	}
	result.MismatchedUnits = len(mismatches)

	logger.Info("Translation finished", "run_id", runID, "status", result.Status,
		"failed_units", result.FailedUnits, "mismatched_units", result.MismatchedUnits)

	// Reassemble and write. Failed units pass through as source text, so
	// even a run where every batch failed still produces a complete,
	// structurally valid document.
	effectiveOutputPath := cfg.OutputPath
	if !(outputExists && shouldOverwrite) {
		safePath, changed, err := files.SafePath(cfg.OutputPath)
		if err != nil {
			return result, fmt.Errorf("failed to resolve output path: %w", err)
		}
		if changed {
			logger.Warn("Output path adjusted to avoid overwrite", "original", cfg.OutputPath, "effective", safePath)
			effectiveOutputPath = safePath
		}
	}

	switch format {
	case document.FormatSRT:
		if n := srt.OverlongLines(merged, tgtLang.MaxLineLen); n > 0 {
			logger.Warn("Translated lines exceed the per-line length hint", "lines", n, "max_len", tgtLang.MaxLineLen)
		}
		if err := srt.Save(effectiveOutputPath, srtFile, merged); err != nil {
			return result, fmt.Errorf("failed to save output file: %w", err)
		}
	case document.FormatEPUB:
		book.Reassemble(merged)
		if err := book.Write(effectiveOutputPath); err != nil {
			return result, fmt.Errorf("failed to save output file: %w", err)
		}
	}
	result.OutputPath = effectiveOutputPath
	logger.Info("Saved results", "path", effectiveOutputPath)
	return result, nil
}
