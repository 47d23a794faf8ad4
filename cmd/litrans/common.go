package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/auth"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/backend"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/language"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/logger"
)

var (
	isTerminal   = term.IsTerminal
	getKey       = auth.GetKey
	getEnvKey    = auth.GetEnvKey
	promptForKey = auth.PromptForAPIKey
)

// resolveAPIKey finds the OpenRouter key: keychain, then environment when
// allowed, then an interactive prompt. Local backends never need one.
func resolveAPIKey(backendName string, allowEnv, envOnly bool) (string, string, error) {
	if backendName != backend.NameOpenRouter {
		return "", "", nil
	}
	if envOnly {
		if key, ok := getEnvKey(); ok {
			return key, "Environment Variable", nil
		}
		return "", "", fmt.Errorf("env-only set but OPENROUTER_API_KEY is not set")
	}

	if key, source := getKey(false); key != "" {
		return key, source, nil
	}
	if allowEnv {
		if key, ok := getEnvKey(); ok {
			return key, "Environment Variable", nil
		}
	}

	if isTerminal(int(os.Stdin.Fd())) {
		key, err := promptForKey("OpenRouter API Key (press Enter to skip): ")
		if err != nil {
			return "", "", fmt.Errorf("error reading API key: %w", err)
		}
		if strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), "Terminal Prompt", nil
		}
	}

	if !isTerminal(int(os.Stdin.Fd())) {
		return "", "", fmt.Errorf("no API key available (non-interactive shell); set keychain or use --allow-env")
	}
	if allowEnv {
		return "", "", fmt.Errorf("API key is required; not found in keychain or environment")
	}
	return "", "", fmt.Errorf("API key is required; not found in keychain (environment disabled by default; use --allow-env)")
}

func resolveLanguageCode(input string) (string, error) {
	if lang, ok := language.GetLanguage(input); ok {
		return lang.Code, nil
	}
	needle := strings.TrimSpace(input)
	if needle == "" {
		return "", fmt.Errorf("language is empty")
	}
	for _, entry := range language.GetSupportedLanguages() {
		if strings.EqualFold(entry.Name, needle) {
			return entry.Code, nil
		}
	}
	return "", fmt.Errorf("unsupported language: %s", input)
}

var supportedInputExtensions = map[string]struct{}{
	".epub": {},
	".srt":  {},
}

var supportedSubtitleOutputExtensions = map[string]struct{}{
	".srt":  {},
	".vtt":  {},
	".ssa":  {},
	".ass":  {},
	".ttml": {},
	".stl":  {},
}

// validatePathExtensions checks the input/output pair makes sense: epub in,
// epub out; srt in, any supported subtitle format out.
func validatePathExtensions(inputPath, outputPath string) error {
	inExt := strings.ToLower(filepath.Ext(inputPath))
	if _, ok := supportedInputExtensions[inExt]; !ok {
		if inExt == "" {
			inExt = "(none)"
		}
		return fmt.Errorf("unsupported input extension %q (supported: .epub, .srt)", inExt)
	}
	outExt := strings.ToLower(filepath.Ext(outputPath))
	switch inExt {
	case ".epub":
		if outExt != ".epub" {
			return fmt.Errorf("epub input requires an .epub output, got %q", outExt)
		}
	case ".srt":
		if _, ok := supportedSubtitleOutputExtensions[outExt]; !ok {
			return fmt.Errorf("unsupported output extension %q (supported: .srt, .vtt, .ssa, .ass, .ttml, .stl)", outExt)
		}
	}
	return nil
}

func signalContext() (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("Cancellation requested")
		cancel()
	}()
	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
