package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/document"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/epub"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/glossary"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/language"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/retrieval"
	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/srt"
)

type glossaryOptions struct {
	sourceLang    string
	targetLang    string
	retrievalURL  string
	query         string
	contextBudget int
}

func newGlossaryCmd() *cobra.Command {
	opts := glossaryOptions{}
	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "Build and inspect term glossaries",
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.PersistentFlags().StringVar(&opts.sourceLang, "source", "en", "Source language code")
	cmd.PersistentFlags().StringVar(&opts.targetLang, "target", "fr", "Target language code")

	build := &cobra.Command{
		Use:   "build <input.(epub|srt)> <output.json>",
		Short: "Build a glossary from retrieval hits for a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGlossaryBuild(cmd, args, &opts)
		},
		SilenceUsage: true,
	}
	build.Flags().StringVar(&opts.retrievalURL, "retrieval-url", "", "Base URL of the snippet retrieval service (required)")
	build.Flags().StringVar(&opts.query, "query", "", "Retrieval query overriding the document-derived default")
	build.Flags().IntVar(&opts.contextBudget, "context-budget", 0, "Token cap for the built glossary (0 = uncapped)")
	build.SetUsageTemplate(subcommandUsageTemplate)

	show := &cobra.Command{
		Use:   "show <glossary.json>",
		Short: "Print the entries of a glossary file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGlossaryShow(cmd, args[0], &opts)
		},
		SilenceUsage: true,
	}
	show.SetUsageTemplate(subcommandUsageTemplate)

	cmd.AddCommand(build, show)
	return cmd
}

func runGlossaryBuild(cmd *cobra.Command, args []string, opts *glossaryOptions) error {
	if opts.retrievalURL == "" {
		return fmt.Errorf("--retrieval-url is required")
	}
	sourceCode, err := resolveLanguageCode(opts.sourceLang)
	if err != nil {
		return err
	}
	targetCode, err := resolveLanguageCode(opts.targetLang)
	if err != nil {
		return err
	}
	tgtLang, _ := language.GetLanguage(targetCode)

	var doc *document.Document
	switch strings.ToLower(filepath.Ext(args[0])) {
	case ".srt":
		f, err := srt.Load(args[0])
		if err != nil {
			return err
		}
		doc = srt.Extract(f, args[0], tgtLang)
	case ".epub":
		book, err := epub.Open(args[0])
		if err != nil {
			return err
		}
		doc = book.Extract()
	default:
		return fmt.Errorf("unsupported input extension %q (supported: .epub, .srt)", filepath.Ext(args[0]))
	}

	ret := retrieval.NewHTTPRetriever(opts.retrievalURL)
	cc := retrieval.BuildContext(cmd.Context(), ret, doc, retrieval.BuildOptions{
		Query:  opts.query,
		Budget: opts.contextBudget,
	})
	if len(cc.Entries) == 0 {
		return fmt.Errorf("retrieval produced no glossary entries")
	}
	if err := glossary.Save(args[1], cc.Entries, sourceCode, targetCode); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %d entries to %s\n", len(cc.Entries), args[1])
	return nil
}

func runGlossaryShow(cmd *cobra.Command, path string, opts *glossaryOptions) error {
	sourceCode, err := resolveLanguageCode(opts.sourceLang)
	if err != nil {
		return err
	}
	targetCode, err := resolveLanguageCode(opts.targetLang)
	if err != nil {
		return err
	}
	entries, err := glossary.Load(path, sourceCode, targetCode)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", e.Source, e.Target)
	}
	return nil
}
