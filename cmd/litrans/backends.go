package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/backend"
)

func newBackendsCmd() *cobra.Command {
	var baseURL string
	cmd := &cobra.Command{
		Use:   "backends",
		Short: "List supported backends and their reachability",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Backends:")
			for _, name := range []string{backend.NameLMStudio, backend.NameOllama, backend.NameOpenRouter} {
				status := "reachable"
				if err := backend.Probe(cmd.Context(), name, baseURL); err != nil {
					status = fmt.Sprintf("unreachable (%v)", err)
				}
				fmt.Fprintf(out, "  %-12s %s\n", name, status)
			}
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "Probe this base URL instead of each backend's default")
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
