package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mubumbutu/EPUB-and-SRT-Translator-with-LLM/internal/auth"
)

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the OpenRouter API key in the OS keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd)
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)

	set := &cobra.Command{
		Use:   "set",
		Short: "Save the API key to the keychain (prompt only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvSet(cmd)
		},
	}
	set.SetUsageTemplate(subcommandUsageTemplate)

	status := &cobra.Command{
		Use:   "status",
		Short: "Show key status (default if no action given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvStatus(cmd)
		},
	}
	status.SetUsageTemplate(subcommandUsageTemplate)

	clear := &cobra.Command{
		Use:   "clear",
		Short: "Delete the key from the keychain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnvClear(cmd)
		},
	}
	clear.SetUsageTemplate(subcommandUsageTemplate)

	cmd.AddCommand(set, status, clear)
	return cmd
}

func runEnvSet(cmd *cobra.Command) error {
	promptKey, err := auth.PromptForAPIKey("OpenRouter API Key: ")
	if err != nil {
		return fmt.Errorf("error reading key: %w", err)
	}
	key := strings.TrimSpace(promptKey)
	if key == "" {
		return fmt.Errorf("API key is required")
	}
	if err := auth.SaveKey(key); err != nil {
		return fmt.Errorf("failed to save key to keychain: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "OpenRouter API key saved to keychain.")
	return nil
}

func runEnvStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if auth.GetStatus() {
		fmt.Fprintln(out, "OpenRouter: key stored in keychain")
	} else {
		fmt.Fprintln(out, "OpenRouter: no key in keychain")
	}
	if _, ok := auth.GetEnvKey(); ok {
		fmt.Fprintln(out, "OPENROUTER_API_KEY: set (used only with --allow-env)")
	}
	return nil
}

func runEnvClear(cmd *cobra.Command) error {
	if err := auth.DeleteKey(); err != nil {
		return fmt.Errorf("failed to delete key from keychain: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "OpenRouter API key removed from keychain.")
	return nil
}
