// Package main provides the kimmi CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kimmiai/kimmi/chain"
	"github.com/kimmiai/kimmi/cli"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	provider   string
	modelName  string
	memoryKind string
	verbose    bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "kimmi",
		Short: "Conversational agent with a content ideation pipeline",
		Long: `Kimmi runs a tool-using conversational agent backed by pluggable
LLM providers, with a multi-stage content ideation pipeline for
social media strategy.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openrouter, openai, anthropic, gemini)")
	rootCmd.PersistentFlags().StringVarP(&modelName, "model", "m", "", "Model identifier (overrides provider default)")
	rootCmd.PersistentFlags().StringVar(&memoryKind, "memory", "file", "Memory backend (file, sqlite)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	// Add commands
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(ideateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(toolsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{
		Provider: provider,
		Model:    modelName,
		Memory:   memoryKind,
		Verbose:  verbose,
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [prompt]",
		Short: "Execute one agent turn for a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Run(context.Background(), args[0], options())
		},
	}
}

func ideateCmd() *cobra.Command {
	var trendSource string
	var notes string
	var style string
	var platform string

	cmd := &cobra.Command{
		Use:   "ideate [niche]",
		Short: "Run the content ideation pipeline for a niche",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := chain.Input{
				Niche:       args[0],
				TrendSource: trendSource,
				Notes:       notes,
				Style:       chain.Style(style),
				Platform:    platform,
			}
			return cli.Ideate(context.Background(), input, options())
		},
	}

	cmd.Flags().StringVar(&trendSource, "trend-source", "", "Where the trend signal came from")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form guidance for the pipeline")
	cmd.Flags().StringVar(&style, "style", string(chain.StyleAIDA), "Hook style (AIDA, PAS)")
	cmd.Flags().StringVar(&platform, "platform", "tiktok", "Target platform")

	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Serve(context.Background(), addr, options())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8000", "Listen address")

	return cmd
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListTools(verboseTools)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose", "V", false, "Show tool parameters")

	return cmd
}
