// Package cli implements the llmapi command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"llmapi/internal/config"
)

// Version is stamped at build time with -ldflags "-X llmapi/internal/cli.Version=...".
var Version = "0.1.0"

// Indirections for tests.
var fnServe = serve

func buildRootCmd(stdout, stderr io.Writer) *cobra.Command {
	f := &Flags{}
	root := &cobra.Command{
		Use:           "llmapi",
		Short:         "LLM API with Ollama",
		Long:          "HTTP API relaying health, model listing and text generation to a local Ollama server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return fnServe(ctx, f, f.overrides(cmd), stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	f.register(root)

	var format string
	configCmd := &cobra.Command{
		Use:     "config",
		Short:   "Print the effective configuration",
		Example: "  llmapi config --format toml > llmapi.toml",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := f.loadSettings(f.overrides(cmd))
			if err != nil {
				return err
			}
			return config.Dump(s, format, cmd.OutOrStdout())
		},
	}
	configCmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml|json|toml")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "llmapi %s\n", Version)
		},
	}

	root.AddCommand(configCmd, versionCmd)
	return root
}

// MainWithArgs runs the CLI and returns the process exit code.
func MainWithArgs(args []string) int {
	return run(context.Background(), args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := buildRootCmd(stdout, stderr)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/llmapi.
func Main() int { return MainWithArgs(os.Args[1:]) }
