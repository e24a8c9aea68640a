// Command protoc-plan plans .proto files without protoc.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/yaroher/protoc-gen-go-plan/logger"
)

type command interface {
	help() *commandHelp
	flags(flags *pflag.FlagSet)
	run(ctx context.Context, argv []string) int
}

type commandHelp struct {
	usage   string
	summary string
}

type exitCode int

func (c exitCode) Error() string {
	return fmt.Sprintf("exit status %d", int(c))
}

func newRootCommand(ctx context.Context, stdout, stderr io.Writer) *cobra.Command {
	var logLevel string
	rootCmd := &cobra.Command{
		Use:           "protoc-plan [options] COMMAND",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(*cobra.Command, []string) {
			if logLevel != "" {
				logger.SetLevel(logger.ParseLevel(logLevel))
			}
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	commands := []command{
		&cmdPlan{stdout: stdout, stderr: stderr},
		&cmdDeps{stdout: stdout, stderr: stderr},
	}
	for _, cmd := range commands {
		help := cmd.help()
		cobraCmd := &cobra.Command{
			Use:   help.usage,
			Short: help.summary,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				if code := cmd.run(ctx, args); code != 0 {
					return exitCode(code)
				}
				return nil
			},
		}
		cmd.flags(cobraCmd.Flags())
		rootCmd.AddCommand(cobraCmd)
	}
	return rootCmd
}

func main() {
	rootCmd := newRootCommand(context.Background(), os.Stdout, os.Stderr)
	if _, err := rootCmd.ExecuteC(); err != nil {
		if code, ok := err.(exitCode); ok {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
