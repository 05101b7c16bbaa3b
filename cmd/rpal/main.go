package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/ravindusw/rpal-interpreter/rpal"
)

// Config holds the command-line configuration.
type Config struct {
	AST      bool
	ST       bool
	Debug    bool
	TraceDir string
	File     string
}

func main() {
	var cfg Config

	rootCmd := &cobra.Command{
		Use:   "rpal [flags] <file>",
		Short: "RPAL language interpreter",
		Long: `rpal evaluates a program written in RPAL, a small applicative
language, printing whatever the program Prints.`,
		Example: `  # Evaluate a program
  rpal program.rpal

  # Print the abstract syntax tree and exit
  rpal --ast program.rpal

  # Print the standardized tree and exit
  rpal --st program.rpal

  # Dump the machine's control and value stacks after each step
  rpal --trace ./csem_output program.rpal`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.File = args[0]
			return run(cfg)
		},
	}

	rootCmd.Flags().BoolVar(&cfg.AST, "ast", false, "Print the abstract syntax tree and exit")
	rootCmd.Flags().BoolVar(&cfg.ST, "st", false, "Print the standardized tree and exit")
	rootCmd.Flags().BoolVarP(&cfg.Debug, "debug", "d", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&cfg.TraceDir, "trace", "", "Directory for control_stack/value_stack dumps")

	ctx := context.Background()
	if err := fang.Execute(ctx, rootCmd,
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			_, _ = fmt.Fprintln(w, err.Error())
		}),
	); err != nil {
		os.Exit(1)
	}
}

func run(cfg Config) error {
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if cfg.AST && cfg.ST {
		return fmt.Errorf("cannot use both --ast and --st")
	}

	source, err := os.ReadFile(cfg.File)
	if err != nil {
		return fmt.Errorf("reading %s: %w", cfg.File, err)
	}

	in := rpal.NewInterpreter(os.Stdout)
	in.Log = logger
	in.TraceDir = cfg.TraceDir

	switch {
	case cfg.AST:
		return in.WriteAST(os.Stdout, string(source))
	case cfg.ST:
		return in.WriteST(os.Stdout, string(source))
	default:
		result, err := in.Run(string(source))
		if err != nil {
			return err
		}
		logger.Debug("evaluation finished", "result", result.Format())
		return nil
	}
}
