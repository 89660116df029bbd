// Package cmd implements the mdextract command line.
package cmd

import (
	"context"
	_ "embed"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ezerfernandes/mdextract/internal/config"
)

//go:embed help/root.md
var rootHelp string

// Execute runs the command line and exits with status 1 on failure.
func Execute(args []string, stdout, stderr io.Writer) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := execute(ctx, args, stdout, stderr)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := rootCmd()

	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	return root.ExecuteContext(ctx)
}

func rootCmd() *cobra.Command {
	opts := new(options)

	var flags extractFlags

	root := &cobra.Command{ //nolint:exhaustruct
		Use:   "mdextract [flags] [filename]",
		Short: "Extract files embedded in a Markdown document",
		Long:  rootHelp,
		Args:  cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.prepare(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return extractRun(cmd, opts, &flags, args)
		},

		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	root.PersistentFlags().StringVar(&opts.config, "config", "", "config file (default \""+config.DefaultFile+"\" when present)")
	root.PersistentFlags().StringVar(&opts.marker, "marker", "", "heading text that introduces a file path")
	root.PersistentFlags().StringSliceVarP(&opts.lang, "lang", "l", nil, "only units whose language matches one of these patterns")
	root.PersistentFlags().StringSliceVarP(&opts.paths, "path", "p", nil, "only units whose path matches one of these patterns")
	root.PersistentFlags().StringToStringVarP(&opts.meta, "meta", "m", nil, "only units whose code block metadata has these values")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "don't print progress and warnings")

	extractCmdFlags(root, opts, &flags)

	root.AddCommand(extractCmd(opts), listCmd(opts), execCmd(opts))

	return root
}
