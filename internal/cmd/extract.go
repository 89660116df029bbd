package cmd

import (
	"context"
	_ "embed"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ezerfernandes/mdextract/internal/extract"
)

//go:embed help/extract.md
var extractHelp string

type extractFlags struct {
	dryRun bool
	watch  bool
}

func extractCmd(opts *options) *cobra.Command {
	var flags extractFlags

	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:     "extract [flags] [filename]",
		Aliases: []string{"x"},
		Short:   "Write every unit of a document to its file",
		Long:    extractHelp,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return extractRun(cmd, opts, &flags, args)
		},

		DisableAutoGenTag: true,
	}

	extractCmdFlags(cmd, opts, &flags)

	return cmd
}

func extractCmdFlags(cmd *cobra.Command, opts *options, flags *extractFlags) {
	dirFlag(cmd, opts)
	pathFlags(cmd, opts)

	cmd.Flags().BoolVarP(&flags.dryRun, "dry-run", "n", false, "report what would be written without touching the disk")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "extract again whenever the document changes")
}

func dirFlag(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringVarP(&opts.dir, "dir", "d", ".", "output root the unit paths are relative to")
}

func pathFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().BoolVar(&opts.allowEscape, "allow-escape", false, "honour absolute paths and paths leaving the output root")
	cmd.Flags().BoolVar(&opts.regions, "regions", false, "write \"file#name\" units into the named #region of file")
}

func extractRun(cmd *cobra.Command, opts *options, flags *extractFlags, args []string) error {
	input := source(args, opts)

	run := func(ctx context.Context) error {
		dir := extract.NewDir(opts.dir)
		ex := opts.extractor(dir, cmd.OutOrStdout())

		if flags.dryRun {
			ex.Target = extract.NewOverlay(dir)
			ex.Verb = "Would extract"
		}

		_, err := ex.Run(ctx, input)

		return err
	}

	if !flags.watch {
		return run(cmd.Context())
	}

	level := slog.LevelInfo
	if opts.quiet {
		level = slog.LevelWarn
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if err := run(cmd.Context()); err != nil {
		logger.Error("extract failed", slog.String("input", input), slog.String("error", err.Error()))
	}

	return watch(cmd.Context(), input, run, logger)
}
