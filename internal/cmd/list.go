package cmd

import (
	_ "embed"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

//go:embed help/list.md
var listHelp string

func listCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:     "list [flags] [filename]",
		Aliases: []string{"ls"},
		Short:   "List the units of a document without writing them",
		Long:    listHelp,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listRun(cmd, opts, source(args, opts))
		},

		DisableAutoGenTag: true,
	}

	pathFlags(cmd, opts)

	return cmd
}

func listRun(cmd *cobra.Command, opts *options, filename string) error {
	src, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if !utf8.Valid(src) {
		return fmt.Errorf("%s is not valid UTF-8", filename)
	}

	files, err := opts.extractor(nil, nil).Plan(src)
	if err != nil {
		return err
	}

	tbl := table.New("#", "Path", "Lang", "Lines", "Bytes").WithWriter(cmd.OutOrStdout())

	for i, file := range files {
		block := file.Unit.Block

		tbl.AddRow(i, file.Path, block.Lang, fmt.Sprintf("L%d-%d", block.StartLine, block.EndLine), len(file.Content))
	}

	tbl.Print()

	return nil
}
