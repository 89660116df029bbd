package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/ezerfernandes/mdextract/internal/extract"
	"github.com/ezerfernandes/mdextract/internal/mdcode"
	"github.com/ezerfernandes/mdextract/internal/region"
)

//go:embed help/exec.md
var execHelp string

type execFlags struct {
	update bool
	batch  bool
}

func execCmd(opts *options) *cobra.Command {
	var flags execFlags

	cmd := &cobra.Command{ //nolint:exhaustruct
		Use:     "exec [flags] [filename] [-- command]",
		Aliases: []string{"e"},
		Short:   "Extract a document and run a shell command on each file",
		Long:    execHelp,
		Args:    checkargs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scr, args := script(cmd, args)
			if len(scr) == 0 {
				return errMissingCommand
			}

			if !changed(cmd, "dir") {
				dir, err := os.MkdirTemp(".", "mdextract-exec-")
				if err != nil {
					return err
				}

				opts.dir = dir

				if !opts.keep {
					defer os.RemoveAll(dir)
				}
			}

			return execRun(cmd.Context(), source(args, opts), opts, scr, flags, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},

		DisableAutoGenTag: true,
	}

	dirFlag(cmd, opts)
	pathFlags(cmd, opts)

	cmd.Flags().BoolVar(&flags.update, "update", false, "write modified files back into the document's code blocks")
	cmd.Flags().BoolVar(&flags.batch, "batch", false, "run command once for all files instead of once per file")
	cmd.Flags().BoolVarP(&opts.keep, "keep", "k", false, "don't remove temporary directory")

	return cmd
}

func execRun(ctx context.Context, filename string, opts *options, scr string, flags execFlags, stdout, stderr io.Writer) error {
	absDir, err := filepath.Abs(opts.dir)
	if err != nil {
		return err
	}

	src, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("%w: %w", extract.ErrInputUnreadable, err)
	}

	dir := extract.NewDir(absDir)

	files, err := opts.extractor(dir, stderr).Extract(ctx, src)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return nil
	}

	var failed map[int]bool

	if flags.batch {
		failed, err = execBatch(ctx, files, dir, scr, opts, stdout, stderr)
	} else {
		failed, err = execPerFile(ctx, files, dir, scr, opts, stdout, stderr)
	}

	if err != nil {
		return err
	}

	if flags.update {
		if err := updateDocument(filename, src, files, dir, failed, opts); err != nil {
			return err
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d file(s) failed", len(failed))
	}

	return nil
}

func execPerFile(ctx context.Context, files []*extract.File, dir *extract.Dir, scr string, opts *options, stdout, stderr io.Writer) (map[int]bool, error) {
	failed := make(map[int]bool)

	for index, file := range files {
		expanded := expandCommand(scr, index, file, dir)

		opts.status("--- %s (%s) : L%d-%d ---\n", file.Path, langLabel(file.Unit.Block.Lang), file.Unit.Block.StartLine, file.Unit.Block.EndLine)

		exitCode, err := runCommand(ctx, expanded, dir.Root(), stdout, stderr)
		if err != nil {
			return nil, err
		}

		if exitCode != 0 {
			failed[index] = true

			opts.status("warning: %s exited with %d\n", file.Path, exitCode)
		}
	}

	return failed, nil
}

func execBatch(ctx context.Context, files []*extract.File, dir *extract.Dir, scr string, opts *options, stdout, stderr io.Writer) (map[int]bool, error) {
	paths := make([]string, len(files))
	for i, file := range files {
		paths[i] = dir.Path(file.Name)
	}

	expanded := strings.ReplaceAll(scr, "{}", strings.Join(paths, " "))
	expanded = strings.ReplaceAll(expanded, "{dir}", dir.Root())

	opts.status("--- batch (%d files) ---\n", len(files))

	exitCode, err := runCommand(ctx, expanded, dir.Root(), stdout, stderr)
	if err != nil {
		return nil, err
	}

	failed := make(map[int]bool)

	if exitCode != 0 {
		opts.status("warning: command exited with %d\n", exitCode)

		for i := range files {
			failed[i] = true
		}
	}

	return failed, nil
}

// updateDocument copies the current content of every successfully processed
// file back into the code block it came from. When several blocks wrote the
// same file, only the last one is updated.
func updateDocument(filename string, src []byte, files []*extract.File, dir *extract.Dir, failed map[int]bool, opts *options) error {
	last := make(map[string]int, len(files))
	for i, file := range files {
		last[file.Name+"#"+file.Region] = i
	}

	index := 0

	modified, result, err := opts.scanner().Walk(src, func(unit *mdcode.Unit) error {
		if index >= len(files) || !opts.selects(unit) {
			return nil
		}

		file := files[index]
		current := index
		index++

		if failed[current] {
			opts.status("warning: skipping update of %s\n", file.Path)

			return nil
		}

		if last[file.Name+"#"+file.Region] != current {
			return nil
		}

		code, err := dir.ReadFile(file.Name)
		if err != nil {
			return err
		}

		if len(file.Region) != 0 {
			var found bool

			if code, found, err = region.Read(code, file.Region); err != nil {
				return err
			} else if !found {
				return fmt.Errorf("%w: %s", region.ErrRegionNotFound, file.Region)
			}
		}

		if len(code) != 0 && code[len(code)-1] != '\n' {
			code = append(code, '\n')
		}

		unit.Block.Code = code

		return nil
	})
	if err != nil {
		return err
	}

	if !modified {
		return nil
	}

	return os.WriteFile(filename, result, 0o644)
}

// selects reports whether the extractor would have kept unit.
func (opts *options) selects(unit *mdcode.Unit) bool {
	return opts.filter == nil || opts.filter(unit, extract.Normalize(unit.Path))
}

func expandCommand(scr string, index int, file *extract.File, dir *extract.Dir) string {
	expanded := strings.ReplaceAll(scr, "{}", dir.Path(file.Name))
	expanded = strings.ReplaceAll(expanded, "{path}", file.Name)
	expanded = strings.ReplaceAll(expanded, "{lang}", file.Unit.Block.Lang)
	expanded = strings.ReplaceAll(expanded, "{index}", fmt.Sprint(index))
	expanded = strings.ReplaceAll(expanded, "{dir}", dir.Root())

	return expanded
}

func runCommand(ctx context.Context, command, dir string, stdout, stderr io.Writer) (int, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(command), "")
	if err != nil {
		return -1, err
	}

	runner, err := interp.New(interp.Dir(dir), interp.StdIO(os.Stdin, stdout, stderr))
	if err != nil {
		return -1, err
	}

	err = runner.Run(ctx, file)
	if err != nil {
		if status, ok := interp.IsExitStatus(err); ok {
			return int(status), nil
		}

		return -1, err
	}

	return 0, nil
}

func langLabel(lang string) string {
	if len(lang) != 0 {
		return lang
	}

	return "-"
}

func checkargs(cmd *cobra.Command, args []string) error {
	n := len(args)
	if dash := cmd.ArgsLenAtDash(); dash >= 0 {
		n = dash
	}

	if n > 1 {
		return fmt.Errorf("accepts at most 1 filename, received %d", n)
	}

	return nil
}

func script(cmd *cobra.Command, args []string) (string, []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return "", args
	}

	return strings.Join(args[dash:], " "), args[:dash]
}

var errMissingCommand = fmt.Errorf("command is required after '--'")
