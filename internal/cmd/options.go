package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/ezerfernandes/mdextract/internal/config"
	"github.com/ezerfernandes/mdextract/internal/extract"
	"github.com/ezerfernandes/mdextract/internal/mdcode"
)

type statusFunc func(format string, args ...interface{})

type options struct {
	config      string
	input       string
	dir         string
	marker      string
	lang        []string
	paths       []string
	meta        map[string]string
	quiet       bool
	allowEscape bool
	regions     bool
	keep        bool

	filter extract.Filter
	status statusFunc
}

func (opts *options) createStatus(out io.Writer) {
	if opts.quiet {
		opts.status = func(string, ...interface{}) {}

		return
	}

	opts.status = func(format string, args ...interface{}) {
		fmt.Fprintf(out, format, args...)
	}
}

// prepare fills every flag the user did not set from the config file and
// builds the unit filter.
func (opts *options) prepare(cmd *cobra.Command) error {
	cfg := config.NewDefault()

	if changed(cmd, "config") {
		if err := config.Load(opts.config, cfg); err != nil {
			return err
		}
	} else if _, err := config.LoadOptional(config.DefaultFile, cfg); err != nil {
		return err
	}

	opts.input = cfg.Input

	if !changed(cmd, "dir") {
		opts.dir = cfg.Dir
	}

	if !changed(cmd, "marker") {
		opts.marker = cfg.Marker
	}

	if !changed(cmd, "lang") {
		opts.lang = cfg.Lang
	}

	if !changed(cmd, "path") {
		opts.paths = cfg.Paths
	}

	if !changed(cmd, "meta") {
		opts.meta = cfg.Meta
	}

	if !changed(cmd, "allow-escape") {
		opts.allowEscape = cfg.AllowEscape
	}

	if !changed(cmd, "regions") {
		opts.regions = cfg.Regions
	}

	opts.createStatus(cmd.ErrOrStderr())

	var err error

	opts.filter, err = filter(opts.lang, opts.paths, opts.meta)

	return err
}

func (opts *options) scanner() *mdcode.Scanner {
	return &mdcode.Scanner{
		Marker: opts.marker,
		Warn: func(line int, err error) {
			opts.status("warning: line %d: %v\n", line, err)
		},
	}
}

func (opts *options) extractor(target extract.Target, progress io.Writer) *extract.Extractor {
	if opts.quiet {
		progress = io.Discard
	}

	return &extract.Extractor{
		Target:      target,
		Scanner:     opts.scanner(),
		Filter:      opts.filter,
		AllowEscape: opts.allowEscape,
		Regions:     opts.regions,
		Progress:    progress,
	}
}

func changed(cmd *cobra.Command, name string) bool {
	flag := cmd.Flag(name)

	return flag != nil && flag.Changed
}

func filter(langs, paths []string, meta map[string]string) (extract.Filter, error) {
	lower := make([]string, len(langs))
	for i, lang := range langs {
		lower[i] = strings.ToLower(lang)
	}

	langGlobs, err := compileGlobs(lower)
	if err != nil {
		return nil, err
	}

	pathGlobs, err := compileGlobs(paths, '/')
	if err != nil {
		return nil, err
	}

	return func(unit *mdcode.Unit, path string) bool {
		return matchAny(langGlobs, strings.ToLower(unit.Block.Lang)) &&
			matchAny(pathGlobs, path) &&
			unit.Block.Meta.Matches(meta)
	}, nil
}

func compileGlobs(patterns []string, separators ...rune) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))

	for _, pattern := range patterns {
		if pattern == "*" {
			return nil, nil
		}

		g, err := glob.Compile(pattern, separators...)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}

		globs = append(globs, g)
	}

	return globs, nil
}

// matchAny reports whether value matches one of globs. No globs match all.
func matchAny(globs []glob.Glob, value string) bool {
	if len(globs) == 0 {
		return true
	}

	for _, g := range globs {
		if g.Match(value) {
			return true
		}
	}

	return false
}

func source(args []string, opts *options) string {
	if len(args) != 0 {
		return args[0]
	}

	return opts.input
}
