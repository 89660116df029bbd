// Package extract writes the units of a Markdown document to files.
//
// A run has two phases. Planning scans the document, normalises and checks
// every path, and fails before anything is written. Writing then commits the
// files one by one in document order; a failure stops the run and leaves the
// files already written in place.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"unicode/utf8"

	"github.com/ezerfernandes/mdextract/internal/mdcode"
	"github.com/ezerfernandes/mdextract/internal/region"
)

var (
	// ErrInputUnreadable wraps failures to read the source document.
	ErrInputUnreadable = errors.New("input unreadable")
	// ErrDestinationWrite wraps failures to create a directory or write a file.
	ErrDestinationWrite = errors.New("destination write failed")
	// ErrPathEscapes is returned for absolute paths and paths that leave the
	// output root, unless escapes are allowed.
	ErrPathEscapes = errors.New("path escapes output root")
	ErrEmptyPath   = errors.New("empty path")
)

// Filter reports whether unit, whose effective path is given, is extracted.
type Filter func(unit *mdcode.Unit, path string) bool

// File is one unit resolved against the output root.
type File struct {
	// Path is the effective relative path, as reported.
	Path string
	// Name is the cleaned target name the content is written to.
	Name string
	// Region is set when the content replaces a named region of Name.
	Region  string
	Content []byte
	Unit    *mdcode.Unit
}

// Extractor extracts units into Target.
type Extractor struct {
	Target  Target
	Scanner *mdcode.Scanner
	Filter  Filter
	// AllowEscape honours absolute paths and paths containing "..".
	AllowEscape bool
	// Regions makes "file#name" paths splice into the named region of an
	// existing file instead of replacing it.
	Regions bool
	// Progress receives one line per written file.
	Progress io.Writer
	// Verb starts each progress line. Empty means "Extracted".
	Verb string
}

// Run reads the document at input and extracts it.
func (e *Extractor) Run(ctx context.Context, input string) ([]*File, error) {
	source, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInputUnreadable, err)
	}

	if !utf8.Valid(source) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", ErrInputUnreadable, input)
	}

	return e.Extract(ctx, source)
}

// Extract plans and writes the units of source. It returns the files written,
// which on error are those committed before the failure.
func (e *Extractor) Extract(ctx context.Context, source []byte) ([]*File, error) {
	files, err := e.Plan(source)
	if err != nil {
		return nil, err
	}

	return e.Write(ctx, files)
}

// Plan scans source and resolves every selected unit without writing.
func (e *Extractor) Plan(source []byte) ([]*File, error) {
	scanner := e.Scanner
	if scanner == nil {
		scanner = &mdcode.Scanner{}
	}

	units, err := scanner.Scan(source)
	if err != nil {
		return nil, err
	}

	files := make([]*File, 0, len(units))

	for _, unit := range units {
		effective := Normalize(unit.Path)

		if e.Filter != nil && !e.Filter(unit, effective) {
			continue
		}

		file := &File{Path: effective, Content: unit.Content(), Unit: unit}

		target := effective
		if e.Regions {
			target, file.Region = splitRegion(effective)
		}

		if file.Name, err = resolve(target, e.AllowEscape); err != nil {
			return nil, fmt.Errorf("line %d: %w", unit.Line, err)
		}

		files = append(files, file)
	}

	return files, nil
}

// Write commits files in order, stopping at the first failure or when ctx is
// done.
func (e *Extractor) Write(ctx context.Context, files []*File) ([]*File, error) {
	written := make([]*File, 0, len(files))

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		if err := e.write(file); err != nil {
			return written, fmt.Errorf("%w: %s: %w", ErrDestinationWrite, file.Path, err)
		}

		written = append(written, file)

		e.report(file)
	}

	return written, nil
}

func (e *Extractor) write(file *File) error {
	// "." creates the output root itself when it is missing.
	if dir := path.Dir(file.Name); dir != "/" {
		if err := e.Target.MkdirAll(dir, dirMode); err != nil {
			return err
		}
	}

	content := file.Content

	if len(file.Region) != 0 {
		current, err := e.Target.ReadFile(file.Name)
		if err != nil {
			return err
		}

		if content, err = region.Splice(current, file.Region, content); err != nil {
			return err
		}
	}

	return e.Target.WriteFile(file.Name, content, fileMode)
}

func (e *Extractor) report(file *File) {
	if e.Progress == nil {
		return
	}

	verb := e.Verb
	if len(verb) == 0 {
		verb = "Extracted"
	}

	fmt.Fprintf(e.Progress, "%s: %s\n", verb, file.Path)
}
