package mdcode

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DefaultMarker is the heading label that introduces a file path.
const DefaultMarker = "文件:"

// ErrUnterminatedFence is reported for a heading marker whose code block has
// no closing fence. Such a unit is skipped.
var ErrUnterminatedFence = errors.New("unterminated code fence")

// Walker is a callback invoked for each unit found in a Markdown document.
// The walker may modify unit.Block.Code in place; any changes are written back
// into the document by [Scanner.Walk].
type Walker func(unit *Unit) error

// Scanner finds units in Markdown documents.
//
// Scanning happens in two phases: headings are matched against the marker
// first, then the heading's next sibling must be a closed fenced code block.
// Anything else between the two (a paragraph, a list, another heading) breaks
// the unit.
type Scanner struct {
	// Marker is the heading text that must precede the path code span.
	// Empty means DefaultMarker.
	Marker string
	// Warn, if set, is called for units that are skipped or degraded.
	Warn func(line int, err error)
}

type change struct {
	block *Block
	// start and stop delimit the block's content in the source.
	start, stop int
}

func newChange(fcb *ast.FencedCodeBlock, block *Block, from, indent int, source []byte) *change {
	lines := fcb.Lines()
	if lines.Len() == 0 {
		body := bodyStart(fcb, from, source)

		return &change{block: block, start: body, stop: body}
	}

	return &change{
		block: block,
		start: rawStart(source, lines.At(0).Start, indent),
		stop:  lines.At(lines.Len() - 1).Stop,
	}
}

func (c *change) sizeIncrement() int {
	return len(c.block.Code) - (c.stop - c.start)
}

// Scan returns every unit of source in document order, using DefaultMarker.
func Scan(source []byte) (Units, error) {
	return (&Scanner{}).Scan(source)
}

// Scan returns every unit of source in document order.
func (s *Scanner) Scan(source []byte) (Units, error) {
	var units Units

	_, _, err := s.Walk(source, func(unit *Unit) error {
		units = append(units, unit)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return units, nil
}

// Walk parses a Markdown document and calls walker for every unit.
// If the walker modifies any block's Code, Walk returns true and the updated
// document. When no blocks are modified, it returns false and a nil slice.
func (s *Scanner) Walk(source []byte, walker Walker) (bool, []byte, error) {
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))
	marker := s.marker()

	var changes []*change

	err := ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		heading, ok := node.(*ast.Heading)
		if !entering || !ok {
			return ast.WalkContinue, nil
		}

		path, ok := headingPath(heading, marker, source)
		if !ok {
			return ast.WalkSkipChildren, nil
		}

		line := headingLine(heading, source)
		from := headingEnd(heading)

		fcb, closed := asFencedCodeBlock(heading, source)
		if fcb == nil {
			return ast.WalkSkipChildren, nil
		}

		if !closed {
			s.warn(line, ErrUnterminatedFence)

			return ast.WalkSkipChildren, nil
		}

		indent := fenceIndent(fcb, from, source)
		block := extractBlock(fcb, indent, source)

		if fcb.Info != nil {
			var merr error

			block.Lang, block.Meta, merr = parseInfo(fcb.Info.Text(source))
			if merr != nil {
				s.warn(line, merr)
			}
		}

		unit := &Unit{Path: path, Block: block, Line: line}
		code := block.Code

		if werr := walker(unit); werr != nil {
			return ast.WalkStop, werr
		}

		if !bytes.Equal(code, block.Code) {
			changes = append(changes, newChange(fcb, block, from, indent, source))
		}

		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return false, nil, err
	}

	if len(changes) == 0 {
		return false, nil, nil
	}

	return true, applyChanges(changes, source), nil
}

func (s *Scanner) marker() string {
	if marker := strings.TrimSpace(s.Marker); len(marker) != 0 {
		return marker
	}

	return DefaultMarker
}

func (s *Scanner) warn(line int, err error) {
	if s.Warn != nil {
		s.Warn(line, err)
	}
}

// headingPath returns the content of the heading's code span when the text
// before it equals marker and nothing but blanks follows it.
func headingPath(heading *ast.Heading, marker string, source []byte) (string, bool) {
	var label bytes.Buffer

	for child := heading.FirstChild(); child != nil; child = child.NextSibling() {
		span, ok := child.(*ast.CodeSpan)
		if !ok {
			label.Write(nodeText(child, source))

			continue
		}

		if strings.TrimSpace(label.String()) != marker {
			return "", false
		}

		for rest := span.NextSibling(); rest != nil; rest = rest.NextSibling() {
			if len(bytes.TrimSpace(nodeText(rest, source))) != 0 {
				return "", false
			}
		}

		return string(nodeText(span, source)), true
	}

	return "", false
}

func nodeText(node ast.Node, source []byte) []byte {
	var buff bytes.Buffer

	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch t := n.(type) {
		case *ast.Text:
			buff.Write(t.Segment.Value(source))
		case *ast.String:
			buff.Write(t.Value)
		}

		return ast.WalkContinue, nil
	})

	return buff.Bytes()
}

func headingLine(heading *ast.Heading, source []byte) int {
	lines := heading.Lines()
	if lines.Len() == 0 {
		return 0
	}

	return lineAt(source, lines.At(0).Start)
}

func headingEnd(heading *ast.Heading) int {
	lines := heading.Lines()
	if lines.Len() == 0 {
		return 0
	}

	return lines.At(lines.Len() - 1).Stop
}

// asFencedCodeBlock returns the code block following heading and whether its
// closing fence is present.
func asFencedCodeBlock(heading *ast.Heading, source []byte) (*ast.FencedCodeBlock, bool) {
	switch next := heading.NextSibling().(type) {
	case *ast.FencedCodeBlock:
		return next, fenceClosed(next, headingEnd(heading), source)
	case *ast.HTMLBlock:
		if fcb := transformCommentedCodeBlock(next, source); fcb != nil {
			return fcb, true
		}
	}

	return nil, false
}

// bodyStart returns the offset of the first content line of fcb.
func bodyStart(fcb *ast.FencedCodeBlock, from int, source []byte) int {
	if lines := fcb.Lines(); lines.Len() > 0 {
		return lines.At(0).Start
	}

	if fcb.Info != nil {
		return lineEnd(source, fcb.Info.Segment.Stop)
	}

	if open := nextFence(source, from); open >= 0 {
		return lineEnd(source, open)
	}

	return len(source)
}

// fenceClosed reports whether the line after the block's content is a fence.
// An unclosed block runs to the end of its container, so that line is either
// missing or belongs to something else.
func fenceClosed(fcb *ast.FencedCodeBlock, from int, source []byte) bool {
	pos := bodyStart(fcb, from, source)

	if lines := fcb.Lines(); lines.Len() > 0 {
		pos = lines.At(lines.Len() - 1).Stop
	}

	if pos >= len(source) {
		return false
	}

	line := source[pos:lineEnd(source, pos)]

	return reFences.Match(bytes.TrimLeft(line, " \t>"))
}

// fenceIndent returns how many spaces the opening fence of fcb is indented
// within its container.
func fenceIndent(fcb *ast.FencedCodeBlock, from int, source []byte) int {
	open := nextFence(source, from)
	if fcb.Info != nil {
		open = lineStart(source, fcb.Info.Segment.Start)
	}

	if open < 0 {
		return 0
	}

	line := source[open:lineEnd(source, open)]
	line = line[len(reQuotePrefix.Find(line)):]

	return len(line) - len(bytes.TrimLeft(line, " "))
}

// rawStart moves a content line's start back over the indentation the parser
// stripped, so the line is kept as written.
func rawStart(source []byte, start, indent int) int {
	for ; indent > 0 && start > 0; indent-- {
		if c := source[start-1]; c != ' ' && c != '\t' {
			break
		}

		start--
	}

	return start
}

func lineStart(source []byte, offset int) int {
	return bytes.LastIndexByte(source[:offset], '\n') + 1
}

// lineEnd returns the offset just past the newline ending the line at offset.
func lineEnd(source []byte, offset int) int {
	if offset >= len(source) {
		return len(source)
	}

	idx := bytes.IndexByte(source[offset:], '\n')
	if idx < 0 {
		return len(source)
	}

	return offset + idx + 1
}

// nextFence returns the offset of the first fence line starting after from.
func nextFence(source []byte, from int) int {
	for pos := lineEnd(source, from); pos < len(source); pos = lineEnd(source, pos) {
		line := source[pos:lineEnd(source, pos)]
		if reFences.Match(bytes.TrimLeft(line, " \t>")) {
			return pos
		}
	}

	return -1
}

func extractBlock(fcb *ast.FencedCodeBlock, indent int, source []byte) *Block {
	block := &Block{Code: extractCode(fcb, indent, source)}
	block.StartLine, block.EndLine = extractLines(fcb, source)

	return block
}

func extractLines(fcb *ast.FencedCodeBlock, source []byte) (int, int) {
	var startLine, endLine int

	if fcb.Info != nil {
		startLine = lineAt(source, fcb.Info.Segment.Start)
	} else {
		lines := fcb.Lines()
		if lines.Len() > 0 {
			startLine = lineAt(source, lines.At(0).Start) - 1
		}
	}

	lines := fcb.Lines()
	if lines.Len() > 0 {
		endLine = lineAt(source, lines.At(lines.Len()-1).Stop)
	} else if startLine > 0 {
		endLine = startLine + 1
	}

	return startLine, endLine
}

func lineAt(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}

	return bytes.Count(source[:offset], []byte{'\n'}) + 1
}

func extractCode(fcb *ast.FencedCodeBlock, indent int, source []byte) []byte {
	var buff bytes.Buffer

	lines := fcb.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)

		buff.Write(source[rawStart(source, seg.Start, indent):seg.Stop])
	}

	return buff.Bytes()
}

// trimBody turns CRLF and CR line endings into LF, then drops whitespace-only
// leading lines and all trailing whitespace.
func trimBody(code []byte) []byte {
	code = bytes.ReplaceAll(code, []byte("\r\n"), []byte("\n"))
	code = bytes.ReplaceAll(code, []byte("\r"), []byte("\n"))

	for len(code) > 0 {
		idx := bytes.IndexByte(code, '\n')
		if idx < 0 || len(bytes.TrimSpace(code[:idx])) != 0 {
			break
		}

		code = code[idx+1:]
	}

	return bytes.TrimRightFunc(code, unicode.IsSpace)
}

func applyChanges(changes []*change, source []byte) []byte {
	resSize := len(source)

	for _, change := range changes {
		resSize += change.sizeIncrement()
	}

	result := make([]byte, resSize)

	var srcIdx, resIdx int

	for _, change := range changes {
		copy(result[resIdx:], source[srcIdx:change.start])
		resIdx += (change.start - srcIdx)

		copy(result[resIdx:], change.block.Code)
		resIdx += len(change.block.Code)

		srcIdx = change.stop
	}

	copy(result[resIdx:], source[srcIdx:])

	return result
}

var (
	reCommentedCodeBlock = regexp.MustCompile(`^\s*(<!--)?\s*<script\s*type=["']text/markdown["']\s*>\s*$`)
	reFences             = regexp.MustCompile("^\\s*(```|~~~)")
	reQuotePrefix        = regexp.MustCompile(`^(?:[ ]{0,3}>[ ]?)*`)
)

// transformCommentedCodeBlock turns a hidden code block written as
//
//	<script type="text/markdown">
//	```go
//	...
//	```
//	</script>
//
// into a fenced code block. It returns nil for any other HTML block.
func transformCommentedCodeBlock(html *ast.HTMLBlock, source []byte) *ast.FencedCodeBlock {
	const minLines = 2

	lines := html.Lines()
	if lines.Len() < minLines {
		return nil
	}

	seg := lines.At(0)
	if !reCommentedCodeBlock.Match(seg.Value(source)) {
		return nil
	}

	seg = lines.At(1)

	loc := reFences.FindIndex(seg.Value(source))
	if loc == nil {
		return nil
	}

	info := ast.NewTextSegment(text.NewSegment(seg.Start+loc[1], seg.Stop-1))
	fcb := ast.NewFencedCodeBlock(info)

	seg = lines.At(lines.Len() - 1)
	if !reFences.Match(seg.Value(source)) {
		return nil
	}

	segs := text.NewSegments()

	for i := 2; i < lines.Len()-1; i++ {
		segs.Append(lines.At(i))
	}

	fcb.SetLines(segs)

	return fcb
}
