package mdcode

// Block is a fenced code block found in a Markdown document.
type Block struct {
	Lang      string
	Meta      Meta
	Code      []byte
	StartLine int
	EndLine   int
}

// Unit is a heading marker naming a file path together with the fenced code
// block that immediately follows it.
type Unit struct {
	// Path is the text of the heading's code span, exactly as written.
	Path  string
	Block *Block
	// Line is the 1-based line of the heading marker.
	Line int
}

// Content returns the body to write for the unit: the block's code with LF
// line endings, without leading blank lines and without trailing whitespace.
func (u *Unit) Content() []byte {
	return trimBody(u.Block.Code)
}

type Units []*Unit
