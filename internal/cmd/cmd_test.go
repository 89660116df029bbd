package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezerfernandes/mdextract/internal/extract"
	"github.com/ezerfernandes/mdextract/internal/mdcode"
)

const document = "# Sources\n\n" +
	"## 文件: `src/main.go`\n```go\npackage main\n```\n\n" +
	"## 文件: `README.txt`\n```text\nread me\n```\n"

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	err := execute(context.Background(), args, &stdout, &stderr)

	return stdout.String(), stderr.String(), err
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "doc.md")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	return path
}

func readOut(t *testing.T, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	require.NoError(t, err)

	return string(data)
}

func TestRootExtracts(t *testing.T) {
	doc := writeDoc(t, document)
	out := t.TempDir()

	stdout, _, err := run(t, doc, "--dir", out)
	require.NoError(t, err)

	assert.Equal(t, "Extracted: src/main.go\nExtracted: README.txt\n", stdout)
	assert.Equal(t, "package main", readOut(t, out, "src/main.go"))
	assert.Equal(t, "read me", readOut(t, out, "README.txt"))
}

func TestExtractCommandFilters(t *testing.T) {
	doc := writeDoc(t, document)
	out := t.TempDir()

	stdout, _, err := run(t, "extract", doc, "-d", out, "--lang", "GO")
	require.NoError(t, err)

	assert.Equal(t, "Extracted: src/main.go\n", stdout)
	assert.NoFileExists(t, filepath.Join(out, "README.txt"))
}

func TestExtractPathFilter(t *testing.T) {
	doc := writeDoc(t, document)
	out := t.TempDir()

	stdout, _, err := run(t, "x", doc, "-d", out, "--path", "*.txt")
	require.NoError(t, err)

	assert.Equal(t, "Extracted: README.txt\n", stdout)
}

func TestExtractDryRun(t *testing.T) {
	doc := writeDoc(t, document)
	out := t.TempDir()

	stdout, _, err := run(t, "extract", doc, "-d", out, "--dry-run")
	require.NoError(t, err)

	assert.Equal(t, "Would extract: src/main.go\nWould extract: README.txt\n", stdout)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExtractQuiet(t *testing.T) {
	doc := writeDoc(t, document+"\n## 文件: `open.txt`\n```\nno end\n")
	out := t.TempDir()

	stdout, stderr, err := run(t, doc, "-d", out, "-q")
	require.NoError(t, err)

	assert.Empty(t, stdout)
	assert.Empty(t, stderr)
	assert.FileExists(t, filepath.Join(out, "README.txt"))
}

func TestExtractWarnsUnterminatedFence(t *testing.T) {
	doc := writeDoc(t, document+"\n## 文件: `open.txt`\n```\nno end\n")
	out := t.TempDir()

	_, stderr, err := run(t, doc, "-d", out)
	require.NoError(t, err)

	assert.Contains(t, stderr, "warning: line 13: unterminated code fence")
	assert.NoFileExists(t, filepath.Join(out, "open.txt"))
}

func TestExtractRejectsEscape(t *testing.T) {
	doc := writeDoc(t, "## 文件: `../outside.txt`\n```\nx\n```\n")
	out := t.TempDir()

	_, stderr, err := run(t, doc, "-d", out)
	require.ErrorIs(t, err, extract.ErrPathEscapes)
	assert.Contains(t, stderr, "path escapes output root")
}

func TestExtractAllowEscape(t *testing.T) {
	doc := writeDoc(t, "## 文件: `../outside.txt`\n```\nx\n```\n")
	base := t.TempDir()

	_, _, err := run(t, doc, "-d", filepath.Join(base, "out"), "--allow-escape")
	require.NoError(t, err)
	assert.Equal(t, "x", readOut(t, base, "outside.txt"))
}

func TestExtractMissingInput(t *testing.T) {
	_, _, err := run(t, filepath.Join(t.TempDir(), "C++.md"), "-d", t.TempDir())
	assert.ErrorIs(t, err, extract.ErrInputUnreadable)
}

func TestExtractTooManyArgs(t *testing.T) {
	_, _, err := run(t, "a.md", "b.md")
	assert.Error(t, err)
}

func TestExtractCustomMarker(t *testing.T) {
	doc := writeDoc(t, "## File: `a.txt`\n```\na\n```\n")
	out := t.TempDir()

	stdout, _, err := run(t, doc, "-d", out, "--marker", "File:")
	require.NoError(t, err)
	assert.Equal(t, "Extracted: a.txt\n", stdout)
}

func TestConfigFile(t *testing.T) {
	doc := writeDoc(t, document)
	out := t.TempDir()

	cfg := filepath.Join(t.TempDir(), "mdextract.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("input: "+doc+"\ndir: "+out+"\nlang: [text]\n"), 0o644))

	stdout, _, err := run(t, "--config", cfg)
	require.NoError(t, err)

	assert.Equal(t, "Extracted: README.txt\n", stdout)
	assert.Equal(t, "read me", readOut(t, out, "README.txt"))
}

func TestConfigFileFlagsWin(t *testing.T) {
	doc := writeDoc(t, document)
	out := t.TempDir()

	cfg := filepath.Join(t.TempDir(), "mdextract.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("dir: "+t.TempDir()+"\nlang: [text]\n"), 0o644))

	stdout, _, err := run(t, "--config", cfg, doc, "-d", out, "-l", "*")
	require.NoError(t, err)

	assert.Equal(t, "Extracted: src/main.go\nExtracted: README.txt\n", stdout)
	assert.FileExists(t, filepath.Join(out, "src", "main.go"))
}

func TestConfigFileInvalid(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "mdextract.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("marker: \"\"\n"), 0o644))

	_, _, err := run(t, "list", "--config", cfg)
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	doc := writeDoc(t, document)

	stdout, _, err := run(t, "list", doc)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Path")
	assert.Contains(t, stdout, "src/main.go")
	assert.Contains(t, stdout, "L4-6")
	assert.Contains(t, stdout, "README.txt")
	assert.Contains(t, stdout, "text")
}

func TestExecPerFile(t *testing.T) {
	doc := writeDoc(t, document)
	out := t.TempDir()

	stdout, stderr, err := run(t, "exec", doc, "-d", out, "--", "echo", "{index}", "{lang}", "{path}")
	require.NoError(t, err)

	assert.Equal(t, "0 go src/main.go\n1 text README.txt\n", stdout)
	assert.Contains(t, stderr, "Extracted: src/main.go")
	assert.Contains(t, stderr, "--- README.txt (text) : L9-11 ---")
}

func TestExecBatch(t *testing.T) {
	doc := writeDoc(t, document)
	out := t.TempDir()

	stdout, _, err := run(t, "exec", doc, "-d", out, "--batch", "--", "cat", "{}")
	require.NoError(t, err)

	assert.Equal(t, "package mainread me", stdout)
}

func TestExecFailure(t *testing.T) {
	doc := writeDoc(t, document)

	_, _, err := run(t, "exec", doc, "-d", t.TempDir(), "--", "exit", "3")
	require.Error(t, err)
	assert.Equal(t, "2 file(s) failed", err.Error())
}

func TestExecMissingCommand(t *testing.T) {
	doc := writeDoc(t, document)

	_, _, err := run(t, "exec", doc, "-d", t.TempDir())
	assert.ErrorIs(t, err, errMissingCommand)
}

func TestExecUpdate(t *testing.T) {
	doc := writeDoc(t, document)

	_, _, err := run(t, "exec", doc, "-d", t.TempDir(), "--lang", "go", "--update", "--", "echo", "package changed", ">", "{}")
	require.NoError(t, err)

	want := "# Sources\n\n" +
		"## 文件: `src/main.go`\n```go\npackage changed\n```\n\n" +
		"## 文件: `README.txt`\n```text\nread me\n```\n"

	assert.Equal(t, want, readOut(t, filepath.Dir(doc), "doc.md"))
}

func TestExecUpdateDuplicatePath(t *testing.T) {
	doc := writeDoc(t, "## 文件: `a.txt`\n```\nfirst\n```\n\n## 文件: `a.txt`\n```\nsecond\n```\n")

	_, _, err := run(t, "exec", doc, "-d", t.TempDir(), "--update", "--", "echo", "updated", ">", "{}")
	require.NoError(t, err)

	want := "## 文件: `a.txt`\n```\nfirst\n```\n\n## 文件: `a.txt`\n```\nupdated\n```\n"

	assert.Equal(t, want, readOut(t, filepath.Dir(doc), "doc.md"))
}

func TestFilter(t *testing.T) {
	unit := func(lang string, meta mdcode.Meta) *mdcode.Unit {
		return &mdcode.Unit{Block: &mdcode.Block{Lang: lang, Meta: meta}}
	}

	match, err := filter([]string{"go", "py*"}, []string{"cmd/**"}, map[string]string{"role": "main"})
	require.NoError(t, err)

	assert.True(t, match(unit("Go", mdcode.Meta{"role": "main"}), "cmd/app/main.go"))
	assert.True(t, match(unit("python", mdcode.Meta{"role": "main"}), "cmd/x.py"))
	assert.False(t, match(unit("rust", mdcode.Meta{"role": "main"}), "cmd/main.rs"))
	assert.False(t, match(unit("go", mdcode.Meta{"role": "main"}), "internal/main.go"))
	assert.False(t, match(unit("go", nil), "cmd/main.go"))

	all, err := filter([]string{"*"}, nil, nil)
	require.NoError(t, err)
	assert.True(t, all(unit("", nil), "any/path"))
}
