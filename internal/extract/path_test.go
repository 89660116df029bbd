package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"src/main.go":      "src/main.go",
		`a\b\c.txt`:        "a/b/c.txt",
		"  out/x.txt  ":    "out/x.txt",
		"\tmixed\\dir/f ":  "mixed/dir/f",
		"":                 "",
		"   ":              "",
		`..\escape.txt`:    "../escape.txt",
		"name with spaces": "name with spaces",
	}

	for raw, want := range tests {
		assert.Equal(t, want, Normalize(raw), "Normalize(%q)", raw)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		path        string
		allowEscape bool
		want        string
		err         error
	}{
		{path: "a/b.txt", want: "a/b.txt"},
		{path: "./a//b.txt", want: "a/b.txt"},
		{path: "a/../b.txt", want: "b.txt"},
		{path: "../b.txt", err: ErrPathEscapes},
		{path: "/abs.txt", err: ErrPathEscapes},
		{path: "c:/abs.txt", err: ErrPathEscapes},
		{path: "C:", err: ErrPathEscapes},
		{path: "x:notes.txt", want: "x:notes.txt"},
		{path: "docs/c:/a.txt", want: "docs/c:/a.txt"},
		{path: "../b.txt", allowEscape: true, want: "../b.txt"},
		{path: "/abs.txt", allowEscape: true, want: "/abs.txt"},
		{path: "", err: ErrEmptyPath},
		{path: ".", err: ErrEmptyPath},
		{path: "dir/", err: ErrEmptyPath},
	}

	for _, tt := range tests {
		got, err := resolve(tt.path, tt.allowEscape)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, "resolve(%q)", tt.path)

			continue
		}

		require.NoError(t, err, "resolve(%q)", tt.path)
		assert.Equal(t, tt.want, got, "resolve(%q)", tt.path)
	}
}

func TestSplitRegion(t *testing.T) {
	tests := []struct {
		path, file, region string
	}{
		{"main.go#imports", "main.go", "imports"},
		{"main.go", "main.go", ""},
		{"#only", "#only", ""},
		{"trailing#", "trailing#", ""},
		{"a#b#c", "a#b", "c"},
	}

	for _, tt := range tests {
		file, region := splitRegion(tt.path)
		assert.Equal(t, tt.file, file, tt.path)
		assert.Equal(t, tt.region, region, tt.path)
	}
}
