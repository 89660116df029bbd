package mdcode

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/shlex"
)

// Meta holds key-value metadata parsed from a fenced code block's info string,
// for example the `title="main entry"` in "```go title=\"main entry\"".
type Meta map[string]interface{}

// Get returns the metadata value for the given key as a string.
// It returns an empty string if the key is missing or the Meta is nil.
func (m Meta) Get(name string) string {
	if m == nil {
		return ""
	}

	value, has := m[name]
	if !has {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprint(value)
}

// Matches reports whether every key in want is present with an equal value.
func (m Meta) Matches(want map[string]string) bool {
	for key, value := range want {
		if _, has := m[key]; !has || m.Get(key) != value {
			return false
		}
	}

	return true
}

var (
	reJSON     = regexp.MustCompile(`^\s*{\s*["}]`)
	reBrackets = regexp.MustCompile(`^\s*{(.*)}$`)
	reInfo     = regexp.MustCompile(`\s*(\w+)\s*(.*)\s*`)
)

func parseInfo(text []byte) (string, Meta, error) {
	all := reInfo.FindSubmatch(text)
	if all == nil {
		return "", nil, nil
	}

	lang := string(all[1])

	meta, err := parseMeta(all[2])
	if err != nil {
		return lang, nil, fmt.Errorf("info string %q: %w", text, err)
	}

	return lang, meta, nil
}

func parseMeta(input []byte) (Meta, error) {
	if len(input) == 0 {
		return Meta{}, nil
	}

	if reJSON.Match(input) {
		var meta Meta

		if err := json.Unmarshal(input, &meta); err != nil {
			return nil, err
		}

		return meta, nil
	}

	if subs := reBrackets.FindSubmatch(input); subs != nil {
		input = subs[1]
	}

	words, err := shlex.Split(string(input))
	if err != nil {
		return nil, err
	}

	dict := make(Meta, len(words))

	for _, word := range words {
		if key, value, found := strings.Cut(word, "="); found && len(key) != 0 {
			dict[key] = value
		}
	}

	return dict, nil
}
