package extract

import (
	"fmt"
	"path"
	"strings"
)

// Normalize returns the effective relative path of a captured path: trimmed
// of surrounding whitespace, with every backslash replaced by a slash.
func Normalize(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), `\`, "/")
}

// resolve cleans an effective path into a target name. Unless allowEscape is
// set, names that are absolute or climb above the root are rejected.
func resolve(effective string, allowEscape bool) (string, error) {
	if len(effective) == 0 {
		return "", ErrEmptyPath
	}

	name := path.Clean(effective)

	if !allowEscape && escapes(name) {
		return "", fmt.Errorf("%w: %s", ErrPathEscapes, effective)
	}

	if name == "." || name == "/" || strings.HasSuffix(effective, "/") {
		return "", fmt.Errorf("%w: %s", ErrEmptyPath, effective)
	}

	return name, nil
}

func escapes(name string) bool {
	if path.IsAbs(name) || name == ".." || strings.HasPrefix(name, "../") {
		return true
	}

	// drive letter, as in C:/Windows or a bare C:
	return len(name) >= 2 && name[1] == ':' &&
		('a' <= name[0] && name[0] <= 'z' || 'A' <= name[0] && name[0] <= 'Z') &&
		(len(name) == 2 || name[2] == '/')
}

// splitRegion splits "file#name" into its file and region parts.
func splitRegion(effective string) (string, string) {
	idx := strings.LastIndexByte(effective, '#')
	if idx <= 0 || idx == len(effective)-1 {
		return effective, ""
	}

	return effective[:idx], effective[idx+1:]
}
