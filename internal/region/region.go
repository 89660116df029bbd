// Package region reads and replaces named #region/#endregion sections in
// files that units are spliced into.
package region

import (
	"errors"
	"fmt"
	"regexp"
)

const (
	reSpec       = `[!"#$%%&'()*+,\-./:;<=>?@[\\\]^_{|}~]`
	reLineBegin  = `(?m)^[[:blank:]]*`
	reLineEnd    = `*[[:blank:]]*\r?\n`
	regionFormat = reLineBegin + reSpec +
		`+[[:blank:]]*#region[[:blank:]]+%s[[:blank:]]*` +
		reSpec + reLineEnd
	namedendFormat = reLineBegin + reSpec +
		`+[[:blank:]]*#endregion[[:blank:]]+%s[[:blank:]]*` +
		reSpec + reLineEnd
)

var reEnd = regexp.MustCompile(reLineBegin + reSpec +
	`+[[:blank:]]*#endregion[[:blank:]]*` +
	reSpec + reLineEnd)

func marker(format string, name string) (*regexp.Regexp, error) {
	return regexp.Compile(fmt.Sprintf(format, regexp.QuoteMeta(name)))
}

func findRegion(source []byte, name string) (bool, int, int, error) {
	reBegin, err := marker(regionFormat, name)
	if err != nil {
		return false, 0, 0, err
	}

	idxBegin := reBegin.FindIndex(source)
	if idxBegin == nil {
		return false, 0, 0, nil
	}

	namedEnd, err := marker(namedendFormat, name)
	if err != nil {
		return false, 0, 0, err
	}

	idxEnd := namedEnd.FindIndex(source[idxBegin[1]:])
	if idxEnd == nil {
		idxEnd = reEnd.FindIndex(source[idxBegin[1]:])
		if idxEnd == nil {
			return false, 0, 0, fmt.Errorf("%w: %s", ErrMissingEndregion, name)
		}
	}

	return true, idxBegin[1], idxBegin[1] + idxEnd[0], nil
}

// Read returns the content between the #region and #endregion markers with the
// given name. The bool return indicates whether the named region was found.
func Read(source []byte, name string) ([]byte, bool, error) {
	found, begin, end, err := findRegion(source, name)
	if err != nil {
		return nil, false, err
	}

	if !found {
		return nil, false, nil
	}

	return source[begin:end], true, nil
}

// Replace substitutes the content of the named region with value and returns
// the updated source. The bool return indicates whether the named region was found.
func Replace(source []byte, name string, value []byte) ([]byte, bool, error) {
	found, begin, end, err := findRegion(source, name)
	if err != nil {
		return nil, false, err
	}

	if !found {
		return nil, false, nil
	}

	res := make([]byte, len(source)-(end-begin)+len(value))

	copy(res, source[:begin])
	copy(res[begin:], value)
	copy(res[begin+len(value):], source[end:])

	return res, true, nil
}

// Splice replaces the named region with body, ending body with a newline so
// the #endregion marker stays on its own line. It fails with
// [ErrRegionNotFound] when source has no such region.
func Splice(source []byte, name string, body []byte) ([]byte, error) {
	if len(body) != 0 && body[len(body)-1] != '\n' {
		body = append(append(make([]byte, 0, len(body)+1), body...), '\n')
	}

	res, found, err := Replace(source, name, body)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", ErrRegionNotFound, name)
	}

	return res, nil
}

// ErrRegionNotFound is returned by [Splice] when the named region is missing.
var ErrRegionNotFound = errors.New("region not found")

// ErrMissingEndregion is returned when a #region marker has no matching
// #endregion.
var ErrMissingEndregion = errors.New("missing #endregion")
