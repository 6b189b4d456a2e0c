package blob

import (
	"path/filepath"
	"regexp"
)

// schemeRE matches a leading "scheme://" prefix.
var schemeRE = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// HasScheme reports whether uri already carries an explicit scheme.
func HasScheme(uri string) bool {
	return schemeRE.MatchString(uri)
}

// NormalizeURI rewrites a bare filesystem path to an absolute file://
// URI, exactly as spec.md §6 describes ("bare paths are rewritten to
// file://<absolute-path>; other schemes are passed through"). Relative
// paths are resolved against the current working directory.
func NormalizeURI(path string) (string, error) {
	if HasScheme(path) {
		return path, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file://" + abs, nil
}
