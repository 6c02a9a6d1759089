package discovery

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// validModuleName mirrors unittest.loader.VALID_MODULE_NAME. Python's \w is
// Unicode aware, Go's is not.
var validModuleName = regexp.MustCompile(`(?i)^[_a-z][\p{L}\p{N}_]*\.py$`)

func isValidModuleName(name string) bool {
	return validModuleName.MatchString(name)
}

func isPackage(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, packageInit))
	return err == nil && info.Mode().IsRegular()
}

// moduleName converts a module path into its dotted name relative to top.
// A package __init__.py maps to the package name.
func moduleName(top, path string) (string, error) {
	rel, err := filepath.Rel(top, path)
	if err != nil {
		return "", err
	}
	if !within(top, path) {
		return "", ErrOutsideTopLevel
	}

	rel = strings.TrimSuffix(rel, ".py")
	if filepath.Base(rel) == strings.TrimSuffix(packageInit, ".py") {
		rel = filepath.Dir(rel)
	}
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", "."), nil
}

// fnmatchPattern escapes the characters doublestar treats specially but
// fnmatch matches literally: braces and backslashes outside bracket
// expressions. An unclosed bracket is left alone so it stays invalid.
func fnmatchPattern(pattern string) string {
	var b strings.Builder
	open := -1
	for i, r := range pattern {
		switch {
		case open >= 0:
			// A ']' directly after "[" or "[!" is a member, not the end.
			if r == ']' && i > open+1 && !(i == open+2 && strings.ContainsRune("!^", rune(pattern[open+1]))) {
				open = -1
			}
		case r == '[':
			open = i
		case r == '{', r == '}', r == '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
