// Package settings recovers the Django settings module named in a project's
// manage.py.
//
// The file is scanned line by line with a regular expression; multi-line
// statements, values built from variables and raw-string prefixes are not
// recognised.
package settings

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ManagePy is the conventional entry-point file name.
const ManagePy = "manage.py"

// setdefaultPattern spells \w as Unicode classes to match Python's re.
var setdefaultPattern = regexp.MustCompile(
	`^os\.environ\.setdefault\((['"])DJANGO_SETTINGS_MODULE(['"]), (['"])(?P<settings_path>[\p{L}\p{N}_.]+)(['"])\)$`,
)

// Resolve returns the settings module assigned by the first matching
// os.environ.setdefault line of the file at path. A missing or unreadable
// file is reported the same way as a file without a match.
func Resolve(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if module, ok := Match(scanner.Text()); ok {
			return module, true
		}
	}
	return "", false
}

// ResolveIn resolves the manage.py file inside dir.
func ResolveIn(dir string) (string, bool) {
	return Resolve(filepath.Join(dir, ManagePy))
}

// Match extracts the settings module from a single line.
func Match(line string) (string, bool) {
	m := setdefaultPattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return "", false
	}
	return m[setdefaultPattern.SubexpIndex("settings_path")], true
}
