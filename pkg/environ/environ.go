// Package environ models the process environment as an explicit value that
// is threaded through setup code and handed to child processes.
package environ

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Variables consumed by the adapter.
const (
	DjangoSettingsModule = "DJANGO_SETTINGS_MODULE"
	DjangoTestEnabled    = "DJANGO_TEST_ENABLED"
	ManagePyPath         = "MANAGE_PY_PATH"
	PythonPath           = "PYTHONPATH"
	Python               = "PYTHON"
)

// Env is a mutable copy of a process environment. The zero value is not
// usable; construct with New or FromOS. Env is not safe for concurrent writes.
type Env struct {
	vars map[string]string
}

// New builds an Env from KEY=value pairs. Later duplicates win, matching os.Environ.
func New(pairs []string) *Env {
	e := &Env{vars: make(map[string]string, len(pairs))}
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		e.vars[key] = value
	}
	return e
}

// FromOS snapshots the current process environment.
func FromOS() *Env {
	return New(os.Environ())
}

// Lookup returns the value for key and whether it is set.
func (e *Env) Lookup(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Get returns the value for key or the empty string.
func (e *Env) Get(key string) string {
	return e.vars[key]
}

// SetDefault sets key only when it is absent and reports whether it wrote.
// A value placed by an outer process is never clobbered.
func (e *Env) SetDefault(key, value string) bool {
	if _, ok := e.vars[key]; ok {
		return false
	}
	e.vars[key] = value
	return true
}

// PrependPath puts dir at the front of the path list stored in key.
// An entry already present is moved to the front.
func (e *Env) PrependPath(key, dir string) {
	if dir == "" {
		return
	}

	parts := []string{dir}
	if current, ok := e.vars[key]; ok && current != "" {
		for _, p := range filepath.SplitList(current) {
			if p != dir && p != "" {
				parts = append(parts, p)
			}
		}
	}
	e.vars[key] = strings.Join(parts, string(os.PathListSeparator))
}

// LoadDotenv applies the pairs of a .env file with SetDefault semantics.
// A missing file is not an error.
func (e *Env) LoadDotenv(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		e.SetDefault(k, values[k])
	}
	return nil
}

// Environ returns the environment as sorted KEY=value pairs.
func (e *Env) Environ() []string {
	out := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
