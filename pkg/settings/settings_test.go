package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const managePy = `#!/usr/bin/env python
"""Django's command-line utility for administrative tasks."""
import os
import sys


def main():
    """Run administrative tasks."""
    os.environ.setdefault("DJANGO_SETTINGS_MODULE", "mysite.settings")
    try:
        from django.core.management import execute_from_command_line
    except ImportError as exc:
        raise ImportError("Couldn't import Django.") from exc
    execute_from_command_line(sys.argv)


if __name__ == "__main__":
    main()
`

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, ManagePy)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("should return the settings module", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), managePy)

		module, ok := Resolve(path)
		assert.True(t, ok)
		assert.Equal(t, "mysite.settings", module)
	})

	t.Run("should use the first match", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "os.environ.setdefault('DJANGO_SETTINGS_MODULE', 'first.settings')\n"+
			"os.environ.setdefault('DJANGO_SETTINGS_MODULE', 'second.settings')\n")

		module, ok := Resolve(path)
		assert.True(t, ok)
		assert.Equal(t, "first.settings", module)
	})

	t.Run("should report missing file as not found", func(t *testing.T) {
		_, ok := Resolve(filepath.Join(t.TempDir(), "nope.py"))
		assert.False(t, ok)
	})

	t.Run("should report directory as not found", func(t *testing.T) {
		_, ok := Resolve(t.TempDir())
		assert.False(t, ok)
	})

	t.Run("should report file without match as not found", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "import os\nprint('hello')\n")

		_, ok := Resolve(path)
		assert.False(t, ok)
	})
}

func TestResolveIn(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, managePy)

	module, ok := ResolveIn(dir)
	assert.True(t, ok)
	assert.Equal(t, "mysite.settings", module)
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		line   string
		want   string
		wantOK bool
	}{
		{"double quotes", `os.environ.setdefault("DJANGO_SETTINGS_MODULE", "a.b.settings")`, "a.b.settings", true},
		{"single quotes", `os.environ.setdefault('DJANGO_SETTINGS_MODULE', 'a.settings')`, "a.settings", true},
		{"mixed quotes", `os.environ.setdefault('DJANGO_SETTINGS_MODULE', "a.settings")`, "a.settings", true},
		{"surrounding whitespace", "    os.environ.setdefault(\"DJANGO_SETTINGS_MODULE\", \"x\")  \t", "x", true},
		{"other variable", `os.environ.setdefault("OTHER", "x.settings")`, "", false},
		{"assignment form", `os.environ["DJANGO_SETTINGS_MODULE"] = "x.settings"`, "", false},
		{"trailing comment", `os.environ.setdefault("DJANGO_SETTINGS_MODULE", "x") # note`, "", false},
		{"missing space after comma", `os.environ.setdefault("DJANGO_SETTINGS_MODULE","x")`, "", false},
		{"variable value", `os.environ.setdefault("DJANGO_SETTINGS_MODULE", name)`, "", false},
		{"unicode module", `os.environ.setdefault("DJANGO_SETTINGS_MODULE", "café.settings")`, "café.settings", true},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Match(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
