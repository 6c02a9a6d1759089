package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specvital/unittest-adapter/pkg/domain"
)

type stackErr struct {
	msg   string
	stack string
}

func (e *stackErr) Error() string      { return e.msg }
func (e *stackErr) StackTrace() []byte { return []byte(e.stack) }

func TestFormatEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry domain.Entry
		want  string
	}{
		{
			name:  "should join id and line with separator",
			entry: domain.Entry{ID: "tests.test_a.A.test_x", Location: domain.Location{StartLine: 3}},
			want:  "tests:test_a:A:test_x:3",
		},
		{
			name:  "should render unknown line as star",
			entry: domain.Entry{ID: "test_a.A.test_y"},
			want:  "test_a:A:test_y:*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatEntry(tt.entry))
		})
	}
}

func TestWriteProtocol(t *testing.T) {
	t.Parallel()

	inv := domain.Inventory{
		Entries: []domain.Entry{
			{ID: "tests.test_a.A.test_x", Location: domain.Location{StartLine: 3}},
			{ID: "tests.test_a.A.test_y"},
		},
		LoaderErrors: []domain.LoaderError{
			{Source: domain.FailedTestPrefix + ".tests.test_b", Err: errors.New("Failed to import test module: tests.test_b\nSyntaxError: invalid syntax")},
			{Source: domain.FailedTestPrefix + ".tests.test_c"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteProtocol(&buf, inv))

	want := "start\n" +
		"tests:test_a:A:test_x:3\n" +
		"tests:test_a:A:test_y:*\n" +
		"=== exception start ===\n" +
		"Failed to import test module: tests.test_b\nSyntaxError: invalid syntax\n" +
		"=== exception end ===\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteProtocol_EntryLineShape(t *testing.T) {
	t.Parallel()

	var entries []domain.Entry
	for i := 0; i < 5; i++ {
		entries = append(entries, domain.Entry{
			ID:       fmt.Sprintf("pkg.test_m%d.Case.test_%d", i, i),
			Location: domain.Location{StartLine: i},
		})
	}

	var buf bytes.Buffer
	require.NoError(t, WriteProtocol(&buf, domain.Inventory{Entries: entries}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "start", lines[0])

	shape := regexp.MustCompile(`^[\w:]+:(\d+|\*)$`)
	for _, line := range lines[1:] {
		assert.Regexp(t, shape, line)
	}
}

func TestWriteProtocol_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteProtocol(&buf, domain.Inventory{}))

	assert.Equal(t, "start\n", buf.String())
}

func TestWriteFailure(t *testing.T) {
	t.Parallel()

	t.Run("should include stack trace", func(t *testing.T) {
		var buf bytes.Buffer
		err := fmt.Errorf("wrapped: %w", &stackErr{msg: "bad pattern", stack: "goroutine 1 [running]:\nmain.main()\n"})
		require.NoError(t, WriteFailure(&buf, err))

		want := "=== exception start ===\n" +
			"wrapped: bad pattern\n" +
			"goroutine 1 [running]:\nmain.main()\n" +
			"=== exception end ===\n"
		assert.Equal(t, want, buf.String())
	})

	t.Run("should write plain errors", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteFailure(&buf, errors.New("boom")))

		assert.Equal(t, "=== exception start ===\nboom\n=== exception end ===\n", buf.String())
		assert.NotContains(t, buf.String(), "start\n=== exception start", "no start marker")
	})
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	inv := domain.Inventory{
		RootPath: "/p/tests",
		Entries: []domain.Entry{
			{ID: "tests.test_a.A.test_x", Location: domain.Location{File: "/p/tests/test_a.py", StartLine: 3}, Status: domain.TestStatusSkipped},
		},
		LoaderErrors: []domain.LoaderError{
			{Source: "unittest.loader._FailedTest.tests.test_b", Err: errors.New("Failed to import test module: tests.test_b")},
			{Source: "unittest.loader._FailedTest.tests.test_c"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, inv, &Django{Enabled: true, Status: "configured", Settings: "mysite.settings"}))

	var decoded struct {
		RootPath string `json:"rootPath"`
		Entries  []struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Location struct {
				StartLine int `json:"startLine"`
			} `json:"location"`
		} `json:"entries"`
		LoaderErrors []struct {
			Message string `json:"message"`
		} `json:"loaderErrors"`
		Django struct {
			Settings string `json:"settings"`
		} `json:"django"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "/p/tests", decoded.RootPath)
	require.Len(t, decoded.Entries, 1)
	assert.Equal(t, "skipped", decoded.Entries[0].Status)
	assert.Equal(t, 3, decoded.Entries[0].Location.StartLine)
	require.Len(t, decoded.LoaderErrors, 1)
	assert.Equal(t, "mysite.settings", decoded.Django.Settings)
}

func TestWriteJSONFailure(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteJSONFailure(&buf, errors.New("boom"), nil))

	assert.Contains(t, buf.String(), `"error": "boom"`)
	assert.Contains(t, buf.String(), `"entries": []`)
}
