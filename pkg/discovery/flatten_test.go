package discovery

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specvital/unittest-adapter/pkg/domain"
)

func TestFlatten(t *testing.T) {
	t.Parallel()

	root := &domain.Group{Name: "tests", Children: []domain.Node{
		&domain.Group{Name: "tests.test_a", Children: []domain.Node{
			&domain.Group{Name: "A", Children: []domain.Node{
				&domain.Case{ID: "tests.test_a.A.test_1"},
				&domain.Case{ID: "tests.test_a.A.test_2"},
			}},
			&domain.Group{Name: "Empty"},
		}},
		&domain.Case{ID: "loose"},
		&domain.Group{Name: "tests.test_b", Children: []domain.Node{
			&domain.Group{Name: "B", Children: []domain.Node{
				&domain.Case{ID: "tests.test_b.B.test_3"},
			}},
		}},
	}}

	var ids []string
	for _, c := range Flatten(root) {
		ids = append(ids, c.ID)
	}

	assert.Equal(t, []string{
		"tests.test_a.A.test_1",
		"tests.test_a.A.test_2",
		"loose",
		"tests.test_b.B.test_3",
	}, ids)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	failure := errors.New("Failed to import test module: tests.test_c")
	leaves := []*domain.Case{
		{ID: "tests.test_a.A.test_1", Location: domain.Location{StartLine: 3}},
		domain.FailedImportCase("tests.test_c", failure),
		{ID: "tests.test_b.B.test_2"},
	}

	entries, loaderErrors := Classify(leaves)

	require.Len(t, entries, 2)
	assert.Equal(t, "tests.test_a.A.test_1", entries[0].ID)
	assert.Equal(t, 3, entries[0].Location.StartLine)
	assert.Equal(t, "tests.test_b.B.test_2", entries[1].ID)

	require.Len(t, loaderErrors, 1)
	assert.ErrorIs(t, loaderErrors[0].Err, failure)
}

func TestModuleName(t *testing.T) {
	t.Parallel()

	top := filepath.Join(string(filepath.Separator), "proj")

	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(top, "test_a.py"), "test_a"},
		{filepath.Join(top, "tests", "test_a.py"), "tests.test_a"},
		{filepath.Join(top, "pkg", "sub", "__init__.py"), "pkg.sub"},
	}

	for _, tt := range tests {
		got, err := moduleName(top, tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := moduleName(top, filepath.Join(string(filepath.Separator), "elsewhere", "test_a.py"))
	assert.ErrorIs(t, err, ErrOutsideTopLevel)
}

func TestIsValidModuleName(t *testing.T) {
	t.Parallel()

	assert.True(t, isValidModuleName("test_a.py"))
	assert.True(t, isValidModuleName("Test_A.PY"))
	assert.True(t, isValidModuleName("_private.py"))
	assert.False(t, isValidModuleName("test-a.py"))
	assert.False(t, isValidModuleName("1test.py"))
	assert.False(t, isValidModuleName("test_a.pyc"))

	t.Run("should accept unicode identifiers", func(t *testing.T) {
		assert.True(t, isValidModuleName("test_ü.py"))
		assert.True(t, isValidModuleName("tést_数据.py"))
		assert.False(t, isValidModuleName("test_a b.py"))
	})
}

func TestFnmatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		want    string
	}{
		{"test*.py", "test*.py"},
		{"test_{a,b}.py", `test_\{a,b\}.py`},
		{`test\x.py`, `test\\x.py`},
		{"test_[{]*.py", "test_[{]*.py"},
		{"test_[]{].py", "test_[]{].py"},
		{"test_[!]]{.py", `test_[!]]\{.py`},
		{"test_[a", "test_[a"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, fnmatchPattern(tt.pattern), tt.pattern)
	}
}
