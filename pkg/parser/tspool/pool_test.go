package tspool_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specvital/unittest-adapter/pkg/parser/tspool"
)

func TestParse_RaceFree(t *testing.T) {
	t.Parallel()

	const goroutines = 50
	source := []byte("class A:\n    def test_x(self):\n        pass\n")

	var wg sync.WaitGroup
	wg.Add(goroutines)

	errCh := make(chan error, goroutines)

	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			tree, err := tspool.Parse(context.Background(), source)
			if err != nil {
				errCh <- err
				return
			}
			defer tree.Close()
		}()
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("Parse failed: %v", err)
	}
}

func TestParse_ReportsSyntaxErrors(t *testing.T) {
	t.Parallel()

	tree, err := tspool.Parse(context.Background(), []byte("def broken(:\n"))
	require.NoError(t, err)
	defer tree.Close()

	assert.True(t, tree.RootNode().HasError())
}

func TestQueryWithCache(t *testing.T) {
	source := []byte("class A:\n    pass\n\nclass B:\n    pass\n")

	tree, err := tspool.Parse(context.Background(), source)
	require.NoError(t, err)
	defer tree.Close()

	const q = `(class_definition name: (identifier) @name)`

	first, err := tspool.QueryWithCache(tree.RootNode(), q)
	require.NoError(t, err)
	second, err := tspool.QueryWithCache(tree.RootNode(), q)
	require.NoError(t, err)

	assert.Len(t, first, 2)
	assert.Len(t, second, 2)
	assert.Equal(t, "A", first[0].Captures["name"].Content(source))

	tspool.ClearQueryCache()
}

func TestQueryWithCache_InvalidQuery(t *testing.T) {
	tree, err := tspool.Parse(context.Background(), []byte("x = 1\n"))
	require.NoError(t, err)
	defer tree.Close()

	_, err = tspool.QueryWithCache(tree.RootNode(), `(not_a_node_type) @x`)
	assert.Error(t, err)

	tspool.ClearQueryCache()
}
