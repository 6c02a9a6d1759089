package discovery_test

import (
	"context"
	"fmt"
	"os"

	"github.com/specvital/unittest-adapter/pkg/discovery"
	"github.com/specvital/unittest-adapter/pkg/report"
)

func Example() {
	ctx := context.Background()

	// Discover the tests of one package; module names are computed against the project root.
	result, err := discovery.Discover(ctx, "testdata/projects/packages/pkg_a", "test*.py",
		discovery.WithTopLevelDir("testdata/projects/packages"),
	)
	if err != nil {
		_ = report.WriteFailure(os.Stdout, err)
		return
	}

	_ = report.WriteProtocol(os.Stdout, result.Inventory)
	// Output:
	// start
	// pkg_a:nested:InitTest:test_init:5
	// pkg_a:nested:test_deep:DeepTest:test_deep:5
	// pkg_a:test_views:ViewTests:test_index:5
}

func Example_withOptions() {
	ctx := context.Background()

	result, err := discovery.Discover(ctx, "/path/to/project", discovery.DefaultPattern,
		discovery.WithWorkers(4),                            // Parse 4 modules at a time
		discovery.WithExcludePatterns([]string{"fixtures"}), // Skip fixtures directories
		discovery.WithExtraBases([]string{"MyBaseCase"}),    // Treat MyBaseCase subclasses as tests
	)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Found %d tests in %d modules\n", result.Inventory.CountTests(), result.Stats.ModulesFound)
}

func ExampleFlatten() {
	result, err := discovery.Discover(context.Background(), "/path/to/project", discovery.DefaultPattern)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	// The tree mirrors the suite nesting: start directory, modules, classes, cases.
	for _, leaf := range discovery.Flatten(result.Root) {
		if leaf.IsFailedImport() {
			fmt.Printf("failed: %s\n", leaf.ID)
			continue
		}
		fmt.Printf("%s (line %d)\n", leaf.ID, leaf.Location.StartLine)
	}
}
