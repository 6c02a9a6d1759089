//go:build ignore

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/specvital/unittest-adapter/pkg/discovery"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: go run scripts/discover.go <path> [pattern]\n")
		os.Exit(1)
	}

	path := os.Args[1]
	pattern := discovery.DefaultPattern
	if len(os.Args) > 2 {
		pattern = os.Args[2]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := discovery.Discover(ctx, path, pattern,
		discovery.WithTopLevelDir(path),
		discovery.WithWorkers(runtime.NumCPU()),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "discovery error: %v\n", err)
		os.Exit(1)
	}

	output := map[string]interface{}{
		"modulesFound":   result.Stats.ModulesFound,
		"modulesFailed":  result.Stats.ModulesFailed,
		"modulesSkipped": result.Stats.ModulesSkipped,
		"testCount":      result.Inventory.CountTests(),
		"duration":       result.Stats.Duration.String(),
		"statuses":       countStatuses(result),
	}
	json.NewEncoder(os.Stdout).Encode(output)
}

func countStatuses(result *discovery.Result) map[string]int {
	counts := make(map[string]int)
	for _, entry := range result.Inventory.Entries {
		counts[string(entry.Status)]++
	}
	return counts
}
