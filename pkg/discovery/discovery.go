// Package discovery enumerates Python unittest test cases beneath a start
// directory the way unittest.TestLoader.discover does, without importing
// anything: modules are parsed with tree-sitter.
package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/specvital/unittest-adapter/pkg/domain"
	"github.com/specvital/unittest-adapter/pkg/parser/unittest"
)

const (
	// DefaultWorkers keeps discovery a single sequential pass.
	DefaultWorkers = 1
	// MaxWorkers is the maximum number of concurrent parsers allowed.
	MaxWorkers = 1024
	// DefaultMaxFileSize is the default maximum module size (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024
	// DefaultPattern is unittest's default module pattern.
	DefaultPattern = "test*.py"

	packageInit = "__init__.py"
)

// DefaultSkipPatterns contains directory names that are never descended into.
var DefaultSkipPatterns = []string{
	".git",
	".hg",
	".tox",
	".venv",
	"__pycache__",
	"node_modules",
	"venv",
}

// Result is the outcome of a discovery run.
type Result struct {
	// Root is the discovery tree: start directory → modules → classes → cases.
	Root *domain.Group
	// Inventory is the flattened and classified tree.
	Inventory domain.Inventory
	// TopLevelDir is the import root module names were computed against.
	TopLevelDir string
	Stats       Stats
}

// Stats provides statistics about the run.
type Stats struct {
	// ModulesFound is the number of modules (including package __init__ files) parsed.
	ModulesFound int
	// ModulesFailed is the number of modules that failed to import.
	ModulesFailed int
	// ModulesSkipped is the number of modules over the size limit.
	ModulesSkipped int
	Duration       time.Duration
}

// Discover finds the test modules under startDir whose file names match
// pattern and returns every test case they define.
//
// Import failures of individual modules are part of the result. The returned
// error is non-nil only for unexpected failures (bad pattern, unusable start
// directory, cancellation) and is then always a *Error.
func Discover(ctx context.Context, startDir, pattern string, opts ...Option) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = newError("discover", fmt.Errorf("panic: %v", r))
		}
	}()

	start := time.Now()
	options := newOptions(opts)

	if !doublestar.ValidatePattern(fnmatchPattern(pattern)) {
		return nil, newError("discover", fmt.Errorf("%w: %q", ErrBadPattern, pattern))
	}

	startAbs, topLevel, err := resolveDirs(startDir, options.TopLevelDir)
	if err != nil {
		return nil, newError("discover", err)
	}

	d := &discoverer{
		pattern: pattern,
		top:     topLevel,
		options: options,
		skipSet: buildSkipSet(append(append([]string{}, DefaultSkipPatterns...), options.ExcludePatterns...)),
		visited: make(map[string]bool),
	}

	plan, err := d.plan(startAbs)
	if err != nil {
		return nil, newError("discover", err)
	}

	modules, err := d.parseAll(ctx)
	if err != nil {
		return nil, newError("discover", err)
	}

	root := &domain.Group{Name: startDir}
	root.Add(d.assemble(plan, modules)...)

	entries, loaderErrors := Classify(Flatten(root))

	result = &Result{
		Root: root,
		Inventory: domain.Inventory{
			Entries:      entries,
			LoaderErrors: loaderErrors,
			RootPath:     startAbs,
		},
		TopLevelDir: topLevel,
		Stats: Stats{
			ModulesFound:   len(d.jobs),
			ModulesFailed:  len(loaderErrors),
			ModulesSkipped: d.skipped,
			Duration:       time.Since(start),
		},
	}

	options.Logger.Debug().
		Str("start_dir", startAbs).
		Str("top_level_dir", topLevel).
		Int("modules", result.Stats.ModulesFound).
		Int("tests", len(entries)).
		Int("failed", len(loaderErrors)).
		Dur("duration", result.Stats.Duration).
		Msg("discovery finished")

	return result, nil
}

func resolveDirs(startDir, topLevelDir string) (string, string, error) {
	startAbs, err := filepath.Abs(startDir)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrStartDir, err)
	}

	info, err := os.Stat(startAbs)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrStartDir, err)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("%w: %s is not a directory", ErrStartDir, startDir)
	}

	var topAbs string
	if topLevelDir != "" {
		if topAbs, err = filepath.Abs(topLevelDir); err != nil {
			return "", "", err
		}
	} else {
		topAbs = startAbs
		if wd, err := os.Getwd(); err == nil && within(wd, startAbs) {
			topAbs = wd
		}
	}

	if !within(topAbs, startAbs) {
		return "", "", fmt.Errorf("%w: %s is outside %s", ErrOutsideTopLevel, startAbs, topAbs)
	}
	return startAbs, topAbs, nil
}

func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

type job struct {
	path   string
	module string
}

// planEntry is one discovered module in walk order. Packages carry the
// entries found beneath them.
type planEntry struct {
	job      int
	children []planEntry
}

type discoverer struct {
	pattern string
	top     string
	options *Options
	skipSet map[string]bool
	visited map[string]bool
	jobs    []job
	skipped int
}

// plan walks the start directory. A start directory that is itself a package
// below the top-level directory is imported first, so its __init__ is loaded
// and a failing __init__ hides the modules beneath it.
func (d *discoverer) plan(startAbs string) ([]planEntry, error) {
	if startAbs == d.top || !isPackage(startAbs) {
		return d.walk(startAbs)
	}

	idx, ok, err := d.addJob(filepath.Join(startAbs, packageInit))
	if err != nil || !ok {
		return nil, err
	}
	children, err := d.walk(startAbs)
	if err != nil {
		return nil, err
	}
	return []planEntry{{job: idx, children: children}}, nil
}

// walk lists dir in sorted order like TestLoader._find_tests: matching
// modules are loaded and packages (directories with __init__.py) are loaded
// and descended into.
func (d *discoverer) walk(dir string) ([]planEntry, error) {
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		resolved = dir
	}
	if d.visited[resolved] {
		return nil, nil
	}
	d.visited[resolved] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var plan []planEntry
	for _, entry := range entries {
		full := filepath.Join(dir, entry.Name())

		info, err := os.Stat(full)
		if err != nil {
			d.options.Logger.Debug().Err(err).Str("path", full).Msg("skipping unreadable entry")
			continue
		}

		if info.IsDir() {
			if d.skipSet[entry.Name()] || !isPackage(full) {
				continue
			}
			idx, ok, err := d.addJob(filepath.Join(full, packageInit))
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			children, err := d.walk(full)
			if err != nil {
				return nil, err
			}
			plan = append(plan, planEntry{job: idx, children: children})
			continue
		}

		if !info.Mode().IsRegular() || !d.matches(entry.Name()) {
			continue
		}
		idx, ok, err := d.addJob(full)
		if err != nil {
			return nil, err
		}
		if ok {
			plan = append(plan, planEntry{job: idx})
		}
	}

	return plan, nil
}

func (d *discoverer) matches(name string) bool {
	// Package initialisers are loaded with their package.
	if name == packageInit || !isValidModuleName(name) {
		return false
	}
	matched, err := doublestar.Match(fnmatchPattern(d.pattern), name)
	return err == nil && matched
}

func (d *discoverer) addJob(path string) (int, bool, error) {
	if info, err := os.Stat(path); err == nil && info.Size() > d.options.MaxFileSize {
		d.options.Logger.Debug().Str("path", path).Int64("size", info.Size()).Msg("skipping oversized module")
		d.skipped++
		return 0, false, nil
	}

	module, err := moduleName(d.top, path)
	if err != nil {
		return 0, false, err
	}

	d.jobs = append(d.jobs, job{path: path, module: module})
	return len(d.jobs) - 1, true, nil
}

// parseAll parses every planned module with at most Workers in flight.
// Results are indexed by job so assembly order does not depend on scheduling.
func (d *discoverer) parseAll(ctx context.Context) ([]*unittest.Module, error) {
	modules := make([]*unittest.Module, len(d.jobs))
	sem := semaphore.NewWeighted(int64(d.options.Workers))
	g, gCtx := errgroup.WithContext(ctx)

	opts := unittest.Options{ExtraBases: d.options.ExtraBases}

	for i, j := range d.jobs {
		i, j := i, j
		g.Go(func() error {
			if err := sem.Acquire(gCtx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			mod, err := parseModule(gCtx, j, opts)
			if err != nil {
				return err
			}

			modules[i] = mod
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return modules, nil
}

func parseModule(ctx context.Context, j job, opts unittest.Options) (*unittest.Module, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source, err := os.ReadFile(j.path)
	if err != nil {
		return &unittest.Module{
			Name: j.module,
			Path: j.path,
			Err:  fmt.Errorf("Failed to import test module: %s\n%w", j.module, err),
		}, nil
	}

	return unittest.ParseModule(ctx, source, j.path, j.module, opts)
}

// assemble turns the walk plan into the discovery tree. A package whose
// __init__ fails to import contributes only its failure.
func (d *discoverer) assemble(plan []planEntry, modules []*unittest.Module) []domain.Node {
	var nodes []domain.Node
	for _, entry := range plan {
		mod := modules[entry.job]
		if mod.Err != nil {
			nodes = append(nodes, &domain.Group{
				Name:     mod.Name,
				Children: []domain.Node{domain.FailedImportCase(mod.Name, mod.Err)},
			})
			continue
		}

		nodes = append(nodes, moduleGroup(mod))
		nodes = append(nodes, d.assemble(entry.children, modules)...)
	}
	return nodes
}

func moduleGroup(mod *unittest.Module) *domain.Group {
	group := &domain.Group{Name: mod.Name}
	for _, class := range mod.Classes {
		classGroup := &domain.Group{Name: class.Name}
		for _, m := range class.Tests {
			classGroup.Add(&domain.Case{
				ID:       mod.Name + "." + class.Name + "." + m.Name,
				Location: m.Location,
				Status:   m.Status,
			})
		}
		group.Add(classGroup)
	}
	return group
}

func buildSkipSet(patterns []string) map[string]bool {
	skipSet := make(map[string]bool, len(patterns))
	for _, p := range patterns {
		skipSet[p] = true
	}
	return skipSet
}
