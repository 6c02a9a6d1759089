// Package unittest statically extracts the test cases unittest.TestLoader
// would load from a Python module.
package unittest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/specvital/unittest-adapter/pkg/domain"
	"github.com/specvital/unittest-adapter/pkg/parser"
	"github.com/specvital/unittest-adapter/pkg/parser/pyast"
	"github.com/specvital/unittest-adapter/pkg/parser/tspool"
)

const (
	// TestMethodPrefix is unittest.TestLoader.testMethodPrefix.
	TestMethodPrefix = "test"
	// DefaultMethodName is the method loaded when a class defines no test methods.
	DefaultMethodName = "runTest"

	testCaseSuffix = "TestCase"
	maxAliasDepth  = 32
)

// Options tunes test case class recognition.
type Options struct {
	// ExtraBases names additional base classes (last dotted component or full
	// dotted name) whose subclasses are test cases.
	ExtraBases []string
}

// Module is the statically loaded content of one Python module.
type Module struct {
	// Name is the dotted module name, e.g. "tests.test_a".
	Name string
	// Path is the file the module was read from.
	Path string
	// Classes are the test case classes in module namespace order (sorted by name).
	Classes []Class
	// Err is non-nil when the module could not be imported.
	Err error
}

// Class is a test case class and the test methods loaded from it.
type Class struct {
	Name     string
	Location domain.Location
	Status   domain.TestStatus
	Tests    []Method
}

// Method is one loaded test method. Location.StartLine is zero when the
// underlying callable cannot be resolved to a def statement.
type Method struct {
	Name     string
	Location domain.Location
	Status   domain.TestStatus
}

// ImportError describes a module that fails to import because of a syntax error.
type ImportError struct {
	Module string
	Path   string
	// Line is 1-based; Column is 0-based.
	Line   int
	Column int
	Text   string
}

func (e *ImportError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Failed to import test module: %s\n", e.Module)
	fmt.Fprintf(&b, "  File %q, line %d\n", e.Path, e.Line)
	if e.Text != "" {
		fmt.Fprintf(&b, "    %s\n", e.Text)
		fmt.Fprintf(&b, "    %s^\n", strings.Repeat(" ", e.Column))
	}
	b.WriteString("SyntaxError: invalid syntax")
	return b.String()
}

// ParseModule parses source and returns the test case classes of module.
// Syntax errors do not fail the call; they are reported through Module.Err.
func ParseModule(ctx context.Context, source []byte, path, module string, opts Options) (*Module, error) {
	tree, err := tspool.Parse(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("unittest parser: failed to parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	mod := &Module{Name: module, Path: path}

	if bad := pyast.FirstSyntaxError(root); bad != nil {
		mod.Err = newImportError(bad, source, path, module)
		return mod, nil
	}

	ns := collectNamespace(root, source, path)
	l := &loader{ns: ns, opts: opts, memo: make(map[*classDef]verdict)}

	names := make([]string, 0, len(ns.classes))
	for name := range ns.classes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !l.isTestCase(name) {
			continue
		}
		mod.Classes = append(mod.Classes, l.loadClass(ns.classes[name]))
	}

	return mod, nil
}

func newImportError(node *sitter.Node, source []byte, path, module string) *ImportError {
	point := node.StartPoint()
	lines := strings.Split(string(source), "\n")

	var text string
	column := int(point.Column)
	if row := int(point.Row); row < len(lines) {
		raw := strings.TrimRight(lines[row], "\r")
		text = strings.TrimLeft(raw, " \t")
		column -= len(raw) - len(text)
		if column < 0 {
			column = 0
		}
		text = strings.TrimRight(text, " \t")
	}

	return &ImportError{
		Module: module,
		Path:   path,
		Line:   int(point.Row) + 1,
		Column: column,
		Text:   text,
	}
}

type member struct {
	callable bool
	// line is the def line; zero when unknown.
	line   int
	alias  string
	status domain.TestStatus
}

type classDef struct {
	name     string
	location domain.Location
	status   domain.TestStatus
	bases    []string
	// parents holds, per base, the module-level class the base named when
	// the class statement ran; nil for bases bound elsewhere.
	parents []*classDef
	// imported marks, per base, names bound by imports or module-level
	// assignments when the class statement ran.
	imported []bool
	members  map[string]member
}

type namespace struct {
	classes   map[string]*classDef
	functions map[string]member
	// external holds names bound by imports or module-level assignments,
	// whose values cannot be known without importing.
	external map[string]bool
	// wildcard is set by "from module import *".
	wildcard bool
}

// builtinBases are builtins commonly used as base classes. They never make a
// class a test case.
var builtinBases = map[string]bool{
	"object":        true,
	"type":          true,
	"BaseException": true,
	"Exception":     true,
	"dict":          true,
	"list":          true,
	"set":           true,
	"frozenset":     true,
	"tuple":         true,
	"str":           true,
	"bytes":         true,
	"int":           true,
	"float":         true,
}

func collectNamespace(root *sitter.Node, source []byte, path string) *namespace {
	ns := &namespace{
		classes:   make(map[string]*classDef),
		functions: make(map[string]member),
		external:  make(map[string]bool),
	}

	for i := 0; i < int(root.ChildCount()); i++ {
		node, decorators := pyast.Unwrap(root.Child(i))
		if node == nil {
			continue
		}

		switch node.Type() {
		case pyast.NodeClassDefinition:
			name := pyast.Name(node, source)
			if name == "" {
				continue
			}
			bases := pyast.BaseNames(node, source)
			parents := make([]*classDef, len(bases))
			imported := make([]bool, len(bases))
			for j, base := range bases {
				parents[j] = ns.classes[base]
				imported[j] = ns.isExternal(base)
			}
			delete(ns.functions, name)
			delete(ns.external, name)
			ns.classes[name] = &classDef{
				name:     name,
				location: parser.GetLocation(node, path),
				status:   getStatusFromDecorators(decorators, source),
				bases:    bases,
				parents:  parents,
				imported: imported,
				members:  collectMembers(node.ChildByFieldName("body"), source),
			}

		case pyast.NodeFunctionDefinition:
			name := pyast.Name(node, source)
			delete(ns.classes, name)
			delete(ns.external, name)
			ns.functions[name] = member{callable: true, line: defLine(node)}

		case pyast.NodeExpressionStatement:
			if left, _, ok := pyast.Assignment(node); ok {
				ns.bindExternal(parser.GetNodeText(left, source))
			}

		case pyast.NodeImportStatement, pyast.NodeImportFromStatement:
			ns.bindImports(node, source)

		case pyast.NodeDeleteStatement:
			for _, name := range pyast.DeletedNames(node, source) {
				ns.unbind(name)
				delete(ns.external, name)
			}

		default:
			// Imports guarded by try, if or with blocks still bind module names.
			parser.WalkTree(node, func(n *sitter.Node) bool {
				switch n.Type() {
				case pyast.NodeFunctionDefinition, pyast.NodeClassDefinition:
					return false
				case pyast.NodeImportStatement, pyast.NodeImportFromStatement:
					ns.bindImports(n, source)
					return false
				}
				return true
			})
		}
	}

	return ns
}

func (ns *namespace) bindImports(node *sitter.Node, source []byte) {
	names, wildcard := pyast.ImportedNames(node, source)
	for _, name := range names {
		ns.bindExternal(name)
	}
	ns.wildcard = ns.wildcard || wildcard
}

// bindExternal rebinds name to a value defined outside the class statements.
func (ns *namespace) bindExternal(name string) {
	ns.unbind(name)
	ns.external[name] = true
}

// unbind removes the class or function currently bound to name.
func (ns *namespace) unbind(name string) {
	delete(ns.classes, name)
	delete(ns.functions, name)
}

// isExternal reports whether a base expression refers to an imported or
// assigned name.
func (ns *namespace) isExternal(base string) bool {
	root := base
	if idx := strings.IndexAny(root, "[("); idx >= 0 {
		root = root[:idx]
	}
	if idx := strings.Index(root, "."); idx >= 0 {
		root = root[:idx]
	}
	root = strings.TrimSpace(root)

	if ns.external[root] {
		return true
	}
	return ns.wildcard && !builtinBases[root]
}

func collectMembers(body *sitter.Node, source []byte) map[string]member {
	members := make(map[string]member)
	if body == nil {
		return members
	}

	for i := 0; i < int(body.ChildCount()); i++ {
		node, decorators := pyast.Unwrap(body.Child(i))
		if node == nil {
			continue
		}

		switch node.Type() {
		case pyast.NodeFunctionDefinition:
			members[pyast.Name(node, source)] = member{
				callable: true,
				line:     defLine(node),
				status:   getStatusFromDecorators(decorators, source),
			}

		case pyast.NodeClassDefinition:
			// Nested classes are callable but have no def line.
			members[pyast.Name(node, source)] = member{callable: true}

		case pyast.NodeExpressionStatement:
			left, right, ok := pyast.Assignment(node)
			if !ok {
				continue
			}
			members[parser.GetNodeText(left, source)] = valueMember(right, source)
		}
	}

	return members
}

// valueMember classifies the right-hand side of a class attribute assignment.
func valueMember(value *sitter.Node, source []byte) member {
	switch value.Type() {
	case pyast.NodeIdentifier:
		return member{alias: parser.GetNodeText(value, source)}
	case "call", pyast.NodeAttribute, "lambda", "subscript", "conditional_expression":
		return member{callable: true}
	default:
		return member{}
	}
}

func defLine(fn *sitter.Node) int {
	return int(fn.StartPoint().Row) + 1
}

type loader struct {
	ns   *namespace
	opts Options
	memo map[*classDef]verdict
}

// isTestCase reports whether the named module-level class derives from a test case base.
func (l *loader) isTestCase(name string) bool {
	class, ok := l.ns.classes[name]
	if !ok {
		return false
	}
	return l.classify(class, make(map[*classDef]bool)).test
}

type verdict struct {
	test bool
	// unresolved is set when some ancestor is imported from another module.
	unresolved bool
}

func (l *loader) classify(class *classDef, visiting map[*classDef]bool) verdict {
	if v, ok := l.memo[class]; ok {
		return v
	}
	if visiting[class] {
		return verdict{}
	}
	visiting[class] = true

	var v verdict
	for i, base := range class.bases {
		if parent := class.parents[i]; parent != nil {
			pv := l.classify(parent, visiting)
			v.test = v.test || pv.test
			v.unresolved = v.unresolved || pv.unresolved
			continue
		}
		if l.isTestCaseBase(base) {
			v.test = true
			continue
		}
		if class.imported[i] {
			v.unresolved = true
		}
	}

	// Imported bases cannot be followed; fall back to naming.
	if !v.test && v.unresolved {
		v.test = isTestClassName(class.name)
	}

	l.memo[class] = v
	return v
}

// isTestClassName matches the usual names of test case classes.
func isTestClassName(name string) bool {
	return strings.HasPrefix(name, "Test") ||
		strings.HasSuffix(name, "Test") ||
		strings.HasSuffix(name, "Tests")
}

func (l *loader) isTestCaseBase(base string) bool {
	last := pyast.LastComponent(base)
	if strings.HasSuffix(last, testCaseSuffix) {
		return true
	}
	for _, extra := range l.opts.ExtraBases {
		if extra == base || pyast.LastComponent(extra) == last {
			return true
		}
	}
	return false
}

// mro returns the class followed by its module-level bases, depth first,
// each class once.
func (l *loader) mro(class *classDef) []*classDef {
	var order []*classDef
	seen := make(map[*classDef]bool)

	var visit func(c *classDef)
	visit = func(c *classDef) {
		if seen[c] {
			return
		}
		seen[c] = true
		order = append(order, c)
		for _, parent := range c.parents {
			if parent != nil {
				visit(parent)
			}
		}
	}
	visit(class)

	return order
}

func lookup(mro []*classDef, name string) (member, bool) {
	for _, c := range mro {
		if m, ok := c.members[name]; ok {
			return m, true
		}
	}
	return member{}, false
}

// resolve follows aliases (test_b = test_a) to the callable they name.
func (l *loader) resolve(mro []*classDef, m member) member {
	for depth := 0; m.alias != "" && depth < maxAliasDepth; depth++ {
		name := m.alias
		if next, ok := lookup(mro, name); ok {
			m = next
			continue
		}
		if fn, ok := l.ns.functions[name]; ok {
			return fn
		}
		if _, ok := l.ns.classes[name]; ok {
			return member{callable: true}
		}
		// Bound to something defined outside this module.
		return member{callable: true}
	}
	if m.alias != "" {
		return member{callable: true}
	}
	return m
}

func (l *loader) loadClass(class *classDef) Class {
	mro := l.mro(class)

	var names []string
	seen := make(map[string]bool)
	for _, c := range mro {
		for name := range c.members {
			if seen[name] || !strings.HasPrefix(name, TestMethodPrefix) {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)

	loaded := Class{
		Name:     class.name,
		Location: class.location,
		Status:   class.status,
	}

	for _, name := range names {
		m, _ := lookup(mro, name)
		if m = l.resolve(mro, m); !m.callable {
			continue
		}
		loaded.Tests = append(loaded.Tests, l.method(class, name, m))
	}

	if len(loaded.Tests) == 0 {
		if m, ok := lookup(mro, DefaultMethodName); ok {
			if m = l.resolve(mro, m); m.callable {
				loaded.Tests = append(loaded.Tests, l.method(class, DefaultMethodName, m))
			}
		}
	}

	return loaded
}

func (l *loader) method(class *classDef, name string, m member) Method {
	status := m.status
	if status == "" {
		status = domain.TestStatusActive
	}
	// Inherit class status if method has default (active) status
	if status == domain.TestStatusActive && class.status != domain.TestStatusActive {
		status = class.status
	}

	return Method{
		Name: name,
		Location: domain.Location{
			File:      class.location.File,
			StartLine: m.line,
		},
		Status: status,
	}
}

func getStatusFromDecorators(decorators []*sitter.Node, source []byte) domain.TestStatus {
	for _, dec := range decorators {
		text := parser.GetNodeText(dec, source)

		switch {
		case strings.Contains(text, "expectedFailure"):
			return domain.TestStatusXfail
		case strings.Contains(text, "unittest.skip"),
			strings.HasPrefix(text, "@skip"):
			return domain.TestStatusSkipped
		}
	}
	return domain.TestStatusActive
}
