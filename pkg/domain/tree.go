// Package domain defines the core types for discovered Python tests.
package domain

import "strings"

// FailedTestPrefix is the reserved identifier prefix of placeholder cases
// standing in for modules that could not be imported.
const FailedTestPrefix = "unittest.loader._FailedTest"

// Node is an element of the discovery tree: either a *Group or a *Case.
type Node interface {
	node()
}

// Group is an intermediate grouping node (start directory, module, class).
type Group struct {
	Name     string
	Children []Node
}

// Case is a leaf test case.
type Case struct {
	// ID is the dotted identifier, e.g. "tests.test_a.A.test_x".
	ID       string
	Location Location
	Status   TestStatus
	// Err is set on placeholder cases created for failed imports.
	// A placeholder with a nil Err has no extractable message.
	Err error
}

func (*Group) node() {}
func (*Case) node()  {}

// Add appends children to the group.
func (g *Group) Add(children ...Node) {
	g.Children = append(g.Children, children...)
}

// IsFailedImport reports whether the case is a placeholder for a collection failure.
func (c *Case) IsFailedImport() bool {
	return strings.HasPrefix(c.ID, FailedTestPrefix)
}

// FailedImportCase builds the placeholder case for a module that failed to import.
func FailedImportCase(module string, err error) *Case {
	return &Case{
		ID:     FailedTestPrefix + "." + module,
		Status: TestStatusActive,
		Err:    err,
	}
}
