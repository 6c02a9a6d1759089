package domain

import "strings"

// Entry is one discovered test case: a stable identifier plus its source line.
type Entry struct {
	// ID is the dotted identifier module.Class.method.
	ID       string     `json:"id"`
	Location Location   `json:"location"`
	Status   TestStatus `json:"status"`
}

// ProtocolID returns the identifier with the id separator used on the wire.
func (e Entry) ProtocolID() string {
	return strings.ReplaceAll(e.ID, ".", ":")
}

// LoaderError is a collection-time failure that is not tied to a single test.
type LoaderError struct {
	// Source is the placeholder identifier the failure was captured from.
	Source string `json:"source"`
	Err    error  `json:"-"`
}

// Message returns the error message. ok is false when no message can be extracted.
func (e LoaderError) Message() (msg string, ok bool) {
	if e.Err == nil {
		return "", false
	}
	return e.Err.Error(), true
}

// Inventory is the classified outcome of a discovery run.
type Inventory struct {
	// Entries are discovered leaf tests in depth-first discovery order.
	Entries []Entry `json:"entries"`
	// LoaderErrors are import/collection failures in discovery order.
	LoaderErrors []LoaderError `json:"-"`
	// RootPath is the start directory of the run.
	RootPath string `json:"rootPath"`
}

// CountTests returns the number of discovered entries.
func (inv Inventory) CountTests() int {
	return len(inv.Entries)
}
