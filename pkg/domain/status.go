package domain

// TestStatus represents the execution behavior of a test as declared by its decorators.
type TestStatus string

const (
	// TestStatusActive indicates a normal test that runs and expects success.
	TestStatusActive TestStatus = "active"
	// TestStatusSkipped indicates a test decorated with unittest.skip, skipIf or skipUnless.
	TestStatusSkipped TestStatus = "skipped"
	// TestStatusXfail indicates a test decorated with unittest.expectedFailure.
	TestStatusXfail TestStatus = "xfail"
)
