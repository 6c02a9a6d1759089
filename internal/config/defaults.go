package config

const (
	// DefaultStartDir is used when no start directory is given.
	DefaultStartDir = "."
	// DefaultPattern is unittest's default module pattern.
	DefaultPattern = "test*.py"
	// DefaultFormat is the editor line protocol.
	DefaultFormat = FormatProtocol
	// DefaultWorkers keeps discovery sequential.
	DefaultWorkers = 1
	// DefaultLogLevel keeps stderr quiet unless something goes wrong.
	DefaultLogLevel = "warn"
	// DefaultTestRunner is the Django runner class handed to manage.py test.
	DefaultTestRunner = "django_test_runner.CustomTestRunner"
	// DotenvFile is read from the start directory before anything else.
	DotenvFile = ".env"
)

// DefaultExcludePatterns are directories discovery never descends into, on
// top of the discovery package's own skip list.
var DefaultExcludePatterns = []string{
	".mypy_cache",
	".pytest_cache",
	"build",
	"dist",
}
