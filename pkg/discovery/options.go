package discovery

import (
	"github.com/rs/zerolog"
)

// Options configures discovery behavior.
type Options struct {
	// ExcludePatterns specifies directory names to skip during discovery.
	// These are combined with DefaultSkipPatterns.
	ExcludePatterns []string

	// ExtraBases names additional base classes whose subclasses are test cases.
	ExtraBases []string

	// Logger receives debug output. Defaults to a no-op logger.
	Logger zerolog.Logger

	// MaxFileSize is the maximum module size in bytes to parse.
	// Larger modules are skipped.
	MaxFileSize int64

	// TopLevelDir is the import root used to compute module names.
	// Empty means the working directory when it contains the start directory,
	// otherwise the start directory itself.
	TopLevelDir string

	// Workers specifies the number of concurrent module parsers.
	// Zero or negative values use DefaultWorkers.
	Workers int
}

// Option is a functional option for configuring Discover.
type Option func(*Options)

// WithTopLevelDir sets the import root.
func WithTopLevelDir(dir string) Option {
	return func(o *Options) {
		o.TopLevelDir = dir
	}
}

// WithWorkers sets the number of concurrent module parsers.
// Negative values are ignored.
func WithWorkers(n int) Option {
	return func(o *Options) {
		if n >= 0 {
			o.Workers = n
		}
	}
}

// WithExcludePatterns adds directory names to skip during discovery.
func WithExcludePatterns(patterns []string) Option {
	return func(o *Options) {
		o.ExcludePatterns = patterns
	}
}

// WithExtraBases adds base classes recognised as test cases.
func WithExtraBases(bases []string) Option {
	return func(o *Options) {
		o.ExtraBases = bases
	}
}

// WithMaxFileSize sets the maximum module size to parse.
func WithMaxFileSize(size int64) Option {
	return func(o *Options) {
		if size >= 0 {
			o.MaxFileSize = size
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

func applyDefaults(opts *Options) {
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Workers > MaxWorkers {
		opts.Workers = MaxWorkers
	}
}

func newOptions(opts []Option) *Options {
	options := &Options{Logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(options)
	}
	applyDefaults(options)
	return options
}
