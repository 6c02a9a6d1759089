package domain

// Location represents a position in source code.
// StartLine is 1-based; zero means the line could not be resolved.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine,omitempty"`
}

// Known reports whether the location carries a resolved source line.
func (l Location) Known() bool {
	return l.StartLine > 0
}
