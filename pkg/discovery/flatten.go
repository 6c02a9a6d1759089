package discovery

import (
	"github.com/specvital/unittest-adapter/pkg/domain"
)

// Flatten returns the leaf cases of the tree in depth-first order.
// Grouping nodes are never returned.
func Flatten(root domain.Node) []*domain.Case {
	var leaves []*domain.Case

	var visit func(n domain.Node)
	visit = func(n domain.Node) {
		switch v := n.(type) {
		case *domain.Case:
			leaves = append(leaves, v)
		case *domain.Group:
			for _, child := range v.Children {
				visit(child)
			}
		}
	}
	visit(root)

	return leaves
}

// Classify splits leaves into discovery entries and loader errors. Placeholder
// cases for failed imports become loader errors and never entries.
func Classify(leaves []*domain.Case) ([]domain.Entry, []domain.LoaderError) {
	entries := make([]domain.Entry, 0, len(leaves))
	var loaderErrors []domain.LoaderError

	for _, c := range leaves {
		if c.IsFailedImport() {
			loaderErrors = append(loaderErrors, domain.LoaderError{Source: c.ID, Err: c.Err})
			continue
		}
		entries = append(entries, domain.Entry{
			ID:       c.ID,
			Location: c.Location,
			Status:   c.Status,
		})
	}

	return entries, loaderErrors
}
