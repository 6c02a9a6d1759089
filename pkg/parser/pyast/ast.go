// Package pyast provides Python AST traversal utilities for the unittest module parser.
package pyast

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/specvital/unittest-adapter/pkg/parser"
	"github.com/specvital/unittest-adapter/pkg/parser/tspool"
)

// Python AST node types.
const (
	NodeAliasedImport       = "aliased_import"
	NodeAssignment          = "assignment"
	NodeAttribute           = "attribute"
	NodeClassDefinition     = "class_definition"
	NodeDecorator           = "decorator"
	NodeDecoratedDefinition = "decorated_definition"
	NodeDeleteStatement     = "delete_statement"
	NodeDottedName          = "dotted_name"
	NodeExecStatement       = "exec_statement"
	NodeExpressionList      = "expression_list"
	NodeExpressionStatement = "expression_statement"
	NodeFunctionDefinition  = "function_definition"
	NodeIdentifier          = "identifier"
	NodeImportFromStatement = "import_from_statement"
	NodeImportStatement     = "import_statement"
	NodeKeywordArgument     = "keyword_argument"
	NodeLambda              = "lambda"
	NodePrintStatement      = "print_statement"
	NodeReturnStatement     = "return_statement"
	NodeWildcardImport      = "wildcard_import"
	NodeYield               = "yield"
)

// GetDecoratedDefinition extracts the actual definition from a decorated_definition node.
func GetDecoratedDefinition(node *sitter.Node) *sitter.Node {
	definition := node.ChildByFieldName("definition")
	if definition != nil {
		return definition
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == NodeFunctionDefinition || child.Type() == NodeClassDefinition {
			return child
		}
	}
	return nil
}

// GetDecorators extracts all decorator nodes from a decorated_definition.
func GetDecorators(node *sitter.Node) []*sitter.Node {
	var decorators []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == NodeDecorator {
			decorators = append(decorators, child)
		}
	}
	return decorators
}

// Unwrap returns the definition inside a decorated_definition together with
// its decorators. Other nodes are returned unchanged.
func Unwrap(node *sitter.Node) (*sitter.Node, []*sitter.Node) {
	if node.Type() != NodeDecoratedDefinition {
		return node, nil
	}
	return GetDecoratedDefinition(node), GetDecorators(node)
}

// Name returns the text of the node's name field.
func Name(node *sitter.Node, source []byte) string {
	return parser.GetNodeText(node.ChildByFieldName("name"), source)
}

// BaseNames returns the positional superclass expressions of a class_definition
// as written, e.g. ["unittest.TestCase", "Mixin"]. Keyword arguments such as
// metaclass=... are ignored.
func BaseNames(class *sitter.Node, source []byte) []string {
	args := class.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}

	var bases []string
	for i := 0; i < int(args.NamedChildCount()); i++ {
		arg := args.NamedChild(i)
		switch arg.Type() {
		case NodeIdentifier, NodeAttribute:
			bases = append(bases, parser.GetNodeText(arg, source))
		case NodeKeywordArgument, "comment":
		default:
			// Subscripts and calls, e.g. Generic[T]; keep the text so callers
			// see an unresolved base.
			bases = append(bases, parser.GetNodeText(arg, source))
		}
	}
	return bases
}

// LastComponent returns the final dotted component of a name ("unittest.TestCase" → "TestCase").
func LastComponent(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// Assignment returns the left and right sides of a class-body statement of
// the form `name = value`. ok is false for anything else.
func Assignment(stmt *sitter.Node) (left, right *sitter.Node, ok bool) {
	if stmt.Type() != NodeExpressionStatement || stmt.NamedChildCount() == 0 {
		return nil, nil, false
	}

	assign := stmt.NamedChild(0)
	if assign.Type() != NodeAssignment {
		return nil, nil, false
	}

	left = assign.ChildByFieldName("left")
	right = assign.ChildByFieldName("right")
	if left == nil || right == nil || left.Type() != NodeIdentifier {
		return nil, nil, false
	}
	return left, right, true
}

// ImportedNames returns the names an import statement binds in the importing
// namespace. "import a.b" binds a; "import a as b" and "from m import a as b"
// bind b. wildcard reports "from m import *".
func ImportedNames(stmt *sitter.Node, source []byte) (names []string, wildcard bool) {
	module := stmt.ChildByFieldName("module_name")

	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		child := stmt.NamedChild(i)
		if module != nil && child.StartByte() == module.StartByte() && child.EndByte() == module.EndByte() {
			continue
		}

		switch child.Type() {
		case NodeDottedName:
			name := parser.GetNodeText(child, source)
			if idx := strings.Index(name, "."); idx >= 0 {
				name = name[:idx]
			}
			names = append(names, strings.TrimSpace(name))
		case NodeAliasedImport:
			if alias := child.ChildByFieldName("alias"); alias != nil {
				names = append(names, parser.GetNodeText(alias, source))
			}
		}
	}

	wildcard = stmt.Type() == NodeImportFromStatement && parser.FindChildByType(stmt, NodeWildcardImport) != nil
	return names, wildcard
}

// DeletedNames returns the plain names removed by a del statement.
// Subscript and attribute targets are skipped.
func DeletedNames(stmt *sitter.Node, source []byte) []string {
	var names []string
	for i := 0; i < int(stmt.NamedChildCount()); i++ {
		target := stmt.NamedChild(i)
		switch target.Type() {
		case NodeIdentifier:
			names = append(names, parser.GetNodeText(target, source))
		case NodeExpressionList:
			for j := 0; j < int(target.NamedChildCount()); j++ {
				if item := target.NamedChild(j); item.Type() == NodeIdentifier {
					names = append(names, parser.GetNodeText(item, source))
				}
			}
		}
	}
	return names
}

const errorQuery = `(ERROR) @error`

// FirstSyntaxError returns the earliest node the Python compiler rejects:
// ERROR or MISSING nodes, Python 2 print and exec statements, and return or
// yield outside a function. It returns nil when the module compiles.
func FirstSyntaxError(root *sitter.Node) *sitter.Node {
	var first *sitter.Node
	consider := func(n *sitter.Node) {
		if first == nil || n.StartByte() < first.StartByte() {
			first = n
		}
	}

	if root.HasError() {
		if results, err := tspool.QueryWithCache(root, errorQuery); err == nil {
			for _, r := range results {
				consider(r.Node)
			}
		}

		parser.WalkTree(root, func(n *sitter.Node) bool {
			if n.IsMissing() {
				consider(n)
			}
			return n.HasError()
		})
	}

	walkStatements(root, false, 0, consider)

	if first == nil && root.HasError() {
		return root
	}
	return first
}

// walkStatements reports statements that only parse under Python 2 or that
// are invalid in their enclosing scope.
func walkStatements(node *sitter.Node, inFunction bool, depth int, report func(*sitter.Node)) {
	if depth > tspool.MaxTreeDepth {
		return
	}

	switch node.Type() {
	case NodePrintStatement, NodeExecStatement:
		report(node)
		return
	case NodeReturnStatement:
		if !inFunction {
			report(node)
			return
		}
	case NodeYield:
		if node.IsNamed() && !inFunction {
			report(node)
			return
		}
	case NodeFunctionDefinition, NodeLambda:
		inFunction = true
	case NodeClassDefinition:
		inFunction = false
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		walkStatements(node.NamedChild(i), inFunction, depth+1, report)
	}
}
