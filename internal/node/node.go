// Package node implements the Query Node Tree of SPEC_FULL.md §5.6 /
// spec.md §4.6: a tagged tree of SQL-statement fragments, each with a
// default rendering contract, assembled into back-end-agnostic SQL
// text plus a positional parameter list by a single threaded render
// pass (NodeSqlCmdContext).
//
// Grounded on original_source/src/include/io/nodes/Node.h for the tag
// enumeration and the cmd/cmd_impl/cmd_impl_def split, and on the
// Node{Field,From,Join,Qual,OrderBy,Query*,CreateTable}.c files for
// each tag's rendering contract. Where the original dispatches per tag
// through a NodeOpsFuncs function-pointer vtable installed at node
// creation, each concrete node type here implements its own
// renderDefault method, called through the Node interface, which keeps
// each node's default renderer next to its own fields.
package node

// Tag is a NodeTag: which kind of tree fragment a Node is.
type Tag int

const (
	TagInvalid Tag = iota
	TagQuery
	TagDDLCommand
	TagWith
	TagField
	TagFieldList
	TagFrom
	TagFromList
	TagJoin
	TagJoinList
	TagWhere
	TagOrderByList
	TagOrderBy
	TagLimit
	TagOffset
	TagQual
	TagQualList
)

func (t Tag) String() string {
	switch t {
	case TagQuery:
		return "Query"
	case TagDDLCommand:
		return "DDLCommand"
	case TagWith:
		return "With"
	case TagField:
		return "Field"
	case TagFieldList:
		return "FieldList"
	case TagFrom:
		return "From"
	case TagFromList:
		return "FromList"
	case TagJoin:
		return "Join"
	case TagJoinList:
		return "JoinList"
	case TagWhere:
		return "Where"
	case TagOrderByList:
		return "OrderByList"
	case TagOrderBy:
		return "OrderBy"
	case TagLimit:
		return "Limit"
	case TagOffset:
		return "Offset"
	case TagQual:
		return "Qual"
	case TagQualList:
		return "QualList"
	default:
		return "Invalid"
	}
}

// Node is the common tree-member contract every node tag satisfies.
// Children returns this node's direct children in render order, for
// Visit/TreeContains/Clone(deep) to walk without each caller needing
// type-specific knowledge of a node's shape.
type Node interface {
	Tag() Tag
	Children() []Node
	// Clone copies this node. deep additionally clones every child
	// (vh_nsql_copy / vh_nsql_copytree's VH_NSQL_COPYFLAG_DEEP); a
	// shallow clone copies the node itself: list nodes come back
	// empty, and other nodes share their child pointers with the
	// source.
	Clone(deep bool) Node
	renderDefault(ctx *CmdContext) error
}

// Visit walks root and every descendant, calling fn once per node in
// pre-order (vh_nsql_visit_tree).
func Visit(root Node, fn func(Node)) {
	if root == nil {
		return
	}
	fn(root)
	for _, c := range root.Children() {
		Visit(c, fn)
	}
}

// TreeContains reports whether n appears anywhere in root's subtree,
// including root itself (vh_nsql_tree_contains).
func TreeContains(root, n Node) bool {
	found := false
	Visit(root, func(x Node) {
		if x == n {
			found = true
		}
	})
	return found
}

// DestroyTree exists to mirror vh_nsql_destroytree's call shape; Go's
// garbage collector reclaims a detached tree on its own; nothing to do
// beyond giving callers a point to drop their own root reference.
func DestroyTree(root Node) {}

// cloneChildren clones each of src's children, deep always (a shallow
// Clone never reaches here since it returns before visiting children).
func cloneChildren(src Node) []Node {
	kids := src.Children()
	out := make([]Node, len(kids))
	for i, k := range kids {
		out[i] = k.Clone(true)
	}
	return out
}

// cloneChildrenAs clones src's children via cloneChildren and asserts
// each back to its concrete item type, the shape every list node's
// deep Clone needs (FieldList wants []*Field, not []Node).
func cloneChildrenAs[T Node](src Node) []T {
	kids := cloneChildren(src)
	if len(kids) == 0 {
		return nil
	}
	out := make([]T, len(kids))
	for i, k := range kids {
		out[i] = k.(T)
	}
	return out
}
