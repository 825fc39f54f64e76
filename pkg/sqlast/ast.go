// Package sqlast wraps the PostgreSQL parser (pganalyze/pg_query_go) in an
// arena AST suitable for structural analysis.
//
// The protobuf parse tree pg_query produces has no parent links and keeps
// clause membership implicit in struct fields. This package flattens it into
// an arena of nodes addressed by index: each node carries a discriminated
// Kind, its parent's index, and its children's indexes, so callers can walk
// down in pre-order and up through enclosing clauses without reference
// cycles. Trees are built once per parse and never mutated afterward.
package sqlast

// Kind discriminates arena node types. Only structurally interesting parse
// tree messages are materialized; expression plumbing between them is
// collapsed, with children attached to the nearest materialized ancestor.
type Kind string

// Statement and clause kinds.
const (
	KindRoot   Kind = "ROOT"
	KindSelect Kind = "SELECT"
	KindInsert Kind = "INSERT"
	KindUpdate Kind = "UPDATE"
	KindDelete Kind = "DELETE"
	KindMerge  Kind = "MERGE"
	KindSetOp  Kind = "SET_OP"

	KindWith     Kind = "WITH"
	KindCTE      Kind = "CTE"
	KindJoin     Kind = "JOIN"
	KindTable    Kind = "TABLE"
	KindSubquery Kind = "SUBQUERY"
	KindColumn   Kind = "COLUMN"
	KindFunc     Kind = "FUNCTION"
	KindAggFunc  Kind = "AGGREGATE"
	KindWindow   Kind = "WINDOW_FUNC"
	KindCase     Kind = "CASE"

	KindFromClause      Kind = "FROM_CLAUSE"
	KindWhereClause     Kind = "WHERE_CLAUSE"
	KindGroupClause     Kind = "GROUP_CLAUSE"
	KindHavingClause    Kind = "HAVING_CLAUSE"
	KindOrderClause     Kind = "ORDER_CLAUSE"
	KindLimitClause     Kind = "LIMIT_CLAUSE"
	KindOffsetClause    Kind = "OFFSET_CLAUSE"
	KindWindowClause    Kind = "WINDOW_CLAUSE"
	KindValuesClause    Kind = "VALUES_CLAUSE"
	KindReturningClause Kind = "RETURNING_CLAUSE"
	KindUsingClause     Kind = "USING_CLAUSE"
)

// Join subtype names exposed on Node.JoinKind. An empty JoinKind means the
// join type was not one the analyzer recognizes.
const (
	JoinInner = "INNER"
	JoinLeft  = "LEFT"
	JoinRight = "RIGHT"
	JoinFull  = "FULL"
	JoinCross = "CROSS"
)

// Set operation names exposed on Node.SetOp.
const (
	SetOpUnion     = "UNION"
	SetOpIntersect = "INTERSECT"
	SetOpExcept    = "EXCEPT"
)

// Node is one arena entry. Parent is an index into the owning Tree's node
// slice (-1 for the root); it is a weak back-reference used only for upward
// clause lookup, never for traversal.
type Node struct {
	Kind     Kind
	Parent   int
	Children []int

	// Location is the character offset reported by the parser, -1 when the
	// underlying parse node carries none.
	Location int

	// Kind-specific payload. Name holds the table name for KindTable, the
	// column name for KindColumn, the function name for function kinds, and
	// the CTE name for KindCTE.
	Name      string
	Qualifier string
	Alias     string
	JoinKind  string
	SetOp     string
	Distinct  bool
	Lateral   bool
	Star      bool
}

// Tree is an immutable arena AST for one SQL input. Nodes[0] is always the
// synthetic root; statement nodes hang off it.
type Tree struct {
	SQL   string
	Nodes []Node
}

// Root returns the index of the synthetic root node.
func (t *Tree) Root() int { return 0 }

// Node returns the node at index id. The pointer stays valid for the
// lifetime of the tree; callers must treat it as read-only.
func (t *Tree) Node(id int) *Node { return &t.Nodes[id] }

// Len returns the number of arena nodes including the root.
func (t *Tree) Len() int { return len(t.Nodes) }

// Walk visits nodes in pre-order starting at the root. Returning false
// from fn prunes the subtree below the current node.
func (t *Tree) Walk(fn func(id int, n *Node) bool) {
	t.walk(0, fn)
}

// WalkFrom visits the subtree rooted at id in pre-order.
func (t *Tree) WalkFrom(id int, fn func(id int, n *Node) bool) {
	t.walk(id, fn)
}

func (t *Tree) walk(id int, fn func(id int, n *Node) bool) {
	n := &t.Nodes[id]
	if !fn(id, n) {
		return
	}
	for _, c := range n.Children {
		t.walk(c, fn)
	}
}

// Ancestors returns the chain of node indexes from id's parent up to the
// root, nearest first.
func (t *Tree) Ancestors(id int) []int {
	var out []int
	for p := t.Nodes[id].Parent; p >= 0; p = t.Nodes[p].Parent {
		out = append(out, p)
	}
	return out
}

// NodeAt returns the index of the deepest node whose reported location
// matches the given character offset exactly, or -1. Useful for relating a
// server-reported error position back to the tree.
func (t *Tree) NodeAt(offset int) int {
	found := -1
	t.Walk(func(id int, n *Node) bool {
		if n.Location == offset {
			found = id
		}
		return true
	})
	return found
}
