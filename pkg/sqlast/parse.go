package sqlast

import (
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	pg_parser "github.com/pganalyze/pg_query_go/v6/parser"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
)

// ParseError reports a syntax error with the parser's message and, when
// available, the character offset into the SQL text (-1 if unknown).
type ParseError struct {
	Message string
	Offset  int
}

func (e *ParseError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
	}
	return fmt.Sprintf("parse error: %s", e.Message)
}

// Parse runs the PostgreSQL grammar over sql and builds the arena tree.
// On failure the returned error is always a *ParseError.
func Parse(sql string) (*Tree, error) {
	res, err := pg_query.Parse(sql)
	if err != nil {
		return nil, convertError(err)
	}
	if len(res.Stmts) == 0 {
		return nil, &ParseError{Message: "no statement found", Offset: -1}
	}

	b := &builder{tree: &Tree{SQL: sql}}
	root := b.add(KindRoot, -1)
	for _, raw := range res.Stmts {
		b.walkNode(raw.Stmt, root)
	}
	return b.tree, nil
}

func convertError(err error) *ParseError {
	if pe, ok := err.(*pg_parser.Error); ok {
		offset := -1
		if pe.Cursorpos > 0 {
			// Cursorpos is 1-based; the engine contract is a 0-based
			// character offset.
			offset = pe.Cursorpos - 1
		}
		return &ParseError{Message: pe.Message, Offset: offset}
	}
	return &ParseError{Message: err.Error(), Offset: -1}
}

// aggregateFuncs is the set of function names treated as aggregates at
// analysis time. The parse tree does not distinguish aggregate calls from
// plain function calls, so detection is by name, matching what the server
// itself would resolve for the common built-ins.
var aggregateFuncs = map[string]struct{}{
	"count": {}, "sum": {}, "avg": {}, "min": {}, "max": {},
	"array_agg": {}, "string_agg": {}, "json_agg": {}, "jsonb_agg": {},
	"json_object_agg": {}, "jsonb_object_agg": {}, "xmlagg": {},
	"bool_and": {}, "bool_or": {}, "every": {}, "bit_and": {}, "bit_or": {},
	"stddev": {}, "stddev_pop": {}, "stddev_samp": {},
	"variance": {}, "var_pop": {}, "var_samp": {},
	"corr": {}, "covar_pop": {}, "covar_samp": {},
	"percentile_cont": {}, "percentile_disc": {}, "mode": {},
}

type builder struct {
	tree *Tree
}

func (b *builder) add(kind Kind, parent int) int {
	id := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Kind: kind, Parent: parent, Location: -1})
	if parent >= 0 {
		p := &b.tree.Nodes[parent]
		p.Children = append(p.Children, id)
	}
	return id
}

func (b *builder) setLocation(id int, m proto.Message) {
	if lm, ok := m.(interface{ GetLocation() int32 }); ok {
		if loc := lm.GetLocation(); loc >= 0 {
			// Parse-tree locations are byte offsets; the engine contract
			// is character offsets.
			b.tree.Nodes[id].Location = runeOffset(b.tree.SQL, int(loc))
		}
	}
}

// runeOffset converts a byte offset into sql to a rune offset.
func runeOffset(sql string, byteOff int) int {
	if byteOff <= 0 {
		return byteOff
	}
	if byteOff > len(sql) {
		byteOff = len(sql)
	}
	return len([]rune(sql[:byteOff]))
}

// walkNode unwraps the pg_query.Node oneof and dispatches on the inner
// message.
func (b *builder) walkNode(n *pg_query.Node, parent int) {
	if n == nil {
		return
	}
	if inner := oneofMessage(n); inner != nil {
		b.walkMessage(inner, parent)
	}
}

func (b *builder) walkMessage(m proto.Message, parent int) {
	switch v := m.(type) {
	case *pg_query.SelectStmt:
		b.walkSelect(v, parent)
	case *pg_query.InsertStmt:
		b.walkInsert(v, parent)
	case *pg_query.UpdateStmt:
		b.walkUpdate(v, parent)
	case *pg_query.DeleteStmt:
		b.walkDelete(v, parent)
	case *pg_query.MergeStmt:
		b.walkMerge(v, parent)
	case *pg_query.WithClause:
		id := b.add(KindWith, parent)
		for _, cte := range v.Ctes {
			b.walkNode(cte, id)
		}
	case *pg_query.CommonTableExpr:
		id := b.add(KindCTE, parent)
		b.tree.Nodes[id].Name = v.Ctename
		b.setLocation(id, v)
		b.walkNode(v.Ctequery, id)
	case *pg_query.JoinExpr:
		b.walkJoin(v, parent)
	case *pg_query.RangeVar:
		id := b.add(KindTable, parent)
		n := &b.tree.Nodes[id]
		n.Name = v.Relname
		n.Qualifier = v.Schemaname
		if v.Alias != nil {
			n.Alias = v.Alias.Aliasname
		}
		b.setLocation(id, v)
	case *pg_query.RangeSubselect:
		id := b.add(KindSubquery, parent)
		n := &b.tree.Nodes[id]
		n.Lateral = v.Lateral
		if v.Alias != nil {
			n.Alias = v.Alias.Aliasname
		}
		b.walkNode(v.Subquery, id)
	case *pg_query.RangeFunction:
		id := b.add(KindFunc, parent)
		b.tree.Nodes[id].Lateral = v.Lateral
		b.walkGeneric(v, id)
	case *pg_query.SubLink:
		id := b.add(KindSubquery, parent)
		b.setLocation(id, v)
		b.walkGeneric(v, id)
	case *pg_query.ColumnRef:
		b.walkColumnRef(v, parent)
	case *pg_query.FuncCall:
		b.walkFuncCall(v, parent)
	case *pg_query.CaseExpr:
		id := b.add(KindCase, parent)
		b.setLocation(id, v)
		b.walkGeneric(v, id)
	default:
		b.walkGeneric(m, parent)
	}
}

func (b *builder) walkSelect(s *pg_query.SelectStmt, parent int) {
	if s == nil {
		return
	}
	if s.Op != pg_query.SetOperation_SETOP_NONE {
		id := b.add(KindSetOp, parent)
		b.tree.Nodes[id].SetOp = setOpName(s.Op)
		if s.WithClause != nil {
			b.walkMessage(s.WithClause, id)
		}
		b.walkSelect(s.Larg, id)
		b.walkSelect(s.Rarg, id)
		b.clauseList(KindOrderClause, s.SortClause, id)
		b.clauseNode(KindLimitClause, s.LimitCount, id)
		b.clauseNode(KindOffsetClause, s.LimitOffset, id)
		return
	}

	id := b.add(KindSelect, parent)
	b.tree.Nodes[id].Distinct = len(s.DistinctClause) > 0
	if s.WithClause != nil {
		b.walkMessage(s.WithClause, id)
	}
	for _, t := range s.TargetList {
		b.walkNode(t, id)
	}
	if len(s.FromClause) > 0 {
		fid := b.add(KindFromClause, id)
		for _, f := range s.FromClause {
			b.walkNode(f, fid)
		}
	}
	b.clauseNode(KindWhereClause, s.WhereClause, id)
	b.clauseList(KindGroupClause, s.GroupClause, id)
	b.clauseNode(KindHavingClause, s.HavingClause, id)
	b.clauseList(KindWindowClause, s.WindowClause, id)
	b.clauseList(KindOrderClause, s.SortClause, id)
	b.clauseNode(KindLimitClause, s.LimitCount, id)
	b.clauseNode(KindOffsetClause, s.LimitOffset, id)
	if len(s.ValuesLists) > 0 {
		vid := b.add(KindValuesClause, id)
		for _, v := range s.ValuesLists {
			b.walkNode(v, vid)
		}
	}
}

func (b *builder) walkInsert(s *pg_query.InsertStmt, parent int) {
	id := b.add(KindInsert, parent)
	if s.WithClause != nil {
		b.walkMessage(s.WithClause, id)
	}
	if s.Relation != nil {
		b.walkMessage(s.Relation, id)
	}
	for _, c := range s.Cols {
		b.walkNode(c, id)
	}
	b.walkNode(s.SelectStmt, id)
	if s.OnConflictClause != nil {
		b.walkGeneric(s.OnConflictClause, id)
	}
	b.clauseList(KindReturningClause, s.ReturningList, id)
}

func (b *builder) walkUpdate(s *pg_query.UpdateStmt, parent int) {
	id := b.add(KindUpdate, parent)
	if s.WithClause != nil {
		b.walkMessage(s.WithClause, id)
	}
	if s.Relation != nil {
		b.walkMessage(s.Relation, id)
	}
	for _, t := range s.TargetList {
		b.walkNode(t, id)
	}
	if len(s.FromClause) > 0 {
		fid := b.add(KindFromClause, id)
		for _, f := range s.FromClause {
			b.walkNode(f, fid)
		}
	}
	b.clauseNode(KindWhereClause, s.WhereClause, id)
	b.clauseList(KindReturningClause, s.ReturningList, id)
}

func (b *builder) walkDelete(s *pg_query.DeleteStmt, parent int) {
	id := b.add(KindDelete, parent)
	if s.WithClause != nil {
		b.walkMessage(s.WithClause, id)
	}
	if s.Relation != nil {
		b.walkMessage(s.Relation, id)
	}
	if len(s.UsingClause) > 0 {
		uid := b.add(KindUsingClause, id)
		for _, u := range s.UsingClause {
			b.walkNode(u, uid)
		}
	}
	b.clauseNode(KindWhereClause, s.WhereClause, id)
	b.clauseList(KindReturningClause, s.ReturningList, id)
}

func (b *builder) walkMerge(s *pg_query.MergeStmt, parent int) {
	id := b.add(KindMerge, parent)
	if s.WithClause != nil {
		b.walkMessage(s.WithClause, id)
	}
	if s.Relation != nil {
		b.walkMessage(s.Relation, id)
	}
	b.walkNode(s.SourceRelation, id)
	b.walkNode(s.JoinCondition, id)
	for _, w := range s.MergeWhenClauses {
		b.walkNode(w, id)
	}
	b.clauseList(KindReturningClause, s.ReturningList, id)
}

func (b *builder) walkJoin(j *pg_query.JoinExpr, parent int) {
	id := b.add(KindJoin, parent)
	b.tree.Nodes[id].JoinKind = joinKindName(j)
	b.walkNode(j.Larg, id)
	b.walkNode(j.Rarg, id)
	if len(j.UsingClause) > 0 {
		uid := b.add(KindUsingClause, id)
		for _, u := range j.UsingClause {
			b.walkNode(u, uid)
		}
	}
	b.walkNode(j.Quals, id)
}

func (b *builder) walkColumnRef(c *pg_query.ColumnRef, parent int) {
	id := b.add(KindColumn, parent)
	n := &b.tree.Nodes[id]
	b.setLocation(id, c)

	var names []string
	for _, f := range c.Fields {
		if s := f.GetString_(); s != nil {
			names = append(names, s.Sval)
		} else if f.GetAStar() != nil {
			n.Star = true
		}
	}
	if n.Star {
		// t.* keeps the qualifier, the column name stays empty.
		if len(names) > 0 {
			n.Qualifier = names[len(names)-1]
		}
		return
	}
	if len(names) > 0 {
		n.Name = names[len(names)-1]
	}
	if len(names) > 1 {
		n.Qualifier = names[len(names)-2]
	}
}

func (b *builder) walkFuncCall(f *pg_query.FuncCall, parent int) {
	name := ""
	for _, part := range f.Funcname {
		if s := part.GetString_(); s != nil {
			name = s.Sval
		}
	}
	kind := KindFunc
	if f.Over != nil {
		kind = KindWindow
	} else if _, ok := aggregateFuncs[strings.ToLower(name)]; ok {
		kind = KindAggFunc
	}
	id := b.add(kind, parent)
	n := &b.tree.Nodes[id]
	n.Name = name
	n.Star = f.AggStar
	n.Distinct = f.AggDistinct
	b.setLocation(id, f)
	for _, a := range f.Args {
		b.walkNode(a, id)
	}
	b.walkNode(f.AggFilter, id)
	if f.Over != nil {
		b.walkGeneric(f.Over, id)
	}
}

func (b *builder) clauseNode(kind Kind, n *pg_query.Node, parent int) {
	if n == nil {
		return
	}
	id := b.add(kind, parent)
	b.walkNode(n, id)
}

func (b *builder) clauseList(kind Kind, ns []*pg_query.Node, parent int) {
	if len(ns) == 0 {
		return
	}
	id := b.add(kind, parent)
	for _, n := range ns {
		b.walkNode(n, id)
	}
}

// walkGeneric descends through a parse tree message without materializing
// an arena node for it; any classified messages found below attach to
// parent. This covers the long tail of expression containers (A_Expr,
// BoolExpr, List, ResTarget, TypeCast, ...) without enumerating them.
func (b *builder) walkGeneric(m proto.Message, parent int) {
	ref := m.ProtoReflect()
	ref.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		switch {
		case fd.IsList() && fd.Kind() == protoreflect.MessageKind:
			l := v.List()
			for i := 0; i < l.Len(); i++ {
				b.dispatch(l.Get(i).Message().Interface(), parent)
			}
		case fd.IsMap():
			// pg_query parse trees carry no map fields.
		case fd.Kind() == protoreflect.MessageKind:
			b.dispatch(v.Message().Interface(), parent)
		}
		return true
	})
}

func (b *builder) dispatch(m proto.Message, parent int) {
	if n, ok := m.(*pg_query.Node); ok {
		b.walkNode(n, parent)
		return
	}
	b.walkMessage(m, parent)
}

// oneofMessage returns the populated variant of a Node oneof, if any.
func oneofMessage(n *pg_query.Node) proto.Message {
	var out proto.Message
	n.ProtoReflect().Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if fd.Kind() == protoreflect.MessageKind {
			out = v.Message().Interface()
		}
		return false
	})
	return out
}

func setOpName(op pg_query.SetOperation) string {
	switch op {
	case pg_query.SetOperation_SETOP_UNION:
		return SetOpUnion
	case pg_query.SetOperation_SETOP_INTERSECT:
		return SetOpIntersect
	case pg_query.SetOperation_SETOP_EXCEPT:
		return SetOpExcept
	}
	return ""
}

// joinKindName maps a JoinExpr to the analyzer's join subtype vocabulary.
// PostgreSQL parses CROSS JOIN as an inner join with no condition, so a
// bare inner join without quals, USING, or NATURAL is reported as CROSS.
func joinKindName(j *pg_query.JoinExpr) string {
	switch j.Jointype {
	case pg_query.JoinType_JOIN_INNER:
		if j.Quals == nil && len(j.UsingClause) == 0 && !j.IsNatural {
			return JoinCross
		}
		return JoinInner
	case pg_query.JoinType_JOIN_LEFT:
		return JoinLeft
	case pg_query.JoinType_JOIN_RIGHT:
		return JoinRight
	case pg_query.JoinType_JOIN_FULL:
		return JoinFull
	}
	return ""
}
