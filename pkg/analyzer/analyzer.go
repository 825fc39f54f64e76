// Package analyzer computes structural metadata for a parsed SQL query:
// the clauses present, a weighted complexity score, element counts, and a
// deterministic pattern signature usable for coarse structural comparison.
//
// Everything is produced by one read-only pre-order pass over the arena
// tree; the tree is never modified.
package analyzer

import (
	"strings"

	"github.com/sqlscope-dev/sqlscope/pkg/sqlast"
)

// Clause names form a closed vocabulary. Join subtypes are distinct
// entries so that signatures distinguish join shapes.
const (
	ClauseSelect    = "SELECT"
	ClauseFrom      = "FROM"
	ClauseWhere     = "WHERE"
	ClauseJoin      = "JOIN"
	ClauseJoinInner = "JOIN_INNER"
	ClauseJoinLeft  = "JOIN_LEFT"
	ClauseJoinRight = "JOIN_RIGHT"
	ClauseJoinFull  = "JOIN_FULL"
	ClauseJoinCross = "JOIN_CROSS"
	ClauseGroup     = "GROUP"
	ClauseHaving    = "HAVING"
	ClauseOrder     = "ORDER"
	ClauseLimit     = "LIMIT"
	ClauseOffset    = "OFFSET"
	ClauseUnion     = "UNION"
	ClauseIntersect = "INTERSECT"
	ClauseExcept    = "EXCEPT"
	ClauseWith      = "WITH"
	ClauseCTE       = "CTE"
	ClauseDistinct  = "DISTINCT"
	ClauseSubquery  = "SUBQUERY"
	ClauseWindow    = "WINDOW"
	ClauseLateral   = "LATERAL"
	ClauseQualify   = "QUALIFY"
	ClauseCase      = "CASE"
	ClauseMerge     = "MERGE"
	ClauseInsert    = "INSERT"
	ClauseUpdate    = "UPDATE"
	ClauseDelete    = "DELETE"
	ClauseValues    = "VALUES"
	ClauseUsing     = "USING"
	ClauseReturning = "RETURNING"
	ClauseOn        = "ON"
	ClauseOver      = "OVER"
	ClauseFetch     = "FETCH"
)

// Complexity weights per element kind. These are part of the metadata
// contract: scores are only comparable across runs if the weights stay
// fixed.
const (
	weightCTE       = 2
	weightSubquery  = 1
	weightJoin      = 1
	weightAggregate = 1
	weightCase      = 1
	weightSetOp     = 2
	weightWindow    = 1
	weightLateral   = 1
	weightQualify   = 1
	weightMerge     = 2
)

// Metadata is the structural fingerprint of one query. Computed once per
// tree and immutable afterward.
type Metadata struct {
	ComplexityScore  int      `json:"complexity_score"`
	PatternSignature string   `json:"pattern_signature"`
	ClausesPresent   []string `json:"clauses_present"`
	Tables           []string `json:"tables,omitempty"`
	NumJoins         int      `json:"num_joins"`
	NumSubqueries    int      `json:"num_subqueries"`
	NumCTEs          int      `json:"num_ctes"`
	NumAggregations  int      `json:"num_aggregations"`
}

// Analyze runs the single structural pass over tree. A nil tree yields the
// empty-query metadata (signature "EMPTY").
func Analyze(tree *sqlast.Tree) Metadata {
	if tree == nil || tree.Len() == 0 {
		return Metadata{PatternSignature: SignatureEmpty, ClausesPresent: []string{}}
	}

	clauses := make(map[string]struct{})
	var (
		score      int
		tables     []string
		tableSeen  = make(map[string]struct{})
		joins      int
		subqueries int
		ctes       int
		aggs       int
	)

	tree.Walk(func(_ int, n *sqlast.Node) bool {
		for _, c := range clausesForKind(n) {
			clauses[c] = struct{}{}
		}
		switch n.Kind {
		case sqlast.KindCTE:
			score += weightCTE
			ctes++
		case sqlast.KindSubquery:
			score += weightSubquery
			subqueries++
			if n.Lateral {
				score += weightLateral
			}
		case sqlast.KindJoin:
			score += weightJoin
			joins++
		case sqlast.KindAggFunc:
			score += weightAggregate
			aggs++
		case sqlast.KindCase:
			score += weightCase
		case sqlast.KindSetOp:
			score += weightSetOp
		case sqlast.KindWindow:
			score += weightWindow
		case sqlast.KindMerge:
			score += weightMerge
		case sqlast.KindFunc:
			if n.Lateral {
				score += weightLateral
			}
		case sqlast.KindTable:
			key := strings.ToLower(n.Name)
			if _, seen := tableSeen[key]; !seen && n.Name != "" {
				tableSeen[key] = struct{}{}
				tables = append(tables, n.Name)
			}
		}
		return true
	})

	present := sortedClauses(clauses)
	return Metadata{
		ComplexityScore:  score,
		PatternSignature: signatureFor(clauses),
		ClausesPresent:   present,
		Tables:           tables,
		NumJoins:         joins,
		NumSubqueries:    subqueries,
		NumCTEs:          ctes,
		NumAggregations:  aggs,
	}
}

// ExtractClauses returns the sorted clause inventory without the rest of
// the metadata.
func ExtractClauses(tree *sqlast.Tree) []string {
	return Analyze(tree).ClausesPresent
}

// ClausesForNode walks upward from the node at id and returns every
// enclosing clause, sorted. Used to populate affected_clauses on
// validation errors.
func ClausesForNode(tree *sqlast.Tree, id int) []string {
	if tree == nil || id < 0 || id >= tree.Len() {
		return nil
	}
	set := make(map[string]struct{})
	for cur := id; cur >= 0; cur = tree.Node(cur).Parent {
		for _, c := range clausesForKind(tree.Node(cur)) {
			set[c] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	return sortedClauses(set)
}

// clausesForKind maps one arena node to the clause names it establishes.
// An unrecognized join subtype contributes only the generic JOIN entry.
func clausesForKind(n *sqlast.Node) []string {
	switch n.Kind {
	case sqlast.KindSelect:
		if n.Distinct {
			return []string{ClauseSelect, ClauseDistinct}
		}
		return []string{ClauseSelect}
	case sqlast.KindFromClause:
		return []string{ClauseFrom}
	case sqlast.KindWhereClause:
		return []string{ClauseWhere}
	case sqlast.KindJoin:
		if n.JoinKind != "" {
			return []string{ClauseJoin, ClauseJoin + "_" + n.JoinKind}
		}
		return []string{ClauseJoin}
	case sqlast.KindGroupClause:
		return []string{ClauseGroup}
	case sqlast.KindHavingClause:
		return []string{ClauseHaving}
	case sqlast.KindOrderClause:
		return []string{ClauseOrder}
	case sqlast.KindLimitClause:
		return []string{ClauseLimit}
	case sqlast.KindOffsetClause:
		return []string{ClauseOffset}
	case sqlast.KindSetOp:
		switch n.SetOp {
		case sqlast.SetOpUnion:
			return []string{ClauseUnion}
		case sqlast.SetOpIntersect:
			return []string{ClauseIntersect}
		case sqlast.SetOpExcept:
			return []string{ClauseExcept}
		}
		return nil
	case sqlast.KindWith:
		return []string{ClauseWith}
	case sqlast.KindCTE:
		return []string{ClauseCTE}
	case sqlast.KindSubquery:
		if n.Lateral {
			return []string{ClauseSubquery, ClauseLateral}
		}
		return []string{ClauseSubquery}
	case sqlast.KindWindow, sqlast.KindWindowClause:
		return []string{ClauseWindow}
	case sqlast.KindCase:
		return []string{ClauseCase}
	case sqlast.KindMerge:
		return []string{ClauseMerge}
	case sqlast.KindInsert:
		return []string{ClauseInsert}
	case sqlast.KindUpdate:
		return []string{ClauseUpdate}
	case sqlast.KindDelete:
		return []string{ClauseDelete}
	case sqlast.KindValuesClause:
		return []string{ClauseValues}
	case sqlast.KindUsingClause:
		return []string{ClauseUsing}
	case sqlast.KindReturningClause:
		return []string{ClauseReturning}
	case sqlast.KindFunc:
		if n.Lateral {
			return []string{ClauseLateral}
		}
		return nil
	}
	return nil
}
