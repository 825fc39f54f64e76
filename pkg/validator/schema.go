package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sqlscope-dev/sqlscope/pkg/analyzer"
	"github.com/sqlscope-dev/sqlscope/pkg/schema"
	"github.com/sqlscope-dev/sqlscope/pkg/sqlast"
	"github.com/sqlscope-dev/sqlscope/pkg/taxonomy"
)

// checkSchema verifies table and column references in a parsed statement
// against the catalog. Table existence is checked first; if any table is
// missing, column checks are skipped entirely, because a misspelled
// table makes every column under it look missing too.
func checkSchema(tree *sqlast.Tree, catalog schema.Map) []Error {
	cat := lowerCatalog(catalog)

	derived := derivedNames(tree)
	aliases := tableAliases(tree, derived)

	var errs []Error
	missingTable := false
	tree.Walk(func(id int, n *sqlast.Node) bool {
		if n.Kind != sqlast.KindTable {
			return true
		}
		name := strings.ToLower(n.Name)
		if name == "" || derived[name] {
			return true
		}
		if _, ok := cat[name]; !ok {
			missingTable = true
			errs = append(errs, Error{
				Tag:             taxonomy.TagHallucinationTable,
				Message:         fmt.Sprintf("Table %q does not exist in schema", n.Name),
				Location:        n.Location,
				Context:         n.Name,
				AffectedClauses: []string{analyzer.ClauseFrom},
			})
		}
		return true
	})
	if missingTable {
		return errs
	}

	referenced := referencedTables(aliases)

	tree.Walk(func(id int, n *sqlast.Node) bool {
		if n.Kind != sqlast.KindColumn || n.Star {
			return true
		}
		col := strings.ToLower(n.Name)
		if col == "" {
			return true
		}
		if n.Qualifier != "" {
			qual := strings.ToLower(n.Qualifier)
			if derived[qual] {
				return true
			}
			table, ok := aliases[qual]
			if !ok {
				return true
			}
			if _, ok := cat[table][col]; !ok {
				errs = append(errs, Error{
					Tag:             taxonomy.TagHallucinationColumn,
					Message:         fmt.Sprintf("Column %q does not exist in table %q", n.Name, table),
					Location:        n.Location,
					Context:         n.Qualifier + "." + n.Name,
					AffectedClauses: analyzer.ClausesForNode(tree, id),
				})
			}
			return true
		}

		matches := 0
		for _, table := range referenced {
			if _, ok := cat[table][col]; ok {
				matches++
			}
		}
		switch {
		case matches == 0:
			errs = append(errs, Error{
				Tag:             taxonomy.TagHallucinationColumn,
				Message:         fmt.Sprintf("Column %q does not exist in any referenced table", n.Name),
				Location:        n.Location,
				Context:         n.Name,
				AffectedClauses: analyzer.ClausesForNode(tree, id),
			})
		case matches >= 2:
			errs = append(errs, Error{
				Tag:             taxonomy.TagAmbiguousColumn,
				Message:         fmt.Sprintf("Column %q matches %d referenced tables and must be qualified", n.Name, matches),
				Location:        n.Location,
				Context:         n.Name,
				AffectedClauses: analyzer.ClausesForNode(tree, id),
			})
		}
		return true
	})
	return errs
}

// derivedNames collects lowercase names introduced by CTEs and subquery
// aliases. References to these are relation-local and never resolve
// against the catalog.
func derivedNames(tree *sqlast.Tree) map[string]bool {
	out := make(map[string]bool)
	tree.Walk(func(id int, n *sqlast.Node) bool {
		switch n.Kind {
		case sqlast.KindCTE:
			if n.Name != "" {
				out[strings.ToLower(n.Name)] = true
			}
		case sqlast.KindSubquery:
			if n.Alias != "" {
				out[strings.ToLower(n.Alias)] = true
			}
		}
		return true
	})
	return out
}

// tableAliases maps every lowercase alias (and bare table name) to the
// lowercase table it refers to, excluding derived relations.
func tableAliases(tree *sqlast.Tree, derived map[string]bool) map[string]string {
	out := make(map[string]string)
	tree.Walk(func(id int, n *sqlast.Node) bool {
		if n.Kind != sqlast.KindTable || n.Name == "" {
			return true
		}
		name := strings.ToLower(n.Name)
		if derived[name] {
			return true
		}
		out[name] = name
		if n.Alias != "" {
			out[strings.ToLower(n.Alias)] = name
		}
		return true
	})
	return out
}

// referencedTables returns the distinct tables an alias map points at,
// sorted for deterministic ambiguity counting.
func referencedTables(aliases map[string]string) []string {
	set := make(map[string]bool, len(aliases))
	for _, t := range aliases {
		set[t] = true
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// lowerCatalog folds catalog table and column names to lowercase for
// case-insensitive lookup, matching how the dialect folds unquoted
// identifiers.
func lowerCatalog(catalog schema.Map) map[string]map[string]bool {
	out := make(map[string]map[string]bool, len(catalog))
	for table, cols := range catalog {
		set := make(map[string]bool, len(cols))
		for col := range cols {
			set[strings.ToLower(col)] = true
		}
		out[strings.ToLower(table)] = set
	}
	return out
}

// checkCandidates runs best-effort schema checks from the raw token
// stream when the statement failed to parse. Column candidates are only
// checked against tables the scan actually saw, or the whole catalog
// when none of them exist.
func checkCandidates(sql string, catalog schema.Map) []Error {
	cands := sqlast.ScanIdentifiers(sql)
	cat := lowerCatalog(catalog)

	var errs []Error
	validTables := make(map[string]bool)
	for _, t := range cands.Tables {
		name := strings.ToLower(t)
		if _, ok := cat[name]; ok {
			validTables[name] = true
			continue
		}
		errs = append(errs, Error{
			Tag:             taxonomy.TagHallucinationTable,
			Message:         fmt.Sprintf("Table %q does not exist in schema", t),
			Location:        -1,
			Context:         t,
			AffectedClauses: []string{analyzer.ClauseFrom},
		})
	}

	searchCols := make(map[string]bool)
	for table, cols := range cat {
		if len(validTables) > 0 && !validTables[table] {
			continue
		}
		for col := range cols {
			searchCols[col] = true
		}
	}
	for _, c := range cands.Columns {
		if searchCols[strings.ToLower(c)] {
			continue
		}
		errs = append(errs, Error{
			Tag:      taxonomy.TagHallucinationColumn,
			Message:  fmt.Sprintf("Column %q does not exist in any referenced table", c),
			Location: -1,
			Context:  c,
		})
	}
	return errs
}
