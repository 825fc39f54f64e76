package errctx

import (
	"regexp"
	"strings"

	"github.com/sqlscope-dev/sqlscope/pkg/sqlast"
	"github.com/sqlscope-dev/sqlscope/pkg/taxonomy"
)

// tagsFromDiagnostics fans each populated diagnostic field out to the
// tags it can evidence. A field names exactly what the server tripped
// over, so these are the highest-confidence candidates, but one field
// can still support several tags; later tiers and the caller's ranking
// narrow them down.
func tagsFromDiagnostics(d Diagnostics) []TagWithProvenance {
	var out []TagWithProvenance
	add := func(tag taxonomy.Tag, source string) {
		out = append(out, TagWithProvenance{Tag: tag, Source: source, Confidence: ConfidenceHigh})
	}

	if d.ColumnName != "" {
		add(taxonomy.TagHallucinationColumn, SourceDiagColumn)
		add(taxonomy.TagAmbiguousColumn, SourceDiagColumn)
	}
	if d.TableName != "" {
		add(taxonomy.TagHallucinationTable, SourceDiagTable)
		add(taxonomy.TagMissingJoin, SourceDiagTable)
	}
	if d.ConstraintName != "" {
		add(taxonomy.TagUniqueViolation, SourceDiagConstraint)
		add(taxonomy.TagForeignKeyViolation, SourceDiagConstraint)
		add(taxonomy.TagIncorrectForeignKey, SourceDiagConstraint)
		add(taxonomy.TagCheckViolation, SourceDiagConstraint)
	}
	if d.DataTypeName != "" {
		add(taxonomy.TagTypeMismatch, SourceDiagDatatype)
		add(taxonomy.TagFilterTypeMismatch, SourceDiagDatatype)
	}
	if d.SchemaName != "" {
		add(taxonomy.TagHallucinationTable, SourceDiagSchema)
	}
	return out
}

// tagsFromSQLState maps a SQLSTATE to candidates at medium confidence.
// A code with a known specific tag yields just that tag; otherwise every
// tag of the code's category is a candidate.
func tagsFromSQLState(sqlstate string) []TagWithProvenance {
	if sqlstate == "" {
		return nil
	}
	if tag, ok := taxonomy.TagForSQLState(sqlstate); ok {
		return []TagWithProvenance{{Tag: tag, Source: SourceSQLState, Confidence: ConfidenceMedium}}
	}
	category, ok := taxonomy.CategoryForSQLStateWithFallback(sqlstate)
	if !ok {
		return nil
	}
	var out []TagWithProvenance
	for _, tag := range taxonomy.TagsForCategory(category) {
		out = append(out, TagWithProvenance{Tag: tag, Source: SourceSQLState, Confidence: ConfidenceMedium})
	}
	return out
}

// tagsFromMessage scrapes a SQLSTATE out of the raw message text. Only
// consulted when the driver supplied no state of its own, and always low
// confidence.
func tagsFromMessage(message string) []TagWithProvenance {
	if message == "" {
		return nil
	}
	code := taxonomy.ExtractErrorCode(message)
	if code == "" {
		return nil
	}
	if tag, ok := taxonomy.TagForSQLState(code); ok {
		return []TagWithProvenance{{Tag: tag, Source: SourceRegex, Confidence: ConfidenceLow}}
	}
	category, ok := taxonomy.CategoryForSQLStateWithFallback(code)
	if !ok {
		return nil
	}
	var out []TagWithProvenance
	for _, tag := range taxonomy.TagsForCategory(category) {
		out = append(out, TagWithProvenance{Tag: tag, Source: SourceRegex, Confidence: ConfidenceLow})
	}
	return out
}

var plainTokenRe = regexp.MustCompile(`^['"]?[^'"]*$`)

// tagsFromPosition inspects the text around the server-reported error
// position for structural mistakes the diagnostics alone cannot name.
func tagsFromPosition(sql string, position int) []TagWithProvenance {
	loc, ok := LocalizePosition(sql, position)
	if !ok {
		return nil
	}
	var out []TagWithProvenance
	snippet := strings.ToUpper(loc.Snippet)
	if strings.Contains(snippet, ",") &&
		containsAny(snippet, "FROM", "WHERE", "GROUP", "ORDER", "JOIN", "HAVING", "LIMIT") {
		out = append(out, TagWithProvenance{
			Tag: taxonomy.TagTrailingDelimiter, Source: SourceDiagPosition, Confidence: ConfidenceMedium,
		})
	}
	if strings.Count(snippet, "(") != strings.Count(snippet, ")") {
		out = append(out, TagWithProvenance{
			Tag: taxonomy.TagUnbalancedTokens, Source: SourceDiagPosition, Confidence: ConfidenceMedium,
		})
	}
	if loc.Token != "" && plainTokenRe.MatchString(loc.Token) {
		out = append(out, TagWithProvenance{
			Tag: taxonomy.TagHardcodedValue, Source: SourceDiagPosition, Confidence: ConfidenceLow,
		})
	}
	return out
}

// tagsFromTree combines server diagnostics with the statement's own
// structure. Each signal needs both sides: the SQLSTATE says what class
// of thing went wrong, the tree says whether the query actually has the
// construct that would explain it.
func tagsFromTree(tree *sqlast.Tree, d Diagnostics, sqlstate string) []TagWithProvenance {
	if tree == nil {
		return nil
	}
	var out []TagWithProvenance

	if sqlstate == "42803" {
		hasAgg, hasGroup := false, false
		tree.Walk(func(id int, n *sqlast.Node) bool {
			switch n.Kind {
			case sqlast.KindAggFunc:
				hasAgg = true
			case sqlast.KindGroupClause:
				hasGroup = true
			}
			return true
		})
		if hasAgg && hasGroup {
			out = append(out, TagWithProvenance{
				Tag: taxonomy.TagMissingGroupBy, Source: SourceASTHeuristic, Confidence: ConfidenceMedium,
			})
		}
		out = append(out, TagWithProvenance{
			Tag: taxonomy.TagGroupingError, Source: SourceASTHeuristic, Confidence: ConfidenceMedium,
		})
	}

	if sqlstate == "42703" && d.ColumnName != "" {
		hasSubquery := false
		tree.Walk(func(id int, n *sqlast.Node) bool {
			if n.Kind == sqlast.KindSubquery {
				hasSubquery = true
				return false
			}
			return true
		})
		if hasSubquery {
			out = append(out, TagWithProvenance{
				Tag: taxonomy.TagIncorrectCorrelation, Source: SourceASTHeuristic, Confidence: ConfidenceLow,
			})
		}
	}

	if d.TableName != "" {
		var tables []string
		tree.Walk(func(id int, n *sqlast.Node) bool {
			if n.Kind == sqlast.KindTable && n.Name != "" {
				tables = append(tables, strings.ToLower(n.Name))
			}
			return true
		})
		if len(tables) >= 2 {
			missing := true
			want := strings.ToLower(d.TableName)
			for _, t := range tables {
				if t == want {
					missing = false
					break
				}
			}
			if missing {
				out = append(out, TagWithProvenance{
					Tag: taxonomy.TagMissingJoin, Source: SourceASTHeuristic, Confidence: ConfidenceMedium,
				})
			}
		}
	}

	return out
}
