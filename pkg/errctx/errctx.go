// Package errctx classifies database runtime errors. Given the failed
// SQL and the error a driver returned, it extracts every server
// diagnostic the driver exposes, derives candidate taxonomy tags with
// provenance and confidence, and cross-checks them against the parsed
// statement when parsing still succeeds.
package errctx

import (
	"sort"
	"strings"

	"github.com/sqlscope-dev/sqlscope/pkg/sqlast"
	"github.com/sqlscope-dev/sqlscope/pkg/taxonomy"
)

// Confidence levels attached to derived tags. Diagnostic fields come
// straight from the server, SQLSTATE narrows to a category, and message
// scraping is a last resort.
const (
	ConfidenceHigh   = 0.95
	ConfidenceMedium = 0.7
	ConfidenceLow    = 0.4
)

// Provenance sources for derived tags.
const (
	SourceDiagColumn     = "pg_diag_column_name"
	SourceDiagTable      = "pg_diag_table_name"
	SourceDiagConstraint = "pg_diag_constraint_name"
	SourceDiagDatatype   = "pg_diag_datatype_name"
	SourceDiagSchema     = "pg_diag_schema_name"
	SourceDiagPosition   = "pg_diag_position"
	SourceSQLState       = "sqlstate"
	SourceRegex          = "regex"
	SourceASTHeuristic   = "ast_heuristic"
)

// Diagnostics is the server-reported diagnostic surface of one error.
// Empty strings mean the driver did not supply the field; Position is
// 1-based as the server reports it, 0 when absent.
type Diagnostics struct {
	Severity       string `json:"severity,omitempty"`
	Message        string `json:"message,omitempty"`
	Detail         string `json:"detail,omitempty"`
	Hint           string `json:"hint,omitempty"`
	Position       int    `json:"position,omitempty"`
	SchemaName     string `json:"schema_name,omitempty"`
	TableName      string `json:"table_name,omitempty"`
	ColumnName     string `json:"column_name,omitempty"`
	DataTypeName   string `json:"datatype_name,omitempty"`
	ConstraintName string `json:"constraint_name,omitempty"`
}

// TagWithProvenance is one candidate classification with where it came
// from and how much to trust it.
type TagWithProvenance struct {
	Tag        taxonomy.Tag `json:"tag"`
	Source     string       `json:"source"`
	Confidence float64      `json:"confidence"`
}

// Context is the structured classification of one runtime error.
type Context struct {
	SQL         string              `json:"sql"`
	SQLState    string              `json:"sqlstate,omitempty"`
	Diagnostics Diagnostics         `json:"diagnostics"`
	Tags        []TagWithProvenance `json:"tags"`

	tree *sqlast.Tree
}

// Category returns the taxonomy category for the SQLSTATE, falling back
// through the class prefix. Without a SQLSTATE the error counts as
// semantic, the broadest runtime bucket.
func (c *Context) Category() taxonomy.Category {
	if cat, ok := taxonomy.CategoryForSQLStateWithFallback(c.SQLState); ok {
		return cat
	}
	return taxonomy.CategorySemantic
}

// Tree returns the statement's parse tree when the best-effort re-parse
// in Build succeeded, nil otherwise. It is not serialized.
func (c *Context) Tree() *sqlast.Tree {
	return c.tree
}

// BestTag returns the highest-confidence candidate, or false when the
// error produced no candidates at all.
func (c *Context) BestTag() (TagWithProvenance, bool) {
	if len(c.Tags) == 0 {
		return TagWithProvenance{}, false
	}
	return c.Tags[0], true
}

// Build classifies a runtime error against the SQL that triggered it.
// The statement is re-parsed on a best-effort basis; a statement the
// server already executed far enough to fail at runtime usually parses,
// and the resulting tree powers the cross-signal heuristics.
func Build(sql string, dbErr error) *Context {
	diag, sqlstate := extractDiagnostics(dbErr)
	if sqlstate == "" && diag.Message != "" {
		sqlstate = taxonomy.ExtractErrorCode(diag.Message)
	}

	tree, _ := sqlast.Parse(sql)

	var tags []TagWithProvenance
	tags = append(tags, tagsFromDiagnostics(diag)...)
	tags = append(tags, tagsFromSQLState(sqlstate)...)
	if sqlstate == "" {
		tags = append(tags, tagsFromMessage(diag.Message)...)
	}
	tags = append(tags, tagsFromPosition(sql, diag.Position)...)
	tags = append(tags, tagsFromTree(tree, diag, sqlstate)...)

	return &Context{
		SQL:         sql,
		SQLState:    sqlstate,
		Diagnostics: diag,
		Tags:        dedupeTags(tags),
		tree:        tree,
	}
}

// dedupeTags collapses duplicate (tag, source) pairs keeping the highest
// confidence, then orders by descending confidence. The sort is stable
// so derivation order breaks ties.
func dedupeTags(tags []TagWithProvenance) []TagWithProvenance {
	type key struct {
		tag    taxonomy.Tag
		source string
	}
	best := make(map[key]int)
	out := make([]TagWithProvenance, 0, len(tags))
	for _, t := range tags {
		k := key{tag: t.Tag, source: t.Source}
		if i, ok := best[k]; ok {
			if t.Confidence > out[i].Confidence {
				out[i].Confidence = t.Confidence
			}
			continue
		}
		best[k] = len(out)
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Localized is the token and surrounding text at an error position.
type Localized struct {
	Token   string
	Start   int
	End     int
	Snippet string
}

// LocalizePosition resolves a 1-based server error position to the
// identifier-like token around it plus a short context window. It
// returns false when the position is absent or out of range.
func LocalizePosition(sql string, position int) (Localized, bool) {
	if position <= 0 || sql == "" {
		return Localized{}, false
	}
	idx := position - 1
	if idx >= len(sql) {
		snippet := sql
		if len(snippet) > 50 {
			snippet = snippet[len(snippet)-50:]
		}
		return Localized{Start: idx, End: idx, Snippet: snippet}, true
	}

	start := idx
	for start > 0 && isTokenByte(sql[start-1]) {
		start--
	}
	end := idx
	for end < len(sql) && isTokenByte(sql[end]) {
		end++
	}
	token := sql[start:end]
	if token == "" {
		token = sql[idx : idx+1]
	}

	snipStart := idx - 25
	if snipStart < 0 {
		snipStart = 0
	}
	snipEnd := idx + 25
	if snipEnd > len(sql) {
		snipEnd = len(sql)
	}
	return Localized{
		Token:   token,
		Start:   start,
		End:     end,
		Snippet: sql[snipStart:snipEnd],
	}, true
}

func isTokenByte(b byte) bool {
	return b == '_' || b == '.' ||
		(b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
