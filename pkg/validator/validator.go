// Package validator checks SQL statements for syntactic, structural, and
// schema-level defects and reports each finding under a canonical
// taxonomy tag. Validation collects every detectable defect in one pass
// rather than stopping at the first.
package validator

import (
	"fmt"
	"strings"

	"github.com/sqlscope-dev/sqlscope/pkg/analyzer"
	"github.com/sqlscope-dev/sqlscope/pkg/schema"
	"github.com/sqlscope-dev/sqlscope/pkg/sqlast"
	"github.com/sqlscope-dev/sqlscope/pkg/taxonomy"
)

// DefaultDialect is the only dialect the parser currently understands.
const DefaultDialect = "postgres"

// Validator validates SQL text. The zero value is not usable; construct
// with New.
type Validator struct {
	dialect string
}

// Option configures a Validator.
type Option func(*Validator)

// WithDialect sets the SQL dialect. Anything other than DefaultDialect
// makes every Validate call report unsupported_dialect.
func WithDialect(name string) Option {
	return func(v *Validator) { v.dialect = strings.ToLower(strings.TrimSpace(name)) }
}

// New builds a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{dialect: DefaultDialect}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks a statement without schema knowledge.
func (v *Validator) Validate(sql string) Result {
	return v.ValidateSchema(sql, nil)
}

// ValidateSchema checks a statement and, when catalog is non-nil, also
// verifies that every referenced table and column exists in it. When the
// statement does not parse, a token-level scan still surfaces obvious
// schema hallucinations alongside the syntax errors.
func (v *Validator) ValidateSchema(sql string, catalog schema.Map) Result {
	if v.dialect != DefaultDialect {
		return Result{SQL: sql, Errors: []Error{
			newError(taxonomy.TagUnsupportedDialect,
				fmt.Sprintf("dialect %q is not supported, only %q is", v.dialect, DefaultDialect)),
		}}
	}

	tree, err := sqlast.Parse(sql)
	if err != nil {
		errs := classifyParseError(sql, err)
		if catalog != nil {
			errs = mergeErrors(errs, checkCandidates(sql, catalog))
		}
		return Result{SQL: sql, Errors: errs}
	}

	md := analyzer.Analyze(tree)
	errs := detectSilentIssues(sql)
	if catalog != nil {
		errs = mergeErrors(errs, checkSchema(tree, catalog))
	}
	return Result{SQL: sql, Errors: errs, Metadata: &md}
}

// classifyParseError turns a parser failure into one tagged error. The
// checks run from most to least specific; the raw parser message wins
// only when no sharper signal exists in the text.
func classifyParseError(sql string, err error) []Error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	loc := -1
	if pe, ok := err.(*sqlast.ParseError); ok && pe.Offset >= 0 {
		loc = pe.Offset
	}
	code := taxonomy.ExtractErrorCode(msg)

	switch {
	case strings.Contains(lower, "unterminated") || hasUnterminatedString(sql):
		return []Error{{
			Tag:       taxonomy.TagUnterminatedString,
			Message:   "Unterminated string literal",
			Location:  loc,
			ErrorCode: code,
		}}
	case hasUnbalancedTokens(sql):
		return []Error{{
			Tag:       taxonomy.TagUnbalancedTokens,
			Message:   "Unbalanced parentheses or brackets",
			Location:  loc,
			Context:   describeImbalance(sql),
			ErrorCode: code,
		}}
	}

	if pos := findTrailingDelimiter(sql); pos >= 0 {
		return []Error{{
			Tag:      taxonomy.TagTrailingDelimiter,
			Message:  "Trailing comma before clause keyword",
			Location: runeOffset(sql, pos),
			Context:  snippetAround(sql, pos),
		}}
	}

	switch {
	case strings.Contains(lower, `expecting ")"`) || strings.Contains(lower, `expecting "("`):
		return []Error{{
			Tag:       taxonomy.TagUnbalancedTokens,
			Message:   msg,
			Location:  loc,
			ErrorCode: code,
		}}
	case strings.Contains(lower, "unexpected token") || strings.Contains(lower, "invalid expression"):
		return []Error{{
			Tag:       taxonomy.TagInvalidToken,
			Message:   msg,
			Location:  loc,
			ErrorCode: code,
		}}
	case strings.Contains(lower, "unsupported"):
		return []Error{{
			Tag:       taxonomy.TagUnsupportedDialect,
			Message:   msg,
			Location:  loc,
			ErrorCode: code,
		}}
	}

	return []Error{{
		Tag:       taxonomy.TagSyntaxError,
		Message:   msg,
		Location:  loc,
		ErrorCode: code,
	}}
}

// detectSilentIssues finds mistakes a lenient parser would paper over.
// Only the first trailing delimiter is reported: once one comma is out
// of place, later hits are usually knock-on noise.
func detectSilentIssues(sql string) []Error {
	var errs []Error
	if pos := findTrailingDelimiter(sql); pos >= 0 {
		errs = append(errs, Error{
			Tag:      taxonomy.TagTrailingDelimiter,
			Message:  "Trailing comma before clause keyword",
			Location: runeOffset(sql, pos),
			Context:  snippetAround(sql, pos),
		})
		return errs
	}
	if m := emptySelectRe.FindStringIndex(sql); m != nil {
		errs = append(errs, Error{
			Tag:      taxonomy.TagKeywordMisuse,
			Message:  "SELECT clause has no expressions",
			Location: runeOffset(sql, m[0]),
			Context:  snippetAround(sql, m[0]),
		})
	}
	return errs
}

// mergeErrors concatenates error lists, dropping duplicates that share a
// tag and context. Earlier lists take priority, so a precise AST-derived
// error survives over a token-scan guess for the same identifier.
func mergeErrors(lists ...[]Error) []Error {
	type key struct {
		tag taxonomy.Tag
		ctx string
	}
	seen := make(map[key]bool)
	var out []Error
	for _, list := range lists {
		for _, e := range list {
			k := key{tag: e.Tag, ctx: strings.ToLower(e.Context)}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, e)
		}
	}
	return out
}
