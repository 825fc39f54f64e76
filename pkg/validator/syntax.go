package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	trailingDelimiterRe = regexp.MustCompile(`,\s+(FROM|WHERE|GROUP|ORDER|HAVING|LIMIT|UNION|JOIN)\b`)
	emptySelectRe       = regexp.MustCompile(`(?i)\bSELECT\s+FROM\b`)
)

// findTrailingDelimiter locates a comma immediately preceding a clause
// keyword, the classic dangling-comma mistake. It returns the byte offset
// of the comma, or -1. The character before the comma must be part of an
// expression so that row constructors like VALUES (1,2),(3,4) do not
// trip it.
func findTrailingDelimiter(sql string) int {
	upper := strings.ToUpper(sql)
	for _, m := range trailingDelimiterRe.FindAllStringIndex(upper, -1) {
		pos := m[0]
		if pos > 0 && isWordByte(upper[pos-1]) {
			return pos
		}
	}
	return -1
}

func isWordByte(b byte) bool {
	return b == '_' || b == '*' || b == ')' || b == '\'' || b == '"' ||
		(b >= '0' && b <= '9') || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

// tokenBalance counts unmatched parentheses and brackets outside of
// single-quoted strings. Positive means unclosed openers, negative means
// extra closers.
func tokenBalance(sql string) (parens, brackets int) {
	inString := false
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if c == '\'' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '(':
			parens++
		case ')':
			parens--
		case '[':
			brackets++
		case ']':
			brackets--
		}
	}
	return parens, brackets
}

func hasUnbalancedTokens(sql string) bool {
	p, b := tokenBalance(sql)
	return p != 0 || b != 0
}

// describeImbalance renders a short human-readable summary of which
// delimiters are unmatched, for use as error context.
func describeImbalance(sql string) string {
	p, b := tokenBalance(sql)
	var parts []string
	switch {
	case p > 0:
		parts = append(parts, fmt.Sprintf("%d unclosed '('", p))
	case p < 0:
		parts = append(parts, fmt.Sprintf("%d extra ')'", -p))
	}
	switch {
	case b > 0:
		parts = append(parts, fmt.Sprintf("%d unclosed '['", b))
	case b < 0:
		parts = append(parts, fmt.Sprintf("%d extra ']'", -b))
	}
	return strings.Join(parts, ", ")
}

// hasUnterminatedString reports whether the text contains an odd number
// of single quotes, after collapsing doubled quotes used for escaping.
func hasUnterminatedString(sql string) bool {
	collapsed := strings.ReplaceAll(sql, "''", "")
	return strings.Count(collapsed, "'")%2 == 1
}

// snippetAround extracts a short window of the SQL around a byte offset
// for error context.
func snippetAround(sql string, pos int) string {
	start := pos - 10
	if start < 0 {
		start = 0
	}
	end := pos + 15
	if end > len(sql) {
		end = len(sql)
	}
	return strings.TrimSpace(sql[start:end])
}

// runeOffset converts a byte offset into a character offset. Error
// locations are reported in characters so they survive round trips
// through clients that index strings by character.
func runeOffset(sql string, byteOff int) int {
	if byteOff < 0 {
		return -1
	}
	if byteOff > len(sql) {
		byteOff = len(sql)
	}
	return utf8.RuneCountInString(sql[:byteOff])
}
