package taxonomy

import (
	"regexp"
	"strings"
)

// sqlstateToCategory maps exact SQLSTATE codes to taxonomy categories.
// Curated for the codes a SQL-generation workload actually hits; the
// class fallback below covers the rest of the standard.
var sqlstateToCategory = map[string]Category{
	"42601": CategorySyntax,
	"42602": CategorySyntax,
	"42611": CategorySyntax,
	"42622": CategorySyntax,
	"42702": CategorySemantic,
	"42703": CategorySemantic,
	"42704": CategorySemantic,
	"42710": CategorySemantic,
	"42712": CategorySemantic,
	"42723": CategorySemantic,
	"42725": CategorySemantic,
	"42P01": CategorySemantic,
	"42P02": CategorySemantic,
	"42P03": CategorySemantic,
	"42P04": CategorySemantic,
	"42P05": CategorySemantic,
	"42P06": CategorySemantic,
	"42P07": CategorySemantic,
	"42803": CategoryLogical,
	"42809": CategoryLogical,
	"42830": CategoryLogical,
	"42P20": CategoryLogical,
	"42804": CategorySemantic,
	"42846": CategorySemantic,
	"42883": CategorySemantic,
	"42884": CategorySemantic,
	"22005": CategorySemantic,
	"22007": CategorySemantic,
	"22008": CategorySemantic,
	"22012": CategorySemantic,
	"22023": CategorySemantic,
	"22P02": CategorySemantic,
	"22P03": CategorySemantic,
	"22P04": CategorySemantic,
	"23000": CategoryLogical,
	"23001": CategoryLogical,
	"23502": CategoryLogical,
	"23503": CategoryLogical,
	"23505": CategoryLogical,
	"23514": CategoryLogical,
}

// sqlstateClassFallback maps a SQLSTATE class (first two characters) to a
// default category when the exact code is not in sqlstateToCategory.
var sqlstateClassFallback = map[string]Category{
	"42": CategorySemantic,
	"22": CategorySemantic,
	"23": CategoryLogical,
	"28": CategorySemantic,
	"2B": CategorySemantic,
	"2D": CategoryLogical,
	"2F": CategorySemantic,
	"34": CategorySemantic,
	"38": CategorySemantic,
	"39": CategorySemantic,
	"3B": CategoryLogical,
	"3D": CategorySemantic,
	"3F": CategorySemantic,
	"40": CategoryLogical,
	"44": CategoryLogical,
	"53": CategorySemantic,
	"54": CategorySemantic,
	"55": CategorySemantic,
	"57": CategorySemantic,
	"58": CategorySemantic,
	"72": CategorySemantic,
	"0A": CategorySemantic,
	"XX": CategorySemantic,
	"F0": CategorySemantic,
	"HV": CategorySemantic,
	"P0": CategorySemantic,
}

// sqlstateToTag maps exact SQLSTATE codes to the single best-fit tag.
// Not every code has one; absence means callers should fall back to the
// category tables.
var sqlstateToTag = map[string]Tag{
	"42601": TagSyntaxError,
	"42602": TagInvalidName,
	"42702": TagAmbiguousColumn,
	"42703": TagHallucinationColumn,
	"42704": TagSchemaUnknownError,
	"42P01": TagHallucinationTable,
	"42803": TagGroupingError,
	"42P20": TagWindowingError,
	"23502": TagIntegrityViolation,
	"23503": TagForeignKeyViolation,
	"23505": TagUniqueViolation,
	"23514": TagCheckViolation,
	"42883": TagUndefinedFunction,
	"42884": TagUndefinedFunction,
	"42804": TagTypeMismatch,
	"22P02": TagValueFormatMismatch,
	"22012": TagValueFormatMismatch,
}

// messagePattern infers a SQLSTATE from error message text when the
// server did not report one.
type messagePattern struct {
	re   *regexp.Regexp
	code string
}

// messagePatterns is an ordered list; the first match wins, so the order
// is part of the contract and must not be rearranged.
var messagePatterns = []messagePattern{
	{regexp.MustCompile(`(?i)syntax error`), "42601"},
	{regexp.MustCompile(`(?i)unterminated quoted string`), "42601"},
	{regexp.MustCompile(`(?i)column reference .* is ambiguous`), "42702"},
	{regexp.MustCompile(`(?i)column reference is ambiguous`), "42702"},
	{regexp.MustCompile(`(?i)column .* does not exist`), "42703"},
	{regexp.MustCompile(`(?i)undefined column`), "42703"},
	{regexp.MustCompile(`(?i)table .* does not exist`), "42P01"},
	{regexp.MustCompile(`(?i)undefined table`), "42P01"},
	{regexp.MustCompile(`(?i)table name .* specified more than once`), "42712"},
	{regexp.MustCompile(`(?i)aggregate function .* cannot contain`), "42803"},
	{regexp.MustCompile(`(?i)must appear in the group by clause`), "42803"},
	{regexp.MustCompile(`(?i)window function .* cannot contain`), "42P20"},
	{regexp.MustCompile(`(?i)argument of .* must be type boolean`), "42804"},
	{regexp.MustCompile(`(?i)invalid hexadecimal`), "22P02"},
	{regexp.MustCompile(`(?i)invalid input syntax`), "22P02"},
	{regexp.MustCompile(`(?i)division by zero`), "22012"},
	{regexp.MustCompile(`(?i)duplicate key`), "23505"},
	{regexp.MustCompile(`(?i)foreign key violation`), "23503"},
	{regexp.MustCompile(`(?i)not null violation`), "23502"},
}

// codeRe matches a SQLSTATE embedded directly in a message, either after
// a SQLSTATE/ERROR prefix or in square brackets.
var codeRe = regexp.MustCompile(`(?i)(?:SQLSTATE|ERROR)[\s:]*([0-9][0-9A-Z]{4})|\[([0-9][0-9A-Z]{4})\]`)

// ExtractErrorCode extracts a SQLSTATE code from an error message.
// It first looks for an explicit code, then falls back to the ordered
// message-pattern table. Returns "" when nothing matches.
func ExtractErrorCode(message string) string {
	if m := codeRe.FindStringSubmatch(message); m != nil {
		code := m[1]
		if code == "" {
			code = m[2]
		}
		return strings.ToUpper(code)
	}
	for _, p := range messagePatterns {
		if p.re.MatchString(message) {
			return p.code
		}
	}
	return ""
}

// TagForSQLState returns the single best tag for a SQLSTATE code.
// ok=false when the code is not in the curated exact map.
func TagForSQLState(code string) (Tag, bool) {
	t, ok := sqlstateToTag[normalizeCode(code)]
	return t, ok
}

// CategoryForSQLState returns the taxonomy category for a SQLSTATE code
// using the exact table only.
func CategoryForSQLState(code string) (Category, bool) {
	c, ok := sqlstateToCategory[normalizeCode(code)]
	return c, ok
}

// CategoryForSQLStateWithFallback resolves the category for a SQLSTATE
// code, falling back to the two-character class table when the exact
// code is unknown. Exact matches always win.
func CategoryForSQLStateWithFallback(code string) (Category, bool) {
	code = normalizeCode(code)
	if code == "" {
		return "", false
	}
	if c, ok := sqlstateToCategory[code]; ok {
		return c, true
	}
	if len(code) >= 2 {
		c, ok := sqlstateClassFallback[code[:2]]
		return c, ok
	}
	return "", false
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
