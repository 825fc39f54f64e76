package taxonomy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscope-dev/sqlscope/pkg/taxonomy"
)

func TestExtractErrorCode(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"sqlstate prefix", "SQLSTATE 42703: column does not exist", "42703"},
		{"sqlstate colon", "SQLSTATE: 42P01", "42P01"},
		{"error prefix", "ERROR 42601 near SELECT", "42601"},
		{"bracketed", "query failed [23505] duplicate key", "23505"},
		{"lowercase code is folded", "sqlstate 42p01", "42P01"},
		{"pattern syntax error", `syntax error at or near "FORM"`, "42601"},
		{"pattern undefined column", `column "usrname" does not exist`, "42703"},
		{"pattern undefined table", `table "accts" does not exist`, "42P01"},
		{"pattern ambiguous", `column reference "id" is ambiguous`, "42702"},
		{"pattern group by", `column "t.name" must appear in the GROUP BY clause`, "42803"},
		{"pattern division", "division by zero", "22012"},
		{"pattern invalid input", `invalid input syntax for type integer: "abc"`, "22P02"},
		{"no code", "connection refused", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, taxonomy.ExtractErrorCode(tt.message))
		})
	}
}

func TestExtractErrorCode_ExplicitCodeBeatsPatterns(t *testing.T) {
	// A literal SQLSTATE in the text wins even when a pattern would
	// match a different code.
	got := taxonomy.ExtractErrorCode(`SQLSTATE 42P01: column "x" does not exist`)
	assert.Equal(t, "42P01", got)
}

func TestExtractErrorCode_FirstPatternWins(t *testing.T) {
	// "syntax error" is checked before the undefined-column pattern.
	got := taxonomy.ExtractErrorCode(`syntax error: column "x" does not exist`)
	assert.Equal(t, "42601", got)
}

func TestTagForSQLState(t *testing.T) {
	tests := []struct {
		code string
		want taxonomy.Tag
		ok   bool
	}{
		{"42601", taxonomy.TagSyntaxError, true},
		{"42703", taxonomy.TagHallucinationColumn, true},
		{"42P01", taxonomy.TagHallucinationTable, true},
		{"42p01", taxonomy.TagHallucinationTable, true},
		{"42803", taxonomy.TagGroupingError, true},
		{"23505", taxonomy.TagUniqueViolation, true},
		{"22012", taxonomy.TagValueFormatMismatch, true},
		{"42P07", "", false},
		{"99999", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, ok := taxonomy.TagForSQLState(tt.code)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCategoryForSQLStateWithFallback(t *testing.T) {
	// Exact codes win over the class fallback.
	cat, ok := taxonomy.CategoryForSQLStateWithFallback("42803")
	require.True(t, ok)
	assert.Equal(t, taxonomy.CategoryLogical, cat)

	// 42xxx class falls back to semantic for codes outside the exact map.
	cat, ok = taxonomy.CategoryForSQLStateWithFallback("42999")
	require.True(t, ok)
	assert.Equal(t, taxonomy.CategorySemantic, cat)

	// 23xxx class is logical.
	cat, ok = taxonomy.CategoryForSQLStateWithFallback("23777")
	require.True(t, ok)
	assert.Equal(t, taxonomy.CategoryLogical, cat)

	_, ok = taxonomy.CategoryForSQLStateWithFallback("ZZ123")
	assert.False(t, ok)

	_, ok = taxonomy.CategoryForSQLStateWithFallback("")
	assert.False(t, ok)
}

func TestCategoryForSQLState_ExactOnly(t *testing.T) {
	_, ok := taxonomy.CategoryForSQLState("42999")
	assert.False(t, ok)

	cat, ok := taxonomy.CategoryForSQLState("42601")
	require.True(t, ok)
	assert.Equal(t, taxonomy.CategorySyntax, cat)
}
