package errctx_test

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscope-dev/sqlscope/pkg/errctx"
	"github.com/sqlscope-dev/sqlscope/pkg/taxonomy"
)

func hasTag(tags []errctx.TagWithProvenance, tag taxonomy.Tag, source string) bool {
	for _, t := range tags {
		if t.Tag == tag && t.Source == source {
			return true
		}
	}
	return false
}

func TestBuild_PgconnUndefinedColumn(t *testing.T) {
	dbErr := &pgconn.PgError{
		Severity:   "ERROR",
		Code:       "42703",
		Message:    `column "usrname" does not exist`,
		ColumnName: "usrname",
		Position:   8,
	}
	ctx := errctx.Build("SELECT usrname FROM users", dbErr)

	assert.Equal(t, "42703", ctx.SQLState)
	assert.Equal(t, "usrname", ctx.Diagnostics.ColumnName)
	assert.Equal(t, 8, ctx.Diagnostics.Position)
	assert.Equal(t, taxonomy.CategorySemantic, ctx.Category())

	// The diagnostic field yields high-confidence candidates, the
	// SQLSTATE a medium one for the same tag under its own source.
	assert.True(t, hasTag(ctx.Tags, taxonomy.TagHallucinationColumn, errctx.SourceDiagColumn))
	assert.True(t, hasTag(ctx.Tags, taxonomy.TagAmbiguousColumn, errctx.SourceDiagColumn))
	assert.True(t, hasTag(ctx.Tags, taxonomy.TagHallucinationColumn, errctx.SourceSQLState))

	best, ok := ctx.BestTag()
	require.True(t, ok)
	assert.InDelta(t, errctx.ConfidenceHigh, best.Confidence, 1e-9)
}

func TestBuild_PqUndefinedTable(t *testing.T) {
	dbErr := &pq.Error{
		Severity: "ERROR",
		Code:     "42P01",
		Message:  `relation "ledger" does not exist`,
		Table:    "ledger",
	}
	ctx := errctx.Build(
		"SELECT * FROM account a JOIN transactions t ON t.account_id = a.id", dbErr)

	assert.Equal(t, "42P01", ctx.SQLState)
	assert.True(t, hasTag(ctx.Tags, taxonomy.TagHallucinationTable, errctx.SourceDiagTable))
	assert.True(t, hasTag(ctx.Tags, taxonomy.TagMissingJoin, errctx.SourceDiagTable))

	// The query references two tables, neither of which is the one the
	// server complained about: a join against it is plausibly missing.
	assert.True(t, hasTag(ctx.Tags, taxonomy.TagMissingJoin, errctx.SourceASTHeuristic))
}

func TestBuild_MySQLNumberBridge(t *testing.T) {
	tests := []struct {
		name   string
		number uint16
		want   string
	}{
		{"unknown column", 1054, "42703"},
		{"unknown table", 1146, "42P01"},
		{"duplicate entry", 1062, "23505"},
		{"syntax error", 1064, "42601"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := errctx.Build("SELECT 1", &mysql.MySQLError{
				Number:  tt.number,
				Message: "server error",
			})
			assert.Equal(t, tt.want, ctx.SQLState)
		})
	}
}

func TestBuild_MySQLExplicitState(t *testing.T) {
	ctx := errctx.Build("SELECT 1", &mysql.MySQLError{
		Number:   1054,
		SQLState: [5]byte{'4', '2', 'S', '2', '2'},
		Message:  "Unknown column 'x' in 'field list'",
	})
	assert.Equal(t, "42S22", ctx.SQLState)
}

func TestBuild_GenericError(t *testing.T) {
	t.Run("embedded sqlstate", func(t *testing.T) {
		ctx := errctx.Build("SELECT 1", errors.New("query failed [23505] duplicate key"))
		assert.Equal(t, "23505", ctx.SQLState)
		assert.True(t, hasTag(ctx.Tags, taxonomy.TagUniqueViolation, errctx.SourceSQLState))
	})

	t.Run("message pattern", func(t *testing.T) {
		ctx := errctx.Build("SELECT nope FROM t", errors.New(`column "nope" does not exist`))
		assert.Equal(t, "42703", ctx.SQLState)
	})

	t.Run("nothing to classify", func(t *testing.T) {
		ctx := errctx.Build("SELECT 1", errors.New("connection refused"))
		assert.Empty(t, ctx.SQLState)
		assert.Equal(t, taxonomy.CategorySemantic, ctx.Category())
		_, ok := ctx.BestTag()
		assert.False(t, ok)
	})
}

func TestBuild_WrappedDriverError(t *testing.T) {
	inner := &pgconn.PgError{Code: "23503", Message: "violates foreign key constraint", ConstraintName: "fk_account"}
	wrapped := errors.Join(errors.New("exec failed"), inner)

	ctx := errctx.Build("INSERT INTO tx VALUES (1)", wrapped)
	assert.Equal(t, "23503", ctx.SQLState)
	assert.True(t, hasTag(ctx.Tags, taxonomy.TagForeignKeyViolation, errctx.SourceDiagConstraint))
	assert.True(t, hasTag(ctx.Tags, taxonomy.TagIncorrectForeignKey, errctx.SourceDiagConstraint))
}

func TestBuild_GroupByCrossSignal(t *testing.T) {
	dbErr := &pgconn.PgError{
		Code:    "42803",
		Message: `column "t.region" must appear in the GROUP BY clause or be used in an aggregate function`,
	}
	ctx := errctx.Build(
		"SELECT region, count(*) FROM sales t GROUP BY city", dbErr)

	assert.True(t, hasTag(ctx.Tags, taxonomy.TagGroupingError, errctx.SourceASTHeuristic))
	assert.True(t, hasTag(ctx.Tags, taxonomy.TagMissingGroupBy, errctx.SourceASTHeuristic))
}

func TestBuild_CorrelationCrossSignal(t *testing.T) {
	dbErr := &pgconn.PgError{
		Code:       "42703",
		Message:    `column "outer_ref" does not exist`,
		ColumnName: "outer_ref",
	}
	ctx := errctx.Build(
		"SELECT a FROM t WHERE a IN (SELECT b FROM u WHERE u.x = outer_ref)", dbErr)

	assert.True(t, hasTag(ctx.Tags, taxonomy.TagIncorrectCorrelation, errctx.SourceASTHeuristic))
}

func TestBuild_PositionHeuristics(t *testing.T) {
	dbErr := &pgconn.PgError{
		Code:     "42601",
		Message:  `syntax error at or near "FROM"`,
		Position: 11,
	}
	ctx := errctx.Build("SELECT a, FROM t", dbErr)

	assert.True(t, hasTag(ctx.Tags, taxonomy.TagTrailingDelimiter, errctx.SourceDiagPosition))
}

func TestBuild_TagsSortedByConfidence(t *testing.T) {
	dbErr := &pgconn.PgError{
		Code:       "42703",
		Message:    `column "x" does not exist`,
		ColumnName: "x",
	}
	ctx := errctx.Build("SELECT x FROM t", dbErr)

	require.NotEmpty(t, ctx.Tags)
	for i := 1; i < len(ctx.Tags); i++ {
		assert.GreaterOrEqual(t, ctx.Tags[i-1].Confidence, ctx.Tags[i].Confidence)
	}
}

func TestBuild_NoDuplicateTagSourcePairs(t *testing.T) {
	dbErr := &pgconn.PgError{
		Code:       "42703",
		Message:    `column "x" does not exist`,
		ColumnName: "x",
		TableName:  "t",
	}
	ctx := errctx.Build("SELECT x FROM t JOIN u ON 1=1", dbErr)

	type key struct {
		tag    taxonomy.Tag
		source string
	}
	seen := map[key]bool{}
	for _, tag := range ctx.Tags {
		k := key{tag.Tag, tag.Source}
		assert.False(t, seen[k], "duplicate %v", k)
		seen[k] = true
	}
}

func TestBuild_ThroughDatabaseSQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	const query = "SELECT usrname FROM users"
	pgErr := &pgconn.PgError{Code: "42703", Message: `column "usrname" does not exist`, ColumnName: "usrname"}
	mock.ExpectQuery("SELECT usrname FROM users").WillReturnError(pgErr)

	_, qErr := db.Query(query)
	require.Error(t, qErr)

	ctx := errctx.Build(query, qErr)
	assert.Equal(t, "42703", ctx.SQLState)
	assert.True(t, hasTag(ctx.Tags, taxonomy.TagHallucinationColumn, errctx.SourceDiagColumn))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuild_ExposesParseTree(t *testing.T) {
	ctx := errctx.Build("SELECT id FROM account", errors.New("deadlock detected"))
	require.NotNil(t, ctx.Tree())
	assert.Positive(t, ctx.Tree().Len())

	ctx = errctx.Build("not sql at all (", errors.New("deadlock detected"))
	assert.Nil(t, ctx.Tree(), "unparseable SQL leaves no tree")
}

func TestLocalizePosition(t *testing.T) {
	sql := "SELECT usrname FROM users"

	loc, ok := errctx.LocalizePosition(sql, 8)
	require.True(t, ok)
	assert.Equal(t, "usrname", loc.Token)
	assert.Contains(t, loc.Snippet, "usrname")

	_, ok = errctx.LocalizePosition(sql, 0)
	assert.False(t, ok)

	loc, ok = errctx.LocalizePosition(sql, 9999)
	require.True(t, ok)
	assert.Empty(t, loc.Token)
	assert.NotEmpty(t, loc.Snippet)
}
