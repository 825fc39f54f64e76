package analyzer_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscope-dev/sqlscope/pkg/analyzer"
	"github.com/sqlscope-dev/sqlscope/pkg/sqlast"
)

func mustParse(t *testing.T, sql string) *sqlast.Tree {
	t.Helper()
	tree, err := sqlast.Parse(sql)
	require.NoError(t, err)
	return tree
}

func TestAnalyze_SimpleSelect(t *testing.T) {
	md := analyzer.Analyze(mustParse(t, "SELECT a FROM t WHERE x = 1"))

	assert.Equal(t, 0, md.ComplexityScore)
	assert.Equal(t, "SELECT-FROM-WHERE", md.PatternSignature)
	assert.Equal(t, []string{"FROM", "SELECT", "WHERE"}, md.ClausesPresent)
	assert.Equal(t, []string{"t"}, md.Tables)
	assert.Zero(t, md.NumJoins)
	assert.Zero(t, md.NumSubqueries)
	assert.Zero(t, md.NumCTEs)
	assert.Zero(t, md.NumAggregations)
}

func TestAnalyze_ComplexityWeights(t *testing.T) {
	// One CTE (2) + one join (1) + one aggregate (1).
	md := analyzer.Analyze(mustParse(t, `
		WITH totals AS (
			SELECT account_id, sum(amount) AS total FROM tx GROUP BY account_id
		)
		SELECT a.name, totals.total
		FROM account a
		JOIN totals ON totals.account_id = a.id`))

	assert.Equal(t, 4, md.ComplexityScore)
	assert.Equal(t, 1, md.NumCTEs)
	assert.Equal(t, 1, md.NumJoins)
	assert.Equal(t, 1, md.NumAggregations)
	assert.Equal(t, 0, md.NumSubqueries)
}

func TestAnalyze_CountsElements(t *testing.T) {
	md := analyzer.Analyze(mustParse(t, `
		SELECT x,
		       CASE WHEN x > 0 THEN 'pos' ELSE 'neg' END
		FROM a
		LEFT JOIN b ON a.id = b.a_id
		WHERE a.id IN (SELECT a_id FROM c)`))

	// join 1 + subquery 1 + case 1.
	assert.Equal(t, 3, md.ComplexityScore)
	assert.Equal(t, 1, md.NumJoins)
	assert.Equal(t, 1, md.NumSubqueries)
	assert.Contains(t, md.ClausesPresent, analyzer.ClauseJoinLeft)
	assert.Contains(t, md.ClausesPresent, analyzer.ClauseCase)
	assert.Contains(t, md.ClausesPresent, analyzer.ClauseSubquery)
}

func TestAnalyze_SetOperationWeight(t *testing.T) {
	md := analyzer.Analyze(mustParse(t, "SELECT a FROM x UNION SELECT a FROM y"))
	assert.Equal(t, 2, md.ComplexityScore)
	assert.Contains(t, md.ClausesPresent, analyzer.ClauseUnion)
}

func TestAnalyze_TableDeduplication(t *testing.T) {
	md := analyzer.Analyze(mustParse(t,
		"SELECT * FROM Users u JOIN orders o ON 1=1 JOIN USERS x ON 1=1"))

	// Case-insensitive dedup, first spelling wins, occurrence order kept.
	assert.Equal(t, []string{"Users", "orders"}, md.Tables)
}

func TestAnalyze_NilTree(t *testing.T) {
	md := analyzer.Analyze(nil)
	assert.Equal(t, analyzer.SignatureEmpty, md.PatternSignature)
	assert.Empty(t, md.ClausesPresent)
	assert.Zero(t, md.ComplexityScore)
}

func TestPatternSignature_CanonicalOrder(t *testing.T) {
	// Same clause set, different query shapes, identical signature.
	a := analyzer.Analyze(mustParse(t, "SELECT a FROM t WHERE x = 1"))
	b := analyzer.Analyze(mustParse(t, "SELECT z1, z2 FROM big WHERE big.f > 0"))
	assert.Equal(t, a.PatternSignature, b.PatternSignature)

	left := analyzer.Analyze(mustParse(t,
		"SELECT 1 FROM a LEFT JOIN b ON a.x = b.x WHERE a.y = 2"))
	assert.Equal(t, "SELECT-FROM-JOIN-JOIN_LEFT-WHERE", left.PatternSignature)
}

func TestPatternSignature_HashFallback(t *testing.T) {
	md := analyzer.Analyze(mustParse(t, `
		WITH c AS (
			SELECT DISTINCT x
			FROM t1
			INNER JOIN t2 ON t1.id = t2.id
			LEFT JOIN t3 ON t3.id = t1.id
			WHERE t1.x > 0
			GROUP BY x
			HAVING count(*) > 1
		)
		SELECT x FROM c WHERE x IN (SELECT x FROM t4)
		UNION
		SELECT x FROM t5
		ORDER BY x LIMIT 10 OFFSET 5`))

	require.True(t, strings.HasPrefix(md.PatternSignature, "HASH_"),
		"got %q", md.PatternSignature)
	assert.Len(t, md.PatternSignature, len("HASH_")+16)
}

func TestPatternSignature_Deterministic(t *testing.T) {
	const sql = `
		WITH c AS (SELECT id FROM t1)
		SELECT * FROM c JOIN t2 ON t2.id = c.id ORDER BY 1`
	first := analyzer.Analyze(mustParse(t, sql)).PatternSignature
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, analyzer.Analyze(mustParse(t, sql)).PatternSignature)
	}
}

func TestClausesForNode(t *testing.T) {
	tree := mustParse(t, "SELECT a FROM t WHERE x = 1")

	var whereCol int = -1
	tree.Walk(func(id int, n *sqlast.Node) bool {
		if n.Kind == sqlast.KindColumn && n.Name == "x" {
			whereCol = id
		}
		return true
	})
	require.GreaterOrEqual(t, whereCol, 0)

	clauses := analyzer.ClausesForNode(tree, whereCol)
	assert.Contains(t, clauses, analyzer.ClauseWhere)
	assert.Contains(t, clauses, analyzer.ClauseSelect)
	assert.NotContains(t, clauses, analyzer.ClauseFrom)
}
