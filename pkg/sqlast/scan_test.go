package sqlast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sqlscope-dev/sqlscope/pkg/sqlast"
)

func TestScanIdentifiers_Tables(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "from and join",
			sql:  "SELECT * FROM accounts JOIN transactions ON 1=1",
			want: []string{"accounts", "transactions"},
		},
		{
			name: "insert into",
			sql:  "INSERT INTO audit_log VALUES (1)",
			want: []string{"audit_log"},
		},
		{
			name: "broken statement still yields candidates",
			sql:  "SELECT name, FROM users WHERE",
			want: []string{"users"},
		},
		{
			name: "keyword after from is not a candidate",
			sql:  "SELECT * FROM WHERE x = 1",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sqlast.ScanIdentifiers(tt.sql)
			assert.Equal(t, tt.want, got.Tables)
		})
	}
}

func TestScanIdentifiers_QuotedColumns(t *testing.T) {
	got := sqlast.ScanIdentifiers(`SELECT "FirstName", age FROM people WHERE "LastName" = 'x'`)
	assert.Equal(t, []string{"people"}, got.Tables)
	assert.Equal(t, []string{"FirstName", "LastName"}, got.Columns)
}

func TestScanIdentifiers_QuotedTableNotDoubleCounted(t *testing.T) {
	got := sqlast.ScanIdentifiers(`SELECT 1 FROM "Orders"`)
	assert.Equal(t, []string{"Orders"}, got.Tables)
	assert.Empty(t, got.Columns)
}
