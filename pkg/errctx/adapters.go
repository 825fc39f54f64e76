package errctx

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/sqlscope-dev/sqlscope/pkg/taxonomy"
)

// mysqlStateByNumber bridges MySQL error numbers to the nearest
// standard SQLSTATE for servers or drivers that omit the state string.
var mysqlStateByNumber = map[uint16]string{
	1048: "23502", // column cannot be null
	1052: "42702", // column in field list is ambiguous
	1054: "42703", // unknown column
	1062: "23505", // duplicate entry
	1064: "42601", // syntax error
	1146: "42P01", // table doesn't exist
	1292: "22P02", // truncated incorrect value
	1305: "42883", // function does not exist
	1365: "22012", // division by zero
	1451: "23503", // row is referenced
	1452: "23503", // referenced row not found
	3819: "23514", // check constraint violated
}

// extractDiagnostics pulls the diagnostic surface out of a driver
// error. Each supported driver is tried explicitly; anything else falls
// back to the error text, scraping a SQLSTATE out of it when present.
func extractDiagnostics(err error) (Diagnostics, string) {
	if err == nil {
		return Diagnostics{}, ""
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return Diagnostics{
			Severity:       pgErr.Severity,
			Message:        pgErr.Message,
			Detail:         pgErr.Detail,
			Hint:           pgErr.Hint,
			Position:       int(pgErr.Position),
			SchemaName:     pgErr.SchemaName,
			TableName:      pgErr.TableName,
			ColumnName:     pgErr.ColumnName,
			DataTypeName:   pgErr.DataTypeName,
			ConstraintName: pgErr.ConstraintName,
		}, pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		pos, _ := strconv.Atoi(pqErr.Position)
		return Diagnostics{
			Severity:       pqErr.Severity,
			Message:        pqErr.Message,
			Detail:         pqErr.Detail,
			Hint:           pqErr.Hint,
			Position:       pos,
			SchemaName:     pqErr.Schema,
			TableName:      pqErr.Table,
			ColumnName:     pqErr.Column,
			DataTypeName:   pqErr.DataTypeName,
			ConstraintName: pqErr.Constraint,
		}, string(pqErr.Code)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		state := strings.TrimRight(string(myErr.SQLState[:]), "\x00")
		if state == "" || state == "00000" {
			state = mysqlStateByNumber[myErr.Number]
		}
		return Diagnostics{Message: myErr.Message}, state
	}

	msg := err.Error()
	return Diagnostics{Message: msg}, taxonomy.ExtractErrorCode(msg)
}
