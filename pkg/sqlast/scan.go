package sqlast

import (
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// IdentifierCandidates holds identifiers recovered from the raw token
// stream. The scanner tolerates input the full grammar rejects, so this is
// the fallback signal for schema checks on broken SQL: table candidates are
// bare identifiers directly after FROM, JOIN, or INTO; column candidates
// are double-quoted identifiers outside table positions (quoted tokens in
// PostgreSQL are always object names, keeping false positives near zero).
type IdentifierCandidates struct {
	Tables  []string
	Columns []string
}

// ScanIdentifiers tokenizes sql with the PostgreSQL lexer and extracts
// identifier candidates positionally. Lexical failures return an empty
// candidate set rather than an error.
func ScanIdentifiers(sql string) IdentifierCandidates {
	var out IdentifierCandidates
	res, err := pg_query.Scan(sql)
	if err != nil {
		return out
	}

	toks := res.Tokens
	tablePositions := make(map[int]struct{})

	for i, tok := range toks {
		switch tok.Token {
		case pg_query.Token_FROM, pg_query.Token_JOIN, pg_query.Token_INTO:
		default:
			continue
		}
		j := i + 1
		for j < len(toks) && toks[j].Token == pg_query.Token_ASCII_40 {
			j++
		}
		if j < len(toks) && toks[j].Token == pg_query.Token_IDENT {
			out.Tables = append(out.Tables, tokenText(sql, toks[j]))
			tablePositions[j] = struct{}{}
		}
	}

	for idx, tok := range toks {
		if tok.Token != pg_query.Token_IDENT {
			continue
		}
		if _, isTable := tablePositions[idx]; isTable {
			continue
		}
		raw := rawTokenText(sql, tok)
		if strings.HasPrefix(raw, `"`) {
			out.Columns = append(out.Columns, strings.Trim(raw, `"`))
		}
	}

	return out
}

func rawTokenText(sql string, tok *pg_query.ScanToken) string {
	start, end := int(tok.Start), int(tok.End)
	if start < 0 || end > len(sql) || start >= end {
		return ""
	}
	return sql[start:end]
}

func tokenText(sql string, tok *pg_query.ScanToken) string {
	return strings.Trim(rawTokenText(sql, tok), `"`)
}
