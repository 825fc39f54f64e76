// Package schema defines the table/column catalog the validator resolves
// identifiers against, plus a loader for per-database JSON schema files.
package schema

import "strings"

// Map is a catalog: table name to column name to type-name string.
// Lookup is case-insensitive; the map keys keep their original casing.
type Map map[string]map[string]string

// normalized is a lowercase view of a Map used for resolution. Values map
// lowercase column names back to the original column name.
type normalized map[string]map[string]string

func (m Map) normalize() normalized {
	out := make(normalized, len(m))
	for table, cols := range m {
		lower := make(map[string]string, len(cols))
		for col := range cols {
			lower[strings.ToLower(col)] = col
		}
		out[strings.ToLower(table)] = lower
	}
	return out
}

// HasTable reports whether the catalog contains the table, ignoring case.
func (m Map) HasTable(table string) bool {
	_, ok := m.normalize()[strings.ToLower(table)]
	return ok
}

// HasColumn reports whether table.column exists in the catalog, ignoring
// case on both names.
func (m Map) HasColumn(table, column string) bool {
	cols, ok := m.normalize()[strings.ToLower(table)]
	if !ok {
		return false
	}
	_, ok = cols[strings.ToLower(column)]
	return ok
}
