package utils

import "database/sql"

// ToSQLStr wraps s, empty string maps to NULL
func ToSQLStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FromSQLStr unwraps a nullable string, NULL maps to empty
func FromSQLStr(v sql.NullString) string {
	if v.Valid {
		return v.String
	}
	return ""
}
