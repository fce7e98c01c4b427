package store

// Conversion helpers between Go zero-value semantics ("" / 0 = unset)
// and nullable PostgreSQL columns. All toPg* functions return pgtype
// values with Valid=false for unset input so the database stores NULL.

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgInt4(i int) pgtype.Int4 {
	if i == 0 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(i), Valid: true}
}

func toPgInt8(i int64) pgtype.Int8 {
	if i == 0 {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: i, Valid: true}
}
