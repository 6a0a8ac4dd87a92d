package helpers

import (
	"database/sql"
	"time"
)

// GetContentNullString converts a string value to sql.NullString.
// An empty string is stored as NULL.
func GetContentNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// GetNullTime converts a time to sql.NullTime. The zero time is stored as NULL.
func GetNullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

// ChunkStrings splits values into slices of at most size elements, for IN filters
// that must stay under a parameter limit
func ChunkStrings(values []string, size int) [][]string {
	if size <= 0 {
		size = len(values)
	}
	var chunks [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}
