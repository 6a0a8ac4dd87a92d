package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateOffsetLimit(t *testing.T) {
	offset, limit := CalculateOffsetLimit(3, 20)
	assert.Equal(t, 40, offset)
	assert.Equal(t, 20, limit)

	offset, limit = CalculateOffsetLimit(0, 1000)
	assert.Equal(t, 0, offset)
	assert.Equal(t, DefaultPageSize, limit)
}

func TestNewPaginationInfo(t *testing.T) {
	info := NewPaginationInfo(25, 2, 10)
	assert.Equal(t, 3, info.TotalPages)
	assert.Equal(t, 2, info.CurrentPage)

	empty := NewPaginationInfo(0, 1, 10)
	assert.Equal(t, 1, empty.TotalPages)

	clamped := NewPaginationInfo(5, 9, 10)
	assert.Equal(t, 1, clamped.CurrentPage)
}

func TestChunkStrings(t *testing.T) {
	values := []string{"a", "b", "c", "d", "e"}
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, ChunkStrings(values, 2))
	assert.Equal(t, [][]string{{"a", "b", "c", "d", "e"}}, ChunkStrings(values, 0))
	assert.Nil(t, ChunkStrings(nil, 3))
}

func TestDates(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	assert.NoError(t, err)
	assert.Equal(t, time.February, d.Month())

	_, err = ParseDate("29/02/2024")
	assert.Error(t, err)

	assert.Equal(t, time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC), AddMonths(time.Date(2024, 2, 15, 13, 4, 0, 0, time.UTC), 6))
	assert.True(t, GetNullTime(time.Time{}).Valid == false)
	assert.Equal(t, 5*time.Second, ParseDuration("bogus", 5*time.Second))
}
