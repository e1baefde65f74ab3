package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://247sports.com/player/bryce-young-46038816/", "46038816"},
		{"https://247sports.com/player/bryce-young-46038816", "46038816"},
		{"https://247sports.com/player/bryce-young-46038816/high-school-209401/", "46038816"},
		{"https://247sports.com/season/2019-football/", NA},
		{"", NA},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseID(tt.url))
		})
	}
}

func TestNewIsFullyPopulated(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	a := New(2019, "https://247sports.com/player/jane-doe-123/", now)

	row := a.Row()
	require.Len(t, row, len(Headers))
	for i, cell := range row {
		assert.NotEmpty(t, cell, "column %q is empty", Headers[i])
	}

	assert.Equal(t, "123", a.ID)
	assert.Equal(t, "2019", a.Class)
	assert.Equal(t, NA, a.Name)
	assert.Equal(t, NA, a.Commitment.Date)
	assert.Equal(t, NA, a.Draft.Destination)
	assert.Equal(t, "2024-05-01 12:30:00", row[24])
	assert.Equal(t, Source, row[25])
}

func TestRowFillsZeroValues(t *testing.T) {
	var a Athlete
	for i, cell := range a.Row() {
		if Headers[i] == "Recruiting Year" {
			assert.Equal(t, "0", cell)
			continue
		}
		assert.Equal(t, NA, cell, "column %q", Headers[i])
	}
}

func TestCompleteness(t *testing.T) {
	assert.Zero(t, Completeness(nil))

	a := New(2020, "https://247sports.com/player/a-1/", time.Now())
	low := Completeness([]Athlete{a})

	a.Name = "A"
	a.Position = "QB"
	high := Completeness([]Athlete{a})

	assert.Greater(t, high, low)
	assert.LessOrEqual(t, high, 100.0)
}
