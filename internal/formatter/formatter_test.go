package formatter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruits/internal/record"
	"recruits/internal/sites/sports247"
)

func TestFormat(t *testing.T) {
	a := record.New(2019, "https://247sports.com/player/jane-doe-46038816/", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	a.Name = "Jane Doe"
	content := sports247.NewContent([]record.Athlete{a}, []int{2019})

	tests := []struct {
		format string
		want   string
	}{
		{"csv", "247 ID,Player Name"},
		{"json", `"name": "Jane Doe"`},
		{"markdown", "| Jane Doe |"},
		{"html", "<table"},
		{"text", "Jane Doe"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := Format(content, tt.format)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}

	_, err := Format(content, "xml")
	assert.Error(t, err)
	_, err = Format(content, "sqlite")
	assert.ErrorIs(t, err, ErrNotText)
}

func TestExtension(t *testing.T) {
	assert.Equal(t, "md", Extension("markdown"))
	assert.Equal(t, "txt", Extension("text"))
	assert.Equal(t, "db", Extension("sqlite"))
	assert.Equal(t, "csv", Extension("csv"))
}
