package sink

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"recruits/internal/record"
)

// Summary describes a finished run.
type Summary struct {
	Records      int
	Path         string
	Size         int64
	Completeness float64
}

// Summarize builds the summary for records written to path.
func Summarize(records []record.Athlete, path string) Summary {
	s := Summary{
		Records:      len(records),
		Path:         path,
		Completeness: record.Completeness(records),
	}
	if info, err := os.Stat(path); err == nil {
		s.Size = info.Size()
	}
	return s
}

// Render prints the summary table to w.
func (s Summary) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Summary", ""})
	t.AppendRow(table.Row{"Total records", s.Records})
	t.AppendRow(table.Row{"Output file", s.Path})
	t.AppendRow(table.Row{"File size", humanSize(s.Size)})
	t.AppendRow(table.Row{"Data completeness", fmt.Sprintf("%.1f%%", s.Completeness)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
