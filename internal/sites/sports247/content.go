package sports247

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"recruits/internal/record"
)

// tableColumns is the subset of columns shown by the table renderings.
var tableColumns = []string{"ID", "Name", "Pos", "Class", "Stars", "Rating", "Natl", "Pos Rk", "Committed", "Team", "Drafted"}

// Content holds one run's records.
type Content struct {
	records []record.Athlete
	seasons []int
}

// NewContent creates a Content for the given seasons.
func NewContent(records []record.Athlete, seasons []int) *Content {
	return &Content{records: records, seasons: seasons}
}

func (c *Content) Records() []record.Athlete {
	return c.records
}

func (c *Content) title() string {
	parts := make([]string, len(c.seasons))
	for i, s := range c.seasons {
		parts[i] = fmt.Sprint(s)
	}
	return "Recruiting class " + strings.Join(parts, ", ")
}

func (c *Content) table() table.Writer {
	t := table.NewWriter()
	header := make(table.Row, len(tableColumns))
	for i, h := range tableColumns {
		header[i] = h
	}
	t.AppendHeader(header)
	for _, a := range c.records {
		t.AppendRow(table.Row{
			a.ID, a.Name, a.Position, a.Class,
			a.Composite.Stars, a.Composite.Rating, a.Composite.NationalRank, a.Composite.PositionRank,
			a.Commitment.Date, a.Commitment.Destination, a.Draft.Destination,
		})
	}
	return t
}

// ToMarkdown returns a markdown table of the records.
func (c *Content) ToMarkdown() (string, error) {
	var sb strings.Builder
	sb.WriteString("# " + c.title() + "\n\n")
	sb.WriteString(fmt.Sprintf("Total %d records\n\n", len(c.records)))
	sb.WriteString(c.table().RenderMarkdown())
	sb.WriteString("\n")
	return sb.String(), nil
}

// ToText returns a boxed plain-text table.
func (c *Content) ToText() (string, error) {
	t := c.table()
	t.SetTitle(c.title())
	t.SetStyle(table.StyleRounded)
	return t.Render() + "\n", nil
}

// ToHTML returns an HTML table.
func (c *Content) ToHTML() (string, error) {
	return "<h1>" + c.title() + "</h1>\n" + c.table().RenderHTML() + "\n", nil
}

// ToJSON returns the records as a JSON array.
func (c *Content) ToJSON() ([]byte, error) {
	records := c.records
	if records == nil {
		records = []record.Athlete{}
	}
	return json.MarshalIndent(records, "", "  ")
}

// ToCSV returns every column of every record under the fixed header row.
func (c *Content) ToCSV() (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(record.Headers); err != nil {
		return "", err
	}
	for _, a := range c.records {
		if err := w.Write(a.Row()); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
