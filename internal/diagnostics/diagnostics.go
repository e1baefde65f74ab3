// Package diagnostics persists markup and screenshots of pages that failed to
// scrape. Nothing here is read back by the scraper.
package diagnostics

import (
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"recruits/internal/extractor"
)

const stampLayout = "20060102_150405"

// Writer saves diagnostic artifacts under <root>/diagnostics/<run id>/.
// A nil or disabled Writer drops everything.
type Writer struct {
	dir     string
	enabled bool
	logger  *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	made bool
}

// New returns a Writer rooted at outputDir for runID.
func New(outputDir, runID string, enabled bool, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{
		dir:     filepath.Join(outputDir, "diagnostics", runID),
		enabled: enabled,
		logger:  logger,
		now:     time.Now,
	}
}

// Dir returns the run's diagnostics directory.
func (w *Writer) Dir() string { return w.dir }

// Enabled reports whether artifacts are written.
func (w *Writer) Enabled() bool { return w != nil && w.enabled }

// SavePage writes the raw markup and a markdown rendering of it, keyed by
// the athlete or season identifier. It returns the markup path.
func (w *Writer) SavePage(key, markup string) (string, error) {
	if !w.Enabled() {
		return "", nil
	}
	base, err := w.base("error", key)
	if err != nil {
		return "", err
	}

	htmlPath := base + ".html"
	if err := os.WriteFile(htmlPath, []byte(markup), 0644); err != nil {
		return "", fmt.Errorf("failed to write diagnostic markup: %w", err)
	}

	if text, err := Markdown(markup); err != nil {
		w.logger.Debug("Markdown rendering failed", zap.String("key", key), zap.Error(err))
	} else if err := os.WriteFile(base+".md", []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write diagnostic markdown: %w", err)
	}

	w.logger.Info("Saved diagnostic markup", zap.String("path", htmlPath))
	return htmlPath, nil
}

// SaveScreenshot writes a PNG capture keyed by key.
func (w *Writer) SaveScreenshot(key string, png []byte) (string, error) {
	if !w.Enabled() || len(png) == 0 {
		return "", nil
	}
	base, err := w.base("screenshot", key)
	if err != nil {
		return "", err
	}
	path := base + ".png"
	if err := os.WriteFile(path, png, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	w.logger.Info("Saved diagnostic screenshot", zap.String("path", path))
	return path, nil
}

var unsafeRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (w *Writer) base(kind, key string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.made {
		if err := os.MkdirAll(w.dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create diagnostics dir: %w", err)
		}
		w.made = true
	}
	key = unsafeRe.ReplaceAllString(key, "_")
	if key == "" {
		key = "unknown"
	}
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s_%s", kind, key, w.now().Format(stampLayout))), nil
}

// Markdown converts the body of page markup to markdown, rendering tables as
// pipe tables.
func Markdown(markup string) (string, error) {
	doc, err := extractor.Document(markup)
	if err != nil {
		return "", err
	}
	body, err := extractor.Extract(doc, "html", "")
	if err != nil {
		return "", fmt.Errorf("failed to extract body: %w", err)
	}
	converter := md.NewConverter("", true, nil)
	out, err := converter.ConvertString(convertTablesInHTML(body))
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to Markdown: %w", err)
	}
	return out, nil
}

var tableRe = regexp.MustCompile(`(?is)<table\b[^>]*>.*?</table>`)

func convertTablesInHTML(markup string) string {
	return tableRe.ReplaceAllStringFunc(markup, tableToMarkdown)
}

// tableToMarkdown renders one <table> as a pipe table wrapped in <pre> so
// the converter leaves it alone.
func tableToMarkdown(tableHTML string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(tableHTML))
	if err != nil {
		return tableHTML
	}

	var b strings.Builder
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		headerRow := table.Find("thead tr").First()
		rows := table.Find("tbody tr")
		if headerRow.Length() == 0 {
			headerRow = table.Find("tr").First()
			rows = table.Find("tr").Slice(1, goquery.ToEnd)
		}
		headers := cells(headerRow)
		if len(headers) == 0 {
			return
		}

		writeRow(&b, headers)
		sep := make([]string, len(headers))
		for i := range sep {
			sep[i] = "---"
		}
		writeRow(&b, sep)

		rows.Each(func(_ int, row *goquery.Selection) {
			if c := cells(row); len(c) > 0 {
				writeRow(&b, c)
			}
		})
		b.WriteString("\n")
	})

	if b.Len() == 0 {
		return tableHTML
	}
	return "<pre>" + html.EscapeString(b.String()) + "</pre>"
}

func cells(row *goquery.Selection) []string {
	var out []string
	row.Find("th, td").Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}

func writeRow(b *strings.Builder, cells []string) {
	b.WriteString("| ")
	b.WriteString(strings.Join(cells, " | "))
	b.WriteString(" |\n")
}
