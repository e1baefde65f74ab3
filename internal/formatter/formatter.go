// Package formatter renders scraped content in the text output formats.
package formatter

import (
	"errors"
	"fmt"

	"recruits/internal/scraper"
)

var extensions = map[string]string{
	"html":     "html",
	"text":     "txt",
	"markdown": "md",
	"csv":      "csv",
	"json":     "json",
	"sqlite":   "db",
}

// Extension returns the file extension written for format.
func Extension(format string) string {
	if ext, ok := extensions[format]; ok {
		return ext
	}
	return format
}

// ErrNotText is returned for formats written by a sink rather than rendered.
var ErrNotText = errors.New("format is not a text format")

// Format renders content as format. sqlite is stored, not rendered.
func Format(content scraper.Content, format string) (string, error) {
	switch format {
	case "html":
		return content.ToHTML()
	case "text":
		return content.ToText()
	case "markdown":
		return content.ToMarkdown()
	case "csv":
		return content.ToCSV()
	case "json":
		b, err := content.ToJSON()
		if err != nil {
			return "", err
		}
		return string(b) + "\n", nil
	case "sqlite":
		return "", fmt.Errorf("%w: %s", ErrNotText, format)
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}
