package extractor

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"recruits/internal/record"
)

// FieldRule tries to produce one value from a markup subtree.
type FieldRule interface {
	Try(s *goquery.Selection) (string, bool)
}

// RuleFunc adapts a function to FieldRule.
type RuleFunc func(s *goquery.Selection) (string, bool)

func (f RuleFunc) Try(s *goquery.Selection) (string, bool) { return f(s) }

// Text yields the normalized text of the first node matching selector.
func Text(selector string) FieldRule {
	return RuleFunc(func(s *goquery.Selection) (string, bool) {
		return nonEmpty(Normalize(s.Find(selector).First().Text()))
	})
}

// Attr yields an attribute of the first node matching selector.
func Attr(selector, name string) FieldRule {
	return RuleFunc(func(s *goquery.Selection) (string, bool) {
		v, ok := s.Find(selector).First().Attr(name)
		if !ok {
			return "", false
		}
		return nonEmpty(strings.TrimSpace(v))
	})
}

// Match applies re to every node matching selector in document order and
// yields the first capture (or whole match) of the first node that matches.
func Match(selector string, re *regexp.Regexp) FieldRule {
	return RuleFunc(func(s *goquery.Selection) (string, bool) {
		var out string
		s.Find(selector).EachWithBreak(func(_ int, n *goquery.Selection) bool {
			if v, ok := submatch(re, n.Text()); ok {
				out = v
				return false
			}
			return true
		})
		return nonEmpty(out)
	})
}

// Pattern filters the output of rule through re.
func Pattern(rule FieldRule, re *regexp.Regexp) FieldRule {
	return RuleFunc(func(s *goquery.Selection) (string, bool) {
		v, ok := rule.Try(s)
		if !ok {
			return "", false
		}
		return submatch(re, v)
	})
}

// Chain tries rules in order and stops at the first that yields a value.
// Rules after the first hit are never evaluated.
func Chain(rules ...FieldRule) FieldRule {
	return RuleFunc(func(s *goquery.Selection) (string, bool) {
		for _, r := range rules {
			if v, ok := r.Try(s); ok {
				return v, true
			}
		}
		return "", false
	})
}

// Texts is a Chain of Text rules, one per selector.
func Texts(selectors ...string) FieldRule {
	rules := make([]FieldRule, len(selectors))
	for i, sel := range selectors {
		rules[i] = Text(sel)
	}
	return Chain(rules...)
}

// Value evaluates rule against s and falls back to the NA sentinel.
func Value(s *goquery.Selection, rule FieldRule) string {
	if v, ok := rule.Try(s); ok {
		return v
	}
	return record.NA
}

// Field binds a rule to the record slot it fills.
type Field[T any] struct {
	Name string
	Rule FieldRule
	Set  func(dst *T, v string)
}

// Populate applies every field in order, writing only successful values. A
// panic inside a rule stops the pass; fields set before it are kept and the
// panic is returned as an error.
func Populate[T any](s *goquery.Selection, dst *T, fields []Field[T]) (n int, err error) {
	var current string
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("field %s: %v", current, r)
		}
	}()

	for _, f := range fields {
		current = f.Name
		if v, ok := f.Rule.Try(s); ok {
			f.Set(dst, v)
			n++
		}
	}
	return n, nil
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	rankRe       = regexp.MustCompile(`#?(\d+)`)
)

// Normalize trims text and collapses internal whitespace, newlines included,
// to single spaces.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// ParseRank returns the first run of digits in text, optionally preceded by
// '#', or NA.
func ParseRank(text string) string {
	if m := rankRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return record.NA
}

// Document parses rendered markup.
func Document(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse markup: %w", err)
	}
	return doc, nil
}

// Extract returns a view of doc by level: "html" for the body markup, "body"
// for its plain text, "css" for the outer markup of every node matching
// selector.
func Extract(doc *goquery.Document, level, selector string) (string, error) {
	switch level {
	case "html":
		return doc.Find("body").Html()
	case "body":
		return Normalize(doc.Find("body").Text()), nil
	case "css":
		if selector == "" {
			return "", fmt.Errorf("selector is required for css level")
		}
		var parts []string
		var outerErr error
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			h, err := goquery.OuterHtml(s)
			if err != nil {
				outerErr = fmt.Errorf("failed to get element HTML: %w", err)
				return false
			}
			parts = append(parts, h)
			return true
		})
		if outerErr != nil {
			return "", outerErr
		}
		return strings.Join(parts, "\n"), nil
	default:
		return "", fmt.Errorf("unsupported level: %s", level)
	}
}

func submatch(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	if len(m) > 1 {
		return nonEmpty(strings.TrimSpace(m[1]))
	}
	return nonEmpty(strings.TrimSpace(m[0]))
}

func nonEmpty(s string) (string, bool) {
	return s, s != ""
}
