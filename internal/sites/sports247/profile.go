package sports247

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"recruits/internal/extractor"
	"recruits/internal/record"
)

var (
	heightRe   = regexp.MustCompile(`(\d+['"].*?\d+)`)
	weightRe   = regexp.MustCompile(`(?i)(\d+)\s*(?:lbs|pounds)`)
	classRe    = regexp.MustCompile(`20\d\d`)
	ratingRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	posLabelRe = regexp.MustCompile(`:\s*([A-Z]+)`)
	upperRe    = regexp.MustCompile(`^[A-Z]{1,4}$`)
)

const (
	sectionSelector = "section.rankings-section, div.ranking-section"
	headingSelector = "h3, h2, div.title"
	starSelector    = "span.icon-starsolid.yellow, i.icon-starsolid.yellow"
	rankLabel       = "b, strong, .label"
	rankValue       = "strong, .value, a"

	abbreviatedTimeline = ".timeline, .commitment-timeline, .recruiting-timeline"
	timelineItem        = ".timeline-item, li"
	commitBanner        = ".commit-banner, .commitment"
)

const maxStars = 5

var ratingRule = extractor.Pattern(extractor.Texts(".score", ".rating", ".rank-block"), ratingRe)

// profileFields are the header fields of a recruiting profile.
var profileFields = []extractor.Field[record.Athlete]{
	{
		Name: "name",
		Rule: extractor.Texts("h1.name", "div.name h1", ".profile-header h1"),
		Set:  func(a *record.Athlete, v string) { a.Name = v },
	},
	{
		Name: "position",
		Rule: extractor.Texts(".position", "div.position", ".metrics .pos"),
		Set:  func(a *record.Athlete, v string) { a.Position = v },
	},
	{
		Name: "height",
		Rule: extractor.Match("li.vitals", heightRe),
		Set:  func(a *record.Athlete, v string) { a.Height = v },
	},
	{
		Name: "weight",
		Rule: extractor.Match("li.vitals", weightRe),
		Set:  func(a *record.Athlete, v string) { a.Weight = v },
	},
	{
		Name: "school",
		Rule: extractor.Texts(".highschool", ".school-name"),
		Set:  func(a *record.Athlete, v string) { a.School = v },
	},
	{
		Name: "hometown",
		Rule: extractor.Texts(".location", ".hometown"),
		Set:  func(a *record.Athlete, v string) { a.Hometown = v },
	},
	{
		Name: "class",
		Rule: extractor.Pattern(extractor.Texts(".class", ".recruit-year"), classRe),
		Set:  func(a *record.Athlete, v string) { a.Class = v },
	},
}

// ParseProfile fills a's header fields and rating blocks from a rendered
// recruiting profile. Fields populated before a failure are kept; the failure
// is returned.
func ParseProfile(doc *goquery.Document, a *record.Athlete) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("profile %s: %v", a.ID, r)
		}
	}()

	if _, err := extractor.Populate(doc.Selection, a, profileFields); err != nil {
		return err
	}
	ParseRatings(doc.Selection, a)
	return nil
}

// ParseRatings fills the native and composite blocks. The first section of
// each kind wins; sections whose heading names neither are skipped.
func ParseRatings(s *goquery.Selection, a *record.Athlete) {
	var native, composite bool
	s.Find(sectionSelector).Each(func(_ int, sec *goquery.Selection) {
		title := strings.ToLower(extractor.Normalize(sec.Find(headingSelector).First().Text()))
		switch {
		case title == "":
			return
		case strings.Contains(title, "composite"):
			if composite {
				return
			}
			composite = true
			parseRatingBlock(sec, &a.Composite)
		case strings.Contains(title, "247sports"):
			if native {
				return
			}
			native = true
			parseRatingBlock(sec, &a.Native)
		}
	})
}

func parseRatingBlock(sec *goquery.Selection, r *record.Rating) {
	if n := sec.Find(starSelector).Length(); n > 0 {
		r.Stars = strconv.Itoa(min(n, maxStars))
	}

	r.Rating = extractor.Value(sec, ratingRule)

	sec.Find("li").Each(func(_ int, item *goquery.Selection) {
		parseRankItem(item, r)
	})
}

// parseRankItem reads one entry of a block's rank list. The label decides
// when it names the rank; otherwise the link target breaks the tie: a
// position filter is a position rank, a state filter is ignored and anything
// else is the national rank.
func parseRankItem(item *goquery.Selection, r *record.Rating) {
	labelSel := item.Find(rankLabel).First()
	valueSel := item.Find(rankValue).Last()
	if labelSel.Length() == 0 || valueSel.Length() == 0 {
		return
	}

	label := extractor.Normalize(labelSel.Text())
	value := extractor.Normalize(valueSel.Text())
	lower := strings.ToLower(label)
	href, _ := item.Find("a").First().Attr("href")

	switch {
	case strings.Contains(lower, "national") || strings.Contains(lower, "natl"):
		setOnce(&r.NationalRank, extractor.ParseRank(value))

	case strings.Contains(lower, "position") && strings.Contains(value, ":"):
		if m := posLabelRe.FindStringSubmatch(value); m != nil {
			setOnce(&r.Position, m[1])
		}

	case strings.Contains(lower, "position") && strings.Contains(value, "#"):
		if !isStateLink(href) {
			setOnce(&r.PositionRank, extractor.ParseRank(value))
		}

	case isPositionLink(href):
		setOnce(&r.PositionRank, extractor.ParseRank(value))
		if upperRe.MatchString(label) {
			setOnce(&r.Position, label)
		}

	case isStateLink(href):
		// state ranks have no column

	case href != "":
		setOnce(&r.NationalRank, extractor.ParseRank(value))
	}
}

func isPositionLink(href string) bool {
	return strings.Contains(href, "Position=") || strings.Contains(href, "positionKey=")
}

func isStateLink(href string) bool {
	return strings.Contains(href, "State=") && !isPositionLink(href)
}

func setOnce(dst *string, v string) {
	if v == "" || v == record.NA {
		return
	}
	if *dst == "" || *dst == record.NA {
		*dst = v
	}
}

// TimelineTexts returns the normalized fragment texts of the abbreviated
// timeline embedded in a profile.
func TimelineTexts(s *goquery.Selection) []string {
	section := s.Find(abbreviatedTimeline).First()
	if section.Length() == 0 {
		return nil
	}
	var texts []string
	section.Find(timelineItem).Each(func(_ int, item *goquery.Selection) {
		if t := extractor.Normalize(item.Text()); t != "" {
			texts = append(texts, t)
		}
	})
	return texts
}

// BannerDestination reads the commitment banner, ignoring its bare
// "Committed" caption.
func BannerDestination(s *goquery.Selection) (string, bool) {
	banner := s.Find(commitBanner).First()
	if banner.Length() == 0 {
		return "", false
	}
	var dest string
	banner.Find("span, a").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		t := extractor.Normalize(el.Text())
		switch strings.ToLower(t) {
		case "", "committed", "commitment":
			return true
		}
		dest = t
		return false
	})
	return dest, dest != ""
}
