// Package record defines the athlete row emitted once per profile and season.
package record

import (
	"regexp"
	"strconv"
	"time"
)

// NA is the sentinel for every field that could not be extracted.
const NA = "NA"

// Source is the fixed data source label written on every row.
const Source = "247Sports Composite"

// TimeLayout is the capture timestamp layout.
const TimeLayout = "2006-01-02 15:04:05"

// Headers is the fixed column schema of the delimited output.
var Headers = []string{
	"247 ID",
	"Player Name",
	"Position",
	"Height",
	"Weight",
	"High School",
	"City, ST",
	"Class",
	"247 Stars",
	"247 Rating",
	"247 National Rank",
	"247 Position",
	"247 Position Rank",
	"Composite Stars",
	"Composite Rating",
	"Composite National Rank",
	"Composite Position",
	"Composite Position Rank",
	"Signed Date",
	"Signed Team",
	"Draft Date",
	"Draft Team",
	"Recruiting Year",
	"Profile URL",
	"Scrape Date",
	"Data Source",
}

// Rating is one rating-source block (native or composite).
type Rating struct {
	Stars        string `json:"stars"`
	Rating       string `json:"rating"`
	NationalRank string `json:"national_rank"`
	Position     string `json:"position"`
	PositionRank string `json:"position_rank"`
}

// Event is a dated destination: a commitment or a draft selection.
type Event struct {
	Date        string `json:"date"`
	Destination string `json:"destination"`
}

// Athlete is one output row.
type Athlete struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Position   string    `json:"position"`
	Height     string    `json:"height"`
	Weight     string    `json:"weight"`
	School     string    `json:"school"`
	Hometown   string    `json:"hometown"`
	Class      string    `json:"class"`
	Native     Rating    `json:"native"`
	Composite  Rating    `json:"composite"`
	Commitment Event     `json:"commitment"`
	Draft      Event     `json:"draft"`
	Season     int       `json:"season"`
	URL        string    `json:"url"`
	ScrapedAt  time.Time `json:"scraped_at"`
	Source     string    `json:"source"`
}

// UnknownRating returns a rating block with every field set to NA.
func UnknownRating() Rating {
	return Rating{Stars: NA, Rating: NA, NationalRank: NA, Position: NA, PositionRank: NA}
}

// UnknownEvent returns an event with date and destination set to NA.
func UnknownEvent() Event {
	return Event{Date: NA, Destination: NA}
}

// New returns a record for url with every extractable field set to NA.
// Class defaults to the season being scraped.
func New(season int, url string, now time.Time) Athlete {
	return Athlete{
		ID:         ParseID(url),
		Name:       NA,
		Position:   NA,
		Height:     NA,
		Weight:     NA,
		School:     NA,
		Hometown:   NA,
		Class:      strconv.Itoa(season),
		Native:     UnknownRating(),
		Composite:  UnknownRating(),
		Commitment: UnknownEvent(),
		Draft:      UnknownEvent(),
		Season:     season,
		URL:        url,
		ScrapedAt:  now,
		Source:     Source,
	}
}

var playerIDRe = regexp.MustCompile(`/player/[^/]+-(\d+)(?:/|$)`)

// ParseID extracts the numeric player id from a profile URL, or NA.
func ParseID(url string) string {
	if m := playerIDRe.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return NA
}

// Row renders the record in Headers order.
func (a Athlete) Row() []string {
	return []string{
		orNA(a.ID),
		orNA(a.Name),
		orNA(a.Position),
		orNA(a.Height),
		orNA(a.Weight),
		orNA(a.School),
		orNA(a.Hometown),
		orNA(a.Class),
		orNA(a.Native.Stars),
		orNA(a.Native.Rating),
		orNA(a.Native.NationalRank),
		orNA(a.Native.Position),
		orNA(a.Native.PositionRank),
		orNA(a.Composite.Stars),
		orNA(a.Composite.Rating),
		orNA(a.Composite.NationalRank),
		orNA(a.Composite.Position),
		orNA(a.Composite.PositionRank),
		orNA(a.Commitment.Date),
		orNA(a.Commitment.Destination),
		orNA(a.Draft.Date),
		orNA(a.Draft.Destination),
		strconv.Itoa(a.Season),
		orNA(a.URL),
		a.scrapedAt(),
		orNA(a.Source),
	}
}

func (a Athlete) scrapedAt() string {
	if a.ScrapedAt.IsZero() {
		return NA
	}
	return a.ScrapedAt.Format(TimeLayout)
}

func orNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}

// Completeness returns the share of non-NA cells across all rows, in percent.
func Completeness(records []Athlete) float64 {
	if len(records) == 0 {
		return 0
	}
	total, filled := 0, 0
	for _, r := range records {
		for _, cell := range r.Row() {
			total++
			if cell != NA {
				filled++
			}
		}
	}
	return float64(filled) / float64(total) * 100
}
