package sports247

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruits/internal/extractor"
	"recruits/internal/fetcher/fetchertest"
	"recruits/internal/metrics"
	"recruits/internal/record"
	"recruits/internal/timeline"

	dto "github.com/prometheus/client_model/go"
)

const (
	playerURL  = base + "/player/jane-doe-46038816/"
	profileURL = base + "/player/jane-doe-46038816/high-school-99/"
	historyURL = base + "/player/jane-doe-46038816/timelineevents/"
)

const ratingsMarkup = `
<section class="rankings-section">
  <h3>247Sports Composite</h3>
  <div class="stars">
    <span class="icon-starsolid yellow"></span><span class="icon-starsolid yellow"></span>
    <span class="icon-starsolid yellow"></span><span class="icon-starsolid yellow"></span>
    <span class="icon-starsolid"></span>
  </div>
  <div class="rank-block">0.9812</div>
  <ul>
    <li><b>Natl.</b> <a href="/Season/2019-Football/CompositeRecruitRankings/"><strong>#12</strong></a></li>
    <li><a href="/Season/2019-Football/CompositeRecruitRankings/?Position=QB"><b>QB</b> <strong>3</strong></a></li>
    <li><a href="/Season/2019-Football/CompositeRecruitRankings/?State=TX"><b>TX</b> <strong>2</strong></a></li>
  </ul>
</section>
<section class="rankings-section">
  <h3>247Sports</h3>
  <span class="icon-starsolid yellow"></span><span class="icon-starsolid yellow"></span>
  <span class="icon-starsolid yellow"></span><span class="icon-starsolid yellow"></span>
  <span class="icon-starsolid yellow"></span>
  <div class="rating">98</div>
  <ul>
    <li><b>National</b> <strong>20</strong></li>
    <li><b>Position</b> <strong>: ATH</strong></li>
    <li><b>Position</b> <strong>#4</strong></li>
  </ul>
</section>
<section class="rankings-section">
  <h3>247Sports Composite</h3>
  <span class="icon-starsolid yellow"></span>
  <div class="rank-block">0.7000</div>
</section>`

func profileMarkup(timelineItems, extra string) string {
	return `<html><body>
<div class="profile-header">
  <h1 class="name">Jane  Doe</h1>
  <span class="position">QB</span>
  <ul class="metrics"><li class="vitals">6'2" / 215 lbs</li></ul>
  <span class="highschool">Westlake (Austin, TX)</span>
  <span class="location">Austin, TX</span>
  <span class="class">Class of 2019</span>
</div>` + ratingsMarkup + `
<ul class="timeline">` + timelineItems + `</ul>` + extra + `
</body></html>`
}

func TestParseProfile(t *testing.T) {
	doc, err := extractor.Document(profileMarkup("", ""))
	require.NoError(t, err)

	a := record.New(2019, playerURL, time.Time{})
	require.NoError(t, ParseProfile(doc, &a))

	assert.Equal(t, "46038816", a.ID)
	assert.Equal(t, "Jane Doe", a.Name)
	assert.Equal(t, "QB", a.Position)
	assert.Equal(t, "6'2", a.Height)
	assert.Equal(t, "215", a.Weight)
	assert.Equal(t, "Westlake (Austin, TX)", a.School)
	assert.Equal(t, "Austin, TX", a.Hometown)
	assert.Equal(t, "2019", a.Class)

	want := record.Rating{Stars: "4", Rating: "0.9812", NationalRank: "12", Position: "QB", PositionRank: "3"}
	if diff := cmp.Diff(want, a.Composite); diff != "" {
		t.Errorf("composite mismatch (-want +got):\n%s", diff)
	}
	want = record.Rating{Stars: "5", Rating: "98", NationalRank: "20", Position: "ATH", PositionRank: "4"}
	if diff := cmp.Diff(want, a.Native); diff != "" {
		t.Errorf("native mismatch (-want +got):\n%s", diff)
	}
}

func TestParseProfileMissingFieldsStayNA(t *testing.T) {
	doc, err := extractor.Document(`<html><body><h1 class="name">Only Name</h1></body></html>`)
	require.NoError(t, err)

	a := record.New(2020, playerURL, time.Time{})
	require.NoError(t, ParseProfile(doc, &a))

	assert.Equal(t, "Only Name", a.Name)
	assert.Equal(t, record.NA, a.Height)
	assert.Equal(t, "2020", a.Class)
	assert.Equal(t, record.UnknownRating(), a.Composite)
	assert.Equal(t, record.UnknownRating(), a.Native)
}

func TestParseRatingsClampsStarsAndSkipsOtherSources(t *testing.T) {
	doc, err := extractor.Document(`<html><body>
<section class="rankings-section">
  <h3>Rivals</h3>
  <span class="icon-starsolid yellow"></span><span class="icon-starsolid yellow"></span>
  <span class="icon-starsolid yellow"></span>
  <div class="rating">5.9</div>
  <ul><li><b>Natl.</b> <a href="/rivals/rankings/"><strong>#301</strong></a></li></ul>
</section>
<section class="rankings-section">
  <h3>247Sports Composite</h3>
  ` + strings.Repeat(`<span class="icon-starsolid yellow"></span>`, 7) + `
  <div class="rank-block">0.9990</div>
</section>
</body></html>`)
	require.NoError(t, err)

	a := record.New(2019, playerURL, time.Time{})
	ParseRatings(doc.Selection, &a)

	want := record.UnknownRating()
	want.Stars = "5"
	want.Rating = "0.9990"
	if diff := cmp.Diff(want, a.Composite); diff != "" {
		t.Errorf("composite mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, record.UnknownRating(), a.Native)
}

func TestBannerDestination(t *testing.T) {
	doc, err := extractor.Document(`<div class="commit-banner"><span>Committed</span><a href="/college/ohio-state/">Ohio State</a></div>`)
	require.NoError(t, err)
	dest, ok := BannerDestination(doc.Selection)
	assert.True(t, ok)
	assert.Equal(t, "Ohio State", dest)

	doc, err = extractor.Document(`<div class="commit-banner"><span>Committed</span></div>`)
	require.NoError(t, err)
	_, ok = BannerDestination(doc.Selection)
	assert.False(t, ok)
}

func newProfileScraper(rec *metrics.Recorder) *ProfileScraper {
	s := NewProfileScraper(ProfileOptions{BaseURL: base, MaxTimelinePages: 5}, timeline.DefaultPolicy(), nil, nil, rec)
	s.now = func() time.Time { return time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC) }
	return s
}

func playerPage() string {
	return `<html><body><a href="/player/jane-doe-46038816/high-school-99/">View Recruiting Profile</a></body></html>`
}

func TestScrapeFollowsProfileAndPagesHistory(t *testing.T) {
	abbreviated := `<li class="timeline-item">Jane Doe signed with Texas on 12/19/2018</li>`
	seeAll := `<a class="see-all" href="/player/jane-doe-46038816/timelineevents/">See All</a>`
	site := fetchertest.NewSite().
		Handle(playerURL, playerPage()).
		Handle(profileURL, profileMarkup(abbreviated, seeAll)).
		Handle(historyURL, `<html><body><ul class="timeline-list">
<li>Jane Doe enrolls at Texas on 01/10/2019</li>
<li>Jane Doe drafted by the Dallas Cowboys on 04/25/2023 in Round 1</li>
</ul><a class="next" href="/player/jane-doe-46038816/timelineevents/?page=2">Next</a></body></html>`).
		Handle(historyURL+"?page=2", `<html><body><ul class="timeline-list">
<li>Jane Doe commits to Texas on 06/01/2018</li>
<li>Jane Doe commits to Baylor on 03/03/2020</li>
</ul><a class="next disabled" href="#">Next</a></body></html>`)
	rec := metrics.New()

	a, err := newProfileScraper(rec).Scrape(context.Background(), site, 2019, playerURL)
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", a.Name)
	assert.Equal(t, record.Event{Date: "06/01/2018", Destination: "Texas"}, a.Commitment)
	assert.Equal(t, record.Event{Date: "04/25/2023", Destination: "Dallas Cowboys"}, a.Draft)
	assert.Equal(t, 1, site.Opened())
	assert.Equal(t, 1, site.Closed())
	assert.Equal(t, 2.0, counter(t, rec, "recruits_timeline_pages_total"))
	assert.Equal(t, 1.0, counter(t, rec, "recruits_timeline_fragments_total", "outcome", "draft_applied"))
}

// counter sums the samples of a gathered counter, optionally filtered by one
// label pair.
func counter(t *testing.T, rec *metrics.Recorder, name string, label ...string) float64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	var sum float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if len(label) == 2 && !hasLabel(m.GetLabel(), label[0], label[1]) {
				continue
			}
			sum += m.GetCounter().GetValue()
		}
	}
	return sum
}

func hasLabel(pairs []*dto.LabelPair, name, value string) bool {
	for _, p := range pairs {
		if p.GetName() == name && p.GetValue() == value {
			return true
		}
	}
	return false
}

func TestScrapeHistoryFailureKeepsAbbreviatedState(t *testing.T) {
	abbreviated := `<li class="timeline-item">Jane Doe commits to Texas on 06/01/2018</li>`
	seeAll := `<a class="see-all" href="/player/jane-doe-46038816/timelineevents/">See All</a>`
	site := fetchertest.NewSite().
		Handle(playerURL, profileMarkup(abbreviated, seeAll)).
		Fail(historyURL, errors.New("timeout"))

	a, err := newProfileScraper(nil).Scrape(context.Background(), site, 2019, playerURL)
	require.NoError(t, err)
	assert.Equal(t, record.Event{Date: "06/01/2018", Destination: "Texas"}, a.Commitment)
	assert.Equal(t, record.UnknownEvent(), a.Draft)
}

func TestScrapeBannerFallback(t *testing.T) {
	banner := `<div class="commit-banner"><span>Committed</span><a href="/college/ohio-state/">Ohio State</a></div>`
	site := fetchertest.NewSite().Handle(playerURL, profileMarkup("", banner))

	a, err := newProfileScraper(nil).Scrape(context.Background(), site, 2019, playerURL)
	require.NoError(t, err)
	assert.Equal(t, record.Event{Date: record.NA, Destination: "Ohio State"}, a.Commitment)
}

func TestScrapeNavigationFailure(t *testing.T) {
	site := fetchertest.NewSite().Fail(playerURL, errors.New("net::ERR_CONNECTION_RESET"))

	a, err := newProfileScraper(nil).Scrape(context.Background(), site, 2019, playerURL)
	require.Error(t, err)
	assert.Equal(t, "46038816", a.ID)
	assert.Equal(t, record.NA, a.Name)
	assert.Equal(t, 1, site.Closed())
}
