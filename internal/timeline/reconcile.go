package timeline

import (
	"regexp"
	"strings"
	"time"

	"recruits/internal/record"
)

// Fragment is one parsed timeline entry.
type Fragment struct {
	Text        string
	Kind        Kind
	At          time.Time
	Date        string
	Destination string
}

// HasDate reports whether a date was found in the fragment.
func (f Fragment) HasDate() bool { return f.Date != "" }

// Outcome records what Apply did with a fragment.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeDraftApplied
	OutcomeUnclassified
	OutcomeNoDate
	OutcomeOutOfWindow
	OutcomeOutranked
	OutcomeDraftTaken
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeDraftApplied:
		return "draft_applied"
	case OutcomeUnclassified:
		return "unclassified"
	case OutcomeNoDate:
		return "no_date"
	case OutcomeOutOfWindow:
		return "out_of_window"
	case OutcomeOutranked:
		return "outranked"
	case OutcomeDraftTaken:
		return "draft_taken"
	default:
		return "unknown"
	}
}

// Timeline is the reconciled state for one athlete. The owner kind is
// bookkeeping only and never reaches the output record.
type Timeline struct {
	Commitment record.Event
	Draft      record.Event

	owner    Kind
	draftSet bool
}

// New returns an empty timeline with both slots unknown.
func New() Timeline {
	return Timeline{
		Commitment: record.UnknownEvent(),
		Draft:      record.UnknownEvent(),
	}
}

// Owner returns the kind that currently owns the commitment slot.
func (t Timeline) Owner() Kind { return t.owner }

// HasDraft reports whether the draft slot has been filled.
func (t Timeline) HasDraft() bool { return t.draftSet }

// ApplyTo copies the resolved slots onto a record.
func (t Timeline) ApplyTo(a *record.Athlete) {
	a.Commitment = t.Commitment
	a.Draft = t.Draft
}

var (
	destinationRe = regexp.MustCompile(`\b(?i:commits\s+to|committed\s+to|commitment\s+to|signs\s+with|signed\s+with|enrolls\s+at|enrolled\s+at|to|with|at)\s+([A-Z].*)`)
	draftTeamRe   = regexp.MustCompile(`\b(?i:drafted\s+by|selected\s+by|picked\s+by|by)\s+(?:the\s+)?([A-Z].*)`)
	trailingRe    = regexp.MustCompile(`(?i)\s+(?:on|in\s+round|round|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2})\b.*$`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// Reconciler applies fragments for one season under a priority policy.
type Reconciler struct {
	season int
	policy Policy
}

// NewReconciler returns a reconciler gating dates to season.
func NewReconciler(season int, policy Policy) *Reconciler {
	return &Reconciler{season: season, policy: policy}
}

// Season returns the season whose window gates commitment dates.
func (r *Reconciler) Season() int { return r.season }

// Parse classifies text and extracts its date and destination.
func (r *Reconciler) Parse(text string) Fragment {
	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
	f := Fragment{Text: text, Kind: r.policy.Classify(text)}
	if at, ok := ParseDate(text); ok {
		f.At = at
		f.Date = at.Format(DateLayout)
	}
	f.Destination = destination(text, f.Kind)
	return f
}

func destination(text string, kind Kind) string {
	var m []string
	if kind == KindDraft {
		m = draftTeamRe.FindStringSubmatch(text)
	}
	if m == nil {
		m = destinationRe.FindStringSubmatch(text)
	}
	if m == nil {
		return ""
	}
	// cut at the date first; a textual date carries its own comma
	dest := m[1]
	if at := dateSpan(dest); at >= 0 {
		dest = dest[:at]
	}
	dest = trailingRe.ReplaceAllString(strings.TrimSpace(dest), "")
	if at := strings.IndexAny(dest, ",.;()"); at >= 0 {
		dest = dest[:at]
	}
	return strings.TrimSpace(dest)
}

// Apply folds one fragment into t. Commitment-family fragments need a date
// inside the season window and a strictly higher priority than the current
// owner. A draft fragment with a date fills the draft slot once.
func (r *Reconciler) Apply(t Timeline, f Fragment) (Timeline, Outcome) {
	if f.Kind == KindDraft {
		switch {
		case t.draftSet:
			return t, OutcomeDraftTaken
		case !f.HasDate():
			return t, OutcomeNoDate
		}
		t.Draft = record.Event{Date: f.Date, Destination: orNA(f.Destination)}
		t.draftSet = true
		return t, OutcomeDraftApplied
	}

	prio := r.policy.Priority(f.Kind)
	switch {
	case prio == 0:
		return t, OutcomeUnclassified
	case !f.HasDate():
		return t, OutcomeNoDate
	case !InWindow(f.At, r.season):
		return t, OutcomeOutOfWindow
	case prio <= r.policy.Priority(t.owner):
		return t, OutcomeOutranked
	}
	t.Commitment = record.Event{Date: f.Date, Destination: orNA(f.Destination)}
	t.owner = f.Kind
	return t, OutcomeApplied
}

// Reconcile parses and applies texts in order.
func (r *Reconciler) Reconcile(t Timeline, texts []string) Timeline {
	for _, text := range texts {
		t, _ = r.Apply(t, r.Parse(text))
	}
	return t
}

func orNA(s string) string {
	if s == "" {
		return record.NA
	}
	return s
}
