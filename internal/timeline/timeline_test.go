package timeline

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruits/internal/record"
)

const (
	enrolled  = "Enrolled at Alabama on 06/01/2019"
	signed    = "Signed with Alabama on 12/20/2018"
	committed = "Committed to Alabama on 03/15/2018"
)

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jan 29, 2017", "01/29/2017"},
		{"01/29/2017", "01/29/2017"},
		{"1/5/2019", "01/05/2019"},
		{"Sept. 3, 2018", "09/03/2018"},
		{"January 29 2017", "01/29/2017"},
		{"visited 03/02/2018 after Jan 1, 2018", "03/02/2018"},
		{"02/30/2019", ""},
		{"13/01/2019", ""},
		{"no date here", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeDate(tt.in))
		})
	}
}

func TestTextualAndNumericDatesAgree(t *testing.T) {
	r := NewReconciler(2017, DefaultPolicy())
	a := r.Reconcile(New(), []string{"Committed to Alabama on Jan 29, 2017"})
	b := r.Reconcile(New(), []string{"Committed to Alabama on 01/29/2017"})
	assert.Equal(t, a.Commitment, b.Commitment)
	assert.Equal(t, "Alabama", a.Commitment.Destination)
}

func TestDestinationBeforeDate(t *testing.T) {
	r := NewReconciler(2019, DefaultPolicy())
	tests := []struct {
		in   string
		want string
	}{
		{"Commits to Alabama Jan 29, 2017", "Alabama"},
		{"Commits to Alabama 01/29/2017", "Alabama"},
		{"Signed with Georgia Feb 1, 2019", "Georgia"},
		{"Signed with Georgia Feb. 1", "Georgia"},
		{"Enrolled at Ohio State, Columbus on 01/07/2019", "Ohio State"},
		{"Drafted by the Tennessee Titans April 28, 2022 in Round 1", "Tennessee Titans"},
		{"Committed to Texas A&M (Sept. 3, 2018)", "Texas A&M"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Parse(tt.in).Destination)
		})
	}
}

func TestClassify(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, KindCommitment, p.Classify("Committed to Alabama"))
	assert.Equal(t, KindSigning, p.Classify("Signed with Georgia"))
	assert.Equal(t, KindEnrollment, p.Classify("ENROLLED at Ohio State"))
	assert.Equal(t, KindDraft, p.Classify("Drafted by the Tennessee Titans"))
	assert.Equal(t, KindNone, p.Classify("Decommitted from Alabama"))
	assert.Equal(t, KindNone, p.Classify("Official visit to LSU"))
	assert.Equal(t, KindCommitment, p.Classify("Signed with Alabama after his commitment"))
}

func TestDateGate(t *testing.T) {
	r := NewReconciler(2019, DefaultPolicy())

	late, outcome := r.Apply(New(), r.Parse("Committed to Alabama on 09/15/2019"))
	assert.Equal(t, OutcomeOutOfWindow, outcome)
	assert.Equal(t, record.UnknownEvent(), late.Commitment)

	ok, outcome := r.Apply(New(), r.Parse("Committed to Alabama on 08/31/2019"))
	assert.Equal(t, OutcomeApplied, outcome)
	assert.Equal(t, "08/31/2019", ok.Commitment.Date)
	assert.Equal(t, "Alabama", ok.Commitment.Destination)
}

func TestPriorityIsOrderIndependent(t *testing.T) {
	orders := [][]string{
		{enrolled, signed, committed},
		{enrolled, committed, signed},
		{signed, enrolled, committed},
		{signed, committed, enrolled},
		{committed, enrolled, signed},
		{committed, signed, enrolled},
	}
	r := NewReconciler(2019, DefaultPolicy())
	for _, texts := range orders {
		got := r.Reconcile(New(), texts)
		assert.Equal(t, KindCommitment, got.Owner(), "order %v", texts)
		assert.Equal(t, "03/15/2018", got.Commitment.Date, "order %v", texts)
	}
}

func TestLowerKindNeverOverwrites(t *testing.T) {
	r := NewReconciler(2019, DefaultPolicy())

	state, outcome := r.Apply(New(), r.Parse(signed))
	require.Equal(t, OutcomeApplied, outcome)

	state, outcome = r.Apply(state, r.Parse("Enrolled at Auburn on 01/10/2019"))
	assert.Equal(t, OutcomeOutranked, outcome)
	assert.Equal(t, "Alabama", state.Commitment.Destination)

	state, outcome = r.Apply(state, r.Parse("Signed with Auburn on 01/11/2019"))
	assert.Equal(t, OutcomeOutranked, outcome)
	assert.Equal(t, "12/20/2018", state.Commitment.Date)
}

func TestReconcileIsIdempotent(t *testing.T) {
	r := NewReconciler(2019, DefaultPolicy())
	texts := []string{enrolled, "Drafted by the Tennessee Titans on 04/28/2022", signed, committed}

	once := r.Reconcile(New(), texts)
	again := r.Reconcile(New(), texts)
	twice := r.Reconcile(once, texts)

	opt := cmp.AllowUnexported(Timeline{})
	if diff := cmp.Diff(once, again, opt); diff != "" {
		t.Errorf("fresh reconcile differs (-once +again):\n%s", diff)
	}
	if diff := cmp.Diff(once, twice, opt); diff != "" {
		t.Errorf("re-reconcile differs (-once +twice):\n%s", diff)
	}
}

func TestDraftSlot(t *testing.T) {
	r := NewReconciler(2019, DefaultPolicy())

	state, outcome := r.Apply(New(), r.Parse("Drafted by the Tennessee Titans on 04/28/2022"))
	require.Equal(t, OutcomeDraftApplied, outcome)
	assert.Equal(t, record.Event{Date: "04/28/2022", Destination: "Tennessee Titans"}, state.Draft)
	assert.Equal(t, KindNone, state.Owner())
	assert.Equal(t, record.UnknownEvent(), state.Commitment)

	state, outcome = r.Apply(state, r.Parse("Drafted by the Dallas Cowboys on 04/30/2023"))
	assert.Equal(t, OutcomeDraftTaken, outcome)
	assert.Equal(t, "Tennessee Titans", state.Draft.Destination)

	state = r.Reconcile(state, []string{committed})
	assert.Equal(t, "Tennessee Titans", state.Draft.Destination)
	assert.Equal(t, "Alabama", state.Commitment.Destination)
}

func TestFragmentsWithoutDateAreIgnored(t *testing.T) {
	r := NewReconciler(2019, DefaultPolicy())
	state, outcome := r.Apply(New(), r.Parse("Committed to Alabama"))
	assert.Equal(t, OutcomeNoDate, outcome)
	assert.Equal(t, KindNone, state.Owner())

	_, outcome = r.Apply(New(), r.Parse("Decommitted from Alabama on 01/02/2019"))
	assert.Equal(t, OutcomeUnclassified, outcome)
}

func TestCustomPolicy(t *testing.T) {
	p, err := PolicyFromNames([]string{"signing", "commitment", "enrollment"})
	require.NoError(t, err)

	r := NewReconciler(2019, p)
	got := r.Reconcile(New(), []string{signed, committed})
	assert.Equal(t, KindSigning, got.Owner())
	assert.Equal(t, "12/20/2018", got.Commitment.Date)
}

func TestNewPolicyRejectsBadOrders(t *testing.T) {
	_, err := NewPolicy(KindCommitment, KindSigning)
	assert.Error(t, err)

	_, err = NewPolicy(KindCommitment, KindCommitment, KindSigning)
	assert.Error(t, err)

	_, err = NewPolicy(KindCommitment, KindSigning, KindDraft)
	assert.Error(t, err)

	_, err = PolicyFromNames([]string{"commitment", "signing", "transfer"})
	assert.Error(t, err)
}

func TestApplyToRecord(t *testing.T) {
	r := NewReconciler(2019, DefaultPolicy())
	state := r.Reconcile(New(), []string{committed})

	var a record.Athlete
	state.ApplyTo(&a)
	assert.Equal(t, record.Event{Date: "03/15/2018", Destination: "Alabama"}, a.Commitment)
	assert.Equal(t, record.UnknownEvent(), a.Draft)
}
