package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marklens/marklens/internal/core"
	"github.com/marklens/marklens/internal/core/browser/browsertest"
	"github.com/marklens/marklens/internal/core/scrape"
	"github.com/marklens/marklens/internal/core/variant"
)

const detailHTML = `
<div id="C_Spec">
  <table>
    <tr><td>شماره ثبت</td><td>140298765</td></tr>
    <tr><td>نام مالک</td><td>شرکت آزمایشی</td></tr>
    <tr><td>کالاها</td><td>خدمات بازرگانی</td></tr>
  </table>
</div>`

// newSearchPage scripts the registry search form with an empty result
// listing. Individual tests mutate the returned driver to produce other
// outcomes.
func newSearchPage() *browsertest.FakeDriver {
	drv := browsertest.NewFakeDriver()
	sel := DefaultFormSelectors()
	drv.AddElement(sel.NameField, &browsertest.FakeElement{ID: "name"})
	drv.AddElement(sel.ClassField, &browsertest.FakeElement{ID: "class"})
	drv.AddElement(sel.CaptchaField, &browsertest.FakeElement{ID: "captcha"})
	drv.AddElement(sel.Submit, &browsertest.FakeElement{ID: "submit"})
	drv.AddElement(sel.ResultPanel, &browsertest.FakeElement{
		ID:      "result",
		TextVal: "رکوردی یافت نشد",
	})
	return drv
}

func newTestOrchestrator(drv *browsertest.FakeDriver) *Orchestrator {
	o := New(drv, variant.NewEngine(nil), core.NewRunState(), NewEvents(), nil, Config{
		RegistryURL: "https://registry.example/search",
		ClassCodes:  "34",
		Selectors:   DefaultFormSelectors(),
		Timing:      Timing{},
	})
	o.Scraper.Timing = scrape.Timing{}
	o.Rendezvous.PollInterval = time.Millisecond
	return o
}

func drainRecords(e *Events) []core.ConflictRecord {
	var out []core.ConflictRecord
	for {
		select {
		case r := <-e.Records:
			out = append(out, r)
		default:
			return out
		}
	}
}

func TestRunCleanNamesEmitSummaries(t *testing.T) {
	drv := newSearchPage()
	o := newTestOrchestrator(drv)

	summary := o.Run(context.Background(), []string{"Nova", "Orbit"})

	assert.Equal(t, 2, summary.Names)
	assert.Equal(t, 2, summary.Approved)
	assert.Equal(t, 0, summary.Rejected)
	assert.False(t, summary.Cancelled)
	assert.True(t, drv.Closed, "browser session closed after the run")

	records := drainRecords(o.Events)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, core.StatusClean, r.Status)
		assert.True(t, r.IsSummary())
	}
	assert.Equal(t, "Nova", records[0].SearchTerm)
	assert.Equal(t, "Orbit", records[1].SearchTerm)

	done := <-o.Events.Done
	assert.Equal(t, summary.RunID, done.RunID)
}

func TestRunConflictRejectsName(t *testing.T) {
	drv := newSearchPage()
	sel := DefaultFormSelectors()
	drv.SetElements(sel.ResultPanel, []*browsertest.FakeElement{
		{ID: "result", TextVal: "۱ مورد یافت شد"},
	})
	drv.AddElement(".result > a", &browsertest.FakeElement{
		ID:       "r1",
		Children: map[string]string{"h2": "نوا"},
	})
	drv.VisibleSel["#C_Spec"] = true
	drv.HTML["#C_Spec"] = detailHTML

	o := newTestOrchestrator(drv)
	summary := o.Run(context.Background(), []string{"Nova"})

	assert.Equal(t, 0, summary.Approved)
	assert.Equal(t, 1, summary.Rejected)

	records := drainRecords(o.Events)
	require.Len(t, records, 1)
	assert.Equal(t, core.StatusConflict, records[0].Status)
	assert.Equal(t, "نوا", records[0].BrandTitle)
	assert.False(t, records[0].IsSummary())
}

func TestRunInvalidCaptchaRetriesSameVariant(t *testing.T) {
	drv := newSearchPage()
	drv.AlertQueue = []string{"کد امنیتی وارد شده اشتباه است"}

	o := newTestOrchestrator(drv)
	summary := o.Run(context.Background(), []string{"Nova"})

	assert.Equal(t, 1, summary.Approved)

	nameField := drv.Elements[DefaultFormSelectors().NameField][0]
	assert.Equal(t, []string{"Nova", "Nova"}, nameField.Typed,
		"the rejected variant is re-submitted, not skipped")

	classField := drv.Elements[DefaultFormSelectors().ClassField][0]
	assert.Equal(t, []string{"34"}, classField.Typed,
		"class codes are not re-typed when unchanged")
}

func TestRunSiteMessageAbandonsVariant(t *testing.T) {
	drv := newSearchPage()
	drv.AlertQueue = []string{"نام وارد شده معتبر نیست"}

	o := newTestOrchestrator(drv)
	summary := o.Run(context.Background(), []string{"Nova"})

	assert.Equal(t, 1, summary.Approved, "an abandoned variant is not a conflict")

	nameField := drv.Elements[DefaultFormSelectors().NameField][0]
	assert.Equal(t, []string{"Nova"}, nameField.Typed, "no retry after a site message")
}

func TestRunTransientErrorRefreshesAndRetries(t *testing.T) {
	drv := newSearchPage()
	drv.FailFind[DefaultFormSelectors().NameField] = 1

	o := newTestOrchestrator(drv)
	summary := o.Run(context.Background(), []string{"Nova"})

	assert.Equal(t, 1, summary.Approved)
	assert.Equal(t, 1, drv.Refreshes, "page reloaded before the retry")
}

func TestRunCancelledMidRunStopsPromptly(t *testing.T) {
	drv := newSearchPage()
	o := newTestOrchestrator(drv)
	drv.OnClick = func(el *browsertest.FakeElement) {
		if el.ID == "submit" {
			o.State.Stop()
		}
	}

	summary := o.Run(context.Background(), []string{"Nova", "Orbit"})

	assert.True(t, summary.Cancelled)
	assert.Equal(t, 0, summary.Approved)
	assert.Empty(t, drainRecords(o.Events), "no verdicts after cancellation")

	nameField := drv.Elements[DefaultFormSelectors().NameField][0]
	assert.Equal(t, []string{"Nova"}, nameField.Typed, "second name never searched")
}

func TestRunPauseBlocksSearchUntilResume(t *testing.T) {
	drv := newSearchPage()
	o := newTestOrchestrator(drv)
	o.Config.Timing.PauseInterval = time.Millisecond
	o.State.SetPaused(true)

	done := make(chan core.RunSummary, 1)
	go func() { done <- o.Run(context.Background(), []string{"Nova"}) }()

	select {
	case <-done:
		t.Fatal("run finished while paused")
	case <-time.After(30 * time.Millisecond):
	}

	o.State.SetPaused(false)
	select {
	case summary := <-done:
		assert.Equal(t, 1, summary.Approved)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not resume")
	}
}
