package scrape

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marklens/marklens/internal/core"
	"github.com/marklens/marklens/internal/core/browser/browsertest"
)

const detailHTML = `
<div id="C_Spec">
  <table>
    <tr><td>شماره ثبت</td><td>140212345</td></tr>
    <tr><td>نام مالک</td><td>شرکت نمونه</td></tr>
    <tr><td>کالاها</td><td>نان، شیرینی و فرآورده های آرد</td></tr>
  </table>
</div>`

func newScraper(drv *browsertest.FakeDriver, state *core.RunState, records *[]core.ConflictRecord) *Scraper {
	return &Scraper{
		Driver:    drv,
		State:     state,
		Selectors: DefaultSelectors(),
		Labels:    DefaultLabels(),
		Timing:    Timing{},
		Emit: func(r core.ConflictRecord) {
			*records = append(*records, r)
		},
	}
}

func TestScrapeModalFlow(t *testing.T) {
	drv := browsertest.NewFakeDriver()
	drv.AddElement(".result > a", &browsertest.FakeElement{
		ID:       "r1",
		Children: map[string]string{"h2": "نان طلایی"},
	})
	drv.AddElement(".result > a", &browsertest.FakeElement{
		ID:       "r2",
		Children: map[string]string{"h2": "نان سحر"},
	})
	drv.VisibleSel["#C_Spec"] = true
	drv.HTML["#C_Spec"] = detailHTML

	var records []core.ConflictRecord
	s := newScraper(drv, core.NewRunState(), &records)

	count, err := s.ScrapeAllPages(context.Background(), "نان", "نان")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, records, 2)
	first := records[0]
	assert.Equal(t, core.StatusConflict, first.Status)
	assert.Equal(t, "نان طلایی", first.BrandTitle)
	assert.Equal(t, "140212345", first.RegistrationNumber)
	assert.Equal(t, "شرکت نمونه", first.Owner)
	assert.Equal(t, "نان، شیرینی و فرآورده های آرد", first.GoodsDescription)
	assert.Equal(t, 2, drv.Escapes, "each modal dismissed with Escape")
}

func TestScrapeNewWindowFlow(t *testing.T) {
	drv := browsertest.NewFakeDriver()
	link := drv.AddElement(".result > a", &browsertest.FakeElement{
		ID:       "r1",
		Children: map[string]string{"h2": "برند تستی"},
	})
	drv.HTML["html"] = detailHTML
	drv.OnClick = func(el *browsertest.FakeElement) {
		if el == link {
			drv.WindowList = append(drv.WindowList, "detail")
		}
	}

	var records []core.ConflictRecord
	s := newScraper(drv, core.NewRunState(), &records)

	count, err := s.ScrapeAllPages(context.Background(), "تست", "تست")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, records, 1)
	assert.Equal(t, "140212345", records[0].RegistrationNumber)

	handles, err := drv.Windows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, handles, "detail window closed again")
	cur, err := drv.CurrentWindow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "main", cur, "switched back to the listing")
}

func TestScrapeDegradedRecordOnExtractionFailure(t *testing.T) {
	drv := browsertest.NewFakeDriver()
	drv.AddElement(".result > a", &browsertest.FakeElement{
		ID:       "r1",
		Children: map[string]string{"h2": "برند ناقص"},
	})
	drv.VisibleSel["#C_Spec"] = true
	// Owner row missing from the detail table.
	drv.HTML["#C_Spec"] = `<div id="C_Spec"><table><tr><td>شماره ثبت</td><td>9</td></tr></table></div>`

	var records []core.ConflictRecord
	s := newScraper(drv, core.NewRunState(), &records)

	count, err := s.ScrapeAllPages(context.Background(), "ناقص", "ناقص")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, records, 1)
	assert.Equal(t, core.StatusError, records[0].Status)
	assert.Equal(t, "برند ناقص", records[0].BrandTitle)
	assert.Empty(t, records[0].Owner)
}

func TestScrapePagination(t *testing.T) {
	drv := browsertest.NewFakeDriver()
	drv.AddElement(".result > a", &browsertest.FakeElement{
		ID:       "p1r1",
		Children: map[string]string{"h2": "صفحه یک"},
	})
	next := drv.AddElement(DefaultSelectors().NextPage, &browsertest.FakeElement{ID: "next"})
	drv.VisibleSel["#C_Spec"] = true
	drv.HTML["#C_Spec"] = detailHTML

	drv.OnClick = func(el *browsertest.FakeElement) {
		if el == next {
			second := &browsertest.FakeElement{
				ID:       "p2r1",
				Children: map[string]string{"h2": "صفحه دو"},
			}
			drv.SetElements(".result > a", []*browsertest.FakeElement{second})
			drv.SetElements(DefaultSelectors().NextPage, nil)
		}
	}

	var records []core.ConflictRecord
	s := newScraper(drv, core.NewRunState(), &records)

	count, err := s.ScrapeAllPages(context.Background(), "صفحه", "صفحه")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Page)
	assert.Equal(t, 2, records[1].Page)
	assert.Equal(t, "صفحه دو", records[1].BrandTitle)
}

func TestScrapeCancelledMidPage(t *testing.T) {
	drv := browsertest.NewFakeDriver()
	state := core.NewRunState()
	first := drv.AddElement(".result > a", &browsertest.FakeElement{
		ID:       "r1",
		Children: map[string]string{"h2": "اول"},
	})
	drv.AddElement(".result > a", &browsertest.FakeElement{
		ID:       "r2",
		Children: map[string]string{"h2": "دوم"},
	})
	drv.VisibleSel["#C_Spec"] = true
	drv.HTML["#C_Spec"] = detailHTML
	drv.OnClick = func(el *browsertest.FakeElement) {
		if el == first {
			state.Stop()
		}
	}

	var records []core.ConflictRecord
	s := newScraper(drv, state, &records)

	_, err := s.ScrapeAllPages(context.Background(), "x", "x")
	require.Error(t, err)
	assert.Len(t, records, 1, "no records for results not reached before cancellation")
}

func TestGoodsTruncated(t *testing.T) {
	long := strings.Repeat("ک", 150)
	drv := browsertest.NewFakeDriver()
	drv.AddElement(".result > a", &browsertest.FakeElement{
		ID:       "r1",
		Children: map[string]string{"h2": "طولانی"},
	})
	drv.VisibleSel["#C_Spec"] = true
	drv.HTML["#C_Spec"] = `<div><table>
		<tr><td>شماره ثبت</td><td>1</td></tr>
		<tr><td>نام مالک</td><td>مالک</td></tr>
		<tr><td>کالاها</td><td>` + long + `</td></tr>
	</table></div>`

	var records []core.ConflictRecord
	s := newScraper(drv, core.NewRunState(), &records)

	_, err := s.ScrapeAllPages(context.Background(), "x", "x")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 100, len([]rune(records[0].GoodsDescription)))
}
