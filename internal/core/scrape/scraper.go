// Package scrape walks a registry result listing for one search variant:
// every result link across every page is opened (new window or in-page
// modal, whichever the site produces), its detail fields extracted, and one
// conflict record emitted per entry.
package scrape

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/marklens/marklens/internal/core"
	"github.com/marklens/marklens/internal/core/browser"
	apperrors "github.com/marklens/marklens/internal/errors"
)

// Selectors locates the pieces of the result listing. The next-page control
// is probed with two alternate selectors because the page markup varies.
type Selectors struct {
	ResultLinks string
	TitleChild  string
	DetailPane  string
	NextPage    string
	NextPageAlt string
}

// Labels are the row captions of the detail table.
type Labels struct {
	RegistrationNumber string
	Owner              string
	Goods              string
}

// Timing holds the settle delays the remote UI needs. Zero values are valid
// (tests run without sleeping).
type Timing struct {
	ClickSettle  time.Duration
	ModalTimeout time.Duration
	CloseSettle  time.Duration
	PageSettle   time.Duration
}

// DefaultSelectors matches the trademark registry's markup.
func DefaultSelectors() Selectors {
	return Selectors{
		ResultLinks: ".result > a",
		TitleChild:  "h2",
		DetailPane:  "#C_Spec",
		NextPage:    `//div[contains(@onclick, "goto('next')")]`,
		NextPageAlt: `//div[contains(@class, 'pager_but')][contains(@onclick, 'next')]`,
	}
}

// DefaultLabels matches the registry's detail table captions.
func DefaultLabels() Labels {
	return Labels{
		RegistrationNumber: "شماره ثبت",
		Owner:              "نام مالک",
		Goods:              "کالاها",
	}
}

// DefaultTiming mirrors the delays the registry tolerates.
func DefaultTiming() Timing {
	return Timing{
		ClickSettle:  3 * time.Second,
		ModalTimeout: 15 * time.Second,
		CloseSettle:  time.Second,
		PageSettle:   4 * time.Second,
	}
}

// goodsMaxLen bounds the goods/services description carried on a record.
const goodsMaxLen = 100

// Scraper paginates one variant's result listing.
type Scraper struct {
	Driver    browser.Driver
	State     *core.RunState
	Emit      func(core.ConflictRecord)
	Selectors Selectors
	Labels    Labels
	Timing    Timing
}

// ScrapeAllPages walks every result page for (searchTerm, variant) and
// returns the cumulative count of result links encountered. Per-item
// failures degrade or are skipped; only a failure to read the listing itself
// is returned, so the orchestrator can run its transient-retry cycle.
func (s *Scraper) ScrapeAllPages(ctx context.Context, searchTerm, variant string) (int, error) {
	total := 0
	page := 1

	for s.State.Running() {
		links, err := s.Driver.FindAll(ctx, s.Selectors.ResultLinks)
		if err != nil {
			return total, err
		}
		if len(links) == 0 {
			break
		}
		total += len(links)

		mainWindow, err := s.Driver.CurrentWindow(ctx)
		if err != nil {
			return total, err
		}

		for i := range links {
			if !s.State.Running() {
				return total, apperrors.ErrCancelled
			}
			if done := s.processResult(ctx, searchTerm, variant, i, page, mainWindow); done {
				break
			}
		}

		ok, err := s.nextPage(ctx)
		if err != nil || !ok {
			break
		}
		page++
	}

	return total, nil
}

// processResult opens the i-th result link, re-resolved by position to
// tolerate DOM mutation, and extracts its record. It reports true when the
// position no longer exists and the page loop should stop. All other
// failures are absorbed: a partially-readable entry becomes a degraded
// record, an unreadable one is skipped.
func (s *Scraper) processResult(ctx context.Context, searchTerm, variant string, i, page int, mainWindow string) bool {
	links, err := s.Driver.FindAll(ctx, s.Selectors.ResultLinks)
	if err != nil || i >= len(links) {
		return true
	}
	link := links[i]

	title, err := link.ChildText(ctx, s.Selectors.TitleChild)
	if err != nil || title == "" {
		title = "Unknown"
	}

	if err := link.ScriptClick(ctx); err != nil {
		return false
	}
	s.sleep(s.Timing.ClickSettle)

	windows, err := s.Driver.Windows(ctx)
	if err != nil {
		return false
	}

	if len(windows) > 1 {
		s.extractFromWindow(ctx, searchTerm, variant, title, page, mainWindow, windows)
	} else {
		s.extractFromModal(ctx, searchTerm, variant, title, page)
	}
	return false
}

func (s *Scraper) extractFromWindow(ctx context.Context, searchTerm, variant, title string, page int, mainWindow string, windows []string) {
	for _, w := range windows {
		if w == mainWindow {
			continue
		}
		if err := s.Driver.SwitchWindow(ctx, w); err != nil {
			return
		}
		s.extractData(ctx, searchTerm, variant, title, page, "html")
		_ = s.Driver.CloseWindow(ctx)
		_ = s.Driver.SwitchWindow(ctx, mainWindow)
		return
	}
}

func (s *Scraper) extractFromModal(ctx context.Context, searchTerm, variant, title string, page int) {
	if err := s.Driver.WaitVisible(ctx, s.Selectors.DetailPane, s.Timing.ModalTimeout); err != nil {
		return
	}
	s.extractData(ctx, searchTerm, variant, title, page, s.Selectors.DetailPane)
	_ = s.Driver.SendEscape(ctx)
	s.sleep(s.Timing.CloseSettle)
}

// extractData reads the labeled detail rows from the pane's markup. A row
// that cannot be found degrades the record to status error instead of
// dropping it.
func (s *Scraper) extractData(ctx context.Context, searchTerm, variant, title string, page int, paneSelector string) {
	record := core.ConflictRecord{
		RecordID:   uuid.New().String(),
		SearchTerm: searchTerm,
		Variant:    variant,
		Status:     core.StatusConflict,
		BrandTitle: title,
		Page:       page,
		ObservedAt: time.Now().UTC(),
	}

	html, err := s.Driver.OuterHTML(ctx, paneSelector)
	if err == nil {
		err = s.fillFields(&record, html)
	}
	if err != nil {
		record.Status = core.StatusError
		record.RegistrationNumber = ""
		record.Owner = ""
		record.GoodsDescription = ""
	}

	s.Emit(record)
}

func (s *Scraper) fillFields(record *core.ConflictRecord, html string) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return &apperrors.FieldExtractionError{Field: "detail pane", Err: err}
	}

	regNo, err := labeledCell(doc, s.Labels.RegistrationNumber)
	if err != nil {
		return err
	}
	owner, err := labeledCell(doc, s.Labels.Owner)
	if err != nil {
		return err
	}
	goods, err := labeledCell(doc, s.Labels.Goods)
	if err != nil {
		return err
	}

	record.RegistrationNumber = regNo
	record.Owner = owner
	record.GoodsDescription = truncateRunes(goods, goodsMaxLen)
	return nil
}

// labeledCell finds the table cell containing the label text and returns
// the adjacent cell's text.
func labeledCell(doc *goquery.Document, label string) (string, error) {
	var out string
	found := false
	doc.Find("td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		if strings.Contains(cell.Text(), label) {
			out = strings.TrimSpace(cell.Next().Text())
			found = true
			return false
		}
		return true
	})
	if !found {
		return "", &apperrors.FieldExtractionError{Field: label, Err: fmt.Errorf("label not found")}
	}
	return out, nil
}

// nextPage activates the next-page control if one is present and visible.
func (s *Scraper) nextPage(ctx context.Context) (bool, error) {
	controls, err := s.Driver.FindAll(ctx, s.Selectors.NextPage)
	if err != nil || len(controls) == 0 {
		controls, err = s.Driver.FindAll(ctx, s.Selectors.NextPageAlt)
		if err != nil {
			return false, err
		}
	}
	if len(controls) == 0 {
		return false, nil
	}

	visible, err := controls[0].Visible(ctx)
	if err != nil || !visible {
		return false, err
	}
	if err := controls[0].ScriptClick(ctx); err != nil {
		return false, err
	}
	s.sleep(s.Timing.PageSettle)
	return true, nil
}

func (s *Scraper) sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
