// Package engine drives the search run: names are expanded into variants,
// each variant is pushed through the registry's search form, conflicts are
// scraped, and one verdict is produced per name. One worker goroutine owns
// the browser session for the whole run; the operator interacts only
// through the events bus and the shared run-state flags.
package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/marklens/marklens/internal/core"
	"github.com/marklens/marklens/internal/core/browser"
	"github.com/marklens/marklens/internal/core/captcha"
	"github.com/marklens/marklens/internal/core/scrape"
	"github.com/marklens/marklens/internal/core/variant"
	apperrors "github.com/marklens/marklens/internal/errors"
)

// FormSelectors locates the registry search form.
type FormSelectors struct {
	NameField    string
	ClassField   string
	CaptchaField string
	Submit       string
	ResultPanel  string
	CaptchaImage string
	Interstitial string
	// NoRecordsMarker is the literal text of an empty result panel.
	NoRecordsMarker string
}

// DefaultFormSelectors matches the trademark registry's search page.
func DefaultFormSelectors() FormSelectors {
	return FormSelectors{
		NameField:       "#ItemTitle",
		ClassField:      "#SignProductId",
		CaptchaField:    "#txtCaptcha",
		Submit:          "#LogIn",
		ResultPanel:     ".result",
		CaptchaImage:    "#imgCaptcha",
		Interstitial:    `//button[contains(text(), 'متوجه شدم')]`,
		NoRecordsMarker: "رکوردی یافت نشد",
	}
}

// Timing holds the waits a run observes against the remote service. Zero
// values mean no waiting, which is what tests use.
type Timing struct {
	AlertWait      time.Duration
	ResultSettle   time.Duration
	RetryPause     time.Duration
	CaptchaRefresh time.Duration
	PauseInterval  time.Duration
	JitterMin      time.Duration
	JitterMax      time.Duration
}

// DefaultTiming mirrors the delays the registry tolerates without tripping
// its anti-automation defenses.
func DefaultTiming() Timing {
	return Timing{
		AlertWait:      1500 * time.Millisecond,
		ResultSettle:   2 * time.Second,
		RetryPause:     3 * time.Second,
		CaptchaRefresh: 1500 * time.Millisecond,
		PauseInterval:  500 * time.Millisecond,
		JitterMin:      1500 * time.Millisecond,
		JitterMax:      3500 * time.Millisecond,
	}
}

// Config is the per-run setup of the orchestrator.
type Config struct {
	RegistryURL string
	// ClassCodes is a comma-separated class list typed once per run and
	// applied to every search attempt.
	ClassCodes string
	Selectors  FormSelectors
	Timing     Timing
	// PaceInterval spaces registry interactions via a token bucket, on top
	// of the jitter sleep. Zero disables pacing.
	PaceInterval time.Duration
}

// Orchestrator is the top-level state machine of a run.
type Orchestrator struct {
	Driver     browser.Driver
	Engine     *variant.Engine
	Scraper    *scrape.Scraper
	Rendezvous *captcha.Rendezvous
	State      *core.RunState
	Events     *Events
	Logger     *logging.Logger
	Config     Config

	limiter      *rate.Limiter
	captchaToken string
	errorCount   int
}

// New wires an orchestrator around a browser session. The scraper and
// rendezvous share the run state and events bus.
func New(drv browser.Driver, eng *variant.Engine, state *core.RunState, events *Events, logger *logging.Logger, cfg Config) *Orchestrator {
	o := &Orchestrator{
		Driver: drv,
		Engine: eng,
		State:  state,
		Events: events,
		Logger: logger,
		Config: cfg,
		Scraper: &scrape.Scraper{
			Driver:    drv,
			State:     state,
			Selectors: scrape.DefaultSelectors(),
			Labels:    scrape.DefaultLabels(),
			Timing:    scrape.DefaultTiming(),
		},
		Rendezvous: &captcha.Rendezvous{
			State:         state,
			ImageSelector: cfg.Selectors.CaptchaImage,
			PublishImage:  events.PublishCaptcha,
		},
	}
	o.Scraper.Emit = o.emitRecord
	if cfg.PaceInterval > 0 {
		o.limiter = rate.NewLimiter(rate.Every(cfg.PaceInterval), 1)
	}
	return o
}

// Run processes the input names in file order and always closes the browser
// session and signals completion, whether the run finished or was cancelled.
func (o *Orchestrator) Run(ctx context.Context, names []string) core.RunSummary {
	summary := core.RunSummary{
		RunID:     uuid.New().String(),
		Names:     len(names),
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		_ = o.Driver.Close(ctx)
		summary.CompletedAt = time.Now().UTC()
		summary.Errors = o.errorCount
		o.State.Stop()
		o.Events.SetStatus("finished")
		o.Events.Finish(summary)
	}()

	o.Events.SetStatus("opening registry")
	if err := o.Driver.Navigate(ctx, o.Config.RegistryURL); err != nil {
		o.logWarn("failed to open registry", zap.Error(err))
		return summary
	}
	o.dismissInterstitial(ctx)

	token, err := o.acquireToken(ctx)
	if err != nil {
		summary.Cancelled = true
		return summary
	}
	o.captchaToken = token

	for idx, name := range names {
		if !o.State.Running() {
			summary.Cancelled = true
			break
		}
		o.pauseCheck()
		o.Events.PublishProgress(idx+1, len(names))

		set, report := o.Engine.Analyze(name)
		o.logInfo("analyzing name",
			zap.String("name", name),
			zap.String("core_root", report.CoreRoot),
			zap.Int("variants", set.Len()),
		)
		o.Events.Logf("analyzing %q: root=%q, %d variants", name, report.CoreRoot, set.Len())

		conflictFound := false
		cancelled := false
		for _, v := range set.Values() {
			if !o.State.Running() {
				cancelled = true
				break
			}
			o.pauseCheck()

			found, err := o.searchVariant(ctx, name, v)
			if err != nil {
				cancelled = true
				break
			}
			if found {
				conflictFound = true
			}
		}
		if cancelled || !o.State.Running() {
			summary.Cancelled = true
			break
		}

		if conflictFound {
			summary.Rejected++
			continue
		}
		summary.Approved++
		o.emitRecord(core.ConflictRecord{
			RecordID:   uuid.New().String(),
			SearchTerm: name,
			Variant:    core.SummaryVariant,
			Status:     core.StatusClean,
			ObservedAt: time.Now().UTC(),
		})
	}

	return summary
}

// searchVariant runs attempts for one variant until a terminal outcome.
// Transient failures retry without bound; only operator cancellation breaks
// the loop. The boolean result reports whether the variant surfaced a
// conflict.
func (o *Orchestrator) searchVariant(ctx context.Context, name, variantText string) (bool, error) {
	for o.State.Running() {
		found, err := o.attempt(ctx, name, variantText)
		switch {
		case err == nil:
			o.jitterSleep(ctx)
			return found, nil

		case errors.Is(err, apperrors.ErrCancelled), errors.Is(err, context.Canceled):
			return false, apperrors.ErrCancelled

		case errors.Is(err, apperrors.ErrInvalidCaptcha):
			o.Events.Logf("captcha expired, requesting a fresh one")
			if err := o.refreshCaptcha(ctx); err != nil {
				return false, err
			}

		case isSiteMessage(err):
			// Any alert other than a captcha failure is assumed to be a
			// validation message; the variant is abandoned as a non-match.
			o.logWarn("site message", zap.String("variant", variantText), zap.Error(err))
			o.Events.Logf("site message on %q: %v", variantText, err)
			return false, nil

		case apperrors.IsTransient(err):
			o.logWarn("network error, retrying variant",
				zap.String("variant", variantText), zap.Error(err))
			o.Events.Logf("network error: %s", truncateError(err))
			_ = o.Driver.Refresh(ctx)
			o.sleep(o.Config.Timing.RetryPause)
			token, aerr := o.acquireToken(ctx)
			if aerr != nil {
				return false, aerr
			}
			o.captchaToken = token

		default:
			return false, err
		}
	}
	return false, apperrors.ErrCancelled
}

// attempt submits the search form once and classifies the outcome.
func (o *Orchestrator) attempt(ctx context.Context, name, variantText string) (bool, error) {
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return false, err
		}
	}
	sel := o.Config.Selectors

	nameField, err := o.Driver.Find(ctx, sel.NameField)
	if err != nil {
		return false, err
	}
	if err := nameField.Clear(ctx); err != nil {
		return false, err
	}
	if err := nameField.SendKeys(ctx, variantText); err != nil {
		return false, err
	}

	classField, err := o.Driver.Find(ctx, sel.ClassField)
	if err != nil {
		return false, err
	}
	current, err := classField.Value(ctx)
	if err != nil {
		return false, err
	}
	// Re-typing an unchanged class list is redundant interaction the site
	// does not need to see.
	if current != o.Config.ClassCodes {
		if err := classField.Clear(ctx); err != nil {
			return false, err
		}
		if err := classField.SendKeys(ctx, o.Config.ClassCodes); err != nil {
			return false, err
		}
	}

	captchaField, err := o.Driver.Find(ctx, sel.CaptchaField)
	if err != nil {
		return false, err
	}
	if err := captchaField.Clear(ctx); err != nil {
		return false, err
	}
	if err := captchaField.SendKeys(ctx, o.captchaToken); err != nil {
		return false, err
	}

	submit, err := o.Driver.Find(ctx, sel.Submit)
	if err != nil {
		return false, err
	}
	if err := submit.Click(ctx); err != nil {
		return false, err
	}

	msg, err := o.Driver.AcceptAlert(ctx, o.Config.Timing.AlertWait)
	if err == nil {
		if apperrors.IsCaptchaAlert(msg) {
			return false, apperrors.ErrInvalidCaptcha
		}
		return false, &apperrors.SiteMessageError{Text: msg}
	}
	if !errors.Is(err, browser.ErrNoAlert) {
		return false, err
	}

	o.sleep(o.Config.Timing.ResultSettle)

	panel, err := o.Driver.Find(ctx, sel.ResultPanel)
	if err != nil {
		return false, err
	}
	text, err := panel.Text(ctx)
	if err != nil {
		return false, err
	}
	if strings.Contains(text, sel.NoRecordsMarker) {
		return false, nil
	}

	count, err := o.Scraper.ScrapeAllPages(ctx, name, variantText)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// refreshCaptcha script-clicks the challenge image to force a new one, then
// runs a fresh rendezvous.
func (o *Orchestrator) refreshCaptcha(ctx context.Context) error {
	if img, err := o.Driver.Find(ctx, o.Config.Selectors.CaptchaImage); err == nil {
		_ = img.ScriptClick(ctx)
	}
	o.sleep(o.Config.Timing.CaptchaRefresh)
	token, err := o.acquireToken(ctx)
	if err != nil {
		return err
	}
	o.captchaToken = token
	return nil
}

func (o *Orchestrator) acquireToken(ctx context.Context) (string, error) {
	o.Events.SetStatus("waiting for captcha")
	o.Events.Logf("enter the captcha code to continue")
	token, err := o.Rendezvous.Acquire(ctx, o.Driver)
	if err != nil {
		return "", err
	}
	o.Events.SetStatus("searching")
	return token, nil
}

// dismissInterstitial clicks through a first-run notice when present.
// Best-effort: any failure here is non-fatal.
func (o *Orchestrator) dismissInterstitial(ctx context.Context) {
	buttons, err := o.Driver.FindAll(ctx, o.Config.Selectors.Interstitial)
	if err != nil {
		return
	}
	for _, b := range buttons {
		if visible, err := b.Visible(ctx); err == nil && visible {
			_ = b.Click(ctx)
		}
	}
}

// pauseCheck is the cooperative spin-wait: while paused, no browser
// interaction happens, and the operator may resume or cancel.
func (o *Orchestrator) pauseCheck() {
	for o.State.Paused() && o.State.Running() {
		o.Events.SetStatus("paused")
		time.Sleep(o.pauseInterval())
	}
}

func (o *Orchestrator) pauseInterval() time.Duration {
	if o.Config.Timing.PauseInterval > 0 {
		return o.Config.Timing.PauseInterval
	}
	return 50 * time.Millisecond
}

func (o *Orchestrator) emitRecord(r core.ConflictRecord) {
	if r.Status == core.StatusError {
		o.errorCount++
	}
	o.Events.EmitRecord(r)
}

// jitterSleep waits a randomized short interval between successful attempts
// to avoid tripping anti-automation defenses. Rate limiting only; not part
// of correctness.
func (o *Orchestrator) jitterSleep(ctx context.Context) {
	min, max := o.Config.Timing.JitterMin, o.Config.Timing.JitterMax
	if max <= min {
		o.sleep(min)
		return
	}
	o.sleep(min + time.Duration(rand.Int64N(int64(max-min))))
}

func (o *Orchestrator) sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

func (o *Orchestrator) logInfo(msg string, fields ...zap.Field) {
	if o.Logger != nil {
		o.Logger.Info(msg, fields...)
	}
}

func (o *Orchestrator) logWarn(msg string, fields ...zap.Field) {
	if o.Logger != nil {
		o.Logger.Warn(msg, fields...)
	}
}

func isSiteMessage(err error) bool {
	var site *apperrors.SiteMessageError
	return errors.As(err, &site)
}

func truncateError(err error) string {
	s := err.Error()
	if len(s) > 50 {
		return s[:50]
	}
	return s
}
