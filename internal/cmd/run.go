package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/marklens/marklens/internal/config"
	"github.com/marklens/marklens/internal/core"
	"github.com/marklens/marklens/internal/core/browser/cdp"
	"github.com/marklens/marklens/internal/core/engine"
	"github.com/marklens/marklens/internal/core/scrape"
	"github.com/marklens/marklens/internal/core/variant"
	apperrors "github.com/marklens/marklens/internal/errors"
	"github.com/marklens/marklens/internal/observability"
	"github.com/marklens/marklens/internal/output"
	"github.com/marklens/marklens/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run [names...]",
	Short: "Screen names against the trademark registry",
	Long: `Screen proposed names against the trademark registry.

Each name is expanded into its confusable variants and every variant is
searched. A name is approved only when no variant matches a registered mark.

Captcha challenges are shown to you: in console mode the challenge image is
written next to the output and the code is read from stdin; with --serve the
image and the rest of the run are exposed over the operator HTTP API.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("names-file", "f", "", "file with one name per line (- for stdin)")
	runCmd.Flags().String("classes", "", "comma-separated Nice class list applied to every search")
	runCmd.Flags().String("registry-url", "", "registry search page URL")
	runCmd.Flags().Bool("headless", false, "run the browser headless")
	runCmd.Flags().String("lexicon", "", "YAML lexicon override for variant expansion")
	runCmd.Flags().String("output-format", "table", "output format: table, json, csv, markdown")
	runCmd.Flags().String("out", "", "write the report to a file instead of stdout")
	runCmd.Flags().Bool("serve", false, "expose the operator HTTP API for this run")

	_ = viper.BindPFlag("search.classes", runCmd.Flags().Lookup("classes"))
	_ = viper.BindPFlag("registry.url", runCmd.Flags().Lookup("registry-url"))
	_ = viper.BindPFlag("registry.headless", runCmd.Flags().Lookup("headless"))
	_ = viper.BindPFlag("lexicon.path", runCmd.Flags().Lookup("lexicon"))
	_ = viper.BindPFlag("output.format", runCmd.Flags().Lookup("output-format"))
	_ = viper.BindPFlag("output.path", runCmd.Flags().Lookup("out"))
	_ = viper.BindPFlag("server.enabled", runCmd.Flags().Lookup("serve"))
}

func runRun(cmd *cobra.Command, args []string) error {
	logger := observability.CLILogger

	cfg, err := loadConfig()
	if err != nil {
		fatalConfig("Failed to load configuration", err)
	}

	format, err := resolveOutputFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	namesFile, err := cmd.Flags().GetString("names-file")
	if err != nil {
		return err
	}
	names, err := resolveNames(args, namesFile)
	if err != nil {
		var fileErr *apperrors.FileReadError
		if errors.As(err, &fileErr) {
			ExitWithCode(logger, foundry.ExitFileNotFound, "Cannot read names file", err)
		}
		return err
	}

	lex, err := loadLexicon(cfg.Lexicon.Path)
	if err != nil {
		fatalConfig("Failed to load lexicon", err)
	}

	ctx := cmd.Context()
	startedAt := time.Now()

	drv, err := cdp.New(ctx, cdp.Options{Headless: cfg.Registry.Headless})
	if err != nil {
		ExitWithCode(logger, foundry.ExitExternalServiceUnavailable, "Failed to start browser", err)
	}

	state := core.NewRunState()
	events := engine.NewEvents()
	orch := engine.New(drv, variant.NewEngine(lex), state, events, logger, engineConfig(cfg))
	applyScraperTimings(orch, cfg)

	logger.Info("Starting screening run",
		zap.Int("names", len(names)),
		zap.String("classes", cfg.Search.Classes),
		zap.String("registry", cfg.Registry.URL))

	var report *output.Report
	if cfg.Server.Enabled {
		report = runWithOperatorServer(ctx, cfg, orch, events, names)
	} else {
		report = runWithConsole(ctx, orch, events, names)
	}

	sink, err := openSink(cfg.Output.Path)
	if err != nil {
		return err
	}
	defer sink.close() // nolint:errcheck

	rendered, err := output.NewFormatter(format).FormatReport(report)
	if err != nil {
		return err
	}
	if strings.TrimSpace(rendered) != "" {
		fmt.Fprintln(sink.writer, rendered)
	}

	logger.Info("Run complete",
		zap.Int("approved", report.Summary.Approved),
		zap.Int("rejected", report.Summary.Rejected),
		zap.Int("errors", report.Summary.Errors),
		zap.Bool("cancelled", report.Summary.Cancelled),
		zap.Duration("elapsed", time.Since(startedAt)))
	return nil
}

func loadLexicon(path string) (*variant.Lexicon, error) {
	if strings.TrimSpace(path) == "" {
		return variant.DefaultLexicon(), nil
	}
	return variant.LoadLexicon(path)
}

// engineConfig maps application configuration onto the orchestrator.
func engineConfig(cfg *config.Config) engine.Config {
	timing := engine.DefaultTiming()
	timing.AlertWait = cfg.Registry.Timing.AlertWait
	timing.ResultSettle = cfg.Registry.Timing.ResultSettle
	timing.RetryPause = cfg.Registry.Timing.RetryPause
	timing.CaptchaRefresh = cfg.Registry.Timing.CaptchaRefresh
	timing.JitterMin = cfg.Search.JitterMin
	timing.JitterMax = cfg.Search.JitterMax

	return engine.Config{
		RegistryURL:  cfg.Registry.URL,
		ClassCodes:   cfg.Search.Classes,
		Selectors:    engine.DefaultFormSelectors(),
		Timing:       timing,
		PaceInterval: cfg.Search.PaceInterval,
	}
}

func applyScraperTimings(orch *engine.Orchestrator, cfg *config.Config) {
	orch.Scraper.Timing = scrape.Timing{
		ClickSettle:  cfg.Registry.Timing.ClickSettle,
		ModalTimeout: cfg.Registry.Timing.ModalTimeout,
		CloseSettle:  cfg.Registry.Timing.CloseSettle,
		PageSettle:   cfg.Registry.Timing.PageSettle,
	}
}

// runWithOperatorServer drives the run while the operator API serves status,
// captcha hand-off and control actions.
func runWithOperatorServer(ctx context.Context, cfg *config.Config, orch *engine.Orchestrator, events *engine.Events, names []string) *output.Report {
	observability.InitServerLogger(appName, cfg.Logging.Level)

	controller := server.NewController(orch.State)
	srv := server.New(cfg.Server, controller)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, context.Canceled) {
			observability.CLILogger.Warn("Operator server stopped", zap.Error(err))
		}
	}()
	go controller.Watch(events)

	summary := orch.Run(ctx, names)
	<-controller.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return &output.Report{Summary: summary, Records: controller.Records()}
}

// runWithConsole drives the run with stdin captcha entry: each challenge
// image is written to disk and the solved code is read from the terminal.
func runWithConsole(ctx context.Context, orch *engine.Orchestrator, events *engine.Events, names []string) *output.Report {
	collector := &consoleCollector{
		state:  orch.State,
		events: events,
		stdin:  bufio.NewReader(os.Stdin),
		done:   make(chan struct{}),
	}
	go collector.loop()

	summary := orch.Run(ctx, names)
	<-collector.done

	return &output.Report{Summary: summary, Records: collector.records}
}

type consoleCollector struct {
	state   *core.RunState
	events  *engine.Events
	stdin   *bufio.Reader
	done    chan struct{}
	records []core.ConflictRecord
}

// loop drains the event bus until the run finishes. Captcha prompting blocks
// the loop; that is safe because the worker is blocked on the same
// rendezvous and emits nothing meanwhile.
func (c *consoleCollector) loop() {
	defer close(c.done)
	for {
		select {
		case line := <-c.events.Log:
			fmt.Fprintln(os.Stderr, line)
		case <-c.events.Status:
		case p := <-c.events.Progress:
			fmt.Fprintf(os.Stderr, "[%d/%d]\n", p.Current, p.Total)
		case img := <-c.events.Captcha:
			c.promptCaptcha(img)
		case r := <-c.events.Records:
			c.records = append(c.records, r)
		case <-c.events.Done:
			c.drainRecords()
			return
		}
	}
}

func (c *consoleCollector) drainRecords() {
	for {
		select {
		case r := <-c.events.Records:
			c.records = append(c.records, r)
		default:
			return
		}
	}
}

func (c *consoleCollector) promptCaptcha(img []byte) {
	path := filepath.Join(os.TempDir(), "marklens-captcha.png")
	if err := os.WriteFile(path, img, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "could not write captcha image: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "captcha image written to %s\n", path)
	}

	for c.state.AwaitingCaptcha() && c.state.Running() {
		fmt.Fprint(os.Stderr, "enter captcha code (or 'stop' to cancel): ")
		line, err := c.stdin.ReadString('\n')
		if err != nil {
			c.state.Stop()
			return
		}
		code := strings.TrimSpace(line)
		if code == "" {
			continue
		}
		if strings.EqualFold(code, "stop") {
			c.state.Stop()
			return
		}
		if c.state.SubmitCaptcha(code) {
			return
		}
	}
}
