package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/document"
	"github.com/jackzampolin/folio/internal/export"
	"github.com/jackzampolin/folio/internal/extract"
	"github.com/jackzampolin/folio/internal/llmcall"
	"github.com/jackzampolin/folio/internal/pdf"
	"github.com/jackzampolin/folio/internal/providers"
	"github.com/jackzampolin/folio/internal/workspace"
)

var (
	extractPages     string
	extractTranslate bool
	extractLanguage  string
	extractProvider  string
	extractFormats   []string
	extractOut       string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.pdf>",
	Short: "Extract a PDF locally without a server",
	Long: `Extract a scanned PDF in one shot and write the exports.

Pages are processed in order with the configured provider. Failed pages
are retried with a growing backoff and then marked as errors; the run
continues with the next page. Ctrl+C stops after the current page and
still writes exports for what finished.

Examples:
  folio extract scan.pdf                             # HTML next to the current directory
  folio extract scan.pdf --pages 1-10 --format md,epub
  folio extract scan.pdf --translate --language fr --provider anthropic`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractPages, "pages", "", "Pages to process, e.g. 1-3,7 (default: all)")
	extractCmd.Flags().BoolVar(&extractTranslate, "translate", false, "Translate while transcribing")
	extractCmd.Flags().StringVar(&extractLanguage, "language", "", "Target language name or code (implies --translate)")
	extractCmd.Flags().StringVar(&extractProvider, "provider", "", "Provider to use (default: configured provider)")
	extractCmd.Flags().StringSliceVar(&extractFormats, "format", []string{"html"}, "Export formats: html, doc, md, epub")
	extractCmd.Flags().StringVar(&extractOut, "out", ".", "Output directory")

	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	formats := make([]export.Format, 0, len(extractFormats))
	for _, name := range extractFormats {
		f, err := export.ParseFormat(name)
		if err != nil {
			return err
		}
		formats = append(formats, f)
	}

	logger := newLogger()
	h, err := getHome()
	if err != nil {
		return err
	}
	cfgMgr, err := loadConfig(h, logger)
	if err != nil {
		return err
	}
	cfg := cfgMgr.Get()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.Reload(cfg.ToProviderRegistryConfig())

	wsCfg := workspace.Config{
		Registry: registry,
		Engine: extract.Config{
			MaxAttempts:    cfg.Engine.MaxAttempts,
			BackoffBase:    cfg.Engine.BackoffBase(),
			InterPageDelay: cfg.Engine.InterPageDelay(),
			RenderScale:    cfg.Render.Scale,
		},
		Render: pdf.Options{
			Backend:     pdf.Backend(cfg.Render.Backend),
			JPEGQuality: cfg.Render.JPEGQuality,
		},
		MaxBytes:       cfg.Upload.MaxBytes,
		Provider:       extractProvider,
		Translate:      cfg.Defaults.Translate,
		TargetLanguage: cfg.Defaults.TargetLanguage,
		Logger:         logger,
	}

	if cfg.Engine.RecordCalls {
		store, err := llmcall.Open(h.LLMCallsDBPath())
		if err != nil {
			return fmt.Errorf("failed to open call store: %w", err)
		}
		defer store.Close()
		recorder := llmcall.NewRecorder(llmcall.RecorderConfig{Store: store, Logger: logger})
		recorder.Start()
		defer recorder.Stop()
		wsCfg.Recorder = recorder
	}

	ws := workspace.New(wsCfg)
	defer ws.Close()

	if extractProvider != "" && !registry.Has(extractProvider) {
		return fmt.Errorf("provider %q is not configured (available: %v)", extractProvider, registry.List())
	}

	ctx := cmd.Context()
	s, err := ws.Load(ctx, filepath.Base(args[0]), data)
	if err != nil {
		return err
	}
	doc := s.Document

	pages, err := parsePageRanges(extractPages, doc.PageCount())
	if err != nil {
		return err
	}
	doc.SetAllSelected(false)
	for _, n := range pages {
		if _, err := doc.SetSelected(n, true); err != nil {
			return err
		}
	}

	if extractTranslate || extractLanguage != "" {
		if err := doc.SetTranslation(true, extractLanguage); err != nil {
			return err
		}
	}

	enabled, lang := doc.Translation()
	mode := "transcribe"
	if enabled {
		mode = "translate to " + lang
	}
	fmt.Fprintf(os.Stderr, "%s %s: %d of %d pages, %s, provider %s\n",
		color.CyanString("folio"), s.FileName, len(pages), doc.PageCount(), mode, ws.Provider())

	events, unsubscribe := doc.Subscribe()
	defer unsubscribe()

	bar := progressbar.NewOptions(len(pages),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
	)

	// The run outlives the first interrupt, which only requests a stop.
	if err := ws.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	finished := make(chan struct{})
	go func() {
		s.Engine.Wait()
		close(finished)
	}()

	interrupted := ctx.Done()
	for running := true; running; {
		select {
		case <-interrupted:
			interrupted = nil
			bar.Describe("stopping")
			_ = ws.Stop()
		case ev, ok := <-events:
			if !ok {
				running = false
				break
			}
			if ev.Page == nil {
				continue
			}
			bar.Describe(fmt.Sprintf("page %d", ev.Page.Number))
			_ = bar.Set(selectedFinished(doc))
		case <-finished:
			running = false
		}
	}
	_ = bar.Finish()

	sum := s.Engine.LastSummary()
	if sum == nil {
		return errors.New("run did not produce a summary")
	}
	printSummary(sum, doc.Stats())

	if err := os.MkdirAll(extractOut, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", extractOut, err)
	}
	for _, f := range formats {
		out, name, err := s.Export(f)
		if err != nil {
			var ve *export.ValidationError
			if errors.As(err, &ve) {
				fmt.Fprintf(os.Stderr, "%s %s: %v\n", color.YellowString("skipped"), f, err)
				continue
			}
			return err
		}
		path := filepath.Join(extractOut, name)
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Printf("%s %s (%d bytes)\n", color.GreenString("wrote"), path, len(out))
	}

	if sum.Failed > 0 {
		return fmt.Errorf("%d pages failed", sum.Failed)
	}
	return nil
}

func selectedFinished(doc *document.Document) int {
	n := 0
	for _, p := range doc.Pages() {
		if p.Selected && (p.Status == document.StatusDone || p.Status == document.StatusError) {
			n++
		}
	}
	return n
}

func printSummary(sum *extract.Summary, st document.Stats) {
	status := color.GreenString("finished")
	if sum.Stopped {
		status = color.YellowString("stopped")
	}
	failed := fmt.Sprintf("%d failed", sum.Failed)
	if sum.Failed > 0 {
		failed = color.RedString(failed)
	}
	fmt.Fprintf(os.Stderr, "%s: %d done, %s, %d attempts, %d words in %s\n",
		status, sum.Done, failed, sum.Attempts, st.Words, sum.Duration.Round(time.Second))
}
