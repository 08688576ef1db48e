package main

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/folio/internal/api"
	"github.com/jackzampolin/folio/internal/config"
	"github.com/jackzampolin/folio/internal/home"
	"github.com/jackzampolin/folio/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	debug        bool
	noColor      bool
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Scanned PDF to HTML with vision OCR and translation",
	Long: `folio turns scanned PDFs into editable HTML.

Each page is rendered to an image and sent to a vision model that
transcribes it, optionally translating into a target language. Pages
are processed one at a time with retries, and a stopped run resumes at
the first unfinished page.

Results can be edited page by page and exported as HTML, Word, Markdown
or EPUB.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.folio/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "folio home directory (default: ~/.folio)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "text", "output format: text, yaml or json",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// API keys may live in a .env file next to the config.
		_ = godotenv.Load()
		if noColor {
			color.NoColor = true
		}
		return api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger returns the text logger used by long-running commands.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// getHome resolves and creates the home directory.
func getHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return h, nil
}

// loadConfig opens the config manager for the resolved home directory.
func loadConfig(h *home.Dir, logger *slog.Logger) (*config.Manager, error) {
	cfgMgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, err
	}
	cfgMgr.SetLogger(logger)
	if f := cfgMgr.ConfigFile(); f != "" {
		logger.Debug("loaded config", "file", f)
	}
	return cfgMgr, nil
}
