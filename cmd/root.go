package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"browseq/internal/banner"
	"browseq/internal/browser"
	"browseq/internal/cli"
	"browseq/internal/logging"
	"browseq/internal/runner"
	"browseq/internal/storage"
	"browseq/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "browseq",
	Short: "browseq - headless browser session load tester",
	Long: `
browseq opens many short-lived headless Chrome sessions against a URL,
waits for the page, scrolls, collects cookies and reports the average
session duration.

It runs in two modes:
1. CLI Mode: pass --url for a headless run with a progress line (CI friendly)
2. TUI Mode: no --url, or --tui, for an interactive dashboard`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromViper()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cfg.URL == "" || viper.GetBool("tui") {
			return runTUI(cfg)
		}
		return runHeadless(ctx, cfg)
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd)
	rootCmd.AddCommand(historyCmd)

	defaults := runner.DefaultConfig()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.browseq.yaml)")
	pf.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	pf.String("log-format", "console", "Log format: console or json")
	pf.String("log-file", "", "Write logs to this file (TUI mode discards logs otherwise)")
	pf.String("history-file", "", "History database (default is $HOME/.browseq/history.db)")

	f := rootCmd.Flags()
	f.StringP("url", "u", "", "Target URL, may contain {{uuid}} / {{sessionID}} templates (enables CLI mode)")
	f.IntP("requests", "n", defaults.NumRequests, "Number of browser sessions to run")
	f.IntP("threads", "c", defaults.Workers, "Number of concurrent sessions")
	f.Bool("headless", !defaults.Headed, "Run Chrome headless")
	f.Duration("nav-timeout", defaults.NavTimeout, "Navigation timeout per session")
	f.Duration("ready-timeout", defaults.ReadyTimeout, "Readiness wait timeout per session")
	f.String("ready-selector", defaults.ReadySelector, "CSS selector that marks the page as ready")
	f.Duration("dwell", defaults.DwellPause, "Pause after scrolling, simulating time on page (0 disables)")
	f.Float64("scroll", defaults.DwellFraction, "Fraction of the page height to scroll to")
	f.String("chrome-path", "", "Chrome executable (default: auto-detect)")
	f.String("user-agent", "", "Fixed user agent (default: random per session)")
	f.StringP("out", "o", "", "Output filename prefix for CSV/JSON reports")
	f.Bool("history", false, "Record the run in the history database")
	f.Bool("tui", false, "Show the interactive dashboard even when --url is set")

	viper.BindPFlags(pf)
	viper.BindPFlags(f)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".browseq")
		}
	}
	viper.SetEnvPrefix("browseq")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "reading config %s: %v\n", cfgFile, err)
		}
	}
}

func configFromViper() runner.Config {
	cfg := runner.DefaultConfig()
	cfg.URL = viper.GetString("url")
	cfg.NumRequests = viper.GetInt("requests")
	cfg.Workers = viper.GetInt("threads")
	cfg.Headed = !viper.GetBool("headless")
	cfg.NavTimeout = viper.GetDuration("nav-timeout")
	cfg.ReadyTimeout = viper.GetDuration("ready-timeout")
	cfg.ReadySelector = viper.GetString("ready-selector")
	cfg.DwellPause = viper.GetDuration("dwell")
	if cfg.DwellPause <= 0 {
		cfg.DwellPause = runner.NoDwellPause
	}
	cfg.DwellFraction = viper.GetFloat64("scroll")
	cfg.ExecPath = viper.GetString("chrome-path")
	cfg.UserAgent = viper.GetString("user-agent")
	cfg.OutPrefix = viper.GetString("out")
	return cfg
}

// newLogger builds the process logger. Logs go to --log-file when set and to
// fallback otherwise.
func newLogger(fallback io.Writer) (zerolog.Logger, func(), error) {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(viper.GetString("log-level"))
	lc.Format = viper.GetString("log-format")
	lc.Output = fallback

	path := viper.GetString("log-file")
	if path == "" {
		return logging.New(lc), func() {}, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), func() {}, fmt.Errorf("open log file: %w", err)
	}
	lc.Output = f
	return logging.New(lc), func() { f.Close() }, nil
}

func openHistory(force bool) (*storage.Store, error) {
	if !force && !viper.GetBool("history") {
		return nil, nil
	}
	path := viper.GetString("history-file")
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return storage.NewStore(path)
}

// --- Runners ---

func runHeadless(ctx context.Context, cfg runner.Config) error {
	log, closeLog, err := newLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := openHistory(false)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	return cli.Start(ctx, cfg, cli.Options{
		Launcher: browser.NewChromeLauncher(),
		Log:      log,
		History:  store,
	})
}

func runTUI(cfg runner.Config) error {
	log, closeLog, err := newLogger(io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := openHistory(false)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	m := tui.NewModel(cfg, tui.Deps{
		Launcher: browser.NewChromeLauncher(),
		Log:      log,
		History:  store,
	}, cfg.URL != "")

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running browseq: %w", err)
	}
	return nil
}
