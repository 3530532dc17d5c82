package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"xhsmcp/browser"
	"xhsmcp/config"
)

// version is overridden at build time with -ldflags "-X ...commands.version=".
var version = "dev"

var (
	configPath string
	headless   bool
	binPath    string
	driver     string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "xhs-mcp",
	Short:         "xhs-mcp drives a Xiaohongshu browser session over HTTP and MCP.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	pf.BoolVar(&headless, "headless", true, "run the browser without a window")
	pf.StringVar(&binPath, "bin", "", "path to a Chromium binary")
	pf.StringVar(&driver, "driver", "", "browser driver: playwright or rod")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and environment, then applies flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("headless") {
		cfg.Browser.Headless = headless
	}
	if flags.Changed("bin") {
		cfg.Browser.BinPath = binPath
	}
	if flags.Changed("driver") {
		cfg.Browser.Driver = driver
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return cfg, cfg.Validate()
}

func initSlog(level slog.Level) *slog.Logger {
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)
	return logger
}

func openBrowser(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*browser.Session, error) {
	session, err := browser.Open(ctx, browser.Options{
		Driver:         cfg.Browser.Driver,
		Headless:       cfg.Browser.Headless,
		BinPath:        cfg.Browser.BinPath,
		DefaultTimeout: cfg.Browser.DefaultTimeout,
		InstallDriver:  cfg.Browser.InstallDriver,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return session, nil
}
