package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"xhsmcp/xiaohongshu"
)

var loginTimeout time.Duration

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check that a manual sign-in works in a fresh browser window.",
	Long: `Open a browser window and wait for a manual sign-in.

The browser is closed when the command exits, and the session is not kept.
To sign in the browser that serves requests, start "xhs-mcp serve --headless=false"
and call POST /api/v1/login on it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		// A person has to scan the QR code, so the window is shown unless
		// --headless was given explicitly.
		if !cmd.Flags().Changed("headless") {
			cfg.Browser.Headless = false
		}
		if cmd.Flags().Changed("timeout") {
			cfg.Login.WaitTimeout = loginTimeout
		}
		logger := initSlog(cfg.SlogLevel())

		session, err := openBrowser(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer session.Close()

		svc := xiaohongshu.NewService(session.Page(), logger)
		logger.Info("waiting for sign-in", "timeout", cfg.Login.WaitTimeout)
		if err := svc.Login(cmd.Context(), cfg.Login.WaitTimeout, cfg.Login.PollInterval); err != nil {
			return err
		}
		logger.Info("signed in; this session ends with the command, use POST /api/v1/login on a running server to keep one")
		return nil
	},
}

var checkLoginCmd = &cobra.Command{
	Use:   "check-login",
	Short: "Print the current login status as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := initSlog(cfg.SlogLevel())

		session, err := openBrowser(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer session.Close()

		status, err := xiaohongshu.NewService(session.Page(), logger).CheckLoginStatus(cmd.Context())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			return fmt.Errorf("encode status: %w", err)
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "how long to wait for the sign-in")
	rootCmd.AddCommand(loginCmd, checkLoginCmd)
}
