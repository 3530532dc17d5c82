// Package browser owns the single headless Chromium instance and the one page
// every action drives.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrTimeout is wrapped by every element wait that expires.
var ErrTimeout = errors.New("browser: timed out")

const (
	DriverPlaywright = "playwright"
	DriverRod        = "rod"

	ViewportWidth  = 1920
	ViewportHeight = 1080

	DefaultTimeout = 60 * time.Second
)

// LaunchArgs are passed to Chromium regardless of driver.
var LaunchArgs = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-gpu",
	fmt.Sprintf("--window-size=%d,%d", ViewportWidth, ViewportHeight),
}

type Options struct {
	Driver         string
	Headless       bool
	BinPath        string
	DefaultTimeout time.Duration
	// InstallDriver downloads the playwright driver and Chromium on first use.
	InstallDriver bool
}

// Page is the surface the actions are written against.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Count(ctx context.Context, selector string) (int, error)
	HTML(ctx context.Context) (string, error)
	Click(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error
	SetFiles(ctx context.Context, selector string, paths []string, timeout time.Duration) error
	Press(ctx context.Context, key string) error
	ScrollToBottom(ctx context.Context) error
}

type driver interface {
	page() Page
	close() error
}

// Session holds one browser, one context and one page for the lifetime of
// the process.
type Session struct {
	drv    driver
	logger *slog.Logger
}

// Open launches the browser. There is no retry: a launch failure is returned
// after any partially created resources are released.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultTimeout
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("launching browser", "driver", opts.Driver, "headless", opts.Headless, "bin", opts.BinPath)

	var (
		drv driver
		err error
	)
	switch opts.Driver {
	case "", DriverPlaywright:
		drv, err = launchPlaywright(opts, logger)
	case DriverRod:
		drv, err = launchRod(ctx, opts, logger)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", opts.Driver)
	}
	if err != nil {
		logger.Error("browser launch failed", "err", err)
		return nil, err
	}
	return &Session{drv: drv, logger: logger}, nil
}

func (s *Session) Page() Page {
	return s.drv.page()
}

func (s *Session) Close() {
	if err := s.drv.close(); err != nil {
		s.logger.Error("closing browser", "err", err)
	}
}

func timeoutError(selector string, err error) error {
	return fmt.Errorf("%w waiting for %q: %v", ErrTimeout, selector, err)
}
