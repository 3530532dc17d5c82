// Package xiaohongshu drives the site through a ContentSource and turns the
// rendered markup into structured records.
package xiaohongshu

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

var (
	// ErrInvalidArgument marks a request rejected before the page is touched.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrLoginTimeout is returned when a manual login does not finish in time.
	ErrLoginTimeout = errors.New("login timed out")
)

// ContentSource is the page the actions run against. browser.PlaywrightPage
// and browser.RodPage satisfy it.
type ContentSource interface {
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

type timings struct {
	pageLoad      time.Duration
	loginProbe    time.Duration
	poll          time.Duration
	scrollGrowth  time.Duration
	optionalClick time.Duration
	field         time.Duration
	sendButton    time.Duration
	uploadWait    time.Duration
	step          time.Duration
}

var defaultTimings = timings{
	pageLoad:      10 * time.Second,
	loginProbe:    4 * time.Second,
	poll:          250 * time.Millisecond,
	scrollGrowth:  5 * time.Second,
	optionalClick: 5 * time.Second,
	field:         5 * time.Second,
	sendButton:    3 * time.Second,
	uploadWait:    15 * time.Second,
	step:          3 * time.Second,
}

// Service runs the site actions. It is not safe for concurrent use: callers
// serialize access to the underlying page.
type Service struct {
	src    ContentSource
	logger *slog.Logger
	t      timings
}

func NewService(src ContentSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{src: src, logger: logger.With("component", "xiaohongshu"), t: defaultTimings}
}
