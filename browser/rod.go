package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// browserProcess is the part of *launcher.Launcher that manages the Chromium
// process. Cleanup waits for the process to exit.
type browserProcess interface {
	Kill()
	Cleanup()
}

const (
	domSettle       = 3 * time.Second
	domStableWindow = 300 * time.Millisecond
	// domStableDiff is the fraction of the DOM allowed to change within
	// domStableWindow.
	domStableDiff = 0.05
)

type rodDriver struct {
	proc    browserProcess
	browser *rod.Browser
	pg      *RodPage
}

func launchRod(ctx context.Context, opts Options, logger *slog.Logger) (*rodDriver, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("window-size", fmt.Sprintf("%d,%d", ViewportWidth, ViewportHeight))
	if opts.BinPath != "" {
		l = l.Bin(opts.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	logger.Debug("rod launcher started", "control_url", controlURL)

	d := &rodDriver{proc: l}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		_ = d.close()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	d.browser = browser

	page, err := d.browser.Context(ctx).Timeout(opts.DefaultTimeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = d.close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page = page.CancelTimeout().Context(context.Background())

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             ViewportWidth,
		Height:            ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = d.close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	d.pg = &RodPage{page: page, defaultTimeout: opts.DefaultTimeout}
	return d, nil
}

func (d *rodDriver) page() Page { return d.pg }

// close shuts the browser down. The process is killed unless the browser
// closed itself, so Cleanup never waits on a live Chromium.
func (d *rodDriver) close() error {
	var errs []error
	if d.pg != nil {
		errs = append(errs, d.pg.page.Close())
	}
	exited := false
	if d.browser != nil {
		err := d.browser.Close()
		errs = append(errs, err)
		exited = err == nil
	}
	if !exited {
		d.proc.Kill()
	}
	d.proc.Cleanup()
	return errors.Join(errs...)
}

// RodPage adapts a go-rod page to Page.
type RodPage struct {
	page           *rod.Page
	defaultTimeout time.Duration
}

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	tctx, cancel := context.WithTimeout(ctx, p.defaultTimeout)
	defer cancel()

	pg := p.page.Context(tctx)
	if err := pg.Navigate(url); err != nil {
		return p.wrap(ctx, url, err)
	}
	if err := pg.WaitLoad(); err != nil {
		return p.wrap(ctx, url, err)
	}
	return p.settle(ctx)
}

// settle gives client-side rendering a moment to calm down. Pages that keep
// changing are accepted once domSettle passes.
func (p *RodPage) settle(ctx context.Context) error {
	sctx, cancel := context.WithTimeout(ctx, domSettle)
	defer cancel()
	return settleResult(ctx, p.page.Context(sctx).WaitDOMStable(domStableWindow, domStableDiff))
}

// settleResult drops the settle timeout and keeps cancellation of ctx.
func settleResult(ctx context.Context, err error) error {
	if err == nil || ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (p *RodPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := p.element(tctx, selector)
	if err == nil {
		err = el.WaitVisible()
	}
	return p.wrap(ctx, selector, err)
}

func (p *RodPage) Count(ctx context.Context, selector string) (int, error) {
	css, text := splitHasText(selector)
	els, err := p.page.Context(ctx).Elements(css)
	if err != nil {
		return 0, err
	}
	if text == "" {
		return len(els), nil
	}
	n := 0
	for _, el := range els {
		if t, err := el.Text(); err == nil && strings.Contains(t, text) {
			n++
		}
	}
	return n, nil
}

func (p *RodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *RodPage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := p.element(tctx, selector)
	if err == nil {
		err = el.Click(proto.InputMouseButtonLeft, 1)
	}
	return p.wrap(ctx, selector, err)
}

func (p *RodPage) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := p.element(tctx, selector)
	if err == nil {
		err = el.SelectAllText()
	}
	if err == nil {
		err = el.Input(value)
	}
	return p.wrap(ctx, selector, err)
}

func (p *RodPage) SetFiles(ctx context.Context, selector string, paths []string, timeout time.Duration) error {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := p.element(tctx, selector)
	if err == nil {
		err = el.SetFiles(paths)
	}
	return p.wrap(ctx, selector, err)
}

var rodKeys = map[string]input.Key{
	"Enter":     input.Enter,
	"Escape":    input.Escape,
	"Tab":       input.Tab,
	"Backspace": input.Backspace,
}

func (p *RodPage) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, ok := rodKeys[key]
	if !ok {
		return fmt.Errorf("unsupported key %q", key)
	}
	return p.page.Keyboard.Type(k)
}

func (p *RodPage) ScrollToBottom(ctx context.Context) error {
	_, err := p.page.Context(ctx).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *RodPage) element(ctx context.Context, selector string) (*rod.Element, error) {
	css, text := splitHasText(selector)
	pg := p.page.Context(ctx)
	if text == "" {
		return pg.Element(css)
	}
	return pg.ElementR(css, regexp.QuoteMeta(text))
}

// wrap reports an expired per-call deadline as ErrTimeout while leaving
// cancellation of the caller's own context untouched.
func (p *RodPage) wrap(ctx context.Context, target string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		return timeoutError(target, err)
	}
	return err
}
