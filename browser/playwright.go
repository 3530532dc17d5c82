package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	pw "github.com/playwright-community/playwright-go"
)

type playwrightDriver struct {
	pw      *pw.Playwright
	browser pw.Browser
	bctx    pw.BrowserContext
	pg      *PlaywrightPage
}

func launchPlaywright(opts Options, logger *slog.Logger) (*playwrightDriver, error) {
	if opts.InstallDriver {
		logger.Info("installing playwright chromium (one-time setup)")
		if err := pw.Install(&pw.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			logger.Warn("playwright install failed, continuing", "err", err)
		}
	}

	inst, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	d := &playwrightDriver{pw: inst}

	launch := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(opts.Headless),
		Args:     LaunchArgs,
	}
	if opts.BinPath != "" {
		launch.ExecutablePath = pw.String(opts.BinPath)
	}
	if d.browser, err = inst.Chromium.Launch(launch); err != nil {
		_ = d.close()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	d.bctx, err = d.browser.NewContext(pw.BrowserNewContextOptions{
		Viewport: &pw.Size{Width: ViewportWidth, Height: ViewportHeight},
	})
	if err != nil {
		_ = d.close()
		return nil, fmt.Errorf("new browser context: %w", err)
	}

	page, err := d.bctx.NewPage()
	if err != nil {
		_ = d.close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	page.SetDefaultTimeout(float64(opts.DefaultTimeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(opts.DefaultTimeout.Milliseconds()))

	d.pg = &PlaywrightPage{page: page, defaultTimeout: opts.DefaultTimeout}
	return d, nil
}

func (d *playwrightDriver) page() Page { return d.pg }

func (d *playwrightDriver) close() error {
	var errs []error
	if d.pg != nil {
		errs = append(errs, d.pg.page.Close())
	}
	if d.bctx != nil {
		errs = append(errs, d.bctx.Close())
	}
	if d.browser != nil {
		errs = append(errs, d.browser.Close())
	}
	if d.pw != nil {
		errs = append(errs, d.pw.Stop())
	}
	return errors.Join(errs...)
}

// PlaywrightPage adapts a playwright page to Page.
type PlaywrightPage struct {
	page           pw.Page
	defaultTimeout time.Duration
}

func (p *PlaywrightPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateDomcontentloaded,
		Timeout:   pw.Float(budget(ctx, p.defaultTimeout)),
	})
	if err != nil {
		return p.wrap(url, err)
	}
	return nil
}

func (p *PlaywrightPage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateVisible,
		Timeout: pw.Float(budget(ctx, timeout)),
	})
	return p.wrap(selector, err)
}

func (p *PlaywrightPage) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.page.Locator(selector).Count()
}

func (p *PlaywrightPage) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *PlaywrightPage) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().Click(pw.LocatorClickOptions{
		Timeout: pw.Float(budget(ctx, timeout)),
	})
	return p.wrap(selector, err)
}

func (p *PlaywrightPage) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().Fill(value, pw.LocatorFillOptions{
		Timeout: pw.Float(budget(ctx, timeout)),
	})
	return p.wrap(selector, err)
}

func (p *PlaywrightPage) SetFiles(ctx context.Context, selector string, paths []string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.page.Locator(selector).First().SetInputFiles(paths, pw.LocatorSetInputFilesOptions{
		Timeout: pw.Float(budget(ctx, timeout)),
	})
	return p.wrap(selector, err)
}

func (p *PlaywrightPage) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Press(key)
}

func (p *PlaywrightPage) ScrollToBottom(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Evaluate(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

func (p *PlaywrightPage) wrap(target string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pw.ErrTimeout) {
		return timeoutError(target, err)
	}
	return err
}

// budget clamps timeout to whatever is left of the context deadline and
// returns it in milliseconds.
func budget(ctx context.Context, timeout time.Duration) float64 {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout < time.Millisecond {
		timeout = time.Millisecond
	}
	return float64(timeout.Milliseconds())
}
