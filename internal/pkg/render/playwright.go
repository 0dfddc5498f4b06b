package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher drives Chromium through the Playwright driver. Browsers
// are never downloaded; Config.BrowserPath or the driver's own install is used.
type PlaywrightLauncher struct {
	cfg Config
}

func NewPlaywrightLauncher(cfg Config) *PlaywrightLauncher {
	return &PlaywrightLauncher{cfg: cfg}
}

func (l *PlaywrightLauncher) Name() string {
	return EnginePlaywright
}

func (l *PlaywrightLauncher) Launch(ctx context.Context) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindLaunchFailed, "launch", err)
	}

	pw, err := playwright.Run(&playwright.RunOptions{SkipInstallBrowsers: true})
	if err != nil {
		return nil, newError(KindLaunchFailed, "start driver", err)
	}

	args := make([]string, 0, len(l.cfg.Flags))
	for _, f := range l.cfg.Flags {
		args = append(args, "--"+f)
	}
	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     args,
		Timeout:  playwright.Float(float64(l.cfg.LaunchTimeout.Milliseconds())),
	}
	if l.cfg.BrowserPath != "" {
		opts.ExecutablePath = playwright.String(l.cfg.BrowserPath)
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		if stopErr := pw.Stop(); stopErr != nil {
			slog.Warn("Playwright driver stop error", "error", stopErr)
		}
		return nil, newError(KindLaunchFailed, "launch", err)
	}

	slog.Debug("Chromium launched", "engine", EnginePlaywright, "profile", l.cfg.Profile, "version", browser.Version())
	return &playwrightBrowser{pw: pw, browser: browser, cfg: l.cfg}, nil
}

type playwrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     Config
}

func (b *playwrightBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, newError(KindLaunchFailed, "open page", err)
	}

	opts := playwright.BrowserNewContextOptions{
		IgnoreHttpsErrors: playwright.Bool(b.cfg.IgnoreHTTPSErrors),
	}
	if b.cfg.Viewport != nil {
		opts.Viewport = &playwright.Size{Width: b.cfg.Viewport.Width, Height: b.cfg.Viewport.Height}
	}

	bctx, err := b.browser.NewContext(opts)
	if err != nil {
		return nil, newError(KindLaunchFailed, "open context", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		return nil, newError(KindLaunchFailed, "open page", err)
	}

	return &playwrightPage{bctx: bctx, page: page, cfg: b.cfg}, nil
}

func (b *playwrightBrowser) Close() error {
	return errors.Join(b.browser.Close(), b.pw.Stop())
}

type playwrightPage struct {
	bctx playwright.BrowserContext
	page playwright.Page
	cfg  Config
}

func (p *playwrightPage) Load(ctx context.Context, html string) error {
	if err := ctx.Err(); err != nil {
		return newError(KindNavigationFailed, "set content", err)
	}

	err := p.page.SetContent(html, playwright.PageSetContentOptions{
		Timeout:   playwright.Float(float64(p.cfg.LoadTimeout.Milliseconds())),
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	if err != nil {
		return classifyPlaywright("set content", err, KindNavigationTimeout, KindNavigationFailed)
	}

	if _, err := p.page.Evaluate(waitForImagesJS, p.cfg.ImageTimeout.Milliseconds()); err != nil {
		return classifyPlaywright("wait images", err, KindNavigationTimeout, KindNavigationFailed)
	}
	return nil
}

func (p *playwrightPage) PrintPDF(ctx context.Context) ([]byte, error) {
	type printed struct {
		pdf []byte
		err error
	}
	done := make(chan printed, 1)
	go func() {
		pdf, err := p.page.PDF(playwright.PagePdfOptions{
			Format:              playwright.String("A4"),
			Landscape:           playwright.Bool(false),
			PrintBackground:     playwright.Bool(true),
			DisplayHeaderFooter: playwright.Bool(false),
			Margin: &playwright.Margin{
				Top:    playwright.String("10mm"),
				Right:  playwright.String("10mm"),
				Bottom: playwright.String("10mm"),
				Left:   playwright.String("10mm"),
			},
		})
		done <- printed{pdf: pdf, err: err}
	}()

	// Page.PDF has no timeout option; a stuck print is released when the
	// supervisor closes the page.
	select {
	case res := <-done:
		if res.err != nil {
			return nil, classifyPlaywright("print pdf", res.err, KindRenderTimeout, KindUnknown)
		}
		if err := checkPDF(res.pdf); err != nil {
			return nil, newError(KindUnknown, "print pdf", err)
		}
		return res.pdf, nil
	case <-time.After(p.cfg.PDFTimeout):
		return nil, newError(KindRenderTimeout, "print pdf", fmt.Errorf("no output within %s: %w", p.cfg.PDFTimeout, errTimeout))
	case <-ctx.Done():
		return nil, classify("print pdf", ctx.Err(), KindRenderTimeout, KindUnknown)
	}
}

func (p *playwrightPage) Close() error {
	return errors.Join(p.page.Close(), p.bctx.Close())
}

func classifyPlaywright(op string, err error, onTimeout, otherwise Kind) *Error {
	if errors.Is(err, playwright.ErrTimeout) {
		return newError(onTimeout, op, err)
	}
	return classify(op, err, onTimeout, otherwise)
}
