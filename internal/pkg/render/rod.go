package render

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
)

// RodLauncher drives Chromium over CDP with go-rod.
type RodLauncher struct {
	cfg Config
}

func NewRodLauncher(cfg Config) *RodLauncher {
	return &RodLauncher{cfg: cfg}
}

func (l *RodLauncher) Name() string {
	return EngineRod
}

func (l *RodLauncher) Launch(ctx context.Context) (Browser, error) {
	lc := launcher.New().
		Headless(true).
		Leakless(l.cfg.Leakless)

	if l.cfg.BrowserPath != "" {
		lc = lc.Bin(l.cfg.BrowserPath)
	}
	for _, f := range l.cfg.Flags {
		lc = lc.Set(flags.Flag(f))
	}

	type launched struct {
		url string
		err error
	}
	done := make(chan launched, 1)
	go func() {
		u, err := lc.Launch()
		done <- launched{url: u, err: err}
	}()

	var controlURL string
	select {
	case res := <-done:
		if res.err != nil {
			return nil, newError(KindLaunchFailed, "launch", res.err)
		}
		controlURL = res.url
	case <-time.After(l.cfg.LaunchTimeout):
		discard(lc)
		return nil, newError(KindLaunchFailed, "launch", fmt.Errorf("browser did not start within %s: %w", l.cfg.LaunchTimeout, errTimeout))
	case <-ctx.Done():
		discard(lc)
		return nil, newError(KindLaunchFailed, "launch", ctx.Err())
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		discard(lc)
		return nil, newError(KindLaunchFailed, "connect", err)
	}

	slog.Debug("Chromium launched", "engine", EngineRod, "profile", l.cfg.Profile, "pid", lc.PID())
	return &rodBrowser{browser: browser, launcher: lc, cfg: l.cfg}, nil
}

// browserProcess is the part of *launcher.Launcher needed to tear down a
// process that never became usable.
type browserProcess interface {
	Kill()
	Cleanup()
}

// discard kills the process and removes its user data dir. Cleanup blocks
// until the process has exited, so it runs in the background; the returned
// channel is closed once the directory is gone.
func discard(p browserProcess) <-chan struct{} {
	p.Kill()
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Cleanup()
	}()
	return done
}

type rodBrowser struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	cfg      Config
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, newError(KindLaunchFailed, "open page", err)
	}

	if b.cfg.Viewport != nil {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             b.cfg.Viewport.Width,
			Height:            b.cfg.Viewport.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			_ = page.Close()
			return nil, newError(KindLaunchFailed, "set viewport", err)
		}
	}
	if b.cfg.IgnoreHTTPSErrors {
		if err := (proto.SecuritySetIgnoreCertificateErrors{Ignore: true}).Call(page); err != nil {
			_ = page.Close()
			return nil, newError(KindLaunchFailed, "ignore certificate errors", err)
		}
	}

	return &rodPage{page: page, cfg: b.cfg}, nil
}

func (b *rodBrowser) Close() error {
	err := b.browser.Close()
	if err != nil {
		b.launcher.Kill()
	}
	b.launcher.Cleanup()
	return err
}

type rodPage struct {
	page *rod.Page
	cfg  Config
}

func (p *rodPage) Load(ctx context.Context, html string) error {
	page := p.page.Context(ctx).Timeout(p.cfg.LoadTimeout)
	defer page.CancelTimeout()

	waitIdle := page.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)
	if err := page.SetDocumentContent(html); err != nil {
		return classify("set content", err, KindNavigationTimeout, KindNavigationFailed)
	}
	waitIdle()

	if err := page.WaitLoad(); err != nil {
		return classify("wait load", err, KindNavigationTimeout, KindNavigationFailed)
	}
	if _, err := page.Eval(waitForImagesJS, p.cfg.ImageTimeout.Milliseconds()); err != nil {
		return classify("wait images", err, KindNavigationTimeout, KindNavigationFailed)
	}
	return nil
}

func (p *rodPage) PrintPDF(ctx context.Context) ([]byte, error) {
	page := p.page.Context(ctx).Timeout(p.cfg.PDFTimeout)
	defer page.CancelTimeout()

	f := func(x float64) *float64 { return &x }
	stream, err := page.PDF(&proto.PagePrintToPDF{
		Landscape:           false,
		DisplayHeaderFooter: false,
		PrintBackground:     true,
		PreferCSSPageSize:   false,
		PaperWidth:          f(paperWidthIn),
		PaperHeight:         f(paperHeightIn),
		MarginTop:           f(marginIn),
		MarginBottom:        f(marginIn),
		MarginLeft:          f(marginIn),
		MarginRight:         f(marginIn),
	})
	if err != nil {
		return nil, classify("print pdf", err, KindRenderTimeout, KindUnknown)
	}

	pdf, err := io.ReadAll(stream)
	if err != nil {
		return nil, classify("read pdf stream", err, KindRenderTimeout, KindUnknown)
	}
	if err := checkPDF(pdf); err != nil {
		return nil, newError(KindUnknown, "print pdf", err)
	}
	return pdf, nil
}

func (p *rodPage) Close() error {
	return p.page.Close()
}
