// Package render turns a self-contained HTML document into PDF bytes using a
// headless Chromium. Each attempt owns its own browser process and page.
package render

import (
	"bytes"
	"context"
	"fmt"
)

// Launcher starts an isolated browser process.
type Launcher interface {
	Name() string
	Launch(ctx context.Context) (Browser, error)
}

// Browser is one running browser process.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single tab holding the document being printed.
type Page interface {
	// Load replaces the page content and blocks until the network is idle
	// and every image has loaded, failed, or hit the per-image timeout.
	Load(ctx context.Context, html string) error
	PrintPDF(ctx context.Context) ([]byte, error)
	Close() error
}

const (
	EngineRod        = "rod"
	EnginePlaywright = "playwright"
)

// NewLauncher returns the launcher for the named engine.
func NewLauncher(engine string, cfg Config) (Launcher, error) {
	switch engine {
	case EngineRod:
		return NewRodLauncher(cfg), nil
	case EnginePlaywright:
		return NewPlaywrightLauncher(cfg), nil
	default:
		return nil, fmt.Errorf("unknown render engine %q", engine)
	}
}

// waitForImagesJS resolves once every <img> has loaded or errored, or after
// timeout ms for that image. A broken image never fails the page.
const waitForImagesJS = `(timeout) => Promise.all(Array.from(document.images).map((img) => {
	if (img.complete) return true;
	return new Promise((resolve) => {
		const done = () => resolve(true);
		img.addEventListener('load', done, { once: true });
		img.addEventListener('error', done, { once: true });
		setTimeout(done, timeout);
	});
}))`

var pdfMagic = []byte("%PDF-")

func checkPDF(pdf []byte) error {
	if !bytes.HasPrefix(pdf, pdfMagic) {
		return fmt.Errorf("output is not a PDF (got %d bytes)", len(pdf))
	}
	return nil
}
