package render

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultMaxRetries  = 2
	DefaultBackoffBase = time.Second
)

// Result is the outcome of a supervised render. Attempts is set on failure too.
type Result struct {
	PDF      []byte
	Attempts int
}

// Supervisor runs render attempts sequentially with linear backoff. Every
// attempt closes its page and browser before the next one starts.
type Supervisor struct {
	launcher    Launcher
	maxRetries  int
	backoffBase time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

type Option func(*Supervisor)

func WithMaxRetries(n int) Option {
	return func(s *Supervisor) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func WithBackoffBase(d time.Duration) Option {
	return func(s *Supervisor) {
		if d >= 0 {
			s.backoffBase = d
		}
	}
}

// WithSleep replaces the backoff wait. Tests use it to record delays.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Supervisor) {
		s.sleep = fn
	}
}

func NewSupervisor(launcher Launcher, opts ...Option) *Supervisor {
	s := &Supervisor{
		launcher:    launcher,
		maxRetries:  DefaultMaxRetries,
		backoffBase: DefaultBackoffBase,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) Engine() string {
	return s.launcher.Name()
}

// Render returns the PDF from the first successful attempt. When every
// attempt fails, the error of the last attempt is returned unchanged.
func (s *Supervisor) Render(ctx context.Context, html string) (Result, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		started := time.Now()
		pdf, err := s.attempt(ctx, html)
		if err == nil {
			slog.Info("PDF rendered",
				"engine", s.launcher.Name(),
				"attempt", attempt,
				"bytes", len(pdf),
				"duration_ms", time.Since(started).Milliseconds())
			return Result{PDF: pdf, Attempts: attempt}, nil
		}

		lastErr = err
		slog.Warn("PDF render attempt failed",
			"engine", s.launcher.Name(),
			"attempt", attempt,
			"max_retries", s.maxRetries,
			"kind", KindOf(err).String(),
			"error", err)

		if attempt == s.maxRetries {
			return Result{Attempts: attempt}, lastErr
		}

		if err := s.sleep(ctx, s.backoffBase*time.Duration(attempt)); err != nil {
			slog.Warn("PDF render backoff interrupted", "attempt", attempt, "error", err)
			return Result{Attempts: attempt}, lastErr
		}
	}

	return Result{Attempts: s.maxRetries}, lastErr
}

func (s *Supervisor) attempt(ctx context.Context, html string) ([]byte, error) {
	browser, err := s.launcher.Launch(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := browser.Close(); err != nil {
			slog.Error("Render browser close error", "engine", s.launcher.Name(), "error", err)
		}
	}()

	page, err := browser.NewPage(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			slog.Error("Render page close error", "engine", s.launcher.Name(), "error", err)
		}
	}()

	if err := page.Load(ctx, html); err != nil {
		return nil, err
	}
	return page.PrintPDF(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
