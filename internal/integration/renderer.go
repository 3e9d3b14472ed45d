package integration

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// Renderer acquires headless browser sessions. Each session must be closed by the caller.
type Renderer interface {
	Open(ctx context.Context) (Session, error)
}

// Session is a single rendered tab
type Session interface {
	// Navigate and Reload block until the page load event or until ctx is done
	Navigate(ctx context.Context, url string) error
	// WaitReady blocks until an element matching selector exists or timeout passes
	WaitReady(selector string, timeout time.Duration) error
	Reload(ctx context.Context) error
	// HTML returns the current outer HTML of the document
	HTML() (string, error)
	Close() error
}

// ChromeRenderer starts a headless Chrome per session through chromedp
type ChromeRenderer struct {
	execPath string
}

// NewChromeRenderer creates a renderer. An empty execPath lets chromedp find Chrome on PATH.
func NewChromeRenderer(execPath string) *ChromeRenderer {
	return &ChromeRenderer{execPath: execPath}
}

// Open launches a fresh browser process and tab
func (r *ChromeRenderer) Open(ctx context.Context) (Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// The first Run starts the browser; it must happen on tabCtx itself so that
	// later per-call timeout contexts do not own the browser lifetime.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start headless chrome: %w", err)
	}
	log.Printf("Headless chrome session started")

	return &chromeSession{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}, nil
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// bound derives a tab context that carries the deadline and cancellation of ctx
func (s *chromeSession) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(s.ctx)
	if deadline, ok := ctx.Deadline(); ok {
		cancel()
		runCtx, cancel = context.WithDeadline(s.ctx, deadline)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := s.bound(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitReady(selector string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	return chromedp.Run(ctx, chromedp.WaitReady(selector, chromedp.ByQuery))
}

func (s *chromeSession) Reload(ctx context.Context) error {
	runCtx, cancel := s.bound(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Reload())
}

func (s *chromeSession) HTML() (string, error) {
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromeSession) Close() error {
	s.cancel()
	log.Printf("Headless chrome session closed")
	return nil
}
