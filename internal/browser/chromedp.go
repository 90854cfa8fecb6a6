// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeRenderer implements Renderer on a dedicated headless Chrome
// instance. Each renderer owns one browser context, so a pool of renderers
// maps one-to-one onto concurrent tabs.
type ChromeRenderer struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	browserCtx  context.Context
	cancel      context.CancelFunc
	config      *Config

	mu    sync.Mutex
	stats Stats
}

// NewChromeRenderer starts a Chrome instance with the given configuration.
func NewChromeRenderer(config *Config) (*ChromeRenderer, error) {
	if config == nil {
		config = DefaultConfig()
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker environments
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	}
	if config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	// Start the browser process eagerly so construction fails fast when
	// Chrome is unavailable.
	if err := chromedp.Run(browserCtx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &ChromeRenderer{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		browserCtx:  browserCtx,
		cancel:      cancel,
		config:      config,
	}, nil
}

// Render navigates to the URL, waits for the page and its client-side
// rendering to settle, then returns the flattened visible text.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	timeout := r.config.Timeout
	if timeout <= 0 {
		timeout = DefaultConfig().Timeout
	}

	runCtx, cancel := context.WithTimeout(r.browserCtx, timeout)
	defer cancel()

	// Propagate caller cancellation into the chromedp run.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(r.config.SettleDelay),
		chromedp.OuterHTML("html", &html),
	)
	elapsed := time.Since(start)

	r.mu.Lock()
	r.stats.TotalTime += elapsed
	if err != nil {
		r.stats.Errors++
	} else {
		r.stats.PagesRendered++
	}
	r.mu.Unlock()

	if err != nil {
		return "", fmt.Errorf("navigation failed for %s: %w", url, err)
	}

	text, err := FlattenHTML(html)
	if err != nil {
		return "", fmt.Errorf("failed to flatten page text: %w", err)
	}
	return text, nil
}

// GetStats returns a copy of the renderer statistics.
func (r *ChromeRenderer) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Close shuts down the browser.
func (r *ChromeRenderer) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}
