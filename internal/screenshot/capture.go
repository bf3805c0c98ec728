// Package screenshot captures full-page screenshots of analyzed websites
// with a headless Chrome instance and slices them into 16:9 chunks for the
// AI request. Capture is best-effort: callers treat any error here as
// "analyze without a screenshot", never as a fatal condition.
package screenshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Capturer owns a lazily started browser connection. It is safe for
// concurrent use; pages are isolated per capture.
type Capturer struct {
	controlURL string
	navTimeout time.Duration

	mu      sync.Mutex
	browser *rod.Browser
}

// NewCapturer builds a Capturer. When controlURL is empty a headless Chrome
// is launched on first use; otherwise the capturer attaches to the given
// DevTools websocket URL.
func NewCapturer(controlURL string, navTimeout time.Duration) *Capturer {
	if navTimeout <= 0 {
		navTimeout = 30 * time.Second
	}
	return &Capturer{controlURL: controlURL, navTimeout: navTimeout}
}

func (c *Capturer) ensureBrowser() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		return c.browser, nil
	}

	controlURL := c.controlURL
	if controlURL == "" {
		u, err := launcher.New().Headless(true).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	c.browser = browser
	return browser, nil
}

// Capture opens the target URL in a fresh page, waits for the load event,
// and returns a full-page PNG.
func (c *Capturer) Capture(ctx context.Context, targetURL string) ([]byte, error) {
	browser, err := c.ensureBrowser()
	if err != nil {
		return nil, err
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: targetURL})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	page = page.Context(ctx).Timeout(c.navTimeout)
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}

	shot, err := page.Screenshot(true, nil)
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return shot, nil
}

// Close shuts down the browser connection if one was started.
func (c *Capturer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.browser = nil
	return err
}
