package auth

import (
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/larder/internal/models"
)

// ChromeConfig configures the interactive browser
type ChromeConfig struct {
	LoginURL   string
	ChromePath string
	Headless   bool
	UserAgent  string
}

// ChromeExtractor drives a visible Chrome window for the human to log in through
type ChromeExtractor struct {
	config        ChromeConfig
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	mu            sync.Mutex
	logger        arbor.ILogger
}

// NewChromeExtractor creates an extractor. The browser starts on Open.
func NewChromeExtractor(config ChromeConfig, logger arbor.ILogger) *ChromeExtractor {
	return &ChromeExtractor{
		config: config,
		logger: logger,
	}
}

// Open launches the browser and navigates to the login page
func (c *ChromeExtractor) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCtx != nil {
		return fmt.Errorf("browser already open")
	}

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.config.Headless),
		chromedp.Flag("disable-gpu", c.config.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.config.ChromePath != "" {
		allocatorOpts = append(allocatorOpts, chromedp.ExecPath(c.config.ChromePath))
	}
	if c.config.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(c.config.UserAgent))
	}

	// The browser lives until Close, independent of the caller's context
	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	c.logger.Info().
		Str("login_url", c.config.LoginURL).
		Bool("headless", c.config.Headless).
		Msg("Launching browser for interactive login")

	navigate := make(chan error, 1)
	go func() {
		navigate <- chromedp.Run(browserCtx, chromedp.Navigate(c.config.LoginURL))
	}()

	select {
	case err := <-navigate:
		if err != nil {
			browserCancel()
			allocatorCancel()
			return fmt.Errorf("failed to open login page: %w", err)
		}
	case <-ctx.Done():
		browserCancel()
		allocatorCancel()
		return ctx.Err()
	}

	c.browserCtx = browserCtx
	c.browserCancel = browserCancel
	c.allocCancel = allocatorCancel
	return nil
}

// Cookies reads every cookie held by the browser, across all domains
func (c *ChromeExtractor) Cookies(ctx context.Context) ([]models.Cookie, error) {
	c.mu.Lock()
	browserCtx := c.browserCtx
	c.mu.Unlock()

	if browserCtx == nil {
		return nil, fmt.Errorf("browser not open")
	}

	var raw []*network.Cookie
	result := make(chan error, 1)
	go func() {
		result <- chromedp.Run(browserCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			cookies, err := storage.GetCookies().Do(ctx)
			if err != nil {
				return err
			}
			raw = cookies
			return nil
		}))
	}()

	select {
	case err := <-result:
		if err != nil {
			return nil, fmt.Errorf("failed to read browser cookies: %w", err)
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	cookies := make([]models.Cookie, 0, len(raw))
	for _, rc := range raw {
		cookies = append(cookies, FromBrowserCookie(rc))
	}

	c.logger.Info().Int("cookie_count", len(cookies)).Msg("Extracted browser cookies")
	return cookies, nil
}

// Close shuts the browser down
func (c *ChromeExtractor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.browserCancel != nil {
		c.browserCancel()
		c.browserCancel = nil
	}
	if c.allocCancel != nil {
		c.allocCancel()
		c.allocCancel = nil
	}
	c.browserCtx = nil
	return nil
}

// FromBrowserCookie converts a DevTools cookie to transport form.
// Session cookies carry no expiry.
func FromBrowserCookie(rc *network.Cookie) models.Cookie {
	cookie := models.Cookie{
		Name:     rc.Name,
		Value:    rc.Value,
		Domain:   rc.Domain,
		Path:     rc.Path,
		Secure:   rc.Secure,
		HTTPOnly: rc.HTTPOnly,
		SameSite: string(rc.SameSite),
	}
	if !rc.Session && rc.Expires > 0 {
		cookie.Expires = rc.Expires
	}
	return cookie
}
