package fetch

import (
	"context"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// Manager owns the single shared headless browser. The process is launched
// lazily on first Acquire, reused for every render, and relaunched if the
// connection drops. Concurrent crawls get independent tabs, never independent
// browser processes.
type Manager struct {
	mu sync.Mutex

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	started       bool

	// extraOpts is appended to the allocator options, for tests and for
	// pointing at a remote Chrome.
	extraOpts []chromedp.ExecAllocatorOption
}

// NewManager creates an unstarted Manager. No browser process exists until
// the first Acquire.
func NewManager(opts ...chromedp.ExecAllocatorOption) *Manager {
	return &Manager{extraOpts: opts}
}

// Acquire hands out a fresh tab context derived from the shared browser,
// launching or relaunching the browser first if needed. The returned cancel
// closes only the tab.
func (m *Manager) Acquire(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started && !m.healthyLocked() {
		logrus.Warn("headless browser disconnected, relaunching")
		m.shutdownLocked()
	}
	if !m.started {
		if err := m.launchLocked(); err != nil {
			return nil, nil, err
		}
	}

	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	return tabCtx, tabCancel, nil
}

// IsHealthy reports whether a launched browser is still connected. An
// unstarted Manager is not unhealthy, it just has nothing to check.
func (m *Manager) IsHealthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return true
	}
	return m.healthyLocked()
}

// Shutdown terminates the browser process. The Manager can be reused; the
// next Acquire launches a fresh browser.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownLocked()
}

func (m *Manager) launchLocked() error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
	)
	opts = append(opts, m.extraOpts...)

	// The allocator descends from Background, not the caller's context, so
	// one crawl finishing does not tear the browser down for everyone else.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions forces the process to start now, so launch
	// failures surface here instead of mid-navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return &Error{URL: "", Message: "launching headless browser", Cause: err}
	}

	m.allocCancel = allocCancel
	m.browserCtx = browserCtx
	m.browserCancel = browserCancel
	m.started = true
	logrus.Debug("headless browser launched")
	return nil
}

func (m *Manager) healthyLocked() bool {
	if m.browserCtx == nil || m.browserCtx.Err() != nil {
		return false
	}
	c := chromedp.FromContext(m.browserCtx)
	return c != nil && c.Browser != nil
}

func (m *Manager) shutdownLocked() {
	if m.browserCancel != nil {
		m.browserCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	m.browserCtx = nil
	m.browserCancel = nil
	m.allocCancel = nil
	m.started = false
}
