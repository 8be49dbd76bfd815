package fetch

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/device"
	"github.com/sirupsen/logrus"
)

// Device selects the emulated viewport for a render. Some sites serve a
// simpler mobile template that exposes contact details the desktop page
// hides behind JavaScript.
type Device int

const (
	DeviceDesktop Device = iota
	DeviceMobile
)

// RenderOptions tunes one browser render.
type RenderOptions struct {
	Device Device
	// LongSettle extends the post-load quiet period. Storefront platforms
	// inject contact widgets seconds after the page looks finished.
	LongSettle bool
	// ScrollFull scrolls the page incrementally instead of one jump, for
	// long legal pages with lazy-loaded sections.
	ScrollFull bool
	// Timeout bounds the whole render. Zero means RenderTimeout.
	Timeout time.Duration
}

// RenderTimeout bounds a full render including navigation and settling.
const RenderTimeout = 45 * time.Second

const (
	hydrationTimeout = 8 * time.Second
	bodyWaitTimeout  = 10 * time.Second
	settleQuiet      = 2 * time.Second
	settleQuietLong  = 6 * time.Second
)

// blockedResourcePatterns stops the browser downloading bytes that cannot
// contain an address.
var blockedResourcePatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp3", "*.mp4", "*.webm", "*.avi", "*.mov",
}

const hydrationJS = `(() => {
	const body = document.body;
	if (!body) return false;
	if (body.innerText.trim().length > 0) return true;
	const shell = document.querySelector('#root, #app, [data-reactroot], [data-server-rendered], #__next');
	return !!(shell && shell.childElementCount > 0);
})()`

const mutationObserverJS = `(() => {
	if (window.__msLastMutation === undefined) {
		window.__msLastMutation = Date.now();
		new MutationObserver(() => { window.__msLastMutation = Date.now(); })
			.observe(document.documentElement, { childList: true, subtree: true, characterData: true });
	}
	return true;
})()`

const mutationQuietJS = `Date.now() - window.__msLastMutation > 1200`

const scrollFullJS = `new Promise((resolve) => {
	let y = 0;
	const step = () => {
		y += Math.max(400, window.innerHeight);
		window.scrollTo(0, y);
		if (y < document.body.scrollHeight && y < 20000) {
			setTimeout(step, 120);
		} else {
			window.scrollTo(0, 0);
			resolve(true);
		}
	};
	step();
})`

const scrollOnceJS = `(() => {
	window.scrollTo(0, document.body.scrollHeight);
	window.scrollTo(0, 0);
	return true;
})()`

// harvestJS collects HTML the outer document snapshot misses: same-origin
// iframes and open shadow roots. Cross-origin frames throw and are skipped.
const harvestJS = `(() => {
	const frames = [];
	for (const frame of document.querySelectorAll('iframe')) {
		try {
			const doc = frame.contentDocument;
			if (doc && doc.documentElement) frames.push(doc.documentElement.outerHTML);
		} catch (e) {}
	}
	const shadow = [];
	const walk = (node) => {
		for (const el of node.querySelectorAll('*')) {
			if (el.shadowRoot) {
				shadow.push(el.shadowRoot.innerHTML);
				walk(el.shadowRoot);
			}
		}
	};
	walk(document);
	return { frames: frames, shadow: shadow };
})()`

// Rendered loads a page in the shared browser and returns the post-JS HTML.
// The wait strategy cascades: hydration poll, then body visibility, then a
// fixed sleep, so a page that defeats one strategy still renders under the
// next.
func Rendered(ctx context.Context, mgr *Manager, rawURL string, opts *RenderOptions) (*Result, error) {
	if opts == nil {
		opts = &RenderOptions{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = RenderTimeout
	}

	tabCtx, tabCancel, err := mgr.Acquire(ctx)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "acquiring browser tab", Cause: err}
	}
	defer tabCancel()

	tctx, cancel := context.WithTimeout(tabCtx, timeout)
	defer cancel()

	var statusCode int64
	chromedp.ListenTarget(tctx, func(ev interface{}) {
		if resp, ok := ev.(*network.EventResponseReceived); ok {
			if resp.Type == network.ResourceTypeDocument && statusCode == 0 {
				statusCode = resp.Response.Status
			}
		}
	})

	actions := []chromedp.Action{
		network.Enable(),
		network.SetBlockedURLS(blockedResourcePatterns),
		emulation(opts.Device),
		chromedp.Navigate(rawURL),
	}
	if err := chromedp.Run(tctx, actions...); err != nil {
		return nil, &Error{URL: rawURL, Message: "browser navigation failed", Cause: err}
	}

	waitForContent(tctx, rawURL)
	scroll(tctx, opts.ScrollFull)
	settle(tctx, opts.LongSettle)

	var html string
	if err := chromedp.Run(tctx, chromedp.OuterHTML("html", &html)); err != nil {
		return nil, &Error{URL: rawURL, Message: "reading rendered document", Cause: err}
	}

	frames, shadow := harvest(tctx, rawURL)
	result := &Result{
		URL:         rawURL,
		HTML:        html,
		StatusCode:  int(statusCode),
		ContentType: "text/html",
		Frames:      frames,
		ShadowHTML:  shadow,
	}
	if result.StatusCode == 0 {
		result.StatusCode = 200
	}
	return result, nil
}

func emulation(d Device) chromedp.Action {
	if d == DeviceMobile {
		return chromedp.Emulate(device.IPhoneX)
	}
	return chromedp.EmulateViewport(1366, 768)
}

// waitForContent runs the cascade. Failures fall through; the caller always
// gets whatever HTML exists when the cascade ends.
func waitForContent(tctx context.Context, rawURL string) {
	var hydrated bool
	if err := runTimed(tctx, hydrationTimeout, chromedp.Poll(hydrationJS, &hydrated)); err == nil {
		return
	}
	logrus.Debugf("hydration wait timed out for %s, falling back to body wait", rawURL)
	if err := runTimed(tctx, bodyWaitTimeout, chromedp.WaitVisible("body", chromedp.ByQuery)); err == nil {
		return
	}
	logrus.Debugf("body wait timed out for %s, using fixed delay", rawURL)
	_ = runTimed(tctx, 4*time.Second, chromedp.Sleep(3*time.Second))
}

func scroll(tctx context.Context, full bool) {
	if full {
		var done bool
		err := runTimed(tctx, 10*time.Second, chromedp.Evaluate(scrollFullJS, &done,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}))
		if err == nil {
			return
		}
	}
	var done bool
	_ = runTimed(tctx, 3*time.Second, chromedp.Evaluate(scrollOnceJS, &done))
}

// settle waits for DOM mutations to stop for 1.2s, bounded by the quiet
// window. A page that never stops mutating is snapshotted as-is.
func settle(tctx context.Context, long bool) {
	window := settleQuiet
	if long {
		window = settleQuietLong
	}
	var ready bool
	if err := runTimed(tctx, 2*time.Second, chromedp.Evaluate(mutationObserverJS, &ready)); err != nil {
		return
	}
	var quiet bool
	_ = runTimed(tctx, window, chromedp.Poll(mutationQuietJS, &quiet, chromedp.WithPollingInterval(200*time.Millisecond)))
}

func harvest(tctx context.Context, rawURL string) ([]string, []string) {
	var harvested struct {
		Frames []string `json:"frames"`
		Shadow []string `json:"shadow"`
	}
	if err := runTimed(tctx, 3*time.Second, chromedp.Evaluate(harvestJS, &harvested)); err != nil {
		logrus.Debugf("frame harvest failed for %s: %v", rawURL, err)
		return nil, nil
	}
	return dropEmpty(harvested.Frames), dropEmpty(harvested.Shadow)
}

func dropEmpty(in []string) []string {
	out := in[:0]
	for _, h := range in {
		if len(h) > 0 {
			out = append(out, h)
		}
	}
	return out
}

func runTimed(tctx context.Context, d time.Duration, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(tctx, d)
	defer cancel()
	return chromedp.Run(ctx, actions...)
}
