package tabs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/anatolykoptev/go_vidchat/internal/engine"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// Chrome reads tabs of a running Chrome through the DevTools protocol.
// Start Chrome with --remote-debugging-port=9222 and pass http://127.0.0.1:9222.
type Chrome struct {
	debugURL string

	mu          sync.Mutex
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
	conn        *chromedp.Browser
	ownTarget   target.ID // blank tab chromedp opened for its own session
	sessions    map[target.ID]tabSession
}

// tabSession is a chromedp session attached to a user tab. cancel closes
// the tab, so it is only called once the tab is already gone.
type tabSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewChrome returns a Querier for the browser listening at debugURL.
// The connection is opened on first use.
func NewChrome(debugURL string) *Chrome {
	return &Chrome{debugURL: debugURL}
}

// connect returns the browser connection, opening it on first use. The
// first Run happens under mu so concurrent callers share one connection
// and one session tab. A failed connect is undone so a later call retries.
func (c *Chrome) connect() (context.Context, *chromedp.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.browserCtx, c.conn, nil
	}

	allocCtx, cancelAlloc := chromedp.NewRemoteAllocator(context.Background(), c.debugURL)
	ctx, cancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		cancelAlloc()
		return nil, nil, fmt.Errorf("connect to %s: %w", c.debugURL, err)
	}
	cc := chromedp.FromContext(ctx)
	if cc == nil || cc.Browser == nil {
		cancel()
		cancelAlloc()
		return nil, nil, fmt.Errorf("connect to %s: no browser", c.debugURL)
	}
	if cc.Target != nil {
		c.ownTarget = cc.Target.TargetID
	}
	c.browserCtx, c.cancelAlloc, c.cancelCtx, c.conn = ctx, cancelAlloc, cancel, cc.Browser
	return ctx, cc.Browser, nil
}

// Close drops the DevTools connection. The remote browser keeps running.
func (c *Chrome) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelCtx != nil {
		c.cancelCtx()
		c.cancelAlloc()
	}
	c.browserCtx, c.cancelCtx, c.cancelAlloc, c.conn = nil, nil, nil, nil
	c.ownTarget = ""
	c.sessions = nil
}

// tabContext returns a session attached to an existing tab. The session
// outlives the call: cancelling a chromedp target context closes the tab.
func (c *Chrome) tabContext(id target.ID) (context.Context, error) {
	browser, _, err := c.connect()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[id]; ok {
		return s.ctx, nil
	}
	tctx, cancel := chromedp.NewContext(context.WithoutCancel(browser), chromedp.WithTargetID(id))
	if err := chromedp.Run(tctx); err != nil {
		// Nothing is attached yet, so cancel only releases the context.
		cancel()
		return nil, fmt.Errorf("attach to tab %s: %w", id, err)
	}
	if c.sessions == nil {
		c.sessions = make(map[target.ID]tabSession)
	}
	c.sessions[id] = tabSession{ctx: tctx, cancel: cancel}
	return tctx, nil
}

// prune releases sessions of tabs missing from the latest listing.
func (c *Chrome) prune(infos []*target.Info) {
	live := make(map[target.ID]bool, len(infos))
	for _, info := range infos {
		if info != nil {
			live[info.TargetID] = true
		}
	}

	c.mu.Lock()
	var gone []tabSession
	for id, s := range c.sessions {
		if !live[id] {
			gone = append(gone, s)
			delete(c.sessions, id)
		}
	}
	c.mu.Unlock()

	for _, s := range gone {
		s.cancel()
	}
}

// listTargets asks the browser for its targets, bounded by ctx.
func listTargets(ctx context.Context, conn cdp.Executor) ([]*target.Info, error) {
	return target.GetTargets().Do(cdp.WithExecutor(ctx, conn))
}

// ActiveTab returns the most recently focused page target.
func (c *Chrome) ActiveTab(ctx context.Context) (*Tab, error) {
	engine.IncrTabQueries()

	_, conn, err := c.connect()
	if err != nil {
		return nil, err
	}
	infos, err := listTargets(ctx, conn)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// The browser went away; reconnect on the next call.
		c.Close()
		return nil, fmt.Errorf("list targets: %w", err)
	}
	c.prune(infos)

	c.mu.Lock()
	own := c.ownTarget
	c.mu.Unlock()

	info := pickActiveTarget(infos, own)
	if info == nil {
		return nil, nil
	}
	slog.Debug("tabs: active target", slog.String("id", string(info.TargetID)), slog.String("url", info.URL))
	return &Tab{
		ID:    string(info.TargetID),
		URL:   info.URL,
		Title: info.Title,
		Doc:   &chromeDocument{parent: c, targetID: info.TargetID},
	}, nil
}

// pickActiveTarget returns the first ordinary page target other than skip.
// DevTools lists targets most recently activated first.
func pickActiveTarget(infos []*target.Info, skip target.ID) *target.Info {
	for _, info := range infos {
		if info == nil || info.Type != "page" || info.TargetID == skip {
			continue
		}
		if strings.HasPrefix(info.URL, "devtools://") {
			continue
		}
		return info
	}
	return nil
}

type chromeDocument struct {
	parent   *Chrome
	targetID target.ID
}

// ReadElements injects one read-only script into the tab and returns the
// text of the first matching selector per field.
func (d *chromeDocument) ReadElements(ctx context.Context, fields []Field) (map[string]string, error) {
	engine.IncrDOMReads()

	script, err := readElementsScript(fields)
	if err != nil {
		return nil, err
	}

	tabCtx, err := d.parent.tabContext(d.targetID)
	if err != nil {
		return nil, err
	}
	tc := chromedp.FromContext(tabCtx)
	if tc == nil || tc.Target == nil {
		return nil, fmt.Errorf("tab %s: no session", d.targetID)
	}

	out := map[string]string{}
	// Evaluate on the tab's session, bounded by the caller's context.
	if err := chromedp.Evaluate(script, &out).Do(cdp.WithExecutor(ctx, tc.Target)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("evaluate in tab %s: %w", d.targetID, err)
	}
	for k, v := range out {
		v = engine.CollapseSpace(v)
		if v == "" {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out, nil
}

// readElementsScript builds the injected expression. It only reads the DOM.
func readElementsScript(fields []Field) (string, error) {
	if len(fields) == 0 {
		return "", errors.New("no fields to read")
	}
	spec, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return `(() => {
  const fields = ` + string(spec) + `;
  const out = {};
  for (const f of fields) {
    for (const sel of f.selectors) {
      const el = document.querySelector(sel);
      if (!el) continue;
      const text = (el.innerText || el.textContent || '').trim();
      if (text) { out[f.name] = text; break; }
    }
  }
  return out;
})()`, nil
}
