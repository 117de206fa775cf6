package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// navigationPollInterval is how often a navigating page re-checks the
// document state.
const navigationPollInterval = 100 * time.Millisecond

// CDP drives a running Chromium instance over its DevTools websocket
// endpoint. One CDP value owns one websocket connection; contexts and pages
// are multiplexed over it as flat protocol sessions.
type CDP struct {
	conn   *websocket.Conn
	logger *zap.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan cdpResponse
	closed  bool
}

type cdpRequest struct {
	ID        int64          `json:"id"`
	Method    string         `json:"method"`
	Params    map[string]any `json:"params,omitempty"`
	SessionID string         `json:"sessionId,omitempty"`
}

type cdpResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *cdpError       `json:"error"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("cdp error %d: %s", e.Code, e.Message)
}

// Connect dials the browser's DevTools websocket endpoint.
func Connect(ctx context.Context, wsURL string, logger *zap.Logger) (*CDP, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to browser at %s: %w", wsURL, err)
	}

	c := &CDP{
		conn:    conn,
		logger:  logger,
		pending: make(map[int64]chan cdpResponse),
	}
	go c.readLoop()
	return c, nil
}

// Close shuts down the websocket connection. Any in-flight calls fail.
func (c *CDP) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
	return c.conn.Close()
}

// readLoop dispatches command responses to their waiters. Protocol events
// carry no id and are dropped; navigation readiness is polled instead.
func (c *CDP) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug("browser connection closed", zap.Error(err))
			_ = c.Close()
			return
		}

		var resp cdpResponse
		if err := json.Unmarshal(data, &resp); err != nil || resp.ID == 0 {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// call sends one protocol command and waits for its response.
func (c *CDP) call(ctx context.Context, sessionID, method string, params map[string]any, out any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("browser connection is closed")
	}
	c.nextID++
	id := c.nextID
	ch := make(chan cdpResponse, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req := cdpRequest{ID: id, Method: method, Params: params, SessionID: sessionID}

	c.writeMu.Lock()
	err := c.conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("browser connection closed during %s", method)
		}
		if resp.Error != nil {
			return fmt.Errorf("%s failed: %w", method, resp.Error)
		}
		if out != nil {
			if err := json.Unmarshal(resp.Result, out); err != nil {
				return fmt.Errorf("failed to decode %s result: %w", method, err)
			}
		}
		return nil
	}
}

// NewContext creates an isolated browser context.
func (c *CDP) NewContext(ctx context.Context) (Context, error) {
	var created struct {
		BrowserContextID string `json:"browserContextId"`
	}
	err := c.call(ctx, "", "Target.createBrowserContext", map[string]any{
		"disposeOnDetach": true,
	}, &created)
	if err != nil {
		return nil, err
	}
	return &cdpContext{cdp: c, id: created.BrowserContextID}, nil
}

type cdpContext struct {
	cdp *CDP
	id  string

	mu    sync.Mutex
	pages []*cdpPage
}

// NewPage opens a new page inside the context and attaches to it.
func (bc *cdpContext) NewPage(ctx context.Context) (Page, error) {
	var created struct {
		TargetID string `json:"targetId"`
	}
	err := bc.cdp.call(ctx, "", "Target.createTarget", map[string]any{
		"url":              "about:blank",
		"browserContextId": bc.id,
	}, &created)
	if err != nil {
		return nil, err
	}

	var attached struct {
		SessionID string `json:"sessionId"`
	}
	err = bc.cdp.call(ctx, "", "Target.attachToTarget", map[string]any{
		"targetId": created.TargetID,
		"flatten":  true,
	}, &attached)
	if err != nil {
		return nil, err
	}

	page := &cdpPage{cdp: bc.cdp, sessionID: attached.SessionID, targetID: created.TargetID}
	if err := bc.cdp.call(ctx, attached.SessionID, "Page.enable", nil, nil); err != nil {
		return nil, err
	}

	bc.mu.Lock()
	bc.pages = append(bc.pages, page)
	bc.mu.Unlock()
	return page, nil
}

// StorageState captures cookies for the context plus the local storage of
// every origin its pages visited.
func (bc *cdpContext) StorageState(ctx context.Context) (*StorageState, error) {
	var cookieResult struct {
		Cookies []Cookie `json:"cookies"`
	}
	err := bc.cdp.call(ctx, "", "Storage.getCookies", map[string]any{
		"browserContextId": bc.id,
	}, &cookieResult)
	if err != nil {
		return nil, err
	}

	state := &StorageState{Cookies: cookieResult.Cookies, Origins: []OriginState{}}

	bc.mu.Lock()
	pages := make([]*cdpPage, len(bc.pages))
	copy(pages, bc.pages)
	bc.mu.Unlock()

	seen := make(map[string]bool)
	for _, page := range pages {
		origin, entries, err := page.localStorage(ctx)
		if err != nil {
			return nil, err
		}
		if origin == "" || origin == "null" || seen[origin] {
			continue
		}
		seen[origin] = true
		state.Origins = append(state.Origins, OriginState{Origin: origin, LocalStorage: entries})
	}
	return state, nil
}

// Close disposes the browser context and every page in it.
func (bc *cdpContext) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return bc.cdp.call(ctx, "", "Target.disposeBrowserContext", map[string]any{
		"browserContextId": bc.id,
	}, nil)
}

type cdpPage struct {
	cdp       *CDP
	sessionID string
	targetID  string
}

// Navigate loads the URL and polls until the document is interactive.
func (p *cdpPage) Navigate(ctx context.Context, url string) error {
	var nav struct {
		ErrorText string `json:"errorText"`
	}
	err := p.cdp.call(ctx, p.sessionID, "Page.navigate", map[string]any{"url": url}, &nav)
	if err != nil {
		return err
	}
	if nav.ErrorText != "" {
		return fmt.Errorf("navigation to %s failed: %s", url, nav.ErrorText)
	}

	for {
		raw, err := p.Evaluate(ctx, "document.readyState")
		if err != nil {
			return err
		}
		var state string
		if json.Unmarshal(raw, &state) == nil && (state == "interactive" || state == "complete") {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(navigationPollInterval):
		}
	}
}

// Evaluate runs the script and returns its value by JSON.
func (p *cdpPage) Evaluate(ctx context.Context, script string) (json.RawMessage, error) {
	var result struct {
		Result struct {
			Value json.RawMessage `json:"value"`
		} `json:"result"`
		ExceptionDetails *struct {
			Text string `json:"text"`
		} `json:"exceptionDetails"`
	}
	err := p.cdp.call(ctx, p.sessionID, "Runtime.evaluate", map[string]any{
		"expression":    script,
		"returnByValue": true,
		"awaitPromise":  true,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.ExceptionDetails != nil {
		return nil, fmt.Errorf("script threw: %s", result.ExceptionDetails.Text)
	}
	return result.Result.Value, nil
}

// Fill sets the element's value and fires the input events frameworks
// listen for.
func (p *cdpPage) Fill(ctx context.Context, selector, value string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) { throw new Error("no element matches " + %q); }
		el.focus();
		el.value = %q;
		el.dispatchEvent(new Event("input", { bubbles: true }));
		el.dispatchEvent(new Event("change", { bubbles: true }));
		return true;
	})()`, selector, selector, value)
	_, err := p.Evaluate(ctx, script)
	return err
}

// Click clicks the matching element.
func (p *cdpPage) Click(ctx context.Context, selector string) error {
	script := fmt.Sprintf(`(() => {
		const el = document.querySelector(%q);
		if (!el) { throw new Error("no element matches " + %q); }
		el.click();
		return true;
	})()`, selector, selector)
	_, err := p.Evaluate(ctx, script)
	return err
}

// URL returns the page's current location.
func (p *cdpPage) URL(ctx context.Context) (string, error) {
	raw, err := p.Evaluate(ctx, "window.location.href")
	if err != nil {
		return "", err
	}
	var href string
	if err := json.Unmarshal(raw, &href); err != nil {
		return "", fmt.Errorf("failed to decode page URL: %w", err)
	}
	return href, nil
}

// localStorage dumps the page origin's local storage.
func (p *cdpPage) localStorage(ctx context.Context) (string, []StorageEntry, error) {
	raw, err := p.Evaluate(ctx, `(() => {
		const entries = [];
		for (let i = 0; i < localStorage.length; i++) {
			const name = localStorage.key(i);
			entries.push({ name, value: localStorage.getItem(name) });
		}
		return { origin: window.location.origin, entries };
	})()`)
	if err != nil {
		return "", nil, err
	}
	var dump struct {
		Origin  string         `json:"origin"`
		Entries []StorageEntry `json:"entries"`
	}
	if err := json.Unmarshal(raw, &dump); err != nil {
		return "", nil, fmt.Errorf("failed to decode local storage dump: %w", err)
	}
	return dump.Origin, dump.Entries, nil
}
