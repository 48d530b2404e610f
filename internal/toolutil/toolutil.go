// Package toolutil provides shared helpers for the go_vidchat entry points:
// a headless popup surface and controller wiring from engine config.
package toolutil

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/anatolykoptev/go_vidchat/internal/engine"
	"github.com/anatolykoptev/go_vidchat/internal/popup"
	"github.com/anatolykoptev/go_vidchat/internal/tabs"
)

// DefaultButtonLabel is the submit label outside of a request.
const DefaultButtonLabel = "Ask"

// TextUI is a popup surface without a screen. It keeps the button state and
// every message shown, and echoes messages to Out when set.
type TextUI struct {
	Question string
	Out      io.Writer

	mu       sync.Mutex
	enabled  bool
	label    string
	messages []string
}

// NewTextUI returns a TextUI with an enabled button holding the default label.
func NewTextUI(question string, out io.Writer) *TextUI {
	return &TextUI{Question: question, Out: out, enabled: true, label: DefaultButtonLabel}
}

func (u *TextUI) SetEnabled(enabled bool) {
	u.mu.Lock()
	u.enabled = enabled
	u.mu.Unlock()
}

func (u *TextUI) SetLabel(label string) {
	u.mu.Lock()
	u.label = label
	u.mu.Unlock()
}

func (u *TextUI) DefaultLabel() string { return DefaultButtonLabel }

func (u *TextUI) SetText(text string) {
	u.mu.Lock()
	u.messages = append(u.messages, text)
	u.mu.Unlock()
	if u.Out != nil {
		fmt.Fprintln(u.Out, text)
	}
}

func (u *TextUI) Value() string { return u.Question }

// Button reports the current button state.
func (u *TextUI) Button() (enabled bool, label string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.enabled, u.label
}

// Messages returns every text shown so far, oldest first.
func (u *TextUI) Messages() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.messages...)
}

// UI bundles the TextUI as all three popup handles.
func (u *TextUI) UI() popup.UI {
	return popup.UI{Button: u, Message: u, Input: u}
}

// NewQuerier builds the configured tab source: a live Chrome when
// ChromeDebugURL is set, otherwise a tab pinned to TabURL.
// The returned func releases the browser connection.
func NewQuerier() (tabs.Querier, func()) {
	if engine.Cfg.ChromeDebugURL != "" {
		c := tabs.NewChrome(engine.Cfg.ChromeDebugURL)
		return c, c.Close
	}
	return tabs.NewStatic(engine.Cfg.TabURL), func() {}
}

// QuerierFor returns a tab pinned to rawURL, or fallback when rawURL is empty.
func QuerierFor(rawURL string, fallback tabs.Querier) tabs.Querier {
	if rawURL != "" {
		return tabs.NewStatic(rawURL)
	}
	return fallback
}

// NewController wires a popup controller with the configured context mode
// and answer endpoint.
func NewController(ui popup.UI, querier tabs.Querier) (*popup.Controller, error) {
	extractor, err := popup.NewExtractor(engine.Cfg.ContextMode)
	if err != nil {
		return nil, err
	}
	client := popup.NewAnswerClient(engine.Cfg.EndpointURL, nil)
	return popup.NewController(ui, querier, extractor, client), nil
}

// TabRecorder remembers the last tab its Querier returned.
type TabRecorder struct {
	tabs.Querier

	mu  sync.Mutex
	url string
}

func (r *TabRecorder) ActiveTab(ctx context.Context) (*tabs.Tab, error) {
	tab, err := r.Querier.ActiveTab(ctx)
	if tab != nil {
		r.mu.Lock()
		r.url = tab.URL
		r.mu.Unlock()
	}
	return tab, err
}

// URL returns the URL of the last tab seen, or "".
func (r *TabRecorder) URL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.url
}

// ChatOutput converts a popup outcome to the tool reply.
func ChatOutput(o popup.Outcome, tabURL string) engine.VideoChatOutput {
	out := engine.VideoChatOutput{
		Outcome: o.Kind.String(),
		Message: o.Text,
		TabURL:  tabURL,
	}
	if o.Kind == popup.Answered {
		out.Answer = o.Text
	}
	return out
}
