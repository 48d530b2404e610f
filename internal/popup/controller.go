package popup

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_vidchat/internal/engine"
	"github.com/anatolykoptev/go_vidchat/internal/tabs"
)

// Kind classifies the result of one submit.
type Kind int

const (
	NeedsInput Kind = iota
	NoActiveTab
	WrongPage
	NoVideoID
	Answered
	Failed
)

var kindNames = [...]string{
	NeedsInput:  "needs_input",
	NoActiveTab: "no_active_tab",
	WrongPage:   "wrong_page",
	NoVideoID:   "no_video_id",
	Answered:    "answered",
	Failed:      "failed",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Outcome is what one submit ended with. Text is what the message area shows.
type Outcome struct {
	Kind Kind
	Text string
}

// Controller is the popup's click handler with its collaborators injected.
type Controller struct {
	ui        UI
	tabs      tabs.Querier
	extractor ContextExtractor
	client    *AnswerClient
}

// NewController wires the popup. A nil extractor means URLParamExtractor.
func NewController(ui UI, querier tabs.Querier, extractor ContextExtractor, client *AnswerClient) *Controller {
	if extractor == nil {
		extractor = URLParamExtractor{}
	}
	return &Controller{ui: ui, tabs: querier, extractor: extractor, client: client}
}

// HandleClick reads the question from the input, finds the active tab and
// submits. The button is busy from the tab query until the outcome is shown.
func (c *Controller) HandleClick(ctx context.Context) Outcome {
	engine.IncrSubmits()
	query := strings.TrimSpace(c.ui.Input.Value())
	if query == "" {
		return c.rejectEmpty()
	}

	c.ui.setBusy()
	defer c.ui.restore()

	var tab *tabs.Tab
	if c.tabs != nil {
		var err error
		if tab, err = c.tabs.ActiveTab(ctx); err != nil {
			slog.Warn("popup: tab query failed", slog.Any("error", err))
			return c.show(Outcome{Kind: Failed, Text: ErrorPrefix + err.Error()})
		}
	}
	return c.run(ctx, query, tab)
}

// Submit runs one request for query against tab.
func (c *Controller) Submit(ctx context.Context, query string, tab *tabs.Tab) Outcome {
	engine.IncrSubmits()
	query = strings.TrimSpace(query)
	if query == "" {
		return c.rejectEmpty()
	}

	c.ui.setBusy()
	defer c.ui.restore()

	return c.run(ctx, query, tab)
}

func (c *Controller) rejectEmpty() Outcome {
	engine.IncrRejected()
	return c.show(Outcome{Kind: NeedsInput, Text: EmptyInputText})
}

// run is the part of a submit that happens while the button is busy.
func (c *Controller) run(ctx context.Context, query string, tab *tabs.Tab) Outcome {
	if tab == nil {
		engine.IncrRejected()
		return c.show(Outcome{Kind: NoActiveTab, Text: NoActiveTabText})
	}

	vc, err := c.extractor.Extract(ctx, tab)
	switch {
	case errors.Is(err, ErrNoVideoID):
		engine.IncrRejected()
		return c.show(Outcome{Kind: NoVideoID, Text: OpenVideoText})
	case errors.Is(err, ErrWrongPage):
		engine.IncrRejected()
		return c.show(Outcome{Kind: WrongPage, Text: OpenVideoText})
	case err != nil:
		return c.show(Outcome{Kind: Failed, Text: ErrorPrefix + err.Error()})
	}

	var resp AnswerResponse
	err = engine.TrackOperation(ctx, "answer", func(ctx context.Context) error {
		var askErr error
		resp, askErr = c.client.Ask(ctx, NewAskRequest(query, vc))
		return askErr
	})
	if err != nil {
		slog.Warn("popup: answer request failed",
			slog.String("endpoint", c.client.Endpoint()), slog.Any("error", err))
		return c.show(Outcome{Kind: Failed, Text: ErrorPrefix + err.Error()})
	}

	slog.Info("popup: answered",
		slog.String("mode", c.extractor.Mode()),
		slog.String("tab", tab.URL),
		slog.Bool("has_answer", resp.HasAnswer))
	return c.show(Outcome{Kind: Answered, Text: resp.Text()})
}

func (c *Controller) show(o Outcome) Outcome {
	c.ui.Message.SetText(o.Text)
	return o
}
