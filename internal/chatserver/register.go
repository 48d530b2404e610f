package chatserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anatolykoptev/go_vidchat/internal/engine"
	"github.com/anatolykoptev/go_vidchat/internal/popup"
	"github.com/anatolykoptev/go_vidchat/internal/tabs"
	"github.com/anatolykoptev/go_vidchat/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers the video chat tools on the given MCP server:
// video_chat, video_context. live is the tab source used when a call
// carries no url.
func RegisterTools(server *mcp.Server, live tabs.Querier) {
	registerVideoChat(server, live)
	registerVideoContext(server, live)
}

func registerVideoChat(server *mcp.Server, live tabs.Querier) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_chat",
		Description: "Ask a question about a YouTube video. Uses the given watch URL, or the active tab of the configured Chrome. Sends the question with the video id or the scraped title, description, details and transcript to the answer endpoint and returns its answer. Outcome is one of needs_input, no_active_tab, wrong_page, no_video_id, answered, failed.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.VideoChatInput) (*mcp.CallToolResult, engine.VideoChatOutput, error) {
		ui := toolutil.NewTextUI(input.Question, nil)
		rec := &toolutil.TabRecorder{Querier: toolutil.QuerierFor(input.URL, live)}
		c, err := toolutil.NewController(ui.UI(), rec)
		if err != nil {
			return nil, engine.VideoChatOutput{}, err
		}

		out := c.HandleClick(ctx)
		slog.Debug("video_chat: done", slog.String("outcome", out.Kind.String()), slog.String("tab", rec.URL()))
		return nil, toolutil.ChatOutput(out, rec.URL()), nil
	})
}

func registerVideoContext(server *mcp.Server, live tabs.Querier) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_context",
		Description: "Show the video context that video_chat would send for a YouTube tab: the video id in url_param mode, or the labelled title/description/details/transcript block in dom_scrape mode. Nothing is posted.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input engine.VideoContextInput) (*mcp.CallToolResult, engine.VideoContextOutput, error) {
		out, err := VideoContext(ctx, toolutil.QuerierFor(input.URL, live))
		return nil, out, err
	})
}

// VideoContext extracts the context for the active tab of querier using the
// configured mode.
func VideoContext(ctx context.Context, querier tabs.Querier) (engine.VideoContextOutput, error) {
	extractor, err := popup.NewExtractor(engine.Cfg.ContextMode)
	if err != nil {
		return engine.VideoContextOutput{}, err
	}
	if querier == nil {
		return engine.VideoContextOutput{}, errors.New(popup.NoActiveTabText)
	}
	tab, err := querier.ActiveTab(ctx)
	if err != nil {
		return engine.VideoContextOutput{}, err
	}
	if tab == nil {
		return engine.VideoContextOutput{}, errors.New(popup.NoActiveTabText)
	}

	vc, err := extractor.Extract(ctx, tab)
	if err != nil {
		return engine.VideoContextOutput{}, fmt.Errorf("%s: %w", tab.URL, err)
	}
	return engine.VideoContextOutput{
		TabURL:  tab.URL,
		Mode:    extractor.Mode(),
		VideoID: vc.VideoID,
		Details: vc.Details,
	}, nil
}
