// go_vidchat: ask questions about the YouTube video open in the browser.
//
// Runs as an HTTP MCP server exposing video_chat and video_context, or as a
// one-shot terminal popup: go_vidchat ask <question...>
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_vidchat/internal/chatserver"
	"github.com/anatolykoptev/go_vidchat/internal/engine"
	"github.com/anatolykoptev/go_vidchat/internal/popup"
	"github.com/anatolykoptev/go_vidchat/internal/toolutil"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8893")
)

func main() {
	initEngine()

	if len(os.Args) > 1 && os.Args[1] == "ask" {
		os.Exit(ask(os.Args[2:]))
	}

	slog.Info("starting go_vidchat",
		slog.String("port", mcpPort),
		slog.String("endpoint", engine.Cfg.EndpointURL),
		slog.String("mode", engine.Cfg.ContextMode),
	)

	live, closeLive := toolutil.NewQuerier()
	defer closeLive()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_vidchat",
		Version: version,
	}, nil)

	chatserver.RegisterTools(server, live)
	slog.Info("tools registered", slog.Int("count", 2))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_vidchat",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 300 * time.Second,
		Metrics:      engine.FormatMetrics,
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

// ask plays the popup in the terminal: the arguments are the question, the
// message area is stdout. Exit status is 0 only for an answered question.
func ask(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	live, closeLive := toolutil.NewQuerier()
	defer closeLive()

	ui := toolutil.NewTextUI(strings.Join(args, " "), os.Stdout)
	c, err := toolutil.NewController(ui.UI(), live)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if c.HandleClick(ctx).Kind != popup.Answered {
		return 1
	}
	return 0
}

func initEngine() {
	c := engine.Config{
		EndpointURL:     env.Str("VIDCHAT_ENDPOINT_URL", engine.DefaultEndpointURL),
		ContextMode:     env.Str("VIDCHAT_CONTEXT_MODE", engine.ContextModeURLParam),
		ChromeDebugURL:  env.Str("CHROME_DEBUG_URL", ""),
		TabURL:          env.Str("VIDCHAT_TAB_URL", ""),
		TranscriptLangs: env.List("TRANSCRIPT_LANGS", "en"),
		MaxContentChars: env.Int("MAX_CONTENT_CHARS", 20000),
		FetchTimeout:    env.Duration("FETCH_TIMEOUT", 15*time.Second),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}

	if env.Str("VIDCHAT_BROWSER_CLIENT", "") == "tls" {
		bc, err := engine.NewBrowserClient(int(c.FetchTimeout / time.Second))
		if err != nil {
			slog.Warn("browser client init failed, using plain HTTP", slog.Any("error", err))
		} else {
			c.BrowserClient = bc
			slog.Info("tls browser client initialized")
		}
	}

	engine.Init(c)
}
