package engine

import (
	"net/http"
	"time"
)

// Context modes select how video context is pulled from the active tab.
const (
	ContextModeURLParam  = "url_param"  // send {query, videoId}
	ContextModeDOMScrape = "dom_scrape" // send {query, vidDetails}
)

// DefaultEndpointURL is the local development answer server.
const DefaultEndpointURL = "http://127.0.0.1:8000/videochat"

// Config holds all engine configuration, injected from main.
type Config struct {
	EndpointURL     string
	ContextMode     string
	ChromeDebugURL  string   // DevTools endpoint of a running Chrome; empty = no live tab
	TabURL          string   // pinned tab URL for CLI use when no live browser is configured
	TranscriptLangs []string // caption language preference for the static document
	MaxContentChars int
	FetchTimeout    time.Duration
	HTTPClient      *http.Client
	BrowserClient   *BrowserClient // nil = watch pages fetched with HTTPClient
}

var cfg Config

// Cfg exposes the engine configuration for sub-packages (sources, tabs, popup).
// Always points to the current cfg value.
var Cfg = &cfg

// Init initializes the engine with the given configuration.
// Zero values are replaced with defaults.
func Init(c Config) {
	if c.EndpointURL == "" {
		c.EndpointURL = DefaultEndpointURL
	}
	if c.ContextMode == "" {
		c.ContextMode = ContextModeURLParam
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = 20000
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if len(c.TranscriptLangs) == 0 {
		c.TranscriptLangs = []string{"en"}
	}
	cfg = c
	Cfg = &cfg
}
