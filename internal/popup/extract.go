package popup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go_vidchat/internal/engine"
	"github.com/anatolykoptev/go_vidchat/internal/engine/sources"
	"github.com/anatolykoptev/go_vidchat/internal/tabs"
)

var (
	// ErrNoVideoID means the tab URL carries no v= parameter.
	ErrNoVideoID = errors.New("no video id in tab url")
	// ErrWrongPage means the tab is not a watch page.
	ErrWrongPage = errors.New("tab is not a video watch page")
)

// VideoContext is what gets posted next to the question. Exactly one field is set.
type VideoContext struct {
	VideoID string
	Details string
}

// ContextExtractor pulls video context out of the active tab.
type ContextExtractor interface {
	Mode() string
	Extract(ctx context.Context, tab *tabs.Tab) (VideoContext, error)
}

// NewExtractor returns the extractor for a configured context mode.
func NewExtractor(mode string) (ContextExtractor, error) {
	switch mode {
	case engine.ContextModeURLParam, "":
		return URLParamExtractor{}, nil
	case engine.ContextModeDOMScrape:
		return DOMScrapeExtractor{}, nil
	}
	return nil, fmt.Errorf("unknown context mode %q", mode)
}

// URLParamExtractor takes the video id from the tab URL's v= parameter.
type URLParamExtractor struct{}

func (URLParamExtractor) Mode() string { return engine.ContextModeURLParam }

func (URLParamExtractor) Extract(_ context.Context, tab *tabs.Tab) (VideoContext, error) {
	id := sources.VideoIDFromURL(tab.URL)
	if id == "" {
		return VideoContext{}, ErrNoVideoID
	}
	return VideoContext{VideoID: id}, nil
}

// Placeholders substituted for elements missing from the page.
const (
	TitleNotFound       = "Title not found"
	DescriptionNotFound = "Description not found"
	DetailsNotFound     = "Other details not found"
	TranscriptNotFound  = "Transcript not found"
)

// DefaultFields are the watch page elements read by DOMScrapeExtractor.
var DefaultFields = []tabs.Field{
	{Name: tabs.FieldTitle, Selectors: []string{
		"h1.ytd-watch-metadata yt-formatted-string",
		"#title h1",
		"h1.title",
	}},
	{Name: tabs.FieldDescription, Selectors: []string{
		"#description-inline-expander",
		"#description yt-formatted-string",
		"#description",
	}},
	{Name: tabs.FieldDetails, Selectors: []string{
		"#info-container",
		"#info-text",
		"#info",
	}},
	{Name: tabs.FieldTranscript, Selectors: []string{
		"ytd-transcript-segment-list-renderer #segments-container",
		"ytd-transcript-renderer",
		"#segments-container",
	}},
}

// DOMScrapeExtractor reads title, description, other details and transcript
// from the tab document. Missing elements become placeholders; it only
// rejects tabs that are not watch pages.
type DOMScrapeExtractor struct {
	Fields []tabs.Field // nil = DefaultFields
}

func (DOMScrapeExtractor) Mode() string { return engine.ContextModeDOMScrape }

func (e DOMScrapeExtractor) Extract(ctx context.Context, tab *tabs.Tab) (VideoContext, error) {
	if !sources.IsWatchURL(tab.URL) {
		return VideoContext{}, ErrWrongPage
	}
	fields := e.Fields
	if fields == nil {
		fields = DefaultFields
	}

	var found map[string]string
	if tab.Doc != nil {
		var err error
		found, err = tab.Doc.ReadElements(ctx, fields)
		if err != nil {
			slog.Warn("popup: tab document unreadable, using placeholders",
				slog.String("url", tab.URL), slog.Any("error", err))
			found = nil
		}
	}
	return VideoContext{Details: FormatDetails(found)}, nil
}

// FormatDetails renders the labelled block sent as vidDetails.
func FormatDetails(found map[string]string) string {
	value := func(name, placeholder string) string {
		if v := strings.TrimSpace(found[name]); v != "" {
			return v
		}
		return placeholder
	}
	transcript := value(tabs.FieldTranscript, TranscriptNotFound)
	if transcript != TranscriptNotFound {
		transcript = engine.LimitContent(transcript)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", value(tabs.FieldTitle, TitleNotFound))
	fmt.Fprintf(&sb, "Description: %s\n", value(tabs.FieldDescription, DescriptionNotFound))
	fmt.Fprintf(&sb, "Other Details: %s\n", value(tabs.FieldDetails, DetailsNotFound))
	fmt.Fprintf(&sb, "Transcript: %s", transcript)
	return sb.String()
}
