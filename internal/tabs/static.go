package tabs

import (
	"context"
	"log/slog"

	"github.com/anatolykoptev/go_vidchat/internal/engine"
	"github.com/anatolykoptev/go_vidchat/internal/engine/sources"
)

// Static is a tab pinned to one URL. Its document is the page fetched over
// HTTP and queried with goquery; fields a server-rendered watch page lacks
// are filled from its embedded player response and caption track.
type Static struct {
	url string
}

// NewStatic returns a Querier whose active tab is always rawURL.
// An empty rawURL means there is no tab.
func NewStatic(rawURL string) *Static {
	return &Static{url: rawURL}
}

func (s *Static) ActiveTab(ctx context.Context) (*Tab, error) {
	engine.IncrTabQueries()
	if s.url == "" {
		return nil, nil
	}
	return &Tab{ID: "static", URL: s.url, Doc: &pageDocument{url: s.url}}, nil
}

type pageDocument struct {
	url string
}

func (d *pageDocument) ReadElements(ctx context.Context, fields []Field) (map[string]string, error) {
	engine.IncrDOMReads()

	body, err := engine.FetchPage(ctx, d.url)
	if err != nil {
		return nil, err
	}
	doc, err := engine.ParseHTML(body)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(fields))
	for _, f := range fields {
		for _, sel := range f.Selectors {
			if text := engine.SelectionText(doc.Find(sel).First()); text != "" {
				out[f.Name] = text
				break
			}
		}
	}

	if len(out) == len(fields) {
		return out, nil
	}
	page, err := sources.ParseWatchPage(body)
	if err != nil {
		slog.Debug("tabs: watch page parse failed", slog.String("url", d.url), slog.Any("error", err))
		return out, nil
	}
	for _, f := range fields {
		if _, ok := out[f.Name]; ok {
			continue
		}
		if text := pageFallback(ctx, f.Name, page); text != "" {
			out[f.Name] = text
		}
	}
	return out, nil
}

// pageFallback supplies a field from the parsed watch page.
func pageFallback(ctx context.Context, name string, page sources.WatchPage) string {
	switch name {
	case FieldTitle:
		return page.Title
	case FieldDescription:
		return page.Description
	case FieldDetails:
		return page.OtherDetails()
	case FieldTranscript:
		return pageTranscript(ctx, page)
	}
	return ""
}

// transcriptFallback fetches a transcript without re-reading the watch page.
var transcriptFallback = sources.FetchTranscriptFallbacks

func pageTranscript(ctx context.Context, page sources.WatchPage) string {
	langs := engine.Cfg.TranscriptLangs
	text, err := sources.TranscriptFromTracks(ctx, page.Tracks, langs)
	if err == nil {
		return text
	}
	if page.VideoID == "" {
		slog.Warn("tabs: no transcript", slog.Any("error", err))
		return ""
	}
	text, err = transcriptFallback(ctx, page.VideoID, langs)
	if err != nil {
		slog.Warn("tabs: no transcript", slog.String("id", page.VideoID), slog.Any("error", err))
		return ""
	}
	return text
}
