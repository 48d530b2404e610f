package sources

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/anatolykoptev/go_vidchat/internal/engine"
)

// videoParamRE matches the v= query parameter anywhere in a URL.
var videoParamRE = regexp.MustCompile(`[?&]v=([^&]+)`)

// VideoIDFromURL returns the value of the first v= parameter in rawURL, or "".
// The match is textual, so anything after v= up to the next '&' is the id.
func VideoIDFromURL(rawURL string) string {
	if m := videoParamRE.FindStringSubmatch(rawURL); len(m) >= 2 {
		return m[1]
	}
	return ""
}

// IsWatchURL reports whether rawURL points at a watch page (path contains /watch).
func IsWatchURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, "/watch")
}

// WatchURL builds the canonical watch page URL for a video id.
func WatchURL(videoID string) string {
	return ytBaseURL + "/watch?v=" + url.QueryEscape(videoID)
}

// ytInitialPlayerResponseMarker marks the start of the player response JSON in watch page HTML.
const ytInitialPlayerResponseMarker = "ytInitialPlayerResponse = "

// WatchPage is what a server-rendered watch page tells us about its video.
type WatchPage struct {
	VideoID     string
	Title       string
	Description string
	Channel     string
	Views       string
	PublishDate string
	Tracks      []CaptionTrack
}

// OtherDetails joins channel, views and publish date into one line.
// Empty when none are known.
func (p WatchPage) OtherDetails() string {
	var parts []string
	if p.Channel != "" {
		parts = append(parts, "Channel: "+p.Channel)
	}
	if p.Views != "" {
		parts = append(parts, "Views: "+p.Views)
	}
	if p.PublishDate != "" {
		parts = append(parts, "Published: "+p.PublishDate)
	}
	return strings.Join(parts, " | ")
}

// ParseWatchPage extracts video metadata and caption tracks from watch page HTML.
// The embedded player response wins; meta tags fill whatever it lacks.
func ParseWatchPage(body []byte) (WatchPage, error) {
	var page WatchPage

	if pr, ok := parsePlayerResponse(body); ok {
		if vd := pr.VideoDetails; vd != nil {
			page.VideoID = vd.VideoID
			page.Title = vd.Title
			page.Description = strings.TrimSpace(vd.ShortDescription)
			page.Channel = vd.Author
			page.Views = vd.ViewCount
		}
		if pr.Microformat != nil {
			page.PublishDate = pr.Microformat.PlayerMicroformatRenderer.PublishDate
		}
		page.Tracks = pr.tracks()
	}

	doc, err := engine.ParseHTML(body)
	if err != nil {
		return page, err
	}
	if page.Title == "" {
		page.Title = metaContent(doc, `meta[property="og:title"]`, `meta[name="title"]`)
		if page.Title == "" {
			page.Title = strings.TrimSuffix(strings.TrimSpace(doc.Find("title").First().Text()), " - YouTube")
		}
	}
	if page.Description == "" {
		page.Description = metaContent(doc, `meta[property="og:description"]`, `meta[name="description"]`)
	}
	if page.Channel == "" {
		page.Channel = metaContent(doc, `link[itemprop="name"]`, `span[itemprop="author"] link[itemprop="name"]`)
	}
	if page.PublishDate == "" {
		page.PublishDate = metaContent(doc, `meta[itemprop="datePublished"]`, `meta[itemprop="uploadDate"]`)
	}
	if page.VideoID == "" {
		page.VideoID = metaContent(doc, `meta[itemprop="videoId"]`, `meta[itemprop="identifier"]`)
	}
	return page, nil
}

// metaContent returns the first non-empty content attribute among selectors.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func parsePlayerResponse(body []byte) (*playerResponse, bool) {
	idx := strings.Index(string(body), ytInitialPlayerResponseMarker)
	if idx < 0 {
		return nil, false
	}
	jsonData := extractJSON(body[idx+len(ytInitialPlayerResponseMarker):])
	if jsonData == nil {
		return nil, false
	}
	var pr playerResponse
	if err := json.Unmarshal(jsonData, &pr); err != nil {
		return nil, false
	}
	return &pr, true
}

// extractJSON returns the balanced JSON object at the start of b.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
