// Package tabs gives the popup a view of the browser: which tab is active and
// read-only access to the text of that tab's document.
package tabs

import "context"

// Field names shared by document readers and the context extractors.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldDetails     = "details"
	FieldTranscript  = "transcript"
)

// Tab is a browser tab as the popup sees it.
type Tab struct {
	ID    string
	URL   string
	Title string
	Doc   Document // nil when the tab document cannot be read
}

// Field names one element to read. Selectors are tried in order; the first
// element with non-empty text wins.
type Field struct {
	Name      string   `json:"name"`
	Selectors []string `json:"selectors"`
}

// Document runs read-only queries against a tab's document.
// Elements that are missing or empty are absent from the returned map.
type Document interface {
	ReadElements(ctx context.Context, fields []Field) (map[string]string, error)
}

// Querier finds the active tab. It returns nil, nil when there is none.
type Querier interface {
	ActiveTab(ctx context.Context) (*Tab, error)
}
