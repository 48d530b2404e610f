package popup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_vidchat/internal/tabs"
)

const defaultLabel = "Ask"

// fakeButton records every state change.
type fakeButton struct {
	mu      sync.Mutex
	enabled bool
	label   string
	events  []string
}

func newFakeButton() *fakeButton {
	return &fakeButton{enabled: true, label: defaultLabel}
}

func (b *fakeButton) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
	if enabled {
		b.events = append(b.events, "enable")
	} else {
		b.events = append(b.events, "disable")
	}
}

func (b *fakeButton) SetLabel(label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.label = label
	b.events = append(b.events, "label:"+label)
}

func (b *fakeButton) DefaultLabel() string { return defaultLabel }

func (b *fakeButton) state() (bool, string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled, b.label
}

func (b *fakeButton) history() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.events...)
}

type fakeMessage struct{ texts []string }

func (m *fakeMessage) SetText(text string) { m.texts = append(m.texts, text) }

func (m *fakeMessage) last() string {
	if len(m.texts) == 0 {
		return ""
	}
	return m.texts[len(m.texts)-1]
}

type fakeInput string

func (i fakeInput) Value() string { return string(i) }

type fakeQuerier struct {
	tab *tabs.Tab
	err error
}

func (q fakeQuerier) ActiveTab(context.Context) (*tabs.Tab, error) { return q.tab, q.err }

type fakeDoc struct {
	found map[string]string
	err   error
}

func (d fakeDoc) ReadElements(context.Context, []tabs.Field) (map[string]string, error) {
	return d.found, d.err
}

// answerServer records requests and replies with status/body.
type answerServer struct {
	*httptest.Server
	calls    atomic.Int32
	busySeen atomic.Bool

	mu    sync.Mutex
	body  []byte
	ctype string
}

func (s *answerServer) lastBody() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.body
}

func (s *answerServer) lastType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctype
}

func newAnswerServer(t *testing.T, button *fakeButton, status int, body string) *answerServer {
	t.Helper()
	s := &answerServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		got, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.body, s.ctype = got, r.Header.Get("Content-Type")
		s.mu.Unlock()
		if button != nil {
			enabled, label := button.state()
			s.busySeen.Store(!enabled && label == BusyLabel)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(s.Close)
	return s
}

type harness struct {
	button  *fakeButton
	message *fakeMessage
	ui      UI
}

func newHarness(input string) *harness {
	h := &harness{button: newFakeButton(), message: &fakeMessage{}}
	h.ui = UI{Button: h.button, Message: h.message, Input: fakeInput(input)}
	return h
}

func (h *harness) assertRestored(t *testing.T) {
	t.Helper()
	enabled, label := h.button.state()
	assert.True(t, enabled, "button must be re-enabled")
	assert.Equal(t, defaultLabel, label, "button label must be restored")
}

func watchTab(url string) *tabs.Tab { return &tabs.Tab{ID: "1", URL: url} }

func TestSubmitBlankInputNeverRequests(t *testing.T) {
	for _, query := range []string{"", "   ", "\t\n  "} {
		h := newHarness(query)
		srv := newAnswerServer(t, nil, http.StatusOK, `{"answer":"x"}`)
		c := NewController(h.ui, fakeQuerier{tab: watchTab("https://www.youtube.com/watch?v=abc123")}, nil, NewAnswerClient(srv.URL, srv.Client()))

		got := c.Submit(context.Background(), query, watchTab("https://www.youtube.com/watch?v=abc123"))
		assert.Equal(t, NeedsInput, got.Kind)
		assert.Equal(t, EmptyInputText, h.message.last())
		assert.Zero(t, srv.calls.Load(), "no request for %q", query)
		assert.Empty(t, h.button.history(), "button untouched for blank input")

		got = c.HandleClick(context.Background())
		assert.Equal(t, NeedsInput, got.Kind)
		assert.Zero(t, srv.calls.Load())
	}
}

func TestSubmitNoActiveTab(t *testing.T) {
	h := newHarness("what is this about?")
	srv := newAnswerServer(t, nil, http.StatusOK, `{"answer":"x"}`)
	c := NewController(h.ui, fakeQuerier{}, nil, NewAnswerClient(srv.URL, srv.Client()))

	got := c.HandleClick(context.Background())
	assert.Equal(t, NoActiveTab, got.Kind)
	assert.Equal(t, NoActiveTabText, h.message.last())
	assert.Zero(t, srv.calls.Load())
	assert.Equal(t, []string{"disable", "label:" + BusyLabel, "enable", "label:" + defaultLabel}, h.button.history())
}

func TestSubmitWrongPage(t *testing.T) {
	pages := []string{
		"https://www.youtube.com/",
		"https://www.youtube.com/feed/subscriptions",
		"chrome://newtab/",
		"https://example.com/article",
	}
	tests := []struct {
		name      string
		extractor ContextExtractor
		want      Kind
	}{
		{"url param", URLParamExtractor{}, NoVideoID},
		{"dom scrape", DOMScrapeExtractor{}, WrongPage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, page := range pages {
				h := newHarness("q")
				srv := newAnswerServer(t, nil, http.StatusOK, `{"answer":"x"}`)
				c := NewController(h.ui, nil, tt.extractor, NewAnswerClient(srv.URL, srv.Client()))

				got := c.Submit(context.Background(), "q", watchTab(page))
				assert.Equal(t, tt.want, got.Kind, page)
				assert.Equal(t, OpenVideoText, h.message.last())
				assert.Zero(t, srv.calls.Load(), "no request for %s", page)
				h.assertRestored(t)
			}
		})
	}
}

func TestSubmitSendsVideoID(t *testing.T) {
	h := newHarness("what is discussed?")
	srv := newAnswerServer(t, h.button, http.StatusOK, `{"answer": "42"}`)
	c := NewController(h.ui, fakeQuerier{tab: watchTab("https://www.youtube.com/watch?v=abc123&t=5s")}, URLParamExtractor{}, NewAnswerClient(srv.URL, srv.Client()))

	got := c.HandleClick(context.Background())
	require.Equal(t, Answered, got.Kind)
	assert.Equal(t, "42", got.Text)
	assert.Equal(t, []string{LoadingText, "42"}, h.message.texts)

	assert.EqualValues(t, 1, srv.calls.Load())
	assert.Equal(t, "application/json", srv.lastType())
	assert.JSONEq(t, `{"query":"what is discussed?","videoId":"abc123"}`, string(srv.lastBody()))

	assert.True(t, srv.busySeen.Load(), "button must be disabled while the request is in flight")
	h.assertRestored(t)
}

func TestSubmitSendsVidDetails(t *testing.T) {
	h := newHarness("q")
	srv := newAnswerServer(t, nil, http.StatusOK, `{"answer":"ok"}`)
	tab := watchTab("https://www.youtube.com/watch?v=abc123")
	tab.Doc = fakeDoc{found: map[string]string{
		tabs.FieldTitle:      "Fusion explained",
		tabs.FieldTranscript: "today we talk about fusion",
	}}
	c := NewController(h.ui, nil, DOMScrapeExtractor{}, NewAnswerClient(srv.URL, srv.Client()))

	got := c.Submit(context.Background(), "  q  ", tab)
	require.Equal(t, Answered, got.Kind)

	var body map[string]string
	require.NoError(t, json.Unmarshal(srv.lastBody(), &body))
	assert.Equal(t, "q", body["query"])
	_, hasID := body["videoId"]
	assert.False(t, hasID)
	assert.Equal(t, "Title: Fusion explained\n"+
		"Description: "+DescriptionNotFound+"\n"+
		"Other Details: "+DetailsNotFound+"\n"+
		"Transcript: today we talk about fusion", body["vidDetails"])
}

func TestSubmitUnreadableDocumentUsesPlaceholders(t *testing.T) {
	h := newHarness("q")
	srv := newAnswerServer(t, nil, http.StatusOK, `{"answer":"ok"}`)
	tab := watchTab("https://www.youtube.com/watch?v=abc123")
	tab.Doc = fakeDoc{err: errors.New("target closed")}
	c := NewController(h.ui, nil, DOMScrapeExtractor{}, NewAnswerClient(srv.URL, srv.Client()))

	got := c.Submit(context.Background(), "q", tab)
	require.Equal(t, Answered, got.Kind)
	assert.Contains(t, string(srv.lastBody()), TitleNotFound)
	assert.Contains(t, string(srv.lastBody()), TranscriptNotFound)
}

func TestSubmitAnswerShapes(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantText string
	}{
		{"answer", http.StatusOK, `{"answer": "42"}`, Answered, "42"},
		{"missing answer", http.StatusOK, `{}`, Answered, NoAnswerText},
		{"null answer", http.StatusOK, `{"answer": null}`, Answered, NoAnswerText},
		{"empty string answer", http.StatusOK, `{"answer": ""}`, Answered, NoAnswerText},
		{"number answer", http.StatusOK, `{"answer": 7}`, Answered, "7"},
		{"non-object body", http.StatusOK, `["a"]`, Answered, NoAnswerText},
		{"malformed json", http.StatusOK, `<html>oops</html>`, Failed, ErrorPrefix + "invalid JSON response"},
		{"empty body", http.StatusOK, ``, Failed, ErrorPrefix + "invalid JSON response"},
		{"server detail", http.StatusBadRequest, `{"detail": "query is empty"}`, Failed, ErrorPrefix + "HTTP 400 Bad Request: query is empty"},
		{"server error", http.StatusInternalServerError, `{"detail": "Internal Server Error"}`, Failed, ErrorPrefix + "HTTP 500 Internal Server Error: Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("q")
			srv := newAnswerServer(t, nil, tt.status, tt.body)
			c := NewController(h.ui, nil, nil, NewAnswerClient(srv.URL, srv.Client()))

			got := c.Submit(context.Background(), "q", watchTab("https://www.youtube.com/watch?v=abc123"))
			assert.Equal(t, tt.wantKind, got.Kind)
			if tt.wantKind == Failed {
				assert.True(t, strings.HasPrefix(got.Text, tt.wantText), "got %q", got.Text)
			} else {
				assert.Equal(t, tt.wantText, got.Text)
			}
			assert.Equal(t, got.Text, h.message.last())
			assert.EqualValues(t, 1, srv.calls.Load(), "exactly one request, no retry")
			h.assertRestored(t)
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestSubmitNetworkFailure(t *testing.T) {
	h := newHarness("q")
	var calls atomic.Int32
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("Failed to fetch")
	})}
	c := NewController(h.ui, nil, nil, NewAnswerClient("http://127.0.0.1:8000/videochat", client))

	got := c.Submit(context.Background(), "q", watchTab("https://www.youtube.com/watch?v=abc123"))
	assert.Equal(t, Failed, got.Kind)
	assert.Equal(t, "Error: Failed to fetch", h.message.last())
	assert.EqualValues(t, 1, calls.Load())
	h.assertRestored(t)
}

func TestHandleClickTabQueryError(t *testing.T) {
	h := newHarness("q")
	c := NewController(h.ui, fakeQuerier{err: errors.New("connection refused")}, nil, NewAnswerClient("http://unused", nil))

	got := c.HandleClick(context.Background())
	assert.Equal(t, Failed, got.Kind)
	assert.Equal(t, "Error: connection refused", h.message.last())
	h.assertRestored(t)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "answered", Answered.String())
	assert.Equal(t, "needs_input", NeedsInput.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
