package popup

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_vidchat/internal/engine"
	"github.com/anatolykoptev/go_vidchat/internal/tabs"
)

func TestNewExtractor(t *testing.T) {
	tests := []struct {
		mode    string
		want    string
		wantErr bool
	}{
		{"", engine.ContextModeURLParam, false},
		{engine.ContextModeURLParam, engine.ContextModeURLParam, false},
		{engine.ContextModeDOMScrape, engine.ContextModeDOMScrape, false},
		{"scrape", "", true},
	}
	for _, tt := range tests {
		e, err := NewExtractor(tt.mode)
		if tt.wantErr {
			assert.Error(t, err, tt.mode)
			continue
		}
		require.NoError(t, err, tt.mode)
		assert.Equal(t, tt.want, e.Mode())
	}
}

func TestURLParamExtractor(t *testing.T) {
	vc, err := URLParamExtractor{}.Extract(context.Background(), &tabs.Tab{URL: "https://www.youtube.com/watch?v=abc123&t=5s"})
	require.NoError(t, err)
	assert.Equal(t, VideoContext{VideoID: "abc123"}, vc)

	_, err = URLParamExtractor{}.Extract(context.Background(), &tabs.Tab{URL: "https://www.youtube.com/"})
	assert.ErrorIs(t, err, ErrNoVideoID)
}

func TestFormatDetailsAllMissing(t *testing.T) {
	want := "Title: " + TitleNotFound + "\n" +
		"Description: " + DescriptionNotFound + "\n" +
		"Other Details: " + DetailsNotFound + "\n" +
		"Transcript: " + TranscriptNotFound
	assert.Equal(t, want, FormatDetails(nil))
	assert.Equal(t, want, FormatDetails(map[string]string{tabs.FieldTitle: "   "}))
}

func TestFormatDetailsCapsTranscript(t *testing.T) {
	engine.Init(engine.Config{MaxContentChars: 10})
	t.Cleanup(func() { engine.Init(engine.Config{}) })

	got := FormatDetails(map[string]string{
		tabs.FieldTitle:       "T",
		tabs.FieldDescription: "D",
		tabs.FieldDetails:     "Channel: C",
		tabs.FieldTranscript:  strings.Repeat("x", 50),
	})
	head := "Title: T\nDescription: D\nOther Details: Channel: C\nTranscript: "
	require.True(t, strings.HasPrefix(got, head), got)
	transcript := strings.TrimPrefix(got, head)
	assert.True(t, strings.HasSuffix(transcript, "..."), transcript)
	assert.LessOrEqual(t, len(transcript), 13)
}

type recordingDoc struct {
	fields []tabs.Field
}

func (d *recordingDoc) ReadElements(_ context.Context, fields []tabs.Field) (map[string]string, error) {
	d.fields = fields
	return map[string]string{tabs.FieldDescription: "desc"}, nil
}

func TestDOMScrapeExtractorFields(t *testing.T) {
	doc := &recordingDoc{}
	tab := &tabs.Tab{URL: "https://www.youtube.com/watch?v=abc123", Doc: doc}

	vc, err := DOMScrapeExtractor{}.Extract(context.Background(), tab)
	require.NoError(t, err)
	assert.Equal(t, DefaultFields, doc.fields)
	assert.Empty(t, vc.VideoID)
	assert.Contains(t, vc.Details, "Description: desc\n")
	assert.Contains(t, vc.Details, "Title: "+TitleNotFound+"\n")

	custom := []tabs.Field{{Name: tabs.FieldTitle, Selectors: []string{"h1"}}}
	_, err = DOMScrapeExtractor{Fields: custom}.Extract(context.Background(), tab)
	require.NoError(t, err)
	assert.Equal(t, custom, doc.fields)
}

func TestDOMScrapeExtractorNoDocument(t *testing.T) {
	vc, err := DOMScrapeExtractor{}.Extract(context.Background(), &tabs.Tab{URL: "https://www.youtube.com/watch?v=abc123"})
	require.NoError(t, err)
	assert.Equal(t, FormatDetails(nil), vc.Details)
}
