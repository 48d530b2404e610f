package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	Submits                   atomic.Int64
	Rejected                  atomic.Int64
	AnswerRequests            atomic.Int64
	AnswerErrors              atomic.Int64
	FetchRequests             atomic.Int64
	FetchErrors               atomic.Int64
	TabQueries                atomic.Int64
	DOMReads                  atomic.Int64
	YouTubeTranscriptRequests atomic.Int64
}

var metricKeys = []string{
	"submits", "rejected",
	"answer_requests", "answer_errors",
	"fetch_requests", "fetch_errors",
	"tab_queries", "dom_reads",
	"youtube_transcript_requests",
}

// GetMetrics returns a snapshot of all metrics.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"submits":                     metrics.Submits.Load(),
		"rejected":                    metrics.Rejected.Load(),
		"answer_requests":             metrics.AnswerRequests.Load(),
		"answer_errors":               metrics.AnswerErrors.Load(),
		"fetch_requests":              metrics.FetchRequests.Load(),
		"fetch_errors":                metrics.FetchErrors.Load(),
		"tab_queries":                 metrics.TabQueries.Load(),
		"dom_reads":                   metrics.DOMReads.Load(),
		"youtube_transcript_requests": metrics.YouTubeTranscriptRequests.Load(),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for popup, tabs and sources packages.
func IncrSubmits()           { metrics.Submits.Add(1) }
func IncrRejected()          { metrics.Rejected.Add(1) }
func IncrAnswerRequests()    { metrics.AnswerRequests.Add(1) }
func IncrAnswerErrors()      { metrics.AnswerErrors.Add(1) }
func IncrTabQueries()        { metrics.TabQueries.Add(1) }
func IncrDOMReads()          { metrics.DOMReads.Add(1) }
func IncrYouTubeTranscript() { metrics.YouTubeTranscriptRequests.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
