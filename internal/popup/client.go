package popup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/anatolykoptev/go_vidchat/internal/engine"
)

// AskRequest is the JSON body posted to the answer endpoint.
type AskRequest struct {
	Query      string `json:"query"`
	VideoID    string `json:"videoId,omitempty"`
	VidDetails string `json:"vidDetails,omitempty"`
}

// NewAskRequest pairs a question with the extracted context.
func NewAskRequest(query string, vc VideoContext) AskRequest {
	return AskRequest{Query: query, VideoID: vc.VideoID, VidDetails: vc.Details}
}

// AnswerResponse is the endpoint reply. Answer is meaningful only when HasAnswer is set.
type AnswerResponse struct {
	Answer    string
	HasAnswer bool
}

// UnmarshalJSON accepts any valid JSON. A non-empty string answer is taken as
// is; null, "", a missing field or a non-object body leave HasAnswer false;
// other answer values are kept as raw JSON text.
func (r *AnswerResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		Answer json.RawMessage `json:"answer"`
	}
	*r = AnswerResponse{}
	if err := json.Unmarshal(data, &raw); err != nil {
		// json.Unmarshal has already rejected malformed input; this is a
		// well-formed non-object such as a bare string or array.
		return nil
	}
	if len(raw.Answer) == 0 || string(raw.Answer) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.Answer, &s); err == nil {
		r.Answer, r.HasAnswer = s, s != ""
		return nil
	}
	r.Answer, r.HasAnswer = string(raw.Answer), true
	return nil
}

// Text returns the answer, or the fallback message when there is none.
func (r AnswerResponse) Text() string {
	if !r.HasAnswer {
		return NoAnswerText
	}
	return r.Answer
}

// AnswerClient posts questions to the configured endpoint. It never retries.
type AnswerClient struct {
	endpoint string
	http     *http.Client
}

// NewAnswerClient builds a client for endpoint. A nil httpClient gets a
// client without timeout; the caller's context bounds the request.
func NewAnswerClient(endpoint string, httpClient *http.Client) *AnswerClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &AnswerClient{endpoint: endpoint, http: httpClient}
}

// Endpoint returns the URL questions are posted to.
func (c *AnswerClient) Endpoint() string { return c.endpoint }

// Ask issues exactly one POST and decodes the reply.
func (c *AnswerClient) Ask(ctx context.Context, req AskRequest) (resp AnswerResponse, err error) {
	engine.IncrAnswerRequests()
	defer func() {
		if err != nil {
			engine.IncrAnswerErrors()
		}
	}()

	body, err := json.Marshal(req)
	if err != nil {
		return AnswerResponse{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return AnswerResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return AnswerResponse{}, unwrapURLError(err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, 4*1024*1024))
	if err != nil {
		return AnswerResponse{}, fmt.Errorf("read response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return AnswerResponse{}, &StatusError{StatusCode: httpResp.StatusCode, Detail: errorDetail(data)}
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return AnswerResponse{}, fmt.Errorf("invalid JSON response: %w", err)
	}
	return resp, nil
}

// StatusError reports a non-2xx reply from the answer endpoint.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// errorDetail pulls a human message out of an error body such as {"detail": "..."}.
func errorDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil && s != "" {
			return s
		}
		if len(body.Detail) > 0 && string(body.Detail) != "null" {
			return string(body.Detail)
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return engine.TruncateRunes(strings.TrimSpace(string(data)), 200, "...")
}

// unwrapURLError drops the "Post <url>:" prefix so the popup shows the cause.
func unwrapURLError(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Err != nil {
		return uerr.Err
	}
	return err
}
