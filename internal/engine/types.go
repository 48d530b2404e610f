package engine

// --- Tool input types ---

type VideoChatInput struct {
	Question string `json:"question" jsonschema:"Question about the YouTube video"`
	URL      string `json:"url,omitempty" jsonschema:"YouTube watch URL. Empty = active tab of the configured Chrome"`
}

type VideoContextInput struct {
	URL string `json:"url,omitempty" jsonschema:"YouTube watch URL. Empty = active tab of the configured Chrome"`
}

// --- Output types (JSON responses) ---

// VideoChatOutput mirrors what the popup shows after one submit.
type VideoChatOutput struct {
	Outcome string `json:"outcome"`          // needs_input, no_active_tab, wrong_page, no_video_id, answered, failed
	Message string `json:"message"`          // text of the message area
	Answer  string `json:"answer,omitempty"` // set only when outcome is answered
	TabURL  string `json:"tab_url,omitempty"`
}

// VideoContextOutput is the context that would be posted for a tab.
type VideoContextOutput struct {
	TabURL  string `json:"tab_url"`
	Mode    string `json:"mode"`
	VideoID string `json:"video_id,omitempty"`
	Details string `json:"vid_details,omitempty"`
}
