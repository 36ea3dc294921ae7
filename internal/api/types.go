package api

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message     string         `json:"message"`
	MessageType string         `json:"message_type"`
	SessionID   string         `json:"session_id,omitempty"`
	Context     map[string]any `json:"context,omitempty"`
}

// ChatResponse is the reply from POST /chat.
type ChatResponse struct {
	Response     string         `json:"response"`
	SessionID    string         `json:"session_id"`
	ResponseType string         `json:"response_type"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Suggestions  []string       `json:"suggestions,omitempty"`
}

// UploadResult is the reply from POST /upload.
type UploadResult struct {
	Filename  string `json:"filename"`
	FileType  string `json:"file_type"`
	FileSize  int64  `json:"file_size"`
	Processed bool   `json:"processed"`
	Summary   string `json:"summary"`
}

// SearchResponse is the reply from POST /web/search.
type SearchResponse struct {
	Query      string         `json:"query"`
	Results    []SearchResult `json:"results"`
	TotalFound int            `json:"total_found"`
}

// SearchResult is one enriched entry in a search result set. A failure on
// a single result is carried in Error without failing the whole set.
type SearchResult struct {
	URL           string         `json:"url"`
	Title         string         `json:"title,omitempty"`
	SearchTitle   string         `json:"search_title,omitempty"`
	SearchSnippet string         `json:"search_snippet,omitempty"`
	Content       string         `json:"content,omitempty"`
	AISummary     string         `json:"ai_summary,omitempty"`
	WordCount     int            `json:"word_count,omitempty"`
	Metadata      *FetchMetadata `json:"metadata,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// FetchMetadata describes the HTTP fetch behind a search result.
type FetchMetadata struct {
	StatusCode   int    `json:"status_code"`
	ContentType  string `json:"content_type,omitempty"`
	LastModified string `json:"last_modified,omitempty"`
}

// SpeechRequest is the body of POST /voice/tts.
type SpeechRequest struct {
	Text         string `json:"text"`
	Voice        string `json:"voice,omitempty"`
	Speed        int    `json:"speed,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
}

// Transcript is the reply from POST /voice/stt.
type Transcript struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Success    bool    `json:"success"`
}

// CalcResult is the reply from POST /task/calculate. Success false carries
// the evaluation error in Error.
type CalcResult struct {
	Expression string `json:"expression"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
	Success    bool   `json:"success"`
}

// Voice describes one available synthesis voice.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HealthStatus is the reply from GET /health.
type HealthStatus struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Stats is the reply from GET /stats.
type Stats struct {
	TotalConversations int    `json:"total_conversations"`
	FilesProcessed     int    `json:"files_processed"`
	WebPagesScraped    int    `json:"web_pages_scraped"`
	VoiceInteractions  int    `json:"voice_interactions"`
	Uptime             string `json:"uptime"`
	Version            string `json:"version"`
}

// errorBody is the FastAPI-style error envelope on non-2xx responses.
type errorBody struct {
	Detail string `json:"detail"`
}
