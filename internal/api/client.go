package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks JSON over HTTP to the assistant backend. All requests share
// a fixed client-side timeout; exceeding it surfaces as an ordinary network
// error.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New creates a backend client. baseURL is the API root, e.g.
// "http://localhost:8000/api/v1".
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// SendMessage posts a chat turn and returns the assistant reply.
func (c *Client) SendMessage(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	if err := c.postJSON(ctx, "/chat", req, &resp); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &resp, nil
}

// UploadFile transfers a file as multipart form data and returns the
// server-side analysis result. onProgress, if non-nil, receives monotonic
// transfer percentages in [0,100] as the request body is consumed.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader, onProgress func(pct int)) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("upload %s: read file: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}

	total := int64(body.Len())
	var reader io.Reader = &body
	if onProgress != nil {
		reader = &progressReader{r: &body, total: total, report: onProgress}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", reader)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())
	httpReq.ContentLength = total

	var result UploadResult
	if err := c.do(httpReq, &result); err != nil {
		return nil, fmt.Errorf("upload %s: %w", filename, err)
	}
	if onProgress != nil {
		onProgress(100)
	}
	return &result, nil
}

// SearchWeb runs a web search with per-result enrichment. numResults is
// passed through unclamped; callers are expected to bound it.
func (c *Client) SearchWeb(ctx context.Context, query string, numResults int) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("query", query)
	q.Set("num_results", strconv.Itoa(numResults))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/web/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("search web: %w", err)
	}
	var resp SearchResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, fmt.Errorf("search web: %w", err)
	}
	return &resp, nil
}

// TextToSpeech synthesizes text and returns the raw audio payload.
func (c *Client) TextToSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("text to speech: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voice/tts", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("text to speech: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("text to speech: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("text to speech: %w", decodeError(resp))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("text to speech: read audio: %w", err)
	}
	return audio, nil
}

// SpeechToText transcribes an audio payload.
func (c *Client) SpeechToText(ctx context.Context, audio []byte) (*Transcript, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("audio_file", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("speech to text: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("speech to text: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("speech to text: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/voice/stt", &body)
	if err != nil {
		return nil, fmt.Errorf("speech to text: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var result Transcript
	if err := c.do(httpReq, &result); err != nil {
		return nil, fmt.Errorf("speech to text: %w", err)
	}
	return &result, nil
}

// Calculate evaluates a math expression on the backend.
func (c *Client) Calculate(ctx context.Context, expression string) (*CalcResult, error) {
	q := url.Values{}
	q.Set("expression", expression)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/task/calculate?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("calculate: %w", err)
	}
	var result CalcResult
	if err := c.do(httpReq, &result); err != nil {
		return nil, fmt.Errorf("calculate: %w", err)
	}
	return &result, nil
}

// Voices lists the synthesis voices available on the backend.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	var voices []Voice
	if err := c.getJSON(ctx, "/voice/voices", &voices); err != nil {
		return nil, fmt.Errorf("list voices: %w", err)
	}
	return voices, nil
}

// Health probes backend reachability.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.getJSON(ctx, "/health", &status); err != nil {
		return nil, fmt.Errorf("health check: %w", err)
	}
	return &status, nil
}

// Stats fetches backend service statistics.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := c.getJSON(ctx, "/stats", &stats); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &stats, nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	return c.do(httpReq, out)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(httpReq, out)
}

func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.Path),
			zap.Error(err))
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Info("request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError extracts the backend {detail} envelope when present.
func decodeError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		return fmt.Errorf("backend returned %d: %s", resp.StatusCode, body.Detail)
	}
	return fmt.Errorf("backend returned %d", resp.StatusCode)
}

// progressReader reports transfer progress as whole percentages, never
// repeating a value and never going backwards.
type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	last   int
	report func(pct int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.sent += int64(n)
	if p.total > 0 {
		pct := int(p.sent * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		if pct > p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}
