package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tidwall/gjson"
	"github.com/viabilitychat/chatrelay/internal/config"
	internal_errors "github.com/viabilitychat/chatrelay/internal/errors"
)

const defaultHint = "check the API key, the model or the usage limits"

var headerData = []byte("data:")

// Payload is the body of a chat/completions call. Stream and MaxTokens are
// always written, even when zero.
type Payload struct {
	Model     string                           `json:"model"`
	Messages  []goopenai.ChatCompletionMessage `json:"messages"`
	Stream    bool                             `json:"stream"`
	MaxTokens int                              `json:"max_tokens"`
}

type Client struct {
	httpClient *http.Client
	baseUrl    string
	apiKey     string
	referer    string
	title      string
}

func NewClient(httpClient *http.Client, cfg *config.Config) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		httpClient: httpClient,
		baseUrl:    strings.TrimSuffix(cfg.OpenRouterBaseUrl, "/"),
		apiKey:     cfg.OpenRouterKey,
		referer:    cfg.SiteUrl,
		title:      cfg.AppTitle,
	}
}

func (c *Client) newRequest(ctx context.Context, p *Payload) (*http.Request, error) {
	bs, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("error when marshalling openrouter payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+"/chat/completions", bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("error when creating openrouter http request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	if p.Stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
		req.Header.Set("Connection", "keep-alive")
	}

	return req, nil
}

// do sends exactly one request. Non-2xx responses are drained best effort
// into the hint of an UpstreamError and closed.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, internal_errors.NewUnreachableError(err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		defer res.Body.Close()

		hint := defaultHint
		bs, err := io.ReadAll(res.Body)
		if err == nil && len(strings.TrimSpace(string(bs))) != 0 {
			hint = strings.TrimSpace(string(bs))
		}

		return nil, internal_errors.NewUpstreamError(res.StatusCode, hint)
	}

	return res, nil
}

// Complete performs a non-streaming completion and returns the unwrapped text.
func (c *Client) Complete(ctx context.Context, p *Payload) (string, error) {
	p.Stream = false

	req, err := c.newRequest(ctx, p)
	if err != nil {
		return "", internal_errors.NewInternalError(err.Error())
	}

	res, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	// a body that stalls past the deadline is a transport failure
	bs, err := io.ReadAll(res.Body)
	if err != nil {
		return "", internal_errors.NewUnreachableError(err)
	}

	if !gjson.ValidBytes(bs) {
		return "", internal_errors.NewInternalError("openrouter response body is not valid json")
	}

	content := ExtractCompletion(bs)
	if len(content) == 0 {
		return "", internal_errors.NewEmptyCompletionError()
	}

	return content, nil
}

// ExtractCompletion reads choices[0].message.content and falls back to the
// legacy choices[0].text only when the message content is absent or null.
// Content given as an array of parts is joined from their text fields.
func ExtractCompletion(body []byte) string {
	content := gjson.GetBytes(body, "choices.0.message.content")
	if content.Exists() && content.Type != gjson.Null {
		if content.IsArray() {
			parts := []string{}
			for _, part := range content.Get("#.text").Array() {
				parts = append(parts, part.String())
			}

			return strings.Join(parts, "")
		}

		return content.String()
	}

	return gjson.GetBytes(body, "choices.0.text").String()
}

// Stream starts a streaming completion. The caller must Close the reader.
func (c *Client) Stream(ctx context.Context, p *Payload) (*StreamReader, error) {
	p.Stream = true

	req, err := c.newRequest(ctx, p)
	if err != nil {
		return nil, internal_errors.NewInternalError(err.Error())
	}

	res, err := c.do(req)
	if err != nil {
		return nil, err
	}

	// some models ignore stream and answer with a single completion
	if strings.HasPrefix(res.Header.Get("Content-Type"), "application/json") {
		return newCompletionReader(res.Body)
	}

	return &StreamReader{
		body:   res.Body,
		reader: bufio.NewReader(res.Body),
	}, nil
}

// newCompletionReader reads a non-streamed completion body and returns a
// reader that yields its text as a single delta.
func newCompletionReader(body io.ReadCloser) (*StreamReader, error) {
	defer body.Close()

	bs, err := io.ReadAll(body)
	if err != nil {
		return nil, internal_errors.NewUnreachableError(err)
	}

	if !gjson.ValidBytes(bs) {
		return nil, internal_errors.NewInternalError("openrouter response body is not valid json")
	}

	if err := errorFrame(bs); err != nil {
		return nil, err
	}

	empty := bytes.NewReader(nil)
	return &StreamReader{
		body:    io.NopCloser(empty),
		reader:  bufio.NewReader(empty),
		pending: ExtractCompletion(bs),
	}, nil
}

type StreamReader struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	pending string
	done    bool
}

// Recv returns the next non-empty text delta. It returns io.EOF once the
// provider sends [DONE] or closes the stream. An error frame from the
// provider is returned as an UpstreamError.
func (s *StreamReader) Recv() (string, error) {
	if len(s.pending) != 0 {
		delta := s.pending
		s.pending = ""
		return delta, nil
	}

	for {
		if s.done {
			return "", io.EOF
		}

		raw, err := s.reader.ReadBytes('\n')
		if err == io.EOF {
			s.done = true
			if len(bytes.TrimSpace(raw)) == 0 {
				return "", io.EOF
			}
		} else if err != nil {
			return "", err
		}

		delta, err := s.parseLine(raw)
		if err != nil {
			return "", err
		}

		if len(delta) != 0 {
			return delta, nil
		}
	}
}

func (s *StreamReader) parseLine(raw []byte) (string, error) {
	line := bytes.TrimSpace(raw)

	// blank separators and ": comment" keep-alives
	if !bytes.HasPrefix(line, headerData) {
		return "", nil
	}

	data := bytes.TrimSpace(bytes.TrimPrefix(line, headerData))
	if string(data) == "[DONE]" {
		s.done = true
		return "", nil
	}

	if !gjson.ValidBytes(data) {
		return "", nil
	}

	if err := errorFrame(data); err != nil {
		return "", err
	}

	delta := gjson.GetBytes(data, "choices.0.delta.content")
	if delta.Exists() && delta.Type != gjson.Null {
		return delta.String(), nil
	}

	return gjson.GetBytes(data, "choices.0.text").String(), nil
}

// errorFrame returns the UpstreamError carried by an {"error": ...} body, or
// nil when data has no error member.
func errorFrame(data []byte) error {
	e := gjson.GetBytes(data, "error")
	if !e.Exists() || e.Type == gjson.Null {
		return nil
	}

	code := int(e.Get("code").Int())
	if code == 0 {
		code = http.StatusBadGateway
	}

	hint := e.Get("message").String()
	if len(hint) == 0 {
		hint = e.Raw
	}

	return internal_errors.NewUpstreamError(code, hint)
}

func (s *StreamReader) Close() error {
	return s.body.Close()
}
