package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/viabilitychat/chatrelay/internal/chat"
)

type relayClient struct {
	httpClient *http.Client
	server     string
}

func newRelayClient(httpClient *http.Client, server string) *relayClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &relayClient{
		httpClient: httpClient,
		server:     strings.TrimSuffix(server, "/"),
	}
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

type imageResponse struct {
	Image string `json:"image"`
	Error string `json:"error"`
}

// imageError carries the message the image endpoint returned, if any.
type imageError struct {
	status  int
	message string
}

func (e *imageError) Error() string {
	if len(e.message) != 0 {
		return fmt.Sprintf("image generation failed (%d): %s", e.status, e.message)
	}

	return fmt.Sprintf("image generation failed (%d)", e.status)
}

func (rc *relayClient) post(ctx context.Context, path string, payload interface{}) (*http.Response, error) {
	bs, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error when marshalling %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.server+path, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("error when creating %s http request: %w", path, err)
	}

	req.Header.Set("Content-Type", "application/json")

	res, err := rc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error when sending %s http request: %w", path, err)
	}

	return res, nil
}

// chat sends one chat turn and returns the reply body for incremental
// reading. Any status other than 200 is an error.
func (rc *relayClient) chat(ctx context.Context, r *chat.Request) (io.ReadCloser, error) {
	res, err := rc.post(ctx, "/api/chat", r)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		defer res.Body.Close()

		er := &chat.ErrorResponse{}
		bs, _ := io.ReadAll(res.Body)
		if json.Unmarshal(bs, er) == nil && len(er.Error) != 0 {
			return nil, fmt.Errorf("relay responded with status %d: %s", res.StatusCode, er.Error)
		}

		return nil, fmt.Errorf("relay responded with status %d", res.StatusCode)
	}

	return res.Body, nil
}

func (rc *relayClient) generateImage(ctx context.Context, prompt string) (string, error) {
	res, err := rc.post(ctx, "/api/image", &imageRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	ir := &imageResponse{}
	bs, err := io.ReadAll(res.Body)
	if err == nil {
		_ = json.Unmarshal(bs, ir)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", &imageError{status: res.StatusCode, message: ir.Error}
	}

	if len(ir.Image) == 0 {
		return "", &imageError{status: res.StatusCode, message: ir.Error}
	}

	return ir.Image, nil
}
