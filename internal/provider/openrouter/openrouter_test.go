package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viabilitychat/chatrelay/internal/config"
	internal_errors "github.com/viabilitychat/chatrelay/internal/errors"
)

func newTestClient(url string) *Client {
	return NewClient(nil, &config.Config{
		OpenRouterKey:     "sk-or-test",
		OpenRouterBaseUrl: url + "/",
		SiteUrl:           "https://chat.example.com",
		AppTitle:          "Test Title",
	})
}

func newPayload() *Payload {
	return &Payload{
		Model: "openrouter/auto",
		Messages: []goopenai.ChatCompletionMessage{
			{Role: "user", Content: "hola"},
		},
		MaxTokens: 512,
	}
}

func TestClient_Complete(t *testing.T) {
	t.Run("sends headers and payload and unwraps the reply", func(t *testing.T) {
		var got map[string]interface{}
		var header http.Header
		var path string

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header = r.Header.Clone()
			path = r.URL.Path
			bs, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(bs, &got)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hola de vuelta"}}]}`)
		}))
		defer srv.Close()

		text, err := newTestClient(srv.URL).Complete(context.Background(), newPayload())
		require.NoError(t, err)
		assert.Equal(t, "hola de vuelta", text)

		assert.Equal(t, "/chat/completions", path)
		assert.Equal(t, "Bearer sk-or-test", header.Get("Authorization"))
		assert.Equal(t, "application/json", header.Get("Content-Type"))
		assert.Equal(t, "https://chat.example.com", header.Get("HTTP-Referer"))
		assert.Equal(t, "Test Title", header.Get("X-Title"))

		assert.Equal(t, "openrouter/auto", got["model"])
		assert.Equal(t, false, got["stream"])
		assert.Equal(t, float64(512), got["max_tokens"])
		msgs, ok := got["messages"].([]interface{})
		require.True(t, ok)
		assert.Len(t, msgs, 1)
	})

	t.Run("non-success status carries status and body as hint", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"No auth credentials found","code":401}}`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Complete(context.Background(), newPayload())
		require.Error(t, err)

		ue, ok := err.(*internal_errors.UpstreamError)
		require.True(t, ok)
		assert.Equal(t, http.StatusUnauthorized, ue.Status())
		assert.Contains(t, ue.Error(), "401")
		assert.Contains(t, ue.Hint(), "No auth credentials found")
	})

	t.Run("non-success status with empty body uses the default hint", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Complete(context.Background(), newPayload())
		ue, ok := err.(*internal_errors.UpstreamError)
		require.True(t, ok)
		assert.Equal(t, defaultHint, ue.Hint())
	})

	t.Run("unreachable provider", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		_, err := newTestClient(url).Complete(context.Background(), newPayload())
		ue, ok := err.(*internal_errors.UpstreamError)
		require.True(t, ok)
		assert.Equal(t, 0, ue.Status())
		assert.NotEmpty(t, ue.Hint())
	})

	t.Run("deadline is honored", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := newTestClient(srv.URL).Complete(ctx, newPayload())
		_, ok := err.(*internal_errors.UpstreamError)
		assert.True(t, ok)
	})

	t.Run("body stalled past the deadline is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"choices":[{"message":`)
			w.(http.Flusher).Flush()

			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_, err := newTestClient(srv.URL).Complete(ctx, newPayload())
		ue, ok := err.(*internal_errors.UpstreamError)
		require.True(t, ok, "%T: %v", err, err)
		assert.Equal(t, 0, ue.Status())
		assert.Contains(t, ue.Hint(), "deadline")
	})

	t.Run("empty completion", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"choices":[{"message":{"content":""}}]}`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Complete(context.Background(), newPayload())
		_, ok := err.(*internal_errors.EmptyCompletionError)
		assert.True(t, ok)
	})

	t.Run("success body that is not json", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html>gateway</html>`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Complete(context.Background(), newPayload())
		_, ok := err.(*internal_errors.InternalError)
		assert.True(t, ok)
	})
}

func TestExtractCompletion(t *testing.T) {
	cases := map[string]struct {
		body     string
		expected string
	}{
		"message content":               {`{"choices":[{"message":{"content":"hi"}}]}`, "hi"},
		"legacy text":                   {`{"choices":[{"text":"legacy"}]}`, "legacy"},
		"null content falls back":       {`{"choices":[{"message":{"content":null},"text":"legacy"}]}`, "legacy"},
		"empty content does not":        {`{"choices":[{"message":{"content":""},"text":"legacy"}]}`, ""},
		"content parts are joined":      {`{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}}]}`, "ab"},
		"no choices":                    {`{"choices":[]}`, ""},
		"no fields at all":              {`{}`, ""},
		"only the first choice is used": {`{"choices":[{"message":{"content":"one"}},{"message":{"content":"two"}}]}`, "one"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ExtractCompletion([]byte(tc.body)))
		})
	}
}

func writeEvents(w http.ResponseWriter, events ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, e := range events {
		fmt.Fprintf(w, "%s\n\n", e)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func TestClient_Stream(t *testing.T) {
	t.Run("yields deltas until done", func(t *testing.T) {
		var stream interface{}
		var accept string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accept = r.Header.Get("Accept")
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			stream = body["stream"]

			writeEvents(w,
				": OPENROUTER PROCESSING",
				`data: {"choices":[{"delta":{"role":"assistant","content":""}}]}`,
				`data: {"choices":[{"delta":{"content":"ho"}}]}`,
				`data: {"choices":[{"delta":{"content":"la"}}]}`,
				`data: [DONE]`,
				`data: {"choices":[{"delta":{"content":"ignored"}}]}`,
			)
		}))
		defer srv.Close()

		sr, err := newTestClient(srv.URL).Stream(context.Background(), newPayload())
		require.NoError(t, err)
		defer sr.Close()

		deltas := []string{}
		for {
			d, err := sr.Recv()
			if err == io.EOF {
				break
			}
			require.NoError(t, err)
			deltas = append(deltas, d)
		}

		assert.Equal(t, []string{"ho", "la"}, deltas)
		assert.Equal(t, true, stream)
		assert.Equal(t, "text/event-stream", accept)
	})

	t.Run("error frame becomes an upstream error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeEvents(w, `data: {"error":{"code":429,"message":"rate limited upstream"}}`)
		}))
		defer srv.Close()

		sr, err := newTestClient(srv.URL).Stream(context.Background(), newPayload())
		require.NoError(t, err)
		defer sr.Close()

		_, err = sr.Recv()
		ue, ok := err.(*internal_errors.UpstreamError)
		require.True(t, ok)
		assert.Equal(t, 429, ue.Status())
		assert.Equal(t, "rate limited upstream", ue.Hint())
	})

	t.Run("stream closed without done", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"tail"}}]}`)
		}))
		defer srv.Close()

		sr, err := newTestClient(srv.URL).Stream(context.Background(), newPayload())
		require.NoError(t, err)
		defer sr.Close()

		d, err := sr.Recv()
		require.NoError(t, err)
		assert.Equal(t, "tail", d)

		_, err = sr.Recv()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("json completion instead of events", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"hola de vuelta"}}]}`)
		}))
		defer srv.Close()

		sr, err := newTestClient(srv.URL).Stream(context.Background(), newPayload())
		require.NoError(t, err)
		defer sr.Close()

		d, err := sr.Recv()
		require.NoError(t, err)
		assert.Equal(t, "hola de vuelta", d)

		_, err = sr.Recv()
		assert.Equal(t, io.EOF, err)
	})

	t.Run("json error body instead of events", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"error":{"code":402,"message":"insufficient credits"}}`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Stream(context.Background(), newPayload())
		ue, ok := err.(*internal_errors.UpstreamError)
		require.True(t, ok)
		assert.Equal(t, 402, ue.Status())
		assert.Equal(t, "insufficient credits", ue.Hint())
	})

	t.Run("non-success status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, "bad model")
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).Stream(context.Background(), newPayload())
		ue, ok := err.(*internal_errors.UpstreamError)
		require.True(t, ok)
		assert.Equal(t, "bad model", ue.Hint())
	})
}

func TestTokenCounter(t *testing.T) {
	tc, err := NewTokenCounter()
	require.NoError(t, err)

	assert.Greater(t, tc.Count("openai/gpt-4", "hello there"), 0)
	assert.Greater(t, tc.Count("some/unknown-model", "hello there"), 0)

	msgs := []goopenai.ChatCompletionMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hola"},
	}
	n := tc.CountMessages("openrouter/auto", msgs)
	assert.Greater(t, n, len(msgs)*messageOverhead+replyOverhead)
}
