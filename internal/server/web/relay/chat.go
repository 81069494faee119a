package relay

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/viabilitychat/chatrelay/internal/chat"
	"github.com/viabilitychat/chatrelay/internal/config"
	internal_errors "github.com/viabilitychat/chatrelay/internal/errors"
	"github.com/viabilitychat/chatrelay/internal/model"
	"github.com/viabilitychat/chatrelay/internal/provider/openrouter"
	"github.com/viabilitychat/chatrelay/internal/telemetry"
	"go.uber.org/zap"
)

func getChatHandler(log *zap.Logger, cfg *config.Config, prod, private bool, client completer, tc tokenCounter) gin.HandlerFunc {
	return func(c *gin.Context) {
		telemetry.Incr("relay.chat_handler.requests", nil, 1)
		cid := c.GetString(correlationId)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logError(log, "error when reading chat request body", prod, cid, err)
			writeError(c, internal_errors.NewInvalidRequestError("cannot read request body"))
			return
		}

		req, err := chat.ParseRequest(body)
		if err != nil {
			logError(log, "invalid chat request", prod, cid, err)
			writeError(c, err)
			return
		}

		if len(cfg.OpenRouterKey) == 0 {
			err := internal_errors.NewConfigurationError("OPENROUTER_API_KEY")
			logError(log, "error when resolving provider credentials", prod, cid, err)
			writeError(c, err)
			return
		}

		selection := model.Resolve(req.Model, req.Preset, cfg.OpenRouterModel)
		c.Set("model", selection.Id)

		payload := &openrouter.Payload{
			Model:     selection.Id,
			Messages:  chat.ToProviderMessages(req.System, req.Messages),
			Stream:    req.Stream,
			MaxTokens: cfg.MaxTokens,
		}

		promptTokens := 0
		if tc != nil {
			promptTokens = tc.CountMessages(selection.Id, payload.Messages)
		}

		logChatRequest(log, prod, private, cid, selection, payload, promptTokens)

		timeout := c.GetDuration("requestTimeout")
		if timeout <= 0 {
			timeout = cfg.ProxyTimeout
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		if req.Stream {
			streamCompletion(ctx, c, log, prod, private, cid, client, payload)
			return
		}

		start := time.Now()
		content, err := client.Complete(ctx, payload)
		telemetry.Timing("relay.chat_handler.latency", time.Since(start), nil, 1)
		if err != nil {
			logError(log, "error when completing chat with openrouter", prod, cid, err)
			writeError(c, err)
			return
		}

		telemetry.Incr("relay.chat_handler.success", nil, 1)
		logChatResponse(log, prod, private, cid, content)

		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(content))
	}
}

// streamCompletion holds the status line back until the first text delta, so
// that upstream failures and empty streams still map to error responses.
func streamCompletion(ctx context.Context, c *gin.Context, log *zap.Logger, prod, private bool, cid string, client completer, payload *openrouter.Payload) {
	telemetry.Incr("relay.chat_handler.streaming_requests", nil, 1)
	start := time.Now()

	sr, err := client.Stream(ctx, payload)
	if err != nil {
		logError(log, "error when starting openrouter chat stream", prod, cid, err)
		writeError(c, err)
		return
	}
	defer sr.Close()

	first, err := sr.Recv()
	if err != nil {
		if err == io.EOF {
			err = internal_errors.NewEmptyCompletionError()
		} else if _, ok := err.(upstreamError); !ok {
			err = internal_errors.NewUnreachableError(err)
		}

		logError(log, "error when reading first openrouter stream chunk", prod, cid, err)
		writeError(c, err)
		return
	}

	content := &strings.Builder{}

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	delta := first
	for {
		content.WriteString(delta)
		if _, err := c.Writer.WriteString(delta); err != nil {
			telemetry.Incr("relay.chat_handler.stream_interrupted", nil, 1)
			logError(log, "error when writing chat stream to client", prod, cid, err)
			break
		}
		c.Writer.Flush()

		delta, err = sr.Recv()
		if err == io.EOF {
			break
		}

		if err != nil {
			telemetry.Incr("relay.chat_handler.stream_interrupted", nil, 1)
			logError(log, "error when reading openrouter chat stream", prod, cid, err)
			break
		}
	}

	telemetry.Timing("relay.chat_handler.streaming_latency", time.Since(start), nil, 1)
	telemetry.Incr("relay.chat_handler.success", nil, 1)
	logChatResponse(log, prod, private, cid, content.String())
}
