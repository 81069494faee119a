package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/viabilitychat/chatrelay/internal/chat"
	"github.com/viabilitychat/chatrelay/internal/config"
	"github.com/viabilitychat/chatrelay/internal/provider/openrouter"
	"github.com/viabilitychat/chatrelay/internal/telemetry"
	"go.uber.org/zap"
)

const (
	correlationId string = "correlationId"
)

type completer interface {
	Complete(ctx context.Context, p *openrouter.Payload) (string, error)
	Stream(ctx context.Context, p *openrouter.Payload) (*openrouter.StreamReader, error)
}

type tokenCounter interface {
	CountMessages(model string, messages []goopenai.ChatCompletionMessage) int
}

type RelayServer struct {
	server *http.Server
	log    *zap.Logger
}

// NewRelayServer wires the chat relay routes. tc and metrics may be nil.
func NewRelayServer(log *zap.Logger, mode string, cfg *config.Config, client completer, tc tokenCounter, metrics http.Handler) (*RelayServer, error) {
	if cfg == nil {
		return nil, errors.New("config is empty")
	}

	if client == nil {
		return nil, errors.New("provider client is empty")
	}

	router := gin.New()
	prod := mode == "production"
	private := cfg.IsPrivate()

	router.Use(getOtelMiddleware())
	router.Use(getRecoveryMiddleware(log, prod))
	router.Use(getMiddleware(log, prod, "relay"))

	router.NoRoute(func(c *gin.Context) {
		JSON(c, http.StatusNotFound, "route not supported", "")
	})

	router.GET("/api/health", getHealthCheckHandler())
	router.POST("/api/chat", getTimeoutMiddleware(cfg.ProxyTimeout), getChatHandler(log, cfg, prod, private, client, tc))

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &RelayServer{
		log:    log,
		server: srv,
	}, nil
}

func (rs *RelayServer) Handler() http.Handler {
	return rs.server.Handler
}

func (rs *RelayServer) Run() {
	go func() {
		rs.log.Sugar().Infof("relay server listening on %s", rs.server.Addr)

		if err := rs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			rs.log.Sugar().Fatalf("error relay server listening: %v", err)
		}
	}()
}

func (rs *RelayServer) Shutdown(ctx context.Context) error {
	if err := rs.server.Shutdown(ctx); err != nil {
		rs.log.Sugar().Infof("error shutting down relay server: %v", err)

		return err
	}

	return nil
}

func getHealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Status(http.StatusOK)
	}
}

func JSON(c *gin.Context, code int, message, hint string) {
	c.JSON(code, &chat.ErrorResponse{
		Error: message,
		Hint:  hint,
	})
}

type invalidRequestError interface {
	InvalidRequest()
}

type configurationError interface {
	Configuration()
}

type upstreamError interface {
	Upstream()
	Status() int
	Hint() string
}

type emptyCompletionError interface {
	EmptyCompletion()
}

// writeError maps an error of the relay taxonomy to its status code and JSON
// body. Anything unrecognized is an internal error carrying its message.
func writeError(c *gin.Context, err error) {
	if _, ok := err.(invalidRequestError); ok {
		telemetry.Incr("relay.chat_handler.invalid_request", nil, 1)
		JSON(c, http.StatusBadRequest, err.Error(), "")
		return
	}

	if _, ok := err.(configurationError); ok {
		telemetry.Incr("relay.chat_handler.configuration_error", nil, 1)
		JSON(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	if ue, ok := err.(upstreamError); ok {
		telemetry.Incr("relay.chat_handler.upstream_error", []string{fmt.Sprintf("status:%d", ue.Status())}, 1)
		JSON(c, http.StatusBadGateway, err.Error(), ue.Hint())
		return
	}

	if _, ok := err.(emptyCompletionError); ok {
		telemetry.Incr("relay.chat_handler.empty_completion", nil, 1)
		JSON(c, http.StatusBadGateway, err.Error(), "")
		return
	}

	telemetry.Incr("relay.chat_handler.internal_error", nil, 1)
	JSON(c, http.StatusInternalServerError, err.Error(), "")
}
