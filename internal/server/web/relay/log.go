package relay

import (
	"time"

	"github.com/viabilitychat/chatrelay/internal/model"
	"github.com/viabilitychat/chatrelay/internal/provider/openrouter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func logChatRequest(log *zap.Logger, prod, private bool, cid string, s model.Selection, p *openrouter.Payload, promptTokens int) {
	if !prod {
		log.Sugar().Debugf("correlationId:%s | chat request | model:%s (%s) | messages:%d | stream:%t | ~%d prompt tokens", cid, s.Id, s.Source, len(p.Messages), p.Stream, promptTokens)
		return
	}

	log.Info("openrouter chat request",
		zap.Time("createdAt", time.Now()),
		zap.String(correlationId, cid),
		zap.Object("request", zapcore.ObjectMarshalerFunc(
			func(enc zapcore.ObjectEncoder) error {
				enc.AddString("model", p.Model)
				enc.AddString("model_source", string(s.Source))
				enc.AddBool("stream", p.Stream)
				enc.AddInt("max_tokens", p.MaxTokens)
				enc.AddInt("prompt_token_estimate", promptTokens)

				return enc.AddArray("messages", zapcore.ArrayMarshalerFunc(
					func(enc zapcore.ArrayEncoder) error {
						for _, m := range p.Messages {
							err := enc.AppendObject(zapcore.ObjectMarshalerFunc(
								func(enc zapcore.ObjectEncoder) error {
									enc.AddString("role", m.Role)
									if !private {
										enc.AddString("content", m.Content)
									}

									return nil
								},
							))

							if err != nil {
								return err
							}
						}
						return nil
					},
				))
			},
		)),
	)
}

func logChatResponse(log *zap.Logger, prod, private bool, cid string, content string) {
	if !prod {
		log.Sugar().Debugf("correlationId:%s | chat response | %d bytes", cid, len(content))
		return
	}

	fields := []zapcore.Field{
		zap.Time("createdAt", time.Now()),
		zap.String(correlationId, cid),
		zap.Int("length", len(content)),
	}

	if !private {
		fields = append(fields, zap.String("content", content))
	}

	log.Info("openrouter chat response", fields...)
}
