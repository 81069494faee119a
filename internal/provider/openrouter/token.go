package openrouter

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
	goopenai "github.com/sashabaranov/go-openai"
)

// per-message and reply-priming overheads of the OpenAI chat format
const (
	messageOverhead = 3
	replyOverhead   = 3
)

type encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// TokenCounter estimates prompt sizes. Provider-side tokenizers differ per
// model, so the numbers are an approximation used for logs and metrics only.
type TokenCounter struct {
	mu         sync.RWMutex
	fallback   encoder
	encoderMap map[string]encoder
}

func NewTokenCounter() (*TokenCounter, error) {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	e, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}

	return &TokenCounter{
		fallback:   e,
		encoderMap: map[string]encoder{},
	}, nil
}

func (tc *TokenCounter) encoderFor(model string) encoder {
	// openrouter ids are namespaced, e.g. openai/gpt-4o
	name := model
	if idx := strings.LastIndex(model, "/"); idx != -1 {
		name = model[idx+1:]
	}

	tc.mu.RLock()
	e, ok := tc.encoderMap[name]
	tc.mu.RUnlock()
	if ok {
		return e
	}

	var selected encoder = tc.fallback
	found, err := tiktoken.EncodingForModel(name)
	if err == nil {
		selected = found
	}

	tc.mu.Lock()
	tc.encoderMap[name] = selected
	tc.mu.Unlock()

	return selected
}

func (tc *TokenCounter) Count(model string, input string) int {
	return len(tc.encoderFor(model).Encode(input, nil, nil))
}

func (tc *TokenCounter) CountMessages(model string, messages []goopenai.ChatCompletionMessage) int {
	e := tc.encoderFor(model)
	count := 0
	for _, m := range messages {
		count += messageOverhead
		count += len(e.Encode(m.Role, nil, nil))
		count += len(e.Encode(m.Content, nil, nil))
	}

	return count + replyOverhead
}
