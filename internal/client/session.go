package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/viabilitychat/chatrelay/internal/chat"
	"github.com/viabilitychat/chatrelay/internal/persona"
)

const (
	connectionErrorMessage = "Error connecting to the model."
	imageErrorMessage      = "Could not generate the image."
	imageGeneratedMessage  = "Image generated"
)

var ErrTurnInFlight = errors.New("a turn is already in flight for this session")

type Options struct {
	// Server is the base URL of the relay, such as http://localhost:8080.
	Server     string
	Persona    string
	ImageMode  bool
	Model      string
	Preset     string
	Stream     bool
	HttpClient *http.Client

	// OnUpdate receives a copy of the history after every change.
	OnUpdate func(history []chat.Message)
}

// Session is one conversation with the relay. Turns are serialized: while a
// turn is outstanding every other Submit fails with ErrTurnInFlight.
type Session struct {
	relay    *relayClient
	persona  persona.Persona
	model    string
	preset   string
	stream   bool
	onUpdate func([]chat.Message)

	mu        sync.Mutex
	history   []chat.Message
	imageMode bool
	inFlight  bool
}

func NewSession(opts Options) *Session {
	return &Session{
		relay:     newRelayClient(opts.HttpClient, opts.Server),
		persona:   persona.Resolve(opts.Persona),
		model:     opts.Model,
		preset:    opts.Preset,
		stream:    opts.Stream,
		onUpdate:  opts.OnUpdate,
		history:   []chat.Message{},
		imageMode: opts.ImageMode,
	}
}

func (s *Session) Persona() persona.Persona {
	return s.persona
}

func (s *Session) ImageMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.imageMode
}

func (s *Session) SetImageMode(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageMode = enabled
}

// Busy reports whether a turn is outstanding.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Session) History() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Submit runs one turn. Blank input is ignored. Failures are rendered into the
// history as assistant messages and also returned to the caller.
func (s *Session) Submit(ctx context.Context, input string) error {
	if len(strings.TrimSpace(input)) == 0 {
		return nil
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrTurnInFlight
	}

	s.inFlight = true
	s.history = append(s.history, chat.Message{Role: chat.RoleUser, Content: input})
	messages := s.snapshot()
	imageMode := s.imageMode
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	s.notify(messages)

	if imageMode {
		return s.image(ctx, input)
	}

	return s.chat(ctx, messages)
}

func (s *Session) image(ctx context.Context, prompt string) error {
	ref, err := s.relay.generateImage(ctx, prompt)
	if err != nil {
		msg := imageErrorMessage
		var ie *imageError
		if errors.As(err, &ie) && len(ie.message) != 0 {
			msg = ie.message
		}

		s.append(chat.Message{Role: chat.RoleAssistant, Content: msg})
		return err
	}

	s.append(chat.Message{Role: chat.RoleAssistant, Content: imageGeneratedMessage, Image: ref})
	return nil
}

func (s *Session) chat(ctx context.Context, messages []chat.Message) error {
	body, err := s.relay.chat(ctx, &chat.Request{
		Messages: messages,
		System:   s.persona.Prompt,
		Model:    s.model,
		Preset:   s.preset,
		Stream:   s.stream,
	})
	if err != nil {
		s.append(chat.Message{Role: chat.RoleAssistant, Content: connectionErrorMessage})
		return err
	}
	defer body.Close()

	s.append(chat.Message{Role: chat.RoleAssistant})

	d := &utf8Decoder{}
	acc := &strings.Builder{}
	buf := make([]byte, 4096)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			if text := d.Decode(buf[:n]); len(text) != 0 {
				acc.WriteString(text)
				s.replaceLast(acc.String())
			}
		}

		if rerr != nil {
			if rest := d.Flush(); len(rest) != 0 {
				acc.WriteString(rest)
				s.replaceLast(acc.String())
			}

			if rerr == io.EOF {
				return nil
			}

			// a reply cut short keeps its text and is followed by the error
			if acc.Len() == 0 {
				s.replaceLast(connectionErrorMessage)
			} else {
				s.append(chat.Message{Role: chat.RoleAssistant, Content: connectionErrorMessage})
			}

			return rerr
		}
	}
}

func (s *Session) append(m chat.Message) {
	s.mu.Lock()
	s.history = append(s.history, m)
	history := s.snapshot()
	s.mu.Unlock()

	s.notify(history)
}

func (s *Session) replaceLast(content string) {
	s.mu.Lock()
	s.history[len(s.history)-1].Content = content
	history := s.snapshot()
	s.mu.Unlock()

	s.notify(history)
}

// snapshot must be called with mu held.
func (s *Session) snapshot() []chat.Message {
	out := make([]chat.Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) notify(history []chat.Message) {
	if s.onUpdate != nil {
		s.onUpdate(history)
	}
}
