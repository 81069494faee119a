package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/viabilitychat/chatrelay/internal/chat"
	"github.com/viabilitychat/chatrelay/internal/client"
	"github.com/viabilitychat/chatrelay/internal/persona"
)

var cli struct {
	Server  string `short:"s" default:"http://localhost:8080" help:"Base URL of the chat relay."`
	Persona string `short:"p" default:"sofia" help:"Persona the assistant speaks as."`
	Image   bool   `short:"i" help:"Start in image mode."`
	Stream  bool   `help:"Ask the relay to stream the reply as it is generated."`
	Model   string `help:"Model identifier, such as openai/gpt-4o-mini."`
	Preset  string `help:"Provider preset, such as @preset/viability."`
}

// renderer prints the assistant reply as it grows.
type renderer struct {
	mu      sync.Mutex
	out     io.Writer
	seen    int
	printed int
}

func (r *renderer) update(history []chat.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(history) == 0 {
		return
	}

	last := history[len(history)-1]
	if len(history) != r.seen {
		r.seen = len(history)
		r.printed = 0
		if last.Role != chat.RoleAssistant {
			return
		}
		fmt.Fprint(r.out, color.MagentaString("assistant> "))
	}

	if last.Role != chat.RoleAssistant {
		return
	}

	if len(last.Content) > r.printed {
		fmt.Fprint(r.out, last.Content[r.printed:])
		r.printed = len(last.Content)
	}
}

func (r *renderer) finish(history []chat.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(history) != 0 {
		if last := history[len(history)-1]; len(last.Image) != 0 {
			fmt.Fprintf(r.out, " %s", color.CyanString(last.Image))
		}
	}

	fmt.Fprintln(r.out)
}

func prompt(out io.Writer, imageMode bool) {
	if imageMode {
		fmt.Fprint(out, color.YellowString("image> "))
		return
	}

	fmt.Fprint(out, color.GreenString("you> "))
}

func main() {
	kong.Parse(&cli,
		kong.Name("chat"),
		kong.Description("Terminal client for the chat relay. Type /image to toggle image mode, /quit to exit."),
	)

	out := colorable.NewColorableStdout()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := &renderer{out: out}
	s := client.NewSession(client.Options{
		Server:    cli.Server,
		Persona:   cli.Persona,
		ImageMode: cli.Image,
		Model:     cli.Model,
		Preset:    cli.Preset,
		Stream:    cli.Stream,
		OnUpdate:  r.update,
	})

	if p := persona.Resolve(cli.Persona); p.Name != cli.Persona {
		fmt.Fprintf(out, "unknown persona %q, using %s (available: %s)\n", cli.Persona, p.Name, strings.Join(persona.Names(), ", "))
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		prompt(out, s.ImageMode())
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return
		}

		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "/quit":
			return
		case "/image":
			s.SetImageMode(!s.ImageMode())
			continue
		}

		err := s.Submit(ctx, line)
		if err == client.ErrTurnInFlight {
			continue
		}

		if len(strings.TrimSpace(line)) != 0 {
			r.finish(s.History())
		}

		if err != nil {
			fmt.Fprintln(out, color.RedString("error: %v", err))
		}

		if ctx.Err() != nil {
			return
		}
	}
}
