package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chadn/ai-chatbot-meetings/internal/llm"
	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/internal/service"
)

const helpText = `Commands:
  /export <file>   save the conversation
  /import <file>   replace the conversation with a saved one
  /model [name]    show or switch the model
  /reset           start over
  /help            show this help
  exit             quit`

// repl reads user lines and prints assistant replies.
type repl struct {
	chat *service.ChatService
	in   io.Reader
	out  io.Writer
}

func (r *repl) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *repl) run(ctx context.Context) error {
	r.printf("Scheduling assistant (model %s). Type /help for commands, exit to quit.\n", r.chat.ModelName())
	r.replay()

	scanner := bufio.NewScanner(r.in)
	for {
		r.printf("\nyou> ")
		if !scanner.Scan() {
			r.printf("\n")
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(line, "/"):
			r.command(line)
		default:
			if err := r.send(ctx, line); err != nil {
				r.printf("error: %v\n", err)
			}
		}
	}
}

// replay prints the displayable history, e.g. after an import.
func (r *repl) replay() {
	for msg := range r.chat.History().FilteredForDisplay() {
		r.printf("%s> %s\n", roleLabel(msg.Role()), msg.Text())
	}
}

func (r *repl) send(ctx context.Context, content string) error {
	reply, err := r.chat.Respond(ctx, content)
	if err != nil {
		return err
	}
	r.printf("assistant> %s\n", reply.Content)
	return nil
}

func (r *repl) command(line string) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/help":
		r.printf("%s\n", helpText)

	case "/export":
		if arg == "" {
			r.printf("usage: /export <file>\n")
			return
		}
		data, err := r.chat.History().Export()
		if err == nil {
			err = os.WriteFile(arg, data, 0o644)
		}
		if err != nil {
			r.printf("export failed: %v\n", err)
			return
		}
		r.printf("saved %d messages to %s\n", r.chat.History().Len(), arg)

	case "/import":
		if arg == "" {
			r.printf("usage: /import <file>\n")
			return
		}
		if err := importTranscript(r.chat, arg); err != nil {
			r.printf("import failed: %v\n", err)
			return
		}
		r.printf("loaded %d messages from %s\n", r.chat.History().Len(), arg)
		r.replay()

	case "/model":
		if arg == "" {
			r.printf("model: %s (available: %s)\n", r.chat.ModelName(), strings.Join(llm.SupportedModels, ", "))
			return
		}
		if !llm.IsSupported(arg) {
			r.printf("unsupported model %q\n", arg)
			return
		}
		if err := r.chat.SetModelName(arg); err != nil {
			r.printf("error: %v\n", err)
			return
		}
		r.printf("model set to %s\n", arg)

	case "/reset":
		r.chat.Reset()
		r.printf("conversation cleared\n")

	default:
		r.printf("unknown command %s, try /help\n", name)
	}
}

// roleLabel keeps the prompt prefixes short.
func roleLabel(role model.Role) string {
	if role == model.RoleAI {
		return "assistant"
	}
	return "you"
}
