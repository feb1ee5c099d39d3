// Package main is the interactive terminal client of the scheduling
// assistant.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/calendar"
	"github.com/chadn/ai-chatbot-meetings/internal/config"
	"github.com/chadn/ai-chatbot-meetings/internal/history"
	"github.com/chadn/ai-chatbot-meetings/internal/llm"
	"github.com/chadn/ai-chatbot-meetings/internal/service"
	"github.com/chadn/ai-chatbot-meetings/internal/tools"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
)

type options struct {
	message    string
	model      string
	timezone   string
	importFile string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Book and review Cal.com meetings by chatting with an assistant",
		Long: `chat talks to a tool-calling model that can check availability,
book meetings and list scheduled events on a Cal.com account.

Configuration is read from the environment or a .env file
(OPENAI_API_KEY, CALCOM_API_KEY, DEFAULT_TIMEZONE, ...).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "send one message, print the reply and exit")
	cmd.Flags().StringVar(&opts.model, "model", "", "model name (default from OPENAI_MODEL_NAME)")
	cmd.Flags().StringVar(&opts.timezone, "timezone", "", "IANA timezone (default from DEFAULT_TIMEZONE)")
	cmd.Flags().StringVar(&opts.importFile, "import", "", "load a transcript before starting")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	cfg := config.Load()
	if opts.model != "" {
		cfg.ModelName = opts.model
	}
	if opts.timezone != "" {
		cfg.Timezone = opts.timezone
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.NewStderr(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chat := newChat(cfg, log)

	if opts.importFile != "" {
		if err := importTranscript(chat, opts.importFile); err != nil {
			return err
		}
		log.Info("transcript loaded", zap.String("file", opts.importFile), zap.Int("messages", chat.History().Len()))
	}

	r := &repl{chat: chat, in: cmd.InOrStdin(), out: cmd.OutOrStdout()}
	if opts.message != "" {
		return r.send(ctx, opts.message)
	}
	return r.run(ctx)
}

func newChat(cfg *config.Config, log *logger.Logger) *service.ChatService {
	calClient := calendar.NewClient(cfg.CalendarConfig(), log)
	dispatcher := tools.NewDispatcher(log, tools.NewCalendarTools(calClient, cfg.BookingsMaxResults)...)
	factory := llm.NewOpenAIFactory(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, log)

	chat := service.NewChatService(cfg.ChatConfig(), history.NewStore(), dispatcher, factory,
		service.WithLogger(log),
	)
	chat.Reset()
	return chat
}

func importTranscript(chat *service.ChatService, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}
	if err := chat.History().Import(data); err != nil {
		return fmt.Errorf("failed to import %s: %w", path, err)
	}
	return nil
}
