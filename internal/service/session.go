// Package service provides the conversation and session logic of the
// scheduling assistant.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chadn/ai-chatbot-meetings/internal/calendar"
	"github.com/chadn/ai-chatbot-meetings/internal/history"
	"github.com/chadn/ai-chatbot-meetings/internal/llm"
	"github.com/chadn/ai-chatbot-meetings/internal/model"
	"github.com/chadn/ai-chatbot-meetings/internal/timeconv"
	"github.com/chadn/ai-chatbot-meetings/internal/tools"
	"github.com/chadn/ai-chatbot-meetings/pkg/logger"
	"github.com/chadn/ai-chatbot-meetings/pkg/metrics"
)

// Session errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrUnsupportedModel = errors.New("unsupported model")
	ErrInvalidTimezone  = errors.New("invalid timezone")
)

// SessionConfig holds the defaults for new sessions.
type SessionConfig struct {
	Chat        ChatConfig
	Calendar    calendar.Config
	MaxBookings int
}

// session is one chat with its own history, calendar client and tools.
type session struct {
	info    model.Session
	history *history.Store
	chat    *ChatService

	// turnMu serializes turns and transcript replacement.
	turnMu sync.Mutex

	// infoMu guards info.UpdatedAt; the other info fields never change.
	infoMu sync.Mutex
}

// SessionService manages in-memory chat sessions.
type SessionService struct {
	cfg       SessionConfig
	factory   llm.Factory
	publisher EventPublisher
	logger    *logger.Logger

	sessions map[string]*session
	mu       sync.RWMutex
}

// NewSessionService creates a new session service.
func NewSessionService(cfg SessionConfig, factory llm.Factory, publisher EventPublisher, log *logger.Logger) *SessionService {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = logger.Global()
	}
	return &SessionService{
		cfg:       cfg,
		factory:   factory,
		publisher: publisher,
		logger:    log,
		sessions:  make(map[string]*session),
	}
}

// Create opens a new session owned by owner.
func (s *SessionService) Create(ctx context.Context, owner string, req *model.CreateSessionRequest) (*model.Session, error) {
	chatCfg := s.cfg.Chat
	if req != nil && req.Model != "" {
		chatCfg.ModelName = req.Model
	}
	if req != nil && req.Timezone != "" {
		chatCfg.Timezone = req.Timezone
	}
	if chatCfg.ModelName == "" {
		chatCfg.ModelName = llm.DefaultModel
	}
	if !llm.IsSupported(chatCfg.ModelName) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, chatCfg.ModelName)
	}
	if _, err := timeconv.LoadLocation(chatCfg.Timezone); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimezone, err)
	}

	now := time.Now()
	id := uuid.Must(uuid.NewV7()).String()
	log := s.logger.WithSession(id, owner)

	calCfg := s.cfg.Calendar
	calCfg.Timezone = chatCfg.Timezone
	calClient := calendar.NewClient(calCfg, log)

	dispatcher := tools.NewDispatcher(log, tools.NewCalendarTools(calClient, s.cfg.MaxBookings)...)
	h := history.NewStore()
	chat := NewChatService(chatCfg, h, dispatcher, s.factory,
		WithPublisher(s.publisher),
		WithSessionID(id),
		WithLogger(log),
	)
	chat.Reset()

	sess := &session{
		info: model.Session{
			ID:        id,
			Owner:     owner,
			ModelName: chatCfg.ModelName,
			Timezone:  chatCfg.Timezone,
			CreatedAt: now,
			UpdatedAt: now,
		},
		history: h,
		chat:    chat,
	}

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	metrics.SessionsActive.Inc()
	log.Info("session created",
		zap.String("model", chatCfg.ModelName),
		zap.String("timezone", chatCfg.Timezone),
	)

	info := sess.snapshot()
	return &info, nil
}

func (s *SessionService) lookup(owner, id string) (*session, error) {
	s.mu.RLock()
	sess, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists || sess.info.Owner != owner {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// snapshot returns the session info with a current message count.
func (sess *session) snapshot() model.Session {
	sess.infoMu.Lock()
	info := sess.info
	sess.infoMu.Unlock()

	info.ModelName = sess.chat.ModelName()
	info.MessageCount = sess.history.Len()
	return info
}

// Get retrieves a session by ID.
func (s *SessionService) Get(ctx context.Context, owner, id string) (*model.Session, error) {
	sess, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	info := sess.snapshot()
	return &info, nil
}

// List returns the sessions of owner, oldest first.
func (s *SessionService) List(ctx context.Context, owner string, limit, offset int) *model.ListSessionsResponse {
	s.mu.RLock()
	var owned []*session
	for _, sess := range s.sessions {
		if sess.info.Owner == owner {
			owned = append(owned, sess)
		}
	}
	s.mu.RUnlock()

	sort.Slice(owned, func(i, j int) bool {
		a, b := &owned[i].info, &owned[j].info
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	total := len(owned)
	start := min(offset, total)
	end := total
	if limit > 0 {
		end = min(start+limit, total)
	}

	infos := make([]model.Session, 0, end-start)
	for _, sess := range owned[start:end] {
		infos = append(infos, sess.snapshot())
	}

	return &model.ListSessionsResponse{
		Sessions: infos,
		Total:    total,
		HasMore:  end < total,
	}
}

// Delete removes a session and its history.
func (s *SessionService) Delete(ctx context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, exists := s.sessions[id]
	if !exists || sess.info.Owner != owner {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	metrics.SessionsActive.Dec()

	s.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

// Send runs one user turn.
func (s *SessionService) Send(ctx context.Context, owner, id, content string) (*model.SendMessageResponse, error) {
	return s.SendWithProgress(ctx, owner, id, content, nil)
}

// SendWithProgress runs one user turn, calling onAppend for every message
// added to the history. Turns of one session run one at a time.
func (s *SessionService) SendWithProgress(ctx context.Context, owner, id, content string, onAppend func(model.Message)) (*model.SendMessageResponse, error) {
	sess, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	var shown []model.DisplayMessage
	final, err := sess.chat.RespondWithProgress(ctx, content, func(msg model.Message) {
		if msg.Text() != "" && (msg.Role() == model.RoleHuman || msg.Role() == model.RoleAI) {
			shown = append(shown, model.ToDisplay(msg))
		}
		if onAppend != nil {
			onAppend(msg)
		}
	})

	s.touch(sess)
	if err != nil {
		return nil, err
	}

	return &model.SendMessageResponse{
		Reply:    model.ToDisplay(final),
		Messages: shown,
	}, nil
}

func (s *SessionService) touch(sess *session) {
	sess.infoMu.Lock()
	sess.info.UpdatedAt = time.Now()
	sess.infoMu.Unlock()
}

// Messages returns the display view of a session's history.
func (s *SessionService) Messages(ctx context.Context, owner, id string) (*model.ListMessagesResponse, error) {
	sess, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}

	messages := []model.DisplayMessage{}
	for msg := range sess.history.FilteredForDisplay() {
		messages = append(messages, model.ToDisplay(msg))
	}
	return &model.ListMessagesResponse{Messages: messages, Total: len(messages)}, nil
}

// Export serializes a session's history.
func (s *SessionService) Export(ctx context.Context, owner, id string) ([]byte, error) {
	sess, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}
	return sess.history.Export()
}

// Import replaces a session's history with a transcript and returns the
// number of imported messages.
func (s *SessionService) Import(ctx context.Context, owner, id string, data []byte) (int, error) {
	sess, err := s.lookup(owner, id)
	if err != nil {
		return 0, err
	}

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	if err := sess.history.Import(data); err != nil {
		return 0, err
	}
	s.touch(sess)

	n := sess.history.Len()
	s.logger.Info("transcript imported", zap.String("session_id", id), zap.Int("messages", n))
	return n, nil
}

// Reset clears a session's history and starts over with a new system prompt.
func (s *SessionService) Reset(ctx context.Context, owner, id string) error {
	sess, err := s.lookup(owner, id)
	if err != nil {
		return err
	}

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	sess.chat.Reset()
	s.touch(sess)
	return nil
}

// SetModel switches the model of a session.
func (s *SessionService) SetModel(ctx context.Context, owner, id, name string) (*model.Session, error) {
	if !llm.IsSupported(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, name)
	}
	sess, err := s.lookup(owner, id)
	if err != nil {
		return nil, err
	}

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	if err := sess.chat.SetModelName(name); err != nil {
		return nil, err
	}
	s.touch(sess)

	info := sess.snapshot()
	return &info, nil
}
