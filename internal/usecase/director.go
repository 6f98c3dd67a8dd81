package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"belief-interview/internal/classifier"
	"belief-interview/internal/domain"
)

const (
	defaultGeneratorTimeout = 30 * time.Second
	defaultMaxMessageLen    = 4000
)

// Store is the persistence contract the director depends on.
type Store interface {
	GetParticipant(ctx context.Context, id string) (domain.Participant, error)
	CreateConversation(ctx context.Context, c domain.Conversation) error
	GetConversation(ctx context.Context, id string) (domain.Conversation, error)
	SaveConversation(ctx context.Context, c domain.Conversation) error
	SaveTurn(ctx context.Context, p domain.Participant, c domain.Conversation) error
}

// ReplyGenerator produces one assistant utterance from a system prompt and
// the ordered conversation history.
type ReplyGenerator interface {
	Generate(ctx context.Context, prompt string, history []domain.ChatMessage) (string, error)
}

// Director runs the interview: it classifies each participant turn, moves
// the conversation through its stages, asks the generator for a reply and
// persists both documents. It is the only writer of conversation state.
type Director struct {
	store      Store
	gen        ReplyGenerator
	thresholds Thresholds
	timeout    time.Duration
	retries    int
	maxLen     int
	logger     *slog.Logger
	now        func() time.Time

	locks conversationLocks
}

type Option func(*Director)

func WithThresholds(t Thresholds) Option {
	return func(d *Director) {
		d.thresholds = t.withDefaults()
	}
}

// WithGeneratorTimeout sets the per-call generator deadline.
func WithGeneratorTimeout(timeout time.Duration) Option {
	return func(d *Director) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithGeneratorRetries retries unavailable (not timed-out) generator calls.
func WithGeneratorRetries(n int) Option {
	return func(d *Director) {
		if n >= 0 {
			d.retries = n
		}
	}
}

func WithMaxMessageLength(n int) Option {
	return func(d *Director) {
		if n > 0 {
			d.maxLen = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Director) {
		if l != nil {
			d.logger = l
		}
	}
}

func withClock(now func() time.Time) Option {
	return func(d *Director) {
		d.now = now
	}
}

func NewDirector(store Store, gen ReplyGenerator, opts ...Option) (*Director, error) {
	if store == nil {
		return nil, errors.New("usecase: store must not be nil")
	}
	if gen == nil {
		return nil, errors.New("usecase: reply generator must not be nil")
	}
	d := &Director{
		store:      store,
		gen:        gen,
		thresholds: DefaultThresholds(),
		timeout:    defaultGeneratorTimeout,
		maxLen:     defaultMaxMessageLen,
		logger:     slog.Default(),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

type StartInput struct {
	ParticipantID string
}

type StartOutput struct {
	ConversationID string
	Opening        domain.Message
}

// Start creates a conversation for a participant and seeds it with the
// opening assistant line. The opening is stored on the conversation only.
func (d *Director) Start(ctx context.Context, in StartInput) (StartOutput, error) {
	participantID := strings.TrimSpace(in.ParticipantID)
	if participantID == "" {
		return StartOutput{}, invalidInput("empty_participant_id", "participantId is required")
	}
	p, err := d.store.GetParticipant(ctx, participantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return StartOutput{}, &Error{Code: ErrorNotFound, Reason: "participant_not_found", Message: "participant not found", Err: err}
		}
		if errors.Is(err, domain.ErrInvalidID) {
			return StartOutput{}, invalidInput("invalid_participant_id", "participantId is not valid")
		}
		return StartOutput{}, newError(ErrorInternal, "participant_read_error", err)
	}

	now := d.now()
	convID := newUUID()
	state := domain.NewConversationState()
	opening := domain.Message{
		Role:           domain.RoleAssistant,
		Sender:         domain.SenderChatbot,
		Text:           openingMessage(p.ViewsChanged()),
		Timestamp:      now,
		Turn:           0,
		ConversationID: convID,
		MessageID:      newUUID(),
		Metadata:       assistantMetadata(state.Stage, false),
	}
	conv := domain.Conversation{
		ID:            convID,
		ParticipantID: p.ID,
		StartedAt:     now,
		State:         state,
		Messages:      []domain.Message{opening},
	}
	if err := d.store.CreateConversation(context.WithoutCancel(ctx), conv); err != nil {
		d.logger.Error("failed to create conversation", "conversation_id", convID, "participant_id", p.ID, "err", err)
		return StartOutput{}, newError(ErrorInternal, "conversation_write_error", err)
	}
	d.logger.Info("conversation started", "conversation_id", convID, "participant_id", p.ID)
	return StartOutput{ConversationID: convID, Opening: opening}, nil
}

type ReplyInput struct {
	ConversationID string
	Text           string
}

type ReplyOutput struct {
	Reply      string
	Turn       int
	Stage      domain.Stage
	Terminated bool
	Fallback   bool
}

// Reply runs one interview turn. Turns for the same conversation are
// serialized; the counters and both messages are persisted even if ctx is
// cancelled once the turn has started.
func (d *Director) Reply(ctx context.Context, in ReplyInput) (ReplyOutput, error) {
	convID := strings.TrimSpace(in.ConversationID)
	text := strings.TrimSpace(in.Text)
	if convID == "" {
		return ReplyOutput{}, invalidInput("empty_conversation_id", "conversationId is required")
	}
	if text == "" {
		return ReplyOutput{}, invalidInput("empty_message", "content must not be empty")
	}
	if utf8.RuneCountInString(text) > d.maxLen {
		return ReplyOutput{}, invalidInput("message_too_long", "content is too long")
	}

	unlock := d.locks.lock(convID)
	defer unlock()

	conv, err := d.loadConversation(ctx, convID)
	if err != nil {
		return ReplyOutput{}, err
	}
	if conv.Terminated() {
		return ReplyOutput{}, &Error{Code: ErrorTerminated, Reason: "conversation_terminated", Message: "conversation has ended"}
	}
	p, err := d.store.GetParticipant(ctx, conv.ParticipantID)
	if err != nil {
		return ReplyOutput{}, newError(ErrorInternal, "participant_read_error", err)
	}

	tags := classifier.Classify(text)
	state := conv.State
	applyTags(&state, tags)
	if advance(&state, d.thresholds) {
		d.logger.Info("conversation stage changed", "conversation_id", convID, "from", conv.State.Stage, "to", state.Stage, "turn", state.TurnCount)
	}

	turn := state.TurnCount
	userMsg := domain.Message{
		Role:           domain.RoleUser,
		Sender:         domain.SenderParticipant,
		Text:           text,
		Timestamp:      d.now(),
		Turn:           turn,
		ConversationID: convID,
		MessageID:      newUUID(),
		Metadata:       domain.Metadata{Tags: tags, Stage: state.Stage},
	}
	history := buildHistory(append(append([]domain.Message{}, conv.Messages...), userMsg))
	pctx := promptContext{state: state, viewsChanged: p.ViewsChanged()}
	lastAssistant := lastAssistantText(conv.Messages)

	var reply string
	var fallback bool
	if state.Stage == domain.StageTerminated {
		reply, fallback = d.generate(ctx, convID, buildClosingPrompt(pctx), history, func() string { return closingFallback })
		ended := d.now()
		conv.EndedAt = &ended
	} else {
		reply, fallback = d.generate(ctx, convID, buildTurnPrompt(pctx), history, func() string {
			return fallbackReply(turn, lastAssistant)
		})
		reply, state.ResponsePatterns = applyRepetitionPolicy(reply, state.ResponsePatterns, turn)
	}

	botMsg := domain.Message{
		Role:           domain.RoleAssistant,
		Sender:         domain.SenderChatbot,
		Text:           reply,
		Timestamp:      d.now(),
		Turn:           turn,
		ConversationID: convID,
		MessageID:      newUUID(),
		Metadata:       assistantMetadata(state.Stage, fallback),
	}
	conv.State = state
	conv.Messages = append(conv.Messages, userMsg, botMsg)
	p.ChatbotInteraction.Messages = conv.TranscriptMessages()

	if err := d.store.SaveTurn(context.WithoutCancel(ctx), p, conv); err != nil {
		d.logger.Error("failed to persist turn", "conversation_id", convID, "turn", turn, "err", err)
		return ReplyOutput{}, newError(ErrorInternal, "persistence_error", err)
	}

	return ReplyOutput{
		Reply:      reply,
		Turn:       turn,
		Stage:      state.Stage,
		Terminated: state.Stage == domain.StageTerminated,
		Fallback:   fallback,
	}, nil
}

// End terminates a conversation. Ending an already-ended conversation is a
// no-op.
func (d *Director) End(ctx context.Context, conversationID string) error {
	convID := strings.TrimSpace(conversationID)
	if convID == "" {
		return invalidInput("empty_conversation_id", "conversationId is required")
	}

	unlock := d.locks.lock(convID)
	defer unlock()

	conv, err := d.loadConversation(ctx, convID)
	if err != nil {
		return err
	}
	if conv.Terminated() && conv.EndedAt != nil {
		return nil
	}
	ended := d.now()
	conv.State.Stage = domain.StageTerminated
	conv.State.TopicTurnCount = 0
	conv.EndedAt = &ended
	if err := d.store.SaveConversation(context.WithoutCancel(ctx), conv); err != nil {
		d.logger.Error("failed to end conversation", "conversation_id", convID, "err", err)
		return newError(ErrorInternal, "persistence_error", err)
	}
	d.logger.Info("conversation ended", "conversation_id", convID, "turns", conv.State.TurnCount)
	return nil
}

// Conversation returns the stored conversation document.
func (d *Director) Conversation(ctx context.Context, conversationID string) (domain.Conversation, error) {
	convID := strings.TrimSpace(conversationID)
	if convID == "" {
		return domain.Conversation{}, invalidInput("empty_conversation_id", "conversationId is required")
	}
	return d.loadConversation(ctx, convID)
}

func (d *Director) loadConversation(ctx context.Context, convID string) (domain.Conversation, error) {
	conv, err := d.store.GetConversation(ctx, convID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Conversation{}, &Error{Code: ErrorNotFound, Reason: "conversation_not_found", Message: "conversation not found", Err: err}
		}
		if errors.Is(err, domain.ErrInvalidID) {
			return domain.Conversation{}, invalidInput("invalid_conversation_id", "conversationId is not valid")
		}
		return domain.Conversation{}, newError(ErrorInternal, "conversation_read_error", err)
	}
	return conv, nil
}

// generate calls the reply generator under the configured deadline. Any
// failure, including a cancelled request, yields the fallback text.
func (d *Director) generate(ctx context.Context, convID, prompt string, history []domain.ChatMessage, fallback func() string) (string, bool) {
	for attempt := 0; ; attempt++ {
		genCtx, cancel := context.WithTimeout(ctx, d.timeout)
		text, err := d.gen.Generate(genCtx, prompt, history)
		cancel()
		if err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text), false
		}
		if err == nil {
			err = domain.ErrGeneratorUnavailable
		}
		retry := attempt < d.retries && ctx.Err() == nil && !errors.Is(err, domain.ErrGeneratorTimeout)
		d.logger.Warn("reply generator failed", "conversation_id", convID, "attempt", attempt+1, "kind", generatorFailureKind(err), "retry", retry, "err", err)
		if !retry {
			return fallback(), true
		}
	}
}

func generatorFailureKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrGeneratorTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unavailable"
	}
}

func assistantMetadata(stage domain.Stage, fallback bool) domain.Metadata {
	return domain.Metadata{
		Tags:     domain.Tags{Influences: []domain.Influence{}},
		Stage:    stage,
		Fallback: fallback,
	}
}

func lastAssistantText(msgs []domain.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleAssistant {
			return msgs[i].Text
		}
	}
	return ""
}

var newUUID = func() string {
	return uuid.NewString()
}
