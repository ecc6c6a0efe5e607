// Package session answers questions against one loaded source.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/completion"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/prompt"
	"github.com/hyperjump/tanya/internal/storage"
	"github.com/hyperjump/tanya/internal/vector"
)

// Session is the state built up over the life of one orchestrator.
// Passages and Table are filled on the first successful Ask and never recomputed.
type Session struct {
	ID           string
	Passages     []models.Passage
	Table        *vector.Table
	Conversation *models.Conversation

	byID map[string]models.Passage
}

// Result is the outcome of one Ask.
type Result struct {
	Answer string `json:"answer"`
	// Prompt is the single-shot prompt, or the user message content in chat mode.
	Prompt   string           `json:"prompt"`
	Messages []models.Message `json:"messages,omitempty"`
	Selected []models.Passage `json:"selected"`
	Saved    bool             `json:"saved"`
}

// Orchestrator runs the load, embed, rank, assemble, complete and persist steps for a source.
// It is not safe for concurrent use.
type Orchestrator struct {
	source     Source
	embedder   embedding.Embedder
	completer  completion.Completer
	assembler  *prompt.Assembler
	builder    *prompt.Builder
	store      storage.Store
	logger     *zap.Logger
	chat       bool
	genOptions []completion.Option

	session Session
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStore enables persistence of every answered turn.
func WithStore(s storage.Store) Option {
	return func(o *Orchestrator) {
		o.store = s
	}
}

// WithChat switches to chat mode. An empty system prompt means no system message.
func WithChat(systemPrompt string) Option {
	return func(o *Orchestrator) {
		o.chat = true
		o.session.Conversation = models.NewConversation(systemPrompt)
	}
}

// WithAssembler replaces the default context assembler.
func WithAssembler(a *prompt.Assembler) Option {
	return func(o *Orchestrator) {
		if a != nil {
			o.assembler = a
		}
	}
}

// WithBuilder replaces the default prompt builder.
func WithBuilder(b *prompt.Builder) Option {
	return func(o *Orchestrator) {
		if b != nil {
			o.builder = b
		}
	}
}

// WithCompletionOptions sets generation parameters passed on every completion call.
func WithCompletionOptions(opts ...completion.Option) Option {
	return func(o *Orchestrator) {
		o.genOptions = append(o.genOptions, opts...)
	}
}

// WithID sets the session ID instead of a generated one.
func WithID(id string) Option {
	return func(o *Orchestrator) {
		if id != "" {
			o.session.ID = id
		}
	}
}

// New creates an orchestrator. Nothing is loaded or embedded until the first Ask.
func New(source Source, embedder embedding.Embedder, completer completion.Completer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		source:    source,
		embedder:  embedder,
		completer: completer,
		assembler: prompt.NewAssembler(),
		builder:   prompt.NewBuilder(prompt.DefaultHeader),
		logger:    zap.NewNop(),
		session:   Session{ID: uuid.NewString()},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ID returns the session ID.
func (o *Orchestrator) ID() string { return o.session.ID }

// Kind returns the source kind.
func (o *Orchestrator) Kind() string { return o.source.Kind() }

// Chat reports whether the orchestrator runs in chat mode.
func (o *Orchestrator) Chat() bool { return o.chat }

// Collection is where answered turns are saved.
func (o *Orchestrator) Collection() string {
	if o.chat {
		return o.source.Kind() + "_chat"
	}
	return o.source.Kind()
}

// Messages returns a copy of the chat history, or nil in single-shot mode.
func (o *Orchestrator) Messages() []models.Message {
	if o.session.Conversation == nil {
		return nil
	}
	return o.session.Conversation.Messages()
}

// Turns returns the number of committed chat turns, always 0 in single-shot mode.
func (o *Orchestrator) Turns() int {
	if o.session.Conversation == nil {
		return 0
	}
	return o.session.Conversation.Turns()
}

// Passages returns the loaded passages, or nil before the first successful Ask.
func (o *Orchestrator) Passages() []models.Passage {
	out := make([]models.Passage, len(o.session.Passages))
	copy(out, o.session.Passages)
	return out
}

// Ask answers query using at most maxTokens tokens of context.
func (o *Orchestrator) Ask(ctx context.Context, query string, maxTokens int) (*Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", models.ErrInvalidInput)
	}
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive, got %d", models.ErrInvalidInput, maxTokens)
	}

	if err := o.prepare(ctx); err != nil {
		return nil, err
	}

	queryVec, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", models.ErrEmbeddingProvider, err)
	}
	ranked, err := vector.Rank(queryVec, o.session.Table)
	if err != nil {
		return nil, err
	}
	sel, err := o.assembler.Assemble(ranked, o.session.byID, maxTokens)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("context assembled",
		zap.String("session", o.session.ID),
		zap.Int("passages", len(sel.Passages)),
		zap.Int("tokens", sel.Tokens))

	res := &Result{Selected: sel.Passages}
	if o.chat {
		conv := o.session.Conversation
		user := o.builder.UserMessage(sel, query, conv.FirstTurn())
		answer, err := o.completer.Chat(ctx, conv.Pending(user), o.genOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrCompletionProvider, err)
		}
		conv.Commit(user, models.Message{Role: models.RoleAssistant, Content: answer})
		o.logger.Debug("chat turn committed", zap.String("session", o.session.ID), zap.Int("turns", conv.Turns()))
		res.Answer = answer
		res.Prompt = user.Content
		res.Messages = conv.Messages()
	} else {
		p := o.builder.Prompt(sel, query)
		answer, err := o.completer.Complete(ctx, p, o.genOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", models.ErrCompletionProvider, err)
		}
		res.Answer = answer
		res.Prompt = p
	}

	res.Saved = o.persist(ctx, query, res)
	return res, nil
}

// prepare loads and embeds the source once. A failure leaves the session unloaded.
func (o *Orchestrator) prepare(ctx context.Context) error {
	if o.session.Table != nil {
		return nil
	}
	passages, err := o.source.Load(ctx)
	if err != nil {
		return err
	}
	if err := models.ValidatePassages(passages); err != nil {
		return err
	}
	table, err := embedding.EmbedPassages(ctx, o.embedder, passages)
	if err != nil {
		return fmt.Errorf("%w: embed passages: %w", models.ErrEmbeddingProvider, err)
	}
	o.session.Passages = passages
	o.session.byID = models.IndexPassages(passages)
	o.session.Table = table
	o.logger.Info("source loaded",
		zap.String("session", o.session.ID),
		zap.String("kind", o.source.Kind()),
		zap.String("source", o.source.Locator()),
		zap.Int("passages", len(passages)))
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, query string, res *Result) bool {
	if o.store == nil {
		return false
	}
	var err error
	if o.chat {
		err = o.store.SaveConversation(ctx, o.Collection(), &models.ConversationRecord{
			SessionID:    o.session.ID,
			SourceID:     o.source.Locator(),
			Conversation: res.Messages,
		})
	} else {
		err = o.store.SavePair(ctx, o.Collection(), &models.PairRecord{
			SessionID: o.session.ID,
			SourceID:  o.source.Locator(),
			Query:     query,
			Answer:    res.Answer,
			Prompt:    res.Prompt,
		})
	}
	if err != nil {
		o.logger.Warn("failed to save turn",
			zap.String("session", o.session.ID),
			zap.String("collection", o.Collection()),
			zap.Error(err))
		return false
	}
	return true
}
