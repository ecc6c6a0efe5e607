package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/tanya/internal/completion"
	"github.com/hyperjump/tanya/internal/embedding"
	"github.com/hyperjump/tanya/internal/models"
)

type MockCompleter struct{ mock.Mock }

func (m *MockCompleter) Complete(ctx context.Context, prompt string, _ ...completion.Option) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockCompleter) Chat(ctx context.Context, history []models.Message, _ ...completion.Option) (string, error) {
	args := m.Called(ctx, history)
	return args.String(0), args.Error(1)
}

type MockStore struct{ mock.Mock }

func (m *MockStore) SavePair(ctx context.Context, collection string, rec *models.PairRecord) error {
	return m.Called(ctx, collection, rec).Error(0)
}

func (m *MockStore) SaveConversation(ctx context.Context, collection string, rec *models.ConversationRecord) error {
	return m.Called(ctx, collection, rec).Error(0)
}

func (m *MockStore) ListPairs(ctx context.Context, collection, sessionID string) ([]*models.PairRecord, error) {
	args := m.Called(ctx, collection, sessionID)
	recs, _ := args.Get(0).([]*models.PairRecord)
	return recs, args.Error(1)
}

func (m *MockStore) LatestConversation(ctx context.Context, collection, sessionID string) (*models.ConversationRecord, error) {
	args := m.Called(ctx, collection, sessionID)
	rec, _ := args.Get(0).(*models.ConversationRecord)
	return rec, args.Error(1)
}

func (m *MockStore) Close() error { return nil }

// flakyEmbedder fails the first n batch calls.
type flakyEmbedder struct {
	*embedding.MockEmbedder
	failures int
}

func (e *flakyEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if e.failures > 0 {
		e.failures--
		return nil, errors.New("connection reset")
	}
	return e.MockEmbedder.EmbedBatch(ctx, texts)
}

// queryFailEmbedder fails the first n single-text calls and counts batch calls.
type queryFailEmbedder struct {
	*embedding.MockEmbedder
	failures int
	batches  int
}

func (e *queryFailEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.failures > 0 {
		e.failures--
		return nil, errors.New("rate limited")
	}
	return e.MockEmbedder.Embed(ctx, text)
}

func (e *queryFailEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.batches++
	return e.MockEmbedder.EmbedBatch(ctx, texts)
}

var planets = []models.Passage{
	{ID: "mars", Text: "Mars is the red planet with two moons."},
	{ID: "venus", Text: "Venus is the hottest planet in the solar system."},
	{ID: "jupiter", Text: "Jupiter is the largest planet and a gas giant."},
}

func tableSource(t *testing.T) *TableSource {
	t.Helper()
	src, err := NewTableSource(planets)
	require.NoError(t, err)
	return src
}

func TestAsk_singleShot(t *testing.T) {
	emb := embedding.NewMockEmbedder(256)
	comp := new(MockCompleter)
	comp.On("Complete", mock.Anything, mock.AnythingOfType("string")).Return("Mars.", nil)

	o := New(tableSource(t), emb, comp)
	res, err := o.Ask(context.Background(), "Which planet is red with two moons?", 1000)
	require.NoError(t, err)

	assert.Equal(t, "Mars.", res.Answer)
	assert.False(t, res.Saved)
	assert.Nil(t, res.Messages)
	require.NotEmpty(t, res.Selected)
	assert.Equal(t, "mars", res.Selected[0].ID)
	assert.True(t, strings.HasPrefix(res.Prompt, "Answer the question as truthfully as possible"))
	assert.True(t, strings.HasSuffix(res.Prompt, "\n\n Q: Which planet is red with two moons?\n A:"))
	assert.Contains(t, res.Prompt, "\n* Mars is the red planet with two moons.")
	comp.AssertNumberOfCalls(t, "Complete", 1)
	comp.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestAsk_validatesBeforeProviders(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		maxTokens int
	}{
		{"empty query", "", 100},
		{"blank query", "   ", 100},
		{"zero budget", "why?", 0},
		{"negative budget", "why?", -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := embedding.NewMockEmbedder(64)
			comp := new(MockCompleter)
			o := New(tableSource(t), emb, comp)
			_, err := o.Ask(context.Background(), tt.query, tt.maxTokens)
			require.ErrorIs(t, err, models.ErrInvalidInput)
			assert.Zero(t, emb.Calls())
			comp.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
		})
	}
}

func TestAsk_embedsPassagesOnce(t *testing.T) {
	emb := embedding.NewMockEmbedder(256)
	comp := new(MockCompleter)
	comp.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)

	o := New(tableSource(t), emb, comp)
	_, err := o.Ask(context.Background(), "red planet", 500)
	require.NoError(t, err)
	assert.Equal(t, len(planets)+1, emb.Calls())

	_, err = o.Ask(context.Background(), "gas giant", 500)
	require.NoError(t, err)
	assert.Equal(t, len(planets)+2, emb.Calls(), "second ask embeds only the query")
	assert.Len(t, o.Passages(), len(planets))
}

func TestAsk_embeddingFailureIsNotCached(t *testing.T) {
	emb := &flakyEmbedder{MockEmbedder: embedding.NewMockEmbedder(64), failures: 1}
	comp := new(MockCompleter)
	comp.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)

	o := New(tableSource(t), emb, comp)
	_, err := o.Ask(context.Background(), "red planet", 500)
	require.ErrorIs(t, err, models.ErrEmbeddingProvider)
	assert.Empty(t, o.Passages())
	comp.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

	res, err := o.Ask(context.Background(), "red planet", 500)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Answer)
}

func TestAsk_queryEmbeddingFailureKeepsTable(t *testing.T) {
	emb := &queryFailEmbedder{MockEmbedder: embedding.NewMockEmbedder(64), failures: 1}
	comp := new(MockCompleter)
	comp.On("Complete", mock.Anything, mock.Anything).Return("Mars.", nil)

	o := New(tableSource(t), emb, comp)
	_, err := o.Ask(context.Background(), "red planet", 500)
	require.ErrorIs(t, err, models.ErrEmbeddingProvider)
	assert.Contains(t, err.Error(), "embed query")
	assert.Len(t, o.Passages(), len(planets), "passages stay loaded after a query failure")
	assert.Equal(t, 1, emb.batches)
	comp.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)

	res, err := o.Ask(context.Background(), "red planet", 500)
	require.NoError(t, err)
	assert.Equal(t, "Mars.", res.Answer)
	assert.NotEmpty(t, res.Selected)
	assert.Equal(t, 1, emb.batches, "passages are not embedded again")
}

func TestAsk_completionFailure(t *testing.T) {
	comp := new(MockCompleter)
	comp.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("503 service unavailable"))

	o := New(tableSource(t), embedding.NewMockEmbedder(64), comp)
	_, err := o.Ask(context.Background(), "red planet", 500)
	require.ErrorIs(t, err, models.ErrCompletionProvider)
	assert.Contains(t, err.Error(), "503")
}

func TestAsk_chatHistory(t *testing.T) {
	comp := new(MockCompleter)
	comp.On("Chat", mock.Anything, mock.Anything).Return("answer", nil)

	o := New(tableSource(t), embedding.NewMockEmbedder(256), comp, WithChat("you are a helpful assistant"))
	const turns = 3
	for i := 0; i < turns; i++ {
		res, err := o.Ask(context.Background(), "tell me about planets", 500)
		require.NoError(t, err)
		assert.Len(t, res.Messages, 1+2*(i+1))
	}

	msgs := o.Messages()
	require.Len(t, msgs, 1+2*turns)
	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	for i, m := range msgs[1:] {
		want := models.RoleUser
		if i%2 == 1 {
			want = models.RoleAssistant
		}
		assert.Equal(t, want, m.Role, "message %d", i+1)
	}
	assert.True(t, strings.HasPrefix(msgs[1].Content, "Answer the question"), "header on first turn")
	assert.False(t, strings.HasPrefix(msgs[3].Content, "Answer the question"), "no header later")

	first := comp.Calls[0].Arguments.Get(1).([]models.Message)
	assert.Len(t, first, 2, "system plus user on the first turn")
	last := comp.Calls[turns-1].Arguments.Get(1).([]models.Message)
	assert.Len(t, last, 1+2*(turns-1)+1)
}

func TestAsk_chatRollbackOnFailure(t *testing.T) {
	comp := new(MockCompleter)
	comp.On("Chat", mock.Anything, mock.Anything).Return("first", nil).Once()
	comp.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("timeout")).Once()

	o := New(tableSource(t), embedding.NewMockEmbedder(64), comp, WithChat("sys"))
	_, err := o.Ask(context.Background(), "one", 500)
	require.NoError(t, err)
	before := o.Messages()

	_, err = o.Ask(context.Background(), "two", 500)
	require.ErrorIs(t, err, models.ErrCompletionProvider)
	assert.Equal(t, before, o.Messages())
}

func TestAsk_persistence(t *testing.T) {
	t.Run("single shot saves a pair", func(t *testing.T) {
		store := new(MockStore)
		store.On("SavePair", mock.Anything, "table", mock.MatchedBy(func(rec *models.PairRecord) bool {
			return rec.Query == "red planet" && rec.Answer == "Mars" && rec.SourceID != "" && rec.Prompt != ""
		})).Return(nil).Once()
		comp := new(MockCompleter)
		comp.On("Complete", mock.Anything, mock.Anything).Return("Mars", nil)

		o := New(tableSource(t), embedding.NewMockEmbedder(64), comp, WithStore(store), WithID("s-1"))
		res, err := o.Ask(context.Background(), "red planet", 500)
		require.NoError(t, err)
		assert.True(t, res.Saved)
		store.AssertExpectations(t)
		rec := store.Calls[0].Arguments.Get(2).(*models.PairRecord)
		assert.Equal(t, "s-1", rec.SessionID)
	})

	t.Run("chat saves the conversation", func(t *testing.T) {
		store := new(MockStore)
		store.On("SaveConversation", mock.Anything, "table_chat", mock.MatchedBy(func(rec *models.ConversationRecord) bool {
			return len(rec.Conversation) == 3
		})).Return(nil).Once()
		comp := new(MockCompleter)
		comp.On("Chat", mock.Anything, mock.Anything).Return("Mars", nil)

		o := New(tableSource(t), embedding.NewMockEmbedder(64), comp, WithStore(store), WithChat("sys"))
		res, err := o.Ask(context.Background(), "red planet", 500)
		require.NoError(t, err)
		assert.True(t, res.Saved)
		store.AssertExpectations(t)
	})

	t.Run("store failure keeps the answer", func(t *testing.T) {
		store := new(MockStore)
		store.On("SavePair", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))
		comp := new(MockCompleter)
		comp.On("Complete", mock.Anything, mock.Anything).Return("Mars", nil)

		o := New(tableSource(t), embedding.NewMockEmbedder(64), comp, WithStore(store))
		res, err := o.Ask(context.Background(), "red planet", 500)
		require.NoError(t, err)
		assert.Equal(t, "Mars", res.Answer)
		assert.False(t, res.Saved)
	})
}

func TestAsk_budgetLimitsSelection(t *testing.T) {
	passages := []models.Passage{
		{ID: "p1", Text: "alpha", Tokens: 80},
		{ID: "p2", Text: "beta", Tokens: 50},
		{ID: "p3", Text: "gamma", Tokens: 40},
	}
	src, err := NewTableSource(passages)
	require.NoError(t, err)
	comp := new(MockCompleter)
	comp.On("Complete", mock.Anything, mock.Anything).Return("ok", nil)

	o := New(src, embedding.NewMockEmbedder(64), comp)
	res, err := o.Ask(context.Background(), "beta", 100)
	require.NoError(t, err)
	total := 0
	for _, p := range res.Selected {
		total += p.Tokens + 1
	}
	assert.LessOrEqual(t, total, 100)
	require.NotEmpty(t, res.Selected)
	assert.Equal(t, "p2", res.Selected[0].ID)
}

func TestCollection(t *testing.T) {
	comp := new(MockCompleter)
	emb := embedding.NewMockEmbedder(8)
	assert.Equal(t, "table", New(tableSource(t), emb, comp).Collection())
	assert.Equal(t, "table_chat", New(tableSource(t), emb, comp, WithChat("")).Collection())
}
