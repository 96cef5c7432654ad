package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel replays scripted replies; errs are consumed before replies
type fakeModel struct {
	mu       sync.Mutex
	errs     []error
	replies  []string
	calls    int
	messages [][]llms.MessageContent
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.messages = append(m.messages, messages)

	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return nil, err
	}
	if len(m.replies) == 0 {
		return &llms.ContentResponse{}, nil
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: reply}}}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// lastPrompt joins the text parts of the most recent call
func (m *fakeModel) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ""
	}
	var out string
	for _, msg := range m.messages[len(m.messages)-1] {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				out += text.Text + "\n"
			}
		}
	}
	return out
}

// fakeEmbedder implements embeddings.Embedder
type fakeEmbedder struct {
	vector []float32
	errs   []error
	calls  int
}

func (e *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if len(e.errs) > 0 {
		err := e.errs[0]
		e.errs = e.errs[1:]
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vector
	}
	return out, nil
}

func (e *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func testLimits() Limits {
	return Limits{RequestsPerSecond: 1000, Burst: 100, MaxAttempts: 3, BaseBackoff: time.Millisecond}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewClientFromModels(t *testing.T) {
	client := NewClientFromModels(Models{}, Limits{}, nil)

	assert.NotNil(t, client.rateLimiter)
	assert.Equal(t, 3, client.maxAttempts)
	assert.Equal(t, 500*time.Millisecond, client.baseBackoff)
	assert.False(t, client.HasExtractor())
}

func TestExponentialBackoff(t *testing.T) {
	client := NewClientFromModels(Models{}, Limits{}, testLogger())

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, client.exponentialBackoff(tt.attempt))
		})
	}
}

func TestNewClientProviders(t *testing.T) {
	t.Run("openai requires a key", func(t *testing.T) {
		_, err := NewClient(Config{Provider: ProviderOpenAI, EmbeddingModel: "text-embedding-3-small"}, testLogger())
		assert.Error(t, err)
	})

	t.Run("anthropic chat requires its own key", func(t *testing.T) {
		_, err := NewClient(Config{
			Provider:       ProviderOpenAI,
			ChatProvider:   ProviderAnthropic,
			APIKey:         "sk-test",
			EmbeddingModel: "text-embedding-3-small",
			JudgeModel:     "claude-3-5-haiku-latest",
		}, testLogger())
		assert.Error(t, err)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := NewClient(Config{Provider: "bedrock"}, testLogger())
		assert.Error(t, err)
	})

	t.Run("openai with key", func(t *testing.T) {
		client, err := NewClient(Config{
			Provider:        ProviderOpenAI,
			APIKey:          "sk-test",
			EmbeddingModel:  "text-embedding-3-small",
			JudgeModel:      "gpt-4o-mini",
			ExtractionModel: "gpt-4o-mini",
			Limits:          testLimits(),
		}, testLogger())
		require.NoError(t, err)
		assert.True(t, client.HasExtractor())
	})
}

func TestGenerateRetries(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers after transient failures", func(t *testing.T) {
		model := &fakeModel{errs: []error{errors.New("503"), errors.New("timeout")}, replies: []string{"ok"}}
		client := NewClientFromModels(Models{}, testLimits(), testLogger())

		text, err := client.generate(ctx, model, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "hi")})
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
		assert.Equal(t, 3, model.calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		model := &fakeModel{errs: []error{errors.New("a"), errors.New("b"), errors.New("c"), errors.New("d")}}
		client := NewClientFromModels(Models{}, testLimits(), testLogger())

		_, err := client.generate(ctx, model, nil)
		assert.EqualError(t, err, "c")
		assert.Equal(t, 3, model.calls)
	})

	t.Run("empty choices count as failure", func(t *testing.T) {
		model := &fakeModel{}
		client := NewClientFromModels(Models{}, testLimits(), testLogger())

		_, err := client.generate(ctx, model, nil)
		assert.Error(t, err)
		assert.Equal(t, 3, model.calls)
	})

	t.Run("canceled context stops before calling", func(t *testing.T) {
		model := &fakeModel{replies: []string{"ok"}}
		client := NewClientFromModels(Models{}, testLimits(), testLogger())
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := client.generate(canceled, model, nil)
		assert.Error(t, err)
		assert.Equal(t, 0, model.calls)
	})
}
