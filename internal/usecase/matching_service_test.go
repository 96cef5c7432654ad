package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/competitiveedge/engine/internal/domain"
)

// MockEmbedder returns fixed vectors per text
type MockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.vectors[text]
	if !ok {
		return nil, fmt.Errorf("no vector for %q", text)
	}
	return v, nil
}

// MockJudge returns a fixed rating
type MockJudge struct {
	rating float64
	err    error
	calls  int
}

func (m *MockJudge) RateSimilarity(ctx context.Context, a, b string) (float64, error) {
	m.calls++
	return m.rating, m.err
}

func TestNewMatchingService(t *testing.T) {
	t.Run("uses defaults for zero config", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{}, nil)
		assert.Equal(t, 0.5, svc.minConfidenceThreshold)
		assert.Equal(t, 10, svc.maxCandidates)
		assert.Equal(t, 4, svc.maxConcurrency)
	})

	t.Run("keeps provided values", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{MinConfidenceThreshold: 0.7, MaxCandidates: 3, MaxConcurrency: 1}, nil)
		assert.Equal(t, 0.7, svc.MinConfidenceThreshold())
		assert.Equal(t, 3, svc.maxCandidates)
		assert.Equal(t, 1, svc.maxConcurrency)
	})

	t.Run("rejects out of range threshold", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{MinConfidenceThreshold: 40}, nil)
		assert.Equal(t, 0.5, svc.minConfidenceThreshold)
	})
}

func TestSpecSimilarity(t *testing.T) {
	svc := NewMatchingService(nil, nil, MatchConfig{}, discardLogger())
	schema := dehumidifierSchema()

	t.Run("identical records score 1", func(t *testing.T) {
		r := domain.Record{"price": 249.99, "tank_capacity": 1.6, "pints_per_day": int64(50), "brand": "Frigidaire", "energy_star": true}
		assert.Equal(t, 1.0, svc.SpecSimilarity(r, r.Clone(), schema))
	})

	t.Run("required fields weigh double", func(t *testing.T) {
		user := domain.Record{"price": 100.0, "brand": "Acme"}
		candidate := domain.Record{"price": 90.0, "brand": "Other"}
		// price: 0.9 * 2, brand: 0 * 1
		assert.InDelta(t, 1.8/3, svc.SpecSimilarity(user, candidate, schema), 1e-9)
	})

	t.Run("distance beyond user value floors at 0", func(t *testing.T) {
		user := domain.Record{"price": 100.0}
		candidate := domain.Record{"price": 350.0}
		assert.Equal(t, 0.0, svc.SpecSimilarity(user, candidate, schema))
	})

	t.Run("zero user value", func(t *testing.T) {
		s := &domain.ProductSchema{Fields: []domain.FieldDefinition{{Name: "x", Type: domain.FieldTypeInteger}}}
		assert.Equal(t, 1.0, svc.SpecSimilarity(domain.Record{"x": 0}, domain.Record{"x": 0}, s))
		assert.Equal(t, 0.0, svc.SpecSimilarity(domain.Record{"x": 0}, domain.Record{"x": 3}, s))
	})

	t.Run("nothing comparable scores 0", func(t *testing.T) {
		user := domain.Record{"price": "call", "brand": nil}
		candidate := domain.Record{"price": 100.0}
		assert.Equal(t, 0.0, svc.SpecSimilarity(user, candidate, schema))
	})
}

func TestSemanticSimilarity(t *testing.T) {
	ctx := context.Background()

	t.Run("cosine rescaled from embeddings", func(t *testing.T) {
		embedder := &MockEmbedder{vectors: map[string][]float32{
			"a": {1, 0},
			"b": {0, 1},
			"c": {-1, 0},
		}}
		svc := NewMatchingService(embedder, nil, MatchConfig{}, discardLogger())

		assert.InDelta(t, 1.0, svc.SemanticSimilarity(ctx, "a", "a"), 1e-6)
		assert.InDelta(t, 0.5, svc.SemanticSimilarity(ctx, "a", "b"), 1e-6)
		assert.InDelta(t, 0.0, svc.SemanticSimilarity(ctx, "a", "c"), 1e-6)
	})

	t.Run("names are NFKC folded before embedding", func(t *testing.T) {
		embedder := &MockEmbedder{vectors: map[string][]float32{"Heater 2000W": {1, 1}}}
		svc := NewMatchingService(embedder, nil, MatchConfig{}, discardLogger())

		assert.InDelta(t, 1.0, svc.SemanticSimilarity(ctx, "Heater  ２０００Ｗ", "Heater 2000W"), 1e-6)
	})

	t.Run("falls back to judge when embedding fails", func(t *testing.T) {
		embedder := &MockEmbedder{err: errors.New("rate limited")}
		judge := &MockJudge{rating: 0.83}
		svc := NewMatchingService(embedder, judge, MatchConfig{}, discardLogger())

		assert.Equal(t, 0.83, svc.SemanticSimilarity(ctx, "a", "b"))
		assert.Equal(t, 1, judge.calls)
	})

	t.Run("judge rating is clamped", func(t *testing.T) {
		svc := NewMatchingService(nil, &MockJudge{rating: 1.7}, MatchConfig{}, discardLogger())
		assert.Equal(t, 1.0, svc.SemanticSimilarity(ctx, "a", "b"))
	})

	t.Run("neutral when everything fails", func(t *testing.T) {
		embedder := &MockEmbedder{err: errors.New("down")}
		judge := &MockJudge{err: errors.New("down too")}
		svc := NewMatchingService(embedder, judge, MatchConfig{}, discardLogger())

		assert.Equal(t, 0.5, svc.SemanticSimilarity(ctx, "a", "b"))
	})

	t.Run("neutral without collaborators", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{}, discardLogger())
		assert.Equal(t, 0.5, svc.SemanticSimilarity(ctx, "a", "b"))
	})

	t.Run("dimension mismatch is an embedding failure", func(t *testing.T) {
		embedder := &MockEmbedder{vectors: map[string][]float32{"a": {1, 0}, "b": {1, 0, 0}}}
		judge := &MockJudge{rating: 0.2}
		svc := NewMatchingService(embedder, judge, MatchConfig{}, discardLogger())

		assert.Equal(t, 0.2, svc.SemanticSimilarity(ctx, "a", "b"))
	})
}

func TestScoreBounds(t *testing.T) {
	ctx := context.Background()
	schema := heaterSchema()
	svc := NewMatchingService(nil, &MockJudge{rating: 1}, MatchConfig{}, discardLogger())

	records := []domain.Record{
		{"price": 199.99, "wattage": int64(2000)},
		{"price": 0.0, "wattage": int64(0)},
		{"price": 1e9, "wattage": int64(-5)},
		{"price": -10.0},
		{},
	}

	for i, a := range records {
		for j, b := range records {
			score := svc.Score(ctx, "user", a, "candidate", b, schema)
			assert.GreaterOrEqual(t, score.ConfidenceScore, 0.0, "pair %d,%d", i, j)
			assert.LessOrEqual(t, score.ConfidenceScore, 1.0, "pair %d,%d", i, j)
			assert.InDelta(t, 0.6*score.SpecSimilarity+0.4*score.SemanticSimilarity, score.ConfidenceScore, 1e-12)
		}
	}

	self := svc.Score(ctx, "Heater", records[0], "Heater", records[0], schema)
	assert.Equal(t, 1.0, self.SpecSimilarity)
	assert.InDelta(t, 1.0, self.ConfidenceScore, 1e-12)
}

func TestRankCandidates(t *testing.T) {
	ctx := context.Background()
	schema := heaterSchema()
	target := domain.Product{Name: "Lasko Heater", Data: domain.Record{"price": 100.0, "wattage": int64(1500)}}

	candidates := []domain.MatchCandidate{
		{URL: "https://a.example/far", ProductName: "Far", Data: domain.Record{"price": 400.0, "wattage": int64(100)}},
		{URL: "https://b.example/exact", ProductName: "Exact", Data: domain.Record{"price": 100.0, "wattage": int64(1500)}},
		{URL: "https://c.example/close", Data: domain.Record{"name": "Close", "price": 110.0, "wattage": int64(1500)}},
		{URL: "https://d.example/anon", Data: domain.Record{"price": 150.0}},
	}

	t.Run("sorted by confidence and flagged", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{MinConfidenceThreshold: 0.6, MaxConcurrency: 2}, discardLogger())

		ranked, err := svc.RankCandidates(ctx, target, candidates, schema)
		require.NoError(t, err)
		require.Len(t, ranked, 4)

		assert.Equal(t, "https://b.example/exact", ranked[0].URL)
		assert.Equal(t, "https://c.example/close", ranked[1].URL)
		assert.Equal(t, "Close", ranked[1].ProductName)
		assert.Equal(t, "https://a.example/far", ranked[3].URL)
		assert.Equal(t, unknownProductName, ranked[2].ProductName)

		for i := 1; i < len(ranked); i++ {
			assert.GreaterOrEqual(t, ranked[i-1].ConfidenceScore.ConfidenceScore, ranked[i].ConfidenceScore.ConfidenceScore)
		}
		assert.False(t, ranked[0].BelowThreshold)
		assert.True(t, ranked[3].BelowThreshold)
	})

	t.Run("truncated to max candidates", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{MaxCandidates: 2}, discardLogger())

		ranked, err := svc.RankCandidates(ctx, target, candidates, schema)
		require.NoError(t, err)
		assert.Len(t, ranked, 2)
	})

	t.Run("requires a target name", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{}, discardLogger())

		_, err := svc.RankCandidates(ctx, domain.Product{}, candidates, schema)
		assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	})

	t.Run("canceled context", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{}, discardLogger())
		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := svc.RankCandidates(canceled, target, candidates, schema)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFindBestMatch(t *testing.T) {
	ctx := context.Background()
	schema := heaterSchema()
	target := domain.Product{Name: "Lasko Heater", Data: domain.Record{"price": 100.0, "wattage": int64(1500)}}

	t.Run("returns error for empty candidates", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{}, discardLogger())
		_, err := svc.FindBestMatch(ctx, target, nil, schema)
		assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
	})

	t.Run("returns match above threshold", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{}, discardLogger())
		best, err := svc.FindBestMatch(ctx, target, []domain.MatchCandidate{
			{URL: "u1", ProductName: "Same", Data: domain.Record{"price": 100.0, "wattage": int64(1500)}},
		}, schema)
		require.NoError(t, err)
		assert.Equal(t, "u1", best.URL)
	})

	t.Run("returns low confidence match with error", func(t *testing.T) {
		svc := NewMatchingService(nil, nil, MatchConfig{MinConfidenceThreshold: 0.9}, discardLogger())
		best, err := svc.FindBestMatch(ctx, target, []domain.MatchCandidate{
			{URL: "u2", ProductName: "Other", Data: domain.Record{"price": 300.0}},
		}, schema)
		assert.True(t, errors.Is(err, domain.ErrLowConfidence))
		require.NotNil(t, best)
		assert.True(t, best.BelowThreshold)
	})
}
