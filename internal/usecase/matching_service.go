package usecase

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/competitiveedge/engine/internal/domain"
)

// Confidence blend weights
const (
	specWeight     = 0.6 // structured specs are extracted more reliably than names
	semanticWeight = 0.4
)

// Field weights for spec similarity
const (
	requiredFieldWeight = 2.0
	optionalFieldWeight = 1.0
)

// neutralSimilarity is used when no semantic signal is available
const neutralSimilarity = 0.5

// unknownProductName labels candidates extracted without a name
const unknownProductName = "Unknown Product"

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinConfidenceThreshold float64
	MaxCandidates          int
	MaxConcurrency         int
	EnableDebugLogging     bool
}

// MatchingService scores how likely a discovered candidate is the same product
// as the user's. Embedder and judge are optional; without either the semantic
// component is neutral.
type MatchingService struct {
	embedder               domain.Embedder
	judge                  domain.SimilarityJudge
	minConfidenceThreshold float64
	maxCandidates          int
	maxConcurrency         int
	enableDebugLogging     bool
	logger                 *slog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(embedder domain.Embedder, judge domain.SimilarityJudge, config MatchConfig, logger *slog.Logger) *MatchingService {
	threshold := config.MinConfidenceThreshold
	if threshold <= 0 || threshold > 1 {
		threshold = 0.5
	}

	maxCandidates := config.MaxCandidates
	if maxCandidates <= 0 {
		maxCandidates = 10
	}

	concurrency := config.MaxConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &MatchingService{
		embedder:               embedder,
		judge:                  judge,
		minConfidenceThreshold: threshold,
		maxCandidates:          maxCandidates,
		maxConcurrency:         concurrency,
		enableDebugLogging:     config.EnableDebugLogging,
		logger:                 logger,
	}
}

// MinConfidenceThreshold returns the acceptance threshold in use
func (s *MatchingService) MinConfidenceThreshold() float64 {
	return s.minConfidenceThreshold
}

// SpecSimilarity compares two records field by field. Numeric fields use
// relative distance to the user's value, everything else exact match. Required
// fields count double. Returns 0 when no field is comparable.
func (s *MatchingService) SpecSimilarity(user, candidate domain.Record, schema *domain.ProductSchema) float64 {
	if schema == nil {
		return 0
	}

	var weighted, total float64
	for _, field := range schema.Fields {
		userValue, candidateValue := user[field.Name], candidate[field.Name]
		if IsNullValue(userValue) || IsNullValue(candidateValue) {
			continue
		}

		var similarity float64
		if field.Type.Numeric() {
			u, uok := strictFloat(userValue)
			c, cok := strictFloat(candidateValue)
			if !uok || !cok {
				continue
			}
			similarity = relativeSimilarity(u, c)
		} else if reflect.DeepEqual(userValue, candidateValue) {
			similarity = 1
		}

		weight := optionalFieldWeight
		if field.Required {
			weight = requiredFieldWeight
		}
		weighted += similarity * weight
		total += weight
	}

	if total == 0 {
		return 0
	}
	return clamp01(weighted / total)
}

func relativeSimilarity(user, candidate float64) float64 {
	if user == 0 {
		if candidate == 0 {
			return 1
		}
		return 0
	}
	return math.Max(0, 1-math.Abs(candidate-user)/math.Abs(user))
}

// SemanticSimilarity rates how alike two product names are. It tries the
// embedder, then the judge, then falls back to a neutral 0.5.
func (s *MatchingService) SemanticSimilarity(ctx context.Context, nameA, nameB string) float64 {
	a, b := canonicalName(nameA), canonicalName(nameB)

	if s.embedder != nil {
		similarity, err := s.embeddingSimilarity(ctx, a, b)
		if err == nil {
			return similarity
		}
		s.logger.Warn("match: embedding similarity failed, trying judge", "error", err)
	}

	if s.judge != nil {
		rating, err := s.judge.RateSimilarity(ctx, a, b)
		if err == nil && !math.IsNaN(rating) {
			return clamp01(rating)
		}
		s.logger.Warn("match: similarity judge failed, using neutral score", "error", err)
	}

	return neutralSimilarity
}

func (s *MatchingService) embeddingSimilarity(ctx context.Context, a, b string) (float64, error) {
	va, err := s.embedder.Embed(ctx, a)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailure, err)
	}
	vb, err := s.embedder.Embed(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrEmbeddingFailure, err)
	}
	if len(va) == 0 || len(va) != len(vb) {
		return 0, fmt.Errorf("%w: vector dimensions %d and %d", domain.ErrEmbeddingFailure, len(va), len(vb))
	}
	return clamp01((cosine32(va, vb) + 1) / 2), nil
}

// Score computes the blended confidence that candidate is the user's product
func (s *MatchingService) Score(
	ctx context.Context,
	userName string,
	user domain.Record,
	candidateName string,
	candidate domain.Record,
	schema *domain.ProductSchema,
) domain.ConfidenceScore {
	spec := s.SpecSimilarity(user, candidate, schema)
	semantic := s.SemanticSimilarity(ctx, userName, candidateName)

	score := domain.ConfidenceScore{
		SpecSimilarity:     spec,
		SemanticSimilarity: semantic,
		ConfidenceScore:    clamp01(specWeight*spec + semanticWeight*semantic),
	}

	if s.enableDebugLogging {
		s.logger.Debug("match: scored candidate",
			"user", userName, "candidate", candidateName,
			"spec", spec, "semantic", semantic, "confidence", score.ConfidenceScore)
	}
	return score
}

// RankCandidates scores candidates against target with bounded concurrency,
// sorts them by confidence and keeps the best MaxCandidates. Candidates below
// the threshold are kept but flagged.
func (s *MatchingService) RankCandidates(
	ctx context.Context,
	target domain.Product,
	candidates []domain.MatchCandidate,
	schema *domain.ProductSchema,
) ([]domain.ScoredCandidate, error) {
	if strings.TrimSpace(target.Name) == "" {
		return nil, fmt.Errorf("%w: target product name is required", domain.ErrInvalidRequest)
	}

	scored := make([]domain.ScoredCandidate, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrency)

	for i, candidate := range candidates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			name := candidate.ProductName
			if strings.TrimSpace(name) == "" {
				name = candidate.Data.Name()
			}
			if strings.TrimSpace(name) == "" {
				name = unknownProductName
			}
			candidate.ProductName = name

			score := s.Score(gctx, target.Name, target.Data, name, candidate.Data, schema)
			scored[i] = domain.ScoredCandidate{
				MatchCandidate:  candidate,
				ConfidenceScore: score,
				BelowThreshold:  score.ConfidenceScore < s.minConfidenceThreshold,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortStableFunc(scored, func(a, b domain.ScoredCandidate) int {
		return cmp.Compare(b.ConfidenceScore.ConfidenceScore, a.ConfidenceScore.ConfidenceScore)
	})
	if len(scored) > s.maxCandidates {
		scored = scored[:s.maxCandidates]
	}
	return scored, nil
}

// FindBestMatch returns the highest scoring candidate. When it scores below
// the threshold it is still returned, together with ErrLowConfidence.
func (s *MatchingService) FindBestMatch(
	ctx context.Context,
	target domain.Product,
	candidates []domain.MatchCandidate,
	schema *domain.ProductSchema,
) (*domain.ScoredCandidate, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates to match", domain.ErrInvalidRequest)
	}

	ranked, err := s.RankCandidates(ctx, target, candidates, schema)
	if err != nil {
		return nil, err
	}

	best := ranked[0]
	if s.enableDebugLogging {
		s.logger.Debug("match: best candidate", "url", best.URL, "confidence", best.ConfidenceScore.ConfidenceScore)
	}
	if best.BelowThreshold {
		return &best, domain.ErrLowConfidence
	}
	return &best, nil
}

// canonicalName folds width and compatibility forms so "２０００Ｗ" embeds like "2000W"
func canonicalName(name string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(name)), " ")
}

func cosine32(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		af, bf := float64(a[i]), float64(b[i])
		dot += af * bf
		na += af * af
		nb += bf * bf
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func clamp01(x float64) float64 {
	switch {
	case math.IsNaN(x), x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
