package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"sitewatch-hq/sitewatch/pkg/sop"
)

// Matcher scores observed actions against the steps of one procedure.
//
// Step embeddings are computed once at construction and never change within
// a run; only the observed action's description is embedded per match.
type Matcher struct {
	embedder    Embedder
	proc        *sop.Procedure
	stepVectors [][]float64
	threshold   float64
	epsilon     float64
	logger      *slog.Logger
}

// NewMatcher builds a matcher for the given procedure, embedding every step
// action up front.
func NewMatcher(ctx context.Context, embedder Embedder, proc *sop.Procedure, cfg *Config, logger *slog.Logger) (*Matcher, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if proc == nil || len(proc.Steps) == 0 {
		return nil, fmt.Errorf("procedure cannot be nil or empty")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	texts := make([]string, len(proc.Steps))
	for i := range proc.Steps {
		texts[i] = proc.Steps[i].Action
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed procedure steps: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d steps", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedder returned empty vector for step %d", proc.Steps[i].ID)
		}
	}

	return &Matcher{
		embedder:    embedder,
		proc:        proc,
		stepVectors: vectors,
		threshold:   cfg.SimilarityThreshold,
		epsilon:     cfg.ScoreEpsilon,
		logger:      logger.With("component", "engine.matcher"),
	}, nil
}

// Match scores the action against every step and returns the best candidate.
// expectedIndex is the tracker's current cursor position; when two steps tie
// within epsilon, the step closest to the cursor wins, and on equal distance
// the lower step id wins.
//
// If the best score falls below the similarity threshold the result's Step
// is nil, but the score is still reported for the classifier. The threshold
// is a closed lower bound: a score exactly at the threshold is a match.
func (m *Matcher) Match(ctx context.Context, action *ObservedAction, expectedIndex int) (*MatchResult, error) {
	vectors, err := m.embedder.Embed(ctx, []string{action.Description})
	if err != nil {
		return nil, fmt.Errorf("failed to embed action at t=%.1fs: %w", action.Timestamp, err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("embedder returned no vector for action at t=%.1fs", action.Timestamp)
	}
	actionVec := vectors[0]

	bestIdx := 0
	bestScore := similarity(actionVec, m.stepVectors[0])
	runnerIdx := -1
	runnerScore := -1.0

	for i := 1; i < len(m.stepVectors); i++ {
		score := similarity(actionVec, m.stepVectors[i])

		switch {
		case score > bestScore+m.epsilon:
			runnerIdx, runnerScore = bestIdx, bestScore
			bestIdx, bestScore = i, score
		case math.Abs(score-bestScore) <= m.epsilon:
			// Noise-level tie: prefer the step closest to the cursor,
			// then the lower step id. bestIdx is always the lower id
			// of the pair, so it only yields on a strictly closer step.
			if distance(i, expectedIndex) < distance(bestIdx, expectedIndex) {
				runnerIdx, runnerScore = bestIdx, bestScore
				bestIdx, bestScore = i, score
			} else if score > runnerScore {
				runnerIdx, runnerScore = i, score
			}
		case score > runnerScore:
			runnerIdx, runnerScore = i, score
		}
	}

	score := bestScore
	result := &MatchResult{
		Action: action,
		Score:  &score,
	}
	if runnerIdx >= 0 {
		result.RunnerUp = m.proc.StepAt(runnerIdx)
	}
	if bestScore >= m.threshold {
		result.Step = m.proc.StepAt(bestIdx)
	} else {
		m.logger.Debug("action unrecognized",
			"timestamp", action.Timestamp,
			"best_step", m.proc.Steps[bestIdx].ID,
			"score", bestScore,
			"threshold", m.threshold,
		)
	}
	return result, nil
}

// similarity returns the cosine similarity of two vectors mapped onto [0,1]:
// negative cosines clamp to zero, since "less than orthogonal" carries no
// extra meaning for text embeddings here.
func similarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}

func distance(i, j int) int {
	if i > j {
		return i - j
	}
	return j - i
}
