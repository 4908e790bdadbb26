package match

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// scoreConcurrency bounds the fan-out when scoring candidates. Scoring per
// consultant is independent and side-effect free; ordering of execution
// is irrelevant because Rank alone decides the final order.
const scoreConcurrency = 8

// CandidateSource is the profile store primitive the matcher depends on:
// one batched similarity search per request, never one call per consultant.
type CandidateSource interface {
	SearchSimilar(ctx context.Context, queryText string, limit int) ([]Candidate, error)
}

// Matcher runs the single-role pipeline: normalize, fetch candidates,
// fan-out scoring, fan-in ranking.
type Matcher struct {
	source CandidateSource
	scorer *Scorer
	topK   int
	pool   int
}

// NewMatcher creates a Matcher over the given candidate source. topK
// bounds the result list (DefaultTopK if <= 0); poolSize bounds how many
// candidates are fetched for scoring (3*topK, at least 50, if <= 0).
func NewMatcher(source CandidateSource, scorer *Scorer, topK, poolSize int) *Matcher {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if poolSize <= 0 {
		poolSize = 3 * topK
		if poolSize < 50 {
			poolSize = 50
		}
	}
	return &Matcher{source: source, scorer: scorer, topK: topK, pool: poolSize}
}

// Match turns a raw project description into a ranked, deduplicated,
// explainable candidate list. An empty result is a valid outcome, not an
// error; store failures propagate as ErrUpstreamUnavailable or
// ErrUpstreamTimeout.
func (m *Matcher) Match(ctx context.Context, text string) ([]ScoredCandidate, error) {
	q, err := Normalize(text)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, q)
}

// MatchRole runs the pipeline for a structured role spec, using the spec's
// skill list as the structured matching terms.
func (m *Matcher) MatchRole(ctx context.Context, spec RoleSpec) ([]ScoredCandidate, error) {
	q, err := NormalizeRole(spec)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, q)
}

func (m *Matcher) run(ctx context.Context, q Query) ([]ScoredCandidate, error) {
	candidates, err := m.source.SearchSimilar(ctx, q.Text, m.pool)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	scored := make([]ScoredCandidate, len(candidates))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(scoreConcurrency)
	for i, cand := range candidates {
		g.Go(func() error {
			scored[i] = m.scorer.Score(q, cand.Consultant, cand.Similarity)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// Caller went away — no partial results.
		return nil, err
	}

	ranked := Rank(scored, m.topK)
	slog.Debug("match pipeline complete",
		"keywords", len(q.Keywords),
		"candidates", len(candidates),
		"ranked", len(ranked),
	)
	return ranked, nil
}
