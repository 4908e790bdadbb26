// Package store is the profile store adapter: it owns consultant
// persistence and the similarity-search primitive the matching pipeline
// is built on. Loosely-typed records coming from disk are validated into
// the strict Consultant shape at this boundary; anything failing
// validation is skipped with a warning, never a crash.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/perttin/crewmatch/internal/match"
)

// ErrNotFound is returned when a requested consultant does not exist.
var ErrNotFound = errors.New("not found")

// Embedder generates embedding vectors for text. Implemented by the
// Ollama client wrapper; chromem uses it as its embedding function.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProfileStore exposes consultant records and the similarity-search
// primitive. The matching core treats it as an external capability.
type ProfileStore interface {
	// SearchSimilar returns up to limit consultants ordered by cosine
	// similarity to the query text. One batched call per request.
	SearchSimilar(ctx context.Context, queryText string, limit int) ([]match.Candidate, error)

	// GetAll returns every valid consultant record.
	GetAll(ctx context.Context) ([]match.Consultant, error)

	// Get returns a single consultant by id, or ErrNotFound.
	Get(ctx context.Context, id string) (match.Consultant, error)

	// Insert validates and stores a consultant, embedding its profile text.
	Insert(ctx context.Context, c match.Consultant) error

	// UpdateResume attaches resume text and reference to a consultant and
	// re-embeds its profile.
	UpdateResume(ctx context.Context, id, resumeText, resumeRef string) error

	// Count returns the number of stored consultants.
	Count(ctx context.Context) (int, error)
}

// SkillCount is one entry of the overview's top-skill list.
type SkillCount struct {
	Skill string `json:"skill"`
	Count int    `json:"count"`
}

// Overview summarizes the consultant pool: profile count, number of
// distinct skills, and the ten most common skills.
type Overview struct {
	ConsultantCount   int          `json:"consultantCount"`
	UniqueSkillsCount int          `json:"uniqueSkillsCount"`
	TopSkills         []SkillCount `json:"topSkills"`
}

// BuildOverview computes overview statistics from a consultant list.
// Skills are counted as written on the profiles; ties in the top-ten
// break alphabetically so the output is deterministic.
func BuildOverview(consultants []match.Consultant) Overview {
	counts := make(map[string]int)
	for _, c := range consultants {
		for _, s := range c.Skills {
			if s = strings.TrimSpace(s); s != "" {
				counts[s]++
			}
		}
	}

	top := make([]SkillCount, 0, len(counts))
	for skill, n := range counts {
		top = append(top, SkillCount{Skill: skill, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Skill < top[j].Skill
	})
	if len(top) > 10 {
		top = top[:10]
	}

	return Overview{
		ConsultantCount:   len(consultants),
		UniqueSkillsCount: len(counts),
		TopSkills:         top,
	}
}

// upstreamErr maps low-level failures onto the core error taxonomy:
// deadline overruns become ErrUpstreamTimeout, everything else
// ErrUpstreamUnavailable. The op name is kept for logs.
func upstreamErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, match.ErrUpstreamTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%s: %v: %w", op, err, match.ErrUpstreamUnavailable)
}
