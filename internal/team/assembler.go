// Package team assembles multi-role teams: each elicited role is matched
// independently through the single-role pipeline, then a sequential
// reconciliation pass keeps one consultant from filling two roles while
// any unassigned alternate remains.
package team

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/perttin/crewmatch/internal/match"
)

const (
	// roleConcurrency bounds parallel per-role match pipelines.
	roleConcurrency = 4
	// maxAlternates is the number of runner-up candidates kept per role.
	maxAlternates = 2
)

// RoleMatcher is the single-role pipeline the assembler fans out over.
type RoleMatcher interface {
	MatchRole(ctx context.Context, spec match.RoleSpec) ([]match.ScoredCandidate, error)
}

// Assignment is the outcome for one role. Exactly one of Assigned or
// Reason is meaningful: a role with no qualifying candidates (or whose
// pipeline failed) carries a Reason and a nil Assigned.
type Assignment struct {
	Role       string                  `json:"role"`
	Assigned   *match.ScoredCandidate  `json:"assigned,omitempty"`
	Alternates []match.ScoredCandidate `json:"alternates,omitempty"`
	// Reused marks an assignment that repeats a consultant already
	// placed on an earlier role because this role's pool held nobody
	// else.
	Reused bool   `json:"reused,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Team is the full assembly result, one assignment per requested role in
// request order.
type Team struct {
	Assignments []Assignment `json:"assignments"`
}

// Assembler builds teams from role specifications.
type Assembler struct {
	matcher RoleMatcher
}

// NewAssembler creates an Assembler over the given single-role pipeline.
func NewAssembler(m RoleMatcher) *Assembler {
	return &Assembler{matcher: m}
}

// Assemble matches every role and reconciles the results. Per-role
// pipelines run in parallel; a failure or empty pool on one role is
// recorded in its assignment and never blocks the others. Only context
// cancellation aborts the whole assembly.
func (a *Assembler) Assemble(ctx context.Context, specs []match.RoleSpec) (*Team, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: no roles to assemble", match.ErrInvalidQuery)
	}

	type roleResult struct {
		candidates []match.ScoredCandidate
		err        error
	}
	results := make([]roleResult, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(roleConcurrency)
	for i, spec := range specs {
		g.Go(func() error {
			candidates, err := a.matcher.MatchRole(gctx, spec)
			results[i] = roleResult{candidates: candidates, err: err}
			return nil
		})
	}
	// Goroutines never return errors; Wait only observes panics.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Reconciliation is a short sequential pass in role order over the
	// collected results, so no locking is needed.
	team := &Team{Assignments: make([]Assignment, 0, len(specs))}
	assigned := make(map[string]bool)
	for i, spec := range specs {
		team.Assignments = append(team.Assignments, a.assign(spec, results[i].candidates, results[i].err, assigned))
	}
	return team, nil
}

// assign places one role given the consultants already taken by earlier
// roles. The top unassigned candidate wins; when every candidate is
// already placed elsewhere the best one is reused and flagged.
func (a *Assembler) assign(spec match.RoleSpec, candidates []match.ScoredCandidate, matchErr error, assigned map[string]bool) Assignment {
	out := Assignment{Role: spec.Title}

	if matchErr != nil {
		slog.Warn("role match failed, continuing with remaining roles",
			"role", spec.Title,
			"error", matchErr,
		)
		out.Reason = fmt.Sprintf("matching failed: %v", matchErr)
		return out
	}
	if len(candidates) == 0 {
		out.Reason = "no matching consultants found"
		return out
	}

	pick := -1
	for i, c := range candidates {
		if !assigned[c.Consultant.ID] {
			pick = i
			break
		}
	}
	if pick == -1 {
		// Pool exhausted by earlier roles: repeat the top candidate.
		pick = 0
		out.Reused = true
	}

	chosen := candidates[pick]
	out.Assigned = &chosen
	assigned[chosen.Consultant.ID] = true

	for i, c := range candidates {
		if i == pick {
			continue
		}
		out.Alternates = append(out.Alternates, c)
		if len(out.Alternates) == maxAlternates {
			break
		}
	}
	return out
}
