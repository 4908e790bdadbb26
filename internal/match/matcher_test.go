package match

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// mockSource implements CandidateSource for testing.
type mockSource struct {
	searchFn func(ctx context.Context, queryText string, limit int) ([]Candidate, error)
	calls    int
}

func (m *mockSource) SearchSimilar(ctx context.Context, queryText string, limit int) ([]Candidate, error) {
	m.calls++
	return m.searchFn(ctx, queryText, limit)
}

func TestMatch_ReactScenario(t *testing.T) {
	source := &mockSource{
		searchFn: func(_ context.Context, _ string, _ int) ([]Candidate, error) {
			return []Candidate{
				{Consultant: Consultant{ID: "1", Name: "Ann", Skills: []string{"React", "Node"}, Availability: "available"}, Similarity: 0.3},
				{Consultant: Consultant{ID: "2", Name: "Ben", Skills: []string{"Python"}, Availability: "available"}, Similarity: 0.3},
			}, nil
		},
	}
	m := NewMatcher(source, NewScorer(Weights{}), 10, 0)

	ranked, err := m.Match(context.Background(), "Need a React developer available immediately")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}
	if ranked[0].Consultant.ID != "1" {
		t.Errorf("React consultant should rank first, got %s", ranked[0].Consultant.ID)
	}

	var mentionsReact bool
	for _, r := range ranked[0].Reasons {
		if r == "skill match: React" {
			mentionsReact = true
		}
	}
	if !mentionsReact {
		t.Errorf("top result reasons missing React mention: %v", ranked[0].Reasons)
	}
}

func TestMatch_SingleBatchedSearchCall(t *testing.T) {
	source := &mockSource{
		searchFn: func(_ context.Context, _ string, limit int) ([]Candidate, error) {
			if limit <= 0 {
				t.Errorf("non-positive pool limit %d", limit)
			}
			var out []Candidate
			for i := 0; i < 40; i++ {
				out = append(out, Candidate{
					Consultant: Consultant{ID: fmt.Sprintf("c%d", i), Name: "x", Skills: []string{"Go"}, Availability: "available"},
					Similarity: float32(i) / 40,
				})
			}
			return out, nil
		},
	}
	m := NewMatcher(source, NewScorer(Weights{}), 5, 0)

	ranked, err := m.Match(context.Background(), "go backend service")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if source.calls != 1 {
		t.Errorf("similarity search issued %d times, want 1 batched call", source.calls)
	}
	if len(ranked) != 5 {
		t.Errorf("got %d results, want topK=5", len(ranked))
	}
}

func TestMatch_InvalidQueryRejectedBeforeSearch(t *testing.T) {
	source := &mockSource{
		searchFn: func(_ context.Context, _ string, _ int) ([]Candidate, error) {
			t.Fatal("search must not run for an invalid query")
			return nil, nil
		},
	}
	m := NewMatcher(source, NewScorer(Weights{}), 10, 0)

	if _, err := m.Match(context.Background(), "   "); !errors.Is(err, ErrInvalidQuery) {
		t.Errorf("got %v, want ErrInvalidQuery", err)
	}
}

func TestMatch_UpstreamTimeoutPropagates(t *testing.T) {
	source := &mockSource{
		searchFn: func(_ context.Context, _ string, _ int) ([]Candidate, error) {
			return nil, fmt.Errorf("searching consultants: %w", ErrUpstreamTimeout)
		},
	}
	m := NewMatcher(source, NewScorer(Weights{}), 10, 0)

	ranked, err := m.Match(context.Background(), "react developer")
	if !errors.Is(err, ErrUpstreamTimeout) {
		t.Errorf("got %v, want ErrUpstreamTimeout", err)
	}
	if ranked != nil {
		t.Errorf("partial ranking returned alongside timeout: %v", ranked)
	}
}

func TestMatch_EmptyPoolIsNotAnError(t *testing.T) {
	source := &mockSource{
		searchFn: func(_ context.Context, _ string, _ int) ([]Candidate, error) {
			return nil, nil
		},
	}
	m := NewMatcher(source, NewScorer(Weights{}), 10, 0)

	ranked, err := m.Match(context.Background(), "react developer")
	if err != nil {
		t.Fatalf("empty pool must not fail: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("got %v, want empty", ranked)
	}
}

func TestMatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	source := &mockSource{
		searchFn: func(_ context.Context, _ string, _ int) ([]Candidate, error) {
			cancel() // client disconnects mid-request
			return []Candidate{
				{Consultant: Consultant{ID: "1", Name: "Ann", Skills: []string{"Go"}, Availability: "available"}, Similarity: 0.9},
			}, nil
		},
	}
	m := NewMatcher(source, NewScorer(Weights{}), 10, 0)

	ranked, err := m.Match(ctx, "go developer")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
	if ranked != nil {
		t.Errorf("partial results returned after cancellation: %v", ranked)
	}
}

func TestMatchRole_UsesRequiredSkills(t *testing.T) {
	source := &mockSource{
		searchFn: func(_ context.Context, _ string, _ int) ([]Candidate, error) {
			return []Candidate{
				{Consultant: Consultant{ID: "1", Name: "Ann", Skills: []string{"React", "TypeScript"}, Availability: "available"}, Similarity: 0},
				{Consultant: Consultant{ID: "2", Name: "Ben", Skills: []string{"FastAPI"}, Availability: "available"}, Similarity: 0},
			}, nil
		},
	}
	m := NewMatcher(source, NewScorer(Weights{}), 10, 0)

	ranked, err := m.MatchRole(context.Background(), RoleSpec{
		Title:  "Frontend Developer",
		Skills: []string{"React", "TypeScript"},
	})
	if err != nil {
		t.Fatalf("MatchRole: %v", err)
	}
	if ranked[0].Consultant.ID != "1" {
		t.Errorf("frontend consultant should rank first, got %s", ranked[0].Consultant.ID)
	}
}
