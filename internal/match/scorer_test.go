package match

import (
	"strings"
	"testing"
)

func mustNormalize(t *testing.T, text string) Query {
	t.Helper()
	q, err := Normalize(text)
	if err != nil {
		t.Fatalf("Normalize(%q): %v", text, err)
	}
	return q
}

func TestScore_InBounds(t *testing.T) {
	scorer := NewScorer(Weights{})
	q := mustNormalize(t, "react developer with node.js and python and docker and kubernetes")

	consultants := []Consultant{
		{ID: "1", Name: "A", Skills: []string{"React", "Node.js", "Python", "Docker", "Kubernetes", "Go", "Rust"}, Availability: "available"},
		{ID: "2", Name: "B", Skills: []string{"Cobol"}, Availability: "unavailable"},
		{ID: "3", Name: "C", Skills: []string{"React"}, Availability: "weird-state"},
	}
	for _, c := range consultants {
		for _, sim := range []float32{-1, -0.5, 0, 0.5, 1} {
			sc := scorer.Score(q, c, sim)
			if sc.Score < 0 || sc.Score > 1 {
				t.Errorf("score %v out of [0,1] for %s sim=%v", sc.Score, c.ID, sim)
			}
			if (sc.Score > 0) != (len(sc.Reasons) > 0) {
				t.Errorf("reasons non-empty iff score > 0 violated: score=%v reasons=%v", sc.Score, sc.Reasons)
			}
		}
	}
}

func TestScore_SkillOverlapBeatsNoOverlap(t *testing.T) {
	scorer := NewScorer(Weights{})
	q := mustNormalize(t, "Need a React developer available immediately")

	withReact := scorer.Score(q, Consultant{
		ID: "1", Name: "A", Skills: []string{"React", "Node"}, Availability: "available",
	}, 0.2)
	withoutReact := scorer.Score(q, Consultant{
		ID: "2", Name: "B", Skills: []string{"Python"}, Availability: "available",
	}, 0.2)

	if withReact.Score <= withoutReact.Score {
		t.Errorf("React consultant (%v) should outrank Python consultant (%v)", withReact.Score, withoutReact.Score)
	}

	var mentionsReact bool
	for _, r := range withReact.Reasons {
		if strings.Contains(r, "React") {
			mentionsReact = true
		}
	}
	if !mentionsReact {
		t.Errorf("no reason mentions React: %v", withReact.Reasons)
	}
}

func TestScore_ExactBeatsSubstring(t *testing.T) {
	scorer := NewScorer(Weights{Semantic: 0, Skills: 1, Availability: 0})
	q := mustNormalize(t, "react")

	exact := scorer.Score(q, Consultant{ID: "1", Name: "A", Skills: []string{"React"}}, 0)
	substr := scorer.Score(q, Consultant{ID: "2", Name: "B", Skills: []string{"React Native"}}, 0)

	if exact.Score <= substr.Score {
		t.Errorf("exact match (%v) should beat substring match (%v)", exact.Score, substr.Score)
	}
	if substr.Score == 0 {
		t.Error("substring match should still contribute")
	}
}

func TestScore_SkillSumSaturates(t *testing.T) {
	scorer := NewScorer(Weights{Semantic: 0, Skills: 1, Availability: 0})

	// Six exact matches would sum to 1.5 without the cap.
	q := mustNormalize(t, "go rust python react docker kubernetes")
	sc := scorer.Score(q, Consultant{
		ID:   "1",
		Name: "A",
		Skills: []string{
			"Go", "Rust", "Python", "React", "Docker", "Kubernetes",
		},
	}, 0)

	if sc.Score > 1.0 {
		t.Errorf("skill sub-score not saturated: %v", sc.Score)
	}
	if sc.Score != 1.0 {
		t.Errorf("six exact matches should saturate to 1.0, got %v", sc.Score)
	}
}

func TestScore_AvailabilityPolicy(t *testing.T) {
	scorer := NewScorer(Weights{Semantic: 0, Skills: 0, Availability: 1})
	q := mustNormalize(t, "anything")

	tests := []struct {
		state string
		want  float64
	}{
		{"available", 1.0},
		{"Available", 1.0},
		{"busy", 0.4},
		{"unavailable", 0.0},
		{"sabbatical", 0.2},
	}
	for _, tt := range tests {
		sc := scorer.Score(q, Consultant{ID: "1", Name: "A", Skills: []string{"Go"}, Availability: tt.state}, -1)
		if sc.Score != tt.want {
			t.Errorf("availability %q: score %v, want %v", tt.state, sc.Score, tt.want)
		}
	}
}

func TestScore_UnavailablePoolScoresStrictlyLower(t *testing.T) {
	scorer := NewScorer(Weights{})
	q := mustNormalize(t, "react developer")

	pool := []Consultant{
		{ID: "1", Name: "A", Skills: []string{"React"}},
		{ID: "2", Name: "B", Skills: []string{"Vue"}},
	}
	for _, c := range pool {
		c.Availability = "available"
		availScore := scorer.Score(q, c, 0.3).Score

		c.Availability = "unavailable"
		unavail := scorer.Score(q, c, 0.3)

		if unavail.Score >= availScore {
			t.Errorf("unavailable %s scored %v, not strictly below available %v", c.ID, unavail.Score, availScore)
		}
		for _, r := range unavail.Reasons {
			if strings.HasPrefix(r, "availability:") {
				t.Errorf("unavailable consultant carries an availability boost reason: %q", r)
			}
		}
	}
}

func TestScore_SemanticMapping(t *testing.T) {
	scorer := NewScorer(Weights{Semantic: 1, Skills: 0, Availability: 0})
	q := mustNormalize(t, "anything")
	c := Consultant{ID: "1", Name: "A", Skills: []string{"Go"}}

	if got := scorer.Score(q, c, 1).Score; got != 1.0 {
		t.Errorf("cosine 1 → %v, want 1.0", got)
	}
	if got := scorer.Score(q, c, -1).Score; got != 0.0 {
		t.Errorf("cosine -1 → %v, want 0.0", got)
	}
	if got := scorer.Score(q, c, 0).Score; got != 0.5 {
		t.Errorf("cosine 0 → %v, want 0.5", got)
	}
}

func TestScore_ShortTermNoSubstringNoise(t *testing.T) {
	scorer := NewScorer(Weights{Semantic: 0, Skills: 1, Availability: 0})
	q := mustNormalize(t, "go backend")

	// "go" must not substring-match "Django" or "Google Cloud".
	sc := scorer.Score(q, Consultant{ID: "1", Name: "A", Skills: []string{"Django"}}, 0)
	for _, r := range sc.Reasons {
		if strings.Contains(r, "Django") {
			t.Errorf("short term matched by substring: %v", sc.Reasons)
		}
	}
}
