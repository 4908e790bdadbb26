package match

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Structured scoring increments. An exact (normalized) skill match is worth
// twice a substring match; the skill sub-score saturates at 1.0 so very
// long skill lists cannot run away with the ranking.
const (
	exactSkillIncrement     = 0.25
	substringSkillIncrement = 0.125
)

// minSubstringLen guards the substring tier against one- and two-letter
// terms ("c", "go") matching unrelated skills. Short terms still match via
// the exact tier.
const minSubstringLen = 3

// Weights controls the composite score mix. The three components each lie
// in [0,1], so a weight set summing to 1 keeps the composite in [0,1].
type Weights struct {
	Semantic     float64
	Skills       float64
	Availability float64
}

// DefaultWeights is the documented default mix: semantic similarity
// dominates, skill overlap refines, availability nudges.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.5, Skills: 0.35, Availability: 0.15}
}

// availabilityWeight maps an availability state to its [0,1] contribution.
// Policy (affects ranking materially, hence spelled out here):
// "available" gets full weight, "busy" 0.4, "unavailable" zero, and any
// other state a cautious 0.2.
func availabilityWeight(state string) float64 {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "available":
		return 1.0
	case "busy":
		return 0.4
	case "unavailable":
		return 0.0
	default:
		return 0.2
	}
}

// Scorer computes composite match scores for (query, consultant) pairs.
// Scoring is pure and side-effect free, so a single Scorer may be shared
// across concurrent goroutines.
type Scorer struct {
	weights Weights
}

// NewScorer creates a Scorer with the given weights. A zero Weights value
// falls back to DefaultWeights.
func NewScorer(w Weights) *Scorer {
	if w.Semantic == 0 && w.Skills == 0 && w.Availability == 0 {
		w = DefaultWeights()
	}
	return &Scorer{weights: w}
}

// Score combines semantic similarity, skill overlap and availability into
// a composite score in [0,1]. similarity is the raw cosine similarity from
// the profile store (in [-1,1]); it is mapped to [0,1] before weighting.
// Every component that raises the score contributes a human-readable
// reason; a zero score carries no reasons.
func (s *Scorer) Score(q Query, c Consultant, similarity float32) ScoredCandidate {
	var reasons []string
	var score float64

	semantic := clamp01((float64(similarity) + 1) / 2)
	if sem := s.weights.Semantic * semantic; sem > 0 {
		score += sem
		reasons = append(reasons, fmt.Sprintf("semantic similarity: %.2f", semantic))
	}

	skillScore, skillReasons := scoreSkills(q.skillTerms(), c.Skills)
	if sk := s.weights.Skills * skillScore; sk > 0 {
		score += sk
		reasons = append(reasons, skillReasons...)
	}

	if avail := s.weights.Availability * availabilityWeight(c.Availability); avail > 0 {
		score += avail
		reasons = append(reasons, "availability: "+strings.ToLower(strings.TrimSpace(c.Availability)))
	}

	return ScoredCandidate{
		Consultant: c,
		Score:      clamp01(score),
		Reasons:    reasons,
	}
}

// scoreSkills accumulates the structured skill sub-score via saturating
// sum: exact normalized matches score exactSkillIncrement, substring
// matches half that, capped at 1.0. Each matched term yields one reason
// naming the consultant's skill as written on the profile.
func scoreSkills(terms []string, skills []string) (float64, []string) {
	var score float64
	var reasons []string

	for _, term := range terms {
		normTerm := NormalizeSkill(term)
		if normTerm == "" {
			continue
		}
		matched, exact := matchSkill(normTerm, skills)
		if matched == "" {
			continue
		}
		if exact {
			score += exactSkillIncrement
		} else {
			score += substringSkillIncrement
		}
		reasons = append(reasons, "skill match: "+matched)
	}

	if score > 1.0 {
		score = 1.0
	}
	return score, reasons
}

// matchSkill finds the best match for a normalized term in the skill set.
// Exact matches win over substring matches; within a tier the first skill
// in profile order wins, keeping results deterministic.
func matchSkill(normTerm string, skills []string) (matched string, exact bool) {
	var substring string
	for _, skill := range skills {
		normSkill := NormalizeSkill(skill)
		if normSkill == "" {
			continue
		}
		if normSkill == normTerm {
			return skill, true
		}
		if substring == "" &&
			utf8.RuneCountInString(normTerm) >= minSubstringLen &&
			utf8.RuneCountInString(normSkill) >= minSubstringLen &&
			(strings.Contains(normSkill, normTerm) || strings.Contains(normTerm, normSkill)) {
			substring = skill
		}
	}
	return substring, false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
