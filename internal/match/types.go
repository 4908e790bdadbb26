package match

import "strings"

// Consultant is a candidate profile. Records are created by ingestion and
// are read-only to the matching pipeline.
type Consultant struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email,omitempty"`
	Skills       []string `json:"skills"`
	Availability string   `json:"availability"`
	Experience   string   `json:"experience,omitempty"`
	Education    string   `json:"education,omitempty"`
	ResumeRef    string   `json:"resumeRef,omitempty"`
}

// ProfileText returns the text representation of a consultant used for
// embedding and semantic similarity: skills plus free-text background.
func (c Consultant) ProfileText() string {
	parts := make([]string, 0, 4)
	if len(c.Skills) > 0 {
		parts = append(parts, strings.Join(c.Skills, ", "))
	}
	if c.Experience != "" {
		parts = append(parts, c.Experience)
	}
	if c.Education != "" {
		parts = append(parts, c.Education)
	}
	return strings.Join(parts, "\n")
}

// Validate checks that a consultant record loaded from an external store
// has the minimum shape the pipeline relies on. A failing record becomes
// an IntegrityError at the store boundary, never a crash mid-batch.
func (c Consultant) Validate() error {
	if c.ID == "" {
		return &IntegrityError{ID: c.ID, Reason: "missing id"}
	}
	if c.Name == "" {
		return &IntegrityError{ID: c.ID, Reason: "missing name"}
	}
	if len(c.Skills) == 0 {
		return &IntegrityError{ID: c.ID, Reason: "empty skill set"}
	}
	return nil
}

// RoleSpec is a structured role requirement extracted from conversation.
type RoleSpec struct {
	Title     string   `json:"title"`
	Skills    []string `json:"skills"`
	Seniority string   `json:"seniority,omitempty"`
	Context   string   `json:"context,omitempty"`
}

// Complete reports whether the spec carries enough information to be
// matched: a non-empty title and at least one required skill.
func (r RoleSpec) Complete() bool {
	if strings.TrimSpace(r.Title) == "" {
		return false
	}
	for _, s := range r.Skills {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}

// QueryText renders the role spec as free text for semantic search.
func (r RoleSpec) QueryText() string {
	parts := []string{r.Title}
	if r.Seniority != "" {
		parts = append(parts, r.Seniority)
	}
	if len(r.Skills) > 0 {
		parts = append(parts, strings.Join(r.Skills, ", "))
	}
	if r.Context != "" {
		parts = append(parts, r.Context)
	}
	return strings.Join(parts, ". ")
}

// Candidate is a consultant returned by the profile store together with
// its raw cosine similarity to the query text.
type Candidate struct {
	Consultant Consultant
	Similarity float32
}

// ScoredCandidate pairs a consultant with its composite match score and
// the reasons that produced it. Every component that raised the score
// appears in Reasons.
type ScoredCandidate struct {
	Consultant Consultant `json:"consultant"`
	Score      float64    `json:"score"`
	Reasons    []string   `json:"reasons"`
}
