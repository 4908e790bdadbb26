// Package api exposes the matching engine over HTTP and MCP. The HTTP
// surface is a small JSON API; the MCP server mirrors the same
// operations as tools for agent clients.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/perttin/crewmatch/internal/dialogue"
	"github.com/perttin/crewmatch/internal/match"
	"github.com/perttin/crewmatch/internal/store"
	"github.com/perttin/crewmatch/internal/team"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Matcher is the single-query pipeline the API fans requests into.
type Matcher interface {
	Match(ctx context.Context, text string) ([]match.ScoredCandidate, error)
	MatchRole(ctx context.Context, spec match.RoleSpec) ([]match.ScoredCandidate, error)
}

// Assembler builds teams from elicited role specs.
type Assembler interface {
	Assemble(ctx context.Context, specs []match.RoleSpec) (*team.Team, error)
}

// Advancer runs one elicitation turn.
type Advancer interface {
	Advance(ctx context.Context, conv *dialogue.Conversation, userMessage string) (dialogue.Message, error)
}

// Deps holds everything the handlers need. Token guards mutating
// endpoints; when empty, writes are open (local single-user setups).
type Deps struct {
	Store     store.ProfileStore
	Matcher   Matcher
	Assembler Assembler
	Dialogue  Advancer
	Token     string
}

// NewHandler builds the full HTTP routing table.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/api/overview", handleOverview(deps))
	r.Get("/api/consultants", handleListConsultants(deps))
	r.Post("/api/consultants/match", handleMatch(deps))
	r.Post("/api/consultants/match-roles", handleMatchRoles(deps))
	r.Post("/api/chat", handleChat(deps))

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		}
		r.Post("/api/consultants", handleCreateConsultant(deps))
		r.Post("/api/consultants/{id}/resume", handleUploadResume(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// scoredResult is the wire shape of one match: scores are presented on a
// 0..100 scale.
type scoredResult struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email,omitempty"`
	Skills     []string `json:"skills"`
	Avail      string   `json:"availability"`
	MatchScore int      `json:"matchScore"`
	Reasons    []string `json:"reasons"`
}

func presentCandidate(c match.ScoredCandidate) scoredResult {
	return scoredResult{
		ID:         c.Consultant.ID,
		Name:       c.Consultant.Name,
		Email:      c.Consultant.Email,
		Skills:     c.Consultant.Skills,
		Avail:      c.Consultant.Availability,
		MatchScore: int(math.Round(c.Score * 100)),
		Reasons:    c.Reasons,
	}
}

func presentCandidates(candidates []match.ScoredCandidate) []scoredResult {
	out := make([]scoredResult, len(candidates))
	for i, c := range candidates {
		out[i] = presentCandidate(c)
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

// writeCoreError maps the engine's error taxonomy onto HTTP statuses.
func writeCoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, match.ErrInvalidQuery):
		httpError(w, http.StatusUnprocessableEntity, "invalid_request_error", "%v", err)
	case errors.Is(err, match.ErrUpstreamTimeout):
		httpError(w, http.StatusGatewayTimeout, "upstream_timeout", "%v", err)
	case errors.Is(err, match.ErrUpstreamUnavailable), errors.Is(err, dialogue.ErrUnavailable):
		httpError(w, http.StatusServiceUnavailable, "upstream_unavailable", "%v", err)
	case errors.Is(err, store.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}
