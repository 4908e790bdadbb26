package api

import (
	"encoding/json"
	"net/http"

	"github.com/perttin/crewmatch/internal/dialogue"
	"github.com/perttin/crewmatch/internal/match"
	"github.com/perttin/crewmatch/internal/team"
)

type matchRequest struct {
	Query string `json:"query"`
}

func handleMatch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req matchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		results, err := deps.Matcher.Match(r.Context(), req.Query)
		if err != nil {
			writeCoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"results": presentCandidates(results),
		})
	}
}

type matchRolesRequest struct {
	Roles []roleSpec `json:"roles"`
}

type roleSpec struct {
	Title     string   `json:"title"`
	Skills    []string `json:"skills"`
	Seniority string   `json:"seniority,omitempty"`
	Context   string   `json:"context,omitempty"`
}

func (r roleSpec) toSpec() match.RoleSpec {
	return match.RoleSpec{Title: r.Title, Skills: r.Skills, Seniority: r.Seniority, Context: r.Context}
}

func handleMatchRoles(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req matchRolesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		specs := make([]match.RoleSpec, len(req.Roles))
		for i, role := range req.Roles {
			specs[i] = role.toSpec()
		}

		assembled, err := deps.Assembler.Assemble(r.Context(), specs)
		if err != nil {
			writeCoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, presentTeam(assembled))
	}
}

// teamResponse is the wire shape of an assembled team.
type teamResponse struct {
	Assignments []assignmentResult `json:"assignments"`
}

type assignmentResult struct {
	Role       string         `json:"role"`
	Assigned   *scoredResult  `json:"assigned,omitempty"`
	Alternates []scoredResult `json:"alternates,omitempty"`
	Reused     bool           `json:"reused,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

func presentTeam(t *team.Team) teamResponse {
	resp := teamResponse{Assignments: make([]assignmentResult, len(t.Assignments))}
	for i, asg := range t.Assignments {
		out := assignmentResult{Role: asg.Role, Reused: asg.Reused, Reason: asg.Reason}
		if asg.Assigned != nil {
			presented := presentCandidate(*asg.Assigned)
			out.Assigned = &presented
		}
		if len(asg.Alternates) > 0 {
			out.Alternates = presentCandidates(asg.Alternates)
		}
		resp.Assignments[i] = out
	}
	return resp
}

// chatRequest carries one elicitation turn. The caller owns conversation
// state and replays the prior history on every turn.
type chatRequest struct {
	Message string             `json:"message"`
	History []dialogue.Message `json:"history,omitempty"`
}

type chatResponse struct {
	Role       string        `json:"role"`
	Content    string        `json:"content"`
	IsComplete bool          `json:"isComplete"`
	Roles      []roleSpec    `json:"roles,omitempty"`
	Team       *teamResponse `json:"team,omitempty"`
}

// handleChat advances the elicitation dialogue one turn. When the turn
// completes the role set, the team is assembled in the same request so
// clients get the match result without a second round trip.
func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		conv := dialogue.NewConversation()
		conv.Messages = req.History

		reply, err := deps.Dialogue.Advance(r.Context(), conv, req.Message)
		if err != nil {
			writeCoreError(w, err)
			return
		}

		resp := chatResponse{
			Role:       reply.Role,
			Content:    reply.Content,
			IsComplete: conv.Complete(),
		}
		for _, spec := range conv.Roles {
			resp.Roles = append(resp.Roles, roleSpec{
				Title:     spec.Title,
				Skills:    spec.Skills,
				Seniority: spec.Seniority,
				Context:   spec.Context,
			})
		}

		if conv.Complete() {
			assembled, err := deps.Assembler.Assemble(r.Context(), conv.Roles)
			if err != nil {
				writeCoreError(w, err)
				return
			}
			presented := presentTeam(assembled)
			resp.Team = &presented
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
