package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/perttin/crewmatch/internal/match"
	"github.com/perttin/crewmatch/internal/ollama"
)

// turnTimeout bounds a single generation call, separate from the overall
// request deadline.
const turnTimeout = 30 * time.Second

// Chatter is the chat-completion capability the LLM generator needs.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// LLMGenerator drives elicitation with a local LLM constrained to a JSON
// schema: every response carries the next utterance, a completion flag
// and the roles extracted so far.
type LLMGenerator struct {
	client Chatter
	model  string
}

// NewLLMGenerator creates a generator using the given client and model.
func NewLLMGenerator(client Chatter, model string) *LLMGenerator {
	return &LLMGenerator{client: client, model: model}
}

// generatedTurn mirrors the JSON the model is asked to produce.
type generatedTurn struct {
	Reply    string `json:"reply"`
	Complete bool   `json:"complete"`
	Roles    []struct {
		Title     string   `json:"title"`
		Skills    []string `json:"skills"`
		Seniority string   `json:"seniority"`
	} `json:"roles"`
}

// Generate runs one elicitation turn against the LLM. Unreachable or
// failing models surface as ErrUnavailable without any automatic retry.
func (g *LLMGenerator) Generate(ctx context.Context, history []Message) (Turn, error) {
	ctx, cancel := context.WithTimeout(ctx, turnTimeout)
	defer cancel()

	raw, err := g.client.Chat(ctx, g.model, BuildPrompt(history), turnSchema())
	if err != nil {
		return Turn{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	parsed, err := parseTurn(raw)
	if err != nil {
		// Malformed model output is not a protocol failure: treat the raw
		// text as a plain clarifying utterance and stay in gathering.
		return Turn{Utterance: strings.TrimSpace(raw)}, nil
	}

	turn := Turn{Utterance: parsed.Reply, Complete: parsed.Complete}
	for _, r := range parsed.Roles {
		turn.Roles = append(turn.Roles, match.RoleSpec{
			Title:     r.Title,
			Skills:    r.Skills,
			Seniority: r.Seniority,
		})
	}
	return turn, nil
}

// parseTurn robustly extracts the turn JSON from an LLM response. Small
// local models frequently wrap JSON in markdown code fences or prepend
// conversational filler, so the parser strips fences and cuts the
// substring between the first '{' and the last '}' before unmarshalling.
func parseTurn(resp string) (generatedTurn, error) {
	s := strings.TrimSpace(resp)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if strings.HasPrefix(s, "json") {
			s = s[4:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return generatedTurn{}, fmt.Errorf("no JSON object in response")
	}

	var turn generatedTurn
	if err := json.Unmarshal([]byte(s[start:end+1]), &turn); err != nil {
		return generatedTurn{}, fmt.Errorf("unmarshal turn: %w", err)
	}
	return turn, nil
}

// turnSchema constrains the model output to the turn structure.
func turnSchema() *ollama.Schema {
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"reply":    {Type: "string", Description: "The assistant's next message to the user"},
			"complete": {Type: "boolean", Description: "True once every needed role has title and skills"},
			"roles": {
				Type:        "array",
				Description: "Roles extracted so far",
				Items: &ollama.Schema{
					Type: "object",
					Properties: map[string]ollama.SchemaProperty{
						"title":     {Type: "string", Description: "Role title, e.g. Frontend Developer"},
						"skills":    {Type: "array", Description: "Required skills", Items: &ollama.Schema{Type: "string"}},
						"seniority": {Type: "string", Description: "Seniority hint if mentioned"},
					},
					Required: []string{"title", "skills"},
				},
			},
		},
		Required: []string{"reply", "complete", "roles"},
	}
}
