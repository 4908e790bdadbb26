// Package dialogue implements the multi-turn role elicitation protocol:
// a turn-based state machine that extracts structured role specifications
// from free-form chat. Natural-language understanding is delegated
// entirely to a Generator (an LLM behind a narrow contract); the dialogue
// only enforces the completeness invariant on what comes back.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/perttin/crewmatch/internal/match"
)

// ErrUnavailable is returned when the language-generation capability is
// unreachable. The dialogue stays in its current state; the caller may
// retry the turn. Turns are never retried automatically — a generation
// call is not idempotent.
var ErrUnavailable = errors.New("language model unavailable")

// State of a conversation. There is no terminal failure state: generator
// errors surface to the caller without a transition.
type State string

const (
	// StateGathering is the default state: the dialogue is still
	// collecting role requirements.
	StateGathering State = "gathering"
	// StateComplete is terminal: at least one well-formed role spec has
	// been produced and no more clarification is needed.
	StateComplete State = "complete"
)

// Message is one turn of the conversation.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Conversation is the explicit per-conversation state, passed by the
// caller on every turn. No process-wide session table exists, so
// independent conversations are fully isolated. History grows
// monotonically; there is no rollback.
type Conversation struct {
	Messages []Message
	Roles    []match.RoleSpec
	State    State
}

// NewConversation returns an empty conversation in the gathering state.
func NewConversation() *Conversation {
	return &Conversation{State: StateGathering}
}

// Complete reports whether the dialogue has produced its role set.
func (c *Conversation) Complete() bool {
	return c.State == StateComplete
}

// Turn is the generator's proposal for one assistant turn: an utterance,
// optionally accompanied by extracted role specs and a completion signal.
type Turn struct {
	Utterance string
	Roles     []match.RoleSpec
	Complete  bool
}

// Generator proposes the assistant's next utterance and, when warranted,
// a role extraction. Backed by an LLM in production and by deterministic
// stubs in tests.
type Generator interface {
	Generate(ctx context.Context, history []Message) (Turn, error)
}

// Dialogue advances conversations through the elicitation protocol.
type Dialogue struct {
	generator Generator
}

// New creates a Dialogue over the given generator.
func New(g Generator) *Dialogue {
	return &Dialogue{generator: g}
}

// Advance processes one user turn: the message is appended to history,
// the generator proposes a response, and the dialogue either stays in
// gathering (clarifying question) or transitions to complete. A
// completion signal carrying no well-formed role spec is rejected — the
// incomplete extraction is discarded and a follow-up is asked instead,
// so the completeness invariant (non-empty title, at least one skill)
// holds on every accepted transition.
func (d *Dialogue) Advance(ctx context.Context, conv *Conversation, userMessage string) (Message, error) {
	if conv.Complete() {
		return Message{}, fmt.Errorf("conversation already complete")
	}
	if strings.TrimSpace(userMessage) == "" {
		return Message{}, fmt.Errorf("%w: empty message", match.ErrInvalidQuery)
	}

	conv.Messages = append(conv.Messages, Message{Role: "user", Content: userMessage})

	turn, err := d.generator.Generate(ctx, conv.Messages)
	if err != nil {
		// History keeps the user turn; the caller may retry explicitly.
		return Message{}, fmt.Errorf("generating turn: %w", err)
	}

	reply := Message{Role: "assistant", Content: turn.Utterance}

	if turn.Complete {
		roles := wellFormed(turn.Roles)
		if len(roles) == 0 {
			slog.Warn("rejecting completion signal without well-formed roles",
				"proposed", len(turn.Roles),
			)
			if reply.Content == "" {
				reply.Content = "Could you tell me which roles you need and the key skills for each?"
			}
			conv.Messages = append(conv.Messages, reply)
			return reply, nil
		}
		conv.Roles = roles
		conv.State = StateComplete
	}

	conv.Messages = append(conv.Messages, reply)
	return reply, nil
}

// wellFormed filters an extraction down to specs satisfying the
// completeness invariant, dropping blank skill entries along the way.
func wellFormed(specs []match.RoleSpec) []match.RoleSpec {
	out := make([]match.RoleSpec, 0, len(specs))
	for _, spec := range specs {
		spec.Title = strings.TrimSpace(spec.Title)
		skills := make([]string, 0, len(spec.Skills))
		for _, s := range spec.Skills {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}
		spec.Skills = skills
		if spec.Complete() {
			out = append(out, spec)
		}
	}
	return out
}
