package dialogue

import (
	"context"
	"errors"
	"testing"

	"github.com/perttin/crewmatch/internal/match"
)

// mockGenerator implements Generator for testing.
type mockGenerator struct {
	generateFn func(ctx context.Context, history []Message) (Turn, error)
}

func (m *mockGenerator) Generate(ctx context.Context, history []Message) (Turn, error) {
	return m.generateFn(ctx, history)
}

func TestAdvance_ClarifyingQuestionStaysGathering(t *testing.T) {
	d := New(&mockGenerator{
		generateFn: func(_ context.Context, _ []Message) (Turn, error) {
			return Turn{Utterance: "Which skills should the developer have?"}, nil
		},
	})
	conv := NewConversation()

	reply, err := d.Advance(context.Background(), conv, "I need a web app team")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if conv.State != StateGathering {
		t.Errorf("state = %s, want gathering", conv.State)
	}
	if reply.Role != "assistant" || reply.Content == "" {
		t.Errorf("unexpected reply: %+v", reply)
	}
	if len(conv.Messages) != 2 {
		t.Errorf("history has %d messages, want 2", len(conv.Messages))
	}
}

func TestAdvance_CompletesWithWellFormedRoles(t *testing.T) {
	d := New(&mockGenerator{
		generateFn: func(_ context.Context, _ []Message) (Turn, error) {
			return Turn{
				Utterance: "Got it, matching now.",
				Complete:  true,
				Roles: []match.RoleSpec{
					{Title: "Frontend Developer", Skills: []string{"React", "TypeScript"}},
					{Title: "Backend Developer", Skills: []string{"Go"}},
				},
			}, nil
		},
	})
	conv := NewConversation()

	if _, err := d.Advance(context.Background(), conv, "Frontend with React/TS, backend with Go"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !conv.Complete() {
		t.Fatal("conversation should be complete")
	}
	if len(conv.Roles) != 2 {
		t.Fatalf("got %d roles, want 2", len(conv.Roles))
	}
	for _, r := range conv.Roles {
		if r.Title == "" || len(r.Skills) == 0 {
			t.Errorf("accepted malformed role: %+v", r)
		}
	}
}

func TestAdvance_RejectsIncompleteExtraction(t *testing.T) {
	tests := []struct {
		name  string
		roles []match.RoleSpec
	}{
		{"no roles at all", nil},
		{"missing title", []match.RoleSpec{{Skills: []string{"React"}}}},
		{"zero skills", []match.RoleSpec{{Title: "Frontend Developer"}}},
		{"blank skill entries", []match.RoleSpec{{Title: "Dev", Skills: []string{"", "  "}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(&mockGenerator{
				generateFn: func(_ context.Context, _ []Message) (Turn, error) {
					return Turn{Utterance: "", Complete: true, Roles: tt.roles}, nil
				},
			})
			conv := NewConversation()

			reply, err := d.Advance(context.Background(), conv, "hire someone")
			if err != nil {
				t.Fatalf("Advance: %v", err)
			}
			if conv.Complete() {
				t.Error("dialogue completed with malformed extraction")
			}
			if len(conv.Roles) != 0 {
				t.Errorf("malformed roles retained: %v", conv.Roles)
			}
			if reply.Content == "" {
				t.Error("rejection should ask a follow-up question")
			}
		})
	}
}

func TestAdvance_PartiallyWellFormedExtraction(t *testing.T) {
	d := New(&mockGenerator{
		generateFn: func(_ context.Context, _ []Message) (Turn, error) {
			return Turn{
				Utterance: "done",
				Complete:  true,
				Roles: []match.RoleSpec{
					{Title: "Frontend Developer", Skills: []string{"React"}},
					{Title: "", Skills: []string{"Go"}}, // malformed, dropped
				},
			}, nil
		},
	})
	conv := NewConversation()

	if _, err := d.Advance(context.Background(), conv, "two roles"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !conv.Complete() {
		t.Fatal("well-formed subset should complete the dialogue")
	}
	if len(conv.Roles) != 1 || conv.Roles[0].Title != "Frontend Developer" {
		t.Errorf("roles = %v", conv.Roles)
	}
}

func TestAdvance_GeneratorErrorKeepsState(t *testing.T) {
	d := New(&mockGenerator{
		generateFn: func(_ context.Context, _ []Message) (Turn, error) {
			return Turn{}, ErrUnavailable
		},
	})
	conv := NewConversation()

	_, err := d.Advance(context.Background(), conv, "hello")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
	if conv.State != StateGathering {
		t.Errorf("state changed on generator failure: %s", conv.State)
	}
}

func TestAdvance_EmptyUserMessage(t *testing.T) {
	d := New(&mockGenerator{
		generateFn: func(_ context.Context, _ []Message) (Turn, error) {
			t.Fatal("generator must not run for an empty message")
			return Turn{}, nil
		},
	})
	if _, err := d.Advance(context.Background(), NewConversation(), "  "); !errors.Is(err, match.ErrInvalidQuery) {
		t.Errorf("got %v, want ErrInvalidQuery", err)
	}
}

func TestAdvance_CompletedConversationRefusesTurns(t *testing.T) {
	d := New(&mockGenerator{
		generateFn: func(_ context.Context, _ []Message) (Turn, error) {
			return Turn{Complete: true, Roles: []match.RoleSpec{{Title: "Dev", Skills: []string{"Go"}}}}, nil
		},
	})
	conv := NewConversation()
	if _, err := d.Advance(context.Background(), conv, "one go dev"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := d.Advance(context.Background(), conv, "another"); err == nil {
		t.Error("completed conversation accepted a turn")
	}
}

func TestAdvance_HistoryGrowsMonotonically(t *testing.T) {
	var seen int
	d := New(&mockGenerator{
		generateFn: func(_ context.Context, history []Message) (Turn, error) {
			if len(history) <= seen {
				t.Errorf("history shrank: %d -> %d", seen, len(history))
			}
			seen = len(history)
			return Turn{Utterance: "and?"}, nil
		},
	})
	conv := NewConversation()
	for _, msg := range []string{"a team", "react frontend", "go backend"} {
		if _, err := d.Advance(context.Background(), conv, msg); err != nil {
			t.Fatalf("Advance(%q): %v", msg, err)
		}
	}
	if len(conv.Messages) != 6 {
		t.Errorf("history has %d messages, want 6", len(conv.Messages))
	}
}
