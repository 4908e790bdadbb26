package dialogue

import "github.com/perttin/crewmatch/internal/ollama"

const systemPrompt = `You are a staffing assistant gathering team requirements. Your output must be ONLY a single valid JSON object conforming to the provided schema. Do not include any other text, prose, or markdown.

Your goal is to identify every role the user's project needs. For each role, determine:
- a title (e.g. "Frontend Developer")
- the required skills (e.g. ["React", "TypeScript"])
- a seniority hint if the user mentions one

Rules:
- Ask one short clarifying question at a time in "reply" while information is missing.
- Record roles in "roles" as soon as they are identifiable; refine them on later turns.
- Set "complete" to true only when every role has a title and at least one skill, and the user has nothing to add.
- Never invent skills the user did not imply.`

// BuildPrompt constructs the chat messages for one elicitation turn: the
// system instruction followed by the full conversation history.
func BuildPrompt(history []Message) []ollama.Message {
	messages := make([]ollama.Message, 0, len(history)+1)
	messages = append(messages, ollama.Message{Role: "system", Content: systemPrompt})
	for _, m := range history {
		messages = append(messages, ollama.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}
