package orchestrator

import (
	"strings"

	"voiceagent-platform/internal/calls"
	"voiceagent-platform/internal/knowledge"
	"voiceagent-platform/internal/llm"
)

// historyWindow caps how many transcript entries are replayed to the model.
// Older entries still exist durably; they just fall out of the prompt.
const historyWindow = 10

// buildMessages assembles the model-facing window for one turn:
// system prompt (with optional grounding passages), the most recent
// transcript entries, then the customer's current utterance.
func buildMessages(systemPrompt string, passages []knowledge.Passage, history []calls.TranscriptEntry, utterance string) []llm.Message {
	system := strings.TrimSpace(systemPrompt)
	if ctx := knowledgeContext(passages); ctx != "" {
		system += "\n\n" + ctx
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: system})

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, e := range history {
		role := llm.RoleUser
		if e.Speaker == calls.SpeakerAgent {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: e.Text})
	}

	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: utterance})
	return msgs
}

// knowledgeContext renders retrieved passages into a prompt block. Empty
// retrieval yields an empty string so the system prompt stays untouched.
func knowledgeContext(passages []knowledge.Passage) string {
	if len(passages) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Use the following reference information when it is relevant:")
	for _, p := range passages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		b.WriteString("\n- ")
		b.WriteString(text)
	}
	return b.String()
}

// nextTurnNumber derives the upcoming turn number from the durable
// transcript. Turn 0 is the greeting, so the first exchange is turn 1.
func nextTurnNumber(history []calls.TranscriptEntry) int {
	max := 0
	for _, e := range history {
		if e.TurnNumber > max {
			max = e.TurnNumber
		}
	}
	return max + 1
}
