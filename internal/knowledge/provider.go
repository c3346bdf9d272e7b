// Package knowledge wraps the retrieval service that supplies grounding
// passages for the agent's reply. Retrieval is strictly best-effort: the
// orchestrator proceeds without passages when this stage fails.
package knowledge

import "context"

// Passage is one retrieved grounding snippet.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source,omitempty"`
	Score  float64 `json:"score,omitempty"`
}

// Retriever searches the agent's knowledge bases for passages relevant to the
// customer's utterance.
type Retriever interface {
	Retrieve(ctx context.Context, knowledgeBaseIDs []string, query string, limit int) ([]Passage, error)
}
