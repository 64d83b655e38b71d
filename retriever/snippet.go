package retriever

import "time"

type Snippet struct {
	Id             string         `json:"id"`
	Content        string         `json:"content"`
	Score          float32        `json:"score"`
	Kind           string         `json:"kind"`
	ConversationId string         `json:"conversation_id"`
	CreatedAt      time.Time      `json:"created_at"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}
