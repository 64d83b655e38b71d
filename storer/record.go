package storer

import "time"

type Kind string

const (
	KindUser      Kind = "user"
	KindAssistant Kind = "assistant"
	KindSystem    Kind = "system"
)

func (k Kind) Valid() bool {
	switch k {
	case KindUser, KindAssistant, KindSystem:
		return true
	}
	return false
}

type Record struct {
	Id             string
	Content        string
	Vector         []float32
	Kind           Kind
	ConversationId string
	CreatedAt      time.Time
	Metadata       map[string]any
}

type ScoredRecord struct {
	Record
	Score float32
}

// Filter narrows a search. Zero fields match everything.
type Filter struct {
	ConversationId string
	Kind           Kind
}

func (f Filter) Match(rec Record) bool {
	if len(f.ConversationId) > 0 && rec.ConversationId != f.ConversationId {
		return false
	}
	if len(f.Kind) > 0 && rec.Kind != f.Kind {
		return false
	}
	return true
}
