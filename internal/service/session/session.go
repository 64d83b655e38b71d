package session

import (
	"sync"
	"time"

	"github.com/w-h-a/lio/generator"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type Metadata struct {
	Id        string    `json:"chat_thread_id"`
	AssetId   string    `json:"asset_id"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
	Turns     int       `json:"turns"`
}

// Session is one conversation. History is append-only and each
// exchange is appended as a user/assistant pair.
type Session struct {
	id        string
	assetId   string
	provider  string
	generator generator.Generator
	createdAt time.Time
	lastUsed  time.Time
	history   []Turn
	mtx       sync.RWMutex
	turn      sync.Mutex
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) AssetId() string {
	return s.assetId
}

func (s *Session) Provider() string {
	return s.provider
}

func (s *Session) Generator() generator.Generator {
	return s.generator
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Session) History() []Turn {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	cpy := make([]Turn, len(s.history))
	copy(cpy, s.history)
	return cpy
}

func (s *Session) AppendExchange(user string, assistant string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.history = append(s.history,
		Turn{Role: RoleUser, Text: user},
		Turn{Role: RoleAssistant, Text: assistant},
	)
}

// BeginTurn blocks until no other turn of this session is in flight and
// returns the function that ends the turn.
func (s *Session) BeginTurn() func() {
	s.turn.Lock()
	return s.turn.Unlock
}

func (s *Session) Metadata() Metadata {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return Metadata{
		Id:        s.id,
		AssetId:   s.assetId,
		Provider:  s.provider,
		CreatedAt: s.createdAt,
		Turns:     len(s.history) / 2,
	}
}
