package chat

import (
	"errors"
	"fmt"
)

type State string

const (
	StateReceived       State = "RECEIVED"
	StateEmbeddingQuery State = "EMBEDDING_QUERY"
	StateRetrieving     State = "RETRIEVING"
	StateGenerating     State = "GENERATING"
	StateStreaming      State = "STREAMING"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

const (
	ApologyMessage          = "I apologize, but I encountered an error while processing your request."
	EmbeddingFailureMessage = "Failed to generate query embeddings."
)

var ErrInvalidInput = errors.New("invalid input")

// TurnError reports a turn that failed after streaming began. The
// consumer has already received a failure slice.
type TurnError struct {
	Stage State
	Err   error
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed while %s: %v", e.Stage, e.Err)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}
