package orchestrator

import "errors"

var (
	// ErrTurnInProgress rejects a turn arriving while another turn of the
	// same call is still being processed. Turns within a call are strictly
	// serialized; concurrent submissions fail fast rather than queue.
	ErrTurnInProgress = errors.New("orchestrator: turn already in progress for this call")

	// ErrEmptyUtterance rejects turn submissions with no audio payload.
	ErrEmptyUtterance = errors.New("orchestrator: empty audio payload")
)

// StageError reports a fatal provider failure at a named pipeline stage.
// Only transcription and generation failures abort a turn; knowledge and
// synthesis failures degrade instead.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return "orchestrator: " + e.Stage + " failed: " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }
