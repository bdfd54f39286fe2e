package pipeline

import (
	"fmt"
	"strings"
)

// Error kind labels carried in audit records and error responses.
const (
	KindStorageUnavailable = "StorageUnavailable"
	KindQuotaExceeded      = "QuotaExceeded"
	KindNotFound           = "NotFound"
	KindComposition        = "CompositionError"
	KindConnect            = "ConnectError"
	KindAuth               = "AuthError"
	KindSend               = "SendError"
)

// ValidationError reports one or more request constraint violations.
// A request that fails validation has caused no side effects and is not
// audited.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "pipeline: invalid request: " + strings.Join(e.Violations, "; ")
}

// Stage identifies the pipeline stage a failure occurred in.
type Stage string

const (
	StageStaging    Stage = "staging"
	StageComposing  Stage = "compose"
	StageDelivering Stage = "deliver"
)

// StageError wraps a failure that occurred after validation passed.
// Exactly one failure audit record has been written by the time a
// StageError reaches the caller.
type StageError struct {
	Stage Stage
	// Kind is one of the Kind* labels above.
	Kind string
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline: %s stage failed (%s): %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
