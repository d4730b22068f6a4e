package http

import (
	"errors"
	"fmt"
)

// Setup errors. Request returns these before any network activity.
var (
	ErrUnsupportedScheme = errors.New("unsupported transport")
	ErrInvalidURI        = errors.New("invalid URI")
	ErrNilDescription    = errors.New("nil request description")
)

// Cause names why a transaction ended abnormally.
type Cause string

const (
	CauseTimeout Cause = "Timeout"
	CauseAborted Cause = "Aborted" // the peer closed the connection mid-response
	CauseAbort   Cause = "Abort"   // the caller's context was cancelled
	CauseError   Cause = "Error"
)

// Phase tells which side of the exchange an abnormal cause was observed on.
type Phase string

const (
	PhaseRequest  Phase = "request"
	PhaseResponse Phase = "response"
)

// Sentinels for errors.Is matching against Transaction.Info.Error.
var (
	ErrTimeout   = &TransportError{Cause: CauseTimeout}
	ErrAborted   = &TransportError{Cause: CauseAborted}
	ErrAbort     = &TransportError{Cause: CauseAbort}
	ErrTransport = &TransportError{Cause: CauseError}
)

// TransportError is recorded on Info.Error when a transaction ends for any
// reason other than a complete response.
type TransportError struct {
	Cause Cause
	Phase Phase
	Err   error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches any TransportError with the same cause, so
// errors.Is(tx.Info.Error, ErrTimeout) works regardless of phase.
func (e *TransportError) Is(target error) bool {
	t, ok := target.(*TransportError)
	return ok && t.Cause == e.Cause
}

func (e *TransportError) String() string {
	return fmt.Sprintf("%s (%s): %s", e.Cause, e.Phase, e.Error())
}
