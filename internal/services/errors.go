package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotIdle           = errors.New("session is not idle")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNoSavedAnalysis   = errors.New("no saved analysis")
	ErrNoRecord          = errors.New("no analysis record")
	ErrSessionNotFound   = errors.New("session not found")

	ErrUnsupportedType = errors.New("unsupported file type")
	ErrTooLarge        = errors.New("file too large")
	ErrReadFailure     = errors.New("file read failure")

	errNoIndexMatch = errors.New("role index returned no catalog role")
)

// GenericAnalysisMessage is shown when a failed analysis carries no message.
const GenericAnalysisMessage = "An unexpected error occurred."

// ValidationError rejects a file before any analysis starts. errors.Is
// matches it against its Kind sentinel.
type ValidationError struct {
	Kind    error
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == e.Kind
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a failed save or load of the stored analysis.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s failed: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// AnalysisError is a failure of the analysis engine. Message is the text
// shown to the user.
type AnalysisError struct {
	Stage   string
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}
