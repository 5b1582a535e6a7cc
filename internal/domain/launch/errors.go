package launch

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrValidation      = errors.New("launch: validation failed")
	ErrCredential      = errors.New("launch: credential decode failed")
	ErrLedger          = errors.New("launch: ledger operation failed")
	ErrSessionNotFound = errors.New("launch: session not found")
	ErrSessionMismatch = errors.New("launch: signed transaction does not match session")
	ErrMintNotFound    = errors.New("launch: mint account not found")
	ErrNotConfigured   = errors.New("launch: not configured")
	ErrRecordNotFound  = errors.New("launch: record not found")
)

// ValidationError reports bad input shape, length or address. Nothing has
// touched the ledger or the pinning backend when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("launch: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// CredentialDecodeError is returned when the issuer secret is neither a valid
// JSON byte array nor a valid base-58 string.
type CredentialDecodeError struct {
	Format string
	Reason string
}

func (e *CredentialDecodeError) Error() string {
	if e.Format == "" {
		return "launch: credential decode: " + e.Reason
	}
	return fmt.Sprintf("launch: credential decode (%s): %s", e.Format, e.Reason)
}

func (e *CredentialDecodeError) Is(target error) bool { return target == ErrCredential }

// MetadataPublishError is logged by the publisher and never surfaced; the
// publisher degrades to the inline locator instead.
type MetadataPublishError struct {
	Backend string
	Op      string
	Err     error
}

func (e *MetadataPublishError) Error() string {
	return fmt.Sprintf("metadata publish %s/%s: %v", e.Backend, e.Op, e.Err)
}

func (e *MetadataPublishError) Unwrap() error { return e.Err }

// LedgerError is a submission or confirmation failure. It is fatal to the run
// and names the step that failed.
type LedgerError struct {
	Step Step
	Op   string
	Err  error
}

func NewLedgerError(step Step, op string, err error) *LedgerError {
	return &LedgerError{Step: step, Op: op, Err: err}
}

func (e *LedgerError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("launch: ledger %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("launch: ledger %s at %s: %v", e.Op, e.Step, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

func (e *LedgerError) Is(target error) bool { return target == ErrLedger }

// WithStep returns a copy of e attributed to step, keeping Op and Err.
// Gateways do not know the pipeline step; the orchestrator fills it in.
func (e *LedgerError) WithStep(step Step) *LedgerError {
	cp := *e
	cp.Step = step
	return &cp
}

// AsLedgerError attributes err to step. Non-ledger errors are wrapped as a
// LedgerError with the given op.
func AsLedgerError(step Step, op string, err error) *LedgerError {
	if err == nil {
		return nil
	}
	var le *LedgerError
	if errors.As(err, &le) {
		return le.WithStep(step)
	}
	return NewLedgerError(step, op, err)
}

// FailedStep extracts the failed pipeline step from err, if any.
func FailedStep(err error) Step {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Step
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return StepValidate
	}
	return ""
}
