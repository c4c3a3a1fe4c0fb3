// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Handlers map these to HTTP status codes; callers
// decide retry behavior from them.
var (
	// ErrAuthentication covers bad or missing credentials and failed
	// webhook signatures. Never retried automatically.
	ErrAuthentication = errors.New("authentication failed")
	// ErrValidation covers malformed input the client must fix and resend.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound covers lookups for entities that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers version mismatches on conditional writes. The
	// caller must re-read and retry explicitly.
	ErrConflict = errors.New("version conflict")
	// ErrTransient covers network and store unavailability. Safe to retry
	// with backoff; all writes behind it are idempotent.
	ErrTransient = errors.New("transient failure")
)

// ErrInvalidRepoFormat is returned when a repository identity is not in
// 'owner/name' form.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

func (e *ErrInvalidRepoFormat) Unwrap() error { return ErrValidation }

// Authf wraps a formatted message with ErrAuthentication.
func Authf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrAuthentication)...)
}

// Validationf wraps a formatted message with ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// Conflictf wraps a formatted message with ErrConflict.
func Conflictf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrConflict)...)
}

// Transientf wraps a formatted message with ErrTransient.
func Transientf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrTransient)...)
}
