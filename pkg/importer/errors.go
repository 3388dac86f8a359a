package importer

import (
	"errors"
	"fmt"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

var (
	ErrDuplicateLegacyID  = errors.New("import: legacy id created twice")
	ErrUnknownTypeMapping = errors.New("import: no destination class for legacy type")
	ErrExternalStore      = errors.New("import: destination store failure")
	ErrWorldNotEmpty      = errors.New("import: destination world is not empty")
	ErrPanic              = errors.New("import: run panicked")
)

// PhaseError records where a run stopped. It matches both its Kind
// sentinel and the underlying cause with errors.Is.
type PhaseError struct {
	Phase  Phase
	Legacy gamedb.DBRef // Nothing when no single object was involved
	Kind   error
	Err    error
}

func (e *PhaseError) Error() string {
	if e.Legacy != gamedb.Nothing {
		return fmt.Sprintf("%s phase, object %s: %v: %v", e.Phase, e.Legacy, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s phase: %v: %v", e.Phase, e.Kind, e.Err)
}

func (e *PhaseError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func phaseErr(phase Phase, legacy gamedb.DBRef, kind, err error) *PhaseError {
	return &PhaseError{Phase: phase, Legacy: legacy, Kind: kind, Err: err}
}

// storeErr classifies an error returned by the store.
func storeErr(phase Phase, legacy gamedb.DBRef, err error) *PhaseError {
	kind := ErrExternalStore
	if errors.Is(err, ErrConflict) {
		kind = ErrDuplicateLegacyID
	}
	return phaseErr(phase, legacy, kind, err)
}
