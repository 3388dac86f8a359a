package events

import (
	"github.com/google/uuid"

	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// EventType classifies import progress events.
type EventType int

const (
	EvPhaseStart  EventType = iota // A phase began
	EvPhaseDone                    // A phase processed every object
	EvAccount                      // Account created
	EvObject                       // Destination object created
	EvRelation                     // Relation wired
	EvExitRenamed                  // Exit renamed to clear a name clash
	EvRegistered                   // Object registered with live indices
	EvRunDone                      // Run finished successfully
	EvRunFailed                    // Run aborted
)

// String returns a human-readable name for the event type.
func (t EventType) String() string {
	switch t {
	case EvPhaseStart:
		return "phase_start"
	case EvPhaseDone:
		return "phase_done"
	case EvAccount:
		return "account"
	case EvObject:
		return "object"
	case EvRelation:
		return "relation"
	case EvExitRenamed:
		return "exit_renamed"
	case EvRegistered:
		return "registered"
	case EvRunDone:
		return "run_done"
	case EvRunFailed:
		return "run_failed"
	default:
		return "unknown"
	}
}

// Event is one step of an import run.
type Event struct {
	Type   EventType
	Phase  string
	Legacy gamedb.DBRef // legacy object involved (Nothing if none)
	ID     uuid.UUID    // destination id involved (zero if none)
	Text   string       // human-readable summary
	Data   map[string]any
}
