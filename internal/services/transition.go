package services

import (
	"fmt"

	"workshop-backend/internal/models"
)

// DecisionKind classifies what the vehicle-check command should do with
// an inbound stage event.
type DecisionKind int

const (
	// DecisionCreateVisit originates a new visit for the number.
	DecisionCreateVisit DecisionKind = iota
	// DecisionAppend appends the event to the open visit.
	DecisionAppend
	// DecisionNoOp acknowledges a duplicate request without writing
	// (a Start for a stage whose Start is already unmatched).
	DecisionNoOp
	// DecisionRejected refuses the event; Reason is user-facing.
	DecisionRejected
)

// Decision is the outcome of evaluating one (role, stageName, eventType)
// triple against a vehicle's current history.
type Decision struct {
	Kind        DecisionKind
	Reason      string
	ClosesVisit bool

	// NeedsBootstrap marks a Start on an unknown vehicle from a station
	// whose role may originate visits. The command only acts on it when
	// the caller has confirmed the "vehicle not found - add it?" prompt.
	NeedsBootstrap bool
}

// Evaluate is the transition validator: a pure function over the
// vehicle's history (nil when no open visit exists). It never touches
// the store and never mutates the vehicle.
//
// Rules:
//  1. Entry is legal only with no open visit and creates one.
//  2. Exit is legal only on an open visit and closes it.
//  3. Start is idempotent: a second Start for a stage with no Finish yet
//     is a no-op, not a new event.
//  4. Finish requires an unmatched Start for the same stage.
//  5. With no open visit, a Start from a bootstrap-allowed station may
//     originate the visit; everything else is rejected.
func Evaluate(vehicle *models.Vehicle, stageName, eventType string, bootstrapAllowed bool) Decision {
	if vehicle == nil {
		switch eventType {
		case models.EventEntry:
			return Decision{Kind: DecisionCreateVisit}
		case models.EventStart:
			if bootstrapAllowed {
				return Decision{Kind: DecisionCreateVisit, NeedsBootstrap: true}
			}
			return rejected("no open visit for this vehicle")
		case models.EventExit, models.EventFinish:
			return rejected("no open visit for this vehicle")
		}
		return rejected(fmt.Sprintf("unknown event type %q", eventType))
	}

	switch eventType {
	case models.EventEntry:
		// The open visit already began with an Entry; a second gate
		// scan for the same number is a mistake, not a new visit.
		return rejected("vehicle is already inside the workshop")

	case models.EventExit:
		if !vehicle.IsOpen() || vehicle.HasEvent(models.EventExit) {
			return rejected("visit is already closed")
		}
		return Decision{Kind: DecisionAppend, ClosesVisit: true}

	case models.EventStart:
		if vehicle.HasUnmatchedStart(stageName) {
			return Decision{Kind: DecisionNoOp, Reason: fmt.Sprintf("%s is already in progress", stageName)}
		}
		return Decision{Kind: DecisionAppend}

	case models.EventFinish:
		if !vehicle.HasUnmatchedStart(stageName) {
			return rejected(fmt.Sprintf("no matching start for %s", stageName))
		}
		return Decision{Kind: DecisionAppend}
	}

	return rejected(fmt.Sprintf("unknown event type %q", eventType))
}

func rejected(reason string) Decision {
	return Decision{Kind: DecisionRejected, Reason: reason}
}
