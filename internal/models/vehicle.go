package models

import (
	"strings"
	"time"
)

// Event type constants
const (
	EventEntry  = "Entry"
	EventExit   = "Exit"
	EventStart  = "Start"
	EventFinish = "Finish"
)

// Default stage and role labels used by the dashboards. stage_name and
// role remain free-form strings; these are the names the stations send.
const (
	StageSecurityGate    = "Security Gate"
	StageJobCardCreation = "Job Card Creation + Customer Approval"

	RoleSecurityGuard  = "Security Guard"
	RoleServiceAdvisor = "Service Advisor"
)

// Vehicle represents one visit of a vehicle to the workshop, from gate
// entry to gate exit. The same vehicle number may appear again on a
// later visit, but at most one visit per number is open at any time.
type Vehicle struct {
	ID            int64        `json:"id"`
	VehicleNumber string       `json:"vehicleNumber"`
	EntryTime     time.Time    `json:"entryTime"`
	ExitTime      *time.Time   `json:"exitTime"`
	Stages        []StageEvent `json:"stages"`

	// Version counts committed mutations and backs the optimistic
	// check-and-mutate in the ledger store. Not part of the wire shape.
	Version   int       `json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// StageEvent is one immutable fact about a visit reaching a stage
// milestone. Timestamps are assigned by the engine at processing time,
// never taken from the client.
type StageEvent struct {
	ID        int64     `json:"-"`
	VehicleID int64     `json:"-"`
	Seq       int       `json:"-"`
	StageName string    `json:"stageName"`
	EventType string    `json:"eventType"`
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
}

// IsOpen reports whether the visit has no recorded Exit yet.
func (v *Vehicle) IsOpen() bool {
	return v.ExitTime == nil
}

// LastEventTime returns the timestamp of the most recent stage event,
// or the zero time for an empty history.
func (v *Vehicle) LastEventTime() time.Time {
	if len(v.Stages) == 0 {
		return time.Time{}
	}
	return v.Stages[len(v.Stages)-1].Timestamp
}

// HasUnmatchedStart reports whether the visit holds a Start for the
// stage with no later Finish for that same stage.
func (v *Vehicle) HasUnmatchedStart(stageName string) bool {
	open := false
	for _, s := range v.Stages {
		if s.StageName != stageName {
			continue
		}
		switch s.EventType {
		case EventStart:
			open = true
		case EventFinish:
			open = false
		}
	}
	return open
}

// HasEvent reports whether the visit contains at least one event of the
// given type.
func (v *Vehicle) HasEvent(eventType string) bool {
	for _, s := range v.Stages {
		if s.EventType == eventType {
			return true
		}
	}
	return false
}

// NormalizeVehicleNumber trims and upper-cases a raw vehicle number.
// All lookups and stored numbers go through this.
func NormalizeVehicleNumber(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidEventType reports whether t is one of the four event types.
func ValidEventType(t string) bool {
	switch t {
	case EventEntry, EventExit, EventStart, EventFinish:
		return true
	}
	return false
}

// VehicleCheckRequest is the body of POST /api/vehicle-check, the single
// write operation every station dashboard goes through.
type VehicleCheckRequest struct {
	VehicleNumber string `json:"vehicleNumber"`
	Role          string `json:"role"`
	StageName     string `json:"stageName"`
	EventType     string `json:"eventType"`

	// ConfirmNew acknowledges the "vehicle not found - add it?" prompt
	// when a bootstrap station originates a visit with a Start event.
	ConfirmNew bool `json:"confirmNew,omitempty"`
}

// VehicleCheckResponse is the reply for vehicle-check. Transition
// rejections come back as success=false with a message, never as a
// hard HTTP failure.
type VehicleCheckResponse struct {
	Success              bool     `json:"success"`
	Message              string   `json:"message"`
	Vehicle              *Vehicle `json:"vehicle,omitempty"`
	IsNewVisit           bool     `json:"isNewVisit"`
	RequiresConfirmation bool     `json:"requiresConfirmation,omitempty"`
}

// VehicleListResponse wraps list reads the way the dashboards expect.
type VehicleListResponse struct {
	Success  bool       `json:"success"`
	Vehicles []*Vehicle `json:"vehicles"`
}

// WorkshopSummary carries the derived metrics for the admin dashboard.
// Everything here is recomputed from a ledger snapshot on each query.
type WorkshopSummary struct {
	UniqueActiveVehicles int                `json:"uniqueActiveVehicles"`
	StageCounts          map[string]int     `json:"stageCounts"`
	AvgStageTimes        map[string]float64 `json:"avgStageTimes"`
	DailyThroughput      int                `json:"dailyThroughput"`
	AvgCycleTimeToday    float64            `json:"avgCycleTimeToday"`
	AvgCycleTimeOverall  float64            `json:"avgCycleTimeOverall"`
	GeneratedAt          time.Time          `json:"generatedAt"`
}
