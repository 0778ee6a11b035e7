package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVehicleNumber(t *testing.T) {
	assert.Equal(t, "MH12AB1234", NormalizeVehicleNumber("  mh12ab1234 "))
	assert.Equal(t, "MH12AB1234", NormalizeVehicleNumber("MH12AB1234"))
	assert.Equal(t, "", NormalizeVehicleNumber("   "))
}

func TestValidEventType(t *testing.T) {
	for _, valid := range []string{EventEntry, EventExit, EventStart, EventFinish} {
		assert.True(t, ValidEventType(valid), valid)
	}
	assert.False(t, ValidEventType("Pause"))
	assert.False(t, ValidEventType("entry"), "event types are case-sensitive")
	assert.False(t, ValidEventType(""))
}

func TestHasUnmatchedStart(t *testing.T) {
	t0 := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	v := &Vehicle{Stages: []StageEvent{
		{StageName: StageSecurityGate, EventType: EventEntry, Timestamp: t0},
		{StageName: "Washing", EventType: EventStart, Timestamp: t0.Add(10 * time.Minute)},
	}}

	assert.True(t, v.HasUnmatchedStart("Washing"))
	assert.False(t, v.HasUnmatchedStart("Alignment"))

	v.Stages = append(v.Stages, StageEvent{
		StageName: "Washing", EventType: EventFinish, Timestamp: t0.Add(30 * time.Minute),
	})
	assert.False(t, v.HasUnmatchedStart("Washing"))

	// A restart reopens the stage.
	v.Stages = append(v.Stages, StageEvent{
		StageName: "Washing", EventType: EventStart, Timestamp: t0.Add(40 * time.Minute),
	})
	assert.True(t, v.HasUnmatchedStart("Washing"))
}

func TestIsOpenAndLastEventTime(t *testing.T) {
	v := &Vehicle{}
	assert.True(t, v.IsOpen())
	assert.True(t, v.LastEventTime().IsZero())

	t0 := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	v.Stages = []StageEvent{
		{StageName: StageSecurityGate, EventType: EventEntry, Timestamp: t0},
		{StageName: "Washing", EventType: EventStart, Timestamp: t0.Add(10 * time.Minute)},
	}
	assert.Equal(t, t0.Add(10*time.Minute), v.LastEventTime())

	exit := t0.Add(time.Hour)
	v.ExitTime = &exit
	assert.False(t, v.IsOpen())
}
