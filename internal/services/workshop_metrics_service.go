package services

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"workshop-backend/internal/cache"
	"workshop-backend/internal/models"
	"workshop-backend/internal/timeutil"
)

// WorkshopMetricsService computes the admin dashboard numbers from a
// full ledger snapshot on every query. Nothing here is stored; the
// redis cache only bounds recomputation frequency.
type WorkshopMetricsService struct {
	Store LedgerStore

	now func() time.Time
}

func NewWorkshopMetricsService(store LedgerStore) *WorkshopMetricsService {
	return &WorkshopMetricsService{Store: store, now: timeutil.Now}
}

// Summary recomputes all derived metrics from a point-in-time snapshot.
func (s *WorkshopMetricsService) Summary(ctx context.Context) (*models.WorkshopSummary, error) {
	if data, ok := cache.GetCached(ctx, cache.WorkshopSummaryKey); ok {
		var summary models.WorkshopSummary
		if err := json.Unmarshal(data, &summary); err == nil {
			return &summary, nil
		}
	}

	vehicles, err := s.Store.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	summary := s.compute(vehicles)
	if data, err := json.Marshal(summary); err == nil {
		cache.SetCached(ctx, cache.WorkshopSummaryKey, data, cache.ReadViewTTL)
	}
	return summary, nil
}

func (s *WorkshopMetricsService) compute(vehicles []*models.Vehicle) *models.WorkshopSummary {
	now := s.now()

	activeNumbers := make(map[string]struct{})
	stageCounts := make(map[string]int)
	stageTotals := make(map[string]float64)
	stageSamples := make(map[string]int)

	var cycleSumToday, cycleSumOverall float64
	var cycleCountToday, cycleCountOverall int
	throughputToday := 0

	for _, v := range vehicles {
		if v.IsOpen() {
			activeNumbers[v.VehicleNumber] = struct{}{}
		}

		for i, stage := range v.Stages {
			stageCounts[stage.StageName]++

			// Time to reach this stage from the previous event, keyed
			// by the later stage's name. This intentionally measures
			// arrival deltas, not Start-to-Finish dwell.
			if i > 0 {
				delta := stage.Timestamp.Sub(v.Stages[i-1].Timestamp).Minutes()
				stageTotals[stage.StageName] += delta
				stageSamples[stage.StageName]++
			}
		}

		firstStart, firstFinish := firstEventTimes(v)
		finished := !firstFinish.IsZero()
		if finished && timeutil.SameDay(v.EntryTime, now) {
			throughputToday++
		}
		if finished && !firstStart.IsZero() {
			cycle := firstFinish.Sub(firstStart).Minutes()
			cycleSumOverall += cycle
			cycleCountOverall++
			if timeutil.SameDay(v.EntryTime, now) {
				cycleSumToday += cycle
				cycleCountToday++
			}
		}
	}

	avgStageTimes := make(map[string]float64, len(stageTotals))
	for stage, total := range stageTotals {
		avgStageTimes[stage] = round2(total / float64(stageSamples[stage]))
	}

	return &models.WorkshopSummary{
		UniqueActiveVehicles: len(activeNumbers),
		StageCounts:          stageCounts,
		AvgStageTimes:        avgStageTimes,
		DailyThroughput:      throughputToday,
		AvgCycleTimeToday:    avgOrZero(cycleSumToday, cycleCountToday),
		AvgCycleTimeOverall:  avgOrZero(cycleSumOverall, cycleCountOverall),
		GeneratedAt:          now,
	}
}

func firstEventTimes(v *models.Vehicle) (firstStart, firstFinish time.Time) {
	for _, stage := range v.Stages {
		switch stage.EventType {
		case models.EventStart:
			if firstStart.IsZero() {
				firstStart = stage.Timestamp
			}
		case models.EventFinish:
			if firstFinish.IsZero() {
				firstFinish = stage.Timestamp
			}
		}
	}
	return firstStart, firstFinish
}

// avgOrZero yields 0 for an empty set rather than an error: the
// dashboard shows "0 min" before the first vehicle finishes.
func avgOrZero(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return round2(sum / float64(count))
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
