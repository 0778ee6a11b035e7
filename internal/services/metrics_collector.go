package services

import (
	"context"
	"log"
	"sync"
	"time"

	"workshop-backend/internal/metrics"
	"workshop-backend/internal/models"
)

// MetricsCollector refreshes the prometheus workshop gauges from the
// ledger on a fixed interval so /metrics stays cheap to scrape.
type MetricsCollector struct {
	store    LedgerStore
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewMetricsCollector(store LedgerStore, interval time.Duration) *MetricsCollector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &MetricsCollector{
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Start launches the collection loop in the background.
func (c *MetricsCollector) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopChan:
				return
			}
		}
	}()
}

// Stop terminates the collection loop and waits for it to exit.
func (c *MetricsCollector) Stop() {
	close(c.stopChan)
	c.wg.Wait()
}

func (c *MetricsCollector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	open, err := c.store.ListOpen(ctx)
	if err != nil {
		log.Printf("[Metrics] collection failed: %v", err)
		return
	}

	metrics.VehiclesInWorkshop.Set(float64(len(open)))

	population := make(map[string]int)
	for _, v := range open {
		seen := make(map[string]bool)
		for _, stage := range v.Stages {
			if stage.EventType != models.EventStart || seen[stage.StageName] {
				continue
			}
			seen[stage.StageName] = true
			if v.HasUnmatchedStart(stage.StageName) {
				population[stage.StageName]++
			}
		}
	}

	metrics.StorePopulation.Reset()
	for stage, count := range population {
		metrics.StorePopulation.WithLabelValues(stage).Set(float64(count))
	}
}
