package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_http_requests_total",
			Help: "Total HTTP requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workshop_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	VehiclesInWorkshop = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workshop_vehicles_open_visits",
			Help: "Number of vehicles currently inside the workshop (open visits)",
		},
	)

	StageEventsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_stage_events_total",
			Help: "Stage events accepted by the vehicle-check command",
		},
		[]string{"stage", "event_type"},
	)

	VehicleCheckRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_vehicle_check_rejections_total",
			Help: "Vehicle-check requests rejected by the transition validator",
		},
		[]string{"event_type"},
	)

	StorePopulation = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "workshop_stage_population",
			Help: "Open visits holding an unmatched Start per stage",
		},
		[]string{"stage"},
	)
)
