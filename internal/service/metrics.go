package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trip_search_requests_total",
		Help: "Trip searches by mode",
	}, []string{"mode"})
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trip_search_duration_seconds",
		Help:    "Time taken to answer a trip search",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"mode"})
	bookingOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_create_total",
		Help: "Booking create attempts by outcome",
	}, []string{"outcome"})
	bookingTxRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_tx_retries_total",
		Help: "Booking transactions retried after a deadlock or lock wait timeout",
	})
	bookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_transitions_total",
		Help: "Booking status changes",
	}, []string{"status"})
)
