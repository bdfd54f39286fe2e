// Package metrics defines the Prometheus instrumentation for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API metrics
var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIAuthFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "api_auth_failures_total",
			Help: "Total number of API key authentication failures",
		},
	)
)

// Pipeline metrics
var (
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_deliveries_total",
			Help: "Total number of delivery attempts by outcome",
		},
		[]string{"outcome"}, // success, failure, rejected
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mail_delivery_duration_seconds",
			Help:    "End-to-end duration of the delivery pipeline",
			Buckets: prometheus.DefBuckets,
		},
	)

	StageFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_stage_failures_total",
			Help: "Total number of pipeline stage failures",
		},
		[]string{"stage"}, // staging, compose, deliver
	)

	AttachmentBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mail_attachment_bytes_total",
			Help: "Total attachment bytes staged in the object store",
		},
	)

	AttachmentsStagedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mail_attachments_staged_total",
			Help: "Total number of attachments staged in the object store",
		},
	)
)
