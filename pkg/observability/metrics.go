// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the altar API.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altar_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "altar_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// InFlightRequests tracks requests currently being served.
	InFlightRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "altar_requests_in_flight",
			Help: "Requests in flight",
		},
	)

	// StorageOperationsTotal counts data access decisions of the tenant
	// interception layer. mode is scoped, bypass (no tenant in context) or
	// global (model not tenant-owned).
	StorageOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altar_storage_operations_total",
			Help: "Storage operations by tenancy mode",
		},
		[]string{"model", "op", "mode"},
	)

	// TenantDenialsTotal counts operations that touched a record of another
	// tenant and were collapsed into not-found.
	TenantDenialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altar_tenant_denials_total",
			Help: "Cross-tenant accesses collapsed into not found",
		},
		[]string{"model", "op"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altar_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"role"},
	)

	// SiteHostLookupsTotal counts public site host resolutions by result
	// (hit, miss, unknown).
	SiteHostLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "altar_sitehost_lookups_total",
			Help: "Public site host resolutions",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		InFlightRequests,
		StorageOperationsTotal,
		TenantDenialsTotal,
		RateLimitRejectedTotal,
		SiteHostLookupsTotal,
	)
}
