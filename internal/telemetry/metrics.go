// Package telemetry provides application-level observability for the
// authentication service.
//
// # Prometheus Metrics Endpoint
//
// All metrics are registered against the default Prometheus registry and are
// automatically available on the side-channel HTTP server started by main.go:
//
//	GET http(s)://<host>:<SA_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// Default port: 9090.  The endpoint returns data in the Prometheus text exposition
// format (Content-Type: text/plain; version=0.0.4) and is intended to be scraped by
// a Prometheus server every 15–60 seconds.  It is NOT served by the Gin router and
// is therefore absent from the OpenAPI/Swagger spec.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Login and registration outcome counters, split by subject kind (client vs user)
//   - Token issuance and revocation counters
//   - Verification email delivery counters
//   - Expired-credential sweep counters recorded by the background sweeper
//   - Database connection pool gauge (polled every 30 s)
//
// # Label Cardinality
//
// HTTP metrics use c.FullPath() (route template such as /api/v1/service-auth/:clientId/login)
// rather than the raw request URL to prevent unbounded label cardinality from
// user-supplied path segments such as tenant IDs or tokens.  Authentication
// outcome metrics are likewise never labelled by tenant ID or email.
//
// # Usage
//
// Import the package for side effects so metrics are registered before the HTTP server
// starts listening:
//
//	import _ "github.com/service-auth/service-auth/internal/telemetry"
//
// Or import it directly and use an exported var:
//
//	telemetry.LoginsTotal.WithLabelValues(telemetry.SubjectUser, telemetry.OutcomeSuccess).Inc()
package telemetry

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for the subject and outcome dimensions of the authentication
// counters.  Subject distinguishes tenant dashboard accounts ("client") from
// the end users inside a tenant's namespace ("user").
const (
	SubjectClient = "client"
	SubjectUser   = "user"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// HTTP metrics, labelled by method, route template, and status code.
//
// HTTPRequestsTotal is a CounterVec with labels {method, path, status}.
// The path label holds the Gin route template (e.g. /api/v1/service-auth/:clientId/login),
// NOT the raw URL, to prevent unbounded cardinality.
//
// Example PromQL queries:
//   - Request rate (req/s, 5 m window):  rate(http_requests_total[5m])
//   - Error rate (%):                    sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - Requests by route:                 sum by (path) (rate(http_requests_total[5m]))
//
// HTTPRequestDuration is a HistogramVec with labels {method, path} and exponential-ish
// buckets from 5 ms to 30 s.  Use histogram_quantile to compute latency percentiles.
//
// Example PromQL queries:
//   - p99 latency per route:             histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
//   - Average latency:                   rate(http_request_duration_seconds_sum[5m]) / rate(http_request_duration_seconds_count[5m])
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// Authentication outcome metrics, recorded by the API handlers.
//
// LoginsTotal is a CounterVec with labels {subject, outcome}.  subject is
// "client" for tenant dashboard logins and "user" for end-user logins inside a
// tenant namespace; outcome is "success" or "failure".  Failure covers both
// unknown emails and wrong passwords so the counter cannot be used as an
// account-enumeration oracle.
//
// Example PromQL queries:
//   - Failed login rate:       sum(rate(logins_total{outcome="failure"}[5m]))
//   - Failure ratio by kind:   sum by (subject) (rate(logins_total{outcome="failure"}[15m])) / sum by (subject) (rate(logins_total[15m]))
//   - Brute-force alert:       increase(logins_total{outcome="failure"}[5m]) > 100
//
// RegistrationsTotal is a CounterVec with the same labels; failure means a
// duplicate email.
var (
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total number of login attempts, by subject kind and outcome.",
		},
		[]string{"subject", "outcome"},
	)

	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_total",
			Help: "Total number of registration attempts, by subject kind and outcome.",
		},
		[]string{"subject", "outcome"},
	)
)

// Token lifecycle metrics.
//
// TokensIssuedTotal is a CounterVec with labels {subject, type} where type is
// "access" or "refresh".  One successful login increments it twice (one access
// token, one refresh token); one refresh call increments it once.
//
// TokensRevokedTotal counts explicit revocations (logout and rotation), by
// subject kind.  Sweeper deletions of expired rows are counted separately by
// SweptCredentialsTotal.
//
// Example PromQL queries:
//   - Issuance rate by type:   sum by (type) (rate(tokens_issued_total[5m]))
//   - Refresh:login ratio:     rate(tokens_issued_total{type="refresh"}[1h]) / rate(logins_total{outcome="success"}[1h])
var (
	TokensIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokens_issued_total",
			Help: "Total number of JWTs issued, by subject kind and token type.",
		},
		[]string{"subject", "type"},
	)

	TokensRevokedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokens_revoked_total",
			Help: "Total number of refresh tokens explicitly revoked, by subject kind.",
		},
		[]string{"subject"},
	)
)

// VerificationEmailsSentTotal is a plain Counter (no labels) incremented once
// per verification email successfully handed to the SMTP server.  A stalled
// counter combined with rising registrations is a useful alert signal for
// SMTP delivery failures.
//
// Example PromQL queries:
//   - Delivery rate:  rate(verification_emails_sent_total[1h])
var VerificationEmailsSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "verification_emails_sent_total",
		Help: "Total number of email verification messages successfully sent.",
	},
)

// Sweep metrics, recorded by the token sweeper background job.
//
// SweptCredentialsTotal is a CounterVec with label {kind} ("token" or
// "verification") counting expired rows deleted per sweep cycle.
//
// SweepErrorsTotal counts failed sweep cycles.  An alert on
// rate(credential_sweep_errors_total[1h]) > 0 is recommended since a stuck
// sweeper lets the token table grow without bound.
var (
	SweptCredentialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swept_credentials_total",
			Help: "Total number of expired credential rows removed by the sweeper, by kind.",
		},
		[]string{"kind"},
	)

	SweepErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "credential_sweep_errors_total",
			Help: "Total number of failed credential sweep cycles.",
		},
	)
)

// DBOpenConnections is a Gauge that tracks the number of open connections currently
// held by the sql.DB connection pool.  It is sampled every 30 seconds by
// StartDBStatsCollector rather than per-request to avoid the overhead of sql.DB.Stats().
//
// Example PromQL queries:
//   - Pool utilisation (%): db_open_connections / <SA_DATABASE_MAX_CONNECTIONS> * 100
//   - Alert on near-exhaustion: db_open_connections > 20  (for max_connections=25)
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// StartDBStatsCollector launches a background goroutine that samples sql.DB connection
// pool statistics every 30 seconds and updates the DBOpenConnections gauge.
// The goroutine exits cleanly when the database becomes unreachable (db.Ping fails),
// which happens automatically when the application shuts down and defers db.Close().
//
// Call this once, immediately after db.Connect() succeeds in main.go:
//
//	telemetry.StartDBStatsCollector(database)
func StartDBStatsCollector(db *sql.DB) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if err := db.Ping(); err != nil {
				slog.Warn("db stats collector: database unreachable, stopping collector", "error", err)
				return
			}
			DBOpenConnections.Set(float64(db.Stats().OpenConnections))
		}
	}()
}
