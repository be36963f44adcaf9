// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by services, middleware and workers
type Recorder interface {
	RecordSignup()
	RecordVerification()
	RecordLogin(success bool)
	RecordPairing()
	RecordMood()
	RecordAnswer()
	RecordMemory()
	RecordAccountDeleted()
	RecordUnverifiedPurged(count int64)
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// Collector is the Prometheus implementation of Recorder
type Collector struct {
	signups         prometheus.Counter
	verifications   prometheus.Counter
	logins          *prometheus.CounterVec
	pairings        prometheus.Counter
	moods           prometheus.Counter
	answers         prometheus.Counter
	memories        prometheus.Counter
	accountsDeleted prometheus.Counter
	purged          prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpLatency     *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closer_signups_total",
			Help: "Accounts registered",
		}),
		verifications: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closer_email_verifications_total",
			Help: "Email addresses verified",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "closer_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		pairings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closer_pairings_total",
			Help: "Couples formed by invite code redemption",
		}),
		moods: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closer_moods_set_total",
			Help: "Mood writes",
		}),
		answers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closer_answers_submitted_total",
			Help: "Answer writes",
		}),
		memories: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closer_memories_posted_total",
			Help: "Memories posted",
		}),
		accountsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closer_accounts_deleted_total",
			Help: "Accounts deleted",
		}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "closer_unverified_purged_total",
			Help: "Unverified accounts removed by the cleanup job",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "closer_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "closer_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.signups,
		c.verifications,
		c.logins,
		c.pairings,
		c.moods,
		c.answers,
		c.memories,
		c.accountsDeleted,
		c.purged,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

func (c *Collector) RecordSignup()         { c.signups.Inc() }
func (c *Collector) RecordVerification()   { c.verifications.Inc() }
func (c *Collector) RecordPairing()        { c.pairings.Inc() }
func (c *Collector) RecordMood()           { c.moods.Inc() }
func (c *Collector) RecordAnswer()         { c.answers.Inc() }
func (c *Collector) RecordMemory()         { c.memories.Inc() }
func (c *Collector) RecordAccountDeleted() { c.accountsDeleted.Inc() }

// RecordLogin counts a login attempt under result "success" or "failure"
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordUnverifiedPurged adds the number of accounts a cleanup run removed
func (c *Collector) RecordUnverifiedPurged(count int64) {
	c.purged.Add(float64(count))
}

// RecordHTTPRequest records one served request. route is the chi route pattern, not the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Noop discards every measurement
type Noop struct{}

func (Noop) RecordSignup()                                        {}
func (Noop) RecordVerification()                                  {}
func (Noop) RecordLogin(bool)                                     {}
func (Noop) RecordPairing()                                       {}
func (Noop) RecordMood()                                          {}
func (Noop) RecordAnswer()                                        {}
func (Noop) RecordMemory()                                        {}
func (Noop) RecordAccountDeleted()                                {}
func (Noop) RecordUnverifiedPurged(int64)                         {}
func (Noop) RecordHTTPRequest(string, string, int, time.Duration) {}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Noop{}
)
