// Copyright 2021 The sessionx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package metrics exports session activity as Prometheus metrics.
//
// A Collector is both a sessionx.Handler, which observes the events of
// one or more sessions, and a prometheus.Collector, which exposes what
// it observed:
//
//	c := metrics.NewCollector("myapp")
//	prometheus.MustRegister(c)
//	var handlers sessionx.HandlerGroup
//	c.Install(&handlers)
//	s := sessionx.NewSession(t, sessionx.Config{Handlers: &handlers})
package metrics

import (
	"strings"

	"github.com/gogama/sessionx"
	"github.com/gogama/sessionx/request"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values other than the error kinds.
const (
	OutcomeSuccess   = "success"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// A Collector counts requests, attempts, retries, and task events, and
// observes the duration of each request.
type Collector struct {
	submitted     prometheus.Counter
	inFlight      prometheus.Gauge
	ended         *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	attempts      prometheus.Counter
	retries       prometheus.Counter
	timeouts      prometheus.Counter
	tasks         prometheus.Counter
	redirects     prometheus.Counter
	challenges    prometheus.Counter
	bytes         *prometheus.CounterVec
	invalidations prometheus.Counter

	all []prometheus.Collector
}

// NewCollector returns a Collector whose metric names start with
// namespace, if it is not empty, followed by "sessionx".
func NewCollector(namespace string) *Collector {
	opts := func(name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: "sessionx", Name: name, Help: help}
	}
	c := &Collector{
		submitted: prometheus.NewCounter(prometheus.CounterOpts(opts(
			"requests_submitted_total", "Requests submitted to a session."))),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts(opts(
			"requests_in_flight", "Requests submitted and not yet ended."))),
		ended: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"requests_ended_total", "Requests that reached a terminal state, by outcome.")),
			[]string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sessionx",
			Name:      "request_duration_seconds",
			Help:      "Time from the first attempt until the request ended, by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts(opts(
			"attempts_total", "Attempts started."))),
		retries: prometheus.NewCounter(prometheus.CounterOpts(opts(
			"retries_total", "Retries scheduled."))),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts(opts(
			"attempt_timeouts_total", "Attempts that ran out of time, counted when their request ends."))),
		tasks: prometheus.NewCounter(prometheus.CounterOpts(opts(
			"tasks_completed_total", "Transport tasks that reported completion."))),
		redirects: prometheus.NewCounter(prometheus.CounterOpts(opts(
			"redirects_proposed_total", "Redirects proposed by the transport."))),
		challenges: prometheus.NewCounter(prometheus.CounterOpts(opts(
			"challenges_total", "Authentication challenges raised by the transport."))),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts(opts(
			"body_bytes_total", "Body bytes moved by the final attempt of ended requests, by direction.")),
			[]string{"direction"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts(opts(
			"session_invalidations_total", "Sessions invalidated by their transport."))),
	}
	c.all = []prometheus.Collector{
		c.submitted, c.inFlight, c.ended, c.duration, c.attempts, c.retries,
		c.timeouts, c.tasks, c.redirects, c.challenges, c.bytes, c.invalidations,
	}
	return c
}

// Install adds c to the back of every event chain of g that c observes.
func (c *Collector) Install(g *sessionx.HandlerGroup) {
	for _, evt := range []sessionx.Event{
		sessionx.RequestSubmitted,
		sessionx.AttemptStarted,
		sessionx.RetryDecided,
		sessionx.RequestFinished,
		sessionx.RequestCancelled,
		sessionx.TaskCompleted,
		sessionx.RedirectProposed,
		sessionx.ChallengeReceived,
		sessionx.SessionInvalidated,
	} {
		g.PushBack(evt, c)
	}
}

// Handle implements sessionx.Handler.
func (c *Collector) Handle(evt sessionx.Event, r *sessionx.Request) {
	switch evt {
	case sessionx.RequestSubmitted:
		c.submitted.Inc()
		c.inFlight.Inc()
	case sessionx.AttemptStarted:
		c.attempts.Inc()
	case sessionx.RetryDecided:
		c.retries.Inc()
	case sessionx.RequestFinished, sessionx.RequestCancelled:
		c.inFlight.Dec()
		if r != nil {
			c.observe(r.Execution(), evt == sessionx.RequestCancelled)
		}
	case sessionx.TaskCompleted:
		c.tasks.Inc()
	case sessionx.RedirectProposed:
		c.redirects.Inc()
	case sessionx.ChallengeReceived:
		c.challenges.Inc()
	case sessionx.SessionInvalidated:
		c.invalidations.Inc()
	}
}

func (c *Collector) observe(e *request.Execution, cancelled bool) {
	o := OutcomeCancelled
	if !cancelled {
		o = Outcome(e.Err)
	}
	c.ended.WithLabelValues(o).Inc()
	c.duration.WithLabelValues(o).Observe(e.Duration().Seconds())
	c.timeouts.Add(float64(e.AttemptTimeouts))
	if m := e.Metrics; m != nil {
		c.bytes.WithLabelValues("sent").Add(float64(m.BytesSent))
		c.bytes.WithLabelValues("received").Add(float64(m.BytesReceived))
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.all {
		m.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.all {
		m.Collect(ch)
	}
}

// Outcome returns the outcome label value of a request that finished
// with err: OutcomeSuccess for nil, the snake-cased error kind for a
// *request.Error, and OutcomeError otherwise.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if k := request.KindOf(err); k != 0 {
		return strings.ReplaceAll(k.String(), " ", "_")
	}
	return OutcomeError
}
