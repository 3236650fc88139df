// Package metrics exports dispatch statistics as Prometheus metrics.
package metrics

import (
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/dshills/evdispatch/internal/event"
)

// OtherEvent is the label value for event names outside the allow-list.
const OtherEvent = "other"

// Collector records dispatch reports. It implements event.Observer.
//
// Event names become label values. When names come from untrusted input,
// restrict them with WithEvents so the number of series stays bounded.
type Collector struct {
	dispatches  *prometheus.CounterVec
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec

	// allowed is nil when every name is labelled as is.
	allowed map[string]struct{}
}

// Option configures a Collector.
type Option func(*Collector)

// WithEvents restricts event label values to names. Any other event is
// recorded as OtherEvent. No names leaves labels unrestricted.
func WithEvents(names ...string) Option {
	return func(c *Collector) {
		if len(names) == 0 {
			return
		}
		c.allowed = make(map[string]struct{}, len(names))
		for _, n := range names {
			c.allowed[n] = struct{}{}
		}
	}
}

// NewCollector creates a collector and registers its metrics with reg.
// A nil reg skips registration.
func NewCollector(namespace string, reg prometheus.Registerer, opts ...Option) (*Collector, error) {
	c := &Collector{
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_total",
				Help:      "Total number of dispatch calls by outcome",
			},
			[]string{"event", "outcome"},
		),
		invocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "listener_invocations_total",
				Help:      "Total number of listener invocations",
			},
			[]string{"event"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "dispatch_duration_seconds",
				Help:      "Duration of dispatch calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"event"},
		),
	}
	for _, opt := range opts {
		opt(c)
	}

	if reg != nil {
		for _, m := range []prometheus.Collector{c.dispatches, c.invocations, c.duration} {
			if err := reg.Register(m); err != nil {
				return nil, errors.Wrap(err, "registering dispatch metrics")
			}
		}
	}
	return c, nil
}

// ObserveDispatch implements event.Observer.
func (c *Collector) ObserveDispatch(e *event.Event, r event.Report) {
	name := c.label(e.Name())
	c.dispatches.WithLabelValues(name, r.Outcome()).Inc()
	if r.Invoked > 0 {
		c.invocations.WithLabelValues(name).Add(float64(r.Invoked))
	}
	c.duration.WithLabelValues(name).Observe(r.Duration.Seconds())
}

// Dispatches returns the dispatch counter for an event and outcome.
func (c *Collector) Dispatches(name, outcome string) prometheus.Counter {
	return c.dispatches.WithLabelValues(c.label(name), outcome)
}

// Invocations returns the listener invocation counter for an event.
func (c *Collector) Invocations(name string) prometheus.Counter {
	return c.invocations.WithLabelValues(c.label(name))
}

// label maps an event name to its label value.
func (c *Collector) label(name string) string {
	if c.allowed == nil {
		return name
	}
	if _, ok := c.allowed[name]; ok {
		return name
	}
	return OtherEvent
}

// WriteText writes every metric family from g in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return errors.Wrap(err, "writing metrics")
		}
	}
	return nil
}

var _ event.Observer = (*Collector)(nil)
