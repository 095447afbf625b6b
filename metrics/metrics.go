// Alarmd
// Copyright (C) 2013-2026+ the alarmd contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package metrics exposes the daemon's internal counters over
// Prometheus's text format so an operator can watch queue size,
// firings, and dispatch failures without parsing log lines.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultListen is an unregistered, locally-scoped port; unlike
// Prometheus's own exporters this daemon has no well-known port
// allocation, so it just picks something unlikely to collide.
const DefaultListen = "127.0.0.1:9377"

// Metrics holds every gauge and counter the daemon updates. Call Init
// before using any of the fields, and Start to serve them.
type Metrics struct {
	Listen string

	queuedEvents   *prometheus.GaugeVec   // current queue size, by class
	firingsTotal   *prometheus.CounterVec // firings, by missed-policy outcome
	dispatchTotal  *prometheus.CounterVec // dispatch attempts, by action kind and result
	wakeArmedTotal prometheus.Counter     // times the hardware wake source was armed

	srv *http.Server
}

// Init registers the collectors. Safe to call once per process; a
// second Prometheus registration of the same metric name panics, same
// as the underlying client_golang library.
func (m *Metrics) Init() error {
	if m.Listen == "" {
		m.Listen = DefaultListen
	}

	m.queuedEvents = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alarmd_queued_events",
			Help: "Number of events currently in the queue, by wake class.",
		},
		[]string{"class"}, // desktop, actdead, no_boot, disabled
	)
	prometheus.MustRegister(m.queuedEvents)

	m.firingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarmd_firings_total",
			Help: "Number of alarm firings, by missed-alarm outcome.",
		},
		[]string{"outcome"}, // on_time, delayed, postponed, disabled
	)
	prometheus.MustRegister(m.firingsTotal)

	m.dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alarmd_dispatch_total",
			Help: "Number of dispatched actions, by kind and result.",
		},
		[]string{"kind", "result"}, // exec|dbus, ok|failed
	)
	prometheus.MustRegister(m.dispatchTotal)

	m.wakeArmedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "alarmd_wake_armed_total",
			Help: "Number of times the hardware wake source was armed.",
		},
	)
	prometheus.MustRegister(m.wakeArmedTotal)

	return nil
}

// Start runs an HTTP server in a goroutine, serving /metrics.
func (m *Metrics) Start() error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m.srv = &http.Server{Addr: m.Listen, Handler: mux}
	go m.srv.ListenAndServe()
	return nil
}

// Stop shuts down the HTTP server.
func (m *Metrics) Stop() error {
	if m.srv == nil {
		return nil
	}
	return m.srv.Close()
}

// SetQueueDepth replaces the queue-depth gauge for one class.
func (m *Metrics) SetQueueDepth(class string, n int) {
	m.queuedEvents.With(prometheus.Labels{"class": class}).Set(float64(n))
}

// ObserveFiring increments the firing counter for one outcome.
func (m *Metrics) ObserveFiring(outcome string) {
	m.firingsTotal.With(prometheus.Labels{"outcome": outcome}).Inc()
}

// ObserveDispatch increments the dispatch counter for one kind/result pair.
func (m *Metrics) ObserveDispatch(kind, result string) {
	m.dispatchTotal.With(prometheus.Labels{"kind": kind, "result": result}).Inc()
}

// ObserveWakeArmed increments the wake-armed counter.
func (m *Metrics) ObserveWakeArmed() {
	m.wakeArmedTotal.Inc()
}
