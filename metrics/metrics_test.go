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

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestMetricsObservations exercises every observer once. It is a single
// test function because prometheus.MustRegister panics on a duplicate
// name, and Init registers against the global DefaultRegisterer.
func TestMetricsObservations(t *testing.T) {
	m := &Metrics{}
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	m.SetQueueDepth("desktop", 3)
	if got := testutil.ToFloat64(m.queuedEvents.With(prometheus.Labels{"class": "desktop"})); got != 3 {
		t.Fatalf("got queue depth %v, want 3", got)
	}

	m.ObserveFiring("delayed")
	m.ObserveFiring("delayed")
	if got := testutil.ToFloat64(m.firingsTotal.With(prometheus.Labels{"outcome": "delayed"})); got != 2 {
		t.Fatalf("got firings total %v, want 2", got)
	}

	m.ObserveDispatch("exec", "ok")
	if got := testutil.ToFloat64(m.dispatchTotal.With(prometheus.Labels{"kind": "exec", "result": "ok"})); got != 1 {
		t.Fatalf("got dispatch total %v, want 1", got)
	}

	m.ObserveWakeArmed()
	m.ObserveWakeArmed()
	if got := testutil.ToFloat64(m.wakeArmedTotal); got != 2 {
		t.Fatalf("got wake armed total %v, want 2", got)
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
