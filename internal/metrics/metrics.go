// Package metrics exports configurator activity as Prometheus metrics.
//
// A Recorder is an engine.Observer: register it on a Matrix (or Engine)
// and it counts every selection and enabled/disabled flip, keeps gauges of
// currently selected and disabled options, and counts processed events by
// outcome.
package metrics

import (
	"io"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/roach88/moa/internal/engine"
)

const namespace = "moa"

// Change labels for moa_option_changes_total.
const (
	ChangeSelected   = "selected"
	ChangeDeselected = "deselected"
	ChangeDisabled   = "disabled"
	ChangeEnabled    = "enabled"
)

// Recorder implements engine.Observer on top of Prometheus collectors.
type Recorder struct {
	optionChanges *prometheus.CounterVec
	filterChanges *prometheus.CounterVec
	events        *prometheus.CounterVec
	selected      prometheus.Gauge
	disabled      prometheus.Gauge

	mu   sync.Mutex
	last map[string]engine.OptionState
}

// NewRecorder creates a Recorder, registers its collectors on reg and seeds
// the gauges from the matrix's current state.
func NewRecorder(reg prometheus.Registerer, m *engine.Matrix) (*Recorder, error) {
	r := &Recorder{
		optionChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "option_changes_total",
			Help:      "Option state flips by kind of change.",
		}, []string{"change"}),
		filterChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_changes_total",
			Help:      "Selected range changes per filter.",
		}, []string{"filter"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Processed engine events by type and result.",
		}, []string{"type", "result"}),
		selected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "options_selected",
			Help:      "Options currently selected.",
		}),
		disabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "options_disabled",
			Help:      "Options currently disabled by at least one reason.",
		}),
		last: make(map[string]engine.OptionState),
	}

	for _, c := range []prometheus.Collector{r.optionChanges, r.filterChanges, r.events, r.selected, r.disabled} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	for _, s := range m.Snapshot().Options {
		r.last[s.Name] = s
		if s.Selected {
			r.selected.Inc()
		}
		if s.Disabled {
			r.disabled.Inc()
		}
	}
	return r, nil
}

// OptionChanged implements engine.Observer.
func (r *Recorder) OptionChanged(s engine.OptionState) {
	r.mu.Lock()
	prev := r.last[s.Name]
	r.last[s.Name] = s
	r.mu.Unlock()

	if s.Selected != prev.Selected {
		if s.Selected {
			r.optionChanges.WithLabelValues(ChangeSelected).Inc()
			r.selected.Inc()
		} else {
			r.optionChanges.WithLabelValues(ChangeDeselected).Inc()
			r.selected.Dec()
		}
	}
	if s.Disabled != prev.Disabled {
		if s.Disabled {
			r.optionChanges.WithLabelValues(ChangeDisabled).Inc()
			r.disabled.Inc()
		} else {
			r.optionChanges.WithLabelValues(ChangeEnabled).Inc()
			r.disabled.Dec()
		}
	}
}

// FilterChanged implements engine.Observer.
func (r *Recorder) FilterChanged(s engine.FilterState) {
	r.filterChanges.WithLabelValues(s.Name).Inc()
}

// ObserveEvent counts one processed engine event.
func (r *Recorder) ObserveEvent(e engine.TraceEntry) {
	result := "applied"
	if e.Error != "" {
		result = "rejected"
	}
	r.events.WithLabelValues(e.Type, result).Inc()
}

// WriteText writes every metric family gathered from g in the Prometheus
// text exposition format.
func WriteText(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
