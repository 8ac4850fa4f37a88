package observability

import (
	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Options selects the backends. Nil members fall back to no-ops, and a key
// missing from Counters or Histograms hands out a no-op instrument.
type Options struct {
	Tracer     observability.Tracer
	Logger     observability.Logger
	Counters   map[observability.MetricKey]observability.Counter
	Histograms map[observability.MetricKey]observability.Histogram
}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics instruments
}

type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m instruments) Counter(name observability.MetricKey) observability.Counter {
	if c, ok := m.counters[name]; ok {
		return c
	}
	return observability.NopCounter()
}

func (m instruments) Histogram(name observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[name]; ok {
		return h
	}
	return observability.NopHistogram()
}

func New(opts Options) observability.Observability {
	p := &provider{
		tracer: opts.Tracer,
		logger: opts.Logger,
		metrics: instruments{
			counters:   make(map[observability.MetricKey]observability.Counter, len(opts.Counters)),
			histograms: make(map[observability.MetricKey]observability.Histogram, len(opts.Histograms)),
		},
	}
	if p.tracer == nil {
		p.tracer = observability.NopTracer()
	}
	if p.logger == nil {
		p.logger = observability.NopLogger()
	}
	for k, c := range opts.Counters {
		if c != nil {
			p.metrics.counters[k] = c
		}
	}
	for k, h := range opts.Histograms {
		if h != nil {
			p.metrics.histograms[k] = h
		}
	}
	return p
}

// WithPrometheus registers the standard instruments on reg and returns the
// provider backed by them.
func WithPrometheus(reg prometheus.Registerer, namespace string, tracer observability.Tracer, logger observability.Logger) observability.Observability {
	counters, histograms := prometrics.Standard(prometrics.New(reg, namespace, ""))
	return New(Options{
		Tracer:     tracer,
		Logger:     logger,
		Counters:   counters,
		Histograms: histograms,
	})
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }
