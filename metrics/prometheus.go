package metrics

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-travel/types"
	"github.com/saiset-co/sai-travel/utils"
)

type MetricValue struct {
	Name   string            `json:"name"`
	Type   string            `json:"type"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
	Help   string            `json:"help,omitempty"`
}

type PrometheusMetrics struct {
	ctx        context.Context
	logger     types.Logger
	config     *types.MetricsConfig
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	summaries  map[string]*prometheus.SummaryVec
	mu         sync.RWMutex
	running    int32
}

func NewPrometheusMetrics(ctx context.Context, logger types.Logger, config *types.MetricsConfig) (*PrometheusMetrics, error) {
	if config == nil {
		return nil, types.ErrConfigIsNil
	}

	registry := prometheus.NewRegistry()
	if config.Collectors.Runtime {
		registry.MustRegister(collectors.NewGoCollector())
	}
	if config.Collectors.Process {
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	metrics := &PrometheusMetrics{
		ctx:        ctx,
		logger:     logger,
		config:     config,
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		summaries:  make(map[string]*prometheus.SummaryVec),
	}

	logger.Info("Prometheus metrics initialized",
		zap.String("prefix", config.Prefix),
		zap.Bool("runtime_collector", config.Collectors.Runtime),
		zap.Bool("process_collector", config.Collectors.Process))

	return metrics, nil
}

func (p *PrometheusMetrics) Start() error {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return types.ErrServerAlreadyRunning
	}

	p.logger.Info("Prometheus metrics started")
	return nil
}

func (p *PrometheusMetrics) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.running, 1, 0) {
		return types.ErrServerNotRunning
	}

	p.logger.Info("Prometheus metrics stopped")
	return nil
}

func (p *PrometheusMetrics) IsRunning() bool {
	return atomic.LoadInt32(&p.running) == 1
}

// metricHelp documents the series this service emits. Unlisted names
// get a generic help string.
var metricHelp = map[string]string{
	"aggregator_slots_total":            "Fan-out slots by provider and outcome.",
	"aggregator_slot_duration_seconds":  "Fan-out slot latency.",
	"cache_operations_total":            "Cache lookups and stores by cache, operation and result.",
	"cache_operation_duration_seconds":  "Cache operation latency.",
	"catalog_refreshes_total":           "Safety index refreshes by result.",
	"catalog_refresh_duration_seconds":  "Safety index refresh duration.",
	"catalog_countries":                 "Countries in the current safety index.",
	"cron_job_executions_total":         "Scheduled job runs by job and result.",
	"cron_job_duration_seconds":         "Scheduled job duration.",
	"http_requests_total":               "Served requests by method and status.",
	"http_request_duration_seconds":     "Served request latency.",
	"http_panics_total":                 "Handler panics recovered by path.",
	"http_rate_limited_total":           "Requests rejected by the per-client rate limit.",
	"upstream_requests_total":           "Upstream calls by provider and result.",
	"upstream_request_duration_seconds": "Upstream call latency.",
}

func help(kind, name string) string {
	if h, ok := metricHelp[name]; ok {
		return h
	}
	return fmt.Sprintf("%s metric %s", kind, name)
}

// vector returns the collector registered under name, building and
// registering it on first use. Every caller of one name must pass the
// same label keys.
func vector[V prometheus.Collector](p *PrometheusMetrics, vectors map[string]V, name string, build func() V) V {
	p.mu.Lock()
	defer p.mu.Unlock()

	if v, ok := vectors[name]; ok {
		return v
	}

	v := build()
	p.registry.MustRegister(v)
	vectors[name] = v
	p.logger.Debug("Prometheus collector registered", zap.String("name", name))
	return v
}

func (p *PrometheusMetrics) Counter(name string, labels map[string]string) types.Counter {
	counter := vector(p, p.counters, name, func() *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   p.config.Prefix,
			Name:        name,
			Help:        help("Counter", name),
			ConstLabels: p.config.Labels,
		}, labelNames(labels))
	})

	return &PrometheusCounter{logger: p.logger, counter: counter, labels: labels}
}

func (p *PrometheusMetrics) Gauge(name string, labels map[string]string) types.Gauge {
	gauge := vector(p, p.gauges, name, func() *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   p.config.Prefix,
			Name:        name,
			Help:        help("Gauge", name),
			ConstLabels: p.config.Labels,
		}, labelNames(labels))
	})

	return &PrometheusGauge{logger: p.logger, gauge: gauge, labels: labels}
}

func (p *PrometheusMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	histogram := vector(p, p.histograms, name, func() *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   p.config.Prefix,
			Name:        name,
			Help:        help("Histogram", name),
			Buckets:     buckets,
			ConstLabels: p.config.Labels,
		}, labelNames(labels))
	})

	return &PrometheusHistogram{histogram: histogram, labels: labels}
}

func (p *PrometheusMetrics) Summary(name string, objectives map[float64]float64, labels map[string]string) types.Summary {
	summary := vector(p, p.summaries, name, func() *prometheus.SummaryVec {
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:   p.config.Prefix,
			Name:        name,
			Help:        help("Summary", name),
			Objectives:  objectives,
			ConstLabels: p.config.Labels,
		}, labelNames(labels))
	})

	return &PrometheusSummary{summary: summary, labels: labels}
}

// GetMetrics flattens the registry into JSON, one entry per series.
func (p *PrometheusMetrics) GetMetrics() ([]byte, error) {
	gathering, err := p.registry.Gather()
	if err != nil {
		p.logger.Error("Failed to gather prometheus metrics", zap.Error(err))
		return nil, err
	}

	metrics := make([]MetricValue, 0, len(gathering))
	for _, mf := range gathering {
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, label := range m.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}

			var value float64
			switch {
			case m.Counter != nil:
				value = m.Counter.GetValue()
			case m.Gauge != nil:
				value = m.Gauge.GetValue()
			case m.Histogram != nil:
				value = m.Histogram.GetSampleSum()
			case m.Summary != nil:
				value = m.Summary.GetSampleSum()
			}

			metrics = append(metrics, MetricValue{
				Name:   mf.GetName(),
				Type:   mf.GetType().String(),
				Value:  value,
				Labels: labels,
				Help:   mf.GetHelp(),
			})
		}
	}

	return utils.Marshal(metrics)
}

func (p *PrometheusMetrics) RegisterRoutes(router types.HTTPRouter) {
	if !p.config.HTTP.Enabled {
		return
	}

	path := p.config.HTTP.Path
	if path == "" {
		path = "/metrics"
	}

	promHandler := promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})

	fastHandler := func(ctx *fasthttp.RequestCtx) {
		req, err := http.NewRequest(http.MethodGet, string(ctx.RequestURI()), nil)
		if err != nil {
			utils.CreateErrorResponse(ctx)
			return
		}
		promHandler.ServeHTTP(types.NewFastResponseWriter(ctx), req)
	}

	router.Add(http.MethodGet, path, fastHandler, &types.RouteConfig{
		Timeout:             5 * time.Second,
		DisabledMiddlewares: []string{"logging", "compression", "rate_limit"},
	})
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type PrometheusCounter struct {
	logger  types.Logger
	counter *prometheus.CounterVec
	labels  map[string]string
}

func (c *PrometheusCounter) Inc() {
	c.counter.With(c.labels).Inc()
}

func (c *PrometheusCounter) Add(value float64) {
	c.counter.With(c.labels).Add(value)
}

func (c *PrometheusCounter) Get() float64 {
	metric := &dto.Metric{}
	if err := c.counter.With(c.labels).Write(metric); err != nil {
		c.logger.Error("Failed to read counter", zap.Error(err))
	}
	return metric.GetCounter().GetValue()
}

type PrometheusGauge struct {
	logger types.Logger
	gauge  *prometheus.GaugeVec
	labels map[string]string
}

func (g *PrometheusGauge) Set(value float64) {
	g.gauge.With(g.labels).Set(value)
}

func (g *PrometheusGauge) Inc() {
	g.gauge.With(g.labels).Inc()
}

func (g *PrometheusGauge) Dec() {
	g.gauge.With(g.labels).Dec()
}

func (g *PrometheusGauge) Add(value float64) {
	g.gauge.With(g.labels).Add(value)
}

func (g *PrometheusGauge) Sub(value float64) {
	g.gauge.With(g.labels).Sub(value)
}

func (g *PrometheusGauge) Get() float64 {
	metric := &dto.Metric{}
	if err := g.gauge.With(g.labels).Write(metric); err != nil {
		g.logger.Error("Failed to read gauge", zap.Error(err))
	}
	return metric.GetGauge().GetValue()
}

type PrometheusHistogram struct {
	histogram *prometheus.HistogramVec
	labels    map[string]string
}

func (h *PrometheusHistogram) Observe(value float64) {
	h.histogram.With(h.labels).Observe(value)
}

func (h *PrometheusHistogram) ObserveDuration(start time.Time) {
	h.histogram.With(h.labels).Observe(time.Since(start).Seconds())
}

func (h *PrometheusHistogram) GetCount() uint64 {
	if metric := h.read(); metric != nil {
		return metric.GetHistogram().GetSampleCount()
	}
	return 0
}

func (h *PrometheusHistogram) GetSum() float64 {
	if metric := h.read(); metric != nil {
		return metric.GetHistogram().GetSampleSum()
	}
	return 0
}

func (h *PrometheusHistogram) read() *dto.Metric {
	promMetric, ok := h.histogram.With(h.labels).(prometheus.Metric)
	if !ok {
		return nil
	}

	metric := &dto.Metric{}
	if err := promMetric.Write(metric); err != nil {
		return nil
	}
	return metric
}

type PrometheusSummary struct {
	summary *prometheus.SummaryVec
	labels  map[string]string
}

func (s *PrometheusSummary) Observe(value float64) {
	s.summary.With(s.labels).Observe(value)
}

func (s *PrometheusSummary) ObserveDuration(start time.Time) {
	s.summary.With(s.labels).Observe(time.Since(start).Seconds())
}

func (s *PrometheusSummary) GetCount() uint64 {
	if metric := s.read(); metric != nil {
		return metric.GetSummary().GetSampleCount()
	}
	return 0
}

func (s *PrometheusSummary) GetSum() float64 {
	if metric := s.read(); metric != nil {
		return metric.GetSummary().GetSampleSum()
	}
	return 0
}

func (s *PrometheusSummary) read() *dto.Metric {
	promMetric, ok := s.summary.With(s.labels).(prometheus.Metric)
	if !ok {
		return nil
	}

	metric := &dto.Metric{}
	if err := promMetric.Write(metric); err != nil {
		return nil
	}
	return metric
}
