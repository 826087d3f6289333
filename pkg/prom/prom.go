// Package prom keeps the service's prometheus collectors on a private
// registry. Every helper is a no-op until Create has been called.
package prom

import (
	"sync"

	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
	"github.com/nimasrn/campaign-mailer/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const (
	SystemQueue    = "queue"
	SystemDelivery = "delivery"
	SystemWorkflow = "workflow"
	SystemEvents   = "events"
)

const (
	MetricEmailsMaterialized  = "emails_materialized_total"
	MetricStatusTransitions   = "status_transitions_total"
	MetricDeliveryEvents      = "events_total"
	MetricSendLatency         = "send_latency_seconds"
	MetricWebhookCallDuration = "webhook_call_duration_seconds"
	MetricStreamBacklog       = "stream_backlog"
	MetricDeadLettered        = "dead_lettered_total"
)

// sent_at - scheduled_at spans minutes to days
var sendLatencyBuckets = []float64{1, 10, 60, 300, 900, 3600, 4 * 3600, 12 * 3600, 24 * 3600, 3 * 24 * 3600}

type metrics struct {
	registry *prometheus.Registry

	counters      map[string]prometheus.Counter
	counterVecs   map[string]*prometheus.CounterVec
	histograms    map[string]prometheus.Histogram
	histogramVecs map[string]*prometheus.HistogramVec
	gaugeVecs     map[string]*prometheus.GaugeVec
}

var (
	mu      sync.RWMutex
	current *metrics
)

func metricKey(subsystem, name string) string {
	return subsystem + "_" + name
}

// Create registers every collector with the host and env as const labels,
// replacing any previous registry.
func Create(host string, env string, namespace string) error {
	m := &metrics{
		registry:      prometheus.NewRegistry(),
		counters:      make(map[string]prometheus.Counter),
		counterVecs:   make(map[string]*prometheus.CounterVec),
		histograms:    make(map[string]prometheus.Histogram),
		histogramVecs: make(map[string]*prometheus.HistogramVec),
		gaugeVecs:     make(map[string]*prometheus.GaugeVec),
	}
	labels := prometheus.Labels{"env": env, "instance": host}

	opts := func(subsystem, name, help string) prometheus.Opts {
		return prometheus.Opts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, ConstLabels: labels}
	}
	histOpts := func(subsystem, name, help string, buckets []float64) prometheus.HistogramOpts {
		return prometheus.HistogramOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, ConstLabels: labels, Buckets: buckets}
	}

	m.counters[metricKey(SystemQueue, MetricEmailsMaterialized)] = prometheus.NewCounter(prometheus.CounterOpts(
		opts(SystemQueue, MetricEmailsMaterialized, "queue entries created by schedule materialization")))
	m.counterVecs[metricKey(SystemQueue, MetricStatusTransitions)] = prometheus.NewCounterVec(prometheus.CounterOpts(
		opts(SystemQueue, MetricStatusTransitions, "queue entry status transitions")), []string{"status"})
	m.counterVecs[metricKey(SystemDelivery, MetricDeliveryEvents)] = prometheus.NewCounterVec(prometheus.CounterOpts(
		opts(SystemDelivery, MetricDeliveryEvents, "delivery events persisted to history")), []string{"status"})
	m.counterVecs[metricKey(SystemEvents, MetricDeadLettered)] = prometheus.NewCounterVec(prometheus.CounterOpts(
		opts(SystemEvents, MetricDeadLettered, "stream entries moved to the dead-letter stream")), []string{"stream"})
	m.histograms[metricKey(SystemDelivery, MetricSendLatency)] = prometheus.NewHistogram(
		histOpts(SystemDelivery, MetricSendLatency, "seconds between scheduled_at and sent_at", sendLatencyBuckets))
	m.histogramVecs[metricKey(SystemWorkflow, MetricWebhookCallDuration)] = prometheus.NewHistogramVec(
		histOpts(SystemWorkflow, MetricWebhookCallDuration, "workflow webhook round trip", prometheus.DefBuckets), []string{"action", "outcome"})
	m.gaugeVecs[metricKey(SystemEvents, MetricStreamBacklog)] = prometheus.NewGaugeVec(prometheus.GaugeOpts(
		opts(SystemEvents, MetricStreamBacklog, "stream length and unacked entries")), []string{"stream", "kind"})

	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range m.counters {
		cs = append(cs, c)
	}
	for _, c := range m.counterVecs {
		cs = append(cs, c)
	}
	for _, c := range m.histograms {
		cs = append(cs, c)
	}
	for _, c := range m.histogramVecs {
		cs = append(cs, c)
	}
	for _, c := range m.gaugeVecs {
		cs = append(cs, c)
	}
	for _, c := range cs {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}

	mu.Lock()
	current = m
	mu.Unlock()
	return nil
}

// Disable drops the registry; helpers go back to no-ops.
func Disable() {
	mu.Lock()
	current = nil
	mu.Unlock()
}

func get() *metrics {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Gatherer exposes the registry, nil when metrics are disabled.
func Gatherer() prometheus.Gatherer {
	if m := get(); m != nil {
		return m.registry
	}
	return nil
}

func ListenAndServer(addr string, url string) {
	m := get()
	if m == nil {
		logger.Warn("[metrics-server] metrics are not created, not listening", "addr", addr)
		return
	}
	hh := fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	s := xhttp.CreateServer()
	s.GET(url, hh)
	logger.Info("[metrics-server] listening...", "addr", addr, "url", url)
	if err := s.ListenAndServe(addr); err != nil {
		logger.Error("[metrics-server] http listen error", "error", err)
	}
}

func AddCounter(subsystem, name string, number float64) {
	m := get()
	if m == nil {
		return
	}
	if v, ok := m.counters[metricKey(subsystem, name)]; ok {
		v.Add(number)
		return
	}
	logger.Warn("[metrics-server] counter not found", "subsystem", subsystem, "name", name)
}

func IncCounterVec(subsystem, name string, labelValues ...string) {
	m := get()
	if m == nil {
		return
	}
	if v, ok := m.counterVecs[metricKey(subsystem, name)]; ok {
		v.WithLabelValues(labelValues...).Inc()
		return
	}
	logger.Warn("[metrics-server] counter vec not found", "subsystem", subsystem, "name", name)
}

func AddHistogram(subsystem, name string, number float64) {
	m := get()
	if m == nil {
		return
	}
	if v, ok := m.histograms[metricKey(subsystem, name)]; ok {
		v.Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram not found", "subsystem", subsystem, "name", name)
}

func AddHistogramVec(subsystem, name string, number float64, labelValues ...string) {
	m := get()
	if m == nil {
		return
	}
	if v, ok := m.histogramVecs[metricKey(subsystem, name)]; ok {
		v.WithLabelValues(labelValues...).Observe(number)
		return
	}
	logger.Warn("[metrics-server] histogram vec not found", "subsystem", subsystem, "name", name)
}

func SetGaugeVec(subsystem, name string, number float64, labelValues ...string) {
	m := get()
	if m == nil {
		return
	}
	if v, ok := m.gaugeVecs[metricKey(subsystem, name)]; ok {
		v.WithLabelValues(labelValues...).Set(number)
		return
	}
	logger.Warn("[metrics-server] gauge vec not found", "subsystem", subsystem, "name", name)
}

func AddEmailsMaterialized(count int) {
	AddCounter(SystemQueue, MetricEmailsMaterialized, float64(count))
}

func IncStatusTransition(status string) {
	IncCounterVec(SystemQueue, MetricStatusTransitions, status)
}

func IncDeliveryEvent(status string) {
	IncCounterVec(SystemDelivery, MetricDeliveryEvents, status)
}

func AddSendLatency(seconds float64) {
	AddHistogram(SystemDelivery, MetricSendLatency, seconds)
}

func AddWebhookCallDuration(seconds float64, action, outcome string) {
	AddHistogramVec(SystemWorkflow, MetricWebhookCallDuration, seconds, action, outcome)
}

func IncDeadLettered(stream string) {
	IncCounterVec(SystemEvents, MetricDeadLettered, stream)
}

// SetStreamBacklog records a stream's length and its unacked entries.
func SetStreamBacklog(stream string, length, pending int64) {
	SetGaugeVec(SystemEvents, MetricStreamBacklog, float64(length), stream, "length")
	SetGaugeVec(SystemEvents, MetricStreamBacklog, float64(pending), stream, "pending")
}
