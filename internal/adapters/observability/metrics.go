package observability

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const namespace = "wanderlust"

func counter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name, Help: help}, labels)
}

func seconds(name, help string, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: name, Help: help, Buckets: prometheus.DefBuckets,
	}, labels)
}

var (
	HTTPRequests     = counter("http_requests_total", "Served HTTP requests.", "route", "method", "status")
	HTTPLatency      = seconds("http_request_duration_seconds", "Served HTTP request latency.", "route", "method")
	ExternalRequests = counter("external_requests_total", "Calls to the geocoder and object store.", "service", "endpoint", "status")
	ExternalLatency  = seconds("external_request_duration_seconds", "Latency of outbound calls.", "service", "endpoint")

	// event: hit|miss|set|del
	CacheEvents = counter("cache_events_total", "Listing cache events.", "cache", "event")
	// outcome: resolved|transport|status|decode|empty|coords
	GeocodeResults = counter("geocode_results_total", "Resolve outcomes by kind.", "outcome")
	// result: ok|error
	Uploads = counter("uploads_total", "Image uploads by result.", "result")
)

// InitRegistry returns a registry holding every wanderlust collector plus the Go
// runtime and process collectors.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency,
		ExternalRequests, ExternalLatency,
		CacheEvents, GeocodeResults, Uploads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// NewServer builds the standalone metrics listener for reg.
func NewServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}

// Serve runs NewServer in the background. Empty addr disables it.
func Serve(addr string, reg *prometheus.Registry) {
	if addr == "" {
		return
	}
	srv := NewServer(addr, reg)
	go func() {
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

// ObserveExternal records one outbound call; status 0 means the transport failed.
func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) {
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveGeocode(outcome string) {
	GeocodeResults.WithLabelValues(outcome).Inc()
}

func ObserveUpload(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Uploads.WithLabelValues(result).Inc()
}
