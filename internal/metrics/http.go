package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProbeMetricsMiddleware counts and times requests to the operational server.
// Probes hitting /ready with a 503 show up as status_class="5xx", which is
// what alerting keys on. Requests to unknown routes share the "unmatched" route.
func ProbeMetricsMiddleware(meterProvider metric.MeterProvider, namespace string) gin.HandlerFunc {
	meter := meterProvider.Meter(namespace)

	requests, err := meter.Int64Counter(
		fmt.Sprintf("%s_probe_requests_total", namespace),
		metric.WithDescription("Requests served by the health and metrics server"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return passThrough
	}
	latency, err := meter.Float64Histogram(
		fmt.Sprintf("%s_probe_request_duration_seconds", namespace),
		metric.WithDescription("Latency of health and metrics server requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		opts := metric.WithAttributes(
			attribute.String("route", routeLabel(c.FullPath())),
			attribute.String("status_class", statusClass(status)),
			attribute.String("status_code", strconv.Itoa(status)),
		)
		requests.Add(c.Request.Context(), 1, opts)
		latency.Record(c.Request.Context(), time.Since(start).Seconds(), opts)
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

// routeLabel keeps label cardinality bounded by the registered routes.
func routeLabel(fullPath string) string {
	if fullPath == "" {
		return "unmatched"
	}
	return fullPath
}

func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}
