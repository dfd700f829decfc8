package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "farmhub"

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// gate rejections by stage: unauthenticated|forbidden
	AuthRejections *prometheus.CounterVec
	// category tree writes by op and outcome
	CategoryMutations *prometheus.CounterVec
	// bird nest full-replacement syncs by outcome
	NestSyncs *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		AuthRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "rejections_total",
				Help:      "Requests rejected by the authorization gate.",
			},
			[]string{"stage"},
		),
		CategoryMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "categories",
				Name:      "mutations_total",
				Help:      "Category create/update/delete outcomes.",
			},
			[]string{"op", "result"},
		),
		NestSyncs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bird_nests",
				Name:      "syncs_total",
				Help:      "Bird nest replace-all outcomes.",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.AuthRejections, p.CategoryMutations, p.NestSyncs,
	)

	return p
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}

// The helpers below tolerate a nil *Prom so handlers and middlewares can be
// built without a registry in tests.

func (p *Prom) IncAuthRejection(stage string) {
	if p == nil {
		return
	}
	p.AuthRejections.WithLabelValues(stage).Inc()
}

func (p *Prom) IncCategoryMutation(op, result string) {
	if p == nil {
		return
	}
	p.CategoryMutations.WithLabelValues(op, result).Inc()
}

func (p *Prom) IncNestSync(result string) {
	if p == nil {
		return
	}
	p.NestSyncs.WithLabelValues(result).Inc()
}
