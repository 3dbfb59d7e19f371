package metrics

// HTTP request instrumentation for gin, derived from github.com/zsais/go-gin-prometheus
// with the push gateway, basic auth and referer label removed.

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var httpLabels = []string{"code", "method", "route"}

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "req_total",
	Description: "How many HTTP requests processed, partitioned by status code, method and route.",
	Type:        "counter_vec",
	Args:        httpLabels,
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "req_dur_ms",
	Description: "The HTTP request latencies in milliseconds.",
	Type:        "histogram_vec",
	Args:        httpLabels,
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "resp_sz_bytes",
	Description: "The HTTP response sizes in bytes.",
	Type:        "summary_vec",
	Args:        httpLabels,
}

var standardMetrics = []*Metric{reqCnt, reqDur, resSz}

const defaultMetricPath = "/metrics"

// Options configures a Prometheus collector set.
type Options struct {
	Subsystem   string
	MetricsList []*Metric
	MetricsPath string
	Logger      *zap.SugaredLogger
}

// Prometheus holds the HTTP collectors and the business metrics registered with them.
type Prometheus struct {
	reqCnt *prometheus.CounterVec
	reqDur *prometheus.HistogramVec
	resSz  *prometheus.SummaryVec

	MetricsList []*Metric
	MetricsPath string

	log *zap.SugaredLogger
}

// NewPrometheus registers the standard HTTP metrics plus opts.MetricsList on the default registry.
// A metric that is already registered is reused, so building twice in one process is safe.
func NewPrometheus(opts Options) *Prometheus {
	p := &Prometheus{
		MetricsList: append(append([]*Metric{}, opts.MetricsList...), standardMetrics...),
		MetricsPath: opts.MetricsPath,
		log:         opts.Logger,
	}
	if p.MetricsPath == "" {
		p.MetricsPath = defaultMetricPath
	}
	if p.log == nil {
		p.log = zap.NewNop().Sugar()
	}
	p.register(opts.Subsystem)
	return p
}

func (p *Prometheus) register(subsystem string) {
	for _, def := range p.MetricsList {
		collector := NewMetric(def, subsystem)
		if err := prometheus.Register(collector); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				p.log.Errorw("metric registration failed", "metric", def.Name, "error", err)
				continue
			}
			collector = are.ExistingCollector
		}
		def.MetricCollector = collector
		switch def {
		case reqCnt:
			p.reqCnt, _ = collector.(*prometheus.CounterVec)
		case reqDur:
			p.reqDur, _ = collector.(*prometheus.HistogramVec)
		case resSz:
			p.resSz, _ = collector.(*prometheus.SummaryVec)
		}
	}
}

// Middleware records request count, latency and response size. The route label is the
// gin route template so path parameters do not explode cardinality.
func (p *Prometheus) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method

		if p.reqCnt != nil {
			p.reqCnt.WithLabelValues(code, method, route).Inc()
		}
		if p.reqDur != nil {
			p.reqDur.WithLabelValues(code, method, route).Observe(MillisecondsSince(start))
		}
		if p.resSz != nil {
			p.resSz.WithLabelValues(code, method, route).Observe(float64(c.Writer.Size()))
		}
	}
}

// Router serves the default registry on its own engine, keeping scrapes out of the access log.
func (p *Prometheus) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(p.MetricsPath, gin.WrapH(promhttp.Handler()))
	return r
}

// MillisecondsSince returns the elapsed time since start in milliseconds.
func MillisecondsSince(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
