package bootstrap

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/wolfman30/vetbot/internal/config"
	"github.com/wolfman30/vetbot/internal/devserver"
	"github.com/wolfman30/vetbot/pkg/logging"
)

// Chat message limits for the local stub, per session.
const (
	devChatRate  = 2
	devChatBurst = 5
)

// BuildDevServer returns an http.Server serving the local assistant stub on
// the configured port, with /metrics backed by gatherer when one is given.
func BuildDevServer(cfg *appconfig.Config, gatherer prometheus.Gatherer, logger *logging.Logger) *http.Server {
	if logger == nil {
		logger = logging.Default()
	}
	var metricsHandler http.Handler
	if gatherer != nil {
		metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	srv := devserver.New(devserver.Config{
		Logger:         logger,
		AllowedOrigins: cfg.DevAllowedOrigins,
		MetricsHandler: metricsHandler,
		ChatRate:       devChatRate,
		ChatBurst:      devChatBurst,
	})
	return &http.Server{
		Addr:         ":" + cfg.DevServerPort,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// BuildMetricsServer exposes gatherer on addr, or returns nil when addr is empty.
func BuildMetricsServer(addr string, gatherer prometheus.Gatherer) *http.Server {
	if addr == "" || gatherer == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
