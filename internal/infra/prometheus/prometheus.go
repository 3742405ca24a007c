package prometheus

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sifan077/shrtnr/config"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	defaultPort       = 9090
)

// NewServer builds the side HTTP server that exposes /metrics from gatherer.
// Scrape errors are logged and the remaining families are still served.
func NewServer(cfg config.PrometheusConfig, gatherer prometheus.Gatherer, log *zap.Logger) *http.Server {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	errLog, err := zap.NewStdLogAt(log.Named("metrics"), zap.WarnLevel)
	if err != nil {
		errLog = zap.NewStdLog(log)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:      errLog,
		ErrorHandling: promhttp.ContinueOnError,
	}))

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		ErrorLog:          errLog,
	}
}
