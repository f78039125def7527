package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds service configuration.
type Config struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	DatabaseURL string

	RuleWeight          float64
	HistoryWeight       float64
	SimilarityThreshold float64
	DefaultStepTimeout  time.Duration

	AgentEndpoints map[string]string

	MetricsLogInterval time.Duration
	LogLevel           string
	TraceExporter      string
}

// Load reads configuration from environment. An unset DATABASE_URL keeps
// all storage in memory. The write timeout defaults to zero because event
// streams outlive any fixed deadline.
func Load() (*Config, error) {
	endpoints, err := parseEndpoints(os.Getenv("ORCH_AGENT_ENDPOINTS"))
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPAddr:            getenv("ORCH_HTTP_ADDR", "0.0.0.0:8080"),
		ReadTimeout:         parseDuration(getenv("ORCH_READ_TIMEOUT", "15s"), 15*time.Second),
		WriteTimeout:        parseDuration(getenv("ORCH_WRITE_TIMEOUT", "0s"), 0),
		ShutdownTimeout:     parseDuration(getenv("ORCH_SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RuleWeight:          parseFloat(getenv("ORCH_RULE_WEIGHT", "0.7"), 0.7),
		HistoryWeight:       parseFloat(getenv("ORCH_HISTORY_WEIGHT", "0.3"), 0.3),
		SimilarityThreshold: parseFloat(getenv("ORCH_SIMILARITY_THRESHOLD", "0.7"), 0.7),
		DefaultStepTimeout:  parseDuration(getenv("ORCH_DEFAULT_STEP_TIMEOUT", "300s"), 300*time.Second),
		AgentEndpoints:      endpoints,
		MetricsLogInterval:  parseDuration(getenv("ORCH_METRICS_LOG_INTERVAL", "60s"), time.Minute),
		LogLevel:            getenv("ORCH_LOG_LEVEL", "info"),
		TraceExporter:       getenv("ORCH_TRACE_EXPORTER", "noop"),
	}, nil
}

// parseEndpoints reads comma-separated name=url pairs.
func parseEndpoints(raw string) (map[string]string, error) {
	endpoints := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, url, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		url = strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("invalid agent endpoint %q: want name=url", pair)
		}
		endpoints[name] = url
	}
	return endpoints, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseFloat(val string, def float64) float64 {
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}
