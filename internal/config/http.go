package config

import "time"

type HTTP struct {
	ListenAddress        string        `env:"HTTP_LISTEN_ADDRESS" envDefault:":8080"`
	ProbeListenAddress   string        `env:"PROBE_LISTEN_ADDRESS" envDefault:":8081"`
	MetricsListenAddress string        `env:"METRICS_LISTEN_ADDRESS" envDefault:":9090"`
	ShutdownTimeout      time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	ReadHeaderTimeout    time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ProbeCheckTimeout    time.Duration `env:"PROBE_CHECK_TIMEOUT" envDefault:"2s"`
	// RateLimit — запросов в секунду на пользователя, 0 отключает ограничение.
	RateLimit float64 `env:"HTTP_RATE_LIMIT" envDefault:"5"`
	RateBurst int     `env:"HTTP_RATE_BURST" envDefault:"10"`
}
