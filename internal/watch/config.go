package watch

import "time"

type Config struct {
	FlushInterval time.Duration `envconfig:"GPVIZ_WATCH_FLUSH_INTERVAL" default:"100ms"`
	PingInterval  time.Duration `envconfig:"GPVIZ_WATCH_PING_INTERVAL" default:"30s"`
	WriteTimeout  time.Duration `envconfig:"GPVIZ_WATCH_WRITE_TIMEOUT" default:"10s"`
}
