package observe

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"GPVIZ_OBSERVE_REQUEST_TIMEOUT" default:"60s"`
	MaxPointsLen   int           `envconfig:"GPVIZ_OBSERVE_MAX_POINTS_LEN" default:"512"`
}
