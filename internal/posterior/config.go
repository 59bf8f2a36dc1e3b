package posterior

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"GPVIZ_POSTERIOR_REQUEST_TIMEOUT" default:"30s"`
	GridPoints     int           `envconfig:"GPVIZ_POSTERIOR_GRID_POINTS" default:"300"`
	MaxGridPoints  int           `envconfig:"GPVIZ_POSTERIOR_MAX_GRID_POINTS" default:"2048"`
	XMin           float64       `envconfig:"GPVIZ_POSTERIOR_XMIN" default:"-5"`
	XMax           float64       `envconfig:"GPVIZ_POSTERIOR_XMAX" default:"5"`
}
