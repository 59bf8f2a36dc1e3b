package sample

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"GPVIZ_SAMPLE_REQUEST_TIMEOUT" default:"30s"`
	GridPoints     int           `envconfig:"GPVIZ_SAMPLE_GRID_POINTS" default:"150"`
	MaxGridPoints  int           `envconfig:"GPVIZ_SAMPLE_MAX_GRID_POINTS" default:"1024"`
	XMin           float64       `envconfig:"GPVIZ_SAMPLE_XMIN" default:"-5"`
	XMax           float64       `envconfig:"GPVIZ_SAMPLE_XMAX" default:"5"`
}
