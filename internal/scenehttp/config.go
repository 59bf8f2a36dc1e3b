package scenehttp

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"GPVIZ_SCENE_HTTP_REQUEST_TIMEOUT" default:"30s"`
}
