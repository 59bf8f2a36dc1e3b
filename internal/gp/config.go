package gp

type Config struct {
	Jitter float64 `envconfig:"GPVIZ_ENGINE_JITTER" default:"1e-6"`
}
