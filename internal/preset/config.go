package preset

import "time"

type Config struct {
	Path           string        `envconfig:"GPVIZ_PRESETS_PATH" default:"configs/presets.toml"`
	RequestTimeout time.Duration `envconfig:"GPVIZ_PRESETS_REQUEST_TIMEOUT" default:"30s"`
}
