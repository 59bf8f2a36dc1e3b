package scene

import "time"

type Config struct {
	MaxScenes       int           `envconfig:"GPVIZ_SCENE_MAX_SCENES" default:"64"`
	TTL             time.Duration `envconfig:"GPVIZ_SCENE_TTL" default:"1h"`
	RebuildTime     time.Duration `envconfig:"GPVIZ_SCENE_REBUILD_TIME" default:"1m"`
	HistoryCap      int           `envconfig:"GPVIZ_SCENE_HISTORY_CAP" default:"5"`
	MaxObservations int           `envconfig:"GPVIZ_SCENE_MAX_OBSERVATIONS" default:"512"`
}
