package gpviz

import (
	"github.com/go-gpviz/gpviz/internal/gp"
	"github.com/go-gpviz/gpviz/internal/observe"
	"github.com/go-gpviz/gpviz/internal/posterior"
	"github.com/go-gpviz/gpviz/internal/preset"
	"github.com/go-gpviz/gpviz/internal/sample"
	"github.com/go-gpviz/gpviz/internal/scene"
	"github.com/go-gpviz/gpviz/internal/scenehttp"
	"github.com/go-gpviz/gpviz/internal/setup"
	"github.com/go-gpviz/gpviz/internal/watch"
)

var (
	_ setup.EngineConfigProvider = (*Config)(nil)
	_ setup.SceneConfigProvider  = (*Config)(nil)
	_ setup.WatchConfigProvider  = (*Config)(nil)
	_ setup.PresetConfigProvider = (*Config)(nil)
)

type Config struct {
	SrvAddr   string `envconfig:"GPVIZ_ADDR" default:":8878"`
	Engine    gp.Config
	Scene     scene.Config
	Watch     watch.Config
	Preset    preset.Config
	Observe   observe.Config
	Posterior posterior.Config
	Sample    sample.Config
	SceneAPI  scenehttp.Config
}

func (c Config) EngineConfig() *gp.Config {
	return &c.Engine
}

func (c Config) SceneConfig() *scene.Config {
	return &c.Scene
}

func (c Config) WatchConfig() *watch.Config {
	return &c.Watch
}

func (c Config) PresetConfig() *preset.Config {
	return &c.Preset
}
