package imageserver

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pyropy/imgserve/lib/utils"
)

type Config struct {
	Server struct {
		Host string `envconfig:"SERVER_HOST"`
		Port int    `envconfig:"SERVER_PORT" default:"8000"`
	}
	RPC struct {
		Port int `envconfig:"RPC_PORT" default:"8001"`
	}
	Images struct {
		Root           string `envconfig:"STATIC_ROOT" default:"static"`
		StandardWidths []int  `envconfig:"STANDARD_WIDTHS"`
	}
	Cache struct {
		Capacity      int           `envconfig:"CACHE_CAPACITY" default:"50"`
		StatsInterval time.Duration `envconfig:"STATS_INTERVAL" default:"60s"`
	}
	Store struct {
		Path string `envconfig:"STORE_PATH" default:"data"`
	}
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if len(cfg.Images.StandardWidths) > 0 {
		cfg.Images.StandardWidths = utils.Unique(cfg.Images.StandardWidths)
	}

	return &cfg, nil
}
