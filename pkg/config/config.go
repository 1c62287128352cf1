package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/bobboyms/graphstore/pkg/errors"
)

// Config reúne tudo que é decidido uma vez no startup do processo:
// estratégia de CC, esquema de armazenamento KCV e logging.
type Config struct {
	// Strategy: "serial", "2pl" ou "occ"
	Strategy string `mapstructure:"strategy"`
	// Scheme: "composite" ou "serialized"
	Scheme string `mapstructure:"scheme"`

	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Default returns the configuration used when nothing is provided.
func Default() *Config {
	return &Config{
		Strategy: "2pl",
		Scheme:   "composite",
		LogLevel: "info",
		LogJSON:  false,
	}
}

// Load lê a configuração de um arquivo YAML opcional + variáveis de
// ambiente com prefixo GRAPHSTORE (ex: GRAPHSTORE_STRATEGY=occ).
// path vazio = só defaults + env.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("strategy", "2pl")
	v.SetDefault("scheme", "composite")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	v.SetEnvPrefix("GRAPHSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, &errors.InvalidArgumentError{
				Msg: "cannot read config file " + path + ": " + err.Error(),
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, &errors.InvalidArgumentError{
			Msg: "cannot parse config: " + err.Error(),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate confere os campos enumerados.
func (c *Config) Validate() error {
	switch c.Strategy {
	case "serial", "2pl", "occ":
	default:
		return &errors.InvalidArgumentError{
			Msg: "strategy must be \"serial\", \"2pl\" or \"occ\", got " + c.Strategy,
		}
	}

	switch c.Scheme {
	case "composite", "serialized":
	default:
		return &errors.InvalidArgumentError{
			Msg: "scheme must be \"composite\" or \"serialized\", got " + c.Scheme,
		}
	}
	return nil
}
