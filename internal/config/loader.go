package config

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/vango-dev/fibers/internal/errors"
)

// configName is the config file name without extension.
const configName = "fibers"

// envPrefix is the environment variable prefix.
const envPrefix = "FIBERS"

// Load reads the configuration from defaults, a config file and the
// environment, then validates it. If path is empty, fibers.yaml or
// fibers.json is looked up in the working directory and a missing file is
// not an error. Read errors are E020 coded, validation errors E021.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !stderrors.As(err, &notFound) {
			return nil, errors.New("E020").Wrap(err).
				WithSuggestion("Check that the file exists and is valid YAML or JSON")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("E020").Wrap(err)
	}
	cfg.configPath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("scheduler.budget", d.Scheduler.Budget)
	v.SetDefault("scheduler.gap", d.Scheduler.Gap)
	v.SetDefault("scheduler.post_queue", d.Scheduler.PostQueue)

	v.SetDefault("engine.threshold", d.Engine.Threshold)
	v.SetDefault("engine.commit_mode", d.Engine.CommitMode)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.title", d.Server.Title)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.ping_interval", d.Server.PingInterval)
	v.SetDefault("server.send_queue", d.Server.SendQueue)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("publish.region", d.Publish.Region)
	v.SetDefault("publish.endpoint", d.Publish.Endpoint)
	v.SetDefault("publish.path_style", d.Publish.PathStyle)
}
