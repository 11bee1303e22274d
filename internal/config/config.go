package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/atikulmunna/dlcount/internal/store"
)

// Config holds every setting of a run. It is built once from viper and then
// passed down explicitly.
type Config struct {
	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`

	Store struct {
		Driver string `mapstructure:"driver"`
		Path   string `mapstructure:"path"`
	} `mapstructure:"store"`

	Counts struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"counts"`

	Report struct {
		Path  string `mapstructure:"path"`
		Start string `mapstructure:"start"`
	} `mapstructure:"report"`

	Publish struct {
		Bucket  string        `mapstructure:"bucket"`
		Prefix  string        `mapstructure:"prefix"`
		Region  string        `mapstructure:"region"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"publish"`

	Serve struct {
		Addr string `mapstructure:"addr"`
	} `mapstructure:"serve"`
}

// EnvPrefix is prepended to every key read from the environment:
// publish.bucket is read from DLCOUNT_PUBLISH_BUCKET.
const EnvPrefix = "DLCOUNT"

// SetDefaults registers the default value of every key on v. Unmarshal only
// sees environment values for keys viper already knows, so every key is
// registered here, even those whose default is empty.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.SetDefault("store.driver", store.DriverJSON)
	v.SetDefault("store.path", "database.json")
	v.SetDefault("counts.path", "download_counts.json")
	v.SetDefault("report.path", "stats.txt")
	v.SetDefault("report.start", "08.10.2021")
	v.SetDefault("publish.bucket", "")
	v.SetDefault("publish.prefix", "stats/")
	v.SetDefault("publish.region", "")
	v.SetDefault("publish.timeout", 30*time.Second)
	v.SetDefault("serve.addr", ":8090")
}

// BindEnv makes v read DLCOUNT_* environment variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case store.DriverJSON, store.DriverSQLite:
	default:
		return fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver)
	}
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	if c.Store.Driver == store.DriverJSON && c.Counts.Path == "" {
		return fmt.Errorf("counts.path must not be empty")
	}
	if c.Report.Path == "" {
		return fmt.Errorf("report.path must not be empty")
	}
	return nil
}

// WithDumpDir returns a copy of c whose store, counts and report files live
// in dir. Only the file names of the configured paths are kept.
func (c Config) WithDumpDir(dir string) Config {
	if dir == "" {
		return c
	}
	c.Store.Path = filepath.Join(dir, filepath.Base(c.Store.Path))
	c.Counts.Path = filepath.Join(dir, filepath.Base(c.Counts.Path))
	c.Report.Path = filepath.Join(dir, filepath.Base(c.Report.Path))
	return c
}

// StoreOptions returns the persistence options described by c.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:     c.Store.Driver,
		Path:       c.Store.Path,
		CountsPath: c.Counts.Path,
	}
}
