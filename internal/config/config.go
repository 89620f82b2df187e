// Package config loads scanner settings from a config file and the
// environment. Precedence, lowest to highest: built-in defaults, the
// .depscan.yaml config file, DEPSCAN_* environment variables, command-line
// flags (applied by the CLI after loading).
package config

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/viper"

	"github.com/disruptiq/depscan/pkg/errors"
)

// Config holds all tunable scanner settings.
type Config struct {
	IgnorePaths []string `mapstructure:"ignore_paths"` // extra gitignore-style patterns
	Output      string   `mapstructure:"output"`       // report path
	Format      string   `mapstructure:"format"`       // report format: json or summary
	SBOMOutput  string   `mapstructure:"sbom_output"`  // SBOM path
	NVDAPIKey   string   `mapstructure:"nvd_api_key"`  // raises the NVD rate limit
}

// Load reads configuration. When path is empty the loader searches for
// .depscan.yaml in the working directory and the home directory; a missing
// file is fine. An explicit path that cannot be read is an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("output", "depscan-report.json")
	v.SetDefault("format", "json")
	v.SetDefault("sbom_output", "sbom.json")
	// Registering empty defaults keeps env-only keys visible to Unmarshal.
	v.SetDefault("ignore_paths", []string{})
	v.SetDefault("nvd_api_key", "")

	v.SetEnvPrefix("DEPSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "reading config %s", path)
		}
	} else {
		v.SetConfigName(".depscan")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !stderrors.As(err, &notFound) {
				return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "reading config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decoding config")
	}
	return &cfg, nil
}
