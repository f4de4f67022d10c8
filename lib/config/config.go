package config

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/xcs-tools/bcg-ident/lib/util/logger"
	"gopkg.in/yaml.v3"
)

var (
	CfgFile string
	log     = logger.GetLogger()
)

const (
	// DefaultConfigName is the base name of the config file searched for in
	// the working directory.
	DefaultConfigName = "bcgident"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "BCGIDENT"

	StandardFilePermissions = 0o644
	StandardDirPermissions  = 0o755
)

// InitConfig points viper at the config file, installs defaults and
// environment overrides, and reads the file if there is one.
func InitConfig() error {
	if CfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(DefaultConfigName)
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Load defaults
	setDefaults()

	return handleConfigFile()
}

func setDefaults() {
	d := Defaults()

	viper.SetDefault("sample_file", d.SampleFile)

	viper.SetDefault("cosmology.h0", d.Cosmology.H0)
	viper.SetDefault("cosmology.om0", d.Cosmology.Om0)
	viper.SetDefault("cosmology.ode0", d.Cosmology.Ode0)
	viper.SetDefault("cosmology.tcmb0", d.Cosmology.Tcmb0)
	viper.SetDefault("cosmology.neff", d.Cosmology.Neff)

	viper.SetDefault("side_length.value", d.SideLength.Value)
	viper.SetDefault("side_length.unit", d.SideLength.Unit)

	missions := make([]map[string]any, len(d.Missions))
	for i, m := range d.Missions {
		missions[i] = map[string]any{"name": m.Name, "include": m.Include}
	}
	viper.SetDefault("missions", missions)

	viper.SetDefault("history.dir", d.History.Dir)
	viper.SetDefault("history.file", d.History.File)
}

func handleConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if CfgFile != "" {
				return oops.Wrapf(err, "config file %s is not found", CfgFile)
			}
			log.WithFields(logger.Fields{
				"at":     "handleConfigFile",
				"reason": "no_config_file",
			}).Debug("no config file found, using defaults")
			return nil
		}
		log.WithError(err).Error("Error reading config file")
		return oops.Wrapf(err, "reading config file")
	}
	log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	return nil
}

// NewProjectConfigFromViper builds a ProjectConfig from current viper
// settings.
func NewProjectConfigFromViper() (*ProjectConfig, error) {
	var missions []MissionToggle
	if err := viper.UnmarshalKey("missions", &missions); err != nil {
		log.WithError(err).Error("Error parsing missions")
		return nil, oops.Wrapf(err, "parsing missions")
	}

	return &ProjectConfig{
		SampleFile: viper.GetString("sample_file"),
		Cosmology: CosmologyConfig{
			H0:    viper.GetFloat64("cosmology.h0"),
			Om0:   viper.GetFloat64("cosmology.om0"),
			Ode0:  viper.GetFloat64("cosmology.ode0"),
			Tcmb0: viper.GetFloat64("cosmology.tcmb0"),
			Neff:  viper.GetFloat64("cosmology.neff"),
		},
		SideLength: SideLengthConfig{
			Value: viper.GetFloat64("side_length.value"),
			Unit:  viper.GetString("side_length.unit"),
		},
		Missions: missions,
		History: HistoryConfig{
			Dir:  viper.GetString("history.dir"),
			File: viper.GetString("history.file"),
		},
	}, nil
}

// Load runs InitConfig and returns the validated project configuration.
func Load() (*ProjectConfig, error) {
	if err := InitConfig(); err != nil {
		return nil, err
	}
	cfg, err := NewProjectConfigFromViper()
	if err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders cfg as a YAML config file.
func Marshal(cfg *ProjectConfig) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, oops.Wrapf(err, "encoding configuration")
	}
	return data, nil
}

// WriteConfigFile writes cfg to path on fsys, refusing to replace an
// existing file.
func WriteConfigFile(fsys afero.Fs, path string, cfg *ProjectConfig) error {
	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return oops.Wrapf(err, "checking config file %s", path)
	}
	if exists {
		return oops.Errorf("config file %s already exists", path)
	}
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, StandardDirPermissions); err != nil {
			return oops.Wrapf(err, "creating config directory %s", dir)
		}
	}
	if err := afero.WriteFile(fsys, path, data, StandardFilePermissions); err != nil {
		return oops.Wrapf(err, "writing config file %s", path)
	}
	log.WithField("path", path).Debug("wrote configuration file")
	return nil
}
