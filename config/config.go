// Package config holds the configuration of the river level pipeline.
//
// Configuration is loaded from one or more YAML files layered over Default
// and validated once. Every field has a documented default, so an empty file
// yields a working setup for the two reference stations.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	validator "gopkg.in/validator.v2"
	yaml "gopkg.in/yaml.v3"
)

var errNoFilesToLoad = errors.New("config: attempt to load configuration with no files")

// Configuration is the top level configuration.
type Configuration struct {
	// Threshold is the number of points each series is reduced to.
	Threshold int `yaml:"threshold" validate:"min=3"`

	Fetch    FetchConfiguration     `yaml:"fetch"`
	Output   OutputConfiguration    `yaml:"output"`
	S3       S3Configuration        `yaml:"s3"`
	Display  DisplayConfiguration   `yaml:"display"`
	Logging  LoggingConfiguration   `yaml:"logging"`
	Stations []StationConfiguration `yaml:"stations" validate:"nonzero"`
}

// FetchConfiguration controls CSV downloads.
type FetchConfiguration struct {
	// Timeout of a single HTTP request.
	Timeout time.Duration `yaml:"timeout" validate:"nonzero"`
	// MaxRetries after the first failed attempt.
	MaxRetries uint64 `yaml:"max_retries"`
	// InitialInterval of the exponential backoff between attempts.
	InitialInterval time.Duration `yaml:"initial_interval" validate:"nonzero"`
}

// OutputConfiguration controls local files and the framebuffer layout.
type OutputConfiguration struct {
	Dir string `yaml:"dir" validate:"nonzero"`
	// TwoColor emits a black plane followed by a red plane.
	TwoColor bool `yaml:"two_color"`
}

// S3Configuration is the object storage destination.
type S3Configuration struct {
	Bucket    string `yaml:"bucket"`
	KeyPrefix string `yaml:"key_prefix"`
	Region    string `yaml:"region"`
}

// DisplayConfiguration names the pins of the e-paper panel.
type DisplayConfiguration struct {
	SPI  string `yaml:"spi"`
	DC   string `yaml:"dc" validate:"nonzero"`
	RST  string `yaml:"rst"`
	Busy string `yaml:"busy" validate:"nonzero"`
	// Hold is how long the panel stays powered after a refresh.
	Hold time.Duration `yaml:"hold"`
}

// LoggingConfiguration configures the zap logger.
type LoggingConfiguration struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// StationConfiguration describes one gauge.
type StationConfiguration struct {
	Name                 string  `yaml:"name" validate:"nonzero"`
	URL                  string  `yaml:"url"`
	TopOfNormalRangeM    float64 `yaml:"top_of_normal_range_m"`
	HighestEverRecordedM float64 `yaml:"highest_ever_recorded_m"`
	YAxisBottomM         float64 `yaml:"y_axis_bottom_m"`
	YAxisTopM            float64 `yaml:"y_axis_top_m"`
}

// Default returns the configuration used when no file overrides a field.
func Default() Configuration {
	return Configuration{
		Threshold: 200,
		Fetch: FetchConfiguration{
			Timeout:         15 * time.Second,
			MaxRetries:      3,
			InitialInterval: 500 * time.Millisecond,
		},
		Output: OutputConfiguration{
			Dir: ".",
		},
		Display: DisplayConfiguration{
			DC:   "GPIO25",
			RST:  "GPIO17",
			Busy: "GPIO24",
			Hold: 20 * time.Second,
		},
		Logging: LoggingConfiguration{
			Level: "info",
		},
		Stations: []StationConfiguration{
			{
				Name:                 "Marlow Downstream",
				URL:                  "https://check-for-flooding.service.gov.uk/station-csv/7396/downstream",
				TopOfNormalRangeM:    3.23,
				HighestEverRecordedM: 4.73,
				YAxisBottomM:         2.5,
				YAxisTopM:            5.0,
			},
			{
				Name:                 "Cookham Upstream",
				URL:                  "https://check-for-flooding.service.gov.uk/station-csv/7162",
				TopOfNormalRangeM:    0.6,
				HighestEverRecordedM: 1.46,
				YAxisBottomM:         0.0,
				YAxisTopM:            2.0,
			},
		},
	}
}

// LoadFiles loads the named YAML files in order over Default and validates
// the result. Later files override earlier ones.
func LoadFiles(fnames ...string) (Configuration, error) {
	cfg := Default()
	if len(fnames) == 0 {
		return cfg, errNoFilesToLoad
	}
	for _, fname := range fnames {
		data, err := os.ReadFile(fname)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: unable to parse %s: %w", fname, err)
		}
	}
	return cfg, cfg.Validate()
}

// Validate checks struct constraints and the cross-field rules.
func (c Configuration) Validate() error {
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	for _, s := range c.Stations {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the axis bounds of a station.
func (s StationConfiguration) Validate() error {
	if err := validator.Validate(s); err != nil {
		return fmt.Errorf("config: station %q: %w", s.Name, err)
	}
	if s.YAxisTopM != 0 && s.YAxisTopM <= s.YAxisBottomM {
		return fmt.Errorf("config: station %q: y_axis_top_m %v must be above y_axis_bottom_m %v",
			s.Name, s.YAxisTopM, s.YAxisBottomM)
	}
	return nil
}

// BuildLogger builds a zap logger from the logging configuration.
func (c LoggingConfiguration) BuildLogger() (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if c.Level != "" {
		if err := level.UnmarshalText([]byte(c.Level)); err != nil {
			return nil, fmt.Errorf("config: invalid log level %q: %w", c.Level, err)
		}
	}

	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
