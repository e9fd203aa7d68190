// Package config loads run configuration for the goguardts command.
package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/hed1ad/goguardts/pkg/detectors"
)

// Config represents the top-level configuration for a detection run.
type Config struct {
	Detector Detector `yaml:"detector"`
	Input    Input    `yaml:"input"`
	Output   Output   `yaml:"output"`
	Log      Log      `yaml:"log"`
}

// Detector holds the windowing, thresholding and boosting parameters.
type Detector struct {
	WindowSize    int     `yaml:"window_size"`
	StepSize      int     `yaml:"step_size"`
	Contamination float64 `yaml:"contamination"`
	Seed          int64   `yaml:"seed"`

	// Boosting settings; zero means the regressor default
	Estimators   int     `yaml:"estimators"`
	LearningRate float64 `yaml:"learning_rate"`
	MaxDepth     int     `yaml:"max_depth"`
	Subsample    float64 `yaml:"subsample"`
}

// Input selects where the series comes from.
type Input struct {
	Path      string `yaml:"path"`       // CSV to score
	TrainPath string `yaml:"train_path"` // CSV to fit on; defaults to Path
	Column    string `yaml:"column"`     // header name; first column when empty
	NoHeader  bool   `yaml:"no_header"`
	PCAP      string `yaml:"pcap"`    // capture to score instead of a CSV
	Live      string `yaml:"live"`    // interface to capture from; implies Stream
	Feature   string `yaml:"feature"` // packet feature for PCAP and live input
	Stream    bool   `yaml:"stream"`  // score samples as they are read
}

// Output selects where results and models go.
type Output struct {
	Path      string `yaml:"path"`       // results CSV; stdout when empty
	SaveModel string `yaml:"save_model"` // write the fitted model here
	LoadModel string `yaml:"load_model"` // skip fitting and load this model
}

// Log configures logrus.
type Log struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", ...
	Format string `yaml:"format"` // "text" or "json"
}

// Default returns a configuration with every optional field filled.
func Default() *Config {
	dc := detectors.DefaultConfig()
	return &Config{
		Detector: Detector{
			StepSize:      dc.StepSize,
			Contamination: dc.Contamination,
			Seed:          dc.RandomSeed,
		},
		Input: Input{
			Feature: "packet_size",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML file and fills unset fields with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return cfg, nil
}

// DetectorConfig returns the shared detector configuration.
func (c *Config) DetectorConfig() detectors.Config {
	return detectors.Config{
		WindowSize:    c.Detector.WindowSize,
		StepSize:      c.Detector.StepSize,
		Contamination: c.Detector.Contamination,
		RandomSeed:    c.Detector.Seed,
	}
}

// Validate checks the configuration before a run.
func (c *Config) Validate() error {
	if err := c.DetectorConfig().Validate(); err != nil {
		return err
	}
	sources := 0
	for _, s := range []string{c.Input.Path, c.Input.PCAP, c.Input.Live} {
		if s != "" {
			sources++
		}
	}
	if sources == 0 {
		return fmt.Errorf("config: one of input.path, input.pcap or input.live is required")
	}
	if sources > 1 {
		return fmt.Errorf("config: input.path, input.pcap and input.live are mutually exclusive")
	}
	if c.Streaming() && c.Output.LoadModel == "" && c.Input.TrainPath == "" {
		return fmt.Errorf("config: streaming needs input.train_path or output.load_model")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	return nil
}

// Streaming reports whether samples are scored one at a time as they are read.
func (c *Config) Streaming() bool {
	return c.Input.Stream || c.Input.Live != ""
}

// Logger builds a logrus logger from the log settings.
func (c *Config) Logger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}

	logger := logrus.New()
	logger.SetLevel(level)
	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}
