package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hed1ad/goguardts/internal/config"
	"github.com/hed1ad/goguardts/pkg/detectors"
	"github.com/hed1ad/goguardts/pkg/detectors/gbreg"
	gio "github.com/hed1ad/goguardts/pkg/io"
	"github.com/hed1ad/goguardts/pkg/io/csv"
	"github.com/hed1ad/goguardts/pkg/io/pcap"
)

// overrides copies a flag value from the flag-bound config into the run config.
var overrides = map[string]func(dst, src *config.Config){
	"window":        func(d, s *config.Config) { d.Detector.WindowSize = s.Detector.WindowSize },
	"step":          func(d, s *config.Config) { d.Detector.StepSize = s.Detector.StepSize },
	"contamination": func(d, s *config.Config) { d.Detector.Contamination = s.Detector.Contamination },
	"seed":          func(d, s *config.Config) { d.Detector.Seed = s.Detector.Seed },
	"estimators":    func(d, s *config.Config) { d.Detector.Estimators = s.Detector.Estimators },
	"learning-rate": func(d, s *config.Config) { d.Detector.LearningRate = s.Detector.LearningRate },
	"max-depth":     func(d, s *config.Config) { d.Detector.MaxDepth = s.Detector.MaxDepth },
	"subsample":     func(d, s *config.Config) { d.Detector.Subsample = s.Detector.Subsample },
	"input":         func(d, s *config.Config) { d.Input.Path = s.Input.Path },
	"train":         func(d, s *config.Config) { d.Input.TrainPath = s.Input.TrainPath },
	"column":        func(d, s *config.Config) { d.Input.Column = s.Input.Column },
	"no-header":     func(d, s *config.Config) { d.Input.NoHeader = s.Input.NoHeader },
	"pcap":          func(d, s *config.Config) { d.Input.PCAP = s.Input.PCAP },
	"live":          func(d, s *config.Config) { d.Input.Live = s.Input.Live },
	"feature":       func(d, s *config.Config) { d.Input.Feature = s.Input.Feature },
	"stream":        func(d, s *config.Config) { d.Input.Stream = s.Input.Stream },
	"output":        func(d, s *config.Config) { d.Output.Path = s.Output.Path },
	"save-model":    func(d, s *config.Config) { d.Output.SaveModel = s.Output.SaveModel },
	"load-model":    func(d, s *config.Config) { d.Output.LoadModel = s.Output.LoadModel },
	"log-level":     func(d, s *config.Config) { d.Log.Level = s.Log.Level },
	"log-format":    func(d, s *config.Config) { d.Log.Format = s.Log.Format },
}

// fitFlags only affect fitting and are ignored when a saved model is loaded.
var fitFlags = []string{
	"train", "window", "step", "contamination", "seed",
	"estimators", "learning-rate", "max-depth", "subsample",
}

const (
	liveSnaplen = 65536
	liveTimeout = time.Second
)

func newDetectCmd() *cobra.Command {
	var configPath string
	flags := config.Default()

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Fit on a series and label anomalous samples",
		Long: `Fit a sliding-window gradient-boosted regression model and write one
result row per input sample. The first window-size rows are padding and are
always labeled 0.

With --stream or --live, samples are scored one at a time as they are read
and each result row is written immediately. The model must come from --train
or --load-model.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, ignored, err := resolveConfig(cmd.Flags(), configPath, flags)
			if err != nil {
				return err
			}
			return runDetect(cmd.Context(), cfg, ignored, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML run configuration")
	f.IntVarP(&flags.Detector.WindowSize, "window", "w", 0, "window size in samples")
	f.IntVarP(&flags.Detector.StepSize, "step", "s", flags.Detector.StepSize, "displacement between windows")
	f.Float64Var(&flags.Detector.Contamination, "contamination", flags.Detector.Contamination, "expected anomaly fraction in (0, 0.5)")
	f.Int64Var(&flags.Detector.Seed, "seed", flags.Detector.Seed, "random seed")
	f.IntVar(&flags.Detector.Estimators, "estimators", 0, "boosting stages (0 = default)")
	f.Float64Var(&flags.Detector.LearningRate, "learning-rate", 0, "boosting shrinkage (0 = default)")
	f.IntVar(&flags.Detector.MaxDepth, "max-depth", 0, "tree depth (0 = default)")
	f.Float64Var(&flags.Detector.Subsample, "subsample", 0, "fraction of windows per tree (0 = default)")
	f.StringVarP(&flags.Input.Path, "input", "i", "", "CSV series to score")
	f.StringVar(&flags.Input.TrainPath, "train", "", "CSV series to fit on (default: --input)")
	f.StringVar(&flags.Input.Column, "column", "", "CSV column name (default: first column)")
	f.BoolVar(&flags.Input.NoHeader, "no-header", false, "CSV files have no header row")
	f.StringVar(&flags.Input.PCAP, "pcap", "", "packet capture to score instead of a CSV")
	f.StringVar(&flags.Input.Live, "live", "", "network interface to capture from (implies --stream)")
	f.StringVar(&flags.Input.Feature, "feature", flags.Input.Feature, "packet feature for --pcap and --live")
	f.BoolVar(&flags.Input.Stream, "stream", false, "score samples as they are read")
	f.StringVarP(&flags.Output.Path, "output", "o", "", "results CSV (default: stdout)")
	f.StringVar(&flags.Output.SaveModel, "save-model", "", "write the fitted model to this file")
	f.StringVar(&flags.Output.LoadModel, "load-model", "", "load a saved model instead of fitting")
	f.StringVar(&flags.Log.Level, "log-level", flags.Log.Level, "log level")
	f.StringVar(&flags.Log.Format, "log-format", flags.Log.Format, "log format: text or json")

	return cmd
}

// resolveConfig starts from the config file, or defaults, and applies every
// flag set on the command line. It also returns the fitting flags that were
// set but have no effect because a saved model is loaded.
func resolveConfig(fs *pflag.FlagSet, path string, flags *config.Config) (*config.Config, []string, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}

	fs.Visit(func(f *pflag.Flag) {
		if apply, ok := overrides[f.Name]; ok {
			apply(cfg, flags)
		}
	})

	var ignored []string
	if cfg.Output.LoadModel != "" {
		for _, name := range fitFlags {
			if fs.Changed(name) {
				ignored = append(ignored, name)
			}
		}
		if cfg.Detector.WindowSize == 0 {
			// The saved model carries its own window size.
			cfg.Detector.WindowSize = 1
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, ignored, nil
}

func runDetect(ctx context.Context, cfg *config.Config, ignored []string, stdout, stderr io.Writer) error {
	logger, err := cfg.Logger()
	if err != nil {
		return err
	}
	logger.SetOutput(stderr)

	for _, name := range ignored {
		logger.WithField("flag", name).Warn("flag has no effect with --load-model")
	}

	detector, err := gbreg.New(cfg.Detector.WindowSize, detectorOptions(cfg, logger)...)
	if err != nil {
		return err
	}

	var data [][]float64
	if !cfg.Streaming() {
		if data, err = readInput(cfg); err != nil {
			return err
		}
		logger.WithField("rows", len(data)).Info("series loaded")
	}

	if err := prepareModel(cfg, detector, data, logger); err != nil {
		return err
	}

	if cfg.Streaming() {
		return streamResults(ctx, cfg, detector, stdout, logger)
	}

	pred, err := detector.Predict(data)
	if err != nil {
		return fmt.Errorf("predicting: %w", err)
	}
	results := gio.Results(pred, detector.Config().WindowSize)

	if err := writeResults(cfg.Output.Path, stdout, results); err != nil {
		return err
	}

	anomalies := 0
	for _, r := range results {
		if r.IsAnomaly {
			anomalies++
		}
	}
	logger.WithFields(logrus.Fields{
		"rows":      len(results),
		"anomalies": anomalies,
		"threshold": detector.Threshold(),
	}).Info("detection complete")

	return nil
}

// prepareModel loads the saved model or fits one, on the training series when
// given and on data otherwise, then saves it if requested.
func prepareModel(cfg *config.Config, detector *gbreg.Detector, data [][]float64, logger logrus.FieldLogger) error {
	if cfg.Output.LoadModel != "" {
		raw, err := os.ReadFile(cfg.Output.LoadModel)
		if err != nil {
			return err
		}
		if err := detector.Load(raw); err != nil {
			return fmt.Errorf("loading model %s: %w", cfg.Output.LoadModel, err)
		}
		logger.WithField("path", cfg.Output.LoadModel).Info("model loaded")
	} else {
		train := data
		if cfg.Input.TrainPath != "" {
			var err error
			if train, err = readCSV(cfg, cfg.Input.TrainPath); err != nil {
				return err
			}
		}
		if err := detector.Fit(train); err != nil {
			return fmt.Errorf("fitting: %w", err)
		}
	}

	if cfg.Output.SaveModel != "" {
		raw, err := detector.Save()
		if err != nil {
			return err
		}
		if err := os.WriteFile(cfg.Output.SaveModel, raw, 0o644); err != nil {
			return err
		}
		logger.WithField("path", cfg.Output.SaveModel).Info("model saved")
	}
	return nil
}

// streamResults scores the input one sample at a time and writes each result
// row as soon as it is produced. Cancelling ctx ends the run without error.
func streamResults(ctx context.Context, cfg *config.Config, detector *gbreg.Detector, stdout io.Writer, logger logrus.FieldLogger) error {
	reader, err := openStream(cfg)
	if err != nil {
		return err
	}
	defer reader.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples, err := reader.Stream(ctx)
	if err != nil {
		return err
	}

	w, err := openWriter(cfg.Output.Path, stdout)
	if err != nil {
		return err
	}

	scores := make(chan detectors.Score, 100)
	done := make(chan error, 1)
	go func() {
		done <- detector.PredictStream(ctx, samples, scores)
	}()

	var (
		rows, anomalies int
		writeErr        error
	)
	for s := range scores {
		if writeErr != nil {
			continue
		}
		r := gio.ScoreResult(s)
		if writeErr = w.Write(r); writeErr == nil {
			writeErr = w.Flush()
		}
		if writeErr != nil {
			cancel()
			continue
		}

		rows++
		if r.IsAnomaly {
			anomalies++
			logger.WithFields(logrus.Fields{
				"index": r.Index,
				"score": r.Score,
			}).Info("anomaly detected")
		}
	}

	streamErr := <-done
	closeErr := w.Close()
	switch {
	case writeErr != nil:
		return writeErr
	case streamErr != nil && !errors.Is(streamErr, context.Canceled):
		return fmt.Errorf("streaming: %w", streamErr)
	case closeErr != nil:
		return closeErr
	}

	logger.WithFields(logrus.Fields{
		"rows":      rows,
		"anomalies": anomalies,
		"threshold": detector.Threshold(),
	}).Info("stream complete")

	return nil
}

func detectorOptions(cfg *config.Config, logger logrus.FieldLogger) []gbreg.Option {
	opts := []gbreg.Option{
		gbreg.WithConfig(cfg.DetectorConfig()),
		gbreg.WithLogger(logger),
	}
	if cfg.Detector.Estimators > 0 {
		opts = append(opts, gbreg.WithEstimators(cfg.Detector.Estimators))
	}
	if cfg.Detector.LearningRate > 0 {
		opts = append(opts, gbreg.WithLearningRate(cfg.Detector.LearningRate))
	}
	if cfg.Detector.MaxDepth > 0 {
		opts = append(opts, gbreg.WithMaxDepth(cfg.Detector.MaxDepth))
	}
	if cfg.Detector.Subsample > 0 {
		opts = append(opts, gbreg.WithSubsample(cfg.Detector.Subsample))
	}
	return opts
}

// readInput reads the series to score from the PCAP or CSV input.
func readInput(cfg *config.Config) ([][]float64, error) {
	if cfg.Input.PCAP == "" {
		return readCSV(cfg, cfg.Input.Path)
	}

	r, err := pcap.NewFileReader(cfg.Input.PCAP, pcap.Feature(cfg.Input.Feature))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.Read()
}

// openStream opens the live interface, capture file or CSV series to stream.
func openStream(cfg *config.Config) (gio.Reader, error) {
	switch {
	case cfg.Input.Live != "":
		return pcap.NewLiveReader(cfg.Input.Live, liveSnaplen, true, liveTimeout, pcap.Feature(cfg.Input.Feature))
	case cfg.Input.PCAP != "":
		return pcap.NewFileReader(cfg.Input.PCAP, pcap.Feature(cfg.Input.Feature))
	default:
		return openCSV(cfg, cfg.Input.Path)
	}
}

func readCSV(cfg *config.Config, path string) ([][]float64, error) {
	r, err := openCSV(cfg, path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return r.Read()
}

func openCSV(cfg *config.Config, path string) (*csv.Reader, error) {
	opts := []csv.Option{csv.WithHeader(!cfg.Input.NoHeader)}
	if cfg.Input.Column != "" {
		opts = append(opts, csv.WithColumn(cfg.Input.Column))
	} else {
		opts = append(opts, csv.WithColumnIndex(0))
	}

	return csv.NewReader(path, opts...)
}

// openWriter writes results to path, or to stdout when path is empty.
func openWriter(path string, stdout io.Writer) (*csv.Writer, error) {
	if path == "" {
		return csv.NewWriterTo(stdout)
	}
	return csv.NewWriter(path)
}

func writeResults(path string, stdout io.Writer, results []gio.Result) error {
	w, err := openWriter(path, stdout)
	if err != nil {
		return err
	}

	if err := w.WriteAll(results); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
