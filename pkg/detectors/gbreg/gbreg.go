// Package gbreg implements a sliding-window regression outlier detector for
// univariate time series.
//
// Every window of windowSize samples is used as a feature vector to predict
// the sample that immediately follows it, using gradient-boosted regression
// trees. The anomaly score of a window is the absolute residual between the
// predicted and the observed next value.
package gbreg

import (
	"math"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hed1ad/goguardts/pkg/detectors"
	"github.com/hed1ad/goguardts/pkg/detectors/boost"
	"github.com/hed1ad/goguardts/pkg/detectors/window"
)

var _ detectors.StreamDetector = (*Detector)(nil)

// Detector is the gradient-boosted regression outlier detector.
type Detector struct {
	mu sync.RWMutex

	// Configuration
	cfg       detectors.Config
	boostOpts []boost.Option
	log       logrus.FieldLogger

	// Trained model; nil until Fit or Load succeeds
	model *boost.Model
	state *detectors.FittedState
}

// Option configures a Detector.
type Option func(*Detector)

// WithStepSize sets the displacement between consecutive windows.
func WithStepSize(s int) Option {
	return func(d *Detector) {
		d.cfg.StepSize = s
	}
}

// WithContamination sets the expected proportion of anomalies.
func WithContamination(c float64) Option {
	return func(d *Detector) {
		d.cfg.Contamination = c
	}
}

// WithSeed sets the random seed for reproducibility.
func WithSeed(seed int64) Option {
	return func(d *Detector) {
		d.cfg.RandomSeed = seed
	}
}

// WithEstimators sets the number of boosting stages.
func WithEstimators(n int) Option {
	return func(d *Detector) {
		d.boostOpts = append(d.boostOpts, boost.WithEstimators(n))
	}
}

// WithLearningRate sets the boosting shrinkage.
func WithLearningRate(lr float64) Option {
	return func(d *Detector) {
		d.boostOpts = append(d.boostOpts, boost.WithLearningRate(lr))
	}
}

// WithMaxDepth sets the depth of each regression tree.
func WithMaxDepth(depth int) Option {
	return func(d *Detector) {
		d.boostOpts = append(d.boostOpts, boost.WithMaxDepth(depth))
	}
}

// WithSubsample sets the fraction of windows drawn for each tree.
func WithSubsample(f float64) Option {
	return func(d *Detector) {
		d.boostOpts = append(d.boostOpts, boost.WithSubsample(f))
	}
}

// WithLogger sets the logger (default: logrus.StandardLogger()).
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Detector) {
		if l != nil {
			d.log = l
		}
	}
}

// WithConfig replaces the step size, contamination and seed with cfg.
// The window size passed to New always wins.
func WithConfig(cfg detectors.Config) Option {
	return func(d *Detector) {
		d.cfg.StepSize = cfg.StepSize
		d.cfg.Contamination = cfg.Contamination
		d.cfg.RandomSeed = cfg.RandomSeed
	}
}

// New creates a Detector over windows of windowSize samples.
func New(windowSize int, opts ...Option) (*Detector, error) {
	cfg := detectors.DefaultConfig()
	cfg.WindowSize = windowSize

	d := &Detector{
		cfg: cfg,
		log: logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(d)
	}

	if err := d.cfg.Validate(); err != nil {
		return nil, err
	}
	if err := d.regressor().Validate(); err != nil {
		return nil, detectors.ConfigErrorf("%v", err)
	}

	return d, nil
}

func (d *Detector) regressor() *boost.Regressor {
	opts := append([]boost.Option{boost.WithSeed(d.cfg.RandomSeed)}, d.boostOpts...)
	return boost.NewRegressor(opts...)
}

// Config returns the detector configuration.
func (d *Detector) Config() detectors.Config {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// Fit trains the regression model on data and thresholds its residuals.
// On error the detector keeps whatever state it had before the call.
func (d *Detector) Fit(data [][]float64) error {
	d.mu.RLock()
	cfg := d.cfg
	reg := d.regressor()
	d.mu.RUnlock()

	sm, y, err := windows(cfg, data)
	if err != nil {
		return err
	}
	if sm.Len() == 0 {
		return detectors.InvalidInputf("sequence of %d rows leaves no windows after trimming (window size %d, step %d)",
			len(data), cfg.WindowSize, cfg.StepSize)
	}

	model, err := reg.Fit(sm.X, y)
	if err != nil {
		return detectors.InvalidInputf("%v", err)
	}

	scores, err := residuals(model, sm, y)
	if err != nil {
		return err
	}

	state, err := detectors.NewFittedState(scores, sm.Left, sm.Right, cfg.Contamination)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.model = model
	d.state = state
	d.mu.Unlock()

	d.log.WithFields(logrus.Fields{
		"windows":    sm.Len(),
		"estimators": reg.Estimators(),
		"threshold":  state.Threshold,
	}).Debug("gbreg: fit complete")

	return nil
}

// FitPredict trains on data and returns the padded training labels.
func (d *Detector) FitPredict(data [][]float64) (*detectors.Prediction, error) {
	if err := d.Fit(data); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	dec := &detectors.Decision{
		Scores:    d.state.DecisionScores,
		LeftInds:  d.state.LeftInds,
		RightInds: d.state.RightInds,
	}
	return detectors.PadPrediction(dec, d.state.Threshold, d.cfg.WindowSize, len(data)), nil
}

// DecisionFunction returns the residual score of every retained window of data.
func (d *Detector) DecisionFunction(data [][]float64) (*detectors.Decision, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.model == nil {
		return nil, detectors.ErrNotFitted
	}

	return d.decision(data)
}

func (d *Detector) decision(data [][]float64) (*detectors.Decision, error) {
	sm, y, err := windows(d.cfg, data)
	if err != nil {
		return nil, err
	}

	dec := &detectors.Decision{
		Scores:    []float64{},
		LeftInds:  sm.Left,
		RightInds: sm.Right,
	}
	if sm.Len() == 0 {
		return dec, nil
	}

	dec.Scores, err = residuals(d.model, sm, y)
	if err != nil {
		return nil, err
	}
	return dec, nil
}

// Predict labels data with 1 for outliers and 0 for inliers.
//
// The result is aligned with the rows of data: the first windowSize entries
// are zero padding, and for step sizes above one the tail is zero padded too.
func (d *Detector) Predict(data [][]float64) (*detectors.Prediction, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.state == nil {
		return nil, detectors.ErrNotFitted
	}

	dec, err := d.decision(data)
	if err != nil {
		return nil, err
	}

	return detectors.PadPrediction(dec, d.state.Threshold, d.cfg.WindowSize, len(data)), nil
}

// PredictProba returns [inlier, outlier] probabilities for every retained
// window, scaled against the range of the training scores.
func (d *Detector) PredictProba(data [][]float64) (*detectors.Probability, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.state == nil {
		return nil, detectors.ErrNotFitted
	}

	dec, err := d.decision(data)
	if err != nil {
		return nil, err
	}

	return &detectors.Probability{
		Proba:     detectors.ScoresToProba(dec.Scores, d.state.ScoreMin, d.state.ScoreMax),
		LeftInds:  dec.LeftInds,
		RightInds: dec.RightInds,
	}, nil
}

// Fitted returns a copy of the training outcome.
func (d *Detector) Fitted() (*detectors.FittedState, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.state == nil {
		return nil, detectors.ErrNotFitted
	}
	return d.state.Clone(), nil
}

// Threshold returns the current anomaly threshold, or 0 before Fit.
func (d *Detector) Threshold() float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.state == nil {
		return 0
	}
	return d.state.Threshold
}

// windows validates data and builds the trimmed windows and their targets.
func windows(cfg detectors.Config, data [][]float64) (*window.SubMatrices, []float64, error) {
	nFeatures, err := detectors.ValidateInput(data)
	if err != nil {
		return nil, nil, err
	}
	if nFeatures != 1 {
		return nil, nil, detectors.InvalidInputf("univariate series required, got %d columns", nFeatures)
	}

	sm, err := window.Generate(data, cfg.WindowSize, cfg.StepSize)
	if err != nil {
		return nil, nil, err
	}
	sm = sm.Trim()

	return sm, sm.Targets(data, 0), nil
}

// residuals scores each window by |y - prediction|.
func residuals(model *boost.Model, sm *window.SubMatrices, y []float64) ([]float64, error) {
	pred, err := model.Predict(sm.X)
	if err != nil {
		return nil, detectors.InvalidInputf("%v", err)
	}

	scores := make([]float64, len(y))
	for i := range y {
		scores[i] = math.Abs(y[i] - pred[i])
	}
	return scores, nil
}
