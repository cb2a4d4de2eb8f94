package calibration

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"matchcast/engine/internal/models"

	"github.com/rs/zerolog/log"
)

// Method names a calibration transform
type Method string

const (
	MethodNone     Method = "none"
	MethodPlatt    Method = "platt"
	MethodIsotonic Method = "isotonic"
)

// ParseMethod validates a method name
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodNone, MethodPlatt, MethodIsotonic:
		return m, nil
	}
	return "", fmt.Errorf("unknown calibration method %q", s)
}

// Params configures fitting
type Params struct {
	MinSamples int         `yaml:"min_samples"`
	Bins       int         `yaml:"bins"`
	Platt      PlattParams `yaml:"platt"`
}

// DefaultParams returns the standard fitting configuration
func DefaultParams() Params {
	return Params{
		MinSamples: 30,
		Bins:       DefaultBins,
		Platt:      DefaultPlattParams(),
	}
}

// Validate checks the configuration is usable
func (p Params) Validate() error {
	if p.MinSamples < 1 {
		return fmt.Errorf("calibration min_samples must be positive, got %d", p.MinSamples)
	}
	if p.Bins < 2 {
		return fmt.Errorf("calibration bins must be at least 2, got %d", p.Bins)
	}
	return p.Platt.Validate()
}

// FitReport compares the metrics before and after a fit on the same data
type FitReport struct {
	Method   Method    `json:"method"`
	Samples  int       `json:"samples"`
	Before   Metrics   `json:"before"`
	After    Metrics   `json:"after"`
	FittedAt time.Time `json:"fitted_at"`
}

type curve interface {
	Map(p float64) float64
}

type fitted struct {
	method Method
	curves [3]curve
	report FitReport
}

// apply maps each class independently and renormalizes. Classes given
// zero raw probability stay at zero.
func (f *fitted) apply(raw [3]float64) [3]float64 {
	var out [3]float64
	total := 0.0
	for k := 0; k < 3; k++ {
		if raw[k] <= 0 {
			continue
		}
		out[k] = f.curves[k].Map(raw[k])
		total += out[k]
	}
	if total <= 0 {
		return raw
	}
	for k := range out {
		out[k] /= total
	}
	return out
}

// Calibrator holds the published calibration. Calibrate reads the current
// snapshot without locking; Fit and Load are serialized.
type Calibrator struct {
	params Params

	mu      sync.Mutex
	current atomic.Pointer[fitted]
}

// NewCalibrator returns an unfitted calibrator
func NewCalibrator(params Params) *Calibrator {
	return &Calibrator{params: params}
}

// Method returns the published method, MethodNone when unfitted
func (c *Calibrator) Method() Method {
	if f := c.current.Load(); f != nil {
		return f.method
	}
	return MethodNone
}

// Report returns the last fit report
func (c *Calibrator) Report() (FitReport, bool) {
	if f := c.current.Load(); f != nil {
		return f.report, true
	}
	return FitReport{}, false
}

// Calibrate maps a raw triple through the published fit. Unfitted, it
// returns the input unchanged with MethodNone.
func (c *Calibrator) Calibrate(home, draw, away float64) ([3]float64, Method) {
	raw := [3]float64{home, draw, away}
	f := c.current.Load()
	if f == nil {
		log.Debug().Err(models.ErrCalibrationNotFitted).Msg("Calibration skipped, passing probabilities through")
		return raw, MethodNone
	}
	return f.apply(raw), f.method
}

// Fit fits a method on raw triples and their outcomes, then publishes it.
// Fitting MethodNone clears the published calibration.
func (c *Calibrator) Fit(raw [][3]float64, labels []models.Outcome, method Method) (FitReport, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return FitReport{}, err
	}
	before, err := Evaluate(raw, labels, c.params.Bins)
	if err != nil {
		return FitReport{}, fmt.Errorf("failed to evaluate calibration data: %w", err)
	}
	if len(raw) < c.params.MinSamples {
		return FitReport{}, fmt.Errorf("need %d samples, got %d: %w", c.params.MinSamples, len(raw), models.ErrInsufficientData)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if method == MethodNone {
		c.current.Store(nil)
		return FitReport{Method: MethodNone, Samples: len(raw), Before: before, After: before, FittedAt: time.Now().UTC()}, nil
	}

	next := &fitted{method: method}
	for k := 0; k < 3; k++ {
		x, y := classSamples(raw, labels, k)
		switch method {
		case MethodPlatt:
			next.curves[k] = fitPlatt(x, y, c.params.Platt)
		case MethodIsotonic:
			next.curves[k] = fitIsotonic(x, y)
		}
	}

	calibrated := make([][3]float64, len(raw))
	for i, p := range raw {
		calibrated[i] = next.apply(p)
	}
	after, err := Evaluate(calibrated, labels, c.params.Bins)
	if err != nil {
		return FitReport{}, fmt.Errorf("failed to evaluate calibrated data: %w", err)
	}

	next.report = FitReport{
		Method:   method,
		Samples:  len(raw),
		Before:   before,
		After:    after,
		FittedAt: time.Now().UTC(),
	}
	c.current.Store(next)

	log.Info().
		Str("method", string(method)).
		Int("samples", len(raw)).
		Float64("brier_before", before.Brier).
		Float64("brier_after", after.Brier).
		Float64("ece_after", after.ECE).
		Msg("Calibration fitted")

	return next.report, nil
}

// classSamples returns the non-zero raw probabilities of class k with
// their one-vs-rest targets
func classSamples(raw [][3]float64, labels []models.Outcome, k int) (x, y []float64) {
	for i, p := range raw {
		if p[k] <= 0 {
			continue
		}
		x = append(x, p[k])
		y = append(y, indicator(int(labels[i]) == k))
	}
	return x, y
}

type calibrationBlob struct {
	Method   Method            `json:"method"`
	Report   FitReport         `json:"report"`
	Platt    *[3]plattCurve    `json:"platt,omitempty"`
	Isotonic *[3]isotonicCurve `json:"isotonic,omitempty"`
}

// Save serializes the published calibration
func (c *Calibrator) Save() ([]byte, error) {
	f := c.current.Load()
	if f == nil {
		return json.Marshal(calibrationBlob{Method: MethodNone})
	}
	b := calibrationBlob{Method: f.method, Report: f.report}
	switch f.method {
	case MethodPlatt:
		var curves [3]plattCurve
		for k := range curves {
			curves[k] = f.curves[k].(plattCurve)
		}
		b.Platt = &curves
	case MethodIsotonic:
		var curves [3]isotonicCurve
		for k := range curves {
			curves[k] = f.curves[k].(isotonicCurve)
		}
		b.Isotonic = &curves
	}
	return json.Marshal(b)
}

// Load publishes a previously saved calibration
func (c *Calibrator) Load(data []byte) error {
	var b calibrationBlob
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("failed to decode calibration blob: %w", err)
	}

	var next *fitted
	switch b.Method {
	case MethodNone:
	case MethodPlatt:
		if b.Platt == nil {
			return fmt.Errorf("platt calibration blob has no curves")
		}
		next = &fitted{method: b.Method, report: b.Report}
		for k, cv := range b.Platt {
			next.curves[k] = cv
		}
	case MethodIsotonic:
		if b.Isotonic == nil {
			return fmt.Errorf("isotonic calibration blob has no curves")
		}
		next = &fitted{method: b.Method, report: b.Report}
		for k, cv := range b.Isotonic {
			next.curves[k] = cv
		}
	default:
		return fmt.Errorf("unknown calibration method %q", b.Method)
	}

	c.mu.Lock()
	c.current.Store(next)
	c.mu.Unlock()
	return nil
}
