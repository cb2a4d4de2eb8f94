package calibration

import (
	"math/rand"
	"sync"
	"testing"

	"matchcast/engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separableData(perClass int) ([][3]float64, []models.Outcome) {
	var raw [][3]float64
	var labels []models.Outcome
	for i := 0; i < perClass; i++ {
		raw = append(raw, [3]float64{0.6, 0.2, 0.2}, [3]float64{0.2, 0.6, 0.2}, [3]float64{0.2, 0.2, 0.6})
		labels = append(labels, models.OutcomeHome, models.OutcomeDraw, models.OutcomeAway)
	}
	return raw, labels
}

func uninformativeData(n int, seed int64) ([][3]float64, []models.Outcome) {
	rng := rand.New(rand.NewSource(seed))
	raw := make([][3]float64, n)
	labels := make([]models.Outcome, n)
	for i := range raw {
		raw[i] = [3]float64{1.0 / 3, 1.0 / 3, 1.0 / 3}
		labels[i] = models.Outcome(rng.Intn(3))
	}
	return raw, labels
}

func TestMetrics(t *testing.T) {
	preds := [][3]float64{{1, 0, 0}, {1, 0, 0}}
	labels := []models.Outcome{models.OutcomeHome, models.OutcomeAway}

	m, err := Evaluate(preds, labels, DefaultBins)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, m.Brier, 1e-12)
	assert.InDelta(t, 1.0/3, m.ECE, 1e-12)
	assert.InDelta(t, 0.5, m.MCE, 1e-12)
	assert.Equal(t, 2, m.N)

	b, err := Brier([][3]float64{{1.0 / 3, 1.0 / 3, 1.0 / 3}}, []models.Outcome{models.OutcomeHome})
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3, b, 1e-12)

	ece, err := ExpectedCalibrationError([][3]float64{{0, 1, 0}}, []models.Outcome{models.OutcomeDraw}, DefaultBins)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, ece, 1e-12)

	mce, err := MaxCalibrationError(preds, labels, DefaultBins)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, mce, 1e-12)
}

func TestMetrics_RejectsBadSamples(t *testing.T) {
	_, err := Brier(nil, nil)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = Brier([][3]float64{{0.5, 0.2, 0.3}}, nil)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = Brier([][3]float64{{1.5, 0, 0}}, []models.Outcome{models.OutcomeHome})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = Brier([][3]float64{{0.5, 0.2, 0.3}}, []models.Outcome{models.Outcome(7)})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestIsotonic_PoolsViolators(t *testing.T) {
	c := fitIsotonic([]float64{0.4, 0.1, 0.3, 0.2}, []float64{1, 0, 0, 1})
	assert.Equal(t, []float64{0.1, 0.25, 0.4}, c.X)
	assert.Equal(t, []float64{0, 0.5, 1}, c.Y)

	assert.Equal(t, 0.0, c.Map(0.05))
	assert.Equal(t, 0.5, c.Map(0.25))
	assert.InDelta(t, 0.75, c.Map(0.325), 1e-12)
	assert.Equal(t, 1.0, c.Map(0.9))
}

func TestPlatt_IdentityStart(t *testing.T) {
	c := plattCurve{A: 1, B: 0, Active: true}
	assert.InDelta(t, 0.3, c.Map(0.3), 1e-9)
	assert.Equal(t, 0.3, plattCurve{}.Map(0.3))
}

func TestCalibrator_UnfittedIsIdentity(t *testing.T) {
	c := NewCalibrator(DefaultParams())
	out, method := c.Calibrate(0.5, 0.3, 0.2)
	assert.Equal(t, MethodNone, method)
	assert.Equal(t, [3]float64{0.5, 0.3, 0.2}, out)
	assert.Equal(t, MethodNone, c.Method())

	_, ok := c.Report()
	assert.False(t, ok)
}

func TestCalibrator_IsotonicSeparable(t *testing.T) {
	raw, labels := separableData(20)
	c := NewCalibrator(DefaultParams())

	report, err := c.Fit(raw, labels, MethodIsotonic)
	require.NoError(t, err)
	assert.Equal(t, MethodIsotonic, report.Method)
	assert.InDelta(t, 0.24, report.Before.Brier, 1e-9)
	assert.Less(t, report.After.Brier, 0.01)

	out, method := c.Calibrate(0.6, 0.2, 0.2)
	assert.Equal(t, MethodIsotonic, method)
	assert.InDelta(t, 1.0, out[0], 1e-9)
	assert.InDelta(t, 1.0, out[0]+out[1]+out[2], 1e-12)
}

func TestCalibrator_PlattSeparable(t *testing.T) {
	raw, labels := separableData(20)
	c := NewCalibrator(DefaultParams())

	report, err := c.Fit(raw, labels, MethodPlatt)
	require.NoError(t, err)
	assert.Less(t, report.After.Brier, report.Before.Brier)

	out, _ := c.Calibrate(0.2, 0.2, 0.6)
	assert.Greater(t, out[2], 0.6)
	assert.InDelta(t, 1.0, out[0]+out[1]+out[2], 1e-12)
}

func TestCalibrator_UninformativeLeavesECE(t *testing.T) {
	for _, method := range []Method{MethodIsotonic, MethodPlatt} {
		t.Run(string(method), func(t *testing.T) {
			raw, labels := uninformativeData(600, 7)
			c := NewCalibrator(DefaultParams())

			report, err := c.Fit(raw, labels, method)
			require.NoError(t, err)
			assert.InDelta(t, report.Before.ECE, report.After.ECE, 0.05)
		})
	}
}

func TestCalibrator_TwoWayKeepsZeroDraw(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var raw [][3]float64
	var labels []models.Outcome
	for i := 0; i < 200; i++ {
		p := 0.2 + 0.6*rng.Float64()
		raw = append(raw, [3]float64{p, 0, 1 - p})
		if rng.Float64() < p {
			labels = append(labels, models.OutcomeHome)
		} else {
			labels = append(labels, models.OutcomeAway)
		}
	}

	c := NewCalibrator(DefaultParams())
	_, err := c.Fit(raw, labels, MethodIsotonic)
	require.NoError(t, err)

	out, _ := c.Calibrate(0.65, 0, 0.35)
	assert.Equal(t, 0.0, out[1])
	assert.InDelta(t, 1.0, out[0]+out[2], 1e-12)
}

func TestCalibrator_FitErrors(t *testing.T) {
	c := NewCalibrator(DefaultParams())

	raw, labels := separableData(2)
	_, err := c.Fit(raw, labels, MethodIsotonic)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	raw, labels = separableData(20)
	_, err = c.Fit(raw, labels[:10], MethodIsotonic)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = c.Fit(raw, labels, Method("beta"))
	assert.Error(t, err)
	assert.Equal(t, MethodNone, c.Method())
}

func TestCalibrator_FitNoneClears(t *testing.T) {
	raw, labels := separableData(20)
	c := NewCalibrator(DefaultParams())
	_, err := c.Fit(raw, labels, MethodIsotonic)
	require.NoError(t, err)

	_, err = c.Fit(raw, labels, MethodNone)
	require.NoError(t, err)
	assert.Equal(t, MethodNone, c.Method())
}

func TestCalibrator_SaveLoad(t *testing.T) {
	for _, method := range []Method{MethodIsotonic, MethodPlatt} {
		t.Run(string(method), func(t *testing.T) {
			raw, labels := separableData(20)
			c := NewCalibrator(DefaultParams())
			_, err := c.Fit(raw, labels, method)
			require.NoError(t, err)

			data, err := c.Save()
			require.NoError(t, err)

			restored := NewCalibrator(DefaultParams())
			require.NoError(t, restored.Load(data))
			assert.Equal(t, method, restored.Method())

			want, _ := c.Calibrate(0.45, 0.3, 0.25)
			got, _ := restored.Calibrate(0.45, 0.3, 0.25)
			for k := range want {
				assert.InDelta(t, want[k], got[k], 1e-12)
			}
		})
	}

	empty, err := NewCalibrator(DefaultParams()).Save()
	require.NoError(t, err)
	c := NewCalibrator(DefaultParams())
	require.NoError(t, c.Load(empty))
	assert.Equal(t, MethodNone, c.Method())

	assert.Error(t, c.Load([]byte(`{"method":"platt"}`)))
	assert.Error(t, c.Load([]byte(`not json`)))
}

func TestCalibrator_ConcurrentCalibrateDuringFit(t *testing.T) {
	raw, labels := separableData(50)
	c := NewCalibrator(DefaultParams())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				out, _ := c.Calibrate(0.5, 0.3, 0.2)
				sum := out[0] + out[1] + out[2]
				if sum < 0.999999 || sum > 1.000001 {
					t.Errorf("calibrated triple sums to %v", sum)
					return
				}
			}
		}()
	}

	for _, m := range []Method{MethodPlatt, MethodIsotonic} {
		_, err := c.Fit(raw, labels, m)
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestParams(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())

	p := DefaultParams()
	p.Bins = 1
	assert.Error(t, p.Validate())

	p = DefaultParams()
	p.Platt.Iterations = 0
	assert.Error(t, p.Validate())

	m, err := ParseMethod("isotonic")
	require.NoError(t, err)
	assert.Equal(t, MethodIsotonic, m)
	_, err = ParseMethod("beta")
	assert.Error(t, err)
}
