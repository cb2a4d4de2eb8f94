package explain

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"matchcast/engine/internal/learned"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trainingSet(n int) ([]learned.FeatureVector, []int) {
	rng := rand.New(rand.NewSource(3))
	X := make([]learned.FeatureVector, n)
	y := make([]int, n)
	for i := range X {
		ha, hd := 0.5+2*rng.Float64(), 0.5+2*rng.Float64()
		aa, ad := 0.5+2*rng.Float64(), 0.5+2*rng.Float64()
		X[i] = learned.FeatureVector{ha, hd, aa, ad, 100 * rng.Float64(), 100 * rng.Float64(), 0}
		switch d := ha*ad - aa*hd; {
		case d > 0.6:
			y[i] = 0
		case d < -0.6:
			y[i] = 2
		default:
			y[i] = 1
		}
	}
	return X, y
}

func assertRanks(t *testing.T, e Explanation) {
	t.Helper()
	require.Len(t, e.Contributions, learned.NumFeatures)
	seen := map[string]bool{}
	for i, c := range e.Contributions {
		assert.Equal(t, i+1, c.Rank)
		seen[c.Feature] = true
		if i > 0 {
			assert.GreaterOrEqual(t, math.Abs(e.Contributions[i-1].Contribution), math.Abs(c.Contribution))
		}
	}
	assert.Len(t, seen, learned.NumFeatures)
}

func TestExplain_UntrainedFallback(t *testing.T) {
	m := learned.NewModel(learned.GBTTrainer{Params: learned.DefaultGBTParams()})
	x := learned.FeatureVector{2.1, 1.3, 1.8, 1.5, 60, 40, 0.2}

	e := Explain(m, x)
	assert.True(t, e.Fallback)
	assertRanks(t, e)
	for i, c := range e.Contributions {
		assert.Equal(t, 0.0, c.Contribution)
		assert.Equal(t, learned.FeatureNames[i], c.Feature, "ties keep feature order")
		assert.Equal(t, x[i], c.Value)
	}
}

func TestExplain_TrainedForest(t *testing.T) {
	X, y := trainingSet(300)
	m := learned.NewModel(learned.RFTrainer{Params: learned.DefaultRFParams()})
	require.NoError(t, m.Train(X, y))

	x := learned.FeatureVector{2.4, 0.7, 0.8, 2.2, 50, 50, 0}
	e := Explain(m, x)
	assert.False(t, e.Fallback)
	assert.Equal(t, "random_forest", e.Model)
	assertRanks(t, e)
	assert.NotEqual(t, 0.0, e.Contributions[0].Contribution)
	assert.Len(t, e.Top(3), 3)
	assert.Len(t, e.Top(20), learned.NumFeatures)
	assert.Empty(t, e.Top(0))
	assert.Empty(t, e.Top(-1))
}

func TestExplain_TrainedBoosting(t *testing.T) {
	X, y := trainingSet(300)
	m := learned.NewModel(learned.GBTTrainer{Params: learned.DefaultGBTParams()})
	require.NoError(t, m.Train(X, y))

	e := Explain(m, learned.FeatureVector{0.7, 2.3, 2.2, 0.9, 50, 50, 0})
	assert.False(t, e.Fallback)
	assertRanks(t, e)
	assert.Greater(t, e.Probability, 0.0)
}

func TestExplain_DuringTraining(t *testing.T) {
	X, y := trainingSet(300)
	m := learned.NewModel(learned.RFTrainer{Params: learned.DefaultRFParams()})
	x := learned.FeatureVector{2.4, 0.7, 0.8, 2.2, 50, 50, 0}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				e := Explain(m, x)
				assert.Len(t, e.Contributions, learned.NumFeatures)
				if e.Fallback {
					for _, c := range e.Contributions {
						assert.Equal(t, 0.0, c.Contribution)
					}
				}
			}
		}()
	}
	require.NoError(t, m.Train(X, y))
	wg.Wait()

	assert.False(t, Explain(m, x).Fallback)
}
