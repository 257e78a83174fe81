package metrics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qvalidate/internal/domain"
)

const testShots = 1000

// uniformHistogram spreads the shot total as evenly as possible over all 256
// outcomes.
func uniformHistogram(shots int) domain.Histogram {
	h := make(domain.Histogram, 256)
	base := shots / 256
	remainder := shots % 256
	for i := 0; i < 256; i++ {
		count := base
		if i < remainder {
			count++
		}
		h[fmt.Sprintf("%08b", i)] = count
	}
	return h
}

func TestValidate(t *testing.T) {
	e := NewEngine()

	tests := []struct {
		name    string
		h       domain.Histogram
		wantErr bool
	}{
		{"valid", domain.Histogram{"00000000": 600, "11111111": 400}, false},
		{"empty", domain.Histogram{}, true},
		{"nil", nil, true},
		{"short count", domain.Histogram{"00000000": 999}, true},
		{"excess count", domain.Histogram{"00000000": 1001}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Validate(tt.h, testShots)
			if tt.wantErr {
				require.Error(t, err)
				var invalid *domain.InvalidHistogramError
				assert.ErrorAs(t, err, &invalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTemporalCorrelation(t *testing.T) {
	e := NewEngine()

	t.Run("all-zero delta has all six windows agreeing", func(t *testing.T) {
		v, err := e.TemporalCorrelation(domain.Histogram{"00000000": testShots}, testShots)
		require.NoError(t, err)
		assert.InDelta(t, 6.0, v, 1e-12)
	})

	t.Run("strictly alternating outcome has none", func(t *testing.T) {
		v, err := e.TemporalCorrelation(domain.Histogram{"10101010": testShots}, testShots)
		require.NoError(t, err)
		assert.Zero(t, v)
	})

	t.Run("near-uniform sits around 1.5", func(t *testing.T) {
		v, err := e.TemporalCorrelation(uniformHistogram(testShots), testShots)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, v, 0.1)
	})

	t.Run("mixed outcomes weight by count", func(t *testing.T) {
		h := domain.Histogram{
			"00000000": 500, // 6 windows
			"10101010": 500, // 0 windows
		}
		v, err := e.TemporalCorrelation(h, testShots)
		require.NoError(t, err)
		assert.InDelta(t, 3.0, v, 1e-12)
	})
}

func TestFalsification(t *testing.T) {
	e := NewEngine()

	t.Run("single-point delta scores zero", func(t *testing.T) {
		v, err := e.Falsification(domain.Histogram{"00000000": testShots}, testShots)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, v, 1e-9)
	})

	t.Run("near-uniform scores near one", func(t *testing.T) {
		v, err := e.Falsification(uniformHistogram(testShots), testShots)
		require.NoError(t, err)
		assert.Greater(t, v, 0.95)
		assert.LessOrEqual(t, v, 1.0)
	})

	t.Run("bounded on arbitrary histograms", func(t *testing.T) {
		histograms := []domain.Histogram{
			{"00000000": 500, "11111111": 500},
			{"00001111": 250, "11110000": 250, "01010101": 250, "10101010": 250},
			{"00000001": 999, "10000000": 1},
		}
		for _, h := range histograms {
			v, err := e.Falsification(h, testShots)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	})
}

func TestBeyondQuantum(t *testing.T) {
	e := NewEngine()

	t.Run("all-zero outcome has no motif", func(t *testing.T) {
		v, err := e.BeyondQuantum(domain.Histogram{"00000000": testShots}, testShots)
		require.NoError(t, err)
		assert.Zero(t, v)
	})

	t.Run("alternating outcome always matches", func(t *testing.T) {
		v, err := e.BeyondQuantum(domain.Histogram{"10101010": testShots}, testShots)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, v, 1e-12)
	})

	t.Run("an outcome counts once no matter how many motifs it contains", func(t *testing.T) {
		// "10101010" contains both motifs at several offsets.
		h := domain.Histogram{
			"10101010": 300,
			"00000000": 700,
		}
		v, err := e.BeyondQuantum(h, testShots)
		require.NoError(t, err)
		assert.InDelta(t, 0.3, v, 1e-12)
	})

	t.Run("bounded on near-uniform input", func(t *testing.T) {
		v, err := e.BeyondQuantum(uniformHistogram(testShots), testShots)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	})
}

func TestCompute(t *testing.T) {
	e := NewEngine()

	t.Run("aggregates all three metrics", func(t *testing.T) {
		h := domain.Histogram{"00000000": 600, "10101010": 400}
		triple, err := e.Compute(h, testShots)
		require.NoError(t, err)

		assert.InDelta(t, 3.6, triple.TemporalCorrelation, 1e-12)
		assert.InDelta(t, 0.4, triple.BeyondQuantum, 1e-12)
		assert.GreaterOrEqual(t, triple.Falsification, 0.0)
		assert.LessOrEqual(t, triple.Falsification, 1.0)
	})

	t.Run("propagates validation failure", func(t *testing.T) {
		_, err := e.Compute(domain.Histogram{}, testShots)
		var invalid *domain.InvalidHistogramError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("deterministic", func(t *testing.T) {
		h := uniformHistogram(testShots)
		a, err := e.Compute(h, testShots)
		require.NoError(t, err)
		b, err := e.Compute(h, testShots)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})
}
