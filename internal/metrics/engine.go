// Package metrics reduces measurement histograms to the three heuristic
// statistics used by the validation sweep. All computations are pure
// functions of the histogram; nothing here retries or touches the network.
package metrics

import (
	"math"
	"strings"

	"github.com/aristath/qvalidate/internal/domain"
)

// maxEntropyBits is the maximum Shannon entropy of an 8-bit outcome
// distribution, used to normalize the falsification metric into [0, 1].
const maxEntropyBits = 8.0

// DefaultMotifs are the alternating bit patterns treated as non-classical
// signatures by the beyond-quantum metric.
var DefaultMotifs = []string{"1010", "0101"}

// Engine computes metrics from measurement histograms.
type Engine struct {
	motifs []string
}

// NewEngine creates a metric engine with the default target motifs.
func NewEngine() *Engine {
	return &Engine{motifs: DefaultMotifs}
}

// NewEngineWithMotifs creates a metric engine scanning for a custom motif set.
func NewEngineWithMotifs(motifs []string) *Engine {
	return &Engine{motifs: motifs}
}

// Validate checks that the histogram is non-empty and that its counts sum to
// the declared shot total. All metric functions run this check first.
func (e *Engine) Validate(h domain.Histogram, shots int) error {
	if len(h) == 0 {
		return &domain.InvalidHistogramError{Reason: "empty histogram", Expected: shots}
	}
	if total := h.Total(); total != shots {
		return &domain.InvalidHistogramError{
			Reason:   "counts do not sum to shot total",
			Expected: shots,
			Got:      total,
		}
	}
	return nil
}

// TemporalCorrelation counts, for every outcome, the overlapping length-3 bit
// windows whose bits all agree, weighted by the outcome's count, and divides
// by the shot total. Not capped at 1: a near-uniform 8-bit distribution sits
// around 1.5 because each of the 6 windows agrees with probability 1/4.
func (e *Engine) TemporalCorrelation(h domain.Histogram, shots int) (float64, error) {
	if err := e.Validate(h, shots); err != nil {
		return 0, err
	}

	sum := 0
	for outcome, count := range h {
		for i := 0; i+2 < len(outcome); i++ {
			if outcome[i] == outcome[i+1] && outcome[i+1] == outcome[i+2] {
				sum += count
			}
		}
	}
	return float64(sum) / float64(shots), nil
}

// Falsification computes the Shannon entropy of the outcome distribution with
// each outcome's contribution discounted by its absolute deviation from the
// uniform reference count, normalized by the 8-bit entropy maximum. A
// single-point delta distribution scores 0; an exactly uniform distribution
// over all 256 outcomes approaches 1.
func (e *Engine) Falsification(h domain.Histogram, shots int) (float64, error) {
	if err := e.Validate(h, shots); err != nil {
		return 0, err
	}

	uniform := float64(shots) / math.Pow(2, maxEntropyBits)
	weighted := 0.0
	for _, count := range h {
		if count == 0 {
			continue
		}
		p := float64(count) / float64(shots)
		contribution := -p * math.Log2(p)
		deviation := math.Abs(float64(count)-uniform) / float64(shots)
		weighted += contribution * (1 - deviation)
	}

	value := weighted / maxEntropyBits
	// Guard against float drift at the boundaries.
	return math.Max(0, math.Min(1, value)), nil
}

// BeyondQuantum sums the counts of outcomes containing at least one target
// motif and divides by the shot total. Always in [0, 1].
func (e *Engine) BeyondQuantum(h domain.Histogram, shots int) (float64, error) {
	if err := e.Validate(h, shots); err != nil {
		return 0, err
	}

	sum := 0
	for outcome, count := range h {
		for _, motif := range e.motifs {
			if strings.Contains(outcome, motif) {
				sum += count
				break
			}
		}
	}
	return float64(sum) / float64(shots), nil
}

// Compute evaluates all three metrics for a histogram.
func (e *Engine) Compute(h domain.Histogram, shots int) (domain.MetricTriple, error) {
	correlation, err := e.TemporalCorrelation(h, shots)
	if err != nil {
		return domain.MetricTriple{}, err
	}
	falsification, err := e.Falsification(h, shots)
	if err != nil {
		return domain.MetricTriple{}, err
	}
	beyond, err := e.BeyondQuantum(h, shots)
	if err != nil {
		return domain.MetricTriple{}, err
	}

	return domain.MetricTriple{
		TemporalCorrelation: correlation,
		Falsification:       falsification,
		BeyondQuantum:       beyond,
	}, nil
}
