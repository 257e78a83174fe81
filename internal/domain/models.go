// Package domain contains the core data model shared across the validation
// pipeline. It is pure: no infrastructure dependencies, no side effects.
package domain

import "time"

// Histogram maps an 8-bit measurement outcome (e.g. "01101001") to the number
// of shots that produced it. Immutable once returned by an execution client.
type Histogram map[string]int

// Total returns the sum of all counts in the histogram.
func (h Histogram) Total() int {
	total := 0
	for _, count := range h {
		total += count
	}
	return total
}

// MetricTriple holds the three heuristic statistics derived from a single
// measurement histogram.
type MetricTriple struct {
	TemporalCorrelation float64 `json:"temporal_correlation"`
	Falsification       float64 `json:"falsification"`
	BeyondQuantum       float64 `json:"beyond_quantum"`
}

// SweepEntry is the outcome of one parameter point in a sweep. A permanently
// failed execution is recorded here with Failed set, never silently dropped.
type SweepEntry struct {
	Parameter float64      `json:"parameter"`
	Metrics   MetricTriple `json:"metrics"`
	Histogram Histogram    `json:"histogram,omitempty"`
	Attempts  int          `json:"attempts"`
	Failed    bool         `json:"failed"`
	FailCause string       `json:"fail_cause,omitempty"`
}

// SweepResult is the ordered outcome of a full parameter sweep. Entries are
// ordered by parameter value regardless of execution completion order.
type SweepResult struct {
	Entries   []SweepEntry `json:"entries"`
	Shots     int          `json:"shots"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at"`
}

// Successful returns the entries that completed execution, in parameter order.
func (r SweepResult) Successful() []SweepEntry {
	out := make([]SweepEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if !e.Failed {
			out = append(out, e)
		}
	}
	return out
}

// FailedCount returns the number of permanently failed entries.
func (r SweepResult) FailedCount() int {
	n := 0
	for _, e := range r.Entries {
		if e.Failed {
			n++
		}
	}
	return n
}

// TrendStats holds ordinary least-squares regression results for one metric
// series against the swept parameter.
type TrendStats struct {
	Slope       float64 `json:"slope"`
	Intercept   float64 `json:"intercept"`
	StdErr      float64 `json:"std_err"`
	PValue      float64 `json:"p_value"`
	RSquared    float64 `json:"r_squared"`
	Mean        float64 `json:"mean"`
	SEM         float64 `json:"sem"`
	SampleCount int     `json:"sample_count"`
}

// SpectrumBin is one bin of a magnitude spectrum.
type SpectrumBin struct {
	Frequency float64 `json:"frequency"`
	Magnitude float64 `json:"magnitude"`
}

// SpectrumStats holds the frequency-domain view of one metric series.
type SpectrumStats struct {
	Bins          []SpectrumBin `json:"bins"`
	MainFrequency float64       `json:"main_frequency"`
	Peaks         []float64     `json:"peaks"` // values at interior local maxima
}

// MetricReport bundles trend and spectrum for a single metric series.
type MetricReport struct {
	Trend    TrendStats    `json:"trend"`
	Spectrum SpectrumStats `json:"spectrum"`
}

// MetricNames lists the metric series in their canonical order, which is also
// the index order of AnalysisReport.Correlations.
var MetricNames = [3]string{"temporal_correlation", "falsification", "beyond_quantum"}

// AnalysisReport is the full statistical analysis of a completed sweep.
// Derived read-only from a SweepResult; computing it twice on the same input
// yields identical values.
type AnalysisReport struct {
	TemporalCorrelation MetricReport `json:"temporal_correlation"`
	Falsification       MetricReport `json:"falsification"`
	BeyondQuantum       MetricReport `json:"beyond_quantum"`

	// Correlations is the pairwise Pearson matrix over the three metric
	// series, indexed in MetricNames order.
	Correlations [3][3]float64 `json:"correlations"`
}
