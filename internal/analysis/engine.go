// Package analysis computes the statistical post-processing of a completed
// sweep: per-metric trend regression, frequency spectra, and the cross-metric
// correlation matrix.
package analysis

import (
	"math"
	"math/cmplx"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/aristath/qvalidate/internal/domain"
)

// MinEntries is the minimum number of successful sweep entries required for
// regression and spectral analysis to be meaningful.
const MinEntries = 2

// Engine derives an AnalysisReport from a SweepResult.
type Engine struct {
	log zerolog.Logger
}

// NewEngine creates an analysis engine.
func NewEngine(log zerolog.Logger) *Engine {
	return &Engine{
		log: log.With().Str("component", "analysis").Logger(),
	}
}

// Analyze computes the full report from the successful entries of a sweep.
// Failed entries are excluded; if fewer than MinEntries survive, the engine
// refuses to fabricate statistics and returns *domain.InsufficientDataError.
// The computation is deterministic: the same input yields a bit-identical
// report.
func (e *Engine) Analyze(result domain.SweepResult) (domain.AnalysisReport, error) {
	successful := result.Successful()
	if len(successful) < MinEntries {
		return domain.AnalysisReport{}, &domain.InsufficientDataError{
			Have: len(successful),
			Need: MinEntries,
		}
	}

	n := len(successful)
	params := make([]float64, n)
	series := [3][]float64{
		make([]float64, n),
		make([]float64, n),
		make([]float64, n),
	}
	for i, entry := range successful {
		params[i] = entry.Parameter
		series[0][i] = entry.Metrics.TemporalCorrelation
		series[1][i] = entry.Metrics.Falsification
		series[2][i] = entry.Metrics.BeyondQuantum
	}

	report := domain.AnalysisReport{
		TemporalCorrelation: e.analyzeSeries(params, series[0]),
		Falsification:       e.analyzeSeries(params, series[1]),
		BeyondQuantum:       e.analyzeSeries(params, series[2]),
	}

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if i == j {
				report.Correlations[i][j] = 1
				continue
			}
			r := stat.Correlation(series[i], series[j], nil)
			if math.IsNaN(r) {
				// A constant series has no defined correlation; report 0
				// rather than poisoning the matrix.
				r = 0
			}
			report.Correlations[i][j] = r
		}
	}

	e.log.Debug().
		Int("entries", n).
		Int("excluded", len(result.Entries)-n).
		Msg("Analysis completed")
	return report, nil
}

// analyzeSeries computes trend and spectrum for one metric series.
func (e *Engine) analyzeSeries(x, y []float64) domain.MetricReport {
	return domain.MetricReport{
		Trend:    trend(x, y),
		Spectrum: spectrum(y),
	}
}

// trend fits an ordinary least-squares line y = intercept + slope*x and
// derives the slope's standard error, the two-sided p-value against the
// zero-slope null, and the coefficient of determination.
func trend(x, y []float64) domain.TrendStats {
	n := len(x)
	intercept, slope := stat.LinearRegression(x, y, nil, false)

	estimates := make([]float64, n)
	for i := range x {
		estimates[i] = intercept + slope*x[i]
	}

	rss := 0.0
	for i := range y {
		d := y[i] - estimates[i]
		rss += d * d
	}

	meanX := stat.Mean(x, nil)
	ssx := 0.0
	for _, v := range x {
		d := v - meanX
		ssx += d * d
	}

	stdErr := 0.0
	// With p = 1 we report no evidence against the null rather than an
	// undefined statistic: two points fit any line exactly.
	pValue := 1.0
	if n > 2 && ssx > 0 {
		stdErr = math.Sqrt(rss / float64(n-2) / ssx)
		if stdErr > 0 {
			tStat := math.Abs(slope / stdErr)
			dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
			pValue = 2 * (1 - dist.CDF(tStat))
		} else if slope != 0 {
			pValue = 0
		}
	}

	rSquared := stat.RSquaredFrom(estimates, y, nil)
	if math.IsNaN(rSquared) {
		rSquared = 0
	}

	stddev := stat.StdDev(y, nil)
	return domain.TrendStats{
		Slope:       slope,
		Intercept:   intercept,
		StdErr:      stdErr,
		PValue:      pValue,
		RSquared:    rSquared,
		Mean:        stat.Mean(y, nil),
		SEM:         stat.StdErr(stddev, float64(n)),
		SampleCount: n,
	}
}

// spectrum computes the real-input DFT magnitude spectrum of the series,
// treated as a finite evenly sampled signal over the sweep, plus interior
// local maxima of the series itself and the dominant non-DC frequency.
func spectrum(y []float64) domain.SpectrumStats {
	fft := fourier.NewFFT(len(y))
	coeffs := fft.Coefficients(nil, y)

	bins := make([]domain.SpectrumBin, len(coeffs))
	mainFreq := 0.0
	mainMag := math.Inf(-1)
	for i, c := range coeffs {
		mag := cmplx.Abs(c)
		bins[i] = domain.SpectrumBin{
			Frequency: fft.Freq(i),
			Magnitude: mag,
		}
		if i > 0 && mag > mainMag {
			mainMag = mag
			mainFreq = fft.Freq(i)
		}
	}

	var peaks []float64
	for i := 1; i < len(y)-1; i++ {
		if y[i] > y[i-1] && y[i] > y[i+1] {
			peaks = append(peaks, y[i])
		}
	}

	return domain.SpectrumStats{
		Bins:          bins,
		MainFrequency: mainFreq,
		Peaks:         peaks,
	}
}
