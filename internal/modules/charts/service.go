// Package charts renders HTML visualisations of stored validation runs.
package charts

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rs/zerolog"

	"github.com/aristath/qvalidate/internal/domain"
	"github.com/aristath/qvalidate/internal/modules/results"
)

// Service renders run charts.
type Service struct {
	repo *results.Repository
	log  zerolog.Logger
}

// NewService creates a new charts service.
func NewService(repo *results.Repository, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With().Str("service", "charts").Logger(),
	}
}

// RenderMetrics writes an HTML line chart of the three metric series against
// the sweep parameter.
func (s *Service) RenderMetrics(w io.Writer, runID string) error {
	run, err := s.repo.GetRun(runID)
	if err != nil {
		return err
	}
	if run.Result == nil {
		return fmt.Errorf("run %s has no sweep result yet", runID)
	}

	var params []string
	series := map[string][]opts.LineData{}
	for _, entry := range run.Result.Successful() {
		params = append(params, fmt.Sprintf("%.3f", entry.Parameter))
		series["temporal_correlation"] = append(series["temporal_correlation"], opts.LineData{Value: entry.Metrics.TemporalCorrelation})
		series["falsification"] = append(series["falsification"], opts.LineData{Value: entry.Metrics.Falsification})
		series["beyond_quantum"] = append(series["beyond_quantum"], opts.LineData{Value: entry.Metrics.BeyondQuantum})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Validation Metrics", Width: "1000px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Metrics vs Parameter", Subtitle: fmt.Sprintf("run=%s shots=%d", runID, run.Shots)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "parameter"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "metric value"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	line.SetXAxis(params)
	for _, name := range domain.MetricNames {
		line.AddSeries(name, series[name], charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}

	return line.Render(w)
}

// RenderSpectrum writes an HTML line chart of the magnitude spectrum of one
// metric series. Runs without an analysis report cannot be charted.
func (s *Service) RenderSpectrum(w io.Writer, runID, metric string) error {
	run, err := s.repo.GetRun(runID)
	if err != nil {
		return err
	}
	if run.Analysis == nil {
		return fmt.Errorf("run %s has no analysis report", runID)
	}

	report, err := metricReport(run.Analysis, metric)
	if err != nil {
		return err
	}

	var freqs []string
	var magnitudes []opts.LineData
	for _, bin := range report.Spectrum.Bins {
		freqs = append(freqs, fmt.Sprintf("%.4f", bin.Frequency))
		magnitudes = append(magnitudes, opts.LineData{Value: bin.Magnitude})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Magnitude Spectrum", Width: "1000px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    fmt.Sprintf("Magnitude Spectrum: %s", metric),
			Subtitle: fmt.Sprintf("run=%s main frequency=%.4f", runID, report.Spectrum.MainFrequency),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frequency (cycles per sample)"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "magnitude"}),
	)

	line.SetXAxis(freqs)
	line.AddSeries(metric, magnitudes)

	return line.Render(w)
}

func metricReport(analysis *domain.AnalysisReport, metric string) (domain.MetricReport, error) {
	switch metric {
	case "temporal_correlation":
		return analysis.TemporalCorrelation, nil
	case "falsification":
		return analysis.Falsification, nil
	case "beyond_quantum":
		return analysis.BeyondQuantum, nil
	default:
		return domain.MetricReport{}, fmt.Errorf("unknown metric %q", metric)
	}
}
