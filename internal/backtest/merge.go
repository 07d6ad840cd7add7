// Package backtest runs built-in and saved strategies side by side and
// merges their outcomes into one result.
package backtest

import (
	"math"

	"github.com/jefrnc/stratlab/internal/models"
)

const noResults = "結果が取得できませんでした"

// Outcome is the settled result of one backtest source. Exactly one of
// Analyze, Run and Err is set.
type Outcome struct {
	Label   string
	Analyze *models.AnalyzeResponse
	Run     *models.StrategyRun
	Err     error
	// ErrText is the user-facing failure line.
	ErrText string
}

func (o Outcome) ok() bool { return o.Err == nil && (o.Analyze != nil || o.Run != nil) }

// Merged is the combined view over all sources.
//
// With one successful source it carries that source as is: StrategyName and
// Results for a single run, or Comparison and BestStrategy for a batch. With
// several it carries the combined Comparison and the BestStrategy picked by
// expected value. Errors lists every failed source either way.
type Merged struct {
	PeriodYears  int
	StrategyName string
	Results      *models.BacktestResult
	Comparison   []models.ComparisonRow
	BestStrategy *models.BestStrategy
	Errors       []string
}

// Failed reports whether no source succeeded.
func (m *Merged) Failed() bool {
	return m.Results == nil && len(m.Comparison) == 0 && m.BestStrategy == nil && m.StrategyName == ""
}

// Single reports whether the merged result is one strategy run.
func (m *Merged) Single() bool {
	return len(m.Comparison) == 0 && (m.Results != nil || m.StrategyName != "")
}

// Merge combines outcomes in the order given.
func Merge(period int, outcomes []Outcome) *Merged {
	m := &Merged{PeriodYears: period}

	var ok []Outcome
	for _, o := range outcomes {
		if o.ok() {
			ok = append(ok, o)
		} else if o.ErrText != "" {
			m.Errors = append(m.Errors, o.ErrText)
		}
	}

	switch len(ok) {
	case 0:
		if len(m.Errors) == 0 {
			m.Errors = []string{noResults}
		}
		return m
	case 1:
		o := ok[0]
		if o.Run != nil {
			m.StrategyName = o.Run.StrategyName
			m.Results = o.Run.Results
			return m
		}
		m.StrategyName = o.Analyze.StrategyName
		m.Results = o.Analyze.Results
		m.Comparison = o.Analyze.Comparison
		m.BestStrategy = o.Analyze.BestStrategy
		if o.Analyze.PeriodYears != 0 {
			m.PeriodYears = o.Analyze.PeriodYears
		}
		return m
	}

	var candidates []models.BestStrategy
	for _, o := range ok {
		switch {
		case o.Run != nil:
			m.Comparison = append(m.Comparison, o.Run.Results.Row(o.Run.StrategyName))
			candidates = append(candidates, models.BestStrategy{Name: o.Run.StrategyName, Results: o.Run.Results})
		case len(o.Analyze.Comparison) > 0:
			m.Comparison = append(m.Comparison, o.Analyze.Comparison...)
			if o.Analyze.BestStrategy != nil {
				candidates = append(candidates, *o.Analyze.BestStrategy)
			}
		default:
			m.Comparison = append(m.Comparison, o.Analyze.Results.Row(o.Analyze.StrategyName))
			candidates = append(candidates, models.BestStrategy{Name: o.Analyze.StrategyName, Results: o.Analyze.Results})
		}
	}

	if i := SelectBest(candidates); i >= 0 {
		best := candidates[i]
		m.BestStrategy = &best
	}
	return m
}

// SelectBest returns the index of the candidate with the highest expected
// value, or -1 for an empty slice. Missing values rank below everything and
// ties go to the earlier candidate.
func SelectBest(candidates []models.BestStrategy) int {
	best, bestValue := -1, math.Inf(-1)
	for i, c := range candidates {
		v := expectedValue(c.Results)
		if best < 0 || v > bestValue {
			best, bestValue = i, v
		}
	}
	return best
}

func expectedValue(r *models.BacktestResult) float64 {
	if r == nil || r.ExpectedValue == nil || math.IsNaN(*r.ExpectedValue) {
		return math.Inf(-1)
	}
	return *r.ExpectedValue
}
