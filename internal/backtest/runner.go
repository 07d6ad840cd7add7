package backtest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/api"
	"github.com/jefrnc/stratlab/internal/models"
)

var (
	ErrNoStrategies  = errors.New("少なくとも1つの戦略を選択してください")
	ErrInvalidPeriod = errors.New("period must be between 1 and 10 years")
	ErrInvalidAmount = errors.New("fixed investment amount must be positive")
)

// DefaultInvestment is used when the request leaves the amount at zero.
var DefaultInvestment = decimal.NewFromInt(1_000_000)

const defaultPeriod = 3

// Backend is the part of the API client the runner needs.
type Backend interface {
	Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error)
	LoadAndTest(ctx context.Context, req *models.LoadAndTestRequest) (*models.LoadAndTestResponse, error)
}

// SavedRef identifies a saved strategy. Name only labels error lines.
type SavedRef struct {
	ID   int64
	Name string
}

func (s SavedRef) label() string {
	if s.Name != "" {
		return s.Name
	}
	return strconv.FormatInt(s.ID, 10)
}

// Request selects what to backtest.
type Request struct {
	Existing   []string
	Saved      []SavedRef
	Symbol     string
	Period     int
	Investment decimal.Decimal
}

// Runner issues the batch call for built-in strategies and one call per
// saved strategy concurrently, then waits for every one of them.
type Runner struct {
	backend Backend
	logger  *zap.Logger
}

// NewRunner creates a runner.
func NewRunner(backend Backend, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{backend: backend, logger: logger}
}

// Run validates req, runs every source and merges the outcomes. The returned
// error is only ever a validation error; backend failures end up in
// Merged.Errors.
func (r *Runner) Run(ctx context.Context, req Request) (*Merged, error) {
	if len(req.Existing) == 0 && len(req.Saved) == 0 {
		return nil, ErrNoStrategies
	}
	period := req.Period
	if period == 0 {
		period = defaultPeriod
	}
	if period < 1 || period > 10 {
		return nil, ErrInvalidPeriod
	}
	amount := req.Investment
	if amount.IsZero() {
		amount = DefaultInvestment
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var symbol *string
	if s := strings.TrimSpace(req.Symbol); s != "" {
		symbol = &s
	}

	// Slot 0 is the batch, slots 1.. the saved strategies in selection order.
	outcomes := make([]Outcome, 1+len(req.Saved))
	var wg sync.WaitGroup
	start := time.Now()

	if len(req.Existing) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[0] = r.runExisting(ctx, &models.AnalyzeRequest{
				Period:                period,
				Strategies:            req.Existing,
				Symbol:                symbol,
				FixedInvestmentAmount: models.NewAmount(amount),
			})
		}()
	}

	for i, ref := range req.Saved {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := period
			outcomes[i+1] = r.runSaved(ctx, ref, &models.LoadAndTestRequest{
				StrategyID:            ref.ID,
				Symbol:                symbol,
				Period:                &p,
				FixedInvestmentAmount: models.NewAmount(amount),
			})
		}()
	}

	wg.Wait()

	merged := Merge(period, outcomes)
	r.logger.Info("backtests settled",
		zap.Int("sources", len(req.Saved)+min(len(req.Existing), 1)),
		zap.Int("errors", len(merged.Errors)),
		zap.Duration("elapsed", time.Since(start)))
	return merged, nil
}

func (r *Runner) runExisting(ctx context.Context, req *models.AnalyzeRequest) Outcome {
	resp, err := r.backend.Analyze(ctx, req)
	if err != nil {
		r.logger.Warn("built-in strategy batch failed", zap.Strings("strategies", req.Strategies), zap.Error(err))
		return Outcome{Label: "既存戦略", Err: err, ErrText: fmt.Sprintf("既存戦略のエラー: %s", api.Message(err))}
	}
	return Outcome{Label: "既存戦略", Analyze: resp}
}

func (r *Runner) runSaved(ctx context.Context, ref SavedRef, req *models.LoadAndTestRequest) Outcome {
	label := ref.label()
	resp, err := r.backend.LoadAndTest(ctx, req)
	if err != nil {
		r.logger.Warn("saved strategy backtest failed", zap.Int64("strategy_id", ref.ID), zap.Error(err))
		return Outcome{Label: label, Err: err, ErrText: fmt.Sprintf("保存戦略「%s」のエラー: %s", label, api.Message(err))}
	}
	return Outcome{
		Label: label,
		Run:   &models.StrategyRun{StrategyName: resp.StrategyName, Results: resp.BacktestResults},
	}
}
