package backtest

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/api"
	"github.com/jefrnc/stratlab/internal/models"
)

func ev(v float64) *models.BacktestResult {
	trades := 10
	return &models.BacktestResult{ExpectedValue: &v, TotalTrades: &trades}
}

func TestSelectBestFirstMaxWins(t *testing.T) {
	candidates := []models.BestStrategy{
		{Name: "a", Results: ev(100)},
		{Name: "b", Results: ev(150)},
		{Name: "c", Results: ev(150)},
	}
	if got := SelectBest(candidates); got != 1 {
		t.Errorf("SelectBest() = %d, want 1", got)
	}
}

func TestSelectBestMissingValues(t *testing.T) {
	candidates := []models.BestStrategy{
		{Name: "none"},
		{Name: "nil-ev", Results: &models.BacktestResult{}},
		{Name: "negative", Results: ev(-500)},
	}
	if got := SelectBest(candidates); got != 2 {
		t.Errorf("SelectBest() = %d, want 2", got)
	}

	if got := SelectBest(candidates[:2]); got != 0 {
		t.Errorf("All missing should pick the first, got %d", got)
	}
	if got := SelectBest(nil); got != -1 {
		t.Errorf("Empty should return -1, got %d", got)
	}
}

func TestMergeNoSuccesses(t *testing.T) {
	m := Merge(3, []Outcome{
		{ErrText: "既存戦略のエラー: boom", Err: errors.New("boom")},
		{ErrText: "保存戦略「x」のエラー: bad", Err: errors.New("bad")},
	})
	if !m.Failed() {
		t.Fatal("Expected failed merge")
	}
	if len(m.Errors) != 2 {
		t.Errorf("Expected two error lines, got %v", m.Errors)
	}

	empty := Merge(3, []Outcome{{}})
	if !empty.Failed() || len(empty.Errors) != 1 || empty.Errors[0] != "結果が取得できませんでした" {
		t.Errorf("Expected no-result error, got %+v", empty)
	}
}

func TestMergeSingleRun(t *testing.T) {
	m := Merge(5, []Outcome{
		{},
		{Run: &models.StrategyRun{StrategyName: "マイRSI", Results: ev(200)}},
		{ErrText: "保存戦略「7」のエラー: 不明なエラー", Err: errors.New("x")},
	})
	if !m.Single() || m.StrategyName != "マイRSI" || m.BestStrategy != nil {
		t.Errorf("Expected single result, got %+v", m)
	}
	if len(m.Errors) != 1 {
		t.Errorf("Errors must be carried with the success, got %v", m.Errors)
	}
}

func TestMergeKeepsZeroMetrics(t *testing.T) {
	zero := 0.0
	m := Merge(3, []Outcome{
		{Run: &models.StrategyRun{StrategyName: "a", Results: &models.BacktestResult{WinRate: &zero}}},
		{Run: &models.StrategyRun{StrategyName: "b", Results: ev(1)}},
	})
	if m.Comparison[0].WinRate == nil || *m.Comparison[0].WinRate != 0 {
		t.Errorf("Zero win rate should be kept, got %v", m.Comparison[0].WinRate)
	}
	if m.Comparison[0].TotalTrades != 0 {
		t.Errorf("Missing trade count should be 0, got %d", m.Comparison[0].TotalTrades)
	}
}

type fakeBackend struct {
	analyze     func(*models.AnalyzeRequest) (*models.AnalyzeResponse, error)
	loadAndTest func(*models.LoadAndTestRequest) (*models.LoadAndTestResponse, error)
	calls       atomic.Int32
}

func (f *fakeBackend) Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	f.calls.Add(1)
	return f.analyze(req)
}

func (f *fakeBackend) LoadAndTest(ctx context.Context, req *models.LoadAndTestRequest) (*models.LoadAndTestResponse, error) {
	f.calls.Add(1)
	return f.loadAndTest(req)
}

func TestRunThreeSourcesOneFails(t *testing.T) {
	backend := &fakeBackend{
		analyze: func(req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
			if len(req.Strategies) != 1 || req.Strategies[0] != "rsi" {
				t.Errorf("Unexpected batch: %v", req.Strategies)
			}
			if req.Symbol == nil || *req.Symbol != "7203" {
				t.Errorf("Symbol not forwarded: %v", req.Symbol)
			}
			return &models.AnalyzeResponse{
				Envelope:     models.Envelope{Success: true},
				StrategyName: "RSI戦略",
				Results:      ev(120),
			}, nil
		},
		loadAndTest: func(req *models.LoadAndTestRequest) (*models.LoadAndTestResponse, error) {
			if req.StrategyID == 2 {
				return nil, &api.APIError{Status: 200, Message: "戦略が見つかりません"}
			}
			if *req.Period != 5 || !req.FixedInvestmentAmount.Equal(decimal.NewFromInt(300000)) {
				t.Errorf("Unexpected overrides: %+v", req)
			}
			return &models.LoadAndTestResponse{
				Envelope:        models.Envelope{Success: true},
				StrategyName:    "マイ戦略",
				BacktestResults: ev(180),
			}, nil
		},
	}

	r := NewRunner(backend, zap.NewNop())
	m, err := r.Run(context.Background(), Request{
		Existing:   []string{"rsi"},
		Saved:      []SavedRef{{ID: 1, Name: "マイ戦略"}, {ID: 2, Name: "壊れた戦略"}},
		Symbol:     " 7203 ",
		Period:     5,
		Investment: decimal.NewFromInt(300000),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if backend.calls.Load() != 3 {
		t.Errorf("Expected 3 backend calls, got %d", backend.calls.Load())
	}
	if len(m.Comparison) != 2 {
		t.Fatalf("Expected two comparison rows, got %d", len(m.Comparison))
	}
	if m.Comparison[0].StrategyName != "RSI戦略" || m.Comparison[1].StrategyName != "マイ戦略" {
		t.Errorf("Rows out of source order: %+v", m.Comparison)
	}
	if len(m.Errors) != 1 || m.Errors[0] != "保存戦略「壊れた戦略」のエラー: 戦略が見つかりません" {
		t.Errorf("Unexpected errors: %v", m.Errors)
	}
	if m.BestStrategy == nil || m.BestStrategy.Name != "マイ戦略" {
		t.Errorf("Unexpected best strategy: %+v", m.BestStrategy)
	}
	if m.PeriodYears != 5 {
		t.Errorf("Unexpected period %d", m.PeriodYears)
	}
}

func TestRunBatchComparisonAndTransportError(t *testing.T) {
	backend := &fakeBackend{
		analyze: func(req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
			return &models.AnalyzeResponse{
				Envelope: models.Envelope{Success: true},
				Comparison: []models.ComparisonRow{
					ev(50).Row("移動平均クロスオーバー"),
					ev(90).Row("RSI戦略"),
				},
				BestStrategy: &models.BestStrategy{Name: "RSI戦略", Results: ev(90)},
			}, nil
		},
		loadAndTest: func(req *models.LoadAndTestRequest) (*models.LoadAndTestResponse, error) {
			if req.StrategyID == 9 {
				return nil, errors.New("request failed: connection reset")
			}
			return &models.LoadAndTestResponse{StrategyName: "保存A", BacktestResults: ev(90)}, nil
		},
	}

	m, err := NewRunner(backend, nil).Run(context.Background(), Request{
		Existing: []string{"ma", "rsi"},
		Saved:    []SavedRef{{ID: 8}, {ID: 9}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Comparison) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(m.Comparison))
	}
	// Tie at 90: the batch winner came first.
	if m.BestStrategy.Name != "RSI戦略" {
		t.Errorf("Expected earliest max to win, got %s", m.BestStrategy.Name)
	}
	if len(m.Errors) != 1 || !strings.HasPrefix(m.Errors[0], "保存戦略「9」のエラー: request failed") {
		t.Errorf("Unexpected errors: %v", m.Errors)
	}
}

func TestRunBatchFailureLabel(t *testing.T) {
	backend := &fakeBackend{
		analyze: func(req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
			return nil, &api.APIError{Status: 200, Message: "データ取得に失敗"}
		},
	}
	m, err := NewRunner(backend, nil).Run(context.Background(), Request{Existing: []string{"ma"}})
	if err != nil {
		t.Fatal(err)
	}
	if !m.Failed() || len(m.Errors) != 1 || m.Errors[0] != "既存戦略のエラー: データ取得に失敗" {
		t.Errorf("Unexpected merged result: %+v", m)
	}
}

func TestRunValidation(t *testing.T) {
	r := NewRunner(&fakeBackend{}, nil)
	if _, err := r.Run(context.Background(), Request{}); !errors.Is(err, ErrNoStrategies) {
		t.Errorf("Expected ErrNoStrategies, got %v", err)
	}
	if _, err := r.Run(context.Background(), Request{Existing: []string{"ma"}, Period: 20}); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Expected ErrInvalidPeriod, got %v", err)
	}
}
