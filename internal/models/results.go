package models

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// BacktestResult is the metrics bag returned by the backtest engine.
// Every metric is optional; the backend omits or nulls what it could not compute.
type BacktestResult struct {
	TotalTrades   *int     `json:"total_trades,omitempty"`
	WinRate       *float64 `json:"win_rate,omitempty"`
	FinalCapital  *float64 `json:"final_capital,omitempty"`
	TotalReturn   *float64 `json:"total_return,omitempty"`
	TotalPnL      *float64 `json:"total_pnl,omitempty"`
	ExpectedValue *float64 `json:"expected_value,omitempty"`
	ExpectedPnL   *float64 `json:"expected_pnl,omitempty"`
	AverageWin    *float64 `json:"average_win,omitempty"`
	AverageLoss   *float64 `json:"average_loss,omitempty"`
	ProfitFactor  *float64 `json:"profit_factor,omitempty"`
	MaxDrawdown   *float64 `json:"max_drawdown,omitempty"`
	SharpeRatio   *float64 `json:"sharpe_ratio,omitempty"`

	// raw is the object as received, so fields this client does not model
	// survive a round trip back to the backend.
	raw json.RawMessage
}

type backtestResultFields BacktestResult

// UnmarshalJSON decodes the known metrics and keeps the original bytes.
func (r *BacktestResult) UnmarshalJSON(data []byte) error {
	var f backtestResultFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = BacktestResult(f)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the received object when there is one.
func (r BacktestResult) MarshalJSON() ([]byte, error) {
	if len(r.raw) > 0 {
		return r.raw, nil
	}
	return json.Marshal(backtestResultFields(r))
}

// Trades returns the trade count, treating a missing value as zero.
func (r *BacktestResult) Trades() int {
	if r == nil || r.TotalTrades == nil {
		return 0
	}
	return *r.TotalTrades
}

// Row flattens the result into a comparison table row.
func (r *BacktestResult) Row(name string) ComparisonRow {
	row := ComparisonRow{StrategyName: name, TotalTrades: r.Trades()}
	if r != nil {
		row.WinRate = r.WinRate
		row.ExpectedValue = r.ExpectedValue
		row.TotalReturn = r.TotalReturn
		row.SharpeRatio = r.SharpeRatio
	}
	return row
}

// Amount is a money value that travels as a bare JSON number, which is what
// the backend parses; decimal.Decimal on its own marshals as a string.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) *Amount {
	return &Amount{Decimal: d}
}

// MarshalJSON writes the amount unquoted.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts both quoted and bare numbers.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	data = bytes.Trim(data, `"`)
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}
