package models

import (
	"encoding/json"
	"time"
)

// Envelope carries the status fields every backend response shares.
type Envelope struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Status returns the envelope itself so embedding types satisfy a common interface.
func (e Envelope) Status() Envelope { return e }

// Message returns the server-supplied failure text, detail first.
func (e Envelope) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Error
}

// User is the identity returned by the auth endpoint.
type User struct {
	ID      int64  `json:"id"`
	Email   string `json:"email"`
	Role    string `json:"role"` // "user" or "admin"
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Session is the locally persisted authenticated identity.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"access_token"`
}

// LoginRequest is the body of POST /api/auth/google.
type LoginRequest struct {
	Token string `json:"token"`
}

// LoginResponse wraps the auth endpoint response.
type LoginResponse struct {
	Envelope
	AccessToken string `json:"access_token"`
	User        *User  `json:"user"`
}

// ClarificationRound is one question/answer exchange with the generator.
type ClarificationRound struct {
	Question     string  `json:"question"`
	Answer       *string `json:"answer"`
	HasInference bool    `json:"has_inference"`
}

// GenerateRequest is the body of POST /api/strategy/generate.
type GenerateRequest struct {
	Description           string               `json:"description"`
	Period                int                  `json:"period"`
	Symbol                *string              `json:"symbol"`
	FixedInvestmentAmount *Amount              `json:"fixed_investment_amount"`
	ClarifiedDescription  *string              `json:"clarified_description"`
	QAHistory             []ClarificationRound `json:"qa_history"`
	RunBacktest           bool                 `json:"run_backtest"`
}

// Clone returns a deep copy so resubmissions never alias an earlier request.
func (r *GenerateRequest) Clone() *GenerateRequest {
	c := *r
	if r.QAHistory != nil {
		c.QAHistory = append([]ClarificationRound(nil), r.QAHistory...)
	}
	return &c
}

// GenerateResponse wraps the strategy generation endpoint response.
type GenerateResponse struct {
	Envelope
	NeedsClarification bool            `json:"needs_clarification"`
	TimingConfirmation *string         `json:"timing_confirmation"`
	HasInference       bool            `json:"has_inference"`
	CodeOnly           bool            `json:"code_only"`
	GeneratedCode      string          `json:"generated_code"`
	StrategyName       string          `json:"strategy_name"`
	Description        string          `json:"description"`
	Symbol             *string         `json:"symbol"`
	Period             int             `json:"period"`
	BacktestResults    *BacktestResult `json:"backtest_results"`
}

// GeneratedStrategy is generated code awaiting confirmation or already backtested.
type GeneratedStrategy struct {
	Code               string  `json:"code"`
	Name               string  `json:"name"`
	Description        string  `json:"description"`
	Symbol             *string `json:"symbol"`
	Period             int     `json:"period"`
	TimingConfirmation *string `json:"timing_confirmation"`
}

// SaveStrategyRequest is the body of POST /api/strategy/save.
type SaveStrategyRequest struct {
	Name        string          `json:"name"`
	Code        string          `json:"code"`
	Description string          `json:"description"`
	Symbol      *string         `json:"symbol"`
	Period      *int            `json:"period"`
	Results     *BacktestResult `json:"results"`
}

// Strategy is a strategy persisted by the backend.
type Strategy struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Code        string          `json:"code,omitempty"`
	Symbol      *string         `json:"symbol"`
	Period      *int            `json:"period"`
	Results     *BacktestResult `json:"results,omitempty"`
	UserID      *int64          `json:"user_id,omitempty"`
	UserEmail   string          `json:"user_email,omitempty"`
	CreatedAt   string          `json:"created_at,omitempty"`
}

// StrategyListResponse wraps GET /api/strategy/list and the admin strategy listings.
type StrategyListResponse struct {
	Envelope
	Strategies []Strategy `json:"strategies"`
}

// StrategyResponse wraps GET /api/strategy/{id}.
type StrategyResponse struct {
	Envelope
	Strategy *Strategy `json:"strategy"`
}

// LoadAndTestRequest is the body of POST /api/strategy/load-and-test.
type LoadAndTestRequest struct {
	StrategyID            int64   `json:"strategy_id"`
	Symbol                *string `json:"symbol,omitempty"`
	Period                *int    `json:"period,omitempty"`
	FixedInvestmentAmount *Amount `json:"fixed_investment_amount,omitempty"`
}

// LoadAndTestResponse wraps the load-and-test endpoint response.
type LoadAndTestResponse struct {
	Envelope
	StrategyName    string          `json:"strategy_name"`
	BacktestResults *BacktestResult `json:"backtest_results"`
}

// ExistingStrategy is one built-in strategy offered by the backend.
type ExistingStrategy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// AvailableStrategiesResponse wraps GET /api/trading/available-strategies.
type AvailableStrategiesResponse struct {
	Envelope
	Strategies []ExistingStrategy `json:"strategies"`
}

// AnalyzeRequest is the body of POST /api/trading/analyze.
type AnalyzeRequest struct {
	Period                int      `json:"period"`
	Strategies            []string `json:"strategies"`
	Symbol                *string  `json:"symbol"`
	FixedInvestmentAmount *Amount  `json:"fixed_investment_amount"`
}

// AnalyzeResponse wraps the existing-strategy backtest response. A single
// strategy run comes back with StrategyName/Results, several with Comparison.
type AnalyzeResponse struct {
	Envelope
	PeriodYears  int             `json:"period_years"`
	StrategyName string          `json:"strategy_name,omitempty"`
	Results      *BacktestResult `json:"results,omitempty"`
	Comparison   []ComparisonRow `json:"comparison,omitempty"`
	BestStrategy *BestStrategy   `json:"best_strategy,omitempty"`
}

// ComparisonRow is one line of a strategy comparison table.
type ComparisonRow struct {
	StrategyName  string   `json:"strategy_name"`
	TotalTrades   int      `json:"total_trades"`
	WinRate       *float64 `json:"win_rate"`
	ExpectedValue *float64 `json:"expected_value"`
	TotalReturn   *float64 `json:"total_return"`
	SharpeRatio   *float64 `json:"sharpe_ratio"`
}

// BestStrategy names the winning strategy and its full metrics.
type BestStrategy struct {
	Name    string          `json:"name"`
	Results *BacktestResult `json:"results"`
}

// StrategyRun is a single named backtest outcome.
type StrategyRun struct {
	StrategyName string          `json:"strategy_name"`
	Results      *BacktestResult `json:"results"`
}

// CompareSymbolsRequest is the body of POST /api/trading/compare-symbols.
type CompareSymbolsRequest struct {
	Symbols               []string `json:"symbols"`
	Period                int      `json:"period"`
	FixedInvestmentAmount *Amount  `json:"fixed_investment_amount,omitempty"`
	ExistingStrategyIDs   []string `json:"existing_strategy_ids,omitempty"`
	StrategyIDs           []int64  `json:"strategy_ids,omitempty"`
}

// SymbolStrategyResult is one (symbol, strategy) cell of a comparison.
type SymbolStrategyResult struct {
	Symbol       string          `json:"symbol"`
	StrategyName string          `json:"strategy_name"`
	Success      bool            `json:"success"`
	Results      *BacktestResult `json:"results,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// CompareSymbolsResponse wraps the symbol comparison response.
type CompareSymbolsResponse struct {
	Envelope
	AllResults    []SymbolStrategyResult `json:"all_results"`
	BestSymbol    *string                `json:"best_symbol"`
	TopStrategies []json.RawMessage      `json:"top_strategies,omitempty"`
	Comparison    []ComparisonRow        `json:"comparison,omitempty"`
	BestStrategy  *BestStrategy          `json:"best_strategy,omitempty"`
	PeriodYears   int                    `json:"period_years"`
}

// TopStrategy is the stored shape of a top strategy. Metrics may be flat or
// nested under Results depending on which backend version wrote them.
type TopStrategy struct {
	StrategyName  string          `json:"strategy_name,omitempty"`
	Name          string          `json:"name,omitempty"`
	TotalTrades   *int            `json:"total_trades,omitempty"`
	WinRate       *float64        `json:"win_rate,omitempty"`
	ExpectedValue *float64        `json:"expected_value,omitempty"`
	TotalReturn   *float64        `json:"total_return,omitempty"`
	SharpeRatio   *float64        `json:"sharpe_ratio,omitempty"`
	Results       *BacktestResult `json:"results,omitempty"`
}

// SaveComparisonRequest is the body of POST /api/trading/save-comparison.
type SaveComparisonRequest struct {
	Name                  string            `json:"name"`
	BestSymbol            *string           `json:"best_symbol"`
	TopStrategies         []json.RawMessage `json:"top_strategies"`
	PeriodYears           int               `json:"period_years"`
	FixedInvestmentAmount *Amount           `json:"fixed_investment_amount,omitempty"`
}

// SavedComparison is a comparison persisted by the backend.
type SavedComparison struct {
	ID                    int64             `json:"id"`
	Name                  string            `json:"name"`
	BestSymbol            *string           `json:"best_symbol"`
	TopStrategies         []json.RawMessage `json:"top_strategies,omitempty"`
	PeriodYears           *int              `json:"period_years"`
	FixedInvestmentAmount *Amount           `json:"fixed_investment_amount,omitempty"`
	UserEmail             string            `json:"user_email,omitempty"`
	CreatedAt             string            `json:"created_at,omitempty"`
}

// ComparisonListResponse wraps the comparison listings.
type ComparisonListResponse struct {
	Envelope
	Comparisons []SavedComparison `json:"comparisons"`
}

// ComparisonResponse wraps GET /api/trading/comparisons/{id}.
type ComparisonResponse struct {
	Envelope
	Comparison *SavedComparison `json:"comparison"`
}

// AdminUser is a user row in the admin listing.
type AdminUser struct {
	ID            int64  `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	Role          string `json:"role"`
	StrategyCount int    `json:"strategy_count,omitempty"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// UserListResponse wraps GET /api/admin/users.
type UserListResponse struct {
	Envelope
	Users []AdminUser `json:"users"`
}

// StrategyExport is one archived strategy on disk.
type StrategyExport struct {
	Strategy   Strategy  `json:"strategy"`
	ExportedAt time.Time `json:"exported_at"`
}

// ComparisonExport is one archived comparison on disk.
type ComparisonExport struct {
	Comparison SavedComparison `json:"comparison"`
	ExportedAt time.Time       `json:"exported_at"`
}

// ExportState tracks incremental archive progress.
type ExportState struct {
	StrategyIDs   []int64   `json:"strategy_ids"`
	ComparisonIDs []int64   `json:"comparison_ids"`
	LastRunAt     time.Time `json:"last_run_at"`
}
