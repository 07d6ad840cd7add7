// Package compare runs multi-symbol strategy comparisons and manages saved
// comparisons.
package compare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/api"
	"github.com/jefrnc/stratlab/internal/models"
)

const (
	defaultPeriod   = 3
	unknownStrategy = "不明な戦略"
)

var (
	ErrNoSymbols     = errors.New("少なくとも1つの銘柄を選択または入力してください")
	ErrNoStrategies  = errors.New("少なくとも1つの戦略を選択してください")
	ErrInvalidPeriod = errors.New("period must be between 1 and 10 years")
	ErrEmptyName     = errors.New("比較結果の名前を入力してください")
	ErrNotLoggedIn   = errors.New("ログインが必要です")
	ErrNoResult      = errors.New("no comparison result to save")
	ErrInvalidAmount = errors.New("fixed investment amount must be positive")
)

// DefaultInvestment is used when a request leaves the amount at zero.
var DefaultInvestment = decimal.NewFromInt(1_000_000)

// ReauthError is returned when the backend rejected the session. The local
// session has already been cleared.
type ReauthError struct {
	Detail string
	Err    error
}

func (e *ReauthError) Error() string {
	msg := "ログインの有効期限が切れたか、認証に失敗しました。再度ログインしてください。"
	if e.Detail != "" {
		msg += "\n詳細: " + e.Detail
	}
	return msg
}

func (e *ReauthError) Unwrap() error { return e.Err }

// Backend is the part of the API client the orchestrator needs.
type Backend interface {
	CompareSymbols(ctx context.Context, req *models.CompareSymbolsRequest) (*models.CompareSymbolsResponse, error)
	SaveComparison(ctx context.Context, req *models.SaveComparisonRequest) error
	ListComparisons(ctx context.Context) ([]models.SavedComparison, error)
	GetComparison(ctx context.Context, id int64) (*models.SavedComparison, error)
	DeleteComparison(ctx context.Context, id int64) error
}

// Session reports whether a user is logged in.
type Session interface {
	Authenticated() bool
}

// Request selects symbols and strategies to compare.
type Request struct {
	Symbols     []string
	Existing    []string
	Saved       []int64
	PeriodYears int
	Investment  decimal.Decimal
}

// Group is every result for one symbol.
type Group struct {
	Symbol    string
	Succeeded []models.SymbolStrategyResult
	Failed    []models.SymbolStrategyResult
}

// AllFailed reports whether no strategy produced a result for the symbol.
func (g Group) AllFailed() bool { return len(g.Succeeded) == 0 }

// Rows returns comparison rows for the successful results.
func (g Group) Rows() []models.ComparisonRow {
	rows := make([]models.ComparisonRow, 0, len(g.Succeeded))
	for _, r := range g.Succeeded {
		rows = append(rows, r.Results.Row(strategyName(r.StrategyName)))
	}
	return rows
}

// Result is a completed comparison.
type Result struct {
	Response    *models.CompareSymbolsResponse
	Groups      []Group
	PeriodYears int
	Investment  decimal.Decimal
}

// Stored is a saved comparison with its top strategies as table rows.
type Stored struct {
	Comparison  models.SavedComparison
	PeriodYears int
	Rows        []models.ComparisonRow
}

// Orchestrator sends comparisons to the backend and shapes the results.
type Orchestrator struct {
	backend Backend
	session Session
	logger  *zap.Logger
}

// New creates an orchestrator.
func New(backend Backend, session Session, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{backend: backend, session: session, logger: logger}
}

// Validate normalizes req: symbols are trimmed and deduplicated, defaults
// applied. No request is sent.
func Validate(req Request) (Request, error) {
	req.Symbols = normalizeSymbols(req.Symbols)
	if len(req.Symbols) == 0 {
		return req, ErrNoSymbols
	}
	if len(req.Existing) == 0 && len(req.Saved) == 0 {
		return req, ErrNoStrategies
	}
	if req.PeriodYears == 0 {
		req.PeriodYears = defaultPeriod
	}
	if req.PeriodYears < 1 || req.PeriodYears > 10 {
		return req, ErrInvalidPeriod
	}
	switch {
	case req.Investment.IsZero():
		req.Investment = DefaultInvestment
	case req.Investment.IsNegative():
		return req, ErrInvalidAmount
	}
	return req, nil
}

// Compare runs the comparison in one backend call and groups the results by
// symbol in the order the backend returned them.
func (o *Orchestrator) Compare(ctx context.Context, req Request) (*Result, error) {
	req, err := Validate(req)
	if err != nil {
		return nil, err
	}

	o.logger.Info("comparing symbols",
		zap.Strings("symbols", req.Symbols),
		zap.Strings("existing", req.Existing),
		zap.Int64s("saved", req.Saved),
		zap.Int("period", req.PeriodYears))

	resp, err := o.backend.CompareSymbols(ctx, &models.CompareSymbolsRequest{
		Symbols:               req.Symbols,
		Period:                req.PeriodYears,
		FixedInvestmentAmount: models.NewAmount(req.Investment),
		ExistingStrategyIDs:   req.Existing,
		StrategyIDs:           req.Saved,
	})
	if err != nil {
		return nil, fmt.Errorf("comparing symbols: %w", err)
	}

	period := resp.PeriodYears
	if period == 0 {
		period = req.PeriodYears
	}
	return &Result{
		Response:    resp,
		Groups:      GroupBySymbol(resp.AllResults),
		PeriodYears: period,
		Investment:  req.Investment,
	}, nil
}

// GroupBySymbol partitions results per symbol, keeping first-seen order.
func GroupBySymbol(results []models.SymbolStrategyResult) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range results {
		i, ok := index[r.Symbol]
		if !ok {
			i = len(groups)
			index[r.Symbol] = i
			groups = append(groups, Group{Symbol: r.Symbol})
		}
		if r.Success {
			groups[i].Succeeded = append(groups[i].Succeeded, r)
		} else {
			groups[i].Failed = append(groups[i].Failed, r)
		}
	}
	return groups
}

// Save stores res under name. It needs a logged-in session; a rejected
// session is reported as *ReauthError.
func (o *Orchestrator) Save(ctx context.Context, name string, res *Result) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if o.session == nil || !o.session.Authenticated() {
		return ErrNotLoggedIn
	}
	if res == nil || res.Response == nil {
		return ErrNoResult
	}

	top := res.Response.TopStrategies
	if top == nil {
		top = []json.RawMessage{}
	}
	req := &models.SaveComparisonRequest{
		Name:          name,
		BestSymbol:    res.Response.BestSymbol,
		TopStrategies: top,
		PeriodYears:   res.PeriodYears,
	}
	if res.Investment.IsPositive() {
		req.FixedInvestmentAmount = models.NewAmount(res.Investment)
	}

	if err := o.backend.SaveComparison(ctx, req); err != nil {
		if api.IsUnauthorized(err) {
			o.logger.Warn("session rejected while saving comparison")
			return &ReauthError{Detail: api.Message(err), Err: err}
		}
		return fmt.Errorf("saving comparison: %w", err)
	}
	o.logger.Info("comparison saved", zap.String("name", name))
	return nil
}

// List returns the saved comparisons.
func (o *Orchestrator) List(ctx context.Context) ([]models.SavedComparison, error) {
	if o.session == nil || !o.session.Authenticated() {
		return nil, ErrNotLoggedIn
	}
	return o.backend.ListComparisons(ctx)
}

// Get loads a saved comparison and maps its top strategies to rows.
func (o *Orchestrator) Get(ctx context.Context, id int64) (*Stored, error) {
	if o.session == nil || !o.session.Authenticated() {
		return nil, ErrNotLoggedIn
	}
	c, err := o.backend.GetComparison(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading comparison %d: %w", id, err)
	}

	s := &Stored{Comparison: *c, PeriodYears: defaultPeriod}
	if c.PeriodYears != nil {
		s.PeriodYears = *c.PeriodYears
	}
	for _, raw := range c.TopStrategies {
		row, err := TopStrategyRow(raw)
		if err != nil {
			o.logger.Warn("skipping unreadable top strategy", zap.Int64("comparison_id", id), zap.Error(err))
			continue
		}
		s.Rows = append(s.Rows, row)
	}
	return s, nil
}

// Delete removes a saved comparison.
func (o *Orchestrator) Delete(ctx context.Context, id int64) error {
	if o.session == nil || !o.session.Authenticated() {
		return ErrNotLoggedIn
	}
	return o.backend.DeleteComparison(ctx, id)
}

// TopStrategyRow reads a stored top strategy. Metrics may sit at the top
// level or under "results"; top-level values win.
func TopStrategyRow(raw json.RawMessage) (models.ComparisonRow, error) {
	var t models.TopStrategy
	if err := json.Unmarshal(raw, &t); err != nil {
		return models.ComparisonRow{}, err
	}

	name := t.StrategyName
	if name == "" {
		name = t.Name
	}
	row := t.Results.Row(strategyName(name))
	if t.TotalTrades != nil {
		row.TotalTrades = *t.TotalTrades
	}
	row.WinRate = firstSet(t.WinRate, row.WinRate)
	row.ExpectedValue = firstSet(t.ExpectedValue, row.ExpectedValue)
	row.TotalReturn = firstSet(t.TotalReturn, row.TotalReturn)
	row.SharpeRatio = firstSet(t.SharpeRatio, row.SharpeRatio)
	return row, nil
}

// SymbolsFromSaved appends the symbols of the selected saved strategies to
// symbols, skipping ones already present.
func SymbolsFromSaved(symbols []string, strategies []models.Strategy, ids []int64) []string {
	out := slices.Clone(symbols)
	for _, s := range strategies {
		if !slices.Contains(ids, s.ID) || s.Symbol == nil || *s.Symbol == "" {
			continue
		}
		if !slices.Contains(out, *s.Symbol) {
			out = append(out, *s.Symbol)
		}
	}
	return out
}

func normalizeSymbols(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

func strategyName(name string) string {
	if name == "" {
		return unknownStrategy
	}
	return name
}

func firstSet(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}
