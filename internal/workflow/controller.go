package workflow

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/models"
)

const (
	DefaultPeriod = 3
	MinPeriod     = 1
	MaxPeriod     = 10

	defaultStrategyName = "生成された戦略"
	unknownError        = "不明なエラー"
)

// DefaultInvestment is the fixed amount per trade when none is given.
var DefaultInvestment = decimal.NewFromInt(1_000_000)

// Backend is the part of the API client the controller needs.
type Backend interface {
	GenerateStrategy(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error)
	SaveStrategy(ctx context.Context, req *models.SaveStrategyRequest) error
}

// Input starts a new dialog.
type Input struct {
	Description string
	Period      int
	Symbol      string
	Investment  decimal.Decimal
}

// Controller is the generation dialog state machine. The mutex guards state
// only and is released while a request is in flight.
type Controller struct {
	backend Backend
	logger  *zap.Logger

	mu            sync.Mutex
	state         State
	request       *models.GenerateRequest
	rounds        []models.ClarificationRound
	clarification *Clarification
	pending       *models.GeneratedStrategy
	result        *Result
	resultRaw     *models.GenerateResponse
	failure       *GenerationError
}

// New creates an idle controller.
func New(backend Backend, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{backend: backend, logger: logger}
}

// Submit starts a fresh dialog and asks for code only.
func (c *Controller) Submit(ctx context.Context, in Input) (Snapshot, error) {
	req, err := buildRequest(in)
	if err != nil {
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if err := c.begin("submit", Idle, Complete, Failed); err != nil {
		c.mu.Unlock()
		return c.Snapshot(), err
	}
	c.rounds = nil
	c.clarification = nil
	c.pending = nil
	c.result = nil
	c.resultRaw = nil
	c.failure = nil
	c.request = req
	sent := req.Clone()
	c.mu.Unlock()

	c.logger.Info("submitting strategy description",
		zap.String("description", sent.Description),
		zap.Int("period", sent.Period))
	return c.send(ctx, sent)
}

// SubmitClarification answers the open question and resubmits.
func (c *Controller) SubmitClarification(ctx context.Context, answer string) (Snapshot, error) {
	answer = strings.TrimSpace(answer)

	c.mu.Lock()
	if c.state == Generating {
		c.mu.Unlock()
		return c.Snapshot(), ErrBusy
	}
	if c.state != NeedsClarification {
		st := c.state
		c.mu.Unlock()
		return c.Snapshot(), &TransitionError{Op: "submit clarification", State: st}
	}
	if answer == "" {
		c.mu.Unlock()
		return c.Snapshot(), ErrEmptyAnswer
	}

	if n := len(c.rounds); n > 0 {
		c.rounds[n-1].Answer = &answer
	}
	c.request.Description = answer
	c.request.ClarifiedDescription = &answer
	c.request.QAHistory = slices.Clone(c.rounds)
	c.request.RunBacktest = false
	c.state = Generating
	sent := c.request.Clone()
	c.mu.Unlock()

	c.logger.Info("resubmitting with clarification", zap.Int("rounds", len(sent.QAHistory)))
	return c.send(ctx, sent)
}

// CancelClarification abandons the dialog and forgets its rounds.
func (c *Controller) CancelClarification() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != NeedsClarification {
		return &TransitionError{Op: "cancel clarification", State: c.state}
	}
	c.rounds = nil
	c.clarification = nil
	c.state = Idle
	return nil
}

// Confirm runs the backtest for the pending code, or discards it.
func (c *Controller) Confirm(ctx context.Context, run bool) (Snapshot, error) {
	c.mu.Lock()
	if c.state == Generating {
		c.mu.Unlock()
		return c.Snapshot(), ErrBusy
	}
	if c.state != CodeReadyForConfirmation {
		st := c.state
		c.mu.Unlock()
		return c.Snapshot(), &TransitionError{Op: "confirm", State: st}
	}

	if !run {
		c.pending = nil
		c.state = Idle
		c.mu.Unlock()
		return c.Snapshot(), nil
	}

	c.state = Generating
	sent := c.request.Clone()
	sent.RunBacktest = true
	c.mu.Unlock()

	c.logger.Info("running backtest for generated code")
	return c.send(ctx, sent)
}

// SaveStrategy persists the completed strategy. symbol, when non-empty,
// replaces the symbol the backend reported.
func (c *Controller) SaveStrategy(ctx context.Context, name, symbol string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	c.mu.Lock()
	st, raw := c.state, c.resultRaw
	c.mu.Unlock()

	switch {
	case st == Generating:
		return ErrBusy
	case raw == nil:
		return ErrNothingToSave
	case st != Complete:
		return &TransitionError{Op: "save strategy", State: st}
	}

	req := &models.SaveStrategyRequest{
		Name:        name,
		Code:        raw.GeneratedCode,
		Description: raw.Description,
		Symbol:      raw.Symbol,
		Results:     raw.BacktestResults,
	}
	if s := strings.TrimSpace(symbol); s != "" {
		req.Symbol = &s
	}
	if raw.Period != 0 {
		p := raw.Period
		req.Period = &p
	}

	if err := c.backend.SaveStrategy(ctx, req); err != nil {
		c.logger.Warn("saving strategy failed", zap.String("name", name), zap.Error(err))
		return err
	}
	c.logger.Info("strategy saved", zap.String("name", name))
	return nil
}

// Snapshot returns a copy of the current dialog state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{State: c.state, Rounds: slices.Clone(c.rounds)}
	if c.clarification != nil {
		cl := *c.clarification
		s.Clarification = &cl
	}
	if c.pending != nil {
		p := *c.pending
		s.Pending = &p
	}
	if c.result != nil {
		r := *c.result
		s.Result = &r
	}
	if c.failure != nil {
		f := *c.failure
		s.Failure = &f
	}
	return s
}

// begin moves to Generating if the current state is one of allowed.
// Callers hold c.mu.
func (c *Controller) begin(op string, allowed ...State) error {
	if c.state == Generating {
		return ErrBusy
	}
	if !slices.Contains(allowed, c.state) {
		return &TransitionError{Op: op, State: c.state}
	}
	c.state = Generating
	return nil
}

// send performs the request without holding the lock and applies the outcome.
func (c *Controller) send(ctx context.Context, req *models.GenerateRequest) (Snapshot, error) {
	resp, err := c.backend.GenerateStrategy(ctx, req)

	c.mu.Lock()
	var failure error
	if err != nil {
		c.fail(&GenerationError{Message: err.Error(), Err: err})
		failure = c.failure
	} else {
		failure = c.apply(resp)
	}
	c.mu.Unlock()

	return c.Snapshot(), failure
}

// apply interprets a generation response. Callers hold c.mu.
func (c *Controller) apply(resp *models.GenerateResponse) error {
	switch {
	case resp.NeedsClarification:
		q := ""
		if resp.TimingConfirmation != nil {
			q = *resp.TimingConfirmation
		}
		c.rounds = append(c.rounds, models.ClarificationRound{
			Question:     q,
			HasInference: resp.HasInference,
		})
		c.clarification = &Clarification{
			Question:            q,
			OriginalDescription: resp.Description,
			HasInference:        resp.HasInference,
		}
		c.state = NeedsClarification
		c.logger.Info("generator asked for clarification", zap.Int("round", len(c.rounds)))
		return nil

	case resp.Success && resp.CodeOnly:
		c.pending = generated(resp)
		c.rounds = nil
		c.clarification = nil
		c.state = CodeReadyForConfirmation
		c.logger.Info("code generated, awaiting confirmation", zap.String("strategy", c.pending.Name))
		return nil

	case resp.Success:
		c.result = &Result{Strategy: *generated(resp), Backtest: resp.BacktestResults}
		c.resultRaw = resp
		c.pending = nil
		c.rounds = nil
		c.clarification = nil
		c.state = Complete
		c.logger.Info("backtest complete", zap.String("strategy", c.result.Strategy.Name))
		return nil
	}

	msg := resp.Error
	if msg == "" {
		msg = unknownError
	}
	c.fail(&GenerationError{Message: msg, GeneratedCode: resp.GeneratedCode})
	return c.failure
}

// fail records a failure. Callers hold c.mu.
func (c *Controller) fail(e *GenerationError) {
	c.failure = e
	c.state = Failed
	c.logger.Warn("generation failed", zap.String("error", e.Message))
}

func generated(resp *models.GenerateResponse) *models.GeneratedStrategy {
	name := resp.StrategyName
	if name == "" {
		name = defaultStrategyName
	}
	return &models.GeneratedStrategy{
		Code:               resp.GeneratedCode,
		Name:               name,
		Description:        resp.Description,
		Symbol:             resp.Symbol,
		Period:             resp.Period,
		TimingConfirmation: resp.TimingConfirmation,
	}
}

func buildRequest(in Input) (*models.GenerateRequest, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, ErrEmptyDescription
	}

	period := in.Period
	if period == 0 {
		period = DefaultPeriod
	}
	if period < MinPeriod || period > MaxPeriod {
		return nil, ErrInvalidPeriod
	}

	amount := in.Investment
	if amount.IsZero() {
		amount = DefaultInvestment
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	req := &models.GenerateRequest{
		Description:           desc,
		Period:                period,
		FixedInvestmentAmount: models.NewAmount(amount),
	}
	if s := strings.TrimSpace(in.Symbol); s != "" {
		req.Symbol = &s
	}
	return req, nil
}
