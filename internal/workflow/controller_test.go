package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/api"
	"github.com/jefrnc/stratlab/internal/models"
)

// fakeBackend replays canned generation responses and records requests.
type fakeBackend struct {
	mu        sync.Mutex
	responses []*models.GenerateResponse
	errs      []error
	requests  []*models.GenerateRequest
	saved     []*models.SaveStrategyRequest
	saveErr   error
	block     chan struct{}
}

func (f *fakeBackend) GenerateStrategy(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	return f.responses[i], nil
}

func (f *fakeBackend) SaveStrategy(ctx context.Context, req *models.SaveStrategyRequest) error {
	f.saved = append(f.saved, req)
	return f.saveErr
}

func strPtr(s string) *string { return &s }

func clarify(q string, inference bool) *models.GenerateResponse {
	return &models.GenerateResponse{
		NeedsClarification: true,
		TimingConfirmation: strPtr(q),
		HasInference:       inference,
		Description:        "RSIが30以下で買い",
	}
}

func codeOnly() *models.GenerateResponse {
	return &models.GenerateResponse{
		Envelope:      models.Envelope{Success: true},
		CodeOnly:      true,
		GeneratedCode: "class RSI: pass",
		StrategyName:  "RSI逆張り",
		Description:   "RSIが30以下で終値で成行買い",
		Period:        3,
	}
}

func backtested() *models.GenerateResponse {
	var results models.BacktestResult
	if err := json.Unmarshal([]byte(`{"total_trades":12,"expected_value":1500,"custom_metric":7}`), &results); err != nil {
		panic(err)
	}
	return &models.GenerateResponse{
		Envelope:        models.Envelope{Success: true},
		GeneratedCode:   "class RSI: pass",
		StrategyName:    "RSI逆張り",
		Description:     "RSIが30以下で終値で成行買い",
		Symbol:          strPtr("7203"),
		Period:          3,
		BacktestResults: &results,
	}
}

func TestFullDialog(t *testing.T) {
	backend := &fakeBackend{responses: []*models.GenerateResponse{
		clarify("売りのタイミングは？", false),
		clarify("翌日始値で売りでよろしいですか？", true),
		codeOnly(),
		backtested(),
	}}
	c := New(backend, zap.NewNop())
	ctx := context.Background()

	snap, err := c.Submit(ctx, Input{Description: "RSIが30以下で終値で成行買い"})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if snap.State != NeedsClarification || len(snap.Rounds) != 1 {
		t.Fatalf("Expected first clarification round, got %+v", snap)
	}
	if snap.Rounds[0].Answer != nil {
		t.Error("New round should have no answer")
	}
	if snap.Clarification.OriginalDescription != "RSIが30以下で買い" {
		t.Errorf("Original description not kept: %+v", snap.Clarification)
	}

	first := backend.requests[0]
	if first.RunBacktest || first.QAHistory != nil || first.ClarifiedDescription != nil {
		t.Errorf("Unexpected first request: %+v", first)
	}
	if first.Period != DefaultPeriod || !first.FixedInvestmentAmount.Equal(DefaultInvestment) {
		t.Errorf("Defaults not applied: period=%d amount=%s", first.Period, first.FixedInvestmentAmount)
	}

	snap, err = c.SubmitClarification(ctx, "翌日始値で売り")
	if err != nil {
		t.Fatalf("SubmitClarification failed: %v", err)
	}
	if snap.State != NeedsClarification || len(snap.Rounds) != 2 || !snap.Rounds[1].HasInference {
		t.Fatalf("Expected second round, got %+v", snap)
	}

	second := backend.requests[1]
	if second.Description != "翌日始値で売り" || *second.ClarifiedDescription != "翌日始値で売り" {
		t.Errorf("Clarification not sent: %+v", second)
	}
	if len(second.QAHistory) != 1 || *second.QAHistory[0].Answer != "翌日始値で売り" {
		t.Errorf("History not sent with answer: %+v", second.QAHistory)
	}

	snap, err = c.SubmitClarification(ctx, "推測内容で問題ありません")
	if err != nil {
		t.Fatalf("SubmitClarification failed: %v", err)
	}
	if snap.State != CodeReadyForConfirmation {
		t.Fatalf("Expected code confirmation, got %s", snap.State)
	}
	if len(snap.Rounds) != 0 {
		t.Error("Rounds should be cleared after successful generation")
	}
	if len(backend.requests[2].QAHistory) != 2 {
		t.Errorf("Expected two rounds sent, got %d", len(backend.requests[2].QAHistory))
	}
	if snap.Pending.Name != "RSI逆張り" {
		t.Errorf("Unexpected pending strategy: %+v", snap.Pending)
	}

	snap, err = c.Confirm(ctx, true)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if snap.State != Complete || snap.Result.Backtest.Trades() != 12 {
		t.Fatalf("Expected completed backtest, got %+v", snap)
	}
	if !backend.requests[3].RunBacktest {
		t.Error("Confirm must request a backtest")
	}
	if backend.requests[3].Description != backend.requests[2].Description {
		t.Error("Confirm must resend the stored request")
	}

	if err := c.SaveStrategy(ctx, "  ", ""); !errors.Is(err, ErrEmptyName) {
		t.Errorf("Expected ErrEmptyName, got %v", err)
	}
	if err := c.SaveStrategy(ctx, "マイRSI", "6758"); err != nil {
		t.Fatalf("SaveStrategy failed: %v", err)
	}
	saved := backend.saved[0]
	if saved.Name != "マイRSI" || *saved.Symbol != "6758" || *saved.Period != 3 {
		t.Errorf("Unexpected save request: %+v", saved)
	}
	out, _ := json.Marshal(saved.Results)
	if string(out) != `{"total_trades":12,"expected_value":1500,"custom_metric":7}` {
		t.Errorf("Results not sent back verbatim: %s", out)
	}
	if c.Snapshot().State != Complete {
		t.Error("Saving must not change state")
	}
}

func TestEmptyAnswerSendsNothing(t *testing.T) {
	backend := &fakeBackend{responses: []*models.GenerateResponse{clarify("いつ売りますか？", false)}}
	c := New(backend, nil)

	if _, err := c.Submit(context.Background(), Input{Description: "RSIが30以下で買い"}); err != nil {
		t.Fatal(err)
	}
	if _, err := c.SubmitClarification(context.Background(), "   "); !errors.Is(err, ErrEmptyAnswer) {
		t.Fatalf("Expected ErrEmptyAnswer, got %v", err)
	}
	if len(backend.requests) != 1 {
		t.Errorf("Expected no extra request, got %d", len(backend.requests))
	}
	if c.Snapshot().State != NeedsClarification {
		t.Error("State should not change on empty answer")
	}
}

func TestCancelClarificationClearsRounds(t *testing.T) {
	backend := &fakeBackend{responses: []*models.GenerateResponse{
		clarify("いつ売りますか？", false),
		clarify("いつ売りますか？", false),
	}}
	c := New(backend, nil)
	ctx := context.Background()

	c.Submit(ctx, Input{Description: "RSIが30以下で買い"})
	if err := c.CancelClarification(); err != nil {
		t.Fatalf("CancelClarification failed: %v", err)
	}
	snap := c.Snapshot()
	if snap.State != Idle || len(snap.Rounds) != 0 || snap.Clarification != nil {
		t.Errorf("Expected clean idle state, got %+v", snap)
	}

	snap, _ = c.Submit(ctx, Input{Description: "RSIが30以下で買い"})
	if len(snap.Rounds) != 1 {
		t.Errorf("A new dialog should start with one round, got %d", len(snap.Rounds))
	}
}

func TestDeclineConfirmation(t *testing.T) {
	backend := &fakeBackend{responses: []*models.GenerateResponse{codeOnly()}}
	c := New(backend, nil)
	ctx := context.Background()

	c.Submit(ctx, Input{Description: "毎日始値で成行買い"})
	snap, err := c.Confirm(ctx, false)
	if err != nil {
		t.Fatalf("Confirm(false) failed: %v", err)
	}
	if snap.State != Idle || snap.Pending != nil {
		t.Errorf("Expected pending code discarded, got %+v", snap)
	}
	if len(backend.requests) != 1 {
		t.Error("Declining must not send a request")
	}
	if err := c.SaveStrategy(ctx, "name", ""); !errors.Is(err, ErrNothingToSave) {
		t.Errorf("Expected ErrNothingToSave, got %v", err)
	}
}

func TestFailures(t *testing.T) {
	t.Run("application error keeps partial code", func(t *testing.T) {
		backend := &fakeBackend{responses: []*models.GenerateResponse{{
			Envelope:      models.Envelope{Success: false, Error: "バックテストに失敗しました"},
			GeneratedCode: "class Broken: pass",
		}}}
		c := New(backend, nil)

		snap, err := c.Submit(context.Background(), Input{Description: "毎日始値で成行買い"})
		var gerr *GenerationError
		if !errors.As(err, &gerr) {
			t.Fatalf("Expected GenerationError, got %v", err)
		}
		if snap.State != Failed || snap.Failure.GeneratedCode != "class Broken: pass" {
			t.Errorf("Unexpected snapshot: %+v", snap)
		}
		if gerr.Message != "バックテストに失敗しました" {
			t.Errorf("Unexpected message %q", gerr.Message)
		}
	})

	t.Run("missing error text falls back", func(t *testing.T) {
		backend := &fakeBackend{responses: []*models.GenerateResponse{{}}}
		c := New(backend, nil)
		_, err := c.Submit(context.Background(), Input{Description: "毎日始値で成行買い"})
		if err == nil || err.Error() != "不明なエラー" {
			t.Errorf("Expected fallback message, got %v", err)
		}
	})

	t.Run("transport error is not retried", func(t *testing.T) {
		boom := errors.New("connection refused")
		backend := &fakeBackend{errs: []error{boom}, responses: []*models.GenerateResponse{nil, codeOnly()}}
		c := New(backend, nil)

		snap, err := c.Submit(context.Background(), Input{Description: "毎日始値で成行買い"})
		if !errors.Is(err, boom) {
			t.Fatalf("Expected wrapped transport error, got %v", err)
		}
		if snap.State != Failed || len(backend.requests) != 1 {
			t.Errorf("Expected one failed attempt, got state=%s requests=%d", snap.State, len(backend.requests))
		}

		// A failed dialog can be restarted.
		snap, err = c.Submit(context.Background(), Input{Description: "毎日始値で成行買い"})
		if err != nil || snap.State != CodeReadyForConfirmation || snap.Failure != nil {
			t.Errorf("Expected restart to succeed, got %s %v", snap.State, err)
		}
	})
}

func TestServerErrorKeepsPartialCode(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/api/strategy/generate", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"backtest crashed","generated_code":"class Partial: pass"}`))
	}).Methods("POST")
	ts := httptest.NewServer(r)
	defer ts.Close()

	client := api.NewClient(ts.URL, "stratlab-test", nil, api.WithLogger(zap.NewNop()))
	c := New(client, zap.NewNop())

	snap, err := c.Submit(context.Background(), Input{Description: "毎日始値で成行買い"})
	var gerr *GenerationError
	if !errors.As(err, &gerr) {
		t.Fatalf("Expected GenerationError, got %v", err)
	}
	if snap.State != Failed {
		t.Fatalf("Expected failed state, got %s", snap.State)
	}
	if gerr.Message != "backtest crashed" {
		t.Errorf("Unexpected message %q", gerr.Message)
	}
	if snap.Failure == nil || snap.Failure.GeneratedCode != "class Partial: pass" {
		t.Errorf("Partial code lost: %+v", snap.Failure)
	}
}

func TestInputValidation(t *testing.T) {
	c := New(&fakeBackend{}, nil)
	ctx := context.Background()

	if _, err := c.Submit(ctx, Input{Description: " "}); !errors.Is(err, ErrEmptyDescription) {
		t.Errorf("Expected ErrEmptyDescription, got %v", err)
	}
	if _, err := c.Submit(ctx, Input{Description: "x", Period: 11}); !errors.Is(err, ErrInvalidPeriod) {
		t.Errorf("Expected ErrInvalidPeriod, got %v", err)
	}
	if _, err := c.Submit(ctx, Input{Description: "x", Investment: decimal.NewFromInt(-5)}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Expected ErrInvalidAmount, got %v", err)
	}
}

func TestWrongStateTransitions(t *testing.T) {
	c := New(&fakeBackend{}, nil)
	ctx := context.Background()

	var terr *TransitionError
	if _, err := c.Confirm(ctx, true); !errors.As(err, &terr) || terr.State != Idle {
		t.Errorf("Expected TransitionError from Idle, got %v", err)
	}
	if _, err := c.SubmitClarification(ctx, "answer"); !errors.As(err, &terr) {
		t.Errorf("Expected TransitionError, got %v", err)
	}
	if err := c.CancelClarification(); !errors.As(err, &terr) {
		t.Errorf("Expected TransitionError, got %v", err)
	}
}

func TestBusyWhileGenerating(t *testing.T) {
	backend := &fakeBackend{
		responses: []*models.GenerateResponse{codeOnly()},
		block:     make(chan struct{}),
	}
	c := New(backend, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Submit(context.Background(), Input{Description: "毎日始値で成行買い"})
	}()

	// Wait until the first submit holds the Generating state.
	for c.Snapshot().State != Generating {
	}

	if _, err := c.Submit(context.Background(), Input{Description: "again"}); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	close(backend.block)
	<-done

	if c.Snapshot().State != CodeReadyForConfirmation {
		t.Errorf("Unexpected final state %s", c.Snapshot().State)
	}
}
