// Package workflow drives the generate, clarify, confirm and backtest dialog
// with the strategy generation endpoint.
package workflow

import (
	"errors"
	"fmt"

	"github.com/jefrnc/stratlab/internal/models"
)

// State is a step of the generation dialog.
type State int

const (
	Idle State = iota
	Generating
	NeedsClarification
	CodeReadyForConfirmation
	Complete
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Generating:
		return "generating"
	case NeedsClarification:
		return "needs_clarification"
	case CodeReadyForConfirmation:
		return "code_ready_for_confirmation"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrBusy             = errors.New("a generation request is already in flight")
	ErrEmptyDescription = errors.New("戦略の説明を入力してください")
	ErrEmptyAnswer      = errors.New("明確化された記述を入力してください")
	ErrEmptyName        = errors.New("戦略名を入力してください")
	ErrNothingToSave    = errors.New("保存する戦略データが見つかりません")
	ErrInvalidPeriod    = errors.New("period must be between 1 and 10 years")
	ErrInvalidAmount    = errors.New("fixed investment amount must be positive")
)

// TransitionError is returned when an operation is not allowed in the
// current state.
type TransitionError struct {
	Op    string
	State State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.State)
}

// GenerationError is a failed generation or backtest. The dialog is left in
// Failed with the same message.
type GenerationError struct {
	Message       string
	GeneratedCode string
	Err           error
}

func (e *GenerationError) Error() string { return e.Message }

func (e *GenerationError) Unwrap() error { return e.Err }

// Clarification is the open question from the generator.
type Clarification struct {
	Question            string
	OriginalDescription string
	HasInference        bool
}

// Result is a generated strategy together with its backtest.
type Result struct {
	Strategy models.GeneratedStrategy
	Backtest *models.BacktestResult
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	State         State
	Rounds        []models.ClarificationRound
	Clarification *Clarification
	Pending       *models.GeneratedStrategy
	Result        *Result
	Failure       *GenerationError
}
