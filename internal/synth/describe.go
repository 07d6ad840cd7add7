package synth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoTiming is returned when neither side yields a description.
var ErrNoTiming = errors.New("買いまたは売りのタイミングを指定してください。")

// ValidationError names the side and field that blocked synthesis.
type ValidationError struct {
	Side    Side
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Describe builds the strategy description from the buy and sell timings.
// Sides are rendered independently and joined with 、.
func Describe(buy, sell TimingSpec) (string, error) {
	buyText, err := fragment(Buy, buy)
	if err != nil {
		return "", err
	}
	sellText, err := fragment(Sell, sell)
	if err != nil {
		return "", err
	}

	switch {
	case buyText != "" && sellText != "":
		return buyText + "、" + sellText, nil
	case buyText != "":
		return buyText, nil
	case sellText != "":
		return sellText, nil
	}
	return "", ErrNoTiming
}

func fragment(side Side, t TimingSpec) (string, error) {
	if t.Empty() {
		return "", nil
	}

	cond := t.condition()
	switch t.EffectiveOrderType() {
	case OrderMarket:
		return marketFragment(side, t, cond)
	case OrderLimit:
		return limitFragment(side, t, cond)
	}

	if cond != "" {
		price := t.MarketPrice
		if price == PriceUnspecified {
			price = PriceClose
		}
		return fmt.Sprintf("%sで%sで成行%s", cond, price, side) + daySuffix(t.ExecutionDay), nil
	}
	if t.FallbackAction != FallbackNone {
		return "", &ValidationError{
			Side:    side,
			Field:   "fallback_action",
			Message: "指値が成立しない場合の処理を指定するには、まず指値注文を選択し、指値条件を入力してください。",
		}
	}
	// Only an execution day was given: nothing to say for this side.
	return "", nil
}

func marketFragment(side Side, t TimingSpec, cond string) (string, error) {
	if t.MarketPrice == PriceUnspecified {
		return "", &ValidationError{
			Side:    side,
			Field:   "market_price",
			Message: fmt.Sprintf("%sの成行のタイミングを選択してください", side),
		}
	}
	if cond != "" {
		return fmt.Sprintf("%sで%sで成行%s", cond, t.MarketPrice, side) + daySuffix(t.ExecutionDay), nil
	}
	if t.ExecutionDay != DayUnspecified && t.ExecutionDay != DaySame {
		return fmt.Sprintf("%sに%sで成行%s", t.ExecutionDay, t.MarketPrice, side), nil
	}
	return fmt.Sprintf("毎日%sで成行%s", t.MarketPrice, side), nil
}

func limitFragment(side Side, t TimingSpec, cond string) (string, error) {
	limit := t.limitCondition()
	if limit == "" {
		return "", &ValidationError{
			Side:    side,
			Field:   "limit_condition",
			Message: fmt.Sprintf("%sの指値条件を入力してください", side),
		}
	}

	var b strings.Builder
	if cond != "" {
		fmt.Fprintf(&b, "%sで", cond)
	}
	fmt.Fprintf(&b, "%sの指値で%s", limit, side)
	b.WriteString(daySuffix(t.ExecutionDay))

	switch t.FallbackAction {
	case FallbackMarket:
		if t.FallbackPrice == PriceUnspecified {
			return "", &ValidationError{
				Side:    side,
				Field:   "fallback_price",
				Message: fmt.Sprintf("%sの指値が成立しない場合の成行のタイミングを選択してください", side),
			}
		}
		if t.FallbackDay == DayUnspecified {
			return "", &ValidationError{
				Side:    side,
				Field:   "fallback_day",
				Message: fmt.Sprintf("%sの指値が成立しない場合の実行日を選択してください", side),
			}
		}
		if t.FallbackDay == DaySame {
			fmt.Fprintf(&b, "、成立しない場合は当日%sで成行%s", t.FallbackPrice, side)
		} else {
			fmt.Fprintf(&b, "、成立しない場合は%sに%sで成行%s", t.FallbackDay, t.FallbackPrice, side)
		}
	case FallbackCancel:
		b.WriteString("、成立しない場合は注文をキャンセル")
	}
	return b.String(), nil
}

// daySuffix is appended when the order executes on a later day.
func daySuffix(d Day) string {
	if d == DayUnspecified || d == DaySame {
		return ""
	}
	return "（" + string(d) + "）"
}
