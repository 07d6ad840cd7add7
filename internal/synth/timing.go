// Package synth assembles the natural-language strategy description sent to
// the generation endpoint from structured buy/sell timing fields.
package synth

import (
	"fmt"
	"strings"
)

// Side is the trade direction a TimingSpec describes.
type Side string

const (
	Buy  Side = "買い"
	Sell Side = "売り"
)

// OrderType selects market or limit execution.
type OrderType string

const (
	OrderUnspecified OrderType = ""
	OrderMarket      OrderType = "成行"
	OrderLimit       OrderType = "指値"
)

// Price is the session price a market order fills at.
type Price string

const (
	PriceUnspecified Price = ""
	PriceClose       Price = "終値"
	PriceOpen        Price = "始値"
)

// Day is when an order executes relative to the signal.
type Day string

const (
	DayUnspecified Day = ""
	DaySame        Day = "当日"
	DayNext        Day = "翌日"
	DayPlus2       Day = "2日後"
	DayPlus3       Day = "3日後"
)

// FallbackAction is what happens to a limit order that does not fill.
type FallbackAction string

const (
	FallbackNone   FallbackAction = ""
	FallbackMarket FallbackAction = "成行"
	FallbackCancel FallbackAction = "キャンセル"
)

// TimingSpec holds the timing fields for one side of a strategy.
type TimingSpec struct {
	Condition      string
	OrderType      OrderType
	MarketPrice    Price
	ExecutionDay   Day
	LimitCondition string
	FallbackAction FallbackAction
	FallbackPrice  Price
	FallbackDay    Day
}

// Empty reports whether no field is set.
func (t TimingSpec) Empty() bool {
	return t.condition() == "" &&
		t.OrderType == OrderUnspecified &&
		t.MarketPrice == PriceUnspecified &&
		t.ExecutionDay == DayUnspecified &&
		t.limitCondition() == "" &&
		t.FallbackAction == FallbackNone
}

// EffectiveOrderType returns the explicit order type, or the one inferred
// from the price (market) or limit condition (limit) fields.
func (t TimingSpec) EffectiveOrderType() OrderType {
	switch {
	case t.OrderType != OrderUnspecified:
		return t.OrderType
	case t.MarketPrice != PriceUnspecified:
		return OrderMarket
	case t.limitCondition() != "":
		return OrderLimit
	}
	return OrderUnspecified
}

func (t TimingSpec) condition() string      { return strings.TrimSpace(t.Condition) }
func (t TimingSpec) limitCondition() string { return strings.TrimSpace(t.LimitCondition) }

// Visibility lists which groups of fields apply to a TimingSpec.
type Visibility struct {
	MarketFields         bool
	LimitFields          bool
	FallbackMarketFields bool
}

// Visibility derives the applicable field groups from the explicit order
// type and fallback action.
func (t TimingSpec) Visibility() Visibility {
	return Visibility{
		MarketFields:         t.OrderType == OrderMarket,
		LimitFields:          t.OrderType == OrderLimit,
		FallbackMarketFields: t.OrderType == OrderLimit && t.FallbackAction == FallbackMarket,
	}
}

var orderTypeAliases = map[string]OrderType{
	"":       OrderUnspecified,
	"成行":     OrderMarket,
	"market": OrderMarket,
	"指値":     OrderLimit,
	"limit":  OrderLimit,
}

var priceAliases = map[string]Price{
	"":      PriceUnspecified,
	"終値":    PriceClose,
	"close": PriceClose,
	"始値":    PriceOpen,
	"open":  PriceOpen,
}

var dayAliases = map[string]Day{
	"":         DayUnspecified,
	"当日":       DaySame,
	"same-day": DaySame,
	"same":     DaySame,
	"翌日":       DayNext,
	"next":     DayNext,
	"+1":       DayNext,
	"2日後":      DayPlus2,
	"+2":       DayPlus2,
	"3日後":      DayPlus3,
	"+3":       DayPlus3,
}

var fallbackAliases = map[string]FallbackAction{
	"":       FallbackNone,
	"none":   FallbackNone,
	"成行":     FallbackMarket,
	"market": FallbackMarket,
	"キャンセル":  FallbackCancel,
	"cancel": FallbackCancel,
}

func parse[T any](kind, s string, table map[string]T) (T, error) {
	v, ok := table[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		var zero T
		return zero, fmt.Errorf("invalid %s %q", kind, s)
	}
	return v, nil
}

// ParseOrderType accepts 成行/指値 or market/limit.
func ParseOrderType(s string) (OrderType, error) { return parse("order type", s, orderTypeAliases) }

// ParsePrice accepts 終値/始値 or close/open.
func ParsePrice(s string) (Price, error) { return parse("price", s, priceAliases) }

// ParseDay accepts 当日/翌日/2日後/3日後 or same-day/next/+2/+3.
func ParseDay(s string) (Day, error) { return parse("execution day", s, dayAliases) }

// ParseFallbackAction accepts 成行/キャンセル or market/cancel/none.
func ParseFallbackAction(s string) (FallbackAction, error) {
	return parse("fallback action", s, fallbackAliases)
}
