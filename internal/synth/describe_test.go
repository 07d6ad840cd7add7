package synth

import (
	"errors"
	"strings"
	"testing"
)

func TestDescribeScenarios(t *testing.T) {
	tests := []struct {
		name string
		buy  TimingSpec
		sell TimingSpec
		want string
	}{
		{
			name: "market next day without condition",
			buy:  TimingSpec{OrderType: OrderMarket, MarketPrice: PriceClose, ExecutionDay: DayNext},
			want: "翌日に終値で成行買い",
		},
		{
			name: "limit with same-day market fallback",
			buy: TimingSpec{
				Condition:      "RSIが30以下",
				OrderType:      OrderLimit,
				LimitCondition: "10円下",
				FallbackAction: FallbackMarket,
				FallbackPrice:  PriceOpen,
				FallbackDay:    DaySame,
			},
			want: "RSIが30以下で10円下の指値で買い、成立しない場合は当日始値で成行買い",
		},
		{
			name: "market every day",
			sell: TimingSpec{MarketPrice: PriceOpen},
			want: "毎日始値で成行売り",
		},
		{
			name: "market same day is every day",
			buy:  TimingSpec{OrderType: OrderMarket, MarketPrice: PriceClose, ExecutionDay: DaySame},
			want: "毎日終値で成行買い",
		},
		{
			name: "market with condition and later day",
			buy:  TimingSpec{Condition: "5日移動平均が20日移動平均を上抜け", MarketPrice: PriceOpen, ExecutionDay: DayNext},
			want: "5日移動平均が20日移動平均を上抜けで始値で成行買い（翌日）",
		},
		{
			name: "inferred limit with later-day fallback",
			sell: TimingSpec{
				LimitCondition: "買値の3%上",
				ExecutionDay:   DayPlus2,
				FallbackAction: FallbackMarket,
				FallbackPrice:  PriceClose,
				FallbackDay:    DayPlus3,
			},
			want: "買値の3%上の指値で売り（2日後）、成立しない場合は3日後に終値で成行売り",
		},
		{
			name: "limit with cancel",
			sell: TimingSpec{OrderType: OrderLimit, LimitCondition: "100円上", FallbackAction: FallbackCancel},
			want: "100円上の指値で売り、成立しない場合は注文をキャンセル",
		},
		{
			name: "condition only defaults to market at close",
			buy:  TimingSpec{Condition: "前日比300円以上の下落", ExecutionDay: DayNext},
			want: "前日比300円以上の下落で終値で成行買い（翌日）",
		},
		{
			name: "both sides joined",
			buy:  TimingSpec{Condition: "RSIが30以下", MarketPrice: PriceClose},
			sell: TimingSpec{Condition: "RSIが70以上", MarketPrice: PriceOpen, ExecutionDay: DayNext},
			want: "RSIが30以下で終値で成行買い、RSIが70以上で始値で成行売り（翌日）",
		},
		{
			name: "execution day alone contributes nothing",
			buy:  TimingSpec{ExecutionDay: DayNext},
			sell: TimingSpec{MarketPrice: PriceClose},
			want: "毎日終値で成行売り",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Describe(tt.buy, tt.sell)
			if err != nil {
				t.Fatalf("Describe failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDescribeValidation(t *testing.T) {
	tests := []struct {
		name  string
		buy   TimingSpec
		sell  TimingSpec
		side  Side
		field string
	}{
		{
			name:  "market without price",
			buy:   TimingSpec{OrderType: OrderMarket},
			side:  Buy,
			field: "market_price",
		},
		{
			name:  "limit without condition",
			sell:  TimingSpec{OrderType: OrderLimit, Condition: "RSIが70以上"},
			side:  Sell,
			field: "limit_condition",
		},
		{
			name:  "fallback market without price",
			buy:   TimingSpec{LimitCondition: "10円下", FallbackAction: FallbackMarket, FallbackDay: DayNext},
			side:  Buy,
			field: "fallback_price",
		},
		{
			name:  "fallback market without day",
			buy:   TimingSpec{LimitCondition: "10円下", FallbackAction: FallbackMarket, FallbackPrice: PriceOpen},
			side:  Buy,
			field: "fallback_day",
		},
		{
			name:  "fallback without limit order",
			sell:  TimingSpec{FallbackAction: FallbackCancel},
			side:  Sell,
			field: "fallback_action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Describe(tt.buy, tt.sell)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %q, %v", got, err)
			}
			if verr.Side != tt.side || verr.Field != tt.field {
				t.Errorf("Got side=%s field=%s, want side=%s field=%s", verr.Side, verr.Field, tt.side, tt.field)
			}
			if got != "" {
				t.Errorf("Expected no description on error, got %q", got)
			}
		})
	}
}

func TestDescribeBuyErrorMentionsSide(t *testing.T) {
	_, err := Describe(TimingSpec{OrderType: OrderMarket}, TimingSpec{})
	if err == nil || !strings.HasPrefix(err.Error(), "買い") {
		t.Errorf("Expected buy-side message, got %v", err)
	}
}

func TestDescribeEmpty(t *testing.T) {
	specs := []TimingSpec{
		{},
		{Condition: "   "},
		{LimitCondition: " "},
	}
	for _, s := range specs {
		_, err := Describe(s, TimingSpec{})
		if !errors.Is(err, ErrNoTiming) {
			t.Errorf("Describe(%+v) error = %v, want ErrNoTiming", s, err)
		}
	}
}

func TestDescribeMarketContainsPrice(t *testing.T) {
	for _, price := range []Price{PriceClose, PriceOpen} {
		for _, day := range []Day{DayUnspecified, DaySame, DayNext, DayPlus2, DayPlus3} {
			for _, cond := range []string{"", "RSIが30以下"} {
				spec := TimingSpec{Condition: cond, OrderType: OrderMarket, MarketPrice: price, ExecutionDay: day}
				got, err := Describe(spec, TimingSpec{})
				if err != nil {
					t.Fatalf("Describe(%+v) failed: %v", spec, err)
				}
				if !strings.Contains(got, string(price)) {
					t.Errorf("%q does not contain price %s", got, price)
				}
				if cond != "" && !strings.HasPrefix(got, cond+"で"+string(price)) {
					t.Errorf("%q does not put the condition right before the price", got)
				}
			}
		}
	}
}

func TestDescribeIsDeterministic(t *testing.T) {
	buy := TimingSpec{Condition: "RSIが30以下", LimitCondition: "10円下", FallbackAction: FallbackCancel}
	sell := TimingSpec{MarketPrice: PriceClose, ExecutionDay: DayNext}

	first, err := Describe(buy, sell)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Describe(buy, sell)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("Describe not deterministic: %q vs %q", first, second)
	}
}

func TestVisibility(t *testing.T) {
	v := TimingSpec{OrderType: OrderLimit, FallbackAction: FallbackMarket}.Visibility()
	if v.MarketFields || !v.LimitFields || !v.FallbackMarketFields {
		t.Errorf("Unexpected visibility for limit+fallback: %+v", v)
	}

	v = TimingSpec{OrderType: OrderMarket, FallbackAction: FallbackMarket}.Visibility()
	if !v.MarketFields || v.LimitFields || v.FallbackMarketFields {
		t.Errorf("Unexpected visibility for market: %+v", v)
	}

	if (TimingSpec{}).Visibility() != (Visibility{}) {
		t.Error("Nothing should be visible without an order type")
	}
}

func TestParseAliases(t *testing.T) {
	if v, err := ParseOrderType("Market"); err != nil || v != OrderMarket {
		t.Errorf("ParseOrderType(Market) = %q, %v", v, err)
	}
	if v, err := ParsePrice("始値"); err != nil || v != PriceOpen {
		t.Errorf("ParsePrice(始値) = %q, %v", v, err)
	}
	if v, err := ParseDay("+2"); err != nil || v != DayPlus2 {
		t.Errorf("ParseDay(+2) = %q, %v", v, err)
	}
	if v, err := ParseFallbackAction("cancel"); err != nil || v != FallbackCancel {
		t.Errorf("ParseFallbackAction(cancel) = %q, %v", v, err)
	}
	if _, err := ParseDay("tomorrow-ish"); err == nil {
		t.Error("Expected error for unknown day")
	}
}
