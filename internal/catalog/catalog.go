// Package catalog lists the symbols and built-in strategies the backend
// knows about.
package catalog

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/jefrnc/stratlab/internal/models"
)

// Symbol is a selectable ticker. The empty value means the Nikkei 225 index.
type Symbol struct {
	Value string
	Label string
}

// Symbols is the preset symbol list.
var Symbols = []Symbol{
	{"", "日経平均指数 (デフォルト)"},
	{"usdjpy", "ドル円"},
	{"1570", "日経平均レバレッジ(1570)"},
	{"9984", "ソフトバンクG(9984)"},
	{"6857", "アドバンテスト(6857)"},
	{"8035", "東京エレクトロン(8035)"},
	{"7203", "トヨタ(7203)"},
	{"8306", "三菱UFJ(8306)"},
	{"7974", "任天堂(7974)"},
	{"6758", "ソニーG(6758)"},
	{"9983", "ファーストリテイリング(9983)"},
	{"6752", "パナソニック(6752)"},
	{"4063", "信越化学(4063)"},
	{"4503", "アステラス(4503)"},
	{"6098", "リクルート(6098)"},
	{"7267", "ホンダ(7267)"},
	{"4502", "武田薬品(4502)"},
	{"6367", "ダイキン(6367)"},
	{"6861", "キーエンス(6861)"},
}

// Strategies is the built-in strategy catalogue, used when the backend
// listing is unavailable.
var Strategies = []models.ExistingStrategy{
	{ID: "ma", Name: "移動平均クロスオーバー", Description: "短期移動平均が長期移動平均を上抜けしたら買い、下抜けしたら売り"},
	{ID: "rsi", Name: "RSI戦略", Description: "RSIが売られ過ぎ（30以下）で買い、買われ過ぎ（70以上）で売り"},
	{ID: "bb", Name: "ボリンジャーバンド", Description: "価格が下バンドを下回ったら買い、上バンドを上回ったら売り"},
	{ID: "macd", Name: "MACD戦略", Description: "MACDがシグナルラインを上抜けしたら買い、下抜けしたら売り"},
	{ID: "combined", Name: "組み合わせ戦略", Description: "移動平均クロスオーバーとRSIを組み合わせた戦略"},
	{ID: "winhold", Name: "ホールド戦略", Description: "期間の最初に買って、最後までホールド"},
	{ID: "daily", Name: "毎営業日始値で買い当日の終値で売", Description: "毎営業日、始値で買い、当日の終値で売る日次完結型"},
}

// SymbolLabel returns the display label for value, or value itself when it
// is not a preset.
func SymbolLabel(value string) string {
	for _, s := range Symbols {
		if s.Value == value {
			return s.Label
		}
	}
	return value
}

// StrategyIDs returns the built-in strategy IDs in catalogue order.
func StrategyIDs() []string {
	ids := make([]string, len(Strategies))
	for i, s := range Strategies {
		ids[i] = s.ID
	}
	return ids
}

// ValidateStrategyIDs rejects IDs not in known. known defaults to the
// built-in catalogue when empty.
func ValidateStrategyIDs(ids []string, known []models.ExistingStrategy) error {
	if len(known) == 0 {
		known = Strategies
	}
	var unknown []string
	for _, id := range ids {
		if !slices.ContainsFunc(known, func(s models.ExistingStrategy) bool { return s.ID == id }) {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown strategy id(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}

// Print writes both lists as tables.
func Print(w io.Writer, strategies []models.ExistingStrategy) {
	if len(strategies) == 0 {
		strategies = Strategies
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "ID\t戦略\t説明\n")
	fmt.Fprintf(tw, "──\t────\t────\n")
	for _, s := range strategies {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, s.Description)
	}
	tw.Flush()

	fmt.Fprintln(w)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "SYMBOL\t銘柄\n")
	fmt.Fprintf(tw, "──────\t────\n")
	for _, s := range Symbols {
		v := s.Value
		if v == "" {
			v = "(none)"
		}
		fmt.Fprintf(tw, "%s\t%s\n", v, s.Label)
	}
	tw.Flush()
}
