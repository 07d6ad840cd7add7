package present

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jefrnc/stratlab/internal/backtest"
	"github.com/jefrnc/stratlab/internal/compare"
	"github.com/jefrnc/stratlab/internal/models"
	"github.com/jefrnc/stratlab/internal/workflow"
)

const (
	unknownStrategy = "不明な戦略"
	noSymbol        = "—"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// ComparisonTable prints one row per strategy.
func ComparisonTable(w io.Writer, rows []models.ComparisonRow) {
	tw := newTable(w)
	fmt.Fprintf(tw, "戦略名\t取引数\t勝率\t期待値\t総リターン\tシャープ\n")
	fmt.Fprintf(tw, "──────\t──────\t────\t──────\t──────────\t────────\n")
	for _, r := range rows {
		name := r.StrategyName
		if name == "" {
			name = unknownStrategy
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			name,
			r.TotalTrades,
			Percent(r.WinRate),
			Yen(r.ExpectedValue),
			Percent(r.TotalReturn),
			Fixed(r.SharpeRatio),
		)
	}
	tw.Flush()
}

// Metric is one labelled line of a metric sheet.
type Metric struct {
	Label string
	Value string
}

// Metrics lists the labelled metrics of r in display order.
func Metrics(r *models.BacktestResult) []Metric {
	if r == nil {
		return nil
	}
	return []Metric{
		{"総取引数", fmt.Sprintf("%d回", r.Trades())},
		{"勝率", Percent(r.WinRate)},
		{"最終資金", Yen(r.FinalCapital)},
		{"総リターン", Percent(r.TotalReturn)},
		{"総損益", Yen(r.TotalPnL)},
		{"期待値（1取引あたり）", Yen(r.ExpectedValue)},
		{"期待損益", Yen(r.ExpectedPnL)},
		{"平均利益", Yen(r.AverageWin)},
		{"平均損失", Yen(r.AverageLoss)},
		{"プロフィットファクター", Fixed(r.ProfitFactor)},
		{"最大ドローダウン", Percent(r.MaxDrawdown)},
		{"シャープレシオ", Fixed(r.SharpeRatio)},
	}
}

// MetricSheet prints a titled list of every metric of r.
func MetricSheet(w io.Writer, title string, r *models.BacktestResult) {
	if title != "" {
		fmt.Fprintf(w, "%s\n", title)
	}
	if r == nil {
		fmt.Fprintln(w, "  (結果なし)")
		return
	}
	tw := newTable(w)
	for _, m := range Metrics(r) {
		fmt.Fprintf(tw, "  %s\t%s\n", m.Label, m.Value)
	}
	tw.Flush()
}

// Merged prints the outcome of a combined backtest.
func Merged(w io.Writer, m *backtest.Merged) {
	if m.Failed() {
		ErrorBlock(w, "", m.Errors)
		return
	}
	if len(m.Errors) > 0 {
		ErrorBlock(w, "エラーが発生した戦略:", m.Errors)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "期間: %d年\n\n", m.PeriodYears)
	if m.Single() {
		MetricSheet(w, m.StrategyName, m.Results)
		return
	}

	fmt.Fprintln(w, "戦略比較結果")
	ComparisonTable(w, m.Comparison)
	if m.BestStrategy != nil {
		fmt.Fprintln(w)
		MetricSheet(w, "最適な戦略: "+m.BestStrategy.Name, m.BestStrategy.Results)
	}
}

// ErrorBlock prints a heading followed by one line per error.
func ErrorBlock(w io.Writer, heading string, lines []string) {
	if heading != "" {
		fmt.Fprintln(w, heading)
	}
	for _, l := range lines {
		fmt.Fprintf(w, "  ✗ %s\n", l)
	}
}

func failureLines(results []models.SymbolStrategyResult) []string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		name := r.StrategyName
		if name == "" {
			name = unknownStrategy
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, r.Error))
	}
	return lines
}

// SymbolGroups prints one block per symbol. A symbol with no successful
// strategy is printed as an error block.
func SymbolGroups(w io.Writer, groups []compare.Group) {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if g.AllFailed() {
			fmt.Fprintf(w, "%s\n", g.Symbol)
			ErrorBlock(w, "すべての戦略でエラーが発生しました:", failureLines(g.Failed))
			continue
		}
		fmt.Fprintf(w, "%s の戦略比較結果\n", g.Symbol)
		if len(g.Failed) > 0 {
			ErrorBlock(w, "エラーが発生した戦略:", failureLines(g.Failed))
		}
		ComparisonTable(w, g.Rows())
	}
}

// ComparisonResult prints a full symbol comparison.
func ComparisonResult(w io.Writer, res *compare.Result) {
	fmt.Fprintf(w, "期間: %d年\n\n", res.PeriodYears)
	SymbolGroups(w, res.Groups)

	resp := res.Response
	if resp.BestSymbol == nil || *resp.BestSymbol == "" {
		return
	}
	fmt.Fprintf(w, "\n最適な銘柄: %s\n", *resp.BestSymbol)
	if len(resp.Comparison) > 0 {
		ComparisonTable(w, resp.Comparison)
	}
	if resp.BestStrategy != nil {
		fmt.Fprintln(w)
		MetricSheet(w, "最適な戦略: "+resp.BestStrategy.Name, resp.BestStrategy.Results)
	}
}

// StoredComparison prints a saved comparison.
func StoredComparison(w io.Writer, s *compare.Stored) {
	fmt.Fprintf(w, "%s (ID %d)\n", s.Comparison.Name, s.Comparison.ID)
	fmt.Fprintf(w, "最適銘柄: %s  期間: %d年", Str(s.Comparison.BestSymbol, noSymbol), s.PeriodYears)
	if a := s.Comparison.FixedInvestmentAmount; a != nil {
		fmt.Fprintf(w, "  投資額: %s", FormatAmount(a.Decimal))
	}
	fmt.Fprintf(w, "\n\n")
	ComparisonTable(w, s.Rows)
}

// Clarification prints the open question and the rounds so far.
func Clarification(w io.Writer, snap workflow.Snapshot) {
	if snap.Clarification == nil {
		return
	}
	if len(snap.Rounds) > 1 {
		fmt.Fprintln(w, "これまでの確認:")
		for i, r := range snap.Rounds[:len(snap.Rounds)-1] {
			answer := "(未回答)"
			if r.Answer != nil {
				answer = *r.Answer
			}
			fmt.Fprintf(w, "  Q%d: %s\n  A%d: %s\n", i+1, r.Question, i+1, answer)
		}
		fmt.Fprintln(w)
	}
	if d := snap.Clarification.OriginalDescription; d != "" {
		fmt.Fprintf(w, "元の記述: %s\n", d)
	}
	if snap.Clarification.HasInference {
		fmt.Fprintln(w, "推測した内容を確認してください:")
	} else {
		fmt.Fprintln(w, "タイミングを明確にしてください:")
	}
	fmt.Fprintf(w, "%s\n", snap.Clarification.Question)
}

// PendingCode prints generated code awaiting confirmation.
func PendingCode(w io.Writer, g *models.GeneratedStrategy) {
	fmt.Fprintf(w, "戦略名: %s\n", g.Name)
	if g.Description != "" {
		fmt.Fprintf(w, "説明: %s\n", g.Description)
	}
	fmt.Fprintf(w, "銘柄: %s  期間: %d年\n", Str(g.Symbol, "日経平均"), g.Period)
	if g.TimingConfirmation != nil && *g.TimingConfirmation != "" {
		fmt.Fprintf(w, "タイミング: %s\n", *g.TimingConfirmation)
	}
	fmt.Fprintf(w, "\n%s\n", strings.TrimRight(g.Code, "\n"))
}

// Failure prints a failed generation with any partial code.
func Failure(w io.Writer, f *workflow.GenerationError) {
	fmt.Fprintf(w, "エラー: %s\n", f.Message)
	if f.GeneratedCode != "" {
		fmt.Fprintf(w, "\n生成されたコード:\n%s\n", strings.TrimRight(f.GeneratedCode, "\n"))
	}
}

// StrategyList prints saved strategies.
func StrategyList(w io.Writer, strategies []models.Strategy) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID\t戦略名\t銘柄\t期間\t期待値\t作成日時\n")
	fmt.Fprintf(tw, "──\t──────\t────\t────\t──────\t────────\n")
	for _, s := range strategies {
		var ev *float64
		if s.Results != nil {
			ev = s.Results.ExpectedValue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Name, Str(s.Symbol, noSymbol), periodText(s.Period), Yen(ev), s.CreatedAt)
	}
	tw.Flush()
}

// Strategy prints one saved strategy with its code.
func Strategy(w io.Writer, s *models.Strategy) {
	fmt.Fprintf(w, "%s (ID %d)\n", s.Name, s.ID)
	if s.Description != "" {
		fmt.Fprintf(w, "説明: %s\n", s.Description)
	}
	fmt.Fprintf(w, "銘柄: %s  期間: %s\n", Str(s.Symbol, noSymbol), periodText(s.Period))
	if s.Results != nil {
		fmt.Fprintln(w)
		MetricSheet(w, "保存時のバックテスト結果", s.Results)
	}
	if s.Code != "" {
		fmt.Fprintf(w, "\n%s\n", strings.TrimRight(s.Code, "\n"))
	}
}

// ComparisonList prints saved comparisons.
func ComparisonList(w io.Writer, comparisons []models.SavedComparison) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID\t名前\t最適銘柄\t期間\t作成者\t作成日時\n")
	fmt.Fprintf(tw, "──\t────\t────────\t────\t──────\t────────\n")
	for _, c := range comparisons {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, Str(c.BestSymbol, noSymbol), periodText(c.PeriodYears), c.UserEmail, c.CreatedAt)
	}
	tw.Flush()
}

// UserList prints the admin user listing.
func UserList(w io.Writer, users []models.AdminUser) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID\tEMAIL\t名前\tROLE\t戦略数\t登録日時\n")
	fmt.Fprintf(tw, "──\t─────\t────\t────\t──────\t────────\n")
	for _, u := range users {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", u.ID, u.Email, u.Name, u.Role, u.StrategyCount, u.CreatedAt)
	}
	tw.Flush()
}

// AdminStrategyList prints strategies across all users.
func AdminStrategyList(w io.Writer, strategies []models.Strategy) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID\t戦略名\t所有者\t銘柄\t期間\t作成日時\n")
	fmt.Fprintf(tw, "──\t──────\t──────\t────\t────\t────────\n")
	for _, s := range strategies {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Name, s.UserEmail, Str(s.Symbol, noSymbol), periodText(s.Period), s.CreatedAt)
	}
	tw.Flush()
}

// ComparisonCSV writes comparison rows as CSV.
func ComparisonCSV(w io.Writer, rows []models.ComparisonRow) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{
		"strategy_name", "total_trades", "win_rate", "expected_value", "total_return", "sharpe_ratio",
	}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{
			r.StrategyName,
			strconv.Itoa(r.TotalTrades),
			csvFloat(r.WinRate),
			csvFloat(r.ExpectedValue),
			csvFloat(r.TotalReturn),
			csvFloat(r.SharpeRatio),
		}); err != nil {
			return err
		}
	}
	return nil
}

// SymbolGroupsCSV writes every successful (symbol, strategy) row as CSV.
func SymbolGroupsCSV(w io.Writer, groups []compare.Group) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{
		"symbol", "strategy_name", "total_trades", "win_rate", "expected_value", "total_return", "sharpe_ratio", "error",
	}); err != nil {
		return err
	}
	for _, g := range groups {
		for _, r := range g.Rows() {
			if err := cw.Write([]string{
				g.Symbol, r.StrategyName, strconv.Itoa(r.TotalTrades),
				csvFloat(r.WinRate), csvFloat(r.ExpectedValue), csvFloat(r.TotalReturn), csvFloat(r.SharpeRatio), "",
			}); err != nil {
				return err
			}
		}
		for _, f := range g.Failed {
			if err := cw.Write([]string{g.Symbol, f.StrategyName, "", "", "", "", "", f.Error}); err != nil {
				return err
			}
		}
	}
	return nil
}

func csvFloat(v *float64) string {
	if !valid(v) {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func periodText(p *int) string {
	if p == nil {
		return noSymbol
	}
	return fmt.Sprintf("%d年", *p)
}
