package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jefrnc/stratlab/internal/present"
	"github.com/jefrnc/stratlab/internal/synth"
	"github.com/jefrnc/stratlab/internal/workflow"
)

// errReported means the failure has already been printed.
var errReported = errors.New("reported")

// timingFlags holds the raw flag values for one side.
type timingFlags struct {
	when          string
	order         string
	price         string
	day           string
	limit         string
	fallback      string
	fallbackPrice string
	fallbackDay   string
}

func registerTiming(fs *flag.FlagSet, side string) *timingFlags {
	t := &timingFlags{}
	fs.StringVar(&t.when, side+"-when", "", "Condition that triggers the "+side)
	fs.StringVar(&t.order, side+"-order", "", "Order type: market or limit")
	fs.StringVar(&t.price, side+"-price", "", "Market order price: close or open")
	fs.StringVar(&t.day, side+"-day", "", "Execution day: same, next, +2, +3")
	fs.StringVar(&t.limit, side+"-limit", "", "Limit condition, e.g. 終値より3%安い")
	fs.StringVar(&t.fallback, side+"-fallback", "", "When the limit does not fill: market or cancel")
	fs.StringVar(&t.fallbackPrice, side+"-fallback-price", "", "Fallback market price: close or open")
	fs.StringVar(&t.fallbackDay, side+"-fallback-day", "", "Fallback execution day")
	return t
}

func (t *timingFlags) spec() (synth.TimingSpec, error) {
	var (
		s   = synth.TimingSpec{Condition: t.when, LimitCondition: t.limit}
		err error
	)
	if s.OrderType, err = synth.ParseOrderType(t.order); err != nil {
		return s, err
	}
	if s.MarketPrice, err = synth.ParsePrice(t.price); err != nil {
		return s, err
	}
	if s.ExecutionDay, err = synth.ParseDay(t.day); err != nil {
		return s, err
	}
	if s.FallbackAction, err = synth.ParseFallbackAction(t.fallback); err != nil {
		return s, err
	}
	if s.FallbackPrice, err = synth.ParsePrice(t.fallbackPrice); err != nil {
		return s, err
	}
	if s.FallbackDay, err = synth.ParseDay(t.fallbackDay); err != nil {
		return s, err
	}
	return s, nil
}

func describe(buy, sell *timingFlags) (string, error) {
	b, err := buy.spec()
	if err != nil {
		return "", err
	}
	s, err := sell.spec()
	if err != nil {
		return "", err
	}
	return synth.Describe(b, s)
}

func runDescribe(args []string) error {
	fs := flag.NewFlagSet("describe", flag.ExitOnError)
	buy := registerTiming(fs, "buy")
	sell := registerTiming(fs, "sell")
	usage(fs, "describe [timing options]")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	text, err := describe(buy, sell)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	o := globalFlags(fs)
	buy := registerTiming(fs, "buy")
	sell := registerTiming(fs, "sell")
	description := fs.String("description", "", "Free-text strategy description (instead of timing flags)")
	symbol := fs.String("symbol", "", "Symbol to backtest (default: Nikkei 225)")
	period := fs.Int("period", 0, "Backtest period in years, 1-10 (default: config default_period)")
	investment := fs.String("investment", "", "Fixed investment amount in yen (default: config default_investment)")
	yes := fs.Bool("yes", false, "Run the backtest without asking for confirmation")
	save := fs.String("save", "", "Save the backtested strategy under this name")
	saveSymbol := fs.String("save-symbol", "", "Symbol to record when saving (default: --symbol, then the backtested one)")

	// Short aliases
	fs.StringVar(description, "m", "", "")
	fs.BoolVar(yes, "y", false, "")

	usage(fs, "generate [options]")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	text := *description
	if text == "" {
		var err error
		if text, err = describe(buy, sell); err != nil {
			return err
		}
	}

	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	in := workflow.Input{Description: text, Period: *period, Symbol: *symbol, Investment: a.cfg.DefaultInvestment}
	if in.Period == 0 {
		in.Period = a.cfg.DefaultPeriod
	}
	if *investment != "" {
		if in.Investment, err = decimal.NewFromString(*investment); err != nil {
			return fmt.Errorf("invalid investment %q: %w", *investment, err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("説明: %s\n\n", text)

	p := newPrompter()
	ctrl := workflow.New(a.client, a.logger)
	snap, err := ctrl.Submit(ctx, in)
	for {
		if err != nil {
			var gen *workflow.GenerationError
			if errors.As(err, &gen) {
				present.Failure(os.Stdout, gen)
				return errReported
			}
			return err
		}

		switch snap.State {
		case workflow.NeedsClarification:
			present.Clarification(os.Stdout, snap)
			answer, rerr := p.ask("回答 (空行でキャンセル): ")
			if rerr != nil || answer == "" {
				if err := ctrl.CancelClarification(); err != nil {
					return err
				}
				fmt.Println("キャンセルしました")
				return nil
			}
			snap, err = ctrl.SubmitClarification(ctx, answer)

		case workflow.CodeReadyForConfirmation:
			present.PendingCode(os.Stdout, snap.Pending)
			fmt.Println()
			run := *yes || p.confirm("このコードでバックテストを実行しますか?")
			snap, err = ctrl.Confirm(ctx, run)
			if err == nil && !run {
				fmt.Println("生成されたコードを破棄しました")
				return nil
			}

		case workflow.Complete:
			res := snap.Result
			fmt.Printf("戦略名: %s\n\n", res.Strategy.Name)
			present.MetricSheet(os.Stdout, "バックテスト結果", res.Backtest)
			if *save == "" {
				return nil
			}
			if err := ctrl.SaveStrategy(ctx, *save, saveSymbolFor(*saveSymbol, *symbol)); err != nil {
				return fmt.Errorf("saving strategy: %w", err)
			}
			fmt.Printf("\n戦略「%s」を保存しました\n", *save)
			return nil

		default:
			return fmt.Errorf("unexpected dialog state %s", snap.State)
		}
	}
}

// saveSymbolFor picks the symbol recorded with a saved strategy: an explicit
// --save-symbol, else the --symbol the strategy was generated for.
func saveSymbolFor(saveSymbol, symbol string) string {
	if s := strings.TrimSpace(saveSymbol); s != "" {
		return s
	}
	return strings.TrimSpace(symbol)
}
