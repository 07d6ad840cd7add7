package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/backtest"
	"github.com/jefrnc/stratlab/internal/catalog"
	"github.com/jefrnc/stratlab/internal/models"
	"github.com/jefrnc/stratlab/internal/present"
)

// backtestFlags are the parameters shared by every backtest command.
type backtestFlags struct {
	symbol     *string
	period     *int
	investment *string
}

func registerBacktest(fs *flag.FlagSet) *backtestFlags {
	return &backtestFlags{
		symbol:     fs.String("symbol", "", "Symbol to backtest (default: Nikkei 225)"),
		period:     fs.Int("period", 0, "Backtest period in years, 1-10 (default: config default_period)"),
		investment: fs.String("investment", "", "Fixed investment amount in yen (default: config default_investment)"),
	}
}

// resolve applies configured defaults.
func (b *backtestFlags) resolve(a *app) (int, decimal.Decimal, error) {
	period := *b.period
	if period == 0 {
		period = a.cfg.DefaultPeriod
	}
	amount := a.cfg.DefaultInvestment
	if *b.investment != "" {
		d, err := decimal.NewFromString(*b.investment)
		if err != nil {
			return 0, amount, fmt.Errorf("invalid investment %q: %w", *b.investment, err)
		}
		amount = d
	}
	return period, amount, nil
}

func runStrategies(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: stratlab strategies list|show|test|delete [options]")
	}
	sub, args := args[0], args[1:]

	fs := flag.NewFlagSet("strategies "+sub, flag.ExitOnError)
	o := globalFlags(fs)
	var bt *backtestFlags
	var yes *bool
	switch sub {
	case "list":
		usage(fs, "strategies list [options]")
	case "show":
		usage(fs, "strategies show [options] <id>")
	case "test":
		bt = registerBacktest(fs)
		usage(fs, "strategies test [options] <id>")
	case "delete":
		yes = fs.Bool("yes", false, "Delete without asking")
		usage(fs, "strategies delete [options] <id>")
	default:
		return fmt.Errorf("unknown strategies command %q", sub)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.auth.RequireUser(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	if sub == "list" {
		strategies, err := a.client.ListStrategies(ctx)
		if err != nil {
			return err
		}
		if len(strategies) == 0 {
			fmt.Println("保存された戦略はありません")
			return nil
		}
		present.StrategyList(os.Stdout, strategies)
		return nil
	}

	id, err := parseID(fs.Args(), "strategy")
	if err != nil {
		return err
	}

	switch sub {
	case "show":
		s, err := a.client.GetStrategy(ctx, id)
		if err != nil {
			return err
		}
		present.Strategy(os.Stdout, s)

	case "test":
		period, amount, err := bt.resolve(a)
		if err != nil {
			return err
		}
		merged, err := backtest.NewRunner(a.client, a.logger).Run(ctx, backtest.Request{
			Saved:      []backtest.SavedRef{{ID: id}},
			Symbol:     *bt.symbol,
			Period:     period,
			Investment: amount,
		})
		if err != nil {
			return err
		}
		present.Merged(os.Stdout, merged)
		if merged.Failed() {
			return errReported
		}

	case "delete":
		if !*yes && !newPrompter().confirm(fmt.Sprintf("戦略 %d を削除しますか?", id)) {
			return nil
		}
		if err := a.client.DeleteStrategy(ctx, id); err != nil {
			return err
		}
		fmt.Printf("戦略 %d を削除しました\n", id)
	}
	return nil
}

func runBacktest(args []string) error {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	o := globalFlags(fs)
	bt := registerBacktest(fs)
	existing := fs.String("strategies", "", "Built-in strategy ids, comma separated (see: stratlab catalog)")
	saved := fs.String("saved", "", "Saved strategy ids, comma separated")

	// Short aliases
	fs.StringVar(existing, "s", "", "")

	usage(fs, "backtest [options]")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	savedIDs, err := parseIDs(*saved)
	if err != nil {
		return err
	}
	existingIDs := splitList(*existing)

	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if len(existingIDs) > 0 {
		known, err := a.client.AvailableStrategies(ctx)
		if err != nil {
			a.logger.Debug("using built-in strategy catalogue", zap.Error(err))
		}
		if err := catalog.ValidateStrategyIDs(existingIDs, known); err != nil {
			return err
		}
	}

	refs, err := savedRefs(ctx, a, savedIDs)
	if err != nil {
		return err
	}

	period, amount, err := bt.resolve(a)
	if err != nil {
		return err
	}

	merged, err := backtest.NewRunner(a.client, a.logger).Run(ctx, backtest.Request{
		Existing:   existingIDs,
		Saved:      refs,
		Symbol:     *bt.symbol,
		Period:     period,
		Investment: amount,
	})
	if err != nil {
		return err
	}

	if *bt.symbol != "" {
		fmt.Printf("銘柄: %s\n", catalog.SymbolLabel(*bt.symbol))
	}
	present.Merged(os.Stdout, merged)
	if merged.Failed() {
		return errReported
	}
	return nil
}

// savedRefs names the selected saved strategies for error lines. The names
// need the strategy list, which needs a session.
func savedRefs(ctx context.Context, a *app, ids []int64) ([]backtest.SavedRef, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := a.auth.RequireUser(); err != nil {
		return nil, err
	}

	list, err := a.client.ListStrategies(ctx)
	if err != nil {
		a.logger.Debug("saved strategy names unavailable", zap.Error(err))
	}
	names := strategyNames(list)

	refs := make([]backtest.SavedRef, len(ids))
	for i, id := range ids {
		refs[i] = backtest.SavedRef{ID: id, Name: names[id]}
	}
	return refs, nil
}

// strategyNames returns the saved strategies keyed by id.
func strategyNames(list []models.Strategy) map[int64]string {
	names := make(map[int64]string, len(list))
	for _, s := range list {
		names[s.ID] = s.Name
	}
	return names
}
