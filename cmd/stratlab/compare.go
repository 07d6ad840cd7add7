package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"

	"github.com/jefrnc/stratlab/internal/compare"
	"github.com/jefrnc/stratlab/internal/present"
)

// output returns stdout or the named file.
func output(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

func runCompare(args []string) error {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	o := globalFlags(fs)
	symbols := fs.String("symbols", "", "Symbols to compare, comma separated (see: stratlab catalog)")
	existing := fs.String("strategies", "", "Built-in strategy ids, comma separated")
	saved := fs.String("saved", "", "Saved strategy ids, comma separated")
	withSavedSymbols := fs.Bool("saved-symbols", false, "Also compare on the symbols the saved strategies were built for")
	period := fs.Int("period", 0, "Backtest period in years, 1-10 (default: config default_period)")
	investment := fs.String("investment", "", "Fixed investment amount in yen (default: config default_investment)")
	save := fs.String("save", "", "Save the comparison under this name")
	csvOutput := fs.Bool("csv", false, "Output as CSV")
	outputFile := fs.String("output", "", "Output file (default: stdout)")

	// Short aliases
	fs.StringVar(existing, "s", "", "")
	fs.StringVar(outputFile, "o", "", "")

	usage(fs, "compare [options]")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	savedIDs, err := parseIDs(*saved)
	if err != nil {
		return err
	}

	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	req := compare.Request{
		Symbols:     splitList(*symbols),
		Existing:    splitList(*existing),
		Saved:       savedIDs,
		PeriodYears: *period,
		Investment:  a.cfg.DefaultInvestment,
	}
	if req.PeriodYears == 0 {
		req.PeriodYears = a.cfg.DefaultPeriod
	}
	if *investment != "" {
		if req.Investment, err = decimal.NewFromString(*investment); err != nil {
			return fmt.Errorf("invalid investment %q: %w", *investment, err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	if *withSavedSymbols && len(savedIDs) > 0 {
		if _, err := a.auth.RequireUser(); err != nil {
			return err
		}
		list, err := a.client.ListStrategies(ctx)
		if err != nil {
			return err
		}
		req.Symbols = compare.SymbolsFromSaved(req.Symbols, list, savedIDs)
	}

	orch := compare.New(a.client, a.store, a.logger)
	res, err := orch.Compare(ctx, req)
	if err != nil {
		return err
	}

	w, closeOut, err := output(*outputFile)
	if err != nil {
		return err
	}
	defer closeOut()

	if *csvOutput {
		if err := present.SymbolGroupsCSV(w, res.Groups); err != nil {
			return fmt.Errorf("writing CSV: %w", err)
		}
	} else {
		present.ComparisonResult(w, res)
	}

	if *save != "" {
		if err := orch.Save(ctx, *save, res); err != nil {
			var reauth *compare.ReauthError
			if errors.As(err, &reauth) {
				fmt.Fprintln(os.Stderr, reauth.Error())
				return errReported
			}
			return err
		}
		fmt.Fprintf(os.Stderr, "比較結果「%s」を保存しました\n", *save)
	}
	return nil
}

func runComparisons(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: stratlab comparisons list|show|delete [options]")
	}
	sub, args := args[0], args[1:]

	fs := flag.NewFlagSet("comparisons "+sub, flag.ExitOnError)
	o := globalFlags(fs)
	var csvOutput, yes *bool
	switch sub {
	case "list":
		usage(fs, "comparisons list [options]")
	case "show":
		csvOutput = fs.Bool("csv", false, "Output the top strategies as CSV")
		usage(fs, "comparisons show [options] <id>")
	case "delete":
		yes = fs.Bool("yes", false, "Delete without asking")
		usage(fs, "comparisons delete [options] <id>")
	default:
		return fmt.Errorf("unknown comparisons command %q", sub)
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	orch := compare.New(a.client, a.store, a.logger)

	if sub == "list" {
		list, err := orch.List(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("保存された比較結果はありません")
			return nil
		}
		present.ComparisonList(os.Stdout, list)
		return nil
	}

	id, err := parseID(fs.Args(), "comparison")
	if err != nil {
		return err
	}

	switch sub {
	case "show":
		stored, err := orch.Get(ctx, id)
		if err != nil {
			return err
		}
		if *csvOutput {
			return present.ComparisonCSV(os.Stdout, stored.Rows)
		}
		present.StoredComparison(os.Stdout, stored)

	case "delete":
		if !*yes && !newPrompter().confirm(fmt.Sprintf("比較結果 %d を削除しますか?", id)) {
			return nil
		}
		if err := orch.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Printf("比較結果 %d を削除しました\n", id)
	}
	return nil
}
