package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/catalog"
	"github.com/jefrnc/stratlab/internal/exporter"
	"github.com/jefrnc/stratlab/internal/summary"
)

func runCatalog(args []string) error {
	fs := flag.NewFlagSet("catalog", flag.ExitOnError)
	o := globalFlags(fs)
	offline := fs.Bool("offline", false, "Use the built-in list without asking the backend")
	usage(fs, "catalog [options]")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *offline {
		catalog.Print(os.Stdout, nil)
		return nil
	}

	a, err := newApp(o)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	strategies, err := a.client.AvailableStrategies(ctx)
	if err != nil {
		a.logger.Warn("backend strategy list unavailable, showing built-in list", zap.Error(err))
	}
	catalog.Print(os.Stdout, strategies)
	return nil
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	o := globalFlags(fs)
	force := fs.Bool("force", false, "Re-export strategies and comparisons already archived")
	comparisons := fs.Bool("comparisons", true, "Also archive saved comparisons")
	usage(fs, "export [options]")
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

	exp := exporter.New(a.client, a.cfg.DataDir, a.logger)
	report, err := exp.Run(ctx, exporter.Options{
		Comparisons: *comparisons,
		Force:       *force,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Exported %d strategies, %d comparisons (%d already archived)\n",
		report.Strategies, report.Comparisons, report.Skipped)
	return nil
}

func runSummary(args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)

	dataDir := fs.String("data-dir", "./data", "Data directory")
	symbol := fs.String("symbol", "", "Only strategies for this symbol")
	period := fs.Int("period", 0, "Only strategies with this period in years")
	csvOutput := fs.Bool("csv", false, "Output as CSV")
	outputFile := fs.String("output", "", "Output file (default: stdout)")

	// Short aliases
	fs.StringVar(dataDir, "d", "./data", "")
	fs.StringVar(outputFile, "o", "", "")

	usage(fs, "summary [options]")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	gen := summary.NewGenerator(*dataDir)

	entries, err := gen.Generate(summary.Filter{Symbol: *symbol, Period: *period})
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		log.Println("No exported strategies found. Run 'stratlab export' first.")
		return nil
	}

	w, closeOut, err := output(*outputFile)
	if err != nil {
		return err
	}
	defer closeOut()

	if *csvOutput {
		if err := gen.ExportCSV(w, entries); err != nil {
			return fmt.Errorf("writing CSV: %w", err)
		}
		return nil
	}
	gen.PrintTable(w, entries)
	return nil
}
