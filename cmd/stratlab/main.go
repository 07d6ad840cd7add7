package main

import (
	"errors"
	"fmt"
	"log"
	"os"
)

// version is set at build time via ldflags in the release pipeline.
var version = "dev"

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	commands := map[string]func([]string) error{
		"login":       runLogin,
		"logout":      runLogout,
		"whoami":      runWhoami,
		"generate":    runGenerate,
		"describe":    runDescribe,
		"strategies":  runStrategies,
		"backtest":    runBacktest,
		"compare":     runCompare,
		"comparisons": runComparisons,
		"admin":       runAdmin,
		"catalog":     runCatalog,
		"export":      runExport,
		"summary":     runSummary,
	}

	switch cmd := os.Args[1]; cmd {
	case "version":
		fmt.Printf("stratlab v%s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		run, ok := commands[cmd]
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
			printUsage()
			os.Exit(1)
		}
		if err := run(os.Args[2:]); err != nil {
			if errors.Is(err, errReported) {
				os.Exit(1)
			}
			log.Fatalf("Error: %v", err)
		}
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `stratlab v%s - Trading strategy generator & backtest client

Describe a strategy in plain Japanese, let the backend turn it into code,
backtest it, and compare strategies across symbols.

Usage:
  stratlab <command> [options]

Commands:
  login         Log in with a Google ID token
  logout        Forget the stored session
  whoami        Show the logged-in user
  generate      Generate code from a description and backtest it
  describe      Print the description built from buy/sell timing flags
  strategies    list | show | test | delete saved strategies
  backtest      Backtest built-in and saved strategies together
  compare       Compare strategies across several symbols
  comparisons   list | show | delete saved comparisons
  admin         users | user-strategies | strategies | comparisons | delete-user
  catalog       List built-in strategies and preset symbols
  export        Archive saved strategies and comparisons to the data directory
  summary       Summarise archived strategies
  version       Print version
  help          Show this help

Examples:
  stratlab login --token $GOOGLE_ID_TOKEN
  stratlab generate --buy-when "RSIが30以下" --buy-order market --buy-price close \
                    --sell-when "RSIが70以上" --sell-order market --sell-price open --sell-day next
  stratlab generate -m "ゴールデンクロスで買い、デッドクロスで売り" --yes --save "GC"
  stratlab backtest -s ma,rsi --saved 12 --symbol 7203 --period 5
  stratlab compare --symbols 7203,9984 -s ma,bb --save "自動車vsテック"
  stratlab export && stratlab summary --csv

Configuration:
  .env, environment (STRATLAB_*) or stratlab.yaml:
    STRATLAB_API_URL=http://localhost:8000
    STRATLAB_DATA_DIR=./data
    STRATLAB_SESSION_BACKEND=file        # or sqlite
    STRATLAB_LOG_LEVEL=info
    STRATLAB_METRICS_FILE=./data/metrics.prom

`, version)
}
