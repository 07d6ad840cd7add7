package summary

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/jefrnc/stratlab/internal/models"
	"github.com/jefrnc/stratlab/internal/present"
)

const (
	defaultSymbol = "^N225"
	defaultPeriod = 3
)

// Entry is one archived strategy reduced to its headline numbers.
type Entry struct {
	ID            int64
	Name          string
	Symbol        string
	Period        int
	Trades        int
	WinRate       *float64
	ExpectedValue *float64
	TotalReturn   *float64
	CreatedAt     string
}

// Filter narrows which archived strategies are summarised. Zero values match
// everything.
type Filter struct {
	Symbol string
	Period int
}

// Generator reads exported strategy files and produces summaries.
type Generator struct {
	dataDir string
}

// NewGenerator creates a new summary generator.
func NewGenerator(dataDir string) *Generator {
	return &Generator{dataDir: dataDir}
}

// Generate loads every archived strategy that matches f, ordered by ID.
func (g *Generator) Generate(f Filter) ([]Entry, error) {
	dir := filepath.Join(g.dataDir, "strategies")

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading strategies directory: %w", err)
	}

	var entries []Entry

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		export, err := g.loadStrategyExport(filepath.Join(dir, file.Name()))
		if err != nil {
			continue
		}

		e := buildEntry(&export.Strategy)
		if f.Symbol != "" && e.Symbol != f.Symbol {
			continue
		}
		if f.Period != 0 && e.Period != f.Period {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})

	return entries, nil
}

// PrintTable prints entries as a formatted table with a totals line.
func (g *Generator) PrintTable(w io.Writer, entries []Entry) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "ID\t戦略名\t銘柄\t期間\t取引数\t勝率\t期待値\t総リターン\n")
	fmt.Fprintf(tw, "──\t──────\t────\t────\t──────\t────\t──────\t──────────\n")

	totTrades := 0
	for _, e := range entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d年\t%d\t%s\t%s\t%s\n",
			e.ID,
			e.Name,
			e.Symbol,
			e.Period,
			e.Trades,
			present.Percent(e.WinRate),
			present.Yen(e.ExpectedValue),
			present.Percent(e.TotalReturn),
		)
		totTrades += e.Trades
	}

	fmt.Fprintf(tw, "──\t──────\t────\t────\t──────\t────\t──────\t──────────\n")

	best := Best(entries)
	bestName := present.NA
	if best >= 0 {
		bestName = entries[best].Name
	}
	fmt.Fprintf(tw, "TOTAL\t%d strategies\t\t\t%d\t\t%s\tbest: %s\n",
		len(entries),
		totTrades,
		present.Yen(averageEV(entries)),
		bestName,
	)

	tw.Flush()
}

// ExportCSV writes entries as CSV.
func (g *Generator) ExportCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{
		"id", "name", "symbol", "period", "trades",
		"win_rate", "expected_value", "total_return", "created_at",
	}); err != nil {
		return err
	}

	for _, e := range entries {
		if err := cw.Write([]string{
			strconv.FormatInt(e.ID, 10),
			e.Name,
			e.Symbol,
			strconv.Itoa(e.Period),
			strconv.Itoa(e.Trades),
			csvFloat(e.WinRate),
			csvFloat(e.ExpectedValue),
			csvFloat(e.TotalReturn),
			e.CreatedAt,
		}); err != nil {
			return err
		}
	}

	return cw.Error()
}

// Best returns the index of the entry with the highest expected value, the
// first one on ties, or -1 when none has a usable value.
func Best(entries []Entry) int {
	best, bestEV := -1, math.Inf(-1)
	for i, e := range entries {
		if e.ExpectedValue == nil || math.IsNaN(*e.ExpectedValue) {
			continue
		}
		if *e.ExpectedValue > bestEV {
			best, bestEV = i, *e.ExpectedValue
		}
	}
	return best
}

func (g *Generator) loadStrategyExport(path string) (*models.StrategyExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var export models.StrategyExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, err
	}

	return &export, nil
}

func buildEntry(s *models.Strategy) Entry {
	e := Entry{
		ID:        s.ID,
		Name:      s.Name,
		Symbol:    present.Str(s.Symbol, defaultSymbol),
		Period:    present.Int(s.Period, defaultPeriod),
		Trades:    s.Results.Trades(),
		CreatedAt: s.CreatedAt,
	}
	if s.Results != nil {
		e.WinRate = s.Results.WinRate
		e.ExpectedValue = s.Results.ExpectedValue
		e.TotalReturn = s.Results.TotalReturn
	}
	return e
}

func averageEV(entries []Entry) *float64 {
	var sum float64
	n := 0
	for _, e := range entries {
		if e.ExpectedValue == nil || math.IsNaN(*e.ExpectedValue) || math.IsInf(*e.ExpectedValue, 0) {
			continue
		}
		sum += *e.ExpectedValue
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

func csvFloat(v *float64) string {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
