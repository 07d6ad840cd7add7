package exporter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/jefrnc/stratlab/internal/models"
)

const (
	stateFile      = "state.json"
	strategiesDir  = "strategies"
	comparisonsDir = "comparisons"
)

// Options controls the export behavior.
type Options struct {
	Comparisons bool // also archive saved comparisons
	Force       bool // re-export everything, ignoring state
}

// Report counts what one run wrote.
type Report struct {
	Strategies  int
	Comparisons int
	Skipped     int
}

// Source is the part of the API client the exporter reads from.
type Source interface {
	ListStrategies(ctx context.Context) ([]models.Strategy, error)
	GetStrategy(ctx context.Context, id int64) (*models.Strategy, error)
	ListComparisons(ctx context.Context) ([]models.SavedComparison, error)
	GetComparison(ctx context.Context, id int64) (*models.SavedComparison, error)
}

// Exporter archives saved strategies and comparisons as JSON files.
type Exporter struct {
	source  Source
	dataDir string
	logger  *zap.Logger
	now     func() time.Time
}

// New creates a new Exporter.
func New(source Source, dataDir string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{source: source, dataDir: dataDir, logger: logger, now: time.Now}
}

// Run executes the export process. Items already recorded in state.json are
// skipped unless opts.Force is set.
func (e *Exporter) Run(ctx context.Context, opts Options) (*Report, error) {
	for _, dir := range []string{strategiesDir, comparisonsDir} {
		if err := os.MkdirAll(filepath.Join(e.dataDir, dir), 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	state, err := e.loadState()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("corrupt state file: %w", err)
	}
	if state == nil || opts.Force {
		state = &models.ExportState{}
	}

	report := &Report{}

	strategies, err := e.source.ListStrategies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing strategies: %w", err)
	}
	for _, s := range strategies {
		if slices.Contains(state.StrategyIDs, s.ID) {
			report.Skipped++
			continue
		}
		full, err := e.source.GetStrategy(ctx, s.ID)
		if err != nil {
			return report, fmt.Errorf("fetching strategy %d: %w", s.ID, err)
		}
		if err := e.write(strategiesDir, s.ID, &models.StrategyExport{Strategy: *full, ExportedAt: e.now()}); err != nil {
			return report, fmt.Errorf("saving strategy %d: %w", s.ID, err)
		}
		state.StrategyIDs = append(state.StrategyIDs, s.ID)
		report.Strategies++
		e.logger.Info("exported strategy", zap.Int64("id", s.ID), zap.String("name", full.Name))
	}

	if opts.Comparisons {
		comparisons, err := e.source.ListComparisons(ctx)
		if err != nil {
			return report, fmt.Errorf("listing comparisons: %w", err)
		}
		for _, c := range comparisons {
			if slices.Contains(state.ComparisonIDs, c.ID) {
				report.Skipped++
				continue
			}
			full, err := e.source.GetComparison(ctx, c.ID)
			if err != nil {
				return report, fmt.Errorf("fetching comparison %d: %w", c.ID, err)
			}
			if err := e.write(comparisonsDir, c.ID, &models.ComparisonExport{Comparison: *full, ExportedAt: e.now()}); err != nil {
				return report, fmt.Errorf("saving comparison %d: %w", c.ID, err)
			}
			state.ComparisonIDs = append(state.ComparisonIDs, c.ID)
			report.Comparisons++
			e.logger.Info("exported comparison", zap.Int64("id", c.ID), zap.String("name", full.Name))
		}
	}

	slices.Sort(state.StrategyIDs)
	slices.Sort(state.ComparisonIDs)
	state.LastRunAt = e.now()
	if err := e.saveState(state); err != nil {
		return report, fmt.Errorf("saving state: %w", err)
	}

	e.logger.Info("export complete",
		zap.Int("strategies", report.Strategies),
		zap.Int("comparisons", report.Comparisons),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

// write stores v as <dir>/<id>.json.
func (e *Exporter) write(dir string, id int64, v interface{}) error {
	path := filepath.Join(e.dataDir, dir, strconv.FormatInt(id, 10)+".json")

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// loadState reads the export state file.
func (e *Exporter) loadState() (*models.ExportState, error) {
	path := filepath.Join(e.dataDir, stateFile)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var state models.ExportState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}

	return &state, nil
}

// saveState writes the export state file.
func (e *Exporter) saveState(state *models.ExportState) error {
	path := filepath.Join(e.dataDir, stateFile)

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
