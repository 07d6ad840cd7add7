package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jefrnc/stratlab/internal/models"
)

// AvailableStrategies lists the backend's built-in strategies.
func (c *Client) AvailableStrategies(ctx context.Context) ([]models.ExistingStrategy, error) {
	var resp models.AvailableStrategiesResponse
	if err := c.call(ctx, "trading_available_strategies", http.MethodGet, "/api/trading/available-strategies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// Analyze backtests a batch of built-in strategies against one symbol.
func (c *Client) Analyze(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	var resp models.AnalyzeResponse
	if err := c.call(ctx, "trading_analyze", http.MethodPost, "/api/trading/analyze", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CompareSymbols runs every requested strategy against every symbol server-side.
func (c *Client) CompareSymbols(ctx context.Context, req *models.CompareSymbolsRequest) (*models.CompareSymbolsResponse, error) {
	var resp models.CompareSymbolsResponse
	if err := c.call(ctx, "trading_compare_symbols", http.MethodPost, "/api/trading/compare-symbols", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveComparison persists a named comparison. Requires a session.
func (c *Client) SaveComparison(ctx context.Context, req *models.SaveComparisonRequest) error {
	var resp models.Envelope
	return c.call(ctx, "trading_save_comparison", http.MethodPost, "/api/trading/save-comparison", req, &resp)
}

// ListComparisons returns the caller's saved comparisons.
func (c *Client) ListComparisons(ctx context.Context) ([]models.SavedComparison, error) {
	var resp models.ComparisonListResponse
	if err := c.call(ctx, "trading_comparisons", http.MethodGet, "/api/trading/comparisons", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Comparisons, nil
}

// GetComparison fetches one saved comparison.
func (c *Client) GetComparison(ctx context.Context, id int64) (*models.SavedComparison, error) {
	var resp models.ComparisonResponse
	if err := c.call(ctx, "trading_comparison_get", http.MethodGet, fmt.Sprintf("/api/trading/comparisons/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Comparison == nil {
		return nil, newAPIError(http.StatusOK, fmt.Sprintf("comparison %d not found", id))
	}
	return resp.Comparison, nil
}

// DeleteComparison removes a saved comparison.
func (c *Client) DeleteComparison(ctx context.Context, id int64) error {
	var resp models.Envelope
	return c.call(ctx, "trading_comparison_delete", http.MethodDelete, fmt.Sprintf("/api/trading/comparisons/%d", id), nil, &resp)
}
