package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jefrnc/stratlab/internal/models"
)

// Login exchanges an identity-provider credential for a backend session.
func (c *Client) Login(ctx context.Context, credential string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	if err := c.call(ctx, "auth_google", http.MethodPost, "/api/auth/google", models.LoginRequest{Token: credential}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("login response missing token or user")
	}
	return &resp, nil
}

// GenerateStrategy submits a description for code generation and optionally
// a backtest. The response is returned as-is even when success is false:
// a clarification request and a partial failure both arrive that way and
// the caller decides what they mean. A non-2xx status with a JSON body is
// reported the same way, so partial code from a failed backtest survives.
// A 401 is still an error.
func (c *Client) GenerateStrategy(ctx context.Context, req *models.GenerateRequest) (*models.GenerateResponse, error) {
	var resp models.GenerateResponse
	_, err := c.do(ctx, "strategy_generate", http.MethodPost, "/api/strategy/generate", req, &resp)
	if err == nil {
		return &resp, nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status == http.StatusUnauthorized || len(apiErr.body) == 0 {
		return nil, err
	}
	resp = models.GenerateResponse{}
	if json.Unmarshal(apiErr.body, &resp) != nil {
		return nil, err
	}
	resp.Success = false
	if resp.Error == "" {
		resp.Error = apiErr.Message
	}
	return &resp, nil
}

// SaveStrategy persists a generated strategy.
func (c *Client) SaveStrategy(ctx context.Context, req *models.SaveStrategyRequest) error {
	var resp models.Envelope
	return c.call(ctx, "strategy_save", http.MethodPost, "/api/strategy/save", req, &resp)
}

// ListStrategies returns the caller's saved strategies.
func (c *Client) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	var resp models.StrategyListResponse
	if err := c.call(ctx, "strategy_list", http.MethodGet, "/api/strategy/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

// GetStrategy fetches one saved strategy including its code.
func (c *Client) GetStrategy(ctx context.Context, id int64) (*models.Strategy, error) {
	var resp models.StrategyResponse
	if err := c.call(ctx, "strategy_get", http.MethodGet, fmt.Sprintf("/api/strategy/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Strategy == nil {
		return nil, newAPIError(http.StatusOK, fmt.Sprintf("strategy %d not found", id))
	}
	return resp.Strategy, nil
}

// DeleteStrategy removes a saved strategy.
func (c *Client) DeleteStrategy(ctx context.Context, id int64) error {
	var resp models.Envelope
	return c.call(ctx, "strategy_delete", http.MethodDelete, fmt.Sprintf("/api/strategy/%d", id), nil, &resp)
}

// LoadAndTest backtests a saved strategy, optionally overriding its symbol,
// period and investment amount.
func (c *Client) LoadAndTest(ctx context.Context, req *models.LoadAndTestRequest) (*models.LoadAndTestResponse, error) {
	var resp models.LoadAndTestResponse
	if err := c.call(ctx, "strategy_load_and_test", http.MethodPost, "/api/strategy/load-and-test", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
