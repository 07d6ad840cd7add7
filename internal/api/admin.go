package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jefrnc/stratlab/internal/models"
)

func (c *Client) AdminListUsers(ctx context.Context) ([]models.AdminUser, error) {
	var resp models.UserListResponse
	if err := c.call(ctx, "admin_users", http.MethodGet, "/api/admin/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *Client) AdminDeleteUser(ctx context.Context, id int64) error {
	var resp models.Envelope
	return c.call(ctx, "admin_user_delete", http.MethodDelete, fmt.Sprintf("/api/admin/users/%d", id), nil, &resp)
}

func (c *Client) AdminUserStrategies(ctx context.Context, id int64) ([]models.Strategy, error) {
	var resp models.StrategyListResponse
	if err := c.call(ctx, "admin_user_strategies", http.MethodGet, fmt.Sprintf("/api/admin/users/%d/strategies", id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

func (c *Client) AdminListStrategies(ctx context.Context) ([]models.Strategy, error) {
	var resp models.StrategyListResponse
	if err := c.call(ctx, "admin_strategies", http.MethodGet, "/api/admin/strategies", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Strategies, nil
}

func (c *Client) AdminListComparisons(ctx context.Context) ([]models.SavedComparison, error) {
	var resp models.ComparisonListResponse
	if err := c.call(ctx, "admin_comparisons", http.MethodGet, "/api/admin/comparisons", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Comparisons, nil
}
