package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"budgarden/internal/auth"
	"budgarden/internal/game"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password, username, wallet, inviteCode string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":          email,
		"password":       password,
		"username":       username,
		"wallet_address": wallet,
		"invite_code":    inviteCode,
	}, &out, "")
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out, "")
	return out, err
}

func (c *Client) Balance(ctx context.Context, accessToken string) (game.BalanceView, error) {
	var out game.BalanceView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/balance", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Claim(ctx context.Context, accessToken string) (game.ClaimResult, error) {
	var out game.ClaimResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/claim", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Harvest(ctx context.Context, accessToken string) (game.HarvestResult, error) {
	var out game.HarvestResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/harvest", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) Garden(ctx context.Context, accessToken string) (game.GardenView, error) {
	var out game.GardenView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/garden", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) ShopItems(ctx context.Context, accessToken string) ([]game.CatalogItem, error) {
	var out struct {
		Items []game.CatalogItem `json:"items"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/shop/items", accessToken, nil, &out, "")
	return out.Items, err
}

func (c *Client) Purchase(ctx context.Context, accessToken, itemKind, idem string) (game.PurchaseResult, error) {
	var out game.PurchaseResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/shop/purchase", accessToken, map[string]any{
		"item_kind": itemKind,
	}, &out, idem)
	return out, err
}

func (c *Client) Place(ctx context.Context, accessToken, itemKind string, row, col int, rotation int16, idem string) (game.PlacedItemView, error) {
	var out game.PlacedItemView
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/garden/place", accessToken, map[string]any{
		"item_kind": itemKind,
		"row":       row,
		"col":       col,
		"rotation":  rotation,
	}, &out, idem)
	return out, err
}

func (c *Client) Move(ctx context.Context, accessToken string, placedID int64, row, col int) error {
	return c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/garden/items/%d/move", placedID), accessToken, map[string]any{
		"row": row,
		"col": col,
	}, nil, "")
}

func (c *Client) Rotate(ctx context.Context, accessToken string, placedID int64, rotation int16) error {
	return c.jsonRequest(ctx, http.MethodPost, fmt.Sprintf("/v1/garden/items/%d/rotate", placedID), accessToken, map[string]any{
		"rotation": rotation,
	}, nil, "")
}

func (c *Client) Remove(ctx context.Context, accessToken string, placedID int64) error {
	return c.jsonRequest(ctx, http.MethodDelete, fmt.Sprintf("/v1/garden/items/%d", placedID), accessToken, nil, nil, "")
}

func (c *Client) Referral(ctx context.Context, accessToken string) (game.ReferralStatsView, error) {
	var out game.ReferralStatsView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/referral", accessToken, nil, &out, "")
	return out, err
}

func (c *Client) PlayerCount(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/players/count", "", nil, &out, "")
	return out.Count, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
