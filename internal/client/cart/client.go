// Package cart reads a user's cart from the cart service. The read is taken
// once per checkout attempt and reused for the whole attempt.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"bookstore-checkout/internal/domain"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Snapshot reads the user's current cart as an immutable, normalized list of
// line items. The cart service returns a productId -> quantity map, so
// duplicates are already merged; normalization still sorts and validates.
func (c *Client) Snapshot(ctx context.Context, userID string) (domain.CartSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/shoppingCart/productsInCart?userid="+url.QueryEscape(userID), nil)
	if err != nil {
		return domain.CartSnapshot{}, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("fetch cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.CartSnapshot{}, fmt.Errorf("fetch cart: status %d", resp.StatusCode)
	}

	var items map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return domain.CartSnapshot{}, fmt.Errorf("decode cart: %w", err)
	}

	raw := make([]domain.LineItem, 0, len(items))
	for productID, qty := range items {
		raw = append(raw, domain.LineItem{ProductID: productID, Quantity: qty})
	}
	return domain.NewCartSnapshot(userID, raw)
}

// Clear empties the user's cart after a committed checkout. Best effort: the
// order is already durable when this runs.
func (c *Client) Clear(ctx context.Context, userID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/shoppingCart/clearCart?userid="+url.QueryEscape(userID), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("clear cart: status %d", resp.StatusCode)
	}
	return nil
}
