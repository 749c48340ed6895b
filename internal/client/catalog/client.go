// Package catalog resolves product metadata from the products service. Unit
// prices are captured into the order at checkout time, so later catalog price
// changes never alter historical orders.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"bookstore-checkout/internal/domain"
)

// Product is the slice of catalog metadata checkout needs.
type Product struct {
	ProductID  string
	Title      string
	PriceCents int64
}

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

func (c *Client) Get(ctx context.Context, productID string) (*Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/product/"+url.PathEscape(productID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", productID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrNotFound
	default:
		return nil, fmt.Errorf("fetch product %s: status %d", productID, resp.StatusCode)
	}

	// The products service reports price as a decimal amount.
	var body struct {
		ASIN  string  `json:"asin"`
		Title string  `json:"title"`
		Price float64 `json:"price"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", productID, err)
	}

	return &Product{
		ProductID:  productID,
		Title:      body.Title,
		PriceCents: int64(math.Round(body.Price * 100)),
	}, nil
}
