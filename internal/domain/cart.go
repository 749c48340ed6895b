package domain

import (
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sort"
	"time"
)

// LineItem is a (productId, quantity) pair within a cart snapshot.
type LineItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CartSnapshot is an immutable read of a user's cart taken at the instant a
// checkout attempt begins. Lines are sorted by ascending product id and
// contain no duplicates; every quantity is positive.
type CartSnapshot struct {
	UserID string
	Lines  []LineItem
}

// NewCartSnapshot normalizes raw cart lines into a snapshot: duplicate
// product ids are merged by summation, non-positive quantities dropped, and
// the result sorted by product id. Returns ErrEmptyCart if nothing remains.
func NewCartSnapshot(userID string, raw []LineItem) (CartSnapshot, error) {
	merged := make(map[string]int, len(raw))
	for _, line := range raw {
		if line.ProductID == "" || line.Quantity <= 0 {
			continue
		}
		merged[line.ProductID] += line.Quantity
	}
	if len(merged) == 0 {
		return CartSnapshot{}, ErrEmptyCart
	}
	lines := make([]LineItem, 0, len(merged))
	for id, qty := range merged {
		lines = append(lines, LineItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return CartSnapshot{UserID: userID, Lines: lines}, nil
}

// DeriveIdempotencyKey builds a deterministic key for a snapshot when the
// caller did not supply one: same user, same cart contents, and same
// time bucket hash to the same key, so a double-submit within the bucket is
// deduplicated.
func (s CartSnapshot) DeriveIdempotencyKey(at time.Time, bucket time.Duration) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", s.UserID)
	for _, line := range s.Lines {
		fmt.Fprintf(h, "%s:%d\n", line.ProductID, line.Quantity)
	}
	fmt.Fprintf(h, "%d", at.Unix()/int64(bucket.Seconds()))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
