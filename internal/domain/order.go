package domain

import (
	"fmt"
	"strings"
	"time"
)

type OrderStatus string

const (
	// OrderPending exists only while an order write is in flight; it is
	// never externally visible as a final state.
	OrderPending   OrderStatus = "PENDING"
	OrderCommitted OrderStatus = "COMMITTED"
	OrderFailed    OrderStatus = "FAILED"
)

// OrderLine is a cart line with the unit price captured at checkout time,
// decoupling historical orders from later catalog price changes.
type OrderLine struct {
	ProductID      string `json:"productId"`
	Title          string `json:"title,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
	TotalCents     int64  `json:"totalCents"`
}

// Order is the durable record of a committed checkout, immutable after
// reaching a terminal status.
type Order struct {
	ConfirmationNumber string      `json:"confirmationNumber"`
	UserID             string      `json:"userId"`
	Lines              []OrderLine `json:"lineItems"`
	TotalCents         int64       `json:"totalCents"`
	Status             OrderStatus `json:"status"`
	CreatedAt          time.Time   `json:"createdAt"`
}

// Details renders the legacy human-readable order summary kept for clients
// of the previous checkout service.
func (o Order) Details() string {
	var b strings.Builder
	b.WriteString("Customer bought these Items: ")
	for _, line := range o.Lines {
		title := line.Title
		if title == "" {
			title = line.ProductID
		}
		fmt.Fprintf(&b, " Product: %s, Quantity: %d;", title, line.Quantity)
	}
	fmt.Fprintf(&b, " Order Total is : %d.%02d", o.TotalCents/100, o.TotalCents%100)
	return b.String()
}
