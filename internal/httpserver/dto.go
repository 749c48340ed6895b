package httpserver

import "bookstore-checkout/internal/domain"

// Legacy status values kept for clients of the previous checkout service,
// extended with RETRYABLE for outcomes that are safe to resubmit.
const (
	legacyStatusSuccess   = "SUCCESS"
	legacyStatusFailure   = "FAILURE"
	legacyStatusRetryable = "RETRYABLE"
)

// checkoutResponse keeps the original orderNumber/status/orderDetails shape
// and adds the structured fields new clients should use.
type checkoutResponse struct {
	OrderNumber  string `json:"orderNumber"`
	Status       string `json:"status"`
	OrderDetails string `json:"orderDetails"`

	ConfirmationNumber string             `json:"confirmationNumber,omitempty"`
	Reason             string             `json:"reason,omitempty"`
	FailedProductID    string             `json:"failedProductId,omitempty"`
	LineItems          []domain.OrderLine `json:"lineItems,omitempty"`
	TotalCents         int64              `json:"totalCents,omitempty"`
}

func toCheckoutResponse(result domain.CheckoutResult) checkoutResponse {
	switch result.Status {
	case domain.CheckoutCommitted:
		resp := checkoutResponse{
			OrderNumber:        result.ConfirmationNumber,
			Status:             legacyStatusSuccess,
			ConfirmationNumber: result.ConfirmationNumber,
		}
		if result.Order != nil {
			resp.OrderDetails = result.Order.Details()
			resp.LineItems = result.Order.Lines
			resp.TotalCents = result.Order.TotalCents
		}
		return resp
	case domain.CheckoutRetryable:
		return checkoutResponse{
			Status:       legacyStatusRetryable,
			OrderDetails: string(result.Reason),
			Reason:       string(result.Reason),
		}
	default:
		resp := checkoutResponse{
			Status:          legacyStatusFailure,
			Reason:          string(result.Reason),
			FailedProductID: result.FailedProductID,
		}
		switch result.Reason {
		case domain.ReasonEmptyCart:
			resp.OrderDetails = "Cart is empty"
		case domain.ReasonInsufficientInventory:
			resp.OrderDetails = "Product is Out of Stock: " + result.FailedProductID
		default:
			resp.OrderDetails = string(result.Reason)
		}
		return resp
	}
}
