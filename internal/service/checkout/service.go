// Package checkout drives the checkout saga: snapshot the cart, reserve
// inventory per line item in deterministic order, append the order, and
// compensate held reservations when any later step fails. The inventory
// ledger is the only shared mutable resource; everything else is local to
// one attempt.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"bookstore-checkout/internal/client/catalog"
	"bookstore-checkout/internal/domain"
	"bookstore-checkout/internal/metrics"
	"bookstore-checkout/internal/repository/idempotency"
	"bookstore-checkout/internal/repository/inventory"
	orderrepo "bookstore-checkout/internal/repository/order"
	"github.com/google/uuid"
)

// timeBucket groups derived idempotency keys: a double-submit of the same
// cart within this window maps to the same key.
const timeBucket = 5 * time.Minute

// duplicateConfirmationBudget bounds regeneration on generator collisions.
const duplicateConfirmationBudget = 5

type cartReader interface {
	Snapshot(ctx context.Context, userID string) (domain.CartSnapshot, error)
	Clear(ctx context.Context, userID string) error
}

type priceResolver interface {
	Get(ctx context.Context, productID string) (*catalog.Product, error)
}

type alertStore interface {
	Insert(ctx context.Context, eventID, topic, key string, payload any) error
}

// Config carries the retry and deadline policy for one orchestrator.
type Config struct {
	AttemptDeadline      time.Duration
	ReserveAttempts      int
	CommitAttempts       int
	BackoffBase          time.Duration
	BackoffMax           time.Duration
	IdempotencyRetention time.Duration
	OrderEventTopic      string
	AlertTopic           string
}

type Service struct {
	carts     cartReader
	catalog   priceResolver
	inventory inventory.Repository
	orders    orderrepo.Repository
	idem      idempotency.Repository
	alerts    alertStore
	metrics   *metrics.CheckoutMetrics
	logger    *log.Logger
	cfg       Config
	backoff   backoffPolicy
}

func New(
	carts cartReader,
	cat priceResolver,
	inv inventory.Repository,
	orders orderrepo.Repository,
	idem idempotency.Repository,
	alerts alertStore,
	m *metrics.CheckoutMetrics,
	logger *log.Logger,
	cfg Config,
) *Service {
	return &Service{
		carts:     carts,
		catalog:   cat,
		inventory: inv,
		orders:    orders,
		idem:      idem,
		alerts:    alerts,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
		backoff:   backoffPolicy{base: cfg.BackoffBase, max: cfg.BackoffMax},
	}
}

// Checkout runs one attempt for the verified user. idempotencyKey may be
// empty, in which case a deterministic key is derived from the cart snapshot.
// The returned result is all-or-nothing: COMMITTED with a confirmation
// number, FAILED with a reason, or RETRYABLE when resubmitting the same key
// is safe. A non-nil error means infrastructure failed before any durable
// state changed; resubmission is safe then too.
func (s *Service) Checkout(ctx context.Context, userID, idempotencyKey string) (domain.CheckoutResult, error) {
	start := time.Now()
	res, err := s.run(ctx, userID, idempotencyKey)
	s.metrics.DurationMS.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		s.metrics.Attempts.WithLabelValues("error").Inc()
	} else {
		s.metrics.Attempts.WithLabelValues(string(res.Status)).Inc()
	}
	return res, err
}

func (s *Service) run(ctx context.Context, userID, suppliedKey string) (domain.CheckoutResult, error) {
	key := suppliedKey
	claimed := false

	// A client-supplied key is checked before any work at all.
	if key != "" {
		rec, ok, err := s.idem.Claim(ctx, key, s.cfg.IdempotencyRetention)
		if err != nil {
			return domain.CheckoutResult{}, err
		}
		if !ok {
			return s.resultFromRecord(ctx, rec), nil
		}
		claimed = true
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.AttemptDeadline)
	defer cancel()

	snap, err := s.carts.Snapshot(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			return s.finishFailed(ctx, key, claimed, domain.ReasonEmptyCart, "")
		}
		s.abandon(ctx, key, claimed)
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.CheckoutResult{Status: domain.CheckoutRetryable, Reason: domain.ReasonTimeout}, nil
		}
		return domain.CheckoutResult{}, fmt.Errorf("cart snapshot: %w", err)
	}

	if key == "" {
		key = snap.DeriveIdempotencyKey(time.Now(), timeBucket)
		rec, ok, err := s.idem.Claim(ctx, key, s.cfg.IdempotencyRetention)
		if err != nil {
			return domain.CheckoutResult{}, err
		}
		if !ok {
			return s.resultFromRecord(ctx, rec), nil
		}
		claimed = true
	}

	lines, failedProduct, err := s.priceLines(ctx, snap)
	if err != nil {
		s.abandon(ctx, key, claimed)
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.CheckoutResult{Status: domain.CheckoutRetryable, Reason: domain.ReasonTimeout}, nil
		}
		return domain.CheckoutResult{}, err
	}
	if failedProduct != "" {
		return s.finishFailed(ctx, key, claimed, domain.ReasonProductNotFound, failedProduct)
	}

	held, result, err := s.reserveAll(ctx, key, claimed, snap)
	if result != nil || err != nil {
		if result != nil {
			return *result, nil
		}
		return domain.CheckoutResult{}, err
	}

	return s.commit(ctx, key, snap.UserID, lines, held)
}

// priceLines resolves unit prices for every line at checkout time. Returns
// the product id of the first missing product, if any.
func (s *Service) priceLines(ctx context.Context, snap domain.CartSnapshot) ([]domain.OrderLine, string, error) {
	lines := make([]domain.OrderLine, 0, len(snap.Lines))
	for _, item := range snap.Lines {
		product, err := s.catalog.Get(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, item.ProductID, nil
			}
			return nil, "", fmt.Errorf("resolve price: %w", err)
		}
		lines = append(lines, domain.OrderLine{
			ProductID:      item.ProductID,
			Title:          product.Title,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
			TotalCents:     product.PriceCents * int64(item.Quantity),
		})
	}
	return lines, "", nil
}

// reserveAll walks the snapshot lines, already sorted by ascending product
// id so every concurrent attempt contends in the same relative order. On any
// failure every reservation held so far is released, newest first.
func (s *Service) reserveAll(ctx context.Context, key string, claimed bool, snap domain.CartSnapshot) ([]domain.Reservation, *domain.CheckoutResult, error) {
	var held []domain.Reservation

	for _, line := range snap.Lines {
		outcome, err := s.reserveLine(ctx, line)
		if err != nil {
			s.releaseAll(ctx, held)
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				s.abandon(ctx, key, claimed)
				res := domain.CheckoutResult{Status: domain.CheckoutRetryable, Reason: domain.ReasonTimeout}
				return nil, &res, nil
			}
			s.abandon(ctx, key, claimed)
			return nil, nil, err
		}

		switch outcome.State {
		case domain.ReservationReserved:
			held = append(held, outcome.Reservation)
		case domain.ReservationInsufficient:
			s.releaseAll(ctx, held)
			res, err := s.finishFailed(ctx, key, claimed, domain.ReasonInsufficientInventory, line.ProductID)
			if err != nil {
				return nil, nil, err
			}
			return nil, &res, nil
		case domain.ReservationConflict:
			// Conflict retry budget exhausted: no state changed for this
			// line, so the whole attempt is safely retryable.
			s.releaseAll(ctx, held)
			s.abandon(ctx, key, claimed)
			res := domain.CheckoutResult{Status: domain.CheckoutRetryable, Reason: domain.ReasonConflictBudget}
			return nil, &res, nil
		}
	}

	return held, nil, nil
}

// reserveLine attempts one line item with bounded, jittered retries on
// version conflicts. Returning a CONFLICT outcome means the budget ran out.
func (s *Service) reserveLine(ctx context.Context, line domain.LineItem) (domain.ReserveOutcome, error) {
	for attempt := 0; attempt < s.cfg.ReserveAttempts; attempt++ {
		entry, err := s.inventory.Get(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// No ledger entry means nothing was ever stocked.
				return domain.ReserveOutcome{State: domain.ReservationInsufficient}, nil
			}
			return domain.ReserveOutcome{}, err
		}
		if entry.AvailableQuantity < line.Quantity {
			return domain.ReserveOutcome{State: domain.ReservationInsufficient, Available: entry.AvailableQuantity}, nil
		}

		outcome, err := s.inventory.TryReserve(ctx, line.ProductID, line.Quantity, entry.Version)
		if err != nil {
			return domain.ReserveOutcome{}, err
		}
		if outcome.State != domain.ReservationConflict {
			return outcome, nil
		}

		s.metrics.ReserveConflicts.Inc()
		if err := sleep(ctx, s.backoff.delay(attempt)); err != nil {
			return domain.ReserveOutcome{}, err
		}
	}
	return domain.ReserveOutcome{State: domain.ReservationConflict}, nil
}

// commit appends the order. Reservations are already held, so only the
// write is retried; a duplicate confirmation regenerates transparently. If
// the write still cannot be resolved the held stock is surfaced as an
// operational alert instead of being silently lost.
func (s *Service) commit(ctx context.Context, key, userID string, lines []domain.OrderLine, held []domain.Reservation) (domain.CheckoutResult, error) {
	var total int64
	for _, line := range lines {
		total += line.TotalCents
	}
	o := domain.Order{
		UserID:     userID,
		Lines:      lines,
		TotalCents: total,
		Status:     domain.OrderCommitted,
		CreatedAt:  time.Now().UTC(),
	}

	var lastErr error
	for attempt := 0; attempt < s.cfg.CommitAttempts; attempt++ {
		confirmation, err := newConfirmationNumber()
		if err != nil {
			lastErr = err
			break
		}
		o.ConfirmationNumber = confirmation

		lastErr = s.appendOrder(ctx, &o)
		if lastErr == nil {
			return s.finishCommitted(ctx, key, o)
		}
		if err := sleep(ctx, s.backoff.delay(attempt)); err != nil {
			break
		}
	}

	s.commitIndeterminate(ctx, key, userID, held, lastErr)
	return domain.CheckoutResult{Status: domain.CheckoutRetryable, Reason: domain.ReasonCommitIndeterminate}, nil
}

func (s *Service) appendOrder(ctx context.Context, o *domain.Order) error {
	var err error
	for i := 0; i < duplicateConfirmationBudget; i++ {
		err = s.orders.Append(ctx, *o)
		if !errors.Is(err, domain.ErrDuplicateConfirmation) {
			return err
		}
		confirmation, genErr := newConfirmationNumber()
		if genErr != nil {
			return genErr
		}
		o.ConfirmationNumber = confirmation
	}
	return err
}

func (s *Service) finishCommitted(ctx context.Context, key string, o domain.Order) (domain.CheckoutResult, error) {
	// The order is durable at this point; everything below is follow-up
	// that must not undo the success.
	detached := context.WithoutCancel(ctx)

	if err := s.idem.Complete(detached, domain.IdempotencyRecord{
		Key:                key,
		Status:             domain.IdempotencyCommitted,
		ConfirmationNumber: o.ConfirmationNumber,
	}); err != nil {
		s.logger.Printf("record idempotency outcome for %s: %v", o.ConfirmationNumber, err)
	}

	if err := s.alerts.Insert(detached, uuid.NewString(), s.cfg.OrderEventTopic, o.ConfirmationNumber, orderCommittedEvent{
		ConfirmationNumber: o.ConfirmationNumber,
		UserID:             o.UserID,
		TotalCents:         o.TotalCents,
		CommittedAt:        o.CreatedAt,
	}); err != nil {
		s.logger.Printf("enqueue order event for %s: %v", o.ConfirmationNumber, err)
	}

	if err := s.carts.Clear(detached, o.UserID); err != nil {
		s.logger.Printf("clear cart for user %s: %v", o.UserID, err)
	}

	return domain.CheckoutResult{
		Status:             domain.CheckoutCommitted,
		ConfirmationNumber: o.ConfirmationNumber,
		Order:              &o,
	}, nil
}

func (s *Service) finishFailed(ctx context.Context, key string, claimed bool, reason domain.FailureReason, productID string) (domain.CheckoutResult, error) {
	if claimed {
		if err := s.idem.Complete(context.WithoutCancel(ctx), domain.IdempotencyRecord{
			Key:             key,
			Status:          domain.IdempotencyFailed,
			Reason:          reason,
			FailedProductID: productID,
		}); err != nil {
			s.logger.Printf("record failed outcome: %v", err)
		}
	}
	return domain.CheckoutResult{
		Status:          domain.CheckoutFailed,
		Reason:          reason,
		FailedProductID: productID,
	}, nil
}

// commitIndeterminate surfaces the one state the protocol cannot resolve
// in-band: reservations held, order write unresolved. The alert row is
// durable and feeds out-of-band reconciliation.
func (s *Service) commitIndeterminate(ctx context.Context, key, userID string, held []domain.Reservation, cause error) {
	s.metrics.CommitIndeterminate.Inc()
	detached := context.WithoutCancel(ctx)

	receipts := make([]string, 0, len(held))
	for _, r := range held {
		receipts = append(receipts, r.ReceiptID)
	}
	s.logger.Printf("COMMIT_INDETERMINATE user=%s key=%s receipts=%v cause=%v", userID, key, receipts, cause)

	if err := s.alerts.Insert(detached, uuid.NewString(), s.cfg.AlertTopic, key, commitIndeterminateAlert{
		IdempotencyKey: key,
		UserID:         userID,
		Receipts:       receipts,
		Cause:          fmt.Sprint(cause),
		At:             time.Now().UTC(),
	}); err != nil {
		s.logger.Printf("enqueue commit-indeterminate alert: %v", err)
	}

	// Drop the claim so a resubmission is not wedged behind this attempt.
	s.abandon(detached, key, true)
}

func (s *Service) releaseAll(ctx context.Context, held []domain.Reservation) {
	// Compensation runs even after the attempt deadline expired.
	detached := context.WithoutCancel(ctx)
	for i := len(held) - 1; i >= 0; i-- {
		if err := s.inventory.Release(detached, held[i].ReceiptID); err != nil {
			s.logger.Printf("release reservation %s (%s): %v", held[i].ReceiptID, held[i].ProductID, err)
		}
	}
}

func (s *Service) abandon(ctx context.Context, key string, claimed bool) {
	if !claimed {
		return
	}
	if err := s.idem.Abandon(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Printf("abandon idempotency claim: %v", err)
	}
}

func (s *Service) resultFromRecord(ctx context.Context, rec *domain.IdempotencyRecord) domain.CheckoutResult {
	if rec == nil || !rec.Terminal() {
		return domain.CheckoutResult{Status: domain.CheckoutRetryable, Reason: domain.ReasonAttemptInFlight}
	}
	if rec.Status == domain.IdempotencyCommitted {
		res := domain.CheckoutResult{
			Status:             domain.CheckoutCommitted,
			ConfirmationNumber: rec.ConfirmationNumber,
		}
		if o, err := s.orders.Get(ctx, rec.ConfirmationNumber); err == nil {
			res.Order = o
		}
		return res
	}
	return domain.CheckoutResult{
		Status:          domain.CheckoutFailed,
		Reason:          rec.Reason,
		FailedProductID: rec.FailedProductID,
	}
}

// GetOrder returns a committed order to its owner.
func (s *Service) GetOrder(ctx context.Context, confirmationNumber, userID string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, confirmationNumber)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

type orderCommittedEvent struct {
	ConfirmationNumber string    `json:"confirmationNumber"`
	UserID             string    `json:"userId"`
	TotalCents         int64     `json:"totalCents"`
	CommittedAt        time.Time `json:"committedAt"`
}

type commitIndeterminateAlert struct {
	IdempotencyKey string    `json:"idempotencyKey"`
	UserID         string    `json:"userId"`
	Receipts       []string  `json:"receipts"`
	Cause          string    `json:"cause"`
	At             time.Time `json:"at"`
}
