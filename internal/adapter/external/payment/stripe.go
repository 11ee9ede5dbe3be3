package payment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/invoiceitem"
)

// FeeInvoicer accrues merchant platform fees for later invoicing
type FeeInvoicer interface {
	AccrueFee(ctx context.Context, customerID, sessionID string, amountCents int64) (string, error)
}

// StripeService accrues per-session fees as Stripe invoice items on the
// merchant's customer record. Stripe folds pending items into the next
// subscription invoice, so each fee is charged exactly once.
type StripeService struct {
	apiKey string
	log    *zap.Logger
}

func NewStripeService(apiKey string, log *zap.Logger) *StripeService {
	stripe.Key = apiKey
	return &StripeService{
		apiKey: apiKey,
		log:    log,
	}
}

var _ FeeInvoicer = (*StripeService)(nil)

// AccrueFee adds a pending invoice item for the session fee. The session ID
// rides along as the idempotency key so a replayed event cannot double bill.
func (s *StripeService) AccrueFee(ctx context.Context, customerID, sessionID string, amountCents int64) (string, error) {
	if customerID == "" {
		return "", errors.New("customer ID is required")
	}
	if amountCents <= 0 {
		return "", errors.New("invalid amount")
	}

	s.log.Info("Accruing session fee",
		zap.String("customer_id", customerID),
		zap.String("session_id", sessionID),
		zap.Int64("amount_cents", amountCents),
	)

	params := &stripe.InvoiceItemParams{
		Customer:    stripe.String(customerID),
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(string(stripe.CurrencyUSD)),
		Description: stripe.String(fmt.Sprintf("Arrival session %s", sessionID)),
	}
	params.Context = ctx
	params.SetIdempotencyKey("arrival-fee-" + sessionID)

	item, err := invoiceitem.New(params)
	if err != nil {
		s.log.Error("Failed to accrue session fee",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return "", fmt.Errorf("stripe: create invoice item: %w", err)
	}

	s.log.Info("Session fee accrued",
		zap.String("invoice_item_id", item.ID),
		zap.String("session_id", sessionID),
	)

	return item.ID, nil
}
