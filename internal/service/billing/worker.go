package billing

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/adapter/external/payment"
	"github.com/nerava/arrival/internal/adapter/queue"
	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/ports"
)

// InvoiceWorker consumes recorded billing events and accrues the platform
// fee on the merchant's Stripe account. Accrual uses the session ID as an
// idempotency key, so redelivered events are safe.
type InvoiceWorker struct {
	merchants ports.MerchantRepository
	invoicer  payment.FeeInvoicer
	mq        queue.MessageQueue
	log       *zap.Logger
}

// NewInvoiceWorker creates a new invoice worker
func NewInvoiceWorker(merchants ports.MerchantRepository, invoicer payment.FeeInvoicer, mq queue.MessageQueue, log *zap.Logger) *InvoiceWorker {
	return &InvoiceWorker{
		merchants: merchants,
		invoicer:  invoicer,
		mq:        mq,
		log:       log,
	}
}

// Run subscribes to the billing event subject. Call once at startup.
func (w *InvoiceWorker) Run(ctx context.Context) error {
	return w.mq.Subscribe(EventSubject, func(data []byte) error {
		var ev domain.BillingEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			w.log.Error("Dropping malformed billing event", zap.Error(err))
			return nil
		}
		w.process(ctx, &ev)
		return nil
	})
}

func (w *InvoiceWorker) process(ctx context.Context, ev *domain.BillingEvent) {
	if ev.BillableCents <= 0 {
		return
	}

	merchant, err := w.merchants.FindByID(ctx, ev.MerchantID)
	if err != nil {
		w.log.Error("Failed to load merchant for billing event",
			zap.String("merchant_id", ev.MerchantID),
			zap.String("session_id", ev.SessionID),
			zap.Error(err),
		)
		return
	}
	if merchant == nil || merchant.StripeCustomerID == "" {
		w.log.Warn("Billing event for merchant without billing account",
			zap.String("merchant_id", ev.MerchantID),
			zap.String("session_id", ev.SessionID),
		)
		return
	}

	itemID, err := w.invoicer.AccrueFee(ctx, merchant.StripeCustomerID, ev.SessionID, ev.BillableCents)
	if err != nil {
		w.log.Error("Failed to accrue session fee",
			zap.String("session_id", ev.SessionID),
			zap.Error(err),
		)
		return
	}

	w.log.Info("Session fee accrued",
		zap.String("session_id", ev.SessionID),
		zap.String("invoice_item_id", itemID),
		zap.Int64("billable_cents", ev.BillableCents),
	)
}
