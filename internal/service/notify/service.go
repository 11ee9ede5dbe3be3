package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nerava/arrival/internal/adapter/queue"
	"github.com/nerava/arrival/internal/domain"
	"github.com/nerava/arrival/internal/observability/telemetry"
	"github.com/nerava/arrival/internal/ports"
)

// Queue subjects consumed by the dispatcher.
const (
	MerchantArrivalSubject = "arrival.merchant.notify"
	DriverExpiredSubject   = "arrival.driver.expired"
)

// PushSender delivers a push notification to a device token
type PushSender interface {
	SendPush(ctx context.Context, deviceToken, title, body string, data map[string]string) error
}

// SMSSender delivers a text message
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

// EmailSender delivers an email
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// DriverPusher fans a payload out to a driver's live websocket connections
type DriverPusher interface {
	SendToDriver(driverID string, data []byte) error
}

// arrivalNotice is the wire payload between Notifier and dispatcher
type arrivalNotice struct {
	SessionID   string    `json:"session_id"`
	DriverID    string    `json:"driver_id"`
	MerchantID  string    `json:"merchant_id"`
	ChargerID   string    `json:"charger_id"`
	OrderNumber string    `json:"order_number"`
	ArrivalType string    `json:"arrival_type"`
	Timestamp   time.Time `json:"timestamp"`
}

// Service implements ports.Notifier. Notify* methods only enqueue; the
// dispatcher goroutine owns merchant lookup and channel delivery so a slow
// provider never sits inside a session state transition.
type Service struct {
	merchants ports.MerchantRepository
	mq        queue.MessageQueue
	push      PushSender
	sms       SMSSender
	email     EmailSender
	hub       DriverPusher
	log       *zap.Logger
}

// NewService creates a new notification service
func NewService(merchants ports.MerchantRepository, mq queue.MessageQueue, push PushSender, sms SMSSender, email EmailSender, hub DriverPusher, log *zap.Logger) *Service {
	return &Service{
		merchants: merchants,
		mq:        mq,
		push:      push,
		sms:       sms,
		email:     email,
		hub:       hub,
		log:       log,
	}
}

var _ ports.Notifier = (*Service)(nil)

// NotifyMerchantArrival enqueues a merchant notification for an arrived
// session. An enqueue failure is returned so the caller can leave the
// session in arrived and retry later.
func (s *Service) NotifyMerchantArrival(ctx context.Context, session *domain.ArrivalSession) error {
	notice := arrivalNotice{
		SessionID:   session.ID,
		DriverID:    session.DriverID,
		MerchantID:  session.MerchantID,
		ChargerID:   session.ChargerID,
		OrderNumber: session.OrderNumber,
		ArrivalType: string(session.ArrivalType),
		Timestamp:   time.Now(),
	}

	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to encode arrival notice: %w", err)
	}

	if err := s.mq.Publish(MerchantArrivalSubject, data); err != nil {
		return fmt.Errorf("failed to enqueue arrival notice: %w", err)
	}
	return nil
}

// NotifySessionExpired tells the driver their session lapsed. Best effort.
func (s *Service) NotifySessionExpired(ctx context.Context, session *domain.ArrivalSession) error {
	notice := arrivalNotice{
		SessionID:  session.ID,
		DriverID:   session.DriverID,
		MerchantID: session.MerchantID,
		ChargerID:  session.ChargerID,
		Timestamp:  time.Now(),
	}

	data, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to encode expiry notice: %w", err)
	}

	if s.hub != nil {
		if err := s.hub.SendToDriver(session.DriverID, data); err != nil {
			s.log.Debug("No live connection for expired session driver",
				zap.String("driver_id", session.DriverID),
			)
		}
	}

	if err := s.mq.Publish(DriverExpiredSubject, data); err != nil {
		return fmt.Errorf("failed to enqueue expiry notice: %w", err)
	}
	return nil
}

// RunDispatcher subscribes to the merchant notification subject and delivers
// through every configured channel. Call once at startup.
func (s *Service) RunDispatcher(ctx context.Context) error {
	return s.mq.Subscribe(MerchantArrivalSubject, func(data []byte) error {
		var notice arrivalNotice
		if err := json.Unmarshal(data, &notice); err != nil {
			s.log.Error("Dropping malformed arrival notice", zap.Error(err))
			return nil
		}
		s.deliver(ctx, &notice)
		return nil
	})
}

func (s *Service) deliver(ctx context.Context, notice *arrivalNotice) {
	merchant, err := s.merchants.FindByID(ctx, notice.MerchantID)
	if err != nil {
		s.log.Error("Failed to load merchant for arrival notice",
			zap.String("merchant_id", notice.MerchantID),
			zap.Error(err),
		)
		return
	}
	if merchant == nil {
		s.log.Warn("Arrival notice for unknown merchant",
			zap.String("merchant_id", notice.MerchantID),
			zap.String("session_id", notice.SessionID),
		)
		return
	}

	title := "Driver arrived"
	body := fmt.Sprintf("Order %s: the driver has arrived (%s).", notice.OrderNumber, notice.ArrivalType)
	if merchant.ArrivalNote != "" {
		body = body + " " + merchant.ArrivalNote
	}

	delivered := false

	if s.push != nil && merchant.PushToken != "" {
		err := s.push.SendPush(ctx, merchant.PushToken, title, body, map[string]string{
			"session_id":   notice.SessionID,
			"order_number": notice.OrderNumber,
		})
		s.observe("push", err)
		if err == nil {
			delivered = true
		}
	}

	if !delivered && s.sms != nil && merchant.Phone != "" {
		err := s.sms.SendSMS(ctx, merchant.Phone, body)
		s.observe("sms", err)
		if err == nil {
			delivered = true
		}
	}

	if !delivered && s.email != nil && merchant.Email != "" {
		err := s.email.Send(ctx, merchant.Email, title, body)
		s.observe("email", err)
		if err == nil {
			delivered = true
		}
	}

	if !delivered {
		s.log.Warn("Arrival notice not delivered on any channel",
			zap.String("merchant_id", notice.MerchantID),
			zap.String("session_id", notice.SessionID),
		)
	}
}

func (s *Service) observe(channel string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		s.log.Error("Notification channel failure", zap.String("channel", channel), zap.Error(err))
	}
	telemetry.NotificationsSent.WithLabelValues(channel, status).Inc()
}
