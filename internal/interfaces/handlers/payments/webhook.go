package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"dealsplit-backend/internal/application/activities"
	"dealsplit-backend/internal/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LedgerResyncer rebuilds a deal's ledger once its sale is recorded.
type LedgerResyncer interface {
	ResyncLedger(ctx context.Context, dealID uuid.UUID) error
}

type WebhookHandler struct {
	DB            *gorm.DB
	WebhookSecret string
	Sales         *activities.Service
	Ledger        LedgerResyncer
}

// HandleWebhook POST /api/v1/stripe/webhook. Raw body, signature verification, then process.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	// Stripe sends "Stripe-Signature"; Fiber's Get is case-insensitive
	sig := c.Get("Stripe-Signature")

	if len(rawBody) == 0 {
		log.Warn().Msg("Stripe webhook received empty body (ensure no global body parser consumes the webhook body)")
		return c.Status(400).SendString("Webhook Error: empty body")
	}
	if wh.WebhookSecret == "" {
		log.Warn().Msg("Stripe webhook secret not configured")
		return c.Status(400).SendString("Webhook Error: missing signature or secret")
	}

	if err := webhook.ValidatePayload(rawBody, sig, wh.WebhookSecret); err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Msg("Stripe webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	var event stripe.Event
	if err := json.Unmarshal(rawBody, &event); err != nil {
		log.Warn().Err(err).Msg("Stripe webhook JSON parse failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	if event.Type == "payment_intent.succeeded" && event.Data != nil {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return c.Status(200).SendString("ok")
		}
		// Domain errors still answer 200 so Stripe does not retry.
		if err := wh.handlePaymentIntentSucceeded(c.UserContext(), &pi, event.ID, rawBody); err != nil {
			log.Warn().Err(err).Str("payment_intent", pi.ID).Msg("Stripe webhook: payment not recorded")
		}
	}

	return c.Status(200).SendString("ok")
}

var errDealNotFound = errors.New("deal not found")

// handlePaymentIntentSucceeded records the payment and the deal owner's sale
// in one transaction, keyed on the intent id.
func (wh *WebhookHandler) handlePaymentIntentSucceeded(ctx context.Context, pi *stripe.PaymentIntent, eventID string, rawBody []byte) error {
	dealID, err := uuid.Parse(pi.Metadata["deal_id"])
	if err != nil || pi.AmountReceived <= 0 {
		return nil // not a deal payment
	}
	if wh.DB == nil || wh.Sales == nil {
		return errors.New("payments storage not configured")
	}

	recorded := false
	err = wh.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.Payment
		if err := tx.Where("stripe_payment_intent_id = ?", pi.ID).First(&existing).Error; err == nil {
			return nil // already processed
		}

		var deal domain.Deal
		if err := tx.Where("deal_id = ?", dealID).First(&deal).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errDealNotFound
			}
			return err
		}

		payment := domain.Payment{
			StripePaymentIntentID: pi.ID,
			StripeEventID:         eventID,
			DealID:                dealID,
			AmountReceivedCents:   pi.AmountReceived,
			Currency:              string(pi.Currency),
			Status:                string(pi.Status),
			RawPaymentIntent:      datatypes.JSON(rawBody),
		}
		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		amount := decimal.New(pi.AmountReceived, -2)
		_, created, err := wh.Sales.RecordSale(ctx, tx, &deal, amount, "")
		recorded = created
		return err
	})
	if err != nil {
		return err
	}

	if recorded && wh.Ledger != nil {
		if err := wh.Ledger.ResyncLedger(ctx, dealID); err != nil {
			log.Warn().Err(err).Str("deal_id", dealID.String()).Msg("Stripe webhook: ledger resync failed")
		}
	}
	return nil
}
