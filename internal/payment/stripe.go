// Package payment wraps the Stripe API surface the core depends on: entry
// fee collection and winner payouts. Stripe's confirmations are
// authoritative; nothing here is retried on the core's behalf.
package payment

import (
	"fmt"
	"strconv"

	stripe "github.com/stripe/stripe-go/v82"
	checksession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/transfer"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/dwaite/trimpool/internal/model"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	SuccessURL    string
	CancelURL     string
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	stripe.Key = cfg.SecretKey
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Client{cfg: cfg}
}

// CreateEntryCheckout creates a one-time checkout session for a challenge's
// entry fee and returns its URL. Challenge and user IDs travel in the
// session metadata so the webhook can mark the right participant paid.
func (c *Client) CreateEntryCheckout(challenge *model.Challenge, userID int64) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(c.cfg.Currency),
					UnitAmount: stripe.Int64(challenge.EntryFee),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Entry fee: " + challenge.Title),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(c.cfg.SuccessURL),
		CancelURL:  stripe.String(c.cfg.CancelURL),
	}
	params.AddMetadata("challenge_id", strconv.FormatInt(challenge.ID, 10))
	params.AddMetadata("user_id", strconv.FormatInt(userID, 10))

	sess, err := checksession.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}

// ExecutePayout transfers a payout instruction's amount to the winner's
// connected account and returns the transfer ID. Blocked instructions must
// be resolved before calling this.
func (c *Client) ExecutePayout(ins model.PayoutInstruction) (string, error) {
	if ins.Blocked || ins.Destination == nil {
		return "", fmt.Errorf("payout instruction %s has no usable destination", ins.ID)
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(ins.Amount),
		Currency:    stripe.String(c.cfg.Currency),
		Destination: stripe.String(*ins.Destination),
	}
	params.AddMetadata("payout_instruction_id", ins.ID)

	t, err := transfer.New(params)
	if err != nil {
		return "", fmt.Errorf("create transfer: %w", err)
	}
	return t.ID, nil
}

// ConstructWebhookEvent verifies the signature and returns the parsed event.
func (c *Client) ConstructWebhookEvent(payload []byte, sigHeader string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, c.cfg.WebhookSecret)
}
