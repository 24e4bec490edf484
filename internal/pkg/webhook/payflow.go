package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/go-playground/validator/v10"
)

// Payflow header names. The event id and type travel in the body envelope,
// not headers; the signature header carries the claimed timestamp.
const (
	PayflowSignatureHeader = "X-Payflow-Signature"
)

// Payflow event types.
const (
	PayflowChargeSucceeded     = "charge.succeeded"
	PayflowChargeRefunded      = "charge.refunded"
	PayflowSubscriptionUpdated = "subscription.updated"
)

// payflowEnvelope is the outer body shape shared by all Payflow events.
type payflowEnvelope struct {
	ID      string          `json:"id" validate:"required"`
	Type    string          `json:"type" validate:"required"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data" validate:"required"`
}

type payflowCharge struct {
	ChargeID   string `json:"charge_id" validate:"required"`
	OrderRef   string `json:"order_ref"`
	Amount     int64  `json:"amount" validate:"gte=0"`
	Currency   string `json:"currency" validate:"required,len=3"`
	CustomerID string `json:"customer_id" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name"`
	Donation   bool   `json:"donation"`
}

type payflowSubscription struct {
	SubscriptionID string `json:"subscription_id" validate:"required"`
	CustomerID     string `json:"customer_id" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Status         string `json:"status" validate:"required"`
	PlanName       string `json:"plan_name"`
}

// ParsePayflowEnvelope pulls the provider event id and type out of the raw
// body before routing.
func ParsePayflowEnvelope(raw []byte) (eventID, eventType string, err error) {
	var env payflowEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", "", fmt.Errorf("payflow envelope: %w", err)
	}
	if err := validator.New().Struct(&env); err != nil {
		return "", "", fmt.Errorf("payflow envelope: %w", err)
	}
	return env.ID, env.Type, nil
}

// ParsePayflowCharge maps charge.succeeded / charge.refunded payloads.
func ParsePayflowCharge(eventType string) Handler {
	return func(raw []byte) (*NormalizedEvent, error) {
		var env payflowEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("payflow envelope: %w", err)
		}
		var charge payflowCharge
		if err := json.Unmarshal(env.Data, &charge); err != nil {
			return nil, fmt.Errorf("payflow charge payload: %w", err)
		}
		if err := validator.New().Struct(&charge); err != nil {
			return nil, fmt.Errorf("payflow charge payload: %w", err)
		}

		txnType := models.TransactionTypeDonation
		if !charge.Donation {
			txnType = models.TransactionTypePurchase
		}
		txnStatus := models.TransactionStatusCompleted
		if eventType == PayflowChargeRefunded {
			txnType = models.TransactionTypeRefund
			txnStatus = models.TransactionStatusRefunded
		}

		date := time.Now().UTC()
		if env.Created > 0 {
			date = time.Unix(env.Created, 0).UTC()
		}

		first, last := splitName(charge.Name)
		return &NormalizedEvent{
			Contact: ContactInfo{
				Email:      charge.Email,
				FirstName:  first,
				LastName:   last,
				ExternalID: charge.CustomerID,
			},
			Transaction: &TransactionInfo{
				ExternalTransactionID: charge.ChargeID,
				ExternalOrderID:       charge.OrderRef,
				AmountCents:           charge.Amount,
				Currency:              strings.ToUpper(charge.Currency),
				Date:                  date,
				Type:                  txnType,
				Status:                txnStatus,
			},
		}, nil
	}
}

// ParsePayflowSubscription maps subscription.updated to role side effects.
// An active subscription grants the member role; any other status is
// recorded informationally without revoking anything, since revocation is a
// CRM decision.
func ParsePayflowSubscription(raw []byte) (*NormalizedEvent, error) {
	var env payflowEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("payflow envelope: %w", err)
	}
	var sub payflowSubscription
	if err := json.Unmarshal(env.Data, &sub); err != nil {
		return nil, fmt.Errorf("payflow subscription payload: %w", err)
	}
	if err := validator.New().Struct(&sub); err != nil {
		return nil, fmt.Errorf("payflow subscription payload: %w", err)
	}

	ev := &NormalizedEvent{
		Contact: ContactInfo{
			Email:      sub.Email,
			ExternalID: sub.CustomerID,
		},
	}
	if strings.EqualFold(sub.Status, "active") {
		ev.Effects.Roles = append(ev.Effects.Roles, models.RoleMember)
		if name := strings.TrimSpace(sub.PlanName); name != "" {
			ev.Effects.Tags = append(ev.Effects.Tags, "plan: "+name)
		}
	}
	return ev, nil
}

// PayflowClaimedTimestamp extracts the claimed delivery time from the t=
// element of the signature header.
func PayflowClaimedTimestamp(header string) (time.Time, bool) {
	ts, _ := parsePayflowSignature(header)
	if ts == 0 {
		return time.Time{}, false
	}
	return time.Unix(ts, 0).UTC(), true
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	parts := strings.SplitN(full, " ", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}
