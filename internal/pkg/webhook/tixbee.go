package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/go-playground/validator/v10"
)

// Tixbee header names.
const (
	TixbeeSignatureHeader = "X-Tixbee-Signature"
	TixbeeDeliveryHeader  = "X-Tixbee-Delivery"
	TixbeeEventHeader     = "X-Tixbee-Event"
	TixbeeTimestampHeader = "X-Tixbee-Timestamp"
)

// Tixbee event types.
const (
	TixbeeTicketCompleted   = "ticket.completed"
	TixbeeOrderRefunded     = "order.refunded"
	TixbeeAttendeeCheckedIn = "attendee.checked_in"
)

type tixbeeAttendee struct {
	ID        string `json:"id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type tixbeeOrderPayload struct {
	Attendee tixbeeAttendee `json:"attendee" validate:"required"`
	Order    struct {
		ID         string `json:"id" validate:"required"`
		PaymentRef string `json:"payment_ref" validate:"required"`
		GrossCents int64  `json:"gross_cents" validate:"gte=0"`
		Currency   string `json:"currency" validate:"required,len=3"`
		PlacedAt   string `json:"placed_at"`
	} `json:"order" validate:"required"`
	Event struct {
		Name string `json:"name"`
	} `json:"event"`
}

type tixbeeCheckinPayload struct {
	Attendee tixbeeAttendee `json:"attendee" validate:"required"`
	Event    struct {
		Name string `json:"name" validate:"required"`
	} `json:"event" validate:"required"`
}

// ParseTixbeeOrder maps ticket.completed / order.refunded payloads.
func ParseTixbeeOrder(eventType string) Handler {
	return func(raw []byte) (*NormalizedEvent, error) {
		var p tixbeeOrderPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("tixbee order payload: %w", err)
		}
		if err := validator.New().Struct(&p); err != nil {
			return nil, fmt.Errorf("tixbee order payload: %w", err)
		}

		txnType := models.TransactionTypeTicket
		txnStatus := models.TransactionStatusCompleted
		if eventType == TixbeeOrderRefunded {
			txnType = models.TransactionTypeRefund
			txnStatus = models.TransactionStatusRefunded
		}

		date := time.Now().UTC()
		if p.Order.PlacedAt != "" {
			if t, err := time.Parse(time.RFC3339, p.Order.PlacedAt); err == nil {
				date = t.UTC()
			}
		}

		ev := &NormalizedEvent{
			Contact: ContactInfo{
				Email:      p.Attendee.Email,
				FirstName:  p.Attendee.FirstName,
				LastName:   p.Attendee.LastName,
				ExternalID: p.Attendee.ID,
			},
			Transaction: &TransactionInfo{
				ExternalTransactionID: p.Order.PaymentRef,
				ExternalOrderID:       p.Order.ID,
				AmountCents:           p.Order.GrossCents,
				Currency:              strings.ToUpper(p.Order.Currency),
				Date:                  date,
				Type:                  txnType,
				Status:                txnStatus,
			},
		}
		if eventType == TixbeeTicketCompleted {
			ev.Effects.Roles = append(ev.Effects.Roles, models.RoleSupporter)
			if name := strings.TrimSpace(p.Event.Name); name != "" {
				ev.Effects.Tags = append(ev.Effects.Tags, "event: "+name)
			}
		}
		return ev, nil
	}
}

// ParseTixbeeCheckin maps attendee.checked_in to a tag-only event.
func ParseTixbeeCheckin(raw []byte) (*NormalizedEvent, error) {
	var p tixbeeCheckinPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("tixbee checkin payload: %w", err)
	}
	if err := validator.New().Struct(&p); err != nil {
		return nil, fmt.Errorf("tixbee checkin payload: %w", err)
	}

	return &NormalizedEvent{
		Contact: ContactInfo{
			Email:      p.Attendee.Email,
			FirstName:  p.Attendee.FirstName,
			LastName:   p.Attendee.LastName,
			ExternalID: p.Attendee.ID,
		},
		Effects: SideEffects{
			Tags: []string{"attended: " + strings.TrimSpace(p.Event.Name)},
		},
	}, nil
}
