package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/go-playground/validator/v10"
)

// CourseHub header names.
const (
	CourseHubSignatureHeader = "X-Coursehub-Signature"
	CourseHubEventIDHeader   = "X-Coursehub-Event-Id"
	CourseHubEventTypeHeader = "X-Coursehub-Event"
	CourseHubTimestampHeader = "X-Coursehub-Timestamp"
	CourseHubNonceHeader     = "X-Coursehub-Nonce"
)

// CourseHub event types.
const (
	CourseHubOrderCreated      = "order.created"
	CourseHubOrderRefunded     = "order.refunded"
	CourseHubEnrollmentCreated = "enrollment.created"
	CourseHubTagAdded          = "tag.added"
)

type courseHubUser struct {
	ID        string `json:"id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type courseHubOrderPayload struct {
	Order struct {
		ID            string `json:"id" validate:"required"`
		TransactionID string `json:"transaction_id" validate:"required"`
		TotalCents    int64  `json:"total_cents" validate:"gte=0"`
		Currency      string `json:"currency" validate:"required,len=3"`
		CreatedAt     string `json:"created_at"`
	} `json:"order" validate:"required"`
	User   courseHubUser `json:"user" validate:"required"`
	Course struct {
		Name string `json:"name"`
	} `json:"course"`
}

type courseHubEnrollmentPayload struct {
	User   courseHubUser `json:"user" validate:"required"`
	Course struct {
		Name string `json:"name" validate:"required"`
	} `json:"course" validate:"required"`
}

type courseHubTagPayload struct {
	User courseHubUser `json:"user" validate:"required"`
	Tag  struct {
		Name string `json:"name" validate:"required"`
	} `json:"tag" validate:"required"`
}

// ParseCourseHubOrder maps order.created / order.refunded payloads to the
// normalized shape.
func ParseCourseHubOrder(eventType string) Handler {
	return func(raw []byte) (*NormalizedEvent, error) {
		var p courseHubOrderPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("coursehub order payload: %w", err)
		}
		if err := validator.New().Struct(&p); err != nil {
			return nil, fmt.Errorf("coursehub order payload: %w", err)
		}

		txnType := models.TransactionTypePurchase
		txnStatus := models.TransactionStatusCompleted
		if eventType == CourseHubOrderRefunded {
			txnType = models.TransactionTypeRefund
			txnStatus = models.TransactionStatusRefunded
		}

		date := time.Now().UTC()
		if p.Order.CreatedAt != "" {
			if t, err := time.Parse(time.RFC3339, p.Order.CreatedAt); err == nil {
				date = t.UTC()
			}
		}

		ev := &NormalizedEvent{
			Contact: ContactInfo{
				Email:      p.User.Email,
				FirstName:  p.User.FirstName,
				LastName:   p.User.LastName,
				ExternalID: p.User.ID,
			},
			Transaction: &TransactionInfo{
				ExternalTransactionID: p.Order.TransactionID,
				ExternalOrderID:       p.Order.ID,
				AmountCents:           p.Order.TotalCents,
				Currency:              strings.ToUpper(p.Order.Currency),
				Date:                  date,
				Type:                  txnType,
				Status:                txnStatus,
			},
		}
		if eventType == CourseHubOrderCreated {
			ev.Effects.Roles = append(ev.Effects.Roles, models.RoleStudent)
			if name := strings.TrimSpace(p.Course.Name); name != "" {
				ev.Effects.Tags = append(ev.Effects.Tags, "course: "+name)
			}
		}
		return ev, nil
	}
}

// ParseCourseHubEnrollment maps enrollment.created to a tag-only event.
func ParseCourseHubEnrollment(raw []byte) (*NormalizedEvent, error) {
	var p courseHubEnrollmentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("coursehub enrollment payload: %w", err)
	}
	if err := validator.New().Struct(&p); err != nil {
		return nil, fmt.Errorf("coursehub enrollment payload: %w", err)
	}

	return &NormalizedEvent{
		Contact: ContactInfo{
			Email:      p.User.Email,
			FirstName:  p.User.FirstName,
			LastName:   p.User.LastName,
			ExternalID: p.User.ID,
		},
		Effects: SideEffects{
			Tags:  []string{"course: " + strings.TrimSpace(p.Course.Name)},
			Roles: []string{models.RoleStudent},
		},
	}, nil
}

// ParseCourseHubTag maps tag.added to a tag-only event.
func ParseCourseHubTag(raw []byte) (*NormalizedEvent, error) {
	var p courseHubTagPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("coursehub tag payload: %w", err)
	}
	if err := validator.New().Struct(&p); err != nil {
		return nil, fmt.Errorf("coursehub tag payload: %w", err)
	}

	return &NormalizedEvent{
		Contact: ContactInfo{
			Email:      p.User.Email,
			FirstName:  p.User.FirstName,
			LastName:   p.User.LastName,
			ExternalID: p.User.ID,
		},
		Effects: SideEffects{
			Tags: []string{strings.TrimSpace(p.Tag.Name)},
		},
	}, nil
}
