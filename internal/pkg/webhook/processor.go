package webhook

import (
	"errors"
	"strings"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/causekit/CauseLedger/app/repository"
	"github.com/causekit/CauseLedger/internal/pkg/sanitize"
	"gorm.io/gorm"
)

// ErrMissingContact is returned when an event carries no resolvable contact
// identity.
var ErrMissingContact = errors.New("event has no contact email")

// UnitOfWork runs fn against a repository set whose writes commit or roll
// back together. The production implementation wraps a database
// transaction; tests substitute fakes.
type UnitOfWork func(fn func(repos *repository.Repositories) error) error

// GormUnitOfWork builds the production UnitOfWork over db.Transaction. All
// repositories inside fn share the transaction handle, so a failing side
// effect rolls back the contact and transaction writes with it.
func GormUnitOfWork(db *gorm.DB) UnitOfWork {
	return func(fn func(repos *repository.Repositories) error) error {
		return db.Transaction(func(tx *gorm.DB) error {
			return fn(repository.NewRepositories(tx))
		})
	}
}

// Processor applies a normalized event to the CRM store as one atomic unit:
// resolve-or-create the contact, record the transaction under its
// provenance key, apply side effects. Every step is idempotent so a
// provider retry that slips past the ledger is still harmless.
type Processor struct {
	uow UnitOfWork
}

// NewProcessor creates a processor over the given unit of work.
func NewProcessor(uow UnitOfWork) *Processor {
	return &Processor{uow: uow}
}

// ProcessResult reports what the atomic unit did.
type ProcessResult struct {
	ContactID          uint
	ContactCreated     bool
	TransactionWritten bool
}

// Process executes the atomic unit for one event. A transaction whose
// provenance key already exists is left untouched (provider retry); tag and
// role side effects collide on their unique pairs and no-op.
func (p *Processor) Process(source string, ev *NormalizedEvent) (*ProcessResult, error) {
	email := strings.ToLower(strings.TrimSpace(ev.Contact.Email))
	if email == "" {
		return nil, ErrMissingContact
	}

	res := &ProcessResult{}
	err := p.uow(func(repos *repository.Repositories) error {
		contact, err := repos.Contact.GetByEmail(email)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			contact = models.NewPlaceholderContact(
				email,
				sanitize.CleanString(ev.Contact.FirstName, 100),
				sanitize.CleanString(ev.Contact.LastName, 100),
			)
			if err := repos.Contact.Create(contact); err != nil {
				return err
			}
			res.ContactCreated = true
		}
		res.ContactID = contact.ID

		if ref := strings.TrimSpace(ev.Contact.ExternalID); ref != "" {
			if err := repos.Contact.UpdateProviderRef(contact.ID, source, ref); err != nil {
				return err
			}
		}

		if ev.Transaction != nil {
			extID := strings.TrimSpace(ev.Transaction.ExternalTransactionID)
			txn := &models.Transaction{
				ContactID:       contact.ID,
				SourceSystem:    source,
				ExternalOrderID: sanitize.CleanString(ev.Transaction.ExternalOrderID, 191),
				AmountCents:     ev.Transaction.AmountCents,
				Currency:        ev.Transaction.Currency,
				TransactionDate: ev.Transaction.Date,
				Status:          ev.Transaction.Status,
				TransactionType: ev.Transaction.Type,
			}
			if extID != "" {
				txn.ExternalTransactionID = &extID
			}
			if err := txn.Validate(); err != nil {
				return err
			}
			created, err := repos.Transaction.CreateIfAbsent(txn)
			if err != nil {
				return err
			}
			res.TransactionWritten = created
		}

		for _, tag := range ev.Effects.Tags {
			tag = sanitize.CleanString(tag, 100)
			if tag == "" {
				continue
			}
			if err := repos.Tag.AttachTag(contact.ID, tag); err != nil {
				return err
			}
		}
		for _, role := range ev.Effects.Roles {
			if err := repos.Tag.GrantRole(contact.ID, role, source); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
