package webhook

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/causekit/CauseLedger/app/repository"
	"gorm.io/gorm"
)

// In-memory repository fakes shared by the processor and service tests.
// They reproduce the storage-level uniqueness rules the real
// implementations lean on, so the idempotency paths are exercised for real.

type fakeContactRepo struct {
	mu       sync.Mutex
	nextID   uint
	contacts map[string]*models.Contact
	refs     map[uint]map[string]string
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{
		nextID:   1,
		contacts: make(map[string]*models.Contact),
		refs:     make(map[uint]map[string]string),
	}
}

func (f *fakeContactRepo) GetByEmail(email string) (*models.Contact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.contacts[strings.ToLower(email)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeContactRepo) Create(contact *models.Contact) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.contacts[contact.Email]; exists {
		return errors.New("duplicate email")
	}
	contact.ID = f.nextID
	f.nextID++
	cp := *contact
	f.contacts[contact.Email] = &cp
	return nil
}

func (f *fakeContactRepo) UpdateProviderRef(contactID uint, source, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refs[contactID] == nil {
		f.refs[contactID] = make(map[string]string)
	}
	f.refs[contactID][source] = externalID
	return nil
}

type fakeTransactionRepo struct {
	mu   sync.Mutex
	rows []models.Transaction
}

func (f *fakeTransactionRepo) CreateIfAbsent(txn *models.Transaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if txn.ExternalTransactionID != nil {
		for _, r := range f.rows {
			if r.SourceSystem == txn.SourceSystem && r.ExternalTransactionID != nil &&
				*r.ExternalTransactionID == *txn.ExternalTransactionID {
				return false, nil
			}
		}
	}
	txn.ID = uint(len(f.rows) + 1)
	f.rows = append(f.rows, *txn)
	return true, nil
}

func (f *fakeTransactionRepo) GetBySourceAndExternalID(sourceSystem, externalTransactionID string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.SourceSystem == sourceSystem && r.ExternalTransactionID != nil && *r.ExternalTransactionID == externalTransactionID {
			cp := r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTransactionRepo) ListByContact(contactID uint) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, r := range f.rows {
		if r.ContactID == contactID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTagRepo struct {
	mu        sync.Mutex
	tags      map[uint][]string
	roles     map[uint][]string
	attachErr error
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{tags: make(map[uint][]string), roles: make(map[uint][]string)}
}

func (f *fakeTagRepo) AttachTag(contactID uint, tagName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	for _, t := range f.tags[contactID] {
		if t == tagName {
			return nil
		}
	}
	f.tags[contactID] = append(f.tags[contactID], tagName)
	return nil
}

func (f *fakeTagRepo) GrantRole(contactID uint, role, grantedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles[contactID] {
		if r == role {
			return nil
		}
	}
	f.roles[contactID] = append(f.roles[contactID], role)
	return nil
}

type fakeEventRepo struct {
	mu       sync.Mutex
	rows     []models.InboundEvent
	payloads []models.WebhookPayload
}

func (f *fakeEventRepo) RecordIfNew(event *models.InboundEvent) (bool, *models.InboundEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].Source == event.Source && f.rows[i].DedupKey == event.DedupKey {
			cp := f.rows[i]
			return false, &cp, nil
		}
	}
	event.ID = uint(len(f.rows) + 1)
	event.ReceivedAt = time.Now()
	f.rows = append(f.rows, *event)
	cp := *event
	return true, &cp, nil
}

func (f *fakeEventRepo) MarkStatus(id uint, status, errorCode, errorMessage string, durationMs int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			if models.IsTerminalStatus(f.rows[i].Status) {
				return errors.New("ledger row already terminal")
			}
			f.rows[i].Status = status
			f.rows[i].ErrorCode = errorCode
			f.rows[i].ErrorMessage = errorMessage
			f.rows[i].ProcessingDurationMs = durationMs
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeEventRepo) GetByID(id uint) (*models.InboundEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			cp := f.rows[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEventRepo) ListByStatus(status string, offset, limit int) ([]models.InboundEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.InboundEvent
	for _, r := range f.rows {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeEventRepo) CountByStatusSince(status string, since time.Time) (int64, error) {
	rows, _ := f.ListByStatus(status, 0, 0)
	return int64(len(rows)), nil
}

func (f *fakeEventRepo) SavePayload(payload *models.WebhookPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, *payload)
	return nil
}

func (f *fakeEventRepo) GetPayloadByEventID(eventID uint) (*models.WebhookPayload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.payloads {
		if f.payloads[i].InboundEventID == eventID {
			cp := f.payloads[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeNonceRepo struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func newFakeNonceRepo() *fakeNonceRepo {
	return &fakeNonceRepo{seen: make(map[string]time.Time)}
}

func (f *fakeNonceRepo) RecordIfFresh(source, nonce string, notBefore time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := source + "|" + nonce
	if at, ok := f.seen[key]; ok && at.After(notBefore) {
		return false, nil
	}
	f.seen[key] = time.Now()
	return true, nil
}

func (f *fakeNonceRepo) PurgeOlderThan(cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var removed int64
	for k, at := range f.seen {
		if at.Before(cutoff) {
			delete(f.seen, k)
			removed++
		}
	}
	return removed, nil
}

type fakeAlertRepo struct {
	mu     sync.Mutex
	alerts []models.SecurityAlert
}

func (f *fakeAlertRepo) Create(alert *models.SecurityAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert.ID = uint(len(f.alerts) + 1)
	f.alerts = append(f.alerts, *alert)
	return nil
}

func (f *fakeAlertRepo) List(offset, limit int) ([]models.SecurityAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SecurityAlert, len(f.alerts))
	copy(out, f.alerts)
	return out, nil
}

func (f *fakeAlertRepo) CountSince(since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.alerts)), nil
}

func (f *fakeAlertRepo) lastType() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.alerts) == 0 {
		return ""
	}
	return f.alerts[len(f.alerts)-1].AlertType
}

// fakeUnitOfWork runs the function against a fixed repository set without
// transactional rollback; tests that need rollback behavior assert on the
// returned error instead.
func fakeUnitOfWork(repos *repository.Repositories) UnitOfWork {
	return func(fn func(repos *repository.Repositories) error) error {
		return fn(repos)
	}
}

type allowAllLimiter struct{}

func (allowAllLimiter) Allow(string) bool { return true }

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }
