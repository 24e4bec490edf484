package reconcile

import (
	"time"

	"github.com/causekit/CauseLedger/app/models"
	"github.com/causekit/CauseLedger/app/repository"
	"github.com/causekit/CauseLedger/internal/pkg/env"
	"github.com/gofiber/fiber/v2/log"
)

// Config carries the reconciliation policy thresholds. The cross-source
// window and the amount tolerance are deliberately configuration, not
// constants; finance teams tune them.
type Config struct {
	// Window is the maximum gap between two transactions that may still be
	// the same real purchase seen through different providers.
	Window time.Duration
	// IntraSourceWindow is the tighter gap for duplicates within one
	// provider; beyond it, two same-source charges are assumed legitimate
	// repeat purchases.
	IntraSourceWindow time.Duration
	// AmountToleranceCents absorbs currency rounding between providers.
	AmountToleranceCents int64
	// ScanLookback bounds how far back a scheduled scan reads.
	ScanLookback time.Duration
}

// DefaultConfig returns the shipped policy thresholds.
func DefaultConfig() Config {
	return Config{
		Window:               time.Hour,
		IntraSourceWindow:    10 * time.Minute,
		AmountToleranceCents: 0,
		ScanLookback:         48 * time.Hour,
	}
}

// ConfigFromEnv resolves thresholds from configuration, falling back to the
// defaults.
func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		Window:               env.GetEnvDuration("RECONCILE_WINDOW", def.Window),
		IntraSourceWindow:    env.GetEnvDuration("RECONCILE_INTRA_SOURCE_WINDOW", def.IntraSourceWindow),
		AmountToleranceCents: int64(env.GetEnvInt("RECONCILE_AMOUNT_TOLERANCE_CENTS", int(def.AmountToleranceCents))),
		ScanLookback:         env.GetEnvDuration("RECONCILE_SCAN_LOOKBACK", def.ScanLookback),
	}
}

// Classify decides whether a transaction pair looks like the same real
// purchase and how. The bool reports whether the pair belongs on the
// worklist at all. The function never mutates anything: reconciliation
// reports, humans resolve.
func Classify(a, b models.Transaction, cfg Config) (string, bool) {
	if a.ContactID != b.ContactID || a.ID == b.ID {
		return "", false
	}
	if a.Currency != b.Currency {
		return "", false
	}
	if diff := a.AmountCents - b.AmountCents; diff > cfg.AmountToleranceCents || diff < -cfg.AmountToleranceCents {
		return "", false
	}

	gap := a.TransactionDate.Sub(b.TransactionDate)
	if gap < 0 {
		gap = -gap
	}
	if gap > cfg.Window {
		return "", false
	}

	sameSource := a.SourceSystem == b.SourceSystem
	aID := externalID(a)
	bID := externalID(b)

	if sameSource {
		if aID != "" && aID == bID {
			// The storage constraint makes this impossible to write; if it
			// is observed, the constraint was bypassed and that is a bug,
			// not a business duplicate.
			return models.DuplicateClassConstraintBreach, true
		}
		if gap <= cfg.IntraSourceWindow {
			return models.DuplicateClassIntraSource, true
		}
		return "", false
	}

	if aID == "" || bID == "" {
		return models.DuplicateClassManualReview, true
	}
	return models.DuplicateClassCrossSource, true
}

func externalID(t models.Transaction) string {
	if t.ExternalTransactionID == nil {
		return ""
	}
	return *t.ExternalTransactionID
}

// Scanner walks recent completed transactions and files worklist flags. It
// is read-only over the transaction table and runs off the request path.
type Scanner struct {
	repo repository.ReconciliationRepository
	cfg  Config
}

// NewScanner creates a scanner over the reconciliation repository.
func NewScanner(repo repository.ReconciliationRepository, cfg Config) *Scanner {
	return &Scanner{repo: repo, cfg: cfg}
}

// Scan classifies all transaction pairs in the lookback window and persists
// new flags. Returns how many new worklist entries were filed; rescans are
// idempotent because the flag pair index rejects repeats.
func (s *Scanner) Scan() (int, error) {
	txns, err := s.repo.ListCompletedSince(time.Now().Add(-s.cfg.ScanLookback))
	if err != nil {
		return 0, err
	}

	flagged := 0
	// Rows arrive ordered by contact then date; pairs further apart than
	// the window cannot match, so the inner loop stops early.
	for i := 0; i < len(txns); i++ {
		for j := i + 1; j < len(txns); j++ {
			if txns[j].ContactID != txns[i].ContactID {
				break
			}
			if txns[j].TransactionDate.Sub(txns[i].TransactionDate) > s.cfg.Window {
				break
			}
			class, ok := Classify(txns[i], txns[j], s.cfg)
			if !ok {
				continue
			}
			flag := buildFlag(txns[i], txns[j], class)
			created, err := s.repo.FlagIfNew(flag)
			if err != nil {
				return flagged, err
			}
			if created {
				flagged++
				log.Infof("[Reconcile] flagged %s pair txn=%d/%d contact=%d amount=%d %s",
					class, flag.TransactionID, flag.OtherTransactionID, flag.ContactID, flag.AmountCents, flag.Currency)
			}
		}
	}
	return flagged, nil
}

// buildFlag orders the pair so the unique index catches the mirrored scan.
func buildFlag(a, b models.Transaction, class string) *models.DuplicateFlag {
	lo, hi := a, b
	if lo.ID > hi.ID {
		lo, hi = hi, lo
	}
	gap := hi.TransactionDate.Sub(lo.TransactionDate)
	if gap < 0 {
		gap = -gap
	}
	return &models.DuplicateFlag{
		TransactionID:      lo.ID,
		OtherTransactionID: hi.ID,
		ContactID:          lo.ContactID,
		Classification:     class,
		Status:             models.DuplicateFlagOpen,
		AmountCents:        lo.AmountCents,
		Currency:           lo.Currency,
		SecondsApart:       int64(gap / time.Second),
	}
}
