package replay

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/causekit/CauseLedger/app/repository"
	"github.com/causekit/CauseLedger/internal/pkg/env"
)

const (
	// DefaultTrustWindow bounds how long a consumed nonce stays relevant.
	DefaultTrustWindow = 15 * time.Minute
	// DefaultSkewTolerance bounds how far a provider-claimed timestamp may
	// drift from arrival time before the delivery looks like a stale or
	// future replay.
	DefaultSkewTolerance = 5 * time.Minute
)

// Guard is the replay defense: a nonce consumed once within the trust
// window cannot be consumed again, and implausible claimed timestamps are
// flagged independently of the nonce outcome.
type Guard struct {
	nonces      repository.NonceRepository
	trustWindow time.Duration
	skew        time.Duration
}

// NewGuard creates a replay guard over the nonce store.
func NewGuard(nonces repository.NonceRepository, trustWindow, skewTolerance time.Duration) *Guard {
	if trustWindow <= 0 {
		trustWindow = DefaultTrustWindow
	}
	if skewTolerance <= 0 {
		skewTolerance = DefaultSkewTolerance
	}
	return &Guard{nonces: nonces, trustWindow: trustWindow, skew: skewTolerance}
}

// NewGuardFromEnv creates a guard configured from the environment.
func NewGuardFromEnv(nonces repository.NonceRepository) *Guard {
	return NewGuard(nonces,
		env.GetEnvDuration("REPLAY_TRUST_WINDOW", DefaultTrustWindow),
		env.GetEnvDuration("REPLAY_SKEW_TOLERANCE", DefaultSkewTolerance),
	)
}

// CheckAndRecord consumes a nonce. fresh=false means the nonce was already
// used within the trust window and the delivery is a replay. The check and
// the record are one atomic insert in the store; there is no window where
// two concurrent requests both observe "not used".
func (g *Guard) CheckAndRecord(source, nonce string) (bool, error) {
	return g.nonces.RecordIfFresh(source, nonce, time.Now().Add(-g.trustWindow))
}

// SkewExceeded reports whether a provider-claimed timestamp is implausibly
// far from arrival time, in either direction. A nil claim never trips the
// check; not every provider sends one.
func (g *Guard) SkewExceeded(claimed *time.Time, arrival time.Time) bool {
	if claimed == nil {
		return false
	}
	d := arrival.Sub(*claimed)
	if d < 0 {
		d = -d
	}
	return d > g.skew
}

// TrustWindow returns the configured nonce trust window, used by the sweep.
func (g *Guard) TrustWindow() time.Duration {
	return g.trustWindow
}

// Sweep purges nonces older than the trust window. Run periodically; lookup
// correctness does not depend on it because RecordIfFresh filters by
// recency.
func (g *Guard) Sweep() (int64, error) {
	return g.nonces.PurgeOlderThan(time.Now().Add(-g.trustWindow))
}

// DeriveNonce produces the deterministic replay token for a delivery. When
// the provider sends an explicit nonce header it wins; otherwise the nonce
// is derived from the signature header and the claimed timestamp, which
// together are unique per legitimate delivery and identical for a captured
// replay of it.
func DeriveNonce(explicit, signatureHeader, timestampHeader string) string {
	if n := strings.TrimSpace(explicit); n != "" {
		return n
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(signatureHeader) + "|" + strings.TrimSpace(timestampHeader)))
	return hex.EncodeToString(sum[:])
}
