package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/causekit/CauseLedger/internal/pkg/env"
	"github.com/gofiber/fiber/v2"
)

// ServiceKeyAuthMiddleware guards the monitoring surface with the shared
// service token. The ingestion service is the only holder of write
// credentials to the ledger tables; this middleware keeps its read-only
// views from becoming an open endpoint. An unconfigured token locks the
// surface rather than opening it.
func ServiceKeyAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		configured := strings.TrimSpace(env.GetEnv("MONITORING_SERVICE_TOKEN", ""))
		if configured == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Monitoring token not configured"})
		}

		presented := extractServiceTokenFromHeader(c)
		if presented == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing service token"})
		}

		if !tokensMatch(presented, configured) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid service token"})
		}

		return c.Next()
	}
}

// tokensMatch compares sha256 digests in constant time so the comparison
// leaks neither length nor prefix.
func tokensMatch(presented, configured string) bool {
	p := sha256.Sum256([]byte(presented))
	c := sha256.Sum256([]byte(configured))
	return subtle.ConstantTimeCompare(p[:], c[:]) == 1
}

// HashServiceToken returns the hex sha256 of a token, for logging a stable
// identifier without the token itself.
func HashServiceToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func extractServiceTokenFromHeader(c *fiber.Ctx) string {
	token := strings.TrimSpace(c.Get("X-Service-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
