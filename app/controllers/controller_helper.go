package controllers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// GetClientIP determines the actual client IP address considering proxies.
// Rate limiting keys on this value, so the order matters: the Cloudflare
// header wins, then the first X-Forwarded-For hop, then the socket peer.
func GetClientIP(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); cfIP != "" {
		return cfIP
	}

	if xff := c.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain a list of IPs - the first one is the
		// original client IP
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}

	return c.IP()
}

// firstHeaderValue returns the first non-empty header among the given keys.
func firstHeaderValue(c *fiber.Ctx, keys ...string) string {
	for _, k := range keys {
		v := strings.TrimSpace(c.Get(k))
		if v != "" {
			return v
		}
	}
	return ""
}

// parseWebhookTimestamp accepts the timestamp formats the providers use:
// unix seconds or RFC3339. Returns nil when the header is absent or
// unparseable; skew checking treats a missing claim as unflaggable.
func parseWebhookTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil && secs > 0 {
		t := time.Unix(secs, 0).UTC()
		return &t
	}
	return nil
}

// offsetLimit reads pagination query params with sane bounds.
func offsetLimit(c *fiber.Ctx) (int, int) {
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	return offset, limit
}
