package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/causekit/CauseLedger/app/models"
)

// VerifySignature checks the provider signature over the exact raw request
// body. An empty secret always fails: a provider without a configured
// secret must never be accepted silently.
func VerifySignature(source string, payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	sec := strings.TrimSpace(secret)
	if sig == "" || sec == "" {
		return false
	}

	switch source {
	case models.SourceCourseHub:
		return verifyHexSignature(payload, sig, sec)
	case models.SourcePayflow:
		return verifyPayflowSignature(payload, sig, sec)
	case models.SourceTixbee:
		return verifyBase64Signature(payload, sig, sec)
	default:
		return false
	}
}

// CourseHub sends X-Coursehub-Signature as lowercase hex HMAC-SHA256.
func verifyHexSignature(payload []byte, sig, secret string) bool {
	decoded, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	return verifyHMAC(payload, decoded, []byte(secret))
}

// Tixbee sends X-Tixbee-Signature as standard base64 HMAC-SHA256.
func verifyBase64Signature(payload []byte, sig, secret string) bool {
	decoded, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false
	}
	return verifyHMAC(payload, decoded, []byte(secret))
}

// Payflow sends X-Payflow-Signature in the "t=<unix>,v1=<hex>" scheme. The
// MAC covers "<t>.<body>" so the claimed timestamp cannot be swapped onto a
// captured body.
func verifyPayflowSignature(payload []byte, sig, secret string) bool {
	ts, v1 := parsePayflowSignature(sig)
	if ts == 0 || v1 == "" {
		return false
	}
	decoded, err := hex.DecodeString(strings.ToLower(v1))
	if err != nil {
		return false
	}

	signed := make([]byte, 0, len(payload)+24)
	signed = append(signed, []byte(strconv.FormatInt(ts, 10))...)
	signed = append(signed, '.')
	signed = append(signed, payload...)
	return verifyHMAC(signed, decoded, []byte(secret))
}

// parsePayflowSignature extracts the timestamp and v1 digest from the
// signature header. Unknown elements are ignored so the provider can add
// schemes without breaking verification.
func parsePayflowSignature(header string) (int64, string) {
	var ts int64
	var v1 string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			if v, err := strconv.ParseInt(kv[1], 10, 64); err == nil {
				ts = v
			}
		case "v1":
			v1 = kv[1]
		}
	}
	return ts, v1
}

func verifyHMAC(payload, expectedSig, secret []byte) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
