package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/causekit/CauseLedger/app/models"
)

func hexMAC(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureCourseHub(t *testing.T) {
	payload := []byte(`{"order":{"id":"o_1"}}`)
	secret := "ch-secret"

	if !VerifySignature(models.SourceCourseHub, payload, hexMAC(payload, secret), secret) {
		t.Fatalf("expected valid hex signature to verify")
	}
	if VerifySignature(models.SourceCourseHub, payload, hexMAC(payload, "other-secret"), secret) {
		t.Fatalf("expected signature under wrong secret to fail")
	}
	if VerifySignature(models.SourceCourseHub, []byte(`{"order":{"id":"o_2"}}`), hexMAC(payload, secret), secret) {
		t.Fatalf("expected signature over different body to fail")
	}
	if VerifySignature(models.SourceCourseHub, payload, "not-hex", secret) {
		t.Fatalf("expected undecodable signature to fail")
	}
}

func TestVerifySignatureTixbee(t *testing.T) {
	payload := []byte(`{"attendee":{"id":"a_1"}}`)
	secret := "tb-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !VerifySignature(models.SourceTixbee, payload, sig, secret) {
		t.Fatalf("expected valid base64 signature to verify")
	}
	if VerifySignature(models.SourceTixbee, payload, "%%%not-base64%%%", secret) {
		t.Fatalf("expected undecodable signature to fail")
	}
}

func TestVerifySignaturePayflow(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"charge.succeeded"}`)
	secret := "pf-secret"
	ts := int64(1756600000)

	signed := fmt.Sprintf("%d.%s", ts, payload)
	header := fmt.Sprintf("t=%d,v1=%s", ts, hexMAC([]byte(signed), secret))

	if !VerifySignature(models.SourcePayflow, payload, header, secret) {
		t.Fatalf("expected valid payflow signature to verify")
	}

	// The MAC covers the timestamp, so swapping t= onto a captured body
	// must fail.
	swapped := fmt.Sprintf("t=%d,v1=%s", ts+600, hexMAC([]byte(signed), secret))
	if VerifySignature(models.SourcePayflow, payload, swapped, secret) {
		t.Fatalf("expected timestamp-swapped signature to fail")
	}

	if VerifySignature(models.SourcePayflow, payload, "v1=deadbeef", secret) {
		t.Fatalf("expected header without timestamp to fail")
	}
}

func TestVerifySignatureFailClosed(t *testing.T) {
	payload := []byte(`{}`)

	if VerifySignature(models.SourceCourseHub, payload, hexMAC(payload, "x"), "") {
		t.Fatalf("expected empty secret to fail closed")
	}
	if VerifySignature(models.SourceCourseHub, payload, "", "x") {
		t.Fatalf("expected empty signature header to fail")
	}
	if VerifySignature("unknown", payload, hexMAC(payload, "x"), "x") {
		t.Fatalf("expected unknown source to fail")
	}
}

func TestParsePayflowSignatureIgnoresUnknownElements(t *testing.T) {
	ts, v1 := parsePayflowSignature("t=1756600000,v0=legacy,v1=abcdef,junk")
	if ts != 1756600000 {
		t.Fatalf("expected timestamp 1756600000, got %d", ts)
	}
	if v1 != "abcdef" {
		t.Fatalf("expected v1 abcdef, got %q", v1)
	}
}
