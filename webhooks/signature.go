package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

const (
	HeaderDeliveryID = "X-Webhook-Delivery"
	HeaderSignature  = "X-Webhook-Signature"
	HeaderTopic      = "X-Webhook-Topic"
	SignaturePrefix  = "sha256="
)

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(strings.TrimSpace(secret)))
	_, _ = mac.Write(body)
	return SignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// HeaderHMACVerifier checks signatures produced by Sign. Receivers can use
// it to authenticate deliveries.
type HeaderHMACVerifier struct {
	Header string
	Secret string
}

func (v HeaderHMACVerifier) Verify(headers http.Header, body []byte) error {
	name := strings.TrimSpace(v.Header)
	if name == "" {
		name = HeaderSignature
	}
	header := strings.TrimSpace(headers.Get(name))
	if header == "" {
		return fmt.Errorf("webhooks: %s signature header is required", name)
	}
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signature secret is required")
	}
	signature := strings.TrimSpace(strings.TrimPrefix(header, SignaturePrefix))
	if signature == "" {
		return fmt.Errorf("webhooks: signature value is required")
	}
	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("webhooks: decode hex signature: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	if subtle.ConstantTimeCompare(decoded, mac.Sum(nil)) != 1 {
		return fmt.Errorf("webhooks: signature verification failed")
	}
	return nil
}
