package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// VerifyWebhookSignature checks a Cashfree webhook signature: the gateway
// signs timestamp+rawBody with HMAC-SHA256 over the merchant secret and
// sends the base64 digest in the x-webhook-signature header. The comparison
// is constant time.
func VerifyWebhookSignature(secret string, timestamp string, rawBody []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
