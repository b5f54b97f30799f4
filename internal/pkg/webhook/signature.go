package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// PlatformBSignaturePrefixes are the only prefixes platform B is known to
// put in front of the hex digest. Matching is case-insensitive.
var PlatformBSignaturePrefixes = []string{"sha256=", "hmac-sha256="}

// VerifySignature checks a hex encoded HMAC-SHA256 of payload. An empty
// header or secret never verifies.
func VerifySignature(payload []byte, signatureHeader, secret string) bool {
	sig := strings.TrimSpace(signatureHeader)
	secret = strings.TrimSpace(secret)
	if sig == "" || secret == "" {
		return false
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return false
	}
	return verifyHMAC(payload, decodedSig, []byte(secret))
}

// VerifySignatureWithPrefixes strips at most one of the given prefixes from
// the header before verifying. Headers without a prefix are accepted too.
func VerifySignatureWithPrefixes(payload []byte, signatureHeader, secret string, prefixes []string) bool {
	sig := strings.TrimSpace(signatureHeader)
	lower := strings.ToLower(sig)
	for _, prefix := range prefixes {
		if strings.HasPrefix(lower, prefix) {
			sig = sig[len(prefix):]
			break
		}
	}
	return VerifySignature(payload, sig, secret)
}

// Sign returns the hex HMAC-SHA256 of payload, used by tests and by the
// HTTP dispatcher to sign processor calls.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyHMAC(payload, expectedSig, secret []byte) bool {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
