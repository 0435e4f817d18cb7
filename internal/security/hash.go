package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashToken derives the irreversible fingerprint stored in place of a raw
// bearer token. The pepper keeps offline brute force against a leaked
// sessions table from confirming token guesses.
func HashToken(raw, pepper string) string {
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}
