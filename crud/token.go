package crud

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// RememberTokenBytes is the byte size of generated session tokens.
const RememberTokenBytes = 32

// HMAC hashes session tokens before they are stored, so a leaked database
// doesn't leak usable tokens.
type HMAC struct {
	key []byte
}

func NewHMAC(key string) HMAC {
	return HMAC{key: []byte(key)}
}

// Hash returns the base64 HMAC-SHA256 of input. A fresh mac is built per
// call so Hash is safe under concurrent requests.
func (h HMAC) Hash(input string) string {
	mac := hmac.New(sha256.New, h.key)
	mac.Write([]byte(input))
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// makeToken returns n cryptographically random bytes, base64 encoded.
func makeToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
