package utils

import (
	"crypto/sha256"
	"encoding/base64"
)

// HashToken is used for refresh tokens at rest.
func HashToken(raw string) string {
	hasher := sha256.New()
	hasher.Write([]byte(raw))
	return base64.URLEncoding.EncodeToString(hasher.Sum(nil))
}
