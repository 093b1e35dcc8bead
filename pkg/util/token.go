package util

import (
	"crypto/rand"
	"encoding/hex"
)

func GenerateSessionToken() string {
	b := make([]byte, 24)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
