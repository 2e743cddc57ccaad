package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateCode returns a random uppercase hexadecimal string built from n
// random bytes.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateOTP returns a random numeric one-time code of the given length.
func GenerateOTP(length int) (string, error) {
	const charset = "0123456789"

	code := make([]byte, length)

	if _, err := rand.Read(code); err != nil {
		return "", err
	}

	for i := 0; i < length; i++ {
		code[i] = charset[int(code[i])%len(charset)]
	}

	return string(code), nil
}

// GenerateTxID returns an opaque, unguessable transaction id for a purchase
// receipt. Prefixed so receipts are recognizable in logs and client code.
func GenerateTxID() (string, error) {
	code, err := GenerateCode(16)
	if err != nil {
		return "", err
	}
	return "tx_" + strings.ToLower(code), nil
}
