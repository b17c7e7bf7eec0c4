package store

import (
	"crypto/rand"
	"encoding/hex"
)

// NewMockWalletAddress returns a random Ethereum-style address: "0x"
// followed by 40 lowercase hex characters.
func NewMockWalletAddress() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(b), nil
}
