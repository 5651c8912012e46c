package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

// CodeAlphabet excludes characters that are easy to misread: 0/O and 1/I/L.
const CodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// NewRefreshToken generates an opaque 256-bit token, base64url encoded.
func NewRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewCode returns a random code of length n drawn uniformly from CodeAlphabet.
func NewCode(n int) (string, error) {
	size := big.NewInt(int64(len(CodeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b[i] = CodeAlphabet[idx.Int64()]
	}
	return string(b), nil
}
