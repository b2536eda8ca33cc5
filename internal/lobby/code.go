package lobby

import (
	"crypto/rand"
	"math/big"
)

const (
	codeLength = 5
	// Ambiguous characters (0/1/I/O) are excluded so codes survive being
	// read aloud or typed from a screen.
	codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateCode returns a random shareable room code. Uniqueness is not
// guaranteed here; the store's unique index on code is authoritative and
// callers retry with a fresh code on conflict.
func GenerateCode() string {
	code := make([]byte, codeLength)
	for i := range code {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(codeChars))))
		code[i] = codeChars[n.Int64()]
	}
	return string(code)
}
