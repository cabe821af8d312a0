package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// Staff access keys are provisioned out of band (config or ops tooling) and
// stored only as hashes.

func HashAccessKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// VerifyAccessKey compares a presented key against the stored hash in
// constant time.
func VerifyAccessKey(presented, storedHash string) bool {
	presentedHash := HashAccessKey(presented)
	return subtle.ConstantTimeCompare([]byte(presentedHash), []byte(storedHash)) == 1
}
