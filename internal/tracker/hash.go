package tracker

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashIP produces the salted one-way digest stored in place of a raw
// client IP. Identical (ip, salt) inputs always produce the same
// digest, which is what makes dedup possible without keeping addresses.
func HashIP(ip, salt string) string {
	h := sha256.Sum256([]byte(ip + "|" + salt))
	return hex.EncodeToString(h[:])
}
