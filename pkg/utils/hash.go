package utils

import (
	"crypto/md5"
	"fmt"
)

// HashString returns a stable hex id for arbitrary content. Used for plan
// section ids and embedding cache keys; not a security boundary.
func HashString(input string) string {
	hash := md5.Sum([]byte(input))
	return fmt.Sprintf("%x", hash)
}
