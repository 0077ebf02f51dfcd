package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

type HashAlgo string

const (
	HashAlgoSHA256 HashAlgo = "sha256"
	HashAlgoBLAKE3 HashAlgo = "blake3"
)

// partSeparator keeps ("ab","c") and ("a","bc") from colliding.
const partSeparator = 0x1f

// HashBytes returns the hash of bytes as a hex string using the specified algorithm.
// Supported algorithms: "sha256" and "blake3".
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	switch algo {
	case HashAlgoSHA256:
		hash := sha256.Sum256(data)
		return hex.EncodeToString(hash[:]), nil
	case HashAlgoBLAKE3:
		hash := blake3.Sum256(data)
		return hex.EncodeToString(hash[:]), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// HashParts hashes the separator-joined parts.
func HashParts(algo HashAlgo, parts ...string) (string, error) {
	var buf []byte
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, partSeparator)
		}
		buf = append(buf, p...)
	}
	return HashBytes(buf, algo)
}
