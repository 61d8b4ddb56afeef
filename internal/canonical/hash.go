package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint domains. The version suffix allows a future change of
// encoding without colliding with stored fingerprints.
const (
	DomainSnapshot = "undoredo/snapshot/v1"
	DomainTrace    = "undoredo/trace/v1"
)

// Fingerprint returns the hex SHA-256 of the canonical encoding of v,
// separated from other domains: SHA256(domain + 0x00 + canonical(v)).
func Fingerprint(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}

func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
