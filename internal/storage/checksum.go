package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ChecksumPrefix is the prefix for SHA-256 checksums.
const ChecksumPrefix = "sha256:"

// Checksum represents a hex-encoded SHA-256 hash with the "sha256:" prefix.
type Checksum string

var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrInvalidChecksum  = errors.New("invalid checksum format")
)

// ComputeChecksum computes SHA-256 over a byte slice.
func ComputeChecksum(data []byte) Checksum {
	sum := sha256.Sum256(data)
	return Checksum(ChecksumPrefix + hex.EncodeToString(sum[:]))
}

// VerifyChecksum checks that data hashes to expected. name is only used to
// make the error readable.
func VerifyChecksum(name string, data []byte, expected Checksum) error {
	if err := expected.Validate(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if actual := ComputeChecksum(data); actual != expected {
		return fmt.Errorf("%w: %s expected %s got %s", ErrChecksumMismatch, name, expected, actual)
	}
	return nil
}

// Validate reports whether c is a well-formed "sha256:<64 hex>" value.
func (c Checksum) Validate() error {
	s := string(c)
	if !strings.HasPrefix(s, ChecksumPrefix) {
		return fmt.Errorf("%w: missing prefix %q", ErrInvalidChecksum, ChecksumPrefix)
	}
	hexStr := s[len(ChecksumPrefix):]
	if len(hexStr) != 64 {
		return fmt.Errorf("%w: expected 64 hex chars, got %d", ErrInvalidChecksum, len(hexStr))
	}
	if _, err := hex.DecodeString(hexStr); err != nil {
		return fmt.Errorf("%w: invalid hex: %v", ErrInvalidChecksum, err)
	}
	return nil
}
