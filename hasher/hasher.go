// Package hasher derives content fingerprints used as stable output directory names.
package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FingerprintLength is the number of hex characters kept from the SHA-256 digest (64 bits).
const FingerprintLength = 16

// Fingerprint returns the truncated SHA-256 of the file at path.
//
// Identical bytes always produce the identical fingerprint, independent of
// the file's name or location.
//
// Example:
//
//	fp, err := hasher.Fingerprint("/videos/clip.mp4")
//	// fp == "3f7a9c0e12ab44d1"
func Fingerprint(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer f.Close()

	fp, err := FingerprintReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fp, nil
}

// FingerprintReader hashes everything readable from r.
func FingerprintReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil))[:FingerprintLength], nil
}
