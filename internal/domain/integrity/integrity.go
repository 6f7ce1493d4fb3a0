// Package integrity computes and verifies package digests.
//
// Catalogs declare a lowercase hex digest for every package. Verification is
// a case-sensitive string comparison of that value against the digest of the
// received bytes. It proves the bytes match what the catalog declared, not
// who produced them.
package integrity

import (
	"crypto/md5" //nolint:gosec // catalogs publish md5 digests
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm names a digest function.
type Algorithm string

// Supported algorithms.
const (
	MD5        Algorithm = "md5"
	SHA256     Algorithm = "sha256"
	SHA512     Algorithm = "sha512"
	BLAKE2b256 Algorithm = "blake2b-256"
	SHA3_256   Algorithm = "sha3-256"
)

// Default is the algorithm catalogs declare checksums with.
const Default = MD5

// Errors.
var (
	ErrChecksumMismatch     = errors.New("checksum mismatch")
	ErrUnsupportedAlgorithm = errors.New("unsupported digest algorithm")
)

// Algorithms lists every supported algorithm.
func Algorithms() []Algorithm {
	return []Algorithm{MD5, SHA256, SHA512, BLAKE2b256, SHA3_256}
}

// ParseAlgorithm resolves a config value. Empty means Default.
func ParseAlgorithm(s string) (Algorithm, error) {
	if strings.TrimSpace(s) == "" {
		return Default, nil
	}
	alg := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range Algorithms() {
		if a == alg {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, s)
}

func (a Algorithm) newHash() (hash.Hash, error) {
	switch a {
	case MD5, "":
		return md5.New(), nil //nolint:gosec // see ParseAlgorithm
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	case BLAKE2b256:
		return blake2b.New256(nil)
	case SHA3_256:
		return sha3.New256(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, a)
	}
}

// Hex returns the lowercase hex digest of data.
func Hex(alg Algorithm, data []byte) (string, error) {
	h, err := alg.newHash()
	if err != nil {
		return "", err
	}
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks data against expected. The comparison is case-sensitive:
// an upper-case expected digest never matches.
func Verify(alg Algorithm, data []byte, expected string) error {
	actual, err := Hex(alg, data)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(actual), []byte(expected)) != 1 {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
	}
	return nil
}
