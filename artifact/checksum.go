package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// Checksum utilities for artifact integrity verification.
//
// Uses SHA-256 so the digest doubles as a tamper check, not only a
// corruption check. The digest covers the full encoded byte sequence and
// is stored alongside the artifact (package metadata or sidecar), never
// inside it.

// Checksum returns the lowercase hex SHA-256 digest of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum checks data against an expected hex digest.
func VerifyChecksum(data []byte, expected string) error {
	actual := Checksum(data)
	if actual != expected {
		return &ChecksumMismatchError{
			Expected: expected,
			Actual:   actual,
		}
	}
	return nil
}

// ChecksumWriter wraps an io.Writer and computes a running SHA-256 digest.
type ChecksumWriter struct {
	w    io.Writer
	hash hash.Hash
}

// NewChecksumWriter creates a new checksumming writer.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{
		w:    w,
		hash: sha256.New(),
	}
}

// Write implements io.Writer.
func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	if _, err := cw.hash.Write(p); err != nil {
		return 0, err
	}
	return cw.w.Write(p)
}

// Sum returns the hex digest of all bytes written so far.
func (cw *ChecksumWriter) Sum() string {
	return hex.EncodeToString(cw.hash.Sum(nil))
}

// ChecksumReader wraps an io.Reader and computes a running SHA-256 digest.
type ChecksumReader struct {
	r    io.Reader
	hash hash.Hash
}

// NewChecksumReader creates a new checksumming reader.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{
		r:    r,
		hash: sha256.New(),
	}
}

// Read implements io.Reader.
func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		if _, hashErr := cr.hash.Write(p[:n]); hashErr != nil {
			return n, hashErr
		}
	}
	return n, err
}

// Sum returns the hex digest of all bytes read so far.
func (cr *ChecksumReader) Sum() string {
	return hex.EncodeToString(cr.hash.Sum(nil))
}

// Verify checks the running digest against the expected value.
func (cr *ChecksumReader) Verify(expected string) error {
	actual := cr.Sum()
	if actual != expected {
		return &ChecksumMismatchError{
			Expected: expected,
			Actual:   actual,
		}
	}
	return nil
}

// ChecksumMismatchError is returned when checksum verification fails.
// The artifact must not be loaded into a live index.
type ChecksumMismatchError struct {
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// IsChecksumMismatch returns true if err is a checksum mismatch error.
func IsChecksumMismatch(err error) bool {
	_, ok := err.(*ChecksumMismatchError)
	return ok
}
