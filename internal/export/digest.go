package export

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
)

// DigestWriter forwards writes while computing their SHA-256 and byte count.
type DigestWriter struct {
	w    io.Writer
	h    hash.Hash
	size int64
}

// NewDigestWriter wraps w.
func NewDigestWriter(w io.Writer) *DigestWriter {
	return &DigestWriter{w: w, h: sha256.New()}
}

func (d *DigestWriter) Write(p []byte) (int, error) {
	n, err := d.w.Write(p)
	d.h.Write(p[:n])
	d.size += int64(n)
	return n, err
}

// Sum returns the hex SHA-256 of everything written so far.
func (d *DigestWriter) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// Size returns the number of bytes written so far.
func (d *DigestWriter) Size() int64 {
	return d.size
}
