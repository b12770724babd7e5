package util

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// CopyWithSHA256 copies src to dst and returns the hex digest of the bytes copied.
func CopyWithSHA256(dst io.Writer, src io.Reader) (int64, string, error) {
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(dst, h), src)
	if err != nil {
		return n, "", err
	}
	return n, hex.EncodeToString(h.Sum(nil)), nil
}
