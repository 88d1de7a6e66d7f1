package download

import (
	"encoding/hex"
	"fmt"
	"hash"
)

// checksumVerifier accumulates the downloaded bytes into a hash for
// comparison against the expected hex digest once the stream drains.
type checksumVerifier struct {
	hash     hash.Hash
	expected string
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

// Verify compares the accumulated digest. A nil receiver reports
// success, so callers need not guard the unconfigured case.
func (v *checksumVerifier) Verify() error {
	if v == nil {
		return nil
	}

	actual := hex.EncodeToString(v.hash.Sum(nil))
	if actual != v.expected {
		return &Error{
			Err:    ErrChecksumMismatch,
			Detail: fmt.Sprintf("expected %s, got %s", v.expected, actual),
		}
	}

	return nil
}
