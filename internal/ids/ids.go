package ids

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/segmentio/ksuid"
)

// New returns a surrogate identifier for a vertex (principal, photo,
// collection, edge). These are the only identifiers that may appear in
// foreign-key fields or leave the process.
func New() string {
	return ksuid.New().String()
}

// NewShareToken returns a 128-bit random token for anonymous photo access.
// It is generated independently of the photo's surrogate id and is
// immutable once assigned.
func NewShareToken() (string, error) {
	return randomToken(16)
}

// NewSessionSecret returns a 256-bit opaque session reference.
func NewSessionSecret() (string, error) {
	return randomToken(32)
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
