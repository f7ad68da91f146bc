package booking

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const tokenEntropyBytes = 32

// NewCancellationToken returns an opaque URL-safe credential for the public
// view/cancel path of one appointment.
func NewCancellationToken() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate cancellation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
