package security

import "time"

// NewTestTokenProvider returns a TokenProvider with a freshly generated key pair.
// For tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	signer, pub, err := GenerateEphemeralKey()
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(signer, pub, "test-issuer", "test-audience", time.Hour), nil
}
