package otp

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	codeFloor = 100000
	codeSpan  = 900000
)

// GenerateCode returns a 6-digit numeric code uniformly distributed over
// [100000, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+codeFloor, 10), nil
}
