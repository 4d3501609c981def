package util

import (
	"crypto/rand"
	"math/big"
	"regexp"
)

const (
	trackingPrefix   = "WC-"
	trackingAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	trackingLength   = 6
)

var trackingCodeRe = regexp.MustCompile(`^WC-[A-Z0-9]{6}$`)

// GenerateTrackingCode returns a public job identifier of the form WC-XXXXXX.
func GenerateTrackingCode() string {
	max := big.NewInt(int64(len(trackingAlphabet)))
	b := make([]byte, trackingLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand never fails on supported platforms
			panic(err)
		}
		b[i] = trackingAlphabet[n.Int64()]
	}
	return trackingPrefix + string(b)
}

// IsTrackingCode reports whether s looks like a code from GenerateTrackingCode.
func IsTrackingCode(s string) bool {
	return trackingCodeRe.MatchString(s)
}
