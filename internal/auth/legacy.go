package auth

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	legacyPrefix    = "token_"
	legacySeparator = "_"
	legacySegments  = 3
)

// LegacyCodec reads and writes tokens of the form token_<userId>_<epochMillis>.
//
// The format has no signature and no expiry: any token with the right shape is
// accepted. Callers must treat a decoded subject as format-only trust.
type LegacyCodec struct {
	clock Clock
}

// NewLegacyCodec builds a codec; a nil clock falls back to the system clock.
func NewLegacyCodec(clock Clock) *LegacyCodec {
	return &LegacyCodec{clock: clockOrSystem(clock)}
}

// Encode formats a token for userID stamped with the current time.
func (c *LegacyCodec) Encode(userID string) string {
	millis := c.clock.Now().UnixMilli()
	return legacyPrefix + userID + legacySeparator + strconv.FormatInt(millis, 10)
}

// Decode returns the user id segment of a legacy token.
func (c *LegacyCodec) Decode(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty legacy token", ErrMalformedToken)
	}
	if !strings.HasPrefix(token, legacyPrefix) {
		return "", fmt.Errorf("%w: missing %q prefix", ErrMalformedToken, legacyPrefix)
	}
	parts := strings.Split(token, legacySeparator)
	if len(parts) != legacySegments {
		return "", fmt.Errorf("%w: expected %d segments, got %d", ErrMalformedToken, legacySegments, len(parts))
	}
	if parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("%w: empty legacy segment", ErrMalformedToken)
	}
	return parts[1], nil
}
