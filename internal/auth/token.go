package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// DefaultTokenLifetimeDays applies when the configured lifetime is not positive.
const DefaultTokenLifetimeDays = 30

// Claims is the identity carried by a validated signed token.
type Claims struct {
	Subject   string
	Email     string
	FirstName string
	LastName  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the JWT payload: sub, email, firstName, lastName, iat, exp.
type tokenClaims struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	jwt.RegisteredClaims
}

func (tc *tokenClaims) toClaims() Claims {
	claims := Claims{
		Subject:   tc.Subject,
		Email:     tc.Email,
		FirstName: tc.FirstName,
		LastName:  tc.LastName,
	}
	if tc.IssuedAt != nil {
		claims.IssuedAt = tc.IssuedAt.Time.UTC()
	}
	if tc.ExpiresAt != nil {
		claims.ExpiresAt = tc.ExpiresAt.Time.UTC()
	}
	return claims
}

// TokenManager issues and validates HS256-signed identity tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	clock  Clock
}

// NewTokenManager builds a new manager. The secret is copied.
func NewTokenManager(secret []byte, lifetimeDays int, clock Clock) *TokenManager {
	if lifetimeDays <= 0 {
		lifetimeDays = DefaultTokenLifetimeDays
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenManager{
		secret: key,
		ttl:    time.Duration(lifetimeDays) * 24 * time.Hour,
		clock:  clockOrSystem(clock),
	}
}

// Lifetime returns the validity window of issued tokens.
func (tm *TokenManager) Lifetime() time.Duration {
	return tm.ttl
}

// Issue builds and signs a token for the user.
func (tm *TokenManager) Issue(userID, email, firstName, lastName string) (string, Claims, error) {
	if userID == "" {
		return "", Claims{}, errors.New("issue token: empty subject")
	}
	now := tm.clock.Now()
	tc := &tokenClaims{
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tc)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, tc.toClaims(), nil
}

// Validate verifies the signature and then the expiry of a token and returns its claims.
// The token is expired only once the clock is strictly past exp.
// Failures wrap ErrMalformedToken, ErrInvalidSignature or ErrExpiredToken.
func (tm *TokenManager) Validate(tokenStr string) (Claims, error) {
	now := tm.clock.Now()

	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return Claims{}, fmt.Errorf("%w: expected 3 segments, got %d", ErrMalformedToken, len(parts))
	}
	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Claims{}, fmt.Errorf("%w: signature encoding: %v", ErrMalformedToken, err)
	}
	if len(sig) != sha256.Size {
		return Claims{}, fmt.Errorf("%w: signature is %d bytes", ErrMalformedToken, len(sig))
	}
	// Trailing bits of the last character are ignored by the decoder; the
	// segment must be the exact encoding of the MAC.
	canonical := base64.RawURLEncoding.EncodeToString(sig) == parts[2]

	var tc tokenClaims
	_, err = jwt.ParseWithClaims(tokenStr, &tc, func(*jwt.Token) (interface{}, error) {
		if !canonical {
			return nil, ErrInvalidSignature
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Claims{}, classifyParseError(err)
	}
	if tc.ExpiresAt == nil {
		return Claims{}, fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	}
	if tc.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	if now.After(tc.ExpiresAt.Time) {
		return Claims{}, fmt.Errorf("%w: expired at %s", ErrExpiredToken, tc.ExpiresAt.Time.UTC().Format(time.RFC3339))
	}
	return tc.toClaims(), nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return fmt.Errorf("%w: non-canonical signature encoding", ErrInvalidSignature)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
}

// ExtractSubject returns the subject of a valid token.
func (tm *TokenManager) ExtractSubject(tokenStr string) (string, bool) {
	claims, err := tm.Validate(tokenStr)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

// ExtractEmail returns the email claim of a valid token.
func (tm *TokenManager) ExtractEmail(tokenStr string) (string, bool) {
	claims, err := tm.Validate(tokenStr)
	if err != nil {
		return "", false
	}
	return claims.Email, true
}

// ExtractAllClaims returns every claim of a valid token.
func (tm *TokenManager) ExtractAllClaims(tokenStr string) (Claims, bool) {
	claims, err := tm.Validate(tokenStr)
	if err != nil {
		return Claims{}, false
	}
	return claims, true
}

// IsExpired reports whether the token should be treated as expired. Any
// validation failure counts as expired.
func (tm *TokenManager) IsExpired(tokenStr string) bool {
	_, err := tm.Validate(tokenStr)
	return err != nil
}
