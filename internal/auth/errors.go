package auth

import "errors"

var (
	// ErrNoCredential reports a request without a bearer credential.
	ErrNoCredential = errors.New("no credential")
	// ErrMalformedToken reports a token whose structure cannot be parsed.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidSignature reports a well-formed token whose MAC does not verify.
	ErrInvalidSignature = errors.New("invalid token signature")
	// ErrExpiredToken reports a correctly signed token past its expiry.
	ErrExpiredToken = errors.New("token expired")
)
