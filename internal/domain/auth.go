package domain

// TrustLevel records how an authenticated identity was established.
type TrustLevel string

const (
	// TrustSigned identities come from a verified signed token.
	TrustSigned TrustLevel = "SIGNED"
	// TrustLegacy identities come from an unsigned legacy token and are format-only.
	TrustLegacy TrustLevel = "LEGACY"
)

// Decision labels the outcome of one authentication attempt for audit purposes.
type Decision string

const (
	DecisionSignedValid  Decision = "signed-valid"
	DecisionLegacyValid  Decision = "legacy-valid"
	DecisionExpired      Decision = "expired"
	DecisionMalformed    Decision = "malformed"
	DecisionForged       Decision = "forged"
	DecisionNotFound     Decision = "not-found"
	DecisionInactive     Decision = "inactive"
	DecisionNoCredential Decision = "no-credential"
)

// Accepted reports whether the decision authenticates the caller.
func (d Decision) Accepted() bool {
	return d == DecisionSignedValid || d == DecisionLegacyValid
}
