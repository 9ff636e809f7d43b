package auth

import "strings"

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
)

// ExtractBearerToken returns the credential carried by the Authorization header,
// or an empty string when the header is missing or is not a bearer credential.
// Header names are matched case-insensitively; http.Header values can be passed directly.
func ExtractBearerToken(headers map[string][]string) string {
	for key, values := range headers {
		if !strings.EqualFold(key, authorizationHeader) || len(values) == 0 {
			continue
		}
		return BearerFromHeader(values[0])
	}
	return ""
}

// BearerFromHeader applies the "Bearer " prefix check to a single header value.
func BearerFromHeader(value string) string {
	if len(value) <= len(bearerPrefix) || !strings.HasPrefix(value, bearerPrefix) {
		return ""
	}
	return value[len(bearerPrefix):]
}
