package jira

import (
	"fmt"
	"net/http"
	"strings"
)

// AuthFunc applies authentication to an outgoing request.
type AuthFunc func(*http.Request)

// NewBearerAuth authenticates with a personal access token. Surrounding
// whitespace is stripped so pasted tokens work as-is.
func NewBearerAuth(token string) AuthFunc {
	token = strings.TrimSpace(token)
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// NewBasicAuth authenticates with an email and API token pair.
func NewBasicAuth(email, token string) AuthFunc {
	email = strings.TrimSpace(email)
	token = strings.TrimSpace(token)
	return func(req *http.Request) {
		req.SetBasicAuth(email, token)
	}
}

// ResolveAuth returns the appropriate AuthFunc based on provided credentials.
// It supports either Bearer token or Basic (email + API token) authentication.
func ResolveAuth(bearerToken, email, token string) (auth AuthFunc, method string, err error) {
	switch {
	case bearerToken != "":
		return NewBearerAuth(bearerToken), "Bearer", nil
	case email != "" && token != "":
		return NewBasicAuth(email, token), "Basic", nil
	default:
		return nil, "", fmt.Errorf("no valid auth method configured: must provide either bearer token or email+token")
	}
}

// ObfuscatedHeader renders the Authorization header auth would set, with the
// credential masked down to its first and last two characters so it can be
// logged. Example: "Bearer ab******yz".
func ObfuscatedHeader(auth AuthFunc) string {
	req, _ := http.NewRequest(http.MethodGet, "https://placeholder", nil)
	auth(req)

	header := req.Header.Get("Authorization")
	scheme, credential, found := strings.Cut(header, " ")
	if !found {
		return "[invalid header]"
	}

	credential = strings.TrimSpace(credential)
	if len(credential) <= 4 {
		return scheme + " " + strings.Repeat("*", len(credential))
	}
	masked := credential[:2] + strings.Repeat("*", len(credential)-4) + credential[len(credential)-2:]
	return scheme + " " + masked
}
