// Package ident extracts a best-effort owner identity from a request.
// Nothing here authenticates anyone: owner ids only partition records, and
// a request with no identity at all falls back to the anonymous owner.
package ident

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Anonymous is the owner recorded when no identity hint is present.
const Anonymous = "anonymous"

const devHeader = "x-owner-sub"

// headerLookup returns the value of a header key, case-insensitively.
func headerLookup(h map[string]string, key string) string {
	lk := strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == lk {
			return v
		}
	}
	return ""
}

// stringIf returns the string value of v if it is a non-empty string.
func stringIf(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return ""
}

// subFromAuthHeader pulls the "sub" claim out of a bearer JWT without
// verifying it. Good enough for partitioning; never used for access control.
func subFromAuthHeader(headers map[string]string) string {
	auth := headerLookup(headers, "Authorization")
	if auth == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		auth = strings.TrimSpace(auth[len("bearer "):])
	}
	parts := strings.Split(auth, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var m map[string]any
	if json.Unmarshal(payload, &m) != nil {
		return ""
	}
	return stringIf(m["sub"])
}

// Owner resolves the owner id for a request: JWT authorizer claims, then
// the dev bypass header, then the bearer token payload, then the id the
// request body carried, then Anonymous.
func Owner(req events.APIGatewayV2HTTPRequest, bodyOwner string) string {
	if req.RequestContext.Authorizer != nil && req.RequestContext.Authorizer.JWT != nil {
		if sub := req.RequestContext.Authorizer.JWT.Claims["sub"]; sub != "" {
			return sub
		}
	}
	if sub := strings.TrimSpace(headerLookup(req.Headers, devHeader)); sub != "" {
		return sub
	}
	if sub := subFromAuthHeader(req.Headers); sub != "" {
		return sub
	}
	if strings.TrimSpace(bodyOwner) != "" {
		return strings.TrimSpace(bodyOwner)
	}
	return Anonymous
}
