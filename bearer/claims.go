package bearer

import (
	"time"
)

// Claims is the immutable set of claims decoded from a token whose signature
// has been verified. It is produced exactly once per successful verification
// and scoped to a single request.
type Claims struct {
	m map[string]interface{}
}

func (c *Claims) str(name string) string {
	if v, ok := c.m[name].(string); ok {
		return v
	}
	return ""
}

func (c *Claims) unix(name string) (time.Time, bool) {
	switch v := c.m[name].(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC(), true
	case int64:
		return time.Unix(v, 0).UTC(), true
	}
	return time.Time{}, false
}

func (c *Claims) Issuer() string          { return c.str("iss") }
func (c *Claims) Subject() string         { return c.str("sub") }
func (c *Claims) ObjectID() string        { return c.str("oid") }
func (c *Claims) AppID() string           { return c.str("appid") }
func (c *Claims) AuthorizedParty() string { return c.str("azp") }
func (c *Claims) TenantID() string        { return c.str("tid") }
func (c *Claims) Scope() string           { return c.str("scp") }

// Audience returns the token's aud claim. Tokens from the issuers this
// module accepts carry a single audience; when a list is present the first
// entry is returned.
func (c *Claims) Audience() string {
	auds := c.Audiences()
	if len(auds) == 0 {
		return ""
	}
	return auds[0]
}

// Audiences returns the aud claim as a list, accepting both the string and
// list JSON forms.
func (c *Claims) Audiences() []string {
	switch v := c.m["aud"].(type) {
	case string:
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, a := range v {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

// IssuedAt returns the iat claim, if present.
func (c *Claims) IssuedAt() (time.Time, bool) { return c.unix("iat") }

// Expiry returns the exp claim, if present.
func (c *Claims) Expiry() (time.Time, bool) { return c.unix("exp") }

// Map returns a copy of all claims, including opaque extra claims.
func (c *Claims) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(c.m))
	for k, v := range c.m {
		out[k] = v
	}
	return out
}
