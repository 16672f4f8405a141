package bearer

import "strings"

// AllowList is the ordered set of client ids permitted to call the service,
// loaded once per process lifetime and read-only thereafter.
//
// Whether an empty list means "allow all" or "deny all" is a security
// policy, so it is explicit: an empty list authorizes nothing unless
// AllowEmpty is set.
type AllowList struct {
	IDs        []string
	AllowEmpty bool
}

// NewAllowList builds an AllowList from configured entries, trimming
// surrounding whitespace and dropping empty strings.
func NewAllowList(ids []string, allowEmpty bool) AllowList {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return AllowList{IDs: out, AllowEmpty: allowEmpty}
}

// Verdict is the result of an authorization check.
type Verdict struct {
	Allowed   bool
	MatchedID string
}

// Authorize checks the resolved identity against the allow-list using exact
// string equality. It never mutates the list and performs no I/O.
func Authorize(identity CallerIdentity, list AllowList) Verdict {
	if len(list.IDs) == 0 {
		return Verdict{Allowed: list.AllowEmpty}
	}
	for _, id := range list.IDs {
		if identity.ClientID == id {
			return Verdict{Allowed: true, MatchedID: id}
		}
	}
	return Verdict{Allowed: false}
}
