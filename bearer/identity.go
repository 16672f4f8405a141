package bearer

// CallerType classifies the kind of principal behind a token. It is used
// for observability only, never for authorization.
type CallerType string

const (
	CallerTypeVMManagedIdentity CallerType = "vm-managed-identity"
	CallerTypeServicePrincipal  CallerType = "service-principal"
	CallerTypeUser              CallerType = "user"
	CallerTypeUnknown           CallerType = "unknown"
)

// CallerIdentity is the single caller identity derived from verified
// claims. It is derived deterministically and never persisted.
type CallerIdentity struct {
	// ClientID is the resolved caller client id: the appid claim when
	// present, else azp, else oid.
	ClientID string

	// Type is the observability classification of the caller.
	Type CallerType

	// ClaimUsed names which claim produced ClientID: "appid", "azp", "oid",
	// or "" when none were present.
	ClaimUsed string

	// Raw claim references.
	ObjectID        string
	Subject         string
	AppID           string
	AuthorizedParty string
}

// ResolveIdentity derives a CallerIdentity from verified claims using the
// fixed precedence appid > azp > oid. It is pure and total: absent claims
// propagate as empty fields and never produce an error.
//
// Supported options: WithVMIdentity, WithTestIdentity.
func ResolveIdentity(c *Claims, opt ...Option) CallerIdentity {
	opts := getIdentityOpts(opt...)

	identity := CallerIdentity{
		ObjectID:        c.ObjectID(),
		Subject:         c.Subject(),
		AppID:           c.AppID(),
		AuthorizedParty: c.AuthorizedParty(),
	}

	switch {
	case identity.AppID != "":
		identity.ClientID = identity.AppID
		identity.ClaimUsed = "appid"
	case identity.AuthorizedParty != "":
		identity.ClientID = identity.AuthorizedParty
		identity.ClaimUsed = "azp"
	case identity.ObjectID != "":
		identity.ClientID = identity.ObjectID
		identity.ClaimUsed = "oid"
	}

	switch {
	case opts.withVMIdentity != "" && identity.ClientID == opts.withVMIdentity:
		identity.Type = CallerTypeVMManagedIdentity
	case opts.withTestIdentity != "" && identity.ClientID == opts.withTestIdentity:
		identity.Type = CallerTypeServicePrincipal
	case identity.AppID != "":
		identity.Type = CallerTypeServicePrincipal
	case identity.ObjectID != "":
		identity.Type = CallerTypeUser
	default:
		identity.Type = CallerTypeUnknown
	}

	return identity
}
