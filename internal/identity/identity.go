package identity

// Identity is the authenticated caller. Signing happens outside this module,
// so the core only ever reads the principal.
type Identity interface {
	Principal() Principal
}

// Static is an Identity with a fixed principal.
type Static Principal

// Principal implements Identity.
func (s Static) Principal() Principal {
	return Principal(s)
}
