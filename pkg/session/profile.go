package session

// Profile is the user-info document returned by the provider. Its shape is
// owned by the provider; the accessors cover the standard OIDC claims.
type Profile map[string]any

// String returns the claim named key when it is a string.
func (p Profile) String(key string) string {
	v, _ := p[key].(string)
	return v
}

// Subject returns the "sub" claim.
func (p Profile) Subject() string { return p.String("sub") }

// Name returns the "name" claim.
func (p Profile) Name() string { return p.String("name") }

// Email returns the "email" claim.
func (p Profile) Email() string { return p.String("email") }

// Clone returns a shallow copy so callers cannot mutate the cached profile.
func (p Profile) Clone() Profile {
	if p == nil {
		return nil
	}
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
