package config

// Default key prefixes in the shared cache.
const (
	DefaultBlacklistPrefix   = "jwt:blacklist:"
	DefaultVerifyLimitPrefix = "verify:email:limit:"
	DefaultVerifyDataPrefix  = "verify:email:data:"
)

// KeySpace names every key this service writes to the shared cache.
// Namespace, when set, is prepended to all keys so that environments and
// test runs sharing one Redis do not collide.
type KeySpace struct {
	Namespace         string
	BlacklistPrefix   string
	VerifyLimitPrefix string
	VerifyDataPrefix  string
}

// DefaultKeySpace returns the standard prefixes under the given namespace.
func DefaultKeySpace(namespace string) KeySpace {
	return KeySpace{
		Namespace:         namespace,
		BlacklistPrefix:   DefaultBlacklistPrefix,
		VerifyLimitPrefix: DefaultVerifyLimitPrefix,
		VerifyDataPrefix:  DefaultVerifyDataPrefix,
	}
}

// BlacklistKey is the revocation entry key for a token id.
func (k KeySpace) BlacklistKey(jti string) string {
	return k.scoped(k.BlacklistPrefix + jti)
}

// VerifyLimitKey is the rate limit key for a caller scope such as an IP.
func (k KeySpace) VerifyLimitKey(scope string) string {
	return k.scoped(k.VerifyLimitPrefix + scope)
}

// VerifyDataKey is the verification code key for a recipient email.
func (k KeySpace) VerifyDataKey(email string) string {
	return k.scoped(k.VerifyDataPrefix + email)
}

func (k KeySpace) scoped(key string) string {
	if k.Namespace == "" {
		return key
	}
	return k.Namespace + ":" + key
}
