package auth

import (
	"github.com/jonboulle/clockwork"

	"github.com/jonwraymond/datahealth/config"
)

// FromSettings builds the authenticator described by s. It returns nil
// when no credential is configured.
func FromSettings(s config.AuthSettings, clock clockwork.Clock) Authenticator {
	if !s.Enabled() {
		return nil
	}

	var auths []Authenticator
	if store := StaticAPIKeyStore(s.APIKeys...); store.Len() > 0 {
		auths = append(auths, NewAPIKeyAuthenticator(APIKeyConfig{Clock: clock}, store))
	}
	if s.JWTSecret != "" {
		auths = append(auths, NewJWTAuthenticator(
			JWTConfig{Clock: clock, RolesClaim: "roles"},
			NewStaticKeyProvider([]byte(s.JWTSecret)),
		))
	}
	if len(auths) == 0 {
		return nil
	}
	return NewCompositeAuthenticator(auths...)
}
