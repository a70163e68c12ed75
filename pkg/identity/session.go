package identity

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Session is the signed-in identity the profile is correlated with.
type Session struct {
	IdentityKey string
	Name        string
	Email       string
	Token       string
}

// Validate checks that the session can address a remote profile.
func (s Session) Validate() (err error) {
	if strings.TrimSpace(s.IdentityKey) == "" {
		err = errors.New("identity key is required")
		return err
	}
	return err
}

// sessionClaims are the claims read from an identity provider session token.
type sessionClaims struct {
	Name      string `json:"name,omitempty"`
	FullName  string `json:"full_name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// FromToken builds a Session from a session JWT. The subject becomes the identity key.
//
// verifyKey selects verification: a PEM RSA public key verifies RS256, any
// other non-empty value is an HMAC secret, and an empty key skips signature
// verification because the backend verifies the token it receives.
func FromToken(token, verifyKey string) (session Session, err error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		err = errors.New("session token is empty")
		return session, err
	}

	claims := &sessionClaims{}
	if verifyKey == "" {
		parser := jwt.NewParser()
		_, _, err = parser.ParseUnverified(token, claims)
		if err != nil {
			err = errors.Wrap(err, "failed to parse session token")
			return session, err
		}
	} else {
		var keyFunc jwt.Keyfunc
		keyFunc, err = keyFuncFor(verifyKey)
		if err != nil {
			return session, err
		}

		var parsed *jwt.Token
		parsed, err = jwt.ParseWithClaims(token, claims, keyFunc)
		if err != nil {
			err = errors.Wrap(err, "failed to verify session token")
			return session, err
		}
		if !parsed.Valid {
			err = errors.New("session token is invalid")
			return session, err
		}
	}

	session = Session{
		IdentityKey: claims.Subject,
		Name:        firstNonEmpty(claims.Name, claims.FullName, claims.FirstName),
		Email:       claims.Email,
		Token:       token,
	}

	err = session.Validate()
	if err != nil {
		err = errors.Wrap(err, "session token has no subject")
		return session, err
	}

	return session, err
}

// keyFuncFor returns the key lookup for verifyKey.
func keyFuncFor(verifyKey string) (keyFunc jwt.Keyfunc, err error) {
	if strings.Contains(verifyKey, "-----BEGIN") {
		var rsaKey interface{}
		rsaKey, err = jwt.ParseRSAPublicKeyFromPEM([]byte(verifyKey))
		if err != nil {
			err = errors.Wrap(err, "failed to parse RSA verification key")
			return keyFunc, err
		}
		keyFunc = func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return rsaKey, nil
		}
		return keyFunc, err
	}

	secret := []byte(verifyKey)
	keyFunc = func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}
	return keyFunc, err
}

func firstNonEmpty(values ...string) (result string) {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			result = strings.TrimSpace(v)
			return result
		}
	}
	return result
}
