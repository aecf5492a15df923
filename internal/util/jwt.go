package util

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the auth provider's token claims. Subject is the user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func decodePublicKey(pemKey string) (any, error) {
	block, _ := pem.Decode([]byte(pemKey))
	if block == nil {
		return nil, errors.New("failed to decode PEM block containing public key")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pub, nil
}

// ParseRSAPublicKey parses a PEM-encoded RSA public key.
func ParseRSAPublicKey(pemKey string) (*rsa.PublicKey, error) {
	pub, err := decodePublicKey(pemKey)
	if err != nil {
		return nil, err
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return rsaPub, nil
}

// ParseECDSAPublicKey parses a PEM-encoded ECDSA public key.
func ParseECDSAPublicKey(pemKey string) (*ecdsa.PublicKey, error) {
	pub, err := decodePublicKey(pemKey)
	if err != nil {
		return nil, err
	}
	ecdsaPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not ECDSA")
	}
	return ecdsaPub, nil
}

// Verifier validates tokens signed with one configured algorithm. The key is
// resolved once; the token header never chooses how it is verified.
type Verifier struct {
	alg string
	key any
}

// NewVerifier builds a Verifier for alg. keyMaterial is a shared secret for
// HMAC and a PEM public key for RSA and ECDSA.
func NewVerifier(alg, keyMaterial string) (*Verifier, error) {
	if keyMaterial == "" {
		return nil, errors.New("missing token key material")
	}
	var key any
	switch alg {
	case "HS256", "HS384", "HS512":
		key = []byte(keyMaterial)
	case "RS256", "RS384", "RS512":
		pub, err := ParseRSAPublicKey(keyMaterial)
		if err != nil {
			return nil, err
		}
		key = pub
	case "ES256", "ES384", "ES512":
		pub, err := ParseECDSAPublicKey(keyMaterial)
		if err != nil {
			return nil, err
		}
		key = pub
	default:
		return nil, fmt.Errorf("unsupported signing algorithm: %q", alg)
	}
	return &Verifier{alg: alg, key: key}, nil
}

// Alg returns the only algorithm v accepts.
func (v *Verifier) Alg() string { return v.alg }

// Validate verifies tokenString and returns its claims. A token without a
// subject is rejected since every request must map to a user.
func (v *Verifier) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.key, nil
	}, jwt.WithValidMethods([]string{v.alg}))
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
