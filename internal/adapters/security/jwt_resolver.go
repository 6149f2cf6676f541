package security

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/stackyard/taskhub/internal/domain"
	"github.com/stackyard/taskhub/internal/ports"
)

// JWTResolver verifies bearer tokens issued by the external auth collaborator
// and maps their claims onto a Principal. It supports the two verification
// profiles that collaborator issues under: HS256 with a shared secret, or
// RS256 against a public key PEM. Exactly one must be configured.
type JWTResolver struct {
	secret    []byte
	publicKey *rsa.PublicKey
	leeway    time.Duration
}

func NewJWTResolver(sharedSecret, publicKeyPEM string) (*JWTResolver, error) {
	if (sharedSecret == "") == (publicKeyPEM == "") {
		return nil, errors.New("configure exactly one of jwt shared secret or public key PEM")
	}
	r := &JWTResolver{leeway: 30 * time.Second}
	if sharedSecret != "" {
		r.secret = []byte(sharedSecret)
		return r, nil
	}
	pub, err := parseRSAPublic(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	r.publicKey = pub
	return r, nil
}

type principalClaims struct {
	Email       string `json:"email"`
	Role        string `json:"role"`
	DisplayName string `json:"name"`
	// jti carries the credential instance id; each token issuance mints a
	// fresh one, which is what lets logouts correlate per device.
	jwt.RegisteredClaims
}

func (r *JWTResolver) method() string {
	if r.secret != nil {
		return jwt.SigningMethodHS256.Alg()
	}
	return jwt.SigningMethodRS256.Alg()
}

func (r *JWTResolver) key(token *jwt.Token) (any, error) {
	if token.Method.Alg() != r.method() {
		return nil, fmt.Errorf("unexpected signing method: %s", token.Method.Alg())
	}
	if r.secret != nil {
		return r.secret, nil
	}
	return r.publicKey, nil
}

func (r *JWTResolver) Resolve(_ context.Context, raw string) (ports.Principal, error) {
	parsed, err := jwt.ParseWithClaims(raw, &principalClaims{}, r.key,
		jwt.WithValidMethods([]string{r.method()}),
		jwt.WithLeeway(r.leeway),
	)
	if err != nil {
		return ports.Principal{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*principalClaims)
	if !ok || !parsed.Valid {
		return ports.Principal{}, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}

	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ports.Principal{}, fmt.Errorf("%w: malformed subject claim", domain.ErrUnauthorized)
	}
	credentialID, err := uuid.Parse(claims.ID)
	if err != nil {
		return ports.Principal{}, fmt.Errorf("%w: malformed jti claim", domain.ErrUnauthorized)
	}

	return ports.Principal{
		SubjectID:            subjectID,
		Role:                 claims.Role,
		Email:                claims.Email,
		DisplayName:          claims.DisplayName,
		CredentialInstanceID: credentialID,
	}, nil
}

func parseRSAPublic(raw string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(raw))
	if block == nil {
		return nil, errors.New("invalid public PEM")
	}
	if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
		return key, nil
	}
	keyAny, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := keyAny.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not RSA")
	}
	return key, nil
}
