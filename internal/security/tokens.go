package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/rsa"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, expired, or fails iss/aud checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSigningDisabled is returned by Issue when the provider was built without a private key.
	ErrSigningDisabled = errors.New("token signing disabled: no private key")
)

// StaffClaims holds JWT claims for a staff session token. Subject is the staff user id.
type StaffClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
	BranchID  string `json:"branch_id,omitempty"`
}

// StaffToken is the decoded, verified content of a staff session token.
type StaffToken struct {
	SessionID string
	UserID    string
	BranchID  string
	ExpiresAt time.Time
}

// TokenProvider issues and validates staff session JWTs using RS256 or ES256.
// The realtime server only validates; a nil private key disables Issue.
type TokenProvider struct {
	privateKey crypto.Signer
	publicKey  crypto.PublicKey
	issuer     string
	audience   string
	ttl        time.Duration
}

// NewTokenProvider returns a TokenProvider. privateKey may be nil for validate-only use.
func NewTokenProvider(privateKey crypto.Signer, publicKey crypto.PublicKey, issuer, audience string, ttl time.Duration) *TokenProvider {
	return &TokenProvider{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// Issue signs a staff session token for the given session, user, and branch.
// Returns the token string and its expiration time.
func (p *TokenProvider) Issue(sessionID, userID, branchID string) (string, time.Time, error) {
	if p.privateKey == nil {
		return "", time.Time{}, ErrSigningDisabled
	}
	jti, err := generateJTI()
	if err != nil {
		return "", time.Time{}, err
	}
	now := time.Now().UTC()
	expiresAt := now.Add(p.ttl)
	claims := StaffClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			Issuer:    p.issuer,
			Audience:  jwt.ClaimStrings{p.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
		BranchID:  branchID,
	}
	var method jwt.SigningMethod
	switch p.privateKey.Public().(type) {
	case *rsa.PublicKey:
		method = jwt.SigningMethodRS256
	case *ecdsa.PublicKey:
		method = jwt.SigningMethodES256
	default:
		return "", time.Time{}, ErrInvalidToken
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(p.privateKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// Validate parses and validates a staff session token (signature, exp, iss, aud).
// Every failure collapses to ErrInvalidToken.
func (p *TokenProvider) Validate(tokenString string) (*StaffToken, error) {
	if tokenString == "" || p.publicKey == nil {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &StaffClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			return p.publicKey, nil
		}
		return nil, ErrInvalidToken
	},
		jwt.WithIssuer(p.issuer),
		jwt.WithAudience(p.audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*StaffClaims)
	if !ok || !token.Valid || claims.SessionID == "" || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	out := &StaffToken{
		SessionID: claims.SessionID,
		UserID:    claims.Subject,
		BranchID:  claims.BranchID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func generateJTI() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
